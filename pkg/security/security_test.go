package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	t.Run("Empty input returns empty string", func(t *testing.T) {
		assert.Equal(t, "", Sanitize(""))
	})

	t.Run("Trims whitespace", func(t *testing.T) {
		assert.Equal(t, "01012345678", Sanitize("  01012345678  "))
	})

	t.Run("Escapes markup characters", func(t *testing.T) {
		assert.Equal(t, "&lt;script&gt;", Sanitize("<script>"))
	})

	t.Run("Removes control characters", func(t *testing.T) {
		assert.Equal(t, "abc", Sanitize("a\x00b\x1bc"))
	})
}

func TestValidatePhone(t *testing.T) {
	cases := []struct {
		name  string
		phone string
		valid bool
	}{
		{"Valid mobile", "01012345678", true},
		{"Valid with spaces", "010 1234 5678", true},
		{"Valid with dashes", "010-1234-5678", true},
		{"Too short", "0101234567", false},
		{"Too long", "010123456789", false},
		{"Wrong prefix", "02012345678", false},
		{"Letters", "01o12345678", false},
		{"Empty", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.valid, ValidatePhone(tc.phone))
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		name  string
		phone string
		want  string
	}{
		{"Already normalized", "01012345678", "01012345678"},
		{"International prefix", "+201012345678", "01012345678"},
		{"Spaces and dashes", " 010-1234 5678 ", "01012345678"},
		{"International with separators", "+20 10-1234-5678", "01012345678"},
		{"Invalid after normalization", "+20123", ""},
		{"Empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizePhone(tc.phone))
		})
	}
}

func TestFormatE164(t *testing.T) {
	assert.Equal(t, "+201012345678", FormatE164("01012345678"))
	assert.Equal(t, "+201012345678", FormatE164("+201012345678"))
}

func TestHashAndVerifySecret(t *testing.T) {
	hash, err := HashSecret("super-secret")
	assert.NoError(t, err)
	assert.NotEqual(t, "super-secret", hash)

	assert.True(t, VerifySecret("super-secret", hash))
	assert.False(t, VerifySecret("wrong", hash))
}
