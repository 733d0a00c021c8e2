package service

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"suzu_discount/internal/pkg/config"
)

// MockOTPRepository is a mock of OTPRepository
type MockOTPRepository struct {
	mock.Mock
}

func (m *MockOTPRepository) Issue(phone, code string, ttl time.Duration) error {
	args := m.Called(phone, code, ttl)
	return args.Error(0)
}

func (m *MockOTPRepository) Verify(phone, code string) (bool, error) {
	args := m.Called(phone, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockOTPRepository) SweepExpired() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

type stubThrottle struct {
	allow bool
}

func (s stubThrottle) Allow(context.Context, string) bool { return s.allow }

type captureDeliverer struct {
	mu       sync.Mutex
	phone    string
	message  string
	delivers int
}

func (d *captureDeliverer) Dispatch(phone, message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.phone = phone
	d.message = message
	d.delivers++
}

func testOTPConfig() config.OTPConfig {
	return config.OTPConfig{
		Required:              true,
		ExpiryMinutes:         5,
		Length:                6,
		ResendIntervalSeconds: 60,
		SweepIntervalMinutes:  30,
	}
}

func TestIssue(t *testing.T) {
	t.Run("Issues and dispatches code", func(t *testing.T) {
		mockRepo := new(MockOTPRepository)
		deliverer := &captureDeliverer{}
		svc := NewOTPService(mockRepo, stubThrottle{allow: true}, deliverer, testOTPConfig(),
			"Your code: %s, valid for %d minutes")

		var issuedCode string
		mockRepo.On("Issue", "01012345678", mock.AnythingOfType("string"), 5*time.Minute).
			Run(func(args mock.Arguments) { issuedCode = args.String(1) }).
			Return(nil)

		err := svc.Issue(context.Background(), "01012345678")

		assert.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^[0-9]{6}$`), issuedCode)
		assert.Equal(t, 1, deliverer.delivers)
		assert.Equal(t, "01012345678", deliverer.phone)
		assert.Contains(t, deliverer.message, issuedCode)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Throttled send returns error without storing", func(t *testing.T) {
		mockRepo := new(MockOTPRepository)
		deliverer := &captureDeliverer{}
		svc := NewOTPService(mockRepo, stubThrottle{allow: false}, deliverer, testOTPConfig(), "%s %d")

		err := svc.Issue(context.Background(), "01012345678")

		assert.ErrorIs(t, err, ErrResendThrottled)
		assert.Zero(t, deliverer.delivers)
		mockRepo.AssertNotCalled(t, "Issue")
	})
}

func TestVerify(t *testing.T) {
	mockRepo := new(MockOTPRepository)
	svc := NewOTPService(mockRepo, stubThrottle{allow: true}, &captureDeliverer{}, testOTPConfig(), "%s %d")

	mockRepo.On("Verify", "01012345678", "123456").Return(true, nil)
	mockRepo.On("Verify", "01012345678", "000000").Return(false, nil)

	ok, err := svc.Verify("01012345678", "123456")
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Verify("01012345678", "000000")
	assert.NoError(t, err)
	assert.False(t, ok)

	mockRepo.AssertExpectations(t)
}

func TestGenerateCodeLength(t *testing.T) {
	for _, length := range []int{4, 6, 8} {
		code, err := generateCode(length)
		assert.NoError(t, err)
		assert.Len(t, code, length)
		assert.Regexp(t, regexp.MustCompile(`^[0-9]+$`), code)
	}
}
