package security

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// 埃及本地手机号格式: 11 位数字，以 01 开头
var egyptianMobilePattern = regexp.MustCompile(`^01[0-9]{9}$`)

// PhoneValidation 手机号校验模式
type PhoneValidation string

const (
	// PhoneValidationStrict 严格校验埃及手机号格式
	PhoneValidationStrict PhoneValidation = "strict"
	// PhoneValidationNone 不校验，接受任意非空字符串
	PhoneValidationNone PhoneValidation = "none"
)

// Sanitize 清理用户输入
// 去除首尾空白、转义 HTML 敏感字符、移除控制字符；空输入返回空字符串
func Sanitize(text string) string {
	if text == "" {
		return ""
	}

	text = html.EscapeString(strings.TrimSpace(text))

	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, text)
}

// ValidatePhone 校验埃及手机号
// 先移除空格和连字符，再匹配 01XXXXXXXXX 格式
func ValidatePhone(phone string) bool {
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(phone)
	return egyptianMobilePattern.MatchString(cleaned)
}

// NormalizePhone 归一化埃及手机号
// 移除分隔符和 +20 国际前缀，返回本地规范格式；无法归一化时返回空字符串
func NormalizePhone(phone string) string {
	if phone == "" {
		return ""
	}

	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))

	// +20 国家码转本地格式: +201XXXXXXXXX -> 01XXXXXXXXX
	if strings.HasPrefix(cleaned, "+20") {
		cleaned = "0" + cleaned[3:]
	}

	if !egyptianMobilePattern.MatchString(cleaned) {
		return ""
	}
	return cleaned
}

// FormatE164 转为 WhatsApp 投递使用的国际格式
// 01XXXXXXXXX -> +201XXXXXXXXX；已带 + 前缀的原样返回
func FormatE164(phone string) string {
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	if strings.HasPrefix(phone, "01") {
		return "+2" + phone
	}
	return "+20" + phone
}

// HashSecret 对共享管理员口令做单向散列
// 使用 bcrypt 而非快速摘要，防止离线暴力破解
func HashSecret(value string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(value), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifySecret 校验口令与散列是否匹配
func VerifySecret(value, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(value)) == nil
}
