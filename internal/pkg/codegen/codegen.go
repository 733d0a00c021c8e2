package codegen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// 核销码前缀，收银台肉眼核对用
const codePrefix = "SUZU"

// Payload 扫码载荷: 核销码 + 手机号 + 折扣
type Payload struct {
	Code     string
	Phone    string
	Discount int
}

// GenerateUniqueCode 生成核销码
// 形如 SUZU-XXXXXXXX-XXXXXXXX，两组 4 字节随机十六进制
// 碰撞概率可忽略，但入库仍依赖唯一约束兜底，冲突由调用方重新生成
func GenerateUniqueCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	hexStr := strings.ToUpper(hex.EncodeToString(buf))
	return fmt.Sprintf("%s-%s-%s", codePrefix, hexStr[:8], hexStr[8:]), nil
}

// escapeField 转义字段中的分隔符
// 旧版直接拼接，手机号里出现 '|' 会破坏载荷，这里显式转义 '\' 和 '|'
func escapeField(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "|", `\|`)
}

func unescapeField(s string) string {
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// splitUnescaped 按未转义的 '|' 切分
func splitUnescaped(raw string) []string {
	var parts []string
	var b strings.Builder
	escaped := false
	for _, r := range raw {
		if escaped {
			b.WriteRune('\\')
			b.WriteRune(r)
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case '|':
			parts = append(parts, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	if escaped {
		b.WriteRune('\\')
	}
	parts = append(parts, b.String())
	return parts
}

// EncodePayload 编码扫码载荷: code|phone|discount
func EncodePayload(code, phone string, discount int) string {
	return fmt.Sprintf("%s|%s|%d", escapeField(code), escapeField(phone), discount)
}

// DecodePayload 解析扫码载荷
// 容错处理: 格式不符时把原始输入当作核销码返回，从不报错
// (收银台可能直接输入核销码而非扫码结果)
func DecodePayload(raw string) Payload {
	parts := splitUnescaped(raw)
	if len(parts) < 3 {
		return Payload{Code: raw}
	}

	discount, err := strconv.Atoi(parts[2])
	if err != nil {
		return Payload{Code: raw}
	}

	return Payload{
		Code:     unescapeField(parts[0]),
		Phone:    unescapeField(parts[1]),
		Discount: discount,
	}
}
