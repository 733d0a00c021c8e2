package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Encode 将文本渲染为 QR 图片并返回 base64 编码的 PNG
// 前端直接塞进 <img src="data:image/png;base64,...">
func Encode(text string) (string, error) {
	png, err := qrcode.Encode(text, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("failed to render qr code: %w", err)
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
