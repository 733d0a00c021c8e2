package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"suzu_discount/internal/pkg/config"
	"suzu_discount/pkg/security"
)

// GreenAPISender GreenAPI WhatsApp 通道
type GreenAPISender struct {
	cfg    config.GreenAPIConfig
	client *http.Client
}

func NewGreenAPISender(cfg config.GreenAPIConfig, timeoutSeconds int) *GreenAPISender {
	return &GreenAPISender{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		},
	}
}

func (s *GreenAPISender) Name() string { return "greenapi" }

type greenAPIMessage struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

// Send 调用 GreenAPI sendMessage
// chatId 使用不带 + 的国际格式: 201XXXXXXXXX@c.us
func (s *GreenAPISender) Send(ctx context.Context, phone, message string) error {
	chatID := strings.TrimPrefix(security.FormatE164(phone), "+") + "@c.us"

	payload, err := json.Marshal(greenAPIMessage{ChatID: chatID, Message: message})
	if err != nil {
		return fmt.Errorf("failed to marshal greenapi payload: %w", err)
	}

	url := fmt.Sprintf("%s/waInstance%s/sendMessage/%s", s.cfg.BaseURL, s.cfg.InstanceID, s.cfg.Token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build greenapi request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("greenapi request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("greenapi returned status %d", resp.StatusCode)
	}
	return nil
}
