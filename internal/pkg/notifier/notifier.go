package notifier

import (
	"context"

	"suzu_discount/internal/pkg/config"
	"suzu_discount/pkg/logger"

	"go.uber.org/zap"
)

// Sender 单一投递通道
// WhatsApp 网关视为黑盒: 发送成功返回 nil，其余一律视为投递失败
type Sender interface {
	Name() string
	Send(ctx context.Context, phone, message string) error
}

// simulatedSender 本地开发用通道
// 凭据未配置时不外呼，只打日志 (与旧版 ultraMessage 的模拟行为一致)
type simulatedSender struct{}

func (simulatedSender) Name() string { return "simulated" }

func (simulatedSender) Send(_ context.Context, phone, message string) error {
	if logger.Log != nil {
		logger.Log.Info("[SIMULATED] whatsapp message",
			zap.String("phone", phone),
			zap.String("message", message),
		)
	}
	return nil
}

// BuildSenders 根据配置装配主通道与备用通道
// GreenAPI 为主，Twilio WhatsApp 为备；两者都未配置时退化为模拟通道
func BuildSenders(cfg config.WhatsAppConfig) (primary, fallback Sender) {
	if cfg.GreenAPI.InstanceID != "" && cfg.GreenAPI.Token != "" {
		primary = NewGreenAPISender(cfg.GreenAPI, cfg.SendTimeoutSeconds)
	}
	if cfg.Twilio.AccountSID != "" && cfg.Twilio.AuthToken != "" && cfg.Twilio.From != "" {
		fallback = NewTwilioSender(cfg.Twilio)
	}

	if primary == nil {
		if fallback != nil {
			// 只配了 Twilio 时把它提为主通道
			return fallback, nil
		}
		return simulatedSender{}, nil
	}
	return primary, fallback
}
