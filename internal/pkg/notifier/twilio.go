package notifier

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"suzu_discount/internal/pkg/config"
	"suzu_discount/pkg/security"
)

// TwilioSender Twilio WhatsApp 备用通道
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioSender(cfg config.TwilioConfig) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &TwilioSender{client: client, from: cfg.From}
}

func (s *TwilioSender) Name() string { return "twilio" }

func (s *TwilioSender) Send(_ context.Context, phone, message string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(s.from)
	params.SetTo(fmt.Sprintf("whatsapp:%s", security.FormatE164(phone)))
	params.SetBody(message)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio send failed: %w", err)
	}
	return nil
}
