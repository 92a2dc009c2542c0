package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"salon-booking-backend/metrics"

	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

const (
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"

	whatsAppPrefix = "whatsapp:"
)

var ErrUnknownChannel = errors.New("unknown message channel")

// Messenger delivers a text message and returns the provider's message id.
type Messenger interface {
	Send(ctx context.Context, channel, to, body string) (string, error)
}

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type TwilioConfig struct {
	AccountSID     string
	AuthToken      string
	PhoneNumber    string
	WhatsAppNumber string
	Retry          RetryPolicy
}

type TwilioMessenger struct {
	api          messageCreator
	from         string
	whatsAppFrom string
	retry        RetryPolicy
}

func NewTwilioMessenger(cfg TwilioConfig) *TwilioMessenger {
	restClient := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return newTwilioMessenger(restClient.Api, cfg)
}

func newTwilioMessenger(api messageCreator, cfg TwilioConfig) *TwilioMessenger {
	return &TwilioMessenger{
		api:          api,
		from:         cfg.PhoneNumber,
		whatsAppFrom: cfg.WhatsAppNumber,
		retry:        cfg.Retry,
	}
}

func (m *TwilioMessenger) Send(ctx context.Context, channel, to, body string) (string, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetBody(body)

	switch channel {
	case ChannelWhatsApp:
		params.SetTo(withWhatsAppPrefix(to))
		params.SetFrom(withWhatsAppPrefix(m.whatsAppFrom))
	case ChannelSMS:
		params.SetTo(to)
		params.SetFrom(m.from)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}

	var sid string
	err := m.retry.Do(ctx, func() error {
		resp, err := m.api.CreateMessage(params)
		if err != nil {
			return err
		}
		if resp.Sid != nil {
			sid = *resp.Sid
		}
		return nil
	}, isTransientTwilio)

	result := "sent"
	if err != nil {
		result = "failed"
	}
	metrics.MessagesSent.WithLabelValues(channel, result).Inc()

	if err != nil {
		return "", fmt.Errorf("twilio send to %s: %w", to, err)
	}
	return sid, nil
}

func withWhatsAppPrefix(number string) string {
	if strings.HasPrefix(number, whatsAppPrefix) {
		return number
	}
	return whatsAppPrefix + number
}

func isTransientTwilio(err error) bool {
	var restErr *client.TwilioRestError
	if errors.As(err, &restErr) {
		return isTransientStatus(restErr.Status)
	}
	return IsTransientHTTP(err)
}
