package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// InitializeRequest starts a payment. Amount is in major currency units.
type InitializeRequest struct {
	Email       string
	Amount      float64
	Currency    string
	Reference   string
	BookingID   string
	CallbackURL string
}

type Authorization struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// Transaction is the gateway's view of a payment, amounts in major units.
type Transaction struct {
	Reference  string
	Status     string
	Successful bool
	Amount     float64
	Currency   string
	BookingID  string
}

type WebhookEvent struct {
	Type        string
	Transaction Transaction
}

type PaymentGateway interface {
	Name() string
	InitializeTransaction(ctx context.Context, req InitializeRequest) (*Authorization, error)
	VerifyTransaction(ctx context.Context, reference string) (*Transaction, error)
	// ParseWebhook authenticates a callback and decodes it. A bad signature
	// yields ErrInvalidSignature.
	ParseWebhook(header http.Header, body []byte) (*WebhookEvent, error)
}

// StatusError is a non-2xx answer from a provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

func ToMinor(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func FromMinor(amount int64) float64 {
	return float64(amount) / 100
}

// bookingIDFromMetadata digs booking_id out of gateway metadata, which may
// arrive as an object, a JSON-encoded string, or be absent.
func bookingIDFromMetadata(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		if encoded == "" {
			return ""
		}
		raw = json.RawMessage(encoded)
	}

	var meta map[string]interface{}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return ""
	}
	return stringValue(meta["booking_id"])
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}
