package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"salon-booking-backend/metrics"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

const (
	omiseProvider         = "omise"
	omiseSignatureHeader  = "Omise-Signature"
	omiseTimestampHeader  = "Omise-Signature-Timestamp"
	omiseChargeComplete   = "charge.complete"
	omiseChargeSuccessful = "successful"
)

type OmiseConfig struct {
	PublicKey     string
	SecretKey     string
	WebhookSecret string
	SourceType    string
	ReturnURI     string
	Retry         RetryPolicy
}

// Omise creates offsite charges through omise-go. The charge id is used as
// the payment reference.
type Omise struct {
	cfg    OmiseConfig
	client *omise.Client
}

func NewOmise(cfg OmiseConfig) (*Omise, error) {
	client, err := omise.NewClient(cfg.PublicKey, cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create omise client: %w", err)
	}
	if cfg.SourceType == "" {
		cfg.SourceType = "promptpay"
	}
	return &Omise{cfg: cfg, client: client}, nil
}

func (o *Omise) Name() string { return omiseProvider }

func (o *Omise) InitializeTransaction(ctx context.Context, req InitializeRequest) (*Authorization, error) {
	amount := ToMinor(req.Amount)
	currency := strings.ToLower(req.Currency)

	source := &omise.Source{}
	err := o.call(ctx, "create_source", func() error {
		return o.client.Do(source, &operations.CreateSource{
			Type:     o.cfg.SourceType,
			Amount:   amount,
			Currency: currency,
		})
	})
	if err != nil {
		return nil, err
	}

	returnURI := req.CallbackURL
	if returnURI == "" {
		returnURI = o.cfg.ReturnURI
	}
	charge := &omise.Charge{}
	err = o.call(ctx, "create_charge", func() error {
		return o.client.Do(charge, &operations.CreateCharge{
			Amount:    amount,
			Currency:  currency,
			Source:    source.ID,
			ReturnURI: returnURI,
			Metadata: map[string]interface{}{
				"booking_id": req.BookingID,
				"reference":  req.Reference,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	return &Authorization{
		AuthorizationURL: charge.AuthorizeURI,
		Reference:        charge.ID,
	}, nil
}

func (o *Omise) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	charge := &omise.Charge{}
	err := o.call(ctx, "verify", func() error {
		return o.client.Do(charge, &operations.RetrieveCharge{ChargeID: reference})
	})
	if err != nil {
		return nil, err
	}

	return &Transaction{
		Reference:  charge.ID,
		Status:     string(charge.Status),
		Successful: string(charge.Status) == omiseChargeSuccessful,
		Amount:     FromMinor(charge.Amount),
		Currency:   charge.Currency,
		BookingID:  stringValue(charge.Metadata["booking_id"]),
	}, nil
}

type omiseEventCharge struct {
	ID       string                 `json:"id"`
	Status   string                 `json:"status"`
	Amount   int64                  `json:"amount"`
	Currency string                 `json:"currency"`
	Metadata map[string]interface{} `json:"metadata"`
}

func (o *Omise) ParseWebhook(header http.Header, body []byte) (*WebhookEvent, error) {
	if !o.validSignature(header.Get(omiseTimestampHeader), header.Get(omiseSignatureHeader), body) {
		return nil, ErrInvalidSignature
	}

	var event struct {
		Key  string          `json:"key"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("decode omise event: %w", err)
	}

	var charge omiseEventCharge
	if strings.HasPrefix(event.Key, "charge.") {
		if err := json.Unmarshal(event.Data, &charge); err != nil {
			return nil, fmt.Errorf("decode omise charge: %w", err)
		}
	}

	return &WebhookEvent{
		Type: event.Key,
		Transaction: Transaction{
			Reference:  charge.ID,
			Status:     charge.Status,
			Successful: event.Key == omiseChargeComplete && charge.Status == omiseChargeSuccessful,
			Amount:     FromMinor(charge.Amount),
			Currency:   charge.Currency,
			BookingID:  stringValue(charge.Metadata["booking_id"]),
		},
	}, nil
}

// validSignature checks any of the comma separated signatures against
// HMAC-SHA256(secret, timestamp + "." + body).
func (o *Omise) validSignature(timestamp, signatures string, body []byte) bool {
	if timestamp == "" || signatures == "" {
		return false
	}
	secret, err := base64.StdEncoding.DecodeString(o.cfg.WebhookSecret)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp + "."))
	mac.Write(body)
	expected := []byte(hex.EncodeToString(mac.Sum(nil)))

	for _, sig := range strings.Split(signatures, ",") {
		if hmac.Equal(expected, []byte(strings.ToLower(strings.TrimSpace(sig)))) {
			return true
		}
	}
	return false
}

func (o *Omise) call(ctx context.Context, operation string, fn func() error) error {
	start := time.Now()
	defer func() {
		metrics.GatewayRequestDuration.WithLabelValues(omiseProvider, operation).Observe(time.Since(start).Seconds())
	}()

	if err := o.cfg.Retry.Do(ctx, fn, isTransientOmise); err != nil {
		return fmt.Errorf("omise %s: %w", operation, err)
	}
	return nil
}

func isTransientOmise(err error) bool {
	var omiseErr *omise.Error
	if errors.As(err, &omiseErr) {
		return isTransientStatus(omiseErr.StatusCode)
	}
	return IsTransientHTTP(err)
}
