package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"salon-booking-backend/metrics"
)

const (
	paystackProvider        = "paystack"
	paystackSignatureHeader = "X-Paystack-Signature"
	paystackChargeSuccess   = "charge.success"
)

type PaystackConfig struct {
	SecretKey   string
	BaseURL     string
	CallbackURL string
	Timeout     time.Duration
	Retry       RetryPolicy
}

// Paystack talks to the Paystack transactions API over REST.
type Paystack struct {
	cfg    PaystackConfig
	client *http.Client
}

func NewPaystack(cfg PaystackConfig) *Paystack {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.paystack.co"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Paystack{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *Paystack) Name() string { return paystackProvider }

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type paystackTransaction struct {
	Status    string          `json:"status"`
	Reference string          `json:"reference"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (t paystackTransaction) toTransaction() *Transaction {
	return &Transaction{
		Reference:  t.Reference,
		Status:     t.Status,
		Successful: t.Status == "success",
		Amount:     FromMinor(t.Amount),
		Currency:   t.Currency,
		BookingID:  bookingIDFromMetadata(t.Metadata),
	}
}

func (p *Paystack) InitializeTransaction(ctx context.Context, req InitializeRequest) (*Authorization, error) {
	callback := req.CallbackURL
	if callback == "" {
		callback = p.cfg.CallbackURL
	}
	payload := map[string]interface{}{
		"email":     req.Email,
		"amount":    ToMinor(req.Amount),
		"currency":  req.Currency,
		"reference": req.Reference,
		"metadata":  map[string]string{"booking_id": req.BookingID},
	}
	if callback != "" {
		payload["callback_url"] = callback
	}

	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	}
	if err := p.call(ctx, "initialize", http.MethodPost, "/transaction/initialize", payload, &data); err != nil {
		return nil, err
	}

	reference := data.Reference
	if reference == "" {
		reference = req.Reference
	}
	return &Authorization{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        reference,
	}, nil
}

func (p *Paystack) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	var data paystackTransaction
	path := "/transaction/verify/" + url.PathEscape(reference)
	if err := p.call(ctx, "verify", http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return data.toTransaction(), nil
}

func (p *Paystack) ParseWebhook(header http.Header, body []byte) (*WebhookEvent, error) {
	signature := header.Get(paystackSignatureHeader)
	if signature == "" || !p.validSignature(body, signature) {
		return nil, ErrInvalidSignature
	}

	var event struct {
		Event string              `json:"event"`
		Data  paystackTransaction `json:"data"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("decode paystack event: %w", err)
	}

	tx := event.Data.toTransaction()
	tx.Successful = event.Event == paystackChargeSuccess && tx.Successful
	return &WebhookEvent{Type: event.Event, Transaction: *tx}, nil
}

func (p *Paystack) validSignature(body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(p.cfg.SecretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

func (p *Paystack) call(ctx context.Context, operation, method, path string, payload interface{}, out interface{}) error {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("marshal paystack request: %w", err)
		}
	}

	timer := time.Now()
	defer func() {
		metrics.GatewayRequestDuration.WithLabelValues(paystackProvider, operation).Observe(time.Since(timer).Seconds())
	}()

	var envelope paystackEnvelope
	err := p.cfg.Retry.Do(ctx, func() error {
		envelope = paystackEnvelope{}
		return p.do(ctx, method, path, body, &envelope)
	}, IsTransientHTTP)
	if err != nil {
		return err
	}
	if !envelope.Status {
		return &StatusError{Provider: paystackProvider, StatusCode: http.StatusOK, Message: envelope.Message}
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode paystack %s response: %w", operation, err)
	}
	return nil
}

func (p *Paystack) do(ctx context.Context, method, path string, body []byte, envelope *paystackEnvelope) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.cfg.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		var failed paystackEnvelope
		if json.Unmarshal(raw, &failed) == nil && failed.Message != "" {
			msg = failed.Message
		}
		return &StatusError{Provider: paystackProvider, StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(raw, envelope); err != nil {
		return fmt.Errorf("decode paystack response: %w", err)
	}
	return nil
}
