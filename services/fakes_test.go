package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"salon-booking-backend/gateway"
	"salon-booking-backend/logger"
	"salon-booking-backend/repository"
)

type fakeGateway struct {
	mu           sync.Mutex
	initRequests []gateway.InitializeRequest
	initErr      error
	transactions map[string]*gateway.Transaction
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{transactions: make(map[string]*gateway.Transaction)}
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) InitializeTransaction(ctx context.Context, req gateway.InitializeRequest) (*gateway.Authorization, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initRequests = append(g.initRequests, req)
	if g.initErr != nil {
		return nil, g.initErr
	}
	return &gateway.Authorization{
		AuthorizationURL: "https://pay.example/" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

func (g *fakeGateway) VerifyTransaction(ctx context.Context, reference string) (*gateway.Transaction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	tx, ok := g.transactions[reference]
	if !ok {
		return nil, &gateway.StatusError{Provider: "fake", StatusCode: http.StatusNotFound, Message: "unknown"}
	}
	return tx, nil
}

// fakeEvent is the body format understood by fakeGateway.ParseWebhook.
type fakeEvent struct {
	Type      string  `json:"type"`
	BookingID string  `json:"booking_id"`
	Reference string  `json:"reference"`
	Amount    float64 `json:"amount"`
	Status    string  `json:"status"`
}

const fakeSignatureHeader = "X-Fake-Signature"

func (g *fakeGateway) ParseWebhook(header http.Header, body []byte) (*gateway.WebhookEvent, error) {
	if header.Get(fakeSignatureHeader) != "valid" {
		return nil, gateway.ErrInvalidSignature
	}
	var ev fakeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, err
	}
	return &gateway.WebhookEvent{
		Type: ev.Type,
		Transaction: gateway.Transaction{
			Reference:  ev.Reference,
			Status:     ev.Status,
			Successful: ev.Type == "charge.success" && ev.Status == "success",
			Amount:     ev.Amount,
			BookingID:  ev.BookingID,
		},
	}, nil
}

func signedHeader() http.Header {
	h := http.Header{}
	h.Set(fakeSignatureHeader, "valid")
	return h
}

func eventBody(ev fakeEvent) []byte {
	b, _ := json.Marshal(ev)
	return b
}

type sentMessage struct {
	Channel string
	To      string
	Body    string
}

type fakeMessenger struct {
	mu     sync.Mutex
	sent   []sentMessage
	failTo map[string]bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{failTo: make(map[string]bool)}
}

func (m *fakeMessenger) Send(ctx context.Context, channel, to, body string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTo[to] {
		return "", errors.New("provider unavailable")
	}
	m.sent = append(m.sent, sentMessage{Channel: channel, To: to, Body: body})
	return "SM" + to, nil
}

func (m *fakeMessenger) sentTo(to string) []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMessage
	for _, s := range m.sent {
		if s.To == to {
			out = append(out, s)
		}
	}
	return out
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) PublishJSON(ctx context.Context, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, k := range p.keys {
		if k == key {
			n++
		}
	}
	return n
}

const adminNumber = "+27794380103"

type fixture struct {
	store     *repository.MemoryStore
	gateway   *fakeGateway
	messenger *fakeMessenger
	publisher *recordingPublisher
	notifier  *NotificationService
	bookings  *BookingService
	location  *time.Location
}

func newFixture() *fixture {
	loc, err := time.LoadLocation("Africa/Johannesburg")
	if err != nil {
		panic(err)
	}
	f := &fixture{
		store:     repository.NewMemoryStore(),
		gateway:   newFakeGateway(),
		messenger: newFakeMessenger(),
		publisher: &recordingPublisher{},
		location:  loc,
	}
	f.notifier = NewNotificationService(f.messenger, adminNumber, "27", logger.NewNop())
	f.bookings = NewBookingService(f.store.Bookings(), f.gateway, f.notifier, f.publisher, BookingConfig{
		Currency:       "ZAR",
		DepositPercent: 45,
		CountryCode:    "27",
		Location:       loc,
	}, logger.NewNop())
	return f
}

func validInput() CreateBookingInput {
	return CreateBookingInput{
		Style:        "Knotless braids",
		Length:       "Waist",
		Price:        500,
		ClientName:   "Jane",
		ClientPhone:  "082 123 4567",
		ClientEmail:  "jane@example.com",
		Date:         "5/1/2024",
		Time:         "14:00",
		Method:       "whatsapp",
		TimeEstimate: "4-6 hours",
	}
}

type logEntry struct {
	Level string
	Msg   string
}

// recordingLogger keeps every entry, including those from derived loggers.
type recordingLogger struct {
	mu      *sync.Mutex
	entries *[]logEntry
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{mu: &sync.Mutex{}, entries: &[]logEntry{}}
}

func (l *recordingLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, logEntry{Level: level, Msg: msg})
}

func (l *recordingLogger) Debug(msg string, kv ...interface{}) { l.add("debug", msg) }
func (l *recordingLogger) Info(msg string, kv ...interface{})  { l.add("info", msg) }
func (l *recordingLogger) Warn(msg string, kv ...interface{})  { l.add("warn", msg) }
func (l *recordingLogger) Error(msg string, kv ...interface{}) { l.add("error", msg) }
func (l *recordingLogger) Fatal(msg string, kv ...interface{}) { l.add("fatal", msg) }

func (l *recordingLogger) With(kv ...interface{}) logger.Logger { return l }

func (l *recordingLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range *l.entries {
		if e.Level == level && e.Msg == msg {
			return true
		}
	}
	return false
}

// referenceFailingBookings loses every payment reference write.
type referenceFailingBookings struct {
	repository.BookingRepository
}

func (r referenceFailingBookings) SetPaymentReference(ctx context.Context, id, reference string) error {
	return errors.New("connection reset")
}
