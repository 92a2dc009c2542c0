package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"salon-booking-backend/controllers"
	"salon-booking-backend/events"
	"salon-booking-backend/gateway"
	"salon-booking-backend/logger"
	"salon-booking-backend/repository"
	"salon-booking-backend/services"
	"salon-booking-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAPIKey   = "relay-key"
	sigHeader    = "X-Test-Signature"
	validSig     = "ok"
	testCurrency = "ZAR"
)

type stubGateway struct {
	verified map[string]*gateway.Transaction
}

func (g *stubGateway) Name() string { return "stub" }

func (g *stubGateway) InitializeTransaction(ctx context.Context, req gateway.InitializeRequest) (*gateway.Authorization, error) {
	return &gateway.Authorization{AuthorizationURL: "https://pay.example/" + req.Reference, Reference: req.Reference}, nil
}

func (g *stubGateway) VerifyTransaction(ctx context.Context, reference string) (*gateway.Transaction, error) {
	if tx, ok := g.verified[reference]; ok {
		return tx, nil
	}
	return nil, errors.New("unknown reference")
}

func (g *stubGateway) ParseWebhook(header http.Header, body []byte) (*gateway.WebhookEvent, error) {
	if header.Get(sigHeader) != validSig {
		return nil, gateway.ErrInvalidSignature
	}
	var tx gateway.Transaction
	if err := json.Unmarshal(body, &tx); err != nil {
		return nil, err
	}
	return &gateway.WebhookEvent{Type: "charge.success", Transaction: tx}, nil
}

type stubMessenger struct {
	fail bool
}

func (m *stubMessenger) Send(ctx context.Context, channel, to, body string) (string, error) {
	if m.fail {
		return "", errors.New("twilio down")
	}
	return "SM1", nil
}

type testServer struct {
	engine    *gin.Engine
	store     *repository.MemoryStore
	gateway   *stubGateway
	messenger *stubMessenger
	auth      *services.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewNop()
	store := repository.NewMemoryStore()
	gw := &stubGateway{verified: map[string]*gateway.Transaction{}}
	messenger := &stubMessenger{}
	publisher := events.NewLogPublisher(log)
	tokens := utils.NewTokenIssuer("test-secret", time.Hour)

	notifier := services.NewNotificationService(messenger, "+27794380103", "27", log)
	bookings := services.NewBookingService(store.Bookings(), gw, notifier, publisher, services.BookingConfig{
		Currency:       testCurrency,
		DepositPercent: 45,
		CountryCode:    "27",
		Location:       time.UTC,
	}, log)
	reminders := services.NewReminderService(store.Bookings(), store.ReminderLogs(), notifier, publisher, services.ReminderConfig{}, log)
	admin := services.NewAdminService(store.Bookings(), time.UTC, log)
	auth := services.NewAuthService(store.Admins(), tokens, log)

	engine := SetupRouter(Dependencies{
		Logger:         log,
		AllowedOrigins: []string{"http://localhost:3000"},
		Tokens:         tokens,
		Bookings:       controllers.NewBookingController(bookings),
		Webhooks:       controllers.NewWebhookController(bookings),
		Admin:          controllers.NewAdminController(admin, bookings, reminders),
		Auth:           controllers.NewAuthController(auth, tokens),
		Config: controllers.NewConfigController(controllers.ClientConfig{
			SalonName:       "Test Salon",
			PaymentProvider: "paystack",
			PublicKey:       "pk_test",
			Currency:        testCurrency,
			DepositPercent:  45,
		}),
		Messages: controllers.NewMessageController(notifier, testAPIKey),
	})

	return &testServer{engine: engine, store: store, gateway: gw, messenger: messenger, auth: auth}
}

func (s *testServer) do(method, path string, body interface{}, header http.Header) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case []byte:
			buf.Write(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func bookingRequest() map[string]interface{} {
	return map[string]interface{}{
		"style":        "Knotless braids",
		"length":       "Long",
		"price":        500,
		"clientName":   "Jane",
		"clientPhone":  "082 123 4567",
		"clientEmail":  "jane@example.com",
		"date":         "2030-05-01",
		"time":         "14:00",
		"method":       "sms",
		"timeEstimate": "4-6 hours",
	}
}

func (s *testServer) createBooking(t *testing.T) (string, string) {
	t.Helper()
	w := s.do(http.MethodPost, "/api/bookings", bookingRequest(), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	out := decode(t, w)
	return out["bookingId"].(string), out["reference"].(string)
}

func signed() http.Header {
	h := http.Header{}
	h.Set(sigHeader, validSig)
	return h
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", nil, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/metrics", nil, nil).Code)
}

func TestCreateBookingEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/bookings", bookingRequest(), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, 225.0, out["deposit"])
	assert.NotEmpty(t, out["authorizationUrl"])

	bad := bookingRequest()
	bad["clientEmail"] = "nope"
	w = s.do(http.MethodPost, "/api/bookings", bad, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["fields"], "clientEmail")

	w = s.do(http.MethodPost, "/api/bookings", []byte("{"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookEndpoint(t *testing.T) {
	s := newTestServer(t)
	id, ref := s.createBooking(t)
	payload := gateway.Transaction{Reference: ref, Successful: true, Status: "success", Amount: 225, BookingID: id}

	w := s.do(http.MethodPost, "/api/payments/webhook", payload, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	b, err := s.store.Bookings().FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Unpaid", string(b.PaymentStatus))

	w = s.do(http.MethodPost, "/api/payments/webhook", payload, signed())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["applied"])

	w = s.do(http.MethodPost, "/api/payments/webhook", payload, signed())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["applied"])

	b, err = s.store.Bookings().FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Deposit Paid", string(b.PaymentStatus))
	assert.Equal(t, 225.0, b.DepositPaid)

	missing := payload
	missing.BookingID = ""
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/payments/webhook", missing, signed()).Code)

	unknown := payload
	unknown.BookingID = "does-not-exist"
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/payments/webhook", unknown, signed()).Code)

	ignored := payload
	ignored.Successful = false
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/payments/webhook", ignored, signed()).Code)
}

func TestVerifyEndpoint(t *testing.T) {
	s := newTestServer(t)
	id, ref := s.createBooking(t)

	s.gateway.verified["failed"] = &gateway.Transaction{Reference: "failed", Status: "failed"}
	s.gateway.verified["short"] = &gateway.Transaction{Reference: "short", Status: "success", Successful: true, Amount: 50}
	s.gateway.verified[ref] = &gateway.Transaction{Reference: ref, Status: "success", Successful: true, Amount: 225, BookingID: id}

	path := "/api/bookings/" + id + "/verify"
	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, path, map[string]string{"reference": "failed"}, nil).Code)
	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, path, map[string]string{"reference": "short"}, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, path, map[string]string{}, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/bookings/nope/verify", map[string]string{"reference": ref}, nil).Code)
	assert.Equal(t, http.StatusInternalServerError, s.do(http.MethodPost, path, map[string]string{"reference": "unknown"}, nil).Code)

	w := s.do(http.MethodPost, path, map[string]string{"reference": ref}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	booking := decode(t, w)["booking"].(map[string]interface{})
	assert.Equal(t, "Deposit Paid", booking["paymentStatus"])
	assert.Equal(t, "Accepted", booking["status"])
}

func TestConfigEndpoint(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/api/config", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	out := decode(t, w)
	assert.Equal(t, "Test Salon", out["salonName"])
	assert.Equal(t, "pk_test", out["publicKey"])
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestMessageRelay(t *testing.T) {
	s := newTestServer(t)
	msg := map[string]string{"phone": "0821234567", "message": "hello"}

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/messages", msg, nil).Code)

	h := http.Header{}
	h.Set("X-API-Key", "wrong")
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/messages", msg, h).Code)

	h.Set("X-API-Key", testAPIKey)
	w := s.do(http.MethodPost, "/api/messages", msg, h)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "SM1", decode(t, w)["sid"])

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/messages", map[string]string{"phone": "0821234567"}, h).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/messages", map[string]string{"phone": "0821234567", "message": "x", "channel": "fax"}, h).Code)

	s.messenger.fail = true
	assert.Equal(t, http.StatusInternalServerError, s.do(http.MethodPost, "/api/messages", msg, h).Code)
}

func TestAdminEndpointsRequireAuth(t *testing.T) {
	s := newTestServer(t)
	id, _ := s.createBooking(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/admin/bookings", nil, nil).Code)

	h := http.Header{}
	h.Set("Authorization", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/admin/bookings", nil, h).Code)

	_, _, err := s.auth.MakeAdmin(context.Background(), "owner@salon.co", "Owner", "password123")
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized,
		s.do(http.MethodPost, "/auth/login", map[string]string{"email": "owner@salon.co", "password": "nope"}, nil).Code)

	w := s.do(http.MethodPost, "/auth/login", map[string]string{"email": "owner@salon.co", "password": "password123"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := decode(t, w)["token"].(string)

	h.Set("Authorization", "Bearer "+token)
	w = s.do(http.MethodGet, "/admin/bookings", nil, h)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decode(t, w)["count"])

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/admin/bookings/"+id, nil, h).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/admin/bookings/missing", nil, h).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/admin/bookings/"+id+"/reminders", nil, h).Code)

	w = s.do(http.MethodGet, "/admin/reports/daily", nil, h)
	require.Equal(t, http.StatusOK, w.Code)
	totals := decode(t, w)["totals"].(map[string]interface{})
	assert.Equal(t, 6.0, totals["estimatedHours"])
	assert.Equal(t, 500.0, totals["revenue"])

	w = s.do(http.MethodPost, "/admin/maintenance/normalize?dryRun=true", nil, h)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["dryRun"])

	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/admin/reminders/sweep", nil, h).Code)

	cookieReq := http.Header{}
	cookieReq.Set("Cookie", utils.TokenCookie+"="+token)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/auth/me", nil, cookieReq).Code)
}
