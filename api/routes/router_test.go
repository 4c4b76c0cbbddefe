package routes

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/encamino/encamino-backend/internal/authz"
	"github.com/encamino/encamino-backend/internal/deliveries"
	"github.com/encamino/encamino-backend/internal/orders"
	"github.com/encamino/encamino-backend/internal/payments"
	pkgAuth "github.com/encamino/encamino-backend/pkg/auth"
	"github.com/encamino/encamino-backend/pkg/config"
	"github.com/encamino/encamino-backend/pkg/culqi"
	"github.com/encamino/encamino-backend/pkg/db/models"
	"github.com/encamino/encamino-backend/pkg/enums"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubOrdersService struct {
	order *models.Order
}

func (s *stubOrdersService) Create(context.Context, orders.CreateInput) (*models.Order, error) {
	return s.order, nil
}

func (s *stubOrdersService) Get(context.Context, authz.Actor, uuid.UUID) (*models.Order, error) {
	return s.order, nil
}

func (s *stubOrdersService) GetByTrackingNumber(context.Context, authz.Actor, string) (*models.Order, error) {
	return s.order, nil
}

func (s *stubOrdersService) ListForBuyer(context.Context, authz.Actor, uuid.UUID) ([]models.Order, error) {
	return []models.Order{*s.order}, nil
}

func (s *stubOrdersService) UpdateDeliveryLocation(context.Context, orders.UpdateDeliveryLocationInput) (*models.Order, error) {
	return s.order, nil
}

func (s *stubOrdersService) ApplyEvent(context.Context, orders.ApplyEventInput) (*models.Order, error) {
	return s.order, nil
}

func (s *stubOrdersService) ApplyEventInTx(context.Context, *gorm.DB, orders.ApplyEventInput) (*models.Order, error) {
	return s.order, nil
}

func (s *stubOrdersService) MarkRefundedInTx(context.Context, *gorm.DB, uuid.UUID, string) error {
	return nil
}

type stubPaymentsService struct {
	payment *models.Payment
}

func (s *stubPaymentsService) Initiate(context.Context, payments.InitiateInput) (*models.Payment, error) {
	return s.payment, nil
}

func (s *stubPaymentsService) Reconcile(context.Context, string, string) error { return nil }

func (s *stubPaymentsService) SubmitManualProof(context.Context, payments.ProofInput) (*models.Payment, error) {
	return s.payment, nil
}

func (s *stubPaymentsService) ReviewManualProof(context.Context, payments.ReviewInput) (*models.Payment, error) {
	return s.payment, nil
}

func (s *stubPaymentsService) Refund(context.Context, payments.RefundInput) (*models.Payment, error) {
	return s.payment, nil
}

func (s *stubPaymentsService) Get(context.Context, authz.Actor, uuid.UUID) (*models.Payment, error) {
	return s.payment, nil
}

type stubDeliveriesService struct {
	order   *models.Order
	shipper *models.Shipper
}

func (s *stubDeliveriesService) RegisterShipper(context.Context, deliveries.RegisterShipperInput) (*models.Shipper, error) {
	return s.shipper, nil
}

func (s *stubDeliveriesService) RegisterPoint(context.Context, deliveries.RegisterPointInput) (*models.DeliveryPoint, error) {
	return &models.DeliveryPoint{ID: uuid.New(), Name: "punto centro"}, nil
}

func (s *stubDeliveriesService) Assign(context.Context, deliveries.AssignInput) (*models.Order, error) {
	return s.order, nil
}

func (s *stubDeliveriesService) RecordLocation(context.Context, deliveries.LocationInput) (int, error) {
	return 1, nil
}

func (s *stubDeliveriesService) ShipperOrders(context.Context, authz.Actor, uuid.UUID) ([]models.Order, error) {
	return []models.Order{*s.order}, nil
}

func (s *stubDeliveriesService) SetAvailability(context.Context, authz.Actor, uuid.UUID, enums.AvailabilityStatus) error {
	return nil
}

type stubWebhookService struct {
	calls int
}

func (s *stubWebhookService) HandleEvent(context.Context, []byte) error {
	s.calls++
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "8080"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "encamino", ExpirationMinutes: 60},
	}
}

func testOrder() *models.Order {
	return &models.Order{
		ID:             uuid.New(),
		BuyerID:        uuid.New(),
		StoreID:        uuid.New(),
		Status:         enums.OrderStatusPending,
		Currency:       enums.CurrencyPEN,
		TotalPrice:     decimal.RequireFromString("40.00"),
		TrackingNumber: "TRK-20260830120000-ABCDEF",
	}
}

func newTestRouter(t *testing.T, webhookSvc *stubWebhookService) http.Handler {
	t.Helper()
	culqiClient, err := culqi.NewClient(config.CulqiConfig{SecretKey: "sk_test", WebhookSecret: "whsec_test"})
	if err != nil {
		t.Fatalf("culqi client: %v", err)
	}
	return NewRouter(
		testConfig(),
		nil,
		stubPinger{},
		nil,
		nil,
		&stubOrdersService{order: testOrder()},
		&stubPaymentsService{payment: &models.Payment{
			ID:       uuid.New(),
			OrderID:  uuid.New(),
			Method:   enums.PaymentMethodCard,
			Status:   enums.PaymentStatusSucceeded,
			Amount:   decimal.RequireFromString("40.00"),
			Currency: enums.CurrencyPEN,
		}},
		&stubDeliveriesService{order: testOrder(), shipper: &models.Shipper{
			ID:          uuid.New(),
			VehicleType: enums.VehicleTypeMotorcycle,
		}},
		culqiClient,
		webhookSvc,
	)
}

func bearerToken(t *testing.T, role enums.ActorRole) string {
	t.Helper()
	cfg := testConfig()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthEndpointsArePublic(t *testing.T) {
	router := newTestRouter(t, &stubWebhookService{})

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d (%s)", path, rec.Code, rec.Body.String())
		}
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t, &stubWebhookService{})

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/orders"},
		{http.MethodPost, "/api/v1/orders"},
		{http.MethodPost, "/api/v1/payments"},
		{http.MethodPost, "/api/v1/orders/assign"},
	}
	for _, p := range paths {
		req := httptest.NewRequest(p.method, p.path, bytes.NewReader([]byte(`{}`)))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 got %d", p.method, p.path, rec.Code)
		}
	}
}

func TestOrderListWithToken(t *testing.T) {
	router := newTestRouter(t, &stubWebhookService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", bearerToken(t, enums.ActorRoleBuyer))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data []orders.OrderView `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 1 {
		t.Fatalf("expected one order, got %d", len(envelope.Data))
	}
}

func TestPaymentReviewRequiresAdminRole(t *testing.T) {
	router := newTestRouter(t, &stubWebhookService{})

	body := []byte(`{"approve":true}`)
	target := "/api/v1/payments/" + uuid.NewString() + "/review"

	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, enums.ActorRoleBuyer))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("buyer: expected 403 got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, enums.ActorRoleAdmin))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestPaymentRefundRequiresAdminRole(t *testing.T) {
	router := newTestRouter(t, &stubWebhookService{})

	body := []byte(`{"reason":"damaged goods"}`)
	target := "/api/v1/payments/" + uuid.NewString() + "/refund"

	for _, role := range []enums.ActorRole{enums.ActorRoleBuyer, enums.ActorRoleStoreOwner} {
		req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
		req.Header.Set("Authorization", bearerToken(t, role))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s: expected 403 got %d", role, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, enums.ActorRoleAdmin))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestCulqiWebhookRouteVerifiesSignature(t *testing.T) {
	webhookSvc := &stubWebhookService{}
	router := newTestRouter(t, webhookSvc)

	body := []byte(`{"object":"Charge","data":{"object":{"id":"chr_1","action":"charge.succeeded"}}}`)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/culqi", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unsigned: expected 401 got %d", rec.Code)
	}
	if webhookSvc.calls != 0 {
		t.Fatal("unsigned payload reached the webhook service")
	}

	mac := hmac.New(sha256.New, []byte("whsec_test"))
	mac.Write(body)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/culqi", bytes.NewReader(body))
	req.Header.Set("X-Culqi-Signature", hex.EncodeToString(mac.Sum(nil)))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("signed: expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if webhookSvc.calls != 1 {
		t.Fatalf("expected one webhook call, got %d", webhookSvc.calls)
	}
}
