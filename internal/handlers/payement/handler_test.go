package payement_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"maelio_back_end/internal/engine"
	"maelio_back_end/internal/gateway"
	"maelio_back_end/internal/handlers/payement"
	"maelio_back_end/internal/models"
	"maelio_back_end/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKeySecret     = "test_key_secret"
	testWebhookSecret = "test_webhook_secret"
)

// =============================================
// FAKES
// =============================================

type memStore struct {
	mu        sync.Mutex
	orders    map[gocql.UUID]*models.Order
	byRemote  map[string]gocql.UUID
	byPayment map[string]gocql.UUID
	notes     map[gocql.UUID][]models.OrderNote
}

func newMemStore() *memStore {
	return &memStore{
		orders:    make(map[gocql.UUID]*models.Order),
		byRemote:  make(map[string]gocql.UUID),
		byPayment: make(map[string]gocql.UUID),
		notes:     make(map[gocql.UUID][]models.OrderNote),
	}
}

func (s *memStore) Insert(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.orders[o.ID] = &cp
	s.byRemote[o.RemoteOrderID] = o.ID
	if o.PaymentID != "" {
		s.byPayment[o.PaymentID] = o.ID
	}
	return nil
}

func (s *memStore) GetByID(_ context.Context, id gocql.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *memStore) GetByRemoteOrderID(ctx context.Context, remoteOrderID string) (*models.Order, error) {
	s.mu.Lock()
	id, ok := s.byRemote[remoteOrderID]
	s.mu.Unlock()
	if !ok {
		return nil, models.ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *memStore) GetByPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	s.mu.Lock()
	id, ok := s.byPayment[paymentID]
	s.mu.Unlock()
	if !ok {
		return nil, models.ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *memStore) List(_ context.Context, limit int) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if len(out) >= limit {
			break
		}
		out = append(out, *o)
	}
	return out, nil
}

func (s *memStore) ApplyTransition(_ context.Context, id gocql.UUID, from, to models.StatusPair, upd store.TransitionUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return false, models.ErrNotFound
	}
	if o.Pair() != from {
		return false, nil
	}
	o.PaymentStatus = to.Payment
	o.Status = to.Order
	if upd.PaymentID != "" {
		o.PaymentID = upd.PaymentID
		s.byPayment[upd.PaymentID] = id
	}
	if upd.Shipping != nil {
		o.Shipping = *upd.Shipping
	}
	return true, nil
}

func (s *memStore) AppendNote(_ context.Context, orderID gocql.UUID, author, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[orderID] = append(s.notes[orderID], models.OrderNote{
		ID: gocql.TimeUUID(), Author: author, Content: content, CreatedAt: time.Now(),
	})
	return nil
}

func (s *memStore) Notes(_ context.Context, orderID gocql.UUID) ([]models.OrderNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.OrderNote(nil), s.notes[orderID]...), nil
}

type fakeGateway struct {
	mu      sync.Mutex
	refunds int
}

func (g *fakeGateway) CreateOrder(context.Context, int64, string, string, map[string]interface{}) (*gateway.RemoteOrder, error) {
	return &gateway.RemoteOrder{ID: "order_handler_test"}, nil
}

func (g *fakeGateway) FetchPayment(_ context.Context, paymentID string) (*gateway.PaymentSnapshot, error) {
	return &gateway.PaymentSnapshot{ID: paymentID, Status: "captured"}, nil
}

func (g *fakeGateway) CreateRefund(_ context.Context, _ string, amountPaise int64, _ string) (*gateway.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds++
	return &gateway.RefundResult{ID: "rfnd_handler", Amount: amountPaise, Status: "processed"}, nil
}

func (g *fakeGateway) refundCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refunds
}

type noopNotifier struct{}

func (noopNotifier) PaymentSuccess(*models.Order) error { return nil }
func (noopNotifier) OrderShipped(*models.Order) error   { return nil }
func (noopNotifier) OrderDelivered(*models.Order) error { return nil }

type memAnomalies struct {
	mu      sync.Mutex
	entries []store.Anomaly
}

func (a *memAnomalies) Record(_ context.Context, kind, detail string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, store.Anomaly{Kind: kind, Detail: detail, RecordedAt: time.Now()})
}

func (a *memAnomalies) Recent(_ context.Context, n int64) ([]store.Anomaly, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if int64(len(a.entries)) < n {
		n = int64(len(a.entries))
	}
	return append([]store.Anomaly(nil), a.entries[:n]...), nil
}

func (a *memAnomalies) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// =============================================
// FIXTURE
// =============================================

type fixture struct {
	router    *gin.Engine
	store     *memStore
	gateway   *fakeGateway
	anomalies *memAnomalies
}

func newFixture() *fixture {
	gin.SetMode(gin.TestMode)

	st := newMemStore()
	gw := &fakeGateway{}
	an := &memAnomalies{}
	eng := engine.New(st, gw, noopNotifier{}, an, testKeySecret)
	h := payement.NewHandler(eng, an, testWebhookSecret)

	r := gin.New()
	r.POST("/api/orders/verify", h.VerifyPayment)
	r.POST("/api/webhook/razorpay", h.RazorpayWebhook)
	r.GET("/api/admin/orders", h.GetAllOrders)
	r.GET("/api/admin/orders/:orderId", h.GetOrder)
	r.PUT("/api/admin/orders/:orderId/status", h.UpdateOrderStatus)
	r.POST("/api/admin/orders/:orderId/refund", h.RefundOrder)
	r.GET("/api/admin/anomalies", h.GetAnomalies)

	return &fixture{router: r, store: st, gateway: gw, anomalies: an}
}

// seedOrder insère directement une commande payée ou non dans le store
func (f *fixture) seedOrder(t *testing.T, payment models.PaymentStatus, status models.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:              gocql.TimeUUID(),
		OrderNumber:     "CMD-SEED01",
		RemoteOrderID:   "order_seed01",
		Customer:        models.Customer{Name: "Priya Patel", Email: "priya@example.com"},
		Items:           []models.OrderItem{{Name: "Article", Price: 900, Quantity: 1}},
		Subtotal:        900,
		ShippingCharges: 99,
		TaxAmount:       162,
		PaymentStatus:   payment,
		Status:          status,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	order.RecomputeTotal()
	if payment == models.PaymentSuccess {
		order.PaymentID = "pay_seed01"
	}
	require.NoError(t, f.store.Insert(context.Background(), order))
	return order
}

func (f *fixture) do(method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func webhookBody(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

// =============================================
// WEBHOOK
// =============================================

func TestWebhook_InvalidSignature(t *testing.T) {
	f := newFixture()
	body := []byte(`{"event":"payment.captured"}`)

	w := f.do(http.MethodPost, "/api/webhook/razorpay", body,
		map[string]string{"X-Razorpay-Signature": "deadbeef"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhook_MissingSignature(t *testing.T) {
	f := newFixture()
	body := []byte(`{"event":"payment.captured"}`)

	w := f.do(http.MethodPost, "/api/webhook/razorpay", body, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhook_UnknownEventAcknowledged(t *testing.T) {
	f := newFixture()
	body := webhookBody(t, gin.H{"event": "subscription.activated", "payload": gin.H{}})

	w := f.do(http.MethodPost, "/api/webhook/razorpay", body,
		map[string]string{"X-Razorpay-Signature": sign(body, testWebhookSecret)})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, f.anomalies.count())
}

func TestWebhook_CapturedTransitionsOrder(t *testing.T) {
	f := newFixture()
	order := f.seedOrder(t, models.PaymentPending, models.OrderPending)

	body := webhookBody(t, gin.H{
		"event": "payment.captured",
		"payload": gin.H{
			"payment": gin.H{"entity": gin.H{
				"id": "pay_wh01", "order_id": order.RemoteOrderID, "status": "captured",
			}},
		},
	})

	w := f.do(http.MethodPost, "/api/webhook/razorpay", body,
		map[string]string{"X-Razorpay-Signature": sign(body, testWebhookSecret)})

	require.Equal(t, http.StatusOK, w.Code)

	got, err := f.store.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, got.PaymentStatus)
	assert.Equal(t, models.OrderConfirmed, got.Status)
	assert.Equal(t, "pay_wh01", got.PaymentID)
}

func TestWebhook_RefundForUnknownPayment(t *testing.T) {
	f := newFixture()
	body := webhookBody(t, gin.H{
		"event": "refund.created",
		"payload": gin.H{
			"refund": gin.H{"entity": gin.H{"id": "rfnd_x", "payment_id": "pay_inconnu"}},
		},
	})

	w := f.do(http.MethodPost, "/api/webhook/razorpay", body,
		map[string]string{"X-Razorpay-Signature": sign(body, testWebhookSecret)})

	// Acquitté malgré tout, mais tracé
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.anomalies.count())
}

// =============================================
// VÉRIFICATION CLIENT
// =============================================

func TestVerifyPayment_Endpoint(t *testing.T) {
	f := newFixture()
	order := f.seedOrder(t, models.PaymentPending, models.OrderPending)

	body := webhookBody(t, gin.H{
		"razorpay_order_id":   order.RemoteOrderID,
		"razorpay_payment_id": "pay_ok01",
		"razorpay_signature":  sign([]byte(order.RemoteOrderID+"|pay_ok01"), testKeySecret),
	})

	w := f.do(http.MethodPost, "/api/orders/verify", body, nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success   bool   `json:"success"`
		PaymentID string `json:"payment_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "pay_ok01", resp.PaymentID)
}

func TestVerifyPayment_BadSignature(t *testing.T) {
	f := newFixture()
	order := f.seedOrder(t, models.PaymentPending, models.OrderPending)

	body := webhookBody(t, gin.H{
		"razorpay_order_id":   order.RemoteOrderID,
		"razorpay_payment_id": "pay_ok01",
		"razorpay_signature":  "0000000000000000",
	})

	w := f.do(http.MethodPost, "/api/orders/verify", body, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Statut inchangé
	got, _ := f.store.GetByID(context.Background(), order.ID)
	assert.Equal(t, models.PaymentPending, got.PaymentStatus)
}

func TestVerifyPayment_MissingFields(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodPost, "/api/orders/verify", []byte(`{"razorpay_order_id":"x"}`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// =============================================
// ADMIN
// =============================================

func TestUpdateStatus_ShippedRequiresTracking(t *testing.T) {
	f := newFixture()
	order := f.seedOrder(t, models.PaymentSuccess, models.OrderConfirmed)

	body := []byte(`{"status":"shipped","carrier":"Delhivery"}`)
	w := f.do(http.MethodPut, "/api/admin/orders/"+order.ID.String()+"/status", body, nil)

	// Rejeté avant d'atteindre le moteur
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "suivi")

	got, _ := f.store.GetByID(context.Background(), order.ID)
	assert.Equal(t, models.OrderConfirmed, got.Status)
}

func TestUpdateStatus_Shipped(t *testing.T) {
	f := newFixture()
	order := f.seedOrder(t, models.PaymentSuccess, models.OrderConfirmed)

	body := []byte(`{"status":"shipped","tracking_number":"TRK42","carrier":"BlueDart"}`)
	w := f.do(http.MethodPut, "/api/admin/orders/"+order.ID.String()+"/status", body, nil)

	require.Equal(t, http.StatusOK, w.Code)

	got, _ := f.store.GetByID(context.Background(), order.ID)
	assert.Equal(t, models.OrderShipped, got.Status)
	assert.Equal(t, "TRK42", got.Shipping.TrackingNumber)
}

func TestUpdateStatus_InvalidForUnpaidOrder(t *testing.T) {
	f := newFixture()
	order := f.seedOrder(t, models.PaymentPending, models.OrderPending)

	body := []byte(`{"status":"shipped","tracking_number":"TRK42"}`)
	w := f.do(http.MethodPut, "/api/admin/orders/"+order.ID.String()+"/status", body, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateStatus_BadOrderID(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodPut, "/api/admin/orders/pas-un-uuid/status",
		[]byte(`{"status":"confirmed"}`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefund_FullAmount(t *testing.T) {
	f := newFixture()
	order := f.seedOrder(t, models.PaymentSuccess, models.OrderConfirmed)

	w := f.do(http.MethodPost, "/api/admin/orders/"+order.ID.String()+"/refund",
		[]byte(`{"reason":"article défectueux"}`), nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success  bool    `json:"success"`
		RefundID string  `json:"refund_id"`
		Amount   float64 `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "rfnd_handler", resp.RefundID)
	assert.Equal(t, order.TotalAmount, resp.Amount)

	got, _ := f.store.GetByID(context.Background(), order.ID)
	assert.Equal(t, models.PaymentRefunded, got.PaymentStatus)
	assert.Equal(t, models.OrderCancelled, got.Status)
}

func TestRefund_AmountTooLarge(t *testing.T) {
	f := newFixture()
	order := f.seedOrder(t, models.PaymentSuccess, models.OrderConfirmed)

	w := f.do(http.MethodPost, "/api/admin/orders/"+order.ID.String()+"/refund",
		[]byte(`{"amount":99999}`), nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 0, f.gateway.refundCount())
}

func TestRefund_UnpaidOrder(t *testing.T) {
	f := newFixture()
	order := f.seedOrder(t, models.PaymentPending, models.OrderPending)

	w := f.do(http.MethodPost, "/api/admin/orders/"+order.ID.String()+"/refund",
		[]byte(`{}`), nil)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodGet, "/api/admin/orders/"+gocql.TimeUUID().String(), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetOrder_WithNotes(t *testing.T) {
	f := newFixture()
	order := f.seedOrder(t, models.PaymentSuccess, models.OrderConfirmed)
	require.NoError(t, f.store.AppendNote(context.Background(), order.ID, "admin@maelio.shop", "Client appelé"))

	w := f.do(http.MethodGet, "/api/admin/orders/"+order.ID.String(), nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Client appelé")
	// Commande payée : l'état passerelle est joint à la réponse
	assert.Contains(t, w.Body.String(), "gateway_payment")
	assert.Contains(t, w.Body.String(), "pay_seed01")
}

func TestGetAnomalies(t *testing.T) {
	f := newFixture()
	f.anomalies.Record(context.Background(), "commande_introuvable", "test")

	w := f.do(http.MethodGet, "/api/admin/anomalies", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "commande_introuvable")
}
