package order_api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ms-canteen/internal/auth"
	"ms-canteen/internal/availability"
	"ms-canteen/internal/logger"
	"ms-canteen/internal/models"
	"ms-canteen/internal/order"
	"ms-canteen/internal/order/db"
	"ms-canteen/internal/order/order_api"
	orderredis "ms-canteen/internal/order/redis"
	"ms-canteen/internal/slots"
	"ms-canteen/internal/vendor"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type nopNotifier struct{}

func (nopNotifier) OrderAdmitted(ctx context.Context, o models.Order)                      {}
func (nopNotifier) OrderStatusChanged(ctx context.Context, o models.Order, message string) {}
func (nopNotifier) SlotConfigUpdated(ctx context.Context, vendorID string, ev models.SlotConfigUpdatedEvent) {
}

type pathArtifact struct{}

func (pathArtifact) Generate(orderNumber, orderID string) (string, error) {
	return "static/qrcodes/qr_" + orderNumber + ".png", nil
}

type testEnv struct {
	handler *order_api.Handler
	db      *db.DB
	router  *chi.Mux
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { sqldb.Close() })

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Vendor)(nil),
		(*models.MenuItem)(nil),
		(*models.Order)(nil),
		(*models.OrderItem)(nil),
	} {
		require.NoError(t, bunDB.ResetModel(ctx, model))
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	gen := slots.NewGenerator(func() time.Time {
		return time.Date(2025, 3, 10, 10, 3, 0, 0, time.UTC)
	})
	log := logger.NewLogger()

	dbLayer := &db.DB{Bun: bunDB}
	lock := orderredis.NewSlotLock(client, 5*time.Second)
	orderSvc := order.NewOrderService(dbLayer, lock, nil, pathArtifact{}, nopNotifier{}, gen, "inr", log)
	vendorSvc := vendor.NewService(dbLayer, nopNotifier{}, log)
	calc := availability.NewCalculator(dbLayer, dbLayer, gen)

	h := order_api.NewHandler(orderSvc, vendorSvc, calc, log)

	r := chi.NewRouter()
	r.Post("/api/checkout", h.Checkout)
	r.Get("/api/slots/availability", h.SlotAvailability)
	r.Post("/api/payment-success", h.PaymentSuccess)
	r.Get("/api/orders/{orderId}", h.GetOrder)
	r.Get("/api/orders", h.MyOrders)
	r.Post("/api/vendor/slot-config", h.UpdateSlotConfig)
	r.Get("/api/vendor/slot-utilization", h.SlotUtilization)
	r.Post("/api/vendor/menu/{itemId}/toggle", h.ToggleMenuItem)
	r.Get("/api/vendor/orders", h.VendorOrders)
	r.Post("/api/vendor/orders/status", h.UpdateOrderStatus)
	r.Post("/api/vendor/orders/redeem", h.RedeemOrder)
	r.Post("/api/vendor/orders/scan", h.ScanOrder)

	env := &testEnv{handler: h, db: dbLayer, router: r}
	env.seed(t)
	return env
}

func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	v := models.Vendor{ID: "vendor-1", Name: "Campus Canteen", IsOpen: true, CreatedAt: time.Now()}
	_, err := e.db.Bun.NewInsert().Model(&v).Exec(ctx)
	require.NoError(t, err)

	items := []models.MenuItem{
		{ID: "item-1", VendorID: "vendor-1", Name: "Masala Dosa", Price: 60, IsAvailable: true},
		{ID: "item-2", VendorID: "vendor-1", Name: "Filter Coffee", Price: 25, IsAvailable: true},
	}
	_, err = e.db.Bun.NewInsert().Model(&items).Exec(ctx)
	require.NoError(t, err)
}

func (e *testEnv) request(t *testing.T, principal *auth.Principal, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if principal != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), *principal))
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func student(id string) *auth.Principal {
	return &auth.Principal{UserID: id, Role: auth.RoleStudent}
}

func vendorPrincipal(id string) *auth.Principal {
	return &auth.Principal{UserID: id, Role: auth.RoleVendor}
}

func TestCheckoutCreatesOrder(t *testing.T) {
	env := setupEnv(t)

	rec := env.request(t, student("student-1"), http.MethodPost, "/api/checkout", map[string]interface{}{
		"items":          []map[string]interface{}{{"menu_item_id": "item-1", "quantity": 2}},
		"pickup_time":    "10:30",
		"payment_method": "cod",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var placed models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &placed))
	assert.Equal(t, "student-1", placed.StudentID)
	assert.Equal(t, 120.0, placed.TotalAmount)
	assert.Contains(t, placed.OrderNumber, "ORD20250310")
}

func TestCheckoutRequiresPrincipal(t *testing.T) {
	env := setupEnv(t)

	rec := env.request(t, nil, http.MethodPost, "/api/checkout", map[string]interface{}{
		"items": []map[string]interface{}{{"menu_item_id": "item-1", "quantity": 1}},
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckoutEmptyCartRejected(t *testing.T) {
	env := setupEnv(t)

	rec := env.request(t, student("student-1"), http.MethodPost, "/api/checkout", map[string]interface{}{
		"items":          []map[string]interface{}{},
		"pickup_time":    "10:30",
		"payment_method": "cod",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutFullSlotConflicts(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	// Close the slot down to a single admission.
	v, err := env.db.GetVendor(ctx, "vendor-1")
	require.NoError(t, err)
	one := 1
	v.SlotConfig = models.SlotConfig{}
	v.SlotConfig.Merge("10:30", &one, nil)
	require.NoError(t, env.db.UpdateVendorSlotConfig(ctx, *v))

	body := map[string]interface{}{
		"items":          []map[string]interface{}{{"menu_item_id": "item-1", "quantity": 1}},
		"pickup_time":    "10:30",
		"payment_method": "cod",
	}
	rec := env.request(t, student("student-a"), http.MethodPost, "/api/checkout", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.request(t, student("student-b"), http.MethodPost, "/api/checkout", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSlotAvailabilityEndpoint(t *testing.T) {
	env := setupEnv(t)

	rec := env.request(t, student("student-1"), http.MethodGet, "/api/slots/availability?vendor_id=vendor-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Len(t, snapshot, 7)
	assert.Contains(t, snapshot, "10:10")
	assert.Contains(t, snapshot, "11:10")
}

func TestSlotAvailabilityRequiresVendorID(t *testing.T) {
	env := setupEnv(t)

	rec := env.request(t, student("student-1"), http.MethodGet, "/api/slots/availability", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateSlotConfigEndpoint(t *testing.T) {
	env := setupEnv(t)

	five := 5
	rec := env.request(t, vendorPrincipal("vendor-1"), http.MethodPost, "/api/vendor/slot-config", order_api.SlotConfigRequest{
		SlotTime: "10:30",
		Capacity: &five,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		SlotTime string `json:"slot_time"`
		Capacity int    `json:"capacity"`
		Blackout bool   `json:"blackout"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Capacity)
	assert.False(t, resp.Blackout)
}

func TestUpdateSlotConfigRejectsBadLabel(t *testing.T) {
	env := setupEnv(t)

	five := 5
	rec := env.request(t, vendorPrincipal("vendor-1"), http.MethodPost, "/api/vendor/slot-config", order_api.SlotConfigRequest{
		SlotTime: "half past ten",
		Capacity: &five,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	env := setupEnv(t)

	rec := env.request(t, student("student-1"), http.MethodPost, "/api/checkout", map[string]interface{}{
		"items":          []map[string]interface{}{{"menu_item_id": "item-2", "quantity": 1}},
		"pickup_time":    "10:40",
		"payment_method": "cod",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var placed models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &placed))

	// Vendor confirms, then readies the order.
	rec = env.request(t, vendorPrincipal("vendor-1"), http.MethodPost, "/api/vendor/orders/status", order_api.StatusUpdateRequest{
		OrderID: placed.ID,
		Status:  models.StatusReady,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Backwards transition is rejected.
	rec = env.request(t, vendorPrincipal("vendor-1"), http.MethodPost, "/api/vendor/orders/status", order_api.StatusUpdateRequest{
		OrderID: placed.ID,
		Status:  models.StatusPreparing,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Manual redemption at the counter.
	rec = env.request(t, vendorPrincipal("vendor-1"), http.MethodPost, "/api/vendor/orders/redeem", order_api.RedeemRequest{
		OrderNumber: placed.OrderNumber,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var redeemed models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &redeemed))
	assert.Equal(t, models.StatusPickedUp, redeemed.OrderStatus)

	// Scanning the same order again conflicts.
	rec = env.request(t, vendorPrincipal("vendor-1"), http.MethodPost, "/api/vendor/orders/scan", order_api.ScanRequest{
		QRData: placed.OrderNumber + "|" + placed.ID,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRedeemByWrongVendorForbidden(t *testing.T) {
	env := setupEnv(t)

	rec := env.request(t, student("student-1"), http.MethodPost, "/api/checkout", map[string]interface{}{
		"items":          []map[string]interface{}{{"menu_item_id": "item-1", "quantity": 1}},
		"pickup_time":    "10:30",
		"payment_method": "cod",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var placed models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &placed))

	rec = env.request(t, vendorPrincipal("vendor-2"), http.MethodPost, "/api/vendor/orders/redeem", order_api.RedeemRequest{
		OrderNumber: placed.OrderNumber,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRedeemUnknownOrderNotFound(t *testing.T) {
	env := setupEnv(t)

	rec := env.request(t, vendorPrincipal("vendor-1"), http.MethodPost, "/api/vendor/orders/redeem", order_api.RedeemRequest{
		OrderNumber: "ORD20250310999999XXXX",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrderReturnsOwnOrder(t *testing.T) {
	env := setupEnv(t)

	rec := env.request(t, student("student-1"), http.MethodPost, "/api/checkout", map[string]interface{}{
		"items":          []map[string]interface{}{{"menu_item_id": "item-1", "quantity": 1}},
		"pickup_time":    "10:30",
		"payment_method": "cod",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var placed models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &placed))

	rec = env.request(t, student("student-1"), http.MethodGet, "/api/orders/"+placed.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.OrderWithItems
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, placed.OrderNumber, got.Order.OrderNumber)
	assert.Len(t, got.Items, 1)
}

func TestGetOrderOtherStudentForbidden(t *testing.T) {
	env := setupEnv(t)

	rec := env.request(t, student("student-1"), http.MethodPost, "/api/checkout", map[string]interface{}{
		"items":          []map[string]interface{}{{"menu_item_id": "item-1", "quantity": 1}},
		"pickup_time":    "10:30",
		"payment_method": "cod",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var placed models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &placed))

	rec = env.request(t, student("student-999"), http.MethodGet, "/api/orders/"+placed.ID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestVendorOrdersEndpoint(t *testing.T) {
	env := setupEnv(t)

	rec := env.request(t, student("student-1"), http.MethodPost, "/api/checkout", map[string]interface{}{
		"items":          []map[string]interface{}{{"menu_item_id": "item-1", "quantity": 1}},
		"pickup_time":    "10:30",
		"payment_method": "cod",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.request(t, vendorPrincipal("vendor-1"), http.MethodGet, "/api/vendor/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var orders []models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, "student-1", orders[0].StudentID)

	rec = env.request(t, vendorPrincipal("vendor-2"), http.MethodGet, "/api/vendor/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	assert.Empty(t, orders)
}

func TestToggleMenuItemEndpoint(t *testing.T) {
	env := setupEnv(t)

	rec := env.request(t, vendorPrincipal("vendor-1"), http.MethodPost, "/api/vendor/menu/item-1/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var item models.MenuItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.False(t, item.IsAvailable)

	// A disabled item can no longer be ordered.
	rec = env.request(t, student("student-1"), http.MethodPost, "/api/checkout", map[string]interface{}{
		"items":          []map[string]interface{}{{"menu_item_id": "item-1", "quantity": 1}},
		"pickup_time":    "10:30",
		"payment_method": "cod",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Another vendor cannot toggle it.
	rec = env.request(t, vendorPrincipal("vendor-2"), http.MethodPost, "/api/vendor/menu/item-1/toggle", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMyOrdersEndpoint(t *testing.T) {
	env := setupEnv(t)

	rec := env.request(t, student("student-1"), http.MethodPost, "/api/checkout", map[string]interface{}{
		"items":          []map[string]interface{}{{"menu_item_id": "item-1", "quantity": 1}},
		"pickup_time":    "10:30",
		"payment_method": "cod",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.request(t, student("student-1"), http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var orders []models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	assert.Len(t, orders, 1)

	rec = env.request(t, student("student-2"), http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	assert.Empty(t, orders)
}

func TestSlotUtilizationEndpoint(t *testing.T) {
	env := setupEnv(t)

	rec := env.request(t, student("student-1"), http.MethodPost, "/api/checkout", map[string]interface{}{
		"items":          []map[string]interface{}{{"menu_item_id": "item-1", "quantity": 1}},
		"pickup_time":    "10:30",
		"payment_method": "cod",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.request(t, vendorPrincipal("vendor-1"), http.MethodGet, "/api/vendor/slot-utilization", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Summary models.SlotUtilization         `json:"summary"`
		Slots   []models.SlotUtilizationDetail `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Summary.Booked)
	assert.Equal(t, 7*models.DefaultSlotCapacity, resp.Summary.Total)
	assert.Len(t, resp.Slots, 7)
}
