package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"order-lifecycle-service/internal/dto"
	"order-lifecycle-service/internal/model"
	"order-lifecycle-service/internal/repository/memory"
	"order-lifecycle-service/internal/service"
)

type stubAuth map[string]*service.AuthUser

func (s stubAuth) ValidateToken(_ context.Context, token string) (*service.AuthUser, error) {
	if u, ok := s[token]; ok {
		return u, nil
	}
	return nil, service.ErrInvalidToken
}

type apiFixture struct {
	router  *gin.Engine
	store   *memory.Store
	buyer   model.User
	product model.Product
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	buyer := store.PutUser(model.User{Name: "Nguyen Van An", Phone: "0901234567"})
	product := store.PutProduct(model.Product{Name: "phone", Price: 250, CountInStock: 10, WarrantyPeriodMonths: 12})

	svc, err := service.NewOrderService(service.OrderServiceDeps{
		Orders:     store.Orders(),
		Products:   store.Products(),
		Warranties: store.Warranties(),
		Users:      store.Users(),
		Clock:      func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	auth := stubAuth{
		"buyer-token": {ID: buyer.ID.Hex(), Name: buyer.Name, Enabled: true},
		"admin-token": {ID: primitive.NewObjectID().Hex(), Name: "admin", Permissions: []string{service.PermissionAdmin}, Enabled: true},
	}
	router := NewRouter(NewOrderController(svc, zap.NewNop()), auth, zap.NewNop())
	return &apiFixture{router: router, store: store, buyer: buyer, product: product}
}

func (a *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *apiFixture) createOrder(t *testing.T) model.Order {
	t.Helper()
	w := a.do(t, http.MethodPost, "/orders", "buyer-token", gin.H{
		"orderItems":      []gin.H{{"product": a.product.ID.Hex(), "quantity": 2}},
		"shippingAddress": gin.H{"fullName": "Nguyen Van An", "phone": "0901234567", "address": "12 Le Loi", "city": "HCMC"},
		"paymentMethod":   model.PaymentCOD,
		"shippingPrice":   20,
		"totalPrice":      520,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var order model.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	return order
}

func TestHealthz(t *testing.T) {
	a := newAPI(t)
	w := a.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRequired(t *testing.T) {
	a := newAPI(t)
	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/orders/mine", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/orders/mine", "stolen", nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, "/admin/orders", "buyer-token", nil).Code)
}

func TestCreateOrderEndpoint(t *testing.T) {
	a := newAPI(t)
	order := a.createOrder(t)

	assert.Equal(t, model.StatusPending, order.Status)
	assert.Equal(t, a.buyer.ID, order.User.ID)
	assert.Equal(t, 520.0, order.TotalPrice)

	w := a.do(t, http.MethodPost, "/orders", "buyer-token", gin.H{"orderItems": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodGet, "/orders/mine", "buyer-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []model.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	assert.Len(t, mine, 1)
}

func TestAdminStatusFlow(t *testing.T) {
	a := newAPI(t)
	order := a.createOrder(t)
	path := "/admin/orders/" + order.ID.Hex() + "/status"

	for _, s := range []string{model.StatusProcessing, model.StatusShipping, model.StatusDelivered} {
		w := a.do(t, http.MethodPatch, path, "admin-token", dto.UpdateStatusRequest{Status: s})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := a.do(t, http.MethodPatch, path, "admin-token", dto.UpdateStatusRequest{Status: model.StatusShipping})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(t, http.MethodPatch, path, "admin-token", dto.UpdateStatusRequest{Status: "lost"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPatch, "/admin/orders/"+primitive.NewObjectID().Hex()+"/status", "admin-token",
		dto.UpdateStatusRequest{Status: model.StatusProcessing})
	assert.Equal(t, http.StatusNotFound, w.Code)

	p, _ := a.store.Product(a.product.ID)
	assert.Equal(t, 8, p.CountInStock)
	assert.Empty(t, a.store.WarrantyRecords())

	w = a.do(t, http.MethodPost, "/admin/orders/"+order.ID.Hex()+"/warranty", "admin-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, a.store.WarrantyRecords(), 1)

	w = a.do(t, http.MethodGet, "/orders/delivered", "buyer-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var delivered []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &delivered))
	require.Len(t, delivered, 1)
	items := delivered[0]["orderItems"].([]any)
	product := items[0].(map[string]any)["product"].(map[string]any)
	assert.Equal(t, "phone", product["name"])
}

func TestCustomerCancelAndConfirm(t *testing.T) {
	a := newAPI(t)
	order := a.createOrder(t)

	w := a.do(t, http.MethodPatch, "/orders/"+order.ID.Hex()+"/confirm-delivery", "buyer-token", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(t, http.MethodPatch, "/orders/"+primitive.NewObjectID().Hex()+"/cancel", "buyer-token", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), service.ErrOwnership.Error())

	w = a.do(t, http.MethodPatch, "/orders/"+order.ID.Hex()+"/cancel", "buyer-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cancelled model.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cancelled))
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
}

func TestConfirmDeliveryCreatesWarranty(t *testing.T) {
	a := newAPI(t)
	order := a.createOrder(t)
	path := "/admin/orders/" + order.ID.Hex() + "/status"
	for _, s := range []string{model.StatusProcessing, model.StatusShipping} {
		require.Equal(t, http.StatusOK, a.do(t, http.MethodPatch, path, "admin-token", dto.UpdateStatusRequest{Status: s}).Code)
	}

	w := a.do(t, http.MethodPatch, "/orders/"+order.ID.Hex()+"/confirm-delivery", "buyer-token", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, a.store.WarrantyRecords(), 1)

	w = a.do(t, http.MethodGet, "/orders/warranties", "buyer-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page dto.Page[dto.WarrantyProductView]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, dto.WarrantySourceRecord, page.Items[0].Source)

	w = a.do(t, http.MethodGet, "/admin/warranties/active?customer="+a.buyer.ID.Hex(), "admin-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.Total)
}

func TestListOrdersEndpoint(t *testing.T) {
	a := newAPI(t)
	a.createOrder(t)

	w := a.do(t, http.MethodGet, "/admin/orders?status=pending&fromDate=2026-03-10&toDate=2026-03-10&search=an", "admin-token", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var page dto.Page[dto.AdminOrderView]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Nguyen Van An", page.Items[0].User.Name)
	assert.Equal(t, 1, page.TotalPages)

	w = a.do(t, http.MethodGet, "/admin/orders?fromDate=10-03-2026", "admin-token", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
