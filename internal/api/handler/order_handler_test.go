package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gateway-payment-bridge/internal/domain/order"
	"github.com/gateway-payment-bridge/internal/orderactions"
)

type stubActionService struct {
	lastOrderNo       string
	lastCorrelationID uuid.UUID
	lastAmount        float64
	result            *order.Order
	err               error
	listed            []*order.Order
}

func (s *stubActionService) ApproveFraudPending(ctx context.Context, orderNo string, correlationID uuid.UUID) (*order.Order, error) {
	s.lastOrderNo, s.lastCorrelationID = orderNo, correlationID
	return s.result, s.err
}

func (s *stubActionService) ApprovePendingApproval(ctx context.Context, orderNo string, correlationID uuid.UUID, amount float64) (*order.Order, error) {
	s.lastOrderNo, s.lastCorrelationID, s.lastAmount = orderNo, correlationID, amount
	return s.result, s.err
}

func (s *stubActionService) CancelPayment(ctx context.Context, orderNo string, correlationID uuid.UUID) (*order.Order, error) {
	s.lastOrderNo, s.lastCorrelationID = orderNo, correlationID
	return s.result, s.err
}

func (s *stubActionService) RefreshStatus(ctx context.Context, orderNo string) (*order.Order, error) {
	s.lastOrderNo = orderNo
	return s.result, s.err
}

func (s *stubActionService) CreateRefund(ctx context.Context, orderNo string, correlationID uuid.UUID, amount float64) (*order.Order, error) {
	s.lastOrderNo, s.lastCorrelationID, s.lastAmount = orderNo, correlationID, amount
	return s.result, s.err
}

func (s *stubActionService) GetRefundStatus(ctx context.Context, orderNo, refundID string) (*order.Order, error) {
	s.lastOrderNo = orderNo
	return s.result, s.err
}

func (s *stubActionService) CancelRefund(ctx context.Context, orderNo, refundID string, correlationID uuid.UUID) (*order.Order, error) {
	s.lastOrderNo, s.lastCorrelationID = orderNo, correlationID
	return s.result, s.err
}

func (s *stubActionService) ListByGatewayStatus(ctx context.Context, gatewayStatus string, limit, offset int) ([]*order.Order, error) {
	return s.listed, s.err
}

type stubOrderRepo struct {
	order *order.Order
	err   error
}

func (r *stubOrderRepo) Create(ctx context.Context, o *order.Order) error { return nil }

func (r *stubOrderRepo) GetByOrderNo(ctx context.Context, orderNo string) (*order.Order, error) {
	return r.order, r.err
}

func (r *stubOrderRepo) GetByHostedCheckoutID(ctx context.Context, hostedCheckoutID string) (*order.Order, error) {
	return r.order, r.err
}

func (r *stubOrderRepo) ListByGatewayStatus(ctx context.Context, gatewayStatus string, limit, offset int) ([]*order.Order, error) {
	return nil, nil
}

func (r *stubOrderRepo) Update(ctx context.Context, o *order.Order) error { return nil }

func (r *stubOrderRepo) AddNote(ctx context.Context, orderNo, subject, body string) error {
	return nil
}

func (r *stubOrderRepo) WithTx(tx pgx.Tx) order.Repository { return r }

func adminOrder(t *testing.T) *order.Order {
	t.Helper()
	o, err := order.NewOrder("ORD-8001", "EUR", 50.00, []order.LineItem{
		{ProductID: "SKU-1", Quantity: 1, BaseUnitPrice: 50.00, DiscountedUnitPrice: 50.00},
	})
	require.NoError(t, err)
	o.GatewayStatus = "PAID"
	return o
}

func newOrderRouter(t *testing.T, repo order.Repository, actions ActionService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	h := NewOrderHandler(logger, repo, actions)

	router := gin.New()
	router.GET("/api/v1/orders", h.List)
	router.GET("/api/v1/orders/:orderNo", h.GetByOrderNo)
	router.POST("/api/v1/orders/:orderNo/refresh", h.Refresh)
	router.POST("/api/v1/orders/:orderNo/approve", h.Approve)
	router.POST("/api/v1/orders/:orderNo/approve-fraud", h.ApproveFraud)
	router.POST("/api/v1/orders/:orderNo/cancel", h.Cancel)
	router.POST("/api/v1/orders/:orderNo/refunds", h.CreateRefund)
	router.GET("/api/v1/orders/:orderNo/refunds/:refundID", h.GetRefund)
	router.POST("/api/v1/orders/:orderNo/refunds/:refundID/cancel", h.CancelRefund)
	return router
}

func actionBody(t *testing.T, correlationID uuid.UUID, amount float64) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"correlation_id": correlationID.String(),
		"amount":         amount,
	})
	require.NoError(t, err)
	return body
}

func TestOrderHandler_GetByOrderNo(t *testing.T) {
	o := adminOrder(t)
	router := newOrderRouter(t, &stubOrderRepo{order: o}, &stubActionService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/ORD-8001", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"order_no":"ORD-8001"`)
	assert.Contains(t, rr.Body.String(), `"gateway_status":"PAID"`)
}

func TestOrderHandler_GetByOrderNo_NotFound(t *testing.T) {
	router := newOrderRouter(t, &stubOrderRepo{err: order.ErrOrderNotFound{OrderNo: "ORD-8001"}}, &stubActionService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/ORD-8001", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestOrderHandler_List(t *testing.T) {
	actions := &stubActionService{listed: []*order.Order{adminOrder(t)}}
	router := newOrderRouter(t, &stubOrderRepo{}, actions)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?gateway_status=PAID&page=2&per_page=10", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 10, resp.Meta.PerPage)
}

func TestOrderHandler_List_RequiresStatus(t *testing.T) {
	router := newOrderRouter(t, &stubOrderRepo{}, &stubActionService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOrderHandler_Approve(t *testing.T) {
	o := adminOrder(t)
	actions := &stubActionService{result: o}
	router := newOrderRouter(t, &stubOrderRepo{}, actions)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/ORD-8001/approve",
		bytes.NewReader(actionBody(t, o.CorrelationID, 25.00)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ORD-8001", actions.lastOrderNo)
	assert.Equal(t, o.CorrelationID, actions.lastCorrelationID)
	assert.Equal(t, 25.00, actions.lastAmount)
}

func TestOrderHandler_Approve_MissingCorrelationID(t *testing.T) {
	router := newOrderRouter(t, &stubOrderRepo{}, &stubActionService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/ORD-8001/approve",
		bytes.NewReader([]byte(`{"amount": 25.00}`)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOrderHandler_Refresh(t *testing.T) {
	actions := &stubActionService{result: adminOrder(t)}
	router := newOrderRouter(t, &stubOrderRepo{}, actions)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/ORD-8001/refresh", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ORD-8001", actions.lastOrderNo)
}

func TestOrderHandler_CreateRefund(t *testing.T) {
	o := adminOrder(t)
	actions := &stubActionService{result: o}
	router := newOrderRouter(t, &stubOrderRepo{}, actions)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/ORD-8001/refunds",
		bytes.NewReader(actionBody(t, o.CorrelationID, 10.00)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 10.00, actions.lastAmount)
}

func TestOrderHandler_CreateRefund_RequiresAmount(t *testing.T) {
	router := newOrderRouter(t, &stubOrderRepo{}, &stubActionService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/ORD-8001/refunds",
		bytes.NewReader(actionBody(t, uuid.New(), 0)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOrderHandler_ActionErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"OrderNotFound", order.ErrOrderNotFound{OrderNo: "ORD-8001"}, http.StatusNotFound},
		{"CorrelationMismatch", order.ErrCorrelationMismatch, http.StatusForbidden},
		{"NoPayment", orderactions.ErrNoGatewayPayment, http.StatusConflict},
		{"NotCancellable", orderactions.ErrNotCancellable, http.StatusConflict},
		{"RefundTooLarge", orderactions.ErrRefundTooLarge, http.StatusUnprocessableEntity},
		{"OutOfSync", orderactions.ErrStatusOutOfSync, http.StatusConflict},
		{"Timeout", orderactions.ErrGatewayTimeout, http.StatusGatewayTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			actions := &stubActionService{err: tc.err}
			router := newOrderRouter(t, &stubOrderRepo{}, actions)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/ORD-8001/cancel",
				bytes.NewReader(actionBody(t, uuid.New(), 0)))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tc.code, rr.Code)
		})
	}
}

func TestOrderHandler_GetRefund_UnknownRefund(t *testing.T) {
	actions := &stubActionService{err: orderactions.ErrUnknownRefund}
	router := newOrderRouter(t, &stubOrderRepo{}, actions)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/ORD-8001/refunds/ref_9", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
