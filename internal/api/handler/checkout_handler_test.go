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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gateway-payment-bridge/internal/checkout"
	"github.com/gateway-payment-bridge/internal/domain/order"
	"github.com/gateway-payment-bridge/internal/gateway"
)

type stubCheckoutService struct {
	createOrderFn    func(ctx context.Context, draft checkout.OrderDraft) (*order.Order, error)
	startPaymentFn   func(ctx context.Context, orderNo string, input checkout.PaymentInput) (*checkout.PaymentStart, error)
	completeReturnFn func(ctx context.Context, token string) (*checkout.ReturnResult, error)
}

func (s *stubCheckoutService) CreateOrder(ctx context.Context, draft checkout.OrderDraft) (*order.Order, error) {
	return s.createOrderFn(ctx, draft)
}

func (s *stubCheckoutService) StartPayment(ctx context.Context, orderNo string, input checkout.PaymentInput) (*checkout.PaymentStart, error) {
	return s.startPaymentFn(ctx, orderNo, input)
}

func (s *stubCheckoutService) CompleteReturn(ctx context.Context, token string) (*checkout.ReturnResult, error) {
	return s.completeReturnFn(ctx, token)
}

func newCheckoutRouter(t *testing.T, svc CheckoutService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	h := NewCheckoutHandler(logger, svc)

	router := gin.New()
	router.POST("/api/v1/orders", h.CreateOrder)
	router.POST("/api/v1/orders/:orderNo/pay", h.StartPayment)
	router.GET("/payments/return", h.CompleteReturn)
	return router
}

func validCreateOrderBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"order_no":           "ORD-7001",
		"customer_no":        "CUST-1",
		"customer_email":     "ada@example.com",
		"currency":           "GBP",
		"total_gross_amount": 29.99,
		"billing_address":    map[string]any{"city": "London", "country_code": "GB"},
		"items": []map[string]any{
			{"product_id": "SKU-1", "quantity": 1, "base_unit_price": 29.99, "discounted_unit_price": 29.99},
		},
	})
	require.NoError(t, err)
	return body
}

func TestCheckoutHandler_CreateOrder(t *testing.T) {
	var captured checkout.OrderDraft
	svc := &stubCheckoutService{
		createOrderFn: func(ctx context.Context, draft checkout.OrderDraft) (*order.Order, error) {
			captured = draft
			o, err := order.NewOrder(draft.OrderNo, draft.Currency, draft.TotalGrossAmount, draft.LineItems)
			require.NoError(t, err)
			return o, nil
		},
	}
	router := newCheckoutRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader(validCreateOrderBody(t)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "ORD-7001", captured.OrderNo)
	assert.Equal(t, "London", captured.BillingAddress.City)

	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ORD-7001", data["order_no"])
	assert.NotEmpty(t, data["correlation_id"])
}

func TestCheckoutHandler_CreateOrder_Duplicate(t *testing.T) {
	svc := &stubCheckoutService{
		createOrderFn: func(ctx context.Context, draft checkout.OrderDraft) (*order.Order, error) {
			return nil, order.ErrDuplicateOrder{OrderNo: draft.OrderNo}
		},
	}
	router := newCheckoutRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader(validCreateOrderBody(t)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestCheckoutHandler_CreateOrder_InvalidBody(t *testing.T) {
	svc := &stubCheckoutService{
		createOrderFn: func(ctx context.Context, draft checkout.OrderDraft) (*order.Order, error) {
			t.Fatal("service must not be called for an invalid body")
			return nil, nil
		},
	}
	router := newCheckoutRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader([]byte(`{"order_no": ""}`)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCheckoutHandler_StartPayment(t *testing.T) {
	var capturedInput checkout.PaymentInput
	svc := &stubCheckoutService{
		startPaymentFn: func(ctx context.Context, orderNo string, input checkout.PaymentInput) (*checkout.PaymentStart, error) {
			capturedInput = input
			return &checkout.PaymentStart{
				OrderNo:     orderNo,
				RedirectURL: "https://payment.pay.example/checkout/hc_1",
				ReturnToken: "tok",
			}, nil
		},
	}
	router := newCheckoutRouter(t, svc)

	body := []byte(`{"method": "HOSTED_CREDIT_CARD"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/ORD-7001/pay", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, order.MethodHostedCreditCard, capturedInput.Method)
	assert.Contains(t, rr.Body.String(), "https://payment.pay.example/checkout/hc_1")
}

func TestCheckoutHandler_StartPayment_CardSecretsPassThrough(t *testing.T) {
	var capturedInput checkout.PaymentInput
	svc := &stubCheckoutService{
		startPaymentFn: func(ctx context.Context, orderNo string, input checkout.PaymentInput) (*checkout.PaymentStart, error) {
			capturedInput = input
			return &checkout.PaymentStart{OrderNo: orderNo, Status: "PENDING_CAPTURE"}, nil
		},
	}
	router := newCheckoutRouter(t, svc)

	body := []byte(`{"method": "CREDIT_CARD", "card_number": "4111111111111111", "cvv": "123", "card_expiry": "1228"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/ORD-7001/pay", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, gateway.CardSecrets{CardNumber: "4111111111111111", CVV: "123"}, capturedInput.Secrets)
	assert.NotContains(t, rr.Body.String(), "4111111111111111")
}

func TestCheckoutHandler_StartPayment_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"OrderNotFound", order.ErrOrderNotFound{OrderNo: "ORD-7001"}, http.StatusNotFound},
		{"UnsupportedMethod", checkout.ErrUnsupportedMethod, http.StatusBadRequest},
		{"NotPayable", checkout.ErrOrderNotPayable, http.StatusConflict},
		{"Timeout", checkout.ErrGatewayUnavailable, http.StatusGatewayTimeout},
		{"Rejected", &gateway.APIError{HTTPStatus: 400, Items: []gateway.ErrorItem{{Code: "430330", Message: "Not authorised"}}}, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubCheckoutService{
				startPaymentFn: func(ctx context.Context, orderNo string, input checkout.PaymentInput) (*checkout.PaymentStart, error) {
					return nil, tc.err
				},
			}
			router := newCheckoutRouter(t, svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/ORD-7001/pay", bytes.NewReader([]byte(`{"method": "CREDIT_CARD"}`)))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tc.code, rr.Code)
		})
	}
}

func TestCheckoutHandler_CompleteReturn(t *testing.T) {
	svc := &stubCheckoutService{
		completeReturnFn: func(ctx context.Context, token string) (*checkout.ReturnResult, error) {
			assert.Equal(t, "tok-1", token)
			return &checkout.ReturnResult{OrderNo: "ORD-7001", Category: checkout.ReturnAccepted, Status: "PAID"}, nil
		},
	}
	router := newCheckoutRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/payments/return?token=tok-1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"category":"accepted"`)
}

func TestCheckoutHandler_CompleteReturn_MissingToken(t *testing.T) {
	svc := &stubCheckoutService{
		completeReturnFn: func(ctx context.Context, token string) (*checkout.ReturnResult, error) {
			t.Fatal("service must not be called without a token")
			return nil, nil
		},
	}
	router := newCheckoutRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/payments/return", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCheckoutHandler_CompleteReturn_BadToken(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"Invalid", checkout.ErrInvalidReturnToken},
		{"Expired", checkout.ErrExpiredReturnToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubCheckoutService{
				completeReturnFn: func(ctx context.Context, token string) (*checkout.ReturnResult, error) {
					return nil, tc.err
				},
			}
			router := newCheckoutRouter(t, svc)

			req := httptest.NewRequest(http.MethodGet, "/payments/return?token=bad", nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusForbidden, rr.Code)
		})
	}
}
