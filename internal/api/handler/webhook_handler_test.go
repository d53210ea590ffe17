package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gateway-payment-bridge/internal/config"
	"github.com/gateway-payment-bridge/internal/domain/order"
	"github.com/gateway-payment-bridge/internal/domain/payment"
	"github.com/gateway-payment-bridge/internal/platform/metrics"
	"github.com/gateway-payment-bridge/internal/reconciler"
)

const webhookSecret = "webhook-secret"

type recordingApplier struct {
	mu       sync.Mutex
	orderNos []string
	applied  []*payment.StatusPayload
	applyErr error
}

func (a *recordingApplier) Apply(ctx context.Context, orderNo string, payload *payment.StatusPayload) (*reconciler.Outcome, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.applyErr != nil {
		return nil, a.applyErr
	}
	a.orderNos = append(a.orderNos, orderNo)
	a.applied = append(a.applied, payload)
	return &reconciler.Outcome{OrderNo: orderNo, Current: payload.Status}, nil
}

func newWebhookRouter(t *testing.T, secret string, applier StatusApplier) (*gin.Engine, *metrics.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())
	h := NewWebhookHandler(logger, config.WebhookConfig{SharedSecret: secret}, applier, m)

	router := gin.New()
	router.POST("/webhooks/gateway", h.Receive)
	return router, m
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func postWebhook(router *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/gateway", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-GCS-Signature", signature)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestWebhookHandler_AppliesPaymentUpdate(t *testing.T) {
	applier := &recordingApplier{}
	router, _ := newWebhookRouter(t, webhookSecret, applier)

	body := []byte(`{
		"payment": {
			"id": "pay_1",
			"status": "PAID",
			"paymentOutput": {
				"amountOfMoney": {"amount": 2999, "currencyCode": "GBP"},
				"references": {"merchantReference": "ORD-1001"}
			}
		}
	}`)

	rr := postWebhook(router, body, signBody(body))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	require.Len(t, applier.applied, 1)
	assert.Equal(t, []string{"ORD-1001"}, applier.orderNos)
	assert.Equal(t, "pay_1", applier.applied[0].ID)
}

func TestWebhookHandler_RefundReferenceStripsSuffix(t *testing.T) {
	applier := &recordingApplier{}
	router, _ := newWebhookRouter(t, webhookSecret, applier)

	body := []byte(`{
		"refund": {
			"id": "ref_1",
			"status": "REFUNDED",
			"refundOutput": {
				"amountOfMoney": {"amount": 500, "currencyCode": "GBP"},
				"references": {"merchantReference": "ORD-1001R"}
			}
		}
	}`)

	rr := postWebhook(router, body, signBody(body))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, []string{"ORD-1001"}, applier.orderNos)
}

func TestWebhookHandler_BareStatusPayload(t *testing.T) {
	applier := &recordingApplier{}
	router, _ := newWebhookRouter(t, webhookSecret, applier)

	body := []byte(`{
		"id": "pay_1",
		"status": "CANCELLED",
		"paymentOutput": {
			"references": {"merchantReference": "ORD-1001"}
		}
	}`)

	rr := postWebhook(router, body, signBody(body))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, []string{"ORD-1001"}, applier.orderNos)
}

func TestWebhookHandler_InvalidSignature(t *testing.T) {
	applier := &recordingApplier{}
	router, m := newWebhookRouter(t, webhookSecret, applier)

	body := []byte(`{"payment": {"id": "pay_1", "status": "PAID"}}`)

	rr := postWebhook(router, body, "bm90LXRoZS1zaWduYXR1cmU=")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, applier.applied, "a rejected webhook must not mutate anything")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.WebhookSignatureRejects))
}

func TestWebhookHandler_MissingSignature(t *testing.T) {
	applier := &recordingApplier{}
	router, m := newWebhookRouter(t, webhookSecret, applier)

	body := []byte(`{"payment": {"id": "pay_1", "status": "PAID"}}`)

	rr := postWebhook(router, body, "")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, applier.applied)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.WebhookSignatureRejects))
}

func TestWebhookHandler_EmptyBody(t *testing.T) {
	applier := &recordingApplier{}
	router, _ := newWebhookRouter(t, webhookSecret, applier)

	rr := postWebhook(router, nil, signBody(nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, applier.applied)
}

func TestWebhookHandler_NoSharedSecret(t *testing.T) {
	applier := &recordingApplier{}
	router, _ := newWebhookRouter(t, "", applier)

	body := []byte(`{"payment": {"id": "pay_1", "status": "PAID"}}`)

	rr := postWebhook(router, body, signBody(body))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Empty(t, applier.applied)
}

func TestWebhookHandler_NoMerchantReference(t *testing.T) {
	applier := &recordingApplier{}
	router, _ := newWebhookRouter(t, webhookSecret, applier)

	body := []byte(`{"payment": {"id": "pay_1", "status": "PAID"}}`)

	rr := postWebhook(router, body, signBody(body))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, applier.applied)
}

func TestWebhookHandler_UnknownOrderAnswersGone(t *testing.T) {
	applier := &recordingApplier{applyErr: order.ErrOrderNotFound{OrderNo: "ORD-9999"}}
	router, _ := newWebhookRouter(t, webhookSecret, applier)

	body := []byte(`{
		"payment": {
			"id": "pay_1",
			"status": "PAID",
			"paymentOutput": {"references": {"merchantReference": "ORD-9999"}}
		}
	}`)

	rr := postWebhook(router, body, signBody(body))

	assert.Equal(t, http.StatusGone, rr.Code)
	assert.Contains(t, rr.Body.String(), "UNKNOWN_ORDER")
}

func TestWebhookHandler_TransientFailureAnswers500(t *testing.T) {
	applier := &recordingApplier{applyErr: errors.New("database unavailable")}
	router, _ := newWebhookRouter(t, webhookSecret, applier)

	body := []byte(`{
		"payment": {
			"id": "pay_1",
			"status": "PAID",
			"paymentOutput": {"references": {"merchantReference": "ORD-1001"}}
		}
	}`)

	rr := postWebhook(router, body, signBody(body))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestWebhookHandler_IncompletePayload(t *testing.T) {
	applier := &recordingApplier{applyErr: payment.ErrMissingStatus}
	router, _ := newWebhookRouter(t, webhookSecret, applier)

	body := []byte(`{
		"payment": {
			"id": "pay_1",
			"status": "",
			"paymentOutput": {"references": {"merchantReference": "ORD-1001"}}
		}
	}`)

	rr := postWebhook(router, body, signBody(body))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
