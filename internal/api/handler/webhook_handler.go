package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gateway-payment-bridge/internal/config"
	"github.com/gateway-payment-bridge/internal/domain/order"
	"github.com/gateway-payment-bridge/internal/domain/payment"
	"github.com/gateway-payment-bridge/internal/gateway"
	"github.com/gateway-payment-bridge/internal/platform/metrics"
)

// signatureHeader carries the gateway's HMAC over the raw webhook body
const signatureHeader = "X-GCS-Signature"

// WebhookHandler receives payment status pushes from the gateway
type WebhookHandler struct {
	cfg     config.WebhookConfig
	applier StatusApplier
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(logger *slog.Logger, cfg config.WebhookConfig, applier StatusApplier, m *metrics.Metrics) *WebhookHandler {
	return &WebhookHandler{
		cfg:     cfg,
		applier: applier,
		metrics: m,
		logger:  logger,
	}
}

// Receive verifies and applies one webhook delivery. A 2xx answer
// acknowledges an applied delivery; the gateway retries 5xx, so transient
// failures answer 500 and permanent ones answer 4xx.
func (h *WebhookHandler) Receive(c *gin.Context) {
	if h.cfg.SharedSecret == "" {
		h.logger.Error("Webhook shared secret is not configured")
		RespondInternalError(c)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		h.metrics.WebhookSignatureRejects.Inc()
		RespondBadRequest(c, "Empty webhook body")
		return
	}

	signature := c.GetHeader(signatureHeader)
	if !gateway.VerifyWebhookSignature(h.cfg.SharedSecret, body, signature) {
		h.metrics.WebhookSignatureRejects.Inc()
		h.logger.Warn("Rejected webhook with bad signature", "client_ip", c.ClientIP())
		RespondBadRequest(c, "Invalid webhook signature")
		return
	}

	payload, err := decodeWebhookPayload(body)
	if err != nil {
		h.logger.Warn("Discarded malformed webhook payload", "error", err)
		RespondBadRequest(c, "Malformed webhook payload")
		return
	}

	orderNo := orderNoFromPayload(payload)
	if orderNo == "" {
		h.logger.Warn("Webhook payload carries no merchant reference", "payload_id", payload.ID)
		RespondBadRequest(c, "Webhook payload carries no merchant reference")
		return
	}

	if _, err := h.applier.Apply(c.Request.Context(), orderNo, payload); err != nil {
		if errors.Is(err, order.ErrOrderNotFound{}) {
			// Nothing to reconcile against, retrying will not help
			h.logger.Warn("Webhook for unknown order", "order_no", orderNo, "payload_id", payload.ID)
			RespondGone(c, "UNKNOWN_ORDER", "No order matches the merchant reference")
			return
		}
		if errors.Is(err, payment.ErrMissingPaymentID) || errors.Is(err, payment.ErrMissingStatus) {
			RespondBadRequest(c, "Incomplete status payload")
			return
		}
		h.logger.Error("Failed to apply webhook", "order_no", orderNo, "payload_id", payload.ID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondNoContent(c)
}

// decodeWebhookPayload accepts both the enveloped form the gateway pushes
// ({"payment": {...}} / {"refund": {...}}) and a bare status payload
func decodeWebhookPayload(body []byte) (*payment.StatusPayload, error) {
	var envelope struct {
		Payment *payment.StatusPayload `json:"payment"`
		Refund  *payment.StatusPayload `json:"refund"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	if envelope.Payment != nil && envelope.Payment.ID != "" {
		return envelope.Payment, nil
	}
	if envelope.Refund != nil && envelope.Refund.ID != "" {
		return envelope.Refund, nil
	}

	var payload payment.StatusPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// orderNoFromPayload maps the merchant reference back to an order number.
// Refund references carry an "R" suffix added when the refund was created.
func orderNoFromPayload(payload *payment.StatusPayload) string {
	ref := payload.MerchantReference()
	if payload.RefundOutput != nil || payload.Status.IsRefundish() {
		ref = strings.TrimSuffix(ref, "R")
	}
	return ref
}
