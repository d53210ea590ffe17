// Package gateway is the outbound client for the payment gateway's REST API:
// request signing, card data masking, payload construction and the typed
// operations the rest of the bridge calls.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gateway-payment-bridge/internal/config"
	"github.com/gateway-payment-bridge/internal/platform/metrics"
)

// Client calls the payment gateway. All operations return a Result rather
// than an error so callers can distinguish gateway rejections from timeouts.
type Client struct {
	cfg     config.GatewayConfig
	http    *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewClient creates a gateway client from configuration
func NewClient(cfg config.GatewayConfig, logger *slog.Logger, m *metrics.Metrics) *Client {
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// CreatePayment starts a payment
func (c *Client) CreatePayment(ctx context.Context, req *CreatePaymentRequest) Result {
	return c.do(ctx, "create_payment", http.MethodPost, "/payments", req)
}

// CreateHostedCheckout starts a hosted checkout session
func (c *Client) CreateHostedCheckout(ctx context.Context, req *CreatePaymentRequest) Result {
	return c.do(ctx, "create_hosted_checkout", http.MethodPost, "/hostedcheckouts", req)
}

// GetPayment fetches the current status of a payment
func (c *Client) GetPayment(ctx context.Context, paymentID string) Result {
	return c.do(ctx, "get_payment", http.MethodGet, "/payments/"+paymentID, nil)
}

// GetHostedCheckout fetches the current status of a hosted checkout
func (c *Client) GetHostedCheckout(ctx context.Context, hostedCheckoutID string) Result {
	return c.do(ctx, "get_hosted_checkout", http.MethodGet, "/hostedcheckouts/"+hostedCheckoutID, nil)
}

// CancelPayment cancels a payment
func (c *Client) CancelPayment(ctx context.Context, paymentID string) Result {
	return c.do(ctx, "cancel_payment", http.MethodPost, "/payments/"+paymentID+"/cancel", nil)
}

// ApprovePayment approves a payment pending merchant approval
func (c *Client) ApprovePayment(ctx context.Context, paymentID string, req *ApprovePaymentRequest) Result {
	return c.do(ctx, "approve_payment", http.MethodPost, "/payments/"+paymentID+"/approve", req)
}

// ApproveFraudPending releases a payment held for fraud review
func (c *Client) ApproveFraudPending(ctx context.Context, paymentID string) Result {
	return c.do(ctx, "approve_fraud_pending", http.MethodPost, "/payments/"+paymentID+"/processchallenged", nil)
}

// RefundPayment creates a refund against a payment
func (c *Client) RefundPayment(ctx context.Context, paymentID string, req *RefundRequest) Result {
	return c.do(ctx, "refund_payment", http.MethodPost, "/payments/"+paymentID+"/refund", req)
}

// GetRefund fetches the current status of a refund
func (c *Client) GetRefund(ctx context.Context, refundID string) Result {
	return c.do(ctx, "get_refund", http.MethodGet, "/refunds/"+refundID, nil)
}

// CancelRefund cancels a refund that has not completed
func (c *Client) CancelRefund(ctx context.Context, refundID string) Result {
	return c.do(ctx, "cancel_refund", http.MethodPost, "/refunds/"+refundID+"/cancel", nil)
}

// GetIINDetails resolves the payment product for a card number prefix
func (c *Client) GetIINDetails(ctx context.Context, req *IINDetailsRequest) Result {
	return c.do(ctx, "get_iin_details", http.MethodPost, "/services/getIINdetails", req)
}

// CreateToken tokenizes card details
func (c *Client) CreateToken(ctx context.Context, req *CreateTokenRequest) Result {
	return c.do(ctx, "create_token", http.MethodPost, "/tokens", req)
}

// do signs and executes one API call. The path is relative to the merchant
// root, e.g. "/payments/123/cancel".
func (c *Client) do(ctx context.Context, op, method, path string, payload any) Result {
	c.metrics.GatewayCalls.WithLabelValues(op).Inc()

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			c.metrics.GatewayCallErrors.WithLabelValues(op, "encode").Inc()
			return failed(&APIError{Items: []ErrorItem{{Code: "ENCODE", Message: err.Error()}}})
		}
	}

	fullPath := "/v1/" + c.cfg.MerchantID + path
	httpDate := c.now().UTC().Format(http.TimeFormat)
	auth := signRequest(c.cfg.APISecretKey, c.cfg.APIKeyID, method, contentTypeJSON, httpDate, fullPath)

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+fullPath, bytes.NewReader(body))
	if err != nil {
		c.metrics.GatewayCallErrors.WithLabelValues(op, "request").Inc()
		return failed(&APIError{Items: []ErrorItem{{Code: "REQUEST", Message: err.Error()}}})
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Date", httpDate)
	req.Header.Set("Authorization", auth)

	if c.cfg.LogBodies {
		c.logger.Debug("gateway request", "operation", op, "method", method, "path", fullPath,
			"body", MaskSensitive(string(body)))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.metrics.GatewayCallErrors.WithLabelValues(op, "timeout").Inc()
			c.logger.Warn("gateway call timed out", "operation", op, "path", fullPath)
			return timedOut()
		}
		c.metrics.GatewayCallErrors.WithLabelValues(op, "transport").Inc()
		c.logger.Error("gateway call failed", "operation", op, "path", fullPath, "error", err)
		return failed(&APIError{Items: []ErrorItem{{Code: "TRANSPORT", Message: err.Error()}}})
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.GatewayCallErrors.WithLabelValues(op, "read").Inc()
		return failed(&APIError{HTTPStatus: resp.StatusCode, Items: []ErrorItem{{Code: "READ", Message: err.Error()}}})
	}

	if c.cfg.LogBodies {
		c.logger.Debug("gateway response", "operation", op, "status", resp.StatusCode,
			"body", MaskSensitive(string(respBody)))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if resp.StatusCode == http.StatusNoContent {
			return ok(nil)
		}
		return ok(respBody)
	}

	apiErr := &APIError{HTTPStatus: resp.StatusCode}
	if err := json.Unmarshal(respBody, apiErr); err != nil {
		apiErr.Items = []ErrorItem{{Code: "UNPARSEABLE", Message: string(respBody)}}
	}
	c.metrics.GatewayCallErrors.WithLabelValues(op, "api").Inc()
	c.logger.Error("gateway rejected call", "operation", op, "path", fullPath,
		"status", resp.StatusCode, "error_id", apiErr.ErrorID)
	return failed(apiErr)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
