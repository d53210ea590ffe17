package orderactions

import (
	"context"

	"github.com/gateway-payment-bridge/internal/domain/payment"
	"github.com/gateway-payment-bridge/internal/gateway"
	"github.com/gateway-payment-bridge/internal/reconciler"
)

// GatewayAPI is the slice of the gateway client the actions use
type GatewayAPI interface {
	GetPayment(ctx context.Context, paymentID string) gateway.Result
	GetHostedCheckout(ctx context.Context, hostedCheckoutID string) gateway.Result
	CancelPayment(ctx context.Context, paymentID string) gateway.Result
	ApprovePayment(ctx context.Context, paymentID string, req *gateway.ApprovePaymentRequest) gateway.Result
	ApproveFraudPending(ctx context.Context, paymentID string) gateway.Result
	RefundPayment(ctx context.Context, paymentID string, req *gateway.RefundRequest) gateway.Result
	GetRefund(ctx context.Context, refundID string) gateway.Result
	CancelRefund(ctx context.Context, refundID string) gateway.Result
}

// StatusApplier folds gateway status payloads into orders
type StatusApplier interface {
	Apply(ctx context.Context, orderNo string, payload *payment.StatusPayload) (*reconciler.Outcome, error)
}
