package handler

import (
	"context"

	"github.com/google/uuid"

	"github.com/gateway-payment-bridge/internal/checkout"
	"github.com/gateway-payment-bridge/internal/domain/order"
	"github.com/gateway-payment-bridge/internal/domain/payment"
	"github.com/gateway-payment-bridge/internal/reconciler"
)

// CheckoutService drives order creation and the shopper payment flows
type CheckoutService interface {
	CreateOrder(ctx context.Context, draft checkout.OrderDraft) (*order.Order, error)
	StartPayment(ctx context.Context, orderNo string, input checkout.PaymentInput) (*checkout.PaymentStart, error)
	CompleteReturn(ctx context.Context, token string) (*checkout.ReturnResult, error)
}

// ActionService executes back-office payment actions
type ActionService interface {
	ApproveFraudPending(ctx context.Context, orderNo string, correlationID uuid.UUID) (*order.Order, error)
	ApprovePendingApproval(ctx context.Context, orderNo string, correlationID uuid.UUID, amount float64) (*order.Order, error)
	CancelPayment(ctx context.Context, orderNo string, correlationID uuid.UUID) (*order.Order, error)
	RefreshStatus(ctx context.Context, orderNo string) (*order.Order, error)
	CreateRefund(ctx context.Context, orderNo string, correlationID uuid.UUID, amount float64) (*order.Order, error)
	GetRefundStatus(ctx context.Context, orderNo, refundID string) (*order.Order, error)
	CancelRefund(ctx context.Context, orderNo, refundID string, correlationID uuid.UUID) (*order.Order, error)
	ListByGatewayStatus(ctx context.Context, gatewayStatus string, limit, offset int) ([]*order.Order, error)
}

// StatusApplier folds gateway status payloads into orders
type StatusApplier interface {
	Apply(ctx context.Context, orderNo string, payload *payment.StatusPayload) (*reconciler.Outcome, error)
}
