// Package orderactions implements the back-office payment operations:
// approving, cancelling and refunding payments and resynchronizing an order
// with the gateway. Every action that changes money movement verifies the
// caller-supplied correlation id against the order before calling out.
package orderactions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gateway-payment-bridge/internal/domain/ledger"
	"github.com/gateway-payment-bridge/internal/domain/order"
	"github.com/gateway-payment-bridge/internal/domain/payment"
	"github.com/gateway-payment-bridge/internal/gateway"
)

// Gateway rejection codes the actions recover from
const (
	codeInvalidPaymentStatus = "1100000" // Status moved on the gateway side
	codeUnknownPayment       = "410140"
	codeNotCancellable       = "400210"
	codeRefundTooLarge       = "300430"
)

// Common errors
var (
	ErrNoGatewayPayment  = errors.New("order has no gateway payment to act on")
	ErrGatewayTimeout    = errors.New("gateway did not answer in time, retry later")
	ErrNotCancellable    = errors.New("payment can no longer be cancelled")
	ErrRefundTooLarge    = errors.New("refund amount exceeds the refundable balance")
	ErrStatusOutOfSync   = errors.New("payment status changed on the gateway, order was resynchronized")
	ErrUnknownRefund     = errors.New("refund does not belong to this order")
	ErrEmptyStatusResult = errors.New("gateway returned no payment state")
)

// Service executes payment actions against the gateway and feeds the results
// back through the reconciler
type Service struct {
	orders  order.Repository
	client  GatewayAPI
	builder *gateway.PayloadBuilder
	applier StatusApplier
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates the payment action service
func NewService(orders order.Repository, client GatewayAPI, builder *gateway.PayloadBuilder, applier StatusApplier, logger *slog.Logger) *Service {
	return &Service{
		orders:  orders,
		client:  client,
		builder: builder,
		applier: applier,
		logger:  logger,
		now:     time.Now,
	}
}

// ApproveFraudPending releases a payment held in fraud review
func (s *Service) ApproveFraudPending(ctx context.Context, orderNo string, correlationID uuid.UUID) (*order.Order, error) {
	o, txnID, err := s.loadForAction(ctx, orderNo, correlationID)
	if err != nil {
		return nil, err
	}

	res := s.client.ApproveFraudPending(ctx, txnID)
	return s.finishPaymentAction(ctx, o, res)
}

// ApprovePendingApproval captures a payment awaiting merchant approval.
// A non-positive amount approves the full authorized amount.
func (s *Service) ApprovePendingApproval(ctx context.Context, orderNo string, correlationID uuid.UUID, amount float64) (*order.Order, error) {
	o, txnID, err := s.loadForAction(ctx, orderNo, correlationID)
	if err != nil {
		return nil, err
	}

	amountMinor := payment.MinorUnits(amount)
	if amountMinor <= 0 {
		if o.Instrument != nil && o.Instrument.AuthorizedAmount > 0 {
			amountMinor = o.Instrument.AuthorizedAmount
		} else {
			amountMinor = payment.MinorUnits(o.TotalGrossAmount)
		}
	}

	res := s.client.ApprovePayment(ctx, txnID, s.builder.BuildApprovePayment(o, amountMinor))
	return s.finishPaymentAction(ctx, o, res)
}

// CancelPayment cancels the order's payment on the gateway
func (s *Service) CancelPayment(ctx context.Context, orderNo string, correlationID uuid.UUID) (*order.Order, error) {
	o, txnID, err := s.loadForAction(ctx, orderNo, correlationID)
	if err != nil {
		return nil, err
	}

	res := s.client.CancelPayment(ctx, txnID)
	if res.Err != nil && res.Err.HasCode(codeNotCancellable) {
		return nil, ErrNotCancellable
	}
	return s.finishPaymentAction(ctx, o, res)
}

// RefreshStatus pulls the current payment state from the gateway and applies
// it. Orders whose payment never materialized fall back to the hosted
// checkout session lookup.
func (s *Service) RefreshStatus(ctx context.Context, orderNo string) (*order.Order, error) {
	o, err := s.orders.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}

	if o.Instrument == nil {
		return nil, ErrNoGatewayPayment
	}

	var res gateway.Result
	switch {
	case o.Instrument.TransactionID != "":
		res = s.client.GetPayment(ctx, o.Instrument.TransactionID)
	case o.Instrument.HostedCheckoutID != "":
		res = s.client.GetHostedCheckout(ctx, o.Instrument.HostedCheckoutID)
	default:
		return nil, ErrNoGatewayPayment
	}

	return s.applyResult(ctx, o, res)
}

// CreateRefund refunds part or all of the payment. The refundable balance is
// checked locally first; pending refunds count against it.
func (s *Service) CreateRefund(ctx context.Context, orderNo string, correlationID uuid.UUID, amount float64) (*order.Order, error) {
	o, txnID, err := s.loadForAction(ctx, orderNo, correlationID)
	if err != nil {
		return nil, err
	}

	led, err := ledger.Parse(o.LedgerRaw)
	if err != nil {
		return nil, fmt.Errorf("order %s has an unreadable payment ledger: %w", orderNo, err)
	}
	amountMinor := payment.MinorUnits(amount)
	if amountMinor <= 0 || amountMinor > led.RefundableMinorUnits() {
		return nil, ErrRefundTooLarge
	}

	res := s.client.RefundPayment(ctx, txnID, s.builder.BuildRefund(o, amount, s.now()))
	if res.Err != nil && res.Err.HasCode(codeRefundTooLarge) {
		return nil, ErrRefundTooLarge
	}

	updated, err := s.finishPaymentAction(ctx, o, res)
	if err != nil {
		return nil, err
	}

	note := fmt.Sprintf("Refunded %.2f %s via payment gateway", amount, o.Currency)
	if err := s.orders.AddNote(ctx, orderNo, "Refund", note); err != nil {
		s.logger.Warn("Failed to add refund note", "order_no", orderNo, "error", err)
	}

	return updated, nil
}

// GetRefundStatus pulls the current state of one of the order's refunds
func (s *Service) GetRefundStatus(ctx context.Context, orderNo, refundID string) (*order.Order, error) {
	o, err := s.orders.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if !hasRefund(o, refundID) {
		return nil, ErrUnknownRefund
	}

	res := s.client.GetRefund(ctx, refundID)
	return s.applyResult(ctx, o, res)
}

// CancelRefund cancels a refund that has not completed, then resynchronizes
// the refund record
func (s *Service) CancelRefund(ctx context.Context, orderNo, refundID string, correlationID uuid.UUID) (*order.Order, error) {
	o, err := s.orders.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if err := o.VerifyCorrelation(correlationID); err != nil {
		return nil, err
	}
	if !hasRefund(o, refundID) {
		return nil, ErrUnknownRefund
	}

	res := s.client.CancelRefund(ctx, refundID)
	if res.TimedOut {
		return nil, ErrGatewayTimeout
	}
	if res.Err != nil {
		return nil, s.recoverFromRejection(ctx, o, res.Err)
	}

	// Cancel answers 204, pull the refund to record its new state
	return s.GetRefundStatus(ctx, orderNo, refundID)
}

// ListByGatewayStatus lists orders by their last applied gateway status
func (s *Service) ListByGatewayStatus(ctx context.Context, gatewayStatus string, limit, offset int) ([]*order.Order, error) {
	return s.orders.ListByGatewayStatus(ctx, gatewayStatus, limit, offset)
}

func (s *Service) loadForAction(ctx context.Context, orderNo string, correlationID uuid.UUID) (*order.Order, string, error) {
	o, err := s.orders.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, "", err
	}
	if err := o.VerifyCorrelation(correlationID); err != nil {
		return nil, "", err
	}
	if o.Instrument == nil || o.Instrument.TransactionID == "" {
		return nil, "", ErrNoGatewayPayment
	}
	return o, o.Instrument.TransactionID, nil
}

// finishPaymentAction turns a gateway result into an applied order update.
// Operations that answer 204 fall back to one status pull.
func (s *Service) finishPaymentAction(ctx context.Context, o *order.Order, res gateway.Result) (*order.Order, error) {
	updated, err := s.applyResult(ctx, o, res)
	if errors.Is(err, ErrEmptyStatusResult) {
		return s.RefreshStatus(ctx, o.OrderNo)
	}
	return updated, err
}

// applyResult folds one gateway result into the order, with no fallback pull
func (s *Service) applyResult(ctx context.Context, o *order.Order, res gateway.Result) (*order.Order, error) {
	if res.TimedOut {
		return nil, ErrGatewayTimeout
	}
	if res.Err != nil {
		return nil, s.recoverFromRejection(ctx, o, res.Err)
	}

	payload, err := extractStatusPayload(res.Body)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, ErrEmptyStatusResult
	}

	if _, err := s.applier.Apply(ctx, o.OrderNo, payload); err != nil {
		return nil, err
	}
	return s.orders.GetByOrderNo(ctx, o.OrderNo)
}

// recoverFromRejection maps gateway rejections to action errors. Status
// conflicts trigger a resync so the back office sees the real state.
func (s *Service) recoverFromRejection(ctx context.Context, o *order.Order, apiErr *gateway.APIError) error {
	if apiErr.HasCode(codeInvalidPaymentStatus) || apiErr.HasCode(codeUnknownPayment) {
		s.logger.Warn("Gateway state diverged, resynchronizing order",
			"order_no", o.OrderNo, "error_id", apiErr.ErrorID)
		if _, err := s.RefreshStatus(ctx, o.OrderNo); err != nil {
			s.logger.Error("Failed to resynchronize order", "order_no", o.OrderNo, "error", err)
		}
		return ErrStatusOutOfSync
	}
	if apiErr.HasCode(codeNotCancellable) {
		return ErrNotCancellable
	}
	if apiErr.HasCode(codeRefundTooLarge) {
		return ErrRefundTooLarge
	}
	return apiErr
}

func hasRefund(o *order.Order, refundID string) bool {
	for _, id := range o.RefundIDs {
		if id == refundID {
			return true
		}
	}
	return false
}

// extractStatusPayload decodes a gateway response into a status payload.
// Payment objects come back either at the top level (GET, processchallenged),
// wrapped in "payment" (approve, cancel) or nested under a hosted checkout's
// createdPaymentOutput. A body with no payment state yields nil.
func extractStatusPayload(body json.RawMessage) (*payment.StatusPayload, error) {
	if len(body) == 0 {
		return nil, nil
	}

	var wrapper struct {
		Payment              *payment.StatusPayload `json:"payment"`
		CreatedPaymentOutput *struct {
			Payment *payment.StatusPayload `json:"payment"`
		} `json:"createdPaymentOutput"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if wrapper.Payment != nil && wrapper.Payment.ID != "" {
		return wrapper.Payment, nil
	}
	if wrapper.CreatedPaymentOutput != nil && wrapper.CreatedPaymentOutput.Payment != nil {
		return wrapper.CreatedPaymentOutput.Payment, nil
	}

	var direct payment.StatusPayload
	if err := json.Unmarshal(body, &direct); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if direct.ID == "" {
		return nil, nil
	}
	return &direct, nil
}
