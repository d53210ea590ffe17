// Package reconciler applies gateway status payloads to orders. It is the
// single write path for payment state: the webhook handler, the redirect
// return handler and the admin actions all funnel their payloads through
// Apply, which serializes updates per order and keeps the order row, its
// ledger document and the transaction log consistent.
package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gateway-payment-bridge/internal/domain/ledger"
	"github.com/gateway-payment-bridge/internal/domain/order"
	"github.com/gateway-payment-bridge/internal/domain/payment"
	"github.com/gateway-payment-bridge/internal/domain/shared"
	"github.com/gateway-payment-bridge/internal/domain/translog"
	"github.com/gateway-payment-bridge/internal/platform/metrics"
)

// TxBeginner starts database transactions. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Notifier sends the customer and back-office emails that follow a status
// change. Implementations must not block reconciliation on SMTP latency.
type Notifier interface {
	StatusChanged(ctx context.Context, o *order.Order, previous, current payment.Status)
	FraudReviewRequired(ctx context.Context, o *order.Order)
}

// EventPublisher publishes applied status updates to the message broker
type EventPublisher interface {
	PublishStatusEvent(ctx context.Context, event *shared.PaymentStatusEvent) error
}

// Outcome describes what one Apply call did to the order
type Outcome struct {
	OrderNo       string
	Previous      payment.Status
	Current       payment.Status
	RefundApplied bool
}

// Reconciler applies status payloads to orders
type Reconciler struct {
	db              TxBeginner
	orders          order.Repository
	translogs       translog.Repository
	notifier        Notifier
	publisher       EventPublisher
	metrics         *metrics.Metrics
	logger          *slog.Logger
	locks           *keyedMutex
	recordTranslogs bool
}

// New creates a reconciler
func New(
	db TxBeginner,
	orders order.Repository,
	translogs translog.Repository,
	notifier Notifier,
	publisher EventPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	recordTranslogs bool,
) *Reconciler {
	return &Reconciler{
		db:              db,
		orders:          orders,
		translogs:       translogs,
		notifier:        notifier,
		publisher:       publisher,
		metrics:         m,
		logger:          logger,
		locks:           newKeyedMutex(),
		recordTranslogs: recordTranslogs,
	}
}

// Apply folds one gateway status payload into the order. Payloads carrying a
// refundOutput update the refund ledger; everything else updates the payment
// record and may move the order through its lifecycle. Re-applying a payload
// the order has already seen is a no-op apart from the published event.
func (r *Reconciler) Apply(ctx context.Context, orderNo string, payload *payment.StatusPayload) (*Outcome, error) {
	if err := payload.Validate(); err != nil {
		r.metrics.ReconciliationsFailed.WithLabelValues("invalid_payload").Inc()
		return nil, err
	}

	unlock := r.locks.Lock(orderNo)
	defer unlock()

	logger := r.logger.With("order_no", orderNo, "payment_id", payload.ID, "status", string(payload.Status))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		logger.Error("Failed to begin database transaction", "error", err)
		return nil, fmt.Errorf("failed to begin transaction for order %s: %w", orderNo, err)
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Panic recovered, rolling back transaction", "panic", p)
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logger.Error("Failed to rollback transaction after error", "rollback_error", rbErr, "original_error", err)
			}
		}
	}()

	repo := r.orders.WithTx(tx)
	o, err := repo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound{}) {
			logger.Warn("Order not found for status payload")
			r.metrics.ReconciliationsFailed.WithLabelValues("order_not_found").Inc()
			return nil, err
		}
		logger.Error("Failed to load order", "error", err)
		return nil, err
	}

	previous := payment.Status(o.GatewayStatus)

	led, parseErr := ledger.Parse(o.LedgerRaw)
	if parseErr != nil {
		logger.Warn("Payment ledger document is corrupt, starting fresh", "error", parseErr, "discarded", string(o.LedgerRaw))
		led = &ledger.Ledger{OriginalAmount: o.TotalGrossAmount}
	}
	if led.OriginalAmount == 0 {
		led.OriginalAmount = o.TotalGrossAmount
	}

	isRefund := payload.RefundOutput != nil
	if isRefund {
		r.applyRefund(o, led, payload)
	} else if err = r.applyPayment(logger, o, led, payload); err != nil {
		logger.Error("Failed to apply payment payload", "error", err)
		r.metrics.ReconciliationsFailed.WithLabelValues("order_submit").Inc()
		return nil, err
	}

	raw, err := led.Bytes()
	if err != nil {
		logger.Error("Failed to serialize ledger", "error", err)
		return nil, err
	}
	o.LedgerRaw = raw

	if err = repo.Update(ctx, o); err != nil {
		if errors.Is(err, order.ErrConcurrentModification{}) {
			logger.Warn("Concurrent modification while applying status payload")
			r.metrics.ReconciliationsFailed.WithLabelValues("conflict").Inc()
		} else {
			logger.Error("Failed to update order", "error", err)
			r.metrics.ReconciliationsFailed.WithLabelValues("update").Inc()
		}
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		logger.Error("Failed to commit transaction", "error", err)
		return nil, fmt.Errorf("failed to commit status update for order %s: %w", orderNo, err)
	}

	r.metrics.ReconciliationsApplied.WithLabelValues(string(payload.Status)).Inc()
	logger.Info("Status payload applied", "previous_status", string(previous), "order_status", string(o.Status))

	r.afterApply(ctx, o, previous, payload, isRefund)

	return &Outcome{
		OrderNo:       orderNo,
		Previous:      previous,
		Current:       payload.Status,
		RefundApplied: isRefund,
	}, nil
}

// applyPayment folds a payment payload into the ledger and moves the order
// through its lifecycle. A settlement that cannot confirm the order aborts
// the reconciliation.
func (r *Reconciler) applyPayment(logger *slog.Logger, o *order.Order, led *ledger.Ledger, payload *payment.StatusPayload) error {
	rec := ledger.PaymentRecord{
		ID:           payload.ID,
		Status:       payload.Status,
		StatusOutput: payload.StatusOutput,
	}
	if payload.StatusOutput != nil {
		rec.Date = payload.StatusOutput.StatusCodeChangeDateTime
	}
	if po := payload.PaymentOutput; po != nil {
		rec.Method = po.PaymentMethod
		rec.AuthCode = po.AuthorisationCode()
		if po.AmountOfMoney != nil {
			rec.Amount = payment.FromMinorUnits(po.AmountOfMoney.Amount)
		}
	}
	led.ApplyPayment(rec)

	if inst := o.Instrument; inst != nil {
		inst.AssignTransactionID(payload.ID)
		if po := payload.PaymentOutput; po != nil {
			if po.AmountOfMoney != nil && po.AmountOfMoney.Amount > 0 {
				inst.SetAuthorizedAmount(po.AmountOfMoney.Amount, po.AmountOfMoney.CurrencyCode)
			}
			if po.References != nil {
				inst.AssignProcessorRef(po.References.PaymentReference)
			}
		}
	}

	status := payload.Status
	switch {
	case status.IsTerminatedFailure():
		if o.Status == order.StatusCreated {
			o.Fail()
		} else if !o.IsTerminal() {
			if err := o.Cancel(); err != nil {
				logger.Warn("Could not cancel order", "error", err)
			}
		}
	case status.IsSettled():
		if o.IsTerminal() {
			logger.Warn("Settlement reported for a terminal order", "order_status", string(o.Status))
		}
		if o.Status == order.StatusCreated {
			if err := o.Place(); err != nil {
				return fmt.Errorf("failed to place order %s on settlement: %w", o.OrderNo, err)
			}
		}
		o.MarkSettled()
	case status.IsAuthPending(), status == payment.StatusRedirected, status == payment.StatusAuthorizationRequested:
		if o.Status == order.StatusCreated {
			if err := o.Place(); err != nil {
				logger.Warn("Could not place order on authorization", "error", err)
			}
		}
		o.MarkAwaitingPayment()
	}

	o.SetGatewayStatus(string(status))
	return nil
}

// applyRefund merges a refund payload into the ledger. Refunds never move the
// order lifecycle or the last applied payment status.
func (r *Reconciler) applyRefund(o *order.Order, led *ledger.Ledger, payload *payment.StatusPayload) {
	rec := ledger.RefundRecord{
		ID:           payload.ID,
		Status:       payload.Status,
		StatusOutput: payload.StatusOutput,
	}
	if payload.StatusOutput != nil {
		rec.Date = payload.StatusOutput.StatusCodeChangeDateTime
	}
	if payload.RefundOutput.AmountOfMoney != nil {
		rec.Amount = payment.FromMinorUnits(payload.RefundOutput.AmountOfMoney.Amount)
	}
	led.DedupeRefunds()
	led.MergeRefund(rec)
	o.AddRefundID(payload.ID)
}

// afterApply runs the post-commit side effects: transaction log, emails and
// the broker event. Failures here are logged, never propagated; the order
// update has already committed.
func (r *Reconciler) afterApply(ctx context.Context, o *order.Order, previous payment.Status, payload *payment.StatusPayload, isRefund bool) {
	if r.recordTranslogs {
		raw, err := json.Marshal(payload)
		if err == nil {
			entry := &translog.Entry{
				OrderNo:       o.OrderNo,
				TransactionID: payload.ID,
				Status:        string(payload.Status),
				Payload:       raw,
				CorrelationID: o.CorrelationID.String(),
				CreatedAt:     time.Now(),
			}
			if payload.StatusOutput != nil {
				entry.StatusLastChange = payload.StatusOutput.StatusCodeChangeDateTime
			}
			if err := r.translogs.Append(ctx, entry); err != nil {
				r.logger.Error("Failed to append transaction log entry", "order_no", o.OrderNo, "error", err)
			}
		}
	}

	if !isRefund && previous != payload.Status {
		if payload.Status == payment.StatusPendingFraudApproval {
			r.notifier.FraudReviewRequired(ctx, o)
		}
		r.notifier.StatusChanged(ctx, o, previous, payload.Status)
	}

	event := &shared.PaymentStatusEvent{
		OrderNo:        o.OrderNo,
		TransactionID:  payload.ID,
		PreviousStatus: string(previous),
		Status:         string(payload.Status),
		IsRefund:       isRefund,
		CorrelationID:  o.CorrelationID.String(),
		OccurredAt:     time.Now(),
	}
	if payload.StatusOutput != nil {
		event.StatusCode = payload.StatusOutput.StatusCode
	}
	if isRefund {
		if payload.RefundOutput.AmountOfMoney != nil {
			event.AmountMinor = payload.RefundOutput.AmountOfMoney.Amount
			event.CurrencyCode = payload.RefundOutput.AmountOfMoney.CurrencyCode
		}
	} else if payload.PaymentOutput != nil && payload.PaymentOutput.AmountOfMoney != nil {
		event.AmountMinor = payload.PaymentOutput.AmountOfMoney.Amount
		event.CurrencyCode = payload.PaymentOutput.AmountOfMoney.CurrencyCode
	}
	if err := r.publisher.PublishStatusEvent(ctx, event); err != nil {
		r.logger.Error("Failed to publish status event", "order_no", o.OrderNo, "error", err)
	}
}
