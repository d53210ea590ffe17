package notification

import (
	"context"
	"log/slog"

	"github.com/panjf2000/ants/v2"

	"github.com/gateway-payment-bridge/internal/config"
	"github.com/gateway-payment-bridge/internal/domain/order"
	"github.com/gateway-payment-bridge/internal/domain/payment"
	"github.com/gateway-payment-bridge/internal/platform/metrics"
)

// Dispatcher maps payment status changes to emails and sends them on a
// worker pool. Each template is individually switchable in configuration.
type Dispatcher struct {
	cfg     config.NotificationsConfig
	sender  Sender
	pool    *ants.Pool
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher backed by a worker pool of the given size
func NewDispatcher(cfg config.NotificationsConfig, sender Sender, poolSize int, m *metrics.Metrics, logger *slog.Logger) (*Dispatcher, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	return &Dispatcher{
		cfg:     cfg,
		sender:  sender,
		pool:    pool,
		metrics: m,
		logger:  logger,
	}, nil
}

// StatusChanged sends the customer email for the new payment status, if that
// status has a template and the template is enabled
func (d *Dispatcher) StatusChanged(ctx context.Context, o *order.Order, previous, current payment.Status) {
	tmpl, enabled := d.templateFor(current)
	if tmpl == "" {
		d.logger.Warn("No notification template for payment status", "order_no", o.OrderNo, "status", string(current))
		return
	}
	if !enabled {
		return
	}
	if o.CustomerEmail == "" {
		d.logger.Warn("Order has no customer email, skipping notification", "order_no", o.OrderNo, "template", string(tmpl))
		return
	}

	subject, body := renderCustomer(tmpl, o)
	d.send(ctx, tmpl, o.CustomerEmail, subject, body)
}

// FraudReviewRequired alerts the fraud manager that an order needs a manual
// decision
func (d *Dispatcher) FraudReviewRequired(ctx context.Context, o *order.Order) {
	if !d.cfg.SendFraudManager || d.cfg.FraudManagerEmail == "" {
		return
	}

	subject, body := renderFraudReview(o)
	d.send(ctx, TemplateFraudReview, d.cfg.FraudManagerEmail, subject, body)
}

// Shutdown releases the worker pool
func (d *Dispatcher) Shutdown() {
	d.pool.Release()
}

func (d *Dispatcher) templateFor(status payment.Status) (Template, bool) {
	switch status {
	case payment.StatusPendingFraudApproval:
		return TemplateFraudApproval, d.cfg.SendFraudApproval
	case payment.StatusPendingApproval, payment.StatusPendingCapture:
		return TemplatePendingApproval, d.cfg.SendPendingApproval
	case payment.StatusPaid, payment.StatusCaptured:
		return TemplatePaid, d.cfg.SendPaid
	case payment.StatusRedirected:
		return TemplateRedirected, d.cfg.SendRedirected
	case payment.StatusCaptureRequested, payment.StatusPendingPayment:
		return TemplateWaitingPayment, d.cfg.SendWaitingPayment
	case payment.StatusRejected, payment.StatusCancelled, payment.StatusRejectedCapture:
		return TemplateUnsuccessful, d.cfg.SendUnsuccessful
	}
	return "", false
}

func (d *Dispatcher) send(ctx context.Context, tmpl Template, to, subject, body string) {
	err := d.pool.Submit(func() {
		if err := d.sender.Send(ctx, to, subject, body); err != nil {
			d.logger.Error("Failed to send notification email", "template", string(tmpl), "error", err)
			return
		}
		d.metrics.EmailsSent.WithLabelValues(string(tmpl)).Inc()
	})
	if err != nil {
		d.logger.Error("Failed to submit notification to worker pool", "template", string(tmpl), "error", err)
	}
}
