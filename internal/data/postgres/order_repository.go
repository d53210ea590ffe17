// Package postgres provides PostgreSQL implementations of the domain
// repositories. The order row carries the addresses, line items and the
// payment ledger as jsonb documents; the payment instrument lives in its own
// table keyed by order number.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gateway-payment-bridge/internal/domain/order"
	"github.com/gateway-payment-bridge/internal/platform/persistence"
)

const pgUniqueViolation = "23505"

// OrderRepository implements the order.Repository interface for PostgreSQL
type OrderRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewOrderRepository creates a new PostgreSQL order repository
func NewOrderRepository(logger *slog.Logger, db *persistence.PostgresDB) order.Repository {
	return &OrderRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so order and instrument
// writes commit atomically with the caller's other changes
func (r *OrderRepository) WithTx(tx pgx.Tx) order.Repository {
	return &OrderRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new order and, when present, its payment instrument
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	billing, shipping, items, err := marshalOrderDocs(o)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO orders (
			order_no, correlation_id, status, export_status, payment_status,
			gateway_status, refund_ids, customer_no, customer_name, customer_email,
			locale_id, currency, total_gross_amount, shipping_total, total_tax,
			billing_address, shipping_address, line_items, ledger, version,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`

	_, err = r.querier.Exec(ctx, query,
		o.OrderNo,
		o.CorrelationID,
		o.Status,
		o.ExportStatus,
		o.PaymentStatus,
		o.GatewayStatus,
		o.RefundIDs,
		o.CustomerNo,
		o.CustomerName,
		o.CustomerEmail,
		o.LocaleID,
		o.Currency,
		o.TotalGrossAmount,
		o.ShippingTotal,
		o.TotalTax,
		billing,
		shipping,
		items,
		[]byte(o.LedgerRaw),
		o.Version,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return order.ErrDuplicateOrder{OrderNo: o.OrderNo}
		}
		r.logger.Error("Failed to create order", "order_no", o.OrderNo, "error", err)
		return fmt.Errorf("failed to create order: %w", err)
	}

	if o.Instrument != nil {
		if err := r.upsertInstrument(ctx, o.Instrument); err != nil {
			return err
		}
	}

	return nil
}

// GetByOrderNo retrieves an order with its payment instrument
func (r *OrderRepository) GetByOrderNo(ctx context.Context, orderNo string) (*order.Order, error) {
	query := orderSelectColumns + `
		FROM orders
		WHERE order_no = $1
	`

	o, err := r.scanOrder(r.querier.QueryRow(ctx, query, orderNo))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound{OrderNo: orderNo}
		}
		r.logger.Error("Failed to get order", "order_no", orderNo, "error", err)
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if err := r.attachInstrument(ctx, o); err != nil {
		return nil, err
	}

	return o, nil
}

// GetByHostedCheckoutID retrieves the order whose instrument references the
// given hosted checkout session
func (r *OrderRepository) GetByHostedCheckoutID(ctx context.Context, hostedCheckoutID string) (*order.Order, error) {
	query := `
		SELECT order_no
		FROM payment_instruments
		WHERE hosted_checkout_id = $1
	`

	var orderNo string
	err := r.querier.QueryRow(ctx, query, hostedCheckoutID).Scan(&orderNo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound{}
		}
		r.logger.Error("Failed to resolve hosted checkout", "hosted_checkout_id", hostedCheckoutID, "error", err)
		return nil, fmt.Errorf("failed to resolve hosted checkout: %w", err)
	}

	return r.GetByOrderNo(ctx, orderNo)
}

// ListByGatewayStatus retrieves orders whose last applied gateway status
// matches, newest first. Instruments are attached to each returned order.
func (r *OrderRepository) ListByGatewayStatus(ctx context.Context, gatewayStatus string, limit, offset int) ([]*order.Order, error) {
	query := orderSelectColumns + `
		FROM orders
		WHERE gateway_status = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, gatewayStatus, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list orders", "gateway_status", gatewayStatus, "error", err)
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*order.Order
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order rows: %w", err)
	}

	for _, o := range orders {
		if err := r.attachInstrument(ctx, o); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

// Update persists the order and its instrument under an optimistic version
// check. The version column advances here, not in the domain model, so one
// reconciliation counts as one version step no matter how many fields moved.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	billing, shipping, items, err := marshalOrderDocs(o)
	if err != nil {
		return err
	}

	query := `
		UPDATE orders
		SET status = $1, export_status = $2, payment_status = $3, gateway_status = $4,
			refund_ids = $5, customer_no = $6, customer_name = $7, customer_email = $8,
			locale_id = $9, billing_address = $10, shipping_address = $11,
			line_items = $12, ledger = $13, version = version + 1, updated_at = $14
		WHERE order_no = $15 AND version = $16
	`

	result, err := r.querier.Exec(ctx, query,
		o.Status,
		o.ExportStatus,
		o.PaymentStatus,
		o.GatewayStatus,
		o.RefundIDs,
		o.CustomerNo,
		o.CustomerName,
		o.CustomerEmail,
		o.LocaleID,
		billing,
		shipping,
		items,
		[]byte(o.LedgerRaw),
		o.UpdatedAt,
		o.OrderNo,
		o.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update order", "order_no", o.OrderNo, "error", err)
		return fmt.Errorf("failed to update order: %w", err)
	}

	if result.RowsAffected() == 0 {
		return order.ErrConcurrentModification{OrderNo: o.OrderNo}
	}
	o.Version++

	if o.Instrument != nil {
		if err := r.upsertInstrument(ctx, o.Instrument); err != nil {
			return err
		}
	}

	return nil
}

// AddNote appends a back-office note to the order
func (r *OrderRepository) AddNote(ctx context.Context, orderNo, subject, body string) error {
	query := `
		INSERT INTO order_notes (order_no, subject, body, created_at)
		VALUES ($1, $2, $3, NOW())
	`

	_, err := r.querier.Exec(ctx, query, orderNo, subject, body)
	if err != nil {
		r.logger.Error("Failed to add order note", "order_no", orderNo, "error", err)
		return fmt.Errorf("failed to add order note: %w", err)
	}

	return nil
}

const orderSelectColumns = `
		SELECT order_no, correlation_id, status, export_status, payment_status,
			gateway_status, refund_ids, customer_no, customer_name, customer_email,
			locale_id, currency, total_gross_amount, shipping_total, total_tax,
			billing_address, shipping_address, line_items, ledger, version,
			created_at, updated_at`

func (r *OrderRepository) scanOrder(row pgx.Row) (*order.Order, error) {
	var o order.Order
	var billing, shipping, items, ledgerDoc []byte

	err := row.Scan(
		&o.OrderNo,
		&o.CorrelationID,
		&o.Status,
		&o.ExportStatus,
		&o.PaymentStatus,
		&o.GatewayStatus,
		&o.RefundIDs,
		&o.CustomerNo,
		&o.CustomerName,
		&o.CustomerEmail,
		&o.LocaleID,
		&o.Currency,
		&o.TotalGrossAmount,
		&o.ShippingTotal,
		&o.TotalTax,
		&billing,
		&shipping,
		&items,
		&ledgerDoc,
		&o.Version,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(billing) > 0 {
		if err := json.Unmarshal(billing, &o.BillingAddress); err != nil {
			return nil, fmt.Errorf("failed to decode billing address: %w", err)
		}
	}
	if len(shipping) > 0 {
		if err := json.Unmarshal(shipping, &o.ShippingAddress); err != nil {
			return nil, fmt.Errorf("failed to decode shipping address: %w", err)
		}
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.LineItems); err != nil {
			return nil, fmt.Errorf("failed to decode line items: %w", err)
		}
	}
	o.LedgerRaw = ledgerDoc

	return &o, nil
}

func (r *OrderRepository) attachInstrument(ctx context.Context, o *order.Order) error {
	query := `
		SELECT order_no, method, processor, transaction_id, processor_ref,
			hosted_checkout_id, authorized_amount, authorized_currency,
			card_holder, masked_card_number, card_expiry, payment_product_id,
			token, created_at, updated_at
		FROM payment_instruments
		WHERE order_no = $1
	`

	var inst order.PaymentInstrument
	err := r.querier.QueryRow(ctx, query, o.OrderNo).Scan(
		&inst.OrderNo,
		&inst.Method,
		&inst.Processor,
		&inst.TransactionID,
		&inst.ProcessorRef,
		&inst.HostedCheckoutID,
		&inst.AuthorizedAmount,
		&inst.AuthorizedCurrency,
		&inst.CardHolder,
		&inst.MaskedCardNumber,
		&inst.CardExpiry,
		&inst.PaymentProductID,
		&inst.Token,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil // Order has no payment instrument yet
		}
		r.logger.Error("Failed to get payment instrument", "order_no", o.OrderNo, "error", err)
		return fmt.Errorf("failed to get payment instrument: %w", err)
	}

	o.Instrument = &inst
	return nil
}

func (r *OrderRepository) upsertInstrument(ctx context.Context, inst *order.PaymentInstrument) error {
	query := `
		INSERT INTO payment_instruments (
			order_no, method, processor, transaction_id, processor_ref,
			hosted_checkout_id, authorized_amount, authorized_currency,
			card_holder, masked_card_number, card_expiry, payment_product_id,
			token, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (order_no) DO UPDATE SET
			transaction_id = EXCLUDED.transaction_id,
			processor_ref = EXCLUDED.processor_ref,
			hosted_checkout_id = EXCLUDED.hosted_checkout_id,
			authorized_amount = EXCLUDED.authorized_amount,
			authorized_currency = EXCLUDED.authorized_currency,
			card_holder = EXCLUDED.card_holder,
			masked_card_number = EXCLUDED.masked_card_number,
			card_expiry = EXCLUDED.card_expiry,
			payment_product_id = EXCLUDED.payment_product_id,
			token = EXCLUDED.token,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.querier.Exec(ctx, query,
		inst.OrderNo,
		inst.Method,
		inst.Processor,
		inst.TransactionID,
		inst.ProcessorRef,
		inst.HostedCheckoutID,
		inst.AuthorizedAmount,
		inst.AuthorizedCurrency,
		inst.CardHolder,
		inst.MaskedCardNumber,
		inst.CardExpiry,
		inst.PaymentProductID,
		inst.Token,
		inst.CreatedAt,
		inst.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert payment instrument", "order_no", inst.OrderNo, "error", err)
		return fmt.Errorf("failed to upsert payment instrument: %w", err)
	}

	return nil
}

func marshalOrderDocs(o *order.Order) (billing, shipping, items []byte, err error) {
	billing, err = json.Marshal(o.BillingAddress)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode billing address: %w", err)
	}
	shipping, err = json.Marshal(o.ShippingAddress)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode shipping address: %w", err)
	}
	items, err = json.Marshal(o.LineItems)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode line items: %w", err)
	}
	return billing, shipping, items, nil
}
