package order

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository defines order persistence operations. Update applies an
// optimistic version check and persists the order together with its payment
// instrument and ledger document.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByOrderNo(ctx context.Context, orderNo string) (*Order, error)
	GetByHostedCheckoutID(ctx context.Context, hostedCheckoutID string) (*Order, error)
	ListByGatewayStatus(ctx context.Context, gatewayStatus string, limit, offset int) ([]*Order, error)
	Update(ctx context.Context, o *Order) error
	AddNote(ctx context.Context, orderNo, subject, body string) error
	WithTx(tx pgx.Tx) Repository
}

// ErrOrderNotFound indicates a missing order
type ErrOrderNotFound struct {
	OrderNo string
}

func (e ErrOrderNotFound) Error() string {
	return "order not found: " + e.OrderNo
}

// Is implements the errors.Is interface for ErrOrderNotFound
func (e ErrOrderNotFound) Is(target error) bool {
	t, ok := target.(ErrOrderNotFound)
	if !ok {
		return false
	}
	// An empty target OrderNo matches any ErrOrderNotFound
	if t.OrderNo == "" {
		return true
	}
	return e.OrderNo == t.OrderNo
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	OrderNo string
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for order: " + e.OrderNo
}

// Is implements the errors.Is interface for ErrConcurrentModification
func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	if t.OrderNo == "" {
		return true
	}
	return e.OrderNo == t.OrderNo
}

// ErrDuplicateOrder indicates order number uniqueness violation
type ErrDuplicateOrder struct {
	OrderNo string
}

func (e ErrDuplicateOrder) Error() string {
	return "order already exists: " + e.OrderNo
}
