// Package order models merchant orders and their payment instruments as the
// bridge sees them: enough order state to reconcile gateway payment updates,
// drive export, and build gateway payloads.
package order

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrEmptyOrderNo        = errors.New("order number cannot be empty")
	ErrEmptyCurrency       = errors.New("currency must be a 3-letter code")
	ErrNoLineItems         = errors.New("order must contain at least one line item")
	ErrAlreadyPlaced       = errors.New("order has already been placed")
	ErrOrderTerminal       = errors.New("order is in a terminal state")
	ErrCorrelationMismatch = errors.New("correlation id does not match order")
)

// Status is the order lifecycle state
type Status string

const (
	StatusCreated   Status = "CREATED" // Placed by the shopper, payment not confirmed
	StatusNew       Status = "NEW"
	StatusOpen      Status = "OPEN"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusFailed    Status = "FAILED"
)

// ExportStatus gates downstream fulfilment export
type ExportStatus string

const (
	ExportNotExported ExportStatus = "NOTEXPORTED"
	ExportReady       ExportStatus = "READY"
	ExportExported    ExportStatus = "EXPORTED"
)

// PaymentStatus is the order-level paid marker
type PaymentStatus string

const (
	PaymentNotPaid  PaymentStatus = "NOTPAID"
	PaymentPartPaid PaymentStatus = "PARTPAID"
	PaymentPaid     PaymentStatus = "PAID"
)

// Address is a billing or shipping address in the normalized form the
// gateway accepts
type Address struct {
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Address1    string `json:"address1,omitempty"`
	Address2    string `json:"address2,omitempty"`
	City        string `json:"city,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
	StateCode   string `json:"state_code,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// LineItem is one order line. Unit prices are decimal major units; the
// discounted price is what the shopper actually pays per unit.
type LineItem struct {
	ProductID           string  `json:"product_id"`
	ProductName         string  `json:"product_name,omitempty"`
	Quantity            int64   `json:"quantity"`
	BaseUnitPrice       float64 `json:"base_unit_price"`
	DiscountedUnitPrice float64 `json:"discounted_unit_price"`
	TaxAmount           float64 `json:"tax_amount,omitempty"` // Total tax for the line
}

// Order is a merchant order awaiting or carrying payment
type Order struct {
	OrderNo          string             `json:"order_no"`
	CorrelationID    uuid.UUID          `json:"correlation_id"` // Authorizes admin payment actions
	Status           Status             `json:"status"`
	ExportStatus     ExportStatus       `json:"export_status"`
	PaymentStatus    PaymentStatus      `json:"payment_status"`
	GatewayStatus    string             `json:"gateway_status,omitempty"` // Last applied gateway payment status
	RefundIDs        []string           `json:"refund_ids,omitempty"`
	CustomerNo       string             `json:"customer_no,omitempty"`
	CustomerName     string             `json:"customer_name,omitempty"`
	CustomerEmail    string             `json:"customer_email,omitempty"`
	LocaleID         string             `json:"locale_id,omitempty"`
	Currency         string             `json:"currency"`
	TotalGrossAmount float64            `json:"total_gross_amount"` // Decimal major units
	ShippingTotal    float64            `json:"shipping_total,omitempty"`
	TotalTax         float64            `json:"total_tax,omitempty"`
	BillingAddress   Address            `json:"billing_address"`
	ShippingAddress  Address            `json:"shipping_address"`
	LineItems        []LineItem         `json:"line_items"`
	LedgerRaw        json.RawMessage    `json:"ledger,omitempty"` // Payment ledger document, parsed on use
	Instrument       *PaymentInstrument `json:"instrument,omitempty"`
	Version          int                `json:"version"` // For optimistic locking
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// NewOrder creates an order in CREATED state with a fresh correlation id
func NewOrder(orderNo string, currency string, totalGross float64, items []LineItem) (*Order, error) {
	if orderNo == "" {
		return nil, ErrEmptyOrderNo
	}
	if len(currency) != 3 {
		return nil, ErrEmptyCurrency
	}
	if len(items) == 0 {
		return nil, ErrNoLineItems
	}

	now := time.Now()
	return &Order{
		OrderNo:          orderNo,
		CorrelationID:    uuid.New(),
		Status:           StatusCreated,
		ExportStatus:     ExportNotExported,
		PaymentStatus:    PaymentNotPaid,
		Currency:         currency,
		TotalGrossAmount: totalGross,
		LineItems:        items,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// IsTerminal reports whether the order can no longer change state
func (o *Order) IsTerminal() bool {
	return o.Status == StatusCancelled || o.Status == StatusFailed
}

// Place confirms a CREATED order into the open order book
func (o *Order) Place() error {
	if o.Status != StatusCreated {
		return ErrAlreadyPlaced
	}
	o.Status = StatusNew
	o.touch()
	return nil
}

// Fail marks a never-confirmed order as failed. Only CREATED orders fail;
// confirmed orders are cancelled instead.
func (o *Order) Fail() {
	o.Status = StatusFailed
	o.touch()
}

// Cancel cancels the order unless it is already terminal
func (o *Order) Cancel() error {
	if o.IsTerminal() {
		return ErrOrderTerminal
	}
	o.Status = StatusCancelled
	o.touch()
	return nil
}

// MarkSettled flags the order as paid and ready for export. An order that
// fulfilment has already exported keeps its EXPORTED status, so a repeated
// settlement notification cannot re-queue it for export.
func (o *Order) MarkSettled() {
	if o.ExportStatus != ExportExported {
		o.ExportStatus = ExportReady
	}
	o.PaymentStatus = PaymentPaid
	o.touch()
}

// MarkAwaitingPayment holds the order back from export while the payment is
// pending
func (o *Order) MarkAwaitingPayment() {
	o.ExportStatus = ExportNotExported
	o.touch()
}

// SetGatewayStatus records the last applied gateway payment status
func (o *Order) SetGatewayStatus(status string) {
	o.GatewayStatus = status
	o.touch()
}

// AddRefundID adds a refund id to the order's index if not already present
func (o *Order) AddRefundID(id string) {
	for _, existing := range o.RefundIDs {
		if existing == id {
			return
		}
	}
	o.RefundIDs = append(o.RefundIDs, id)
	o.touch()
}

// VerifyCorrelation checks the caller-supplied correlation id against the
// order's. Admin payment actions require it.
func (o *Order) VerifyCorrelation(id uuid.UUID) error {
	if o.CorrelationID != id {
		return ErrCorrelationMismatch
	}
	return nil
}

// touch only refreshes the timestamp. The version column is advanced by the
// repository on a successful optimistic update, not by domain mutations.
func (o *Order) touch() {
	o.UpdatedAt = time.Now()
}
