package shared

import "time"

// PaymentStatusEvent is published to the status topic after a gateway update
// has been applied to an order. Downstream consumers (fulfilment, reporting)
// key on the order number.
type PaymentStatusEvent struct {
	OrderNo        string    `json:"order_no"`
	TransactionID  string    `json:"transaction_id,omitempty"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	Status         string    `json:"status"`
	StatusCode     int       `json:"status_code,omitempty"`
	IsRefund       bool      `json:"is_refund,omitempty"`
	AmountMinor    int64     `json:"amount_minor,omitempty"`
	CurrencyCode   string    `json:"currency_code,omitempty"`
	CorrelationID  string    `json:"correlation_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
