package order

import "time"

// Method identifies how the shopper chose to pay
type Method string

const (
	MethodCreditCard       Method = "CREDIT_CARD"
	MethodHostedCreditCard Method = "HOSTED_CREDIT_CARD"
	MethodHostedPayPal     Method = "HOSTED_PAYPAL"
	MethodHostedIdeal      Method = "HOSTED_IDEAL"
)

// Processor names the gateway flow handling the instrument
type Processor string

const (
	ProcessorGatewayCredit Processor = "GATEWAY_CREDIT"
	ProcessorGatewayHosted Processor = "GATEWAY_HOSTED"
)

// PaymentInstrument carries the gateway references and card summary for an
// order's payment
type PaymentInstrument struct {
	OrderNo            string    `json:"order_no"`
	Method             Method    `json:"method"`
	Processor          Processor `json:"processor"`
	TransactionID      string    `json:"transaction_id,omitempty"` // Gateway payment id, first write wins
	ProcessorRef       string    `json:"processor_ref,omitempty"`
	HostedCheckoutID   string    `json:"hosted_checkout_id,omitempty"`
	AuthorizedAmount   int64     `json:"authorized_amount"` // Minor units
	AuthorizedCurrency string    `json:"authorized_currency,omitempty"`
	CardHolder         string    `json:"card_holder,omitempty"`
	MaskedCardNumber   string    `json:"masked_card_number,omitempty"`
	CardExpiry         string    `json:"card_expiry,omitempty"` // MMyy
	PaymentProductID   int       `json:"payment_product_id,omitempty"`
	Token              string    `json:"token,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// AssignTransactionID records the gateway payment id. The first assignment
// wins; later payloads carry the same id or must not overwrite a
// concurrently written one.
func (i *PaymentInstrument) AssignTransactionID(id string) bool {
	if i.TransactionID != "" || id == "" {
		return false
	}
	i.TransactionID = id
	i.UpdatedAt = time.Now()
	return true
}

// AssignProcessorRef records the processor reference, first write wins
func (i *PaymentInstrument) AssignProcessorRef(ref string) bool {
	if i.ProcessorRef != "" || ref == "" {
		return false
	}
	i.ProcessorRef = ref
	i.UpdatedAt = time.Now()
	return true
}

// SetAuthorizedAmount overwrites the authorized amount from an authoritative
// gateway payload
func (i *PaymentInstrument) SetAuthorizedAmount(amount int64, currency string) {
	i.AuthorizedAmount = amount
	if currency != "" {
		i.AuthorizedCurrency = currency
	}
	i.UpdatedAt = time.Now()
}

// IsHosted reports whether the instrument pays through a hosted checkout
func (i *PaymentInstrument) IsHosted() bool {
	return i.Processor == ProcessorGatewayHosted
}
