package payment

import "errors"

// Common errors
var (
	ErrMissingPaymentID      = errors.New("payload is missing the gateway payment id")
	ErrMissingStatus         = errors.New("payload is missing the payment status")
	ErrNoMethodOutput        = errors.New("payment output carries no method-specific output")
	ErrAmbiguousMethodOutput = errors.New("payment output carries more than one method-specific output")
)

// AmountOfMoney is a gateway amount in minor units with its ISO currency code
type AmountOfMoney struct {
	Amount       int64  `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

// StatusOutput carries the gateway's machine-readable status detail
type StatusOutput struct {
	StatusCategory           string `json:"statusCategory,omitempty"`
	StatusCode               int    `json:"statusCode"`
	StatusCodeChangeDateTime string `json:"statusCodeChangeDateTime,omitempty"` // yyyyMMddHHmmss
	IsCancellable            bool   `json:"isCancellable,omitempty"`
	IsAuthorized             bool   `json:"isAuthorized,omitempty"`
	IsRefundable             bool   `json:"isRefundable,omitempty"`
}

// References links a gateway object back to merchant identifiers
type References struct {
	MerchantReference  string `json:"merchantReference,omitempty"`
	MerchantParameters string `json:"merchantParameters,omitempty"`
	PaymentReference   string `json:"paymentReference,omitempty"`
}

// CardEssentials is the card summary echoed back by the gateway
type CardEssentials struct {
	CardNumber string `json:"cardNumber,omitempty"` // Masked by the gateway
	ExpiryDate string `json:"expiryDate,omitempty"` // MMyy
}

// CardMethodOutput is returned for direct card payments
type CardMethodOutput struct {
	AuthorisationCode string          `json:"authorisationCode,omitempty"`
	Card              *CardEssentials `json:"card,omitempty"`
	FraudResults      *FraudResults   `json:"fraudResults,omitempty"`
	PaymentProductID  int             `json:"paymentProductId,omitempty"`
	Token             string          `json:"token,omitempty"`
}

// FraudResults carries the gateway fraud screening outcome
type FraudResults struct {
	FraudServiceResult string `json:"fraudServiceResult,omitempty"`
	AvsResult          string `json:"avsResult,omitempty"`
	CvvResult          string `json:"cvvResult,omitempty"`
}

// CashMethodOutput is returned for cash-like payment products
type CashMethodOutput struct {
	PaymentProductID int `json:"paymentProductId,omitempty"`
}

// RedirectMethodOutput is returned for redirect products such as PayPal and iDeal
type RedirectMethodOutput struct {
	AuthorisationCode string           `json:"authorisationCode,omitempty"`
	PaymentProductID  int              `json:"paymentProductId,omitempty"`
	BankAccountIban   *BankAccountIban `json:"bankAccountIban,omitempty"`
	PaymentReference  string           `json:"paymentReference,omitempty"`
	Token             string           `json:"token,omitempty"`
}

// BankAccountIban identifies the shopper account for IBAN-based products
type BankAccountIban struct {
	Iban              string `json:"iban,omitempty"`
	AccountHolderName string `json:"accountHolderName,omitempty"`
}

// MobileMethodOutput is returned for mobile wallet payments
type MobileMethodOutput struct {
	AuthorisationCode string `json:"authorisationCode,omitempty"`
	PaymentProductID  int    `json:"paymentProductId,omitempty"`
}

// InvoiceMethodOutput is returned for invoice payments
type InvoiceMethodOutput struct {
	PaymentProductID int `json:"paymentProductId,omitempty"`
}

// BankTransferMethodOutput is returned for bank transfer payments
type BankTransferMethodOutput struct {
	PaymentProductID int `json:"paymentProductId,omitempty"`
}

// DirectDebitMethodOutput is returned for direct debit payments
type DirectDebitMethodOutput struct {
	PaymentProductID int `json:"paymentProductId,omitempty"`
}

// PaymentOutput describes the payment side of a status payload. Exactly one
// of the method-specific outputs must be populated.
type PaymentOutput struct {
	AmountOfMoney *AmountOfMoney `json:"amountOfMoney,omitempty"`
	References    *References    `json:"references,omitempty"`
	PaymentMethod string         `json:"paymentMethod,omitempty"`

	CardPaymentMethodSpecificOutput         *CardMethodOutput         `json:"cardPaymentMethodSpecificOutput,omitempty"`
	CashPaymentMethodSpecificOutput         *CashMethodOutput         `json:"cashPaymentMethodSpecificOutput,omitempty"`
	RedirectPaymentMethodSpecificOutput     *RedirectMethodOutput     `json:"redirectPaymentMethodSpecificOutput,omitempty"`
	MobilePaymentMethodSpecificOutput       *MobileMethodOutput       `json:"mobilePaymentMethodSpecificOutput,omitempty"`
	InvoicePaymentMethodSpecificOutput      *InvoiceMethodOutput      `json:"invoicePaymentMethodSpecificOutput,omitempty"`
	BankTransferPaymentMethodSpecificOutput *BankTransferMethodOutput `json:"bankTransferPaymentMethodSpecificOutput,omitempty"`
	DirectDebitPaymentMethodSpecificOutput  *DirectDebitMethodOutput  `json:"directDebitPaymentMethodSpecificOutput,omitempty"`
}

// RefundOutput describes the refund side of a status payload
type RefundOutput struct {
	AmountOfMoney *AmountOfMoney `json:"amountOfMoney,omitempty"`
	References    *References    `json:"references,omitempty"`
}

// StatusPayload is a payment or refund status update from the gateway,
// whether pushed over the webhook or pulled via a status call.
type StatusPayload struct {
	ID            string         `json:"id"`
	Status        Status         `json:"status"`
	StatusOutput  *StatusOutput  `json:"statusOutput,omitempty"`
	PaymentOutput *PaymentOutput `json:"paymentOutput,omitempty"`
	RefundOutput  *RefundOutput  `json:"refundOutput,omitempty"`
}

// Validate checks the minimal shape every status payload must have
func (p *StatusPayload) Validate() error {
	if p == nil || p.ID == "" {
		return ErrMissingPaymentID
	}
	if p.Status == "" {
		return ErrMissingStatus
	}
	return nil
}

// MethodKind identifies which method-specific output a payment carries
type MethodKind string

const (
	MethodCard         MethodKind = "card"
	MethodCash         MethodKind = "cash"
	MethodRedirect     MethodKind = "redirect"
	MethodMobile       MethodKind = "mobile"
	MethodInvoice      MethodKind = "invoice"
	MethodBankTransfer MethodKind = "bankTransfer"
	MethodDirectDebit  MethodKind = "directDebit"
)

// MethodOutput resolves the single populated method-specific output.
// A payment output with zero or more than one populated variant is malformed.
func (o *PaymentOutput) MethodOutput() (MethodKind, error) {
	var kind MethodKind
	count := 0
	if o.CardPaymentMethodSpecificOutput != nil {
		kind = MethodCard
		count++
	}
	if o.CashPaymentMethodSpecificOutput != nil {
		kind = MethodCash
		count++
	}
	if o.RedirectPaymentMethodSpecificOutput != nil {
		kind = MethodRedirect
		count++
	}
	if o.MobilePaymentMethodSpecificOutput != nil {
		kind = MethodMobile
		count++
	}
	if o.InvoicePaymentMethodSpecificOutput != nil {
		kind = MethodInvoice
		count++
	}
	if o.BankTransferPaymentMethodSpecificOutput != nil {
		kind = MethodBankTransfer
		count++
	}
	if o.DirectDebitPaymentMethodSpecificOutput != nil {
		kind = MethodDirectDebit
		count++
	}
	switch count {
	case 0:
		return "", ErrNoMethodOutput
	case 1:
		return kind, nil
	default:
		return "", ErrAmbiguousMethodOutput
	}
}

// AuthorisationCode extracts the authorisation code from whichever method
// output carries one. Empty when the method has no such concept.
func (o *PaymentOutput) AuthorisationCode() string {
	kind, err := o.MethodOutput()
	if err != nil {
		return ""
	}
	switch kind {
	case MethodCard:
		return o.CardPaymentMethodSpecificOutput.AuthorisationCode
	case MethodRedirect:
		return o.RedirectPaymentMethodSpecificOutput.AuthorisationCode
	case MethodMobile:
		return o.MobilePaymentMethodSpecificOutput.AuthorisationCode
	}
	return ""
}

// MerchantReference returns the merchant order reference carried by the
// payload, if any
func (p *StatusPayload) MerchantReference() string {
	if p.PaymentOutput != nil && p.PaymentOutput.References != nil {
		return p.PaymentOutput.References.MerchantReference
	}
	if p.RefundOutput != nil && p.RefundOutput.References != nil {
		return p.RefundOutput.References.MerchantReference
	}
	return ""
}
