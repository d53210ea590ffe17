package gateway

import "github.com/gateway-payment-bridge/internal/domain/payment"

// Request payloads for the gateway API. Field names follow the gateway's
// JSON contract; amounts are always minor units.

// CreatePaymentRequest creates a payment or, with the hosted checkout input
// set, a hosted checkout session
type CreatePaymentRequest struct {
	CardPaymentMethodSpecificInput     *CardInput           `json:"cardPaymentMethodSpecificInput,omitempty"`
	RedirectPaymentMethodSpecificInput *RedirectInput       `json:"redirectPaymentMethodSpecificInput,omitempty"`
	HostedCheckoutSpecificInput        *HostedCheckoutInput `json:"hostedCheckoutSpecificInput,omitempty"`
	FraudFields                        *FraudFields         `json:"fraudFields,omitempty"`
	Order                              OrderInput           `json:"order"`
}

// CardInput is the direct-card payment input
type CardInput struct {
	Card               *CardDetails `json:"card,omitempty"`
	CustomerReference  string       `json:"customerReference,omitempty"`
	PaymentProductID   int          `json:"paymentProductId,omitempty"`
	RequiresApproval   bool         `json:"requiresApproval"`
	ReturnURL          string       `json:"returnUrl,omitempty"`
	SkipAuthentication bool         `json:"skipAuthentication"`
	SkipFraudService   bool         `json:"skipFraudService"`
	Token              string       `json:"token,omitempty"`
	Tokenize           bool         `json:"tokenize"`
	TransactionChannel string       `json:"transactionChannel,omitempty"` // ECOMMERCE or MOTO
}

// CardDetails carries raw card data. Never logged unmasked.
type CardDetails struct {
	CardNumber     string `json:"cardNumber,omitempty"`
	CardholderName string `json:"cardholderName,omitempty"`
	CVV            string `json:"cvv,omitempty"`
	ExpiryDate     string `json:"expiryDate,omitempty"` // MMyy
}

// RedirectInput is the redirect-product payment input (PayPal, iDeal, ...)
type RedirectInput struct {
	ExpirationPeriod               int         `json:"expirationPeriod,omitempty"` // Minutes to complete
	IsRecurring                    bool        `json:"isRecurring"`
	PaymentProductID               int         `json:"paymentProductId"`
	RequiresApproval               bool        `json:"requiresApproval"`
	ReturnURL                      string      `json:"returnUrl,omitempty"`
	Token                          string      `json:"token,omitempty"`
	PaymentProduct809SpecificInput *IdealInput `json:"paymentProduct809SpecificInput,omitempty"`
}

// IdealInput selects the issuing bank for iDeal payments
type IdealInput struct {
	IssuerID string `json:"issuerId,omitempty"`
}

// HostedCheckoutInput configures a hosted checkout session
type HostedCheckoutInput struct {
	Locale            string `json:"locale,omitempty"`
	ReturnURL         string `json:"returnUrl,omitempty"`
	ShowResultPage    bool   `json:"showResultPage"`
	ReturnCancelState bool   `json:"returnCancelState"`
	Tokens            string `json:"tokens,omitempty"` // Comma-separated stored tokens
}

// FraudFields feeds the gateway's fraud screening
type FraudFields struct {
	CustomerIPAddress string `json:"customerIpAddress,omitempty"`
}

// OrderInput is the order section of a create-payment request
type OrderInput struct {
	AmountOfMoney payment.AmountOfMoney `json:"amountOfMoney"`
	Customer      CustomerInput         `json:"customer"`
	References    OrderReferences       `json:"references"`
	ShoppingCart  *ShoppingCart         `json:"shoppingCart,omitempty"`
}

// CustomerInput describes the paying customer
type CustomerInput struct {
	BillingAddress      *AddressInput        `json:"billingAddress,omitempty"`
	ContactDetails      *ContactDetails      `json:"contactDetails,omitempty"`
	Locale              string               `json:"locale,omitempty"`
	MerchantCustomerID  string               `json:"merchantCustomerId,omitempty"`
	PersonalInformation *PersonalInformation `json:"personalInformation,omitempty"`
	ShippingAddress     *AddressInput        `json:"shippingAddress,omitempty"`
}

// AddressInput is a gateway-normalized address
type AddressInput struct {
	AdditionalInfo string     `json:"additionalInfo,omitempty"`
	City           string     `json:"city,omitempty"`
	CountryCode    string     `json:"countryCode,omitempty"`
	State          string     `json:"state,omitempty"`
	Street         string     `json:"street,omitempty"`
	Zip            string     `json:"zip,omitempty"`
	Name           *NameInput `json:"name,omitempty"`
}

// NameInput is a person's name split the gateway's way
type NameInput struct {
	FirstName string `json:"firstName,omitempty"`
	Surname   string `json:"surname,omitempty"`
}

// ContactDetails carries customer contact information
type ContactDetails struct {
	EmailAddress     string `json:"emailAddress,omitempty"`
	EmailMessageType string `json:"emailMessageType,omitempty"` // plain-text or html
	PhoneNumber      string `json:"phoneNumber,omitempty"`
}

// PersonalInformation wraps the customer name
type PersonalInformation struct {
	Name *NameInput `json:"name,omitempty"`
}

// OrderReferences ties the payment to the merchant order
type OrderReferences struct {
	Descriptor        string `json:"descriptor,omitempty"` // Card statement text
	MerchantReference string `json:"merchantReference,omitempty"`
}

// ShoppingCart is the line item detail of the order
type ShoppingCart struct {
	AmountBreakdown []AmountBreakdown `json:"amountBreakdown,omitempty"`
	Items           []CartItem        `json:"items"`
}

// AmountBreakdown is one component of the order total (SHIPPING, VAT, ...)
type AmountBreakdown struct {
	Amount int64  `json:"amount"`
	Type   string `json:"type"`
}

// CartItem is one order line in gateway form
type CartItem struct {
	AmountOfMoney    payment.AmountOfMoney `json:"amountOfMoney"`
	InvoiceData      InvoiceData           `json:"invoiceData"`
	OrderLineDetails OrderLineDetails      `json:"orderLineDetails"`
}

// InvoiceData is the invoice view of a cart item
type InvoiceData struct {
	Description        string `json:"description,omitempty"`
	MerchantLinenumber int    `json:"merchantLinenumber,omitempty"`
	NrOfItems          int64  `json:"nrOfItems"`
	PricePerItem       int64  `json:"pricePerItem"`
}

// OrderLineDetails is the pricing breakdown of a cart item. All amounts
// derive from the unit price, never from line totals.
type OrderLineDetails struct {
	DiscountAmount  int64  `json:"discountAmount"`
	LineAmountTotal int64  `json:"lineAmountTotal"`
	ProductCode     string `json:"productCode,omitempty"` // Truncated to 12 chars
	ProductPrice    int64  `json:"productPrice"`
	Quantity        int64  `json:"quantity"`
	TaxAmount       int64  `json:"taxAmount"`
}

// ApprovePaymentRequest approves a payment pending merchant approval
type ApprovePaymentRequest struct {
	Amount int64         `json:"amount,omitempty"`
	Order  *ApproveOrder `json:"order,omitempty"`
}

// ApproveOrder carries the merchant reference on an approval
type ApproveOrder struct {
	References *OrderReferences `json:"references,omitempty"`
}

// RefundRequest creates a refund against a payment
type RefundRequest struct {
	AmountOfMoney   payment.AmountOfMoney `json:"amountOfMoney"`
	Customer        *RefundCustomer       `json:"customer,omitempty"`
	RefundDate      string                `json:"refundDate,omitempty"` // yyyyMMdd
	RefundReference *RefundReference      `json:"refundReference,omitempty"`
}

// RefundCustomer identifies the refund recipient
type RefundCustomer struct {
	Address        *AddressInput   `json:"address,omitempty"`
	ContactDetails *ContactDetails `json:"contactDetails,omitempty"`
}

// RefundReference is the merchant-side refund reference
type RefundReference struct {
	MerchantReference string `json:"merchantReference,omitempty"`
}

// IINDetailsRequest looks up the payment product for a card number prefix
type IINDetailsRequest struct {
	Bin string `json:"bin"`
}

// CreateTokenRequest tokenizes a card for later use
type CreateTokenRequest struct {
	Card             *TokenCard `json:"card,omitempty"`
	PaymentProductID int        `json:"paymentProductId,omitempty"`
}

// TokenCard is the card section of a tokenize request
type TokenCard struct {
	Customer *CustomerInput `json:"customer,omitempty"`
	Data     *TokenCardData `json:"data,omitempty"`
}

// TokenCardData wraps the card to tokenize
type TokenCardData struct {
	CardWithoutCvv *CardDetails `json:"cardWithoutCvv,omitempty"`
}
