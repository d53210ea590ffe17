package gateway

import (
	"strings"
	"time"

	"github.com/gateway-payment-bridge/internal/config"
	"github.com/gateway-payment-bridge/internal/domain/order"
	"github.com/gateway-payment-bridge/internal/domain/payment"
)

// Payment product ids for the redirect methods this bridge supports
const (
	ProductPayPal = 840
	ProductIdeal  = 809

	idealDefaultIssuer = "INGBNL2A"

	defaultLocale = "en_GB"

	redirectExpirationMinutes = 10
)

// CardSecrets carries the card data or vault token supplied at payment time.
// These values never touch the order store.
type CardSecrets struct {
	CardNumber string
	CVV        string
	Token      string
}

// PayloadBuilder builds gateway request payloads from orders. It is pure:
// every method derives its output from the order, the instrument and the
// builder's fixed settings.
type PayloadBuilder struct {
	SoftDescriptor  string
	Skip3DS         bool
	RequireApproval bool // true = AUTH with delayed settlement
	ReturnURL       string
}

// NewPayloadBuilder derives a builder from the gateway configuration
func NewPayloadBuilder(cfg config.GatewayConfig) *PayloadBuilder {
	return &PayloadBuilder{
		SoftDescriptor:  cfg.SoftDescriptor,
		Skip3DS:         cfg.Skip3DS,
		RequireApproval: cfg.RequireApproval,
		ReturnURL:       cfg.ReturnURL,
	}
}

// BuildCreatePayment assembles the create-payment request for an order. For
// hosted methods the card block is replaced by the hosted checkout input or a
// redirect input keyed by the payment product. storedTokens seeds the hosted
// page with the customer's saved cards. clientIP feeds fraud screening.
func (b *PayloadBuilder) BuildCreatePayment(o *order.Order, inst *order.PaymentInstrument, secrets CardSecrets, storedTokens []string, clientIP string) *CreatePaymentRequest {
	req := &CreatePaymentRequest{
		Order: b.buildOrderInput(o),
	}
	if clientIP != "" {
		req.FraudFields = &FraudFields{CustomerIPAddress: clientIP}
	}

	switch inst.Method {
	case order.MethodCreditCard:
		req.CardPaymentMethodSpecificInput = b.buildCardInput(o, inst, secrets)
	case order.MethodHostedCreditCard:
		req.HostedCheckoutSpecificInput = b.buildHostedInput(o, storedTokens)
		req.CardPaymentMethodSpecificInput = b.buildCardInput(o, inst, secrets)
	case order.MethodHostedPayPal:
		req.HostedCheckoutSpecificInput = b.buildHostedInput(o, storedTokens)
		req.RedirectPaymentMethodSpecificInput = b.buildRedirectInput(ProductPayPal)
	case order.MethodHostedIdeal:
		req.HostedCheckoutSpecificInput = b.buildHostedInput(o, storedTokens)
		redirect := b.buildRedirectInput(ProductIdeal)
		redirect.PaymentProduct809SpecificInput = &IdealInput{IssuerID: idealDefaultIssuer}
		req.RedirectPaymentMethodSpecificInput = redirect
	}

	return req
}

// BuildApprovePayment assembles the approve request for a pending payment
func (b *PayloadBuilder) BuildApprovePayment(o *order.Order, amountMinor int64) *ApprovePaymentRequest {
	return &ApprovePaymentRequest{
		Amount: amountMinor,
		Order: &ApproveOrder{
			References: &OrderReferences{MerchantReference: o.OrderNo},
		},
	}
}

// BuildRefund assembles a refund request. The merchant reference carries an
// "R" suffix so refunds are distinguishable from the original payment in
// gateway reporting.
func (b *PayloadBuilder) BuildRefund(o *order.Order, amount float64, now time.Time) *RefundRequest {
	return &RefundRequest{
		AmountOfMoney: payment.AmountOfMoney{
			Amount:       payment.MinorUnits(amount),
			CurrencyCode: o.Currency,
		},
		Customer: &RefundCustomer{
			Address: buildAddress(o.BillingAddress, false),
			ContactDetails: &ContactDetails{
				EmailAddress:     o.CustomerEmail,
				EmailMessageType: "html",
			},
		},
		RefundDate:      now.Format("20060102"),
		RefundReference: &RefundReference{MerchantReference: o.OrderNo + "R"},
	}
}

// BuildCreateToken assembles a card tokenize request
func (b *PayloadBuilder) BuildCreateToken(o *order.Order, inst *order.PaymentInstrument, secrets CardSecrets) *CreateTokenRequest {
	if inst.CardExpiry == "" {
		return &CreateTokenRequest{}
	}
	return &CreateTokenRequest{
		Card: &TokenCard{
			Customer: &CustomerInput{
				BillingAddress:     buildAddress(o.BillingAddress, false),
				MerchantCustomerID: merchantCustomerID(o),
				PersonalInformation: &PersonalInformation{
					Name: &NameInput{
						FirstName: o.BillingAddress.FirstName,
						Surname:   o.BillingAddress.LastName,
					},
				},
			},
			Data: &TokenCardData{
				CardWithoutCvv: &CardDetails{
					CardNumber:     secrets.CardNumber,
					CardholderName: inst.CardHolder,
					ExpiryDate:     inst.CardExpiry,
				},
			},
		},
		PaymentProductID: inst.PaymentProductID,
	}
}

func (b *PayloadBuilder) buildOrderInput(o *order.Order) OrderInput {
	return OrderInput{
		AmountOfMoney: payment.AmountOfMoney{
			Amount:       payment.MinorUnits(o.TotalGrossAmount),
			CurrencyCode: o.Currency,
		},
		Customer: CustomerInput{
			BillingAddress: buildAddress(o.BillingAddress, false),
			ContactDetails: &ContactDetails{
				EmailAddress:     o.CustomerEmail,
				EmailMessageType: "html",
				PhoneNumber:      o.BillingAddress.Phone,
			},
			Locale:             NormalizeLocale(o.LocaleID),
			MerchantCustomerID: merchantCustomerID(o),
			PersonalInformation: &PersonalInformation{
				Name: &NameInput{
					FirstName: o.BillingAddress.FirstName,
					Surname:   o.BillingAddress.LastName,
				},
			},
			ShippingAddress: buildAddress(o.ShippingAddress, true),
		},
		References: OrderReferences{
			Descriptor:        b.SoftDescriptor,
			MerchantReference: o.OrderNo,
		},
		ShoppingCart: &ShoppingCart{
			AmountBreakdown: []AmountBreakdown{
				{Amount: payment.MinorUnits(o.ShippingTotal), Type: "SHIPPING"},
				{Amount: payment.MinorUnits(o.TotalTax), Type: "VAT"},
			},
			Items: buildCartItems(o),
		},
	}
}

func (b *PayloadBuilder) buildCardInput(o *order.Order, inst *order.PaymentInstrument, secrets CardSecrets) *CardInput {
	if inst.CardExpiry == "" {
		return &CardInput{
			RequiresApproval:   b.RequireApproval,
			SkipAuthentication: b.Skip3DS,
		}
	}

	cardNumber := secrets.CardNumber
	if secrets.Token != "" {
		// Token payments never resend the PAN
		cardNumber = ""
	}

	return &CardInput{
		Card: &CardDetails{
			CardNumber:     cardNumber,
			CardholderName: inst.CardHolder,
			CVV:            secrets.CVV,
			ExpiryDate:     inst.CardExpiry,
		},
		PaymentProductID:   inst.PaymentProductID,
		RequiresApproval:   b.RequireApproval,
		ReturnURL:          b.ReturnURL,
		SkipAuthentication: b.Skip3DS,
		SkipFraudService:   false,
		Token:              secrets.Token,
		Tokenize:           secrets.Token == "",
		TransactionChannel: "ECOMMERCE",
	}
}

func (b *PayloadBuilder) buildHostedInput(o *order.Order, storedTokens []string) *HostedCheckoutInput {
	return &HostedCheckoutInput{
		Locale:            NormalizeLocale(o.LocaleID),
		ReturnURL:         b.ReturnURL,
		ShowResultPage:    false,
		ReturnCancelState: true,
		Tokens:            strings.Join(storedTokens, ","),
	}
}

func (b *PayloadBuilder) buildRedirectInput(productID int) *RedirectInput {
	return &RedirectInput{
		ExpirationPeriod: redirectExpirationMinutes,
		IsRecurring:      false,
		PaymentProductID: productID,
		RequiresApproval: b.RequireApproval,
		ReturnURL:        b.ReturnURL,
	}
}

// NormalizeLocale maps an order locale to a gateway locale, falling back to
// en_GB when the order has none
func NormalizeLocale(locale string) string {
	if locale == "" || locale == "default" {
		return defaultLocale
	}
	return locale
}

// merchantCustomerID is the customer number for registered shoppers or a
// guest marker derived from the order
func merchantCustomerID(o *order.Order) string {
	if o.CustomerNo != "" {
		return o.CustomerNo
	}
	return "GUEST#" + o.OrderNo
}

func buildAddress(a order.Address, includeName bool) *AddressInput {
	if a.Address1 == "" {
		return nil
	}
	addr := &AddressInput{
		AdditionalInfo: a.Address2,
		City:           a.City,
		CountryCode:    strings.ToUpper(a.CountryCode),
		State:          a.StateCode,
		Street:         a.Address1,
		Zip:            a.PostalCode,
	}
	if includeName {
		addr.Name = &NameInput{FirstName: a.FirstName, Surname: a.LastName}
	}
	return addr
}

// buildCartItems maps order lines to gateway cart items. Every amount is
// computed per line from the unit price so rounding never drifts between the
// cart and the order total breakdown.
func buildCartItems(o *order.Order) []CartItem {
	items := make([]CartItem, 0, len(o.LineItems))
	for i, line := range o.LineItems {
		unitPrice := payment.MinorUnits(line.DiscountedUnitPrice)
		basePrice := payment.MinorUnits(line.BaseUnitPrice)
		lineTotal := unitPrice * line.Quantity

		productCode := line.ProductID
		if len(productCode) > 12 {
			productCode = productCode[:12]
		}

		items = append(items, CartItem{
			AmountOfMoney: payment.AmountOfMoney{
				Amount:       lineTotal,
				CurrencyCode: o.Currency,
			},
			InvoiceData: InvoiceData{
				Description:        line.ProductName,
				MerchantLinenumber: i + 1,
				NrOfItems:          line.Quantity,
				PricePerItem:       unitPrice,
			},
			OrderLineDetails: OrderLineDetails{
				DiscountAmount:  basePrice - unitPrice,
				LineAmountTotal: lineTotal,
				ProductCode:     productCode,
				ProductPrice:    basePrice,
				Quantity:        line.Quantity,
				TaxAmount:       payment.MinorUnits(line.TaxAmount),
			},
		})
	}
	return items
}
