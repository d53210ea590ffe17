package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gateway-payment-bridge/internal/domain/order"
)

func builderForTest() *PayloadBuilder {
	return &PayloadBuilder{
		SoftDescriptor:  "WEBSHOP",
		Skip3DS:         false,
		RequireApproval: true,
		ReturnURL:       "https://shop.example/v1/payments/return",
	}
}

func orderForTest() *order.Order {
	o, _ := order.NewOrder("ORD-1001", "GBP", 29.99, []order.LineItem{
		{ProductID: "SKU-EXTENDED-00123", ProductName: "Widget", Quantity: 2, BaseUnitPrice: 12.00, DiscountedUnitPrice: 10.00, TaxAmount: 4.00},
	})
	o.CustomerEmail = "shopper@example.com"
	o.CustomerNo = "C0042"
	o.LocaleID = "en_GB"
	o.ShippingTotal = 5.99
	o.TotalTax = 4.00
	o.BillingAddress = order.Address{
		FirstName: "Ada", LastName: "Lovelace", Address1: "1 High St", Address2: "Flat 2",
		City: "London", PostalCode: "E1 6AN", CountryCode: "gb", Phone: "+447700900000",
	}
	o.ShippingAddress = order.Address{
		FirstName: "Ada", LastName: "Lovelace", Address1: "1 High St",
		City: "London", PostalCode: "E1 6AN", CountryCode: "gb",
	}
	return o
}

func cardInstrument() *order.PaymentInstrument {
	return &order.PaymentInstrument{
		OrderNo:          "ORD-1001",
		Method:           order.MethodCreditCard,
		Processor:        order.ProcessorGatewayCredit,
		CardHolder:       "ADA LOVELACE",
		CardExpiry:       "1229",
		PaymentProductID: 1,
	}
}

func TestBuildCreatePayment_Card(t *testing.T) {
	b := builderForTest()
	o := orderForTest()

	req := b.BuildCreatePayment(o, cardInstrument(), CardSecrets{CardNumber: "4567350000427977", CVV: "123"}, nil, "203.0.113.9")

	// Order section: minor units, merchant reference, descriptor
	assert.Equal(t, int64(2999), req.Order.AmountOfMoney.Amount)
	assert.Equal(t, "GBP", req.Order.AmountOfMoney.CurrencyCode)
	assert.Equal(t, "ORD-1001", req.Order.References.MerchantReference)
	assert.Equal(t, "WEBSHOP", req.Order.References.Descriptor)
	assert.Equal(t, "C0042", req.Order.Customer.MerchantCustomerID)
	assert.Equal(t, "GB", req.Order.Customer.BillingAddress.CountryCode)
	assert.Nil(t, req.Order.Customer.BillingAddress.Name)
	require.NotNil(t, req.Order.Customer.ShippingAddress.Name)
	assert.Equal(t, "Ada", req.Order.Customer.ShippingAddress.Name.FirstName)

	// Card block
	card := req.CardPaymentMethodSpecificInput
	require.NotNil(t, card)
	assert.Equal(t, "4567350000427977", card.Card.CardNumber)
	assert.Equal(t, "123", card.Card.CVV)
	assert.Equal(t, "1229", card.Card.ExpiryDate)
	assert.True(t, card.Tokenize)
	assert.True(t, card.RequiresApproval)
	assert.Equal(t, "ECOMMERCE", card.TransactionChannel)
	assert.Nil(t, req.RedirectPaymentMethodSpecificInput)
	assert.Nil(t, req.HostedCheckoutSpecificInput)

	require.NotNil(t, req.FraudFields)
	assert.Equal(t, "203.0.113.9", req.FraudFields.CustomerIPAddress)

	// Line items: per-line amounts from the unit price
	require.NotNil(t, req.Order.ShoppingCart)
	require.Len(t, req.Order.ShoppingCart.Items, 1)
	item := req.Order.ShoppingCart.Items[0]
	assert.Equal(t, int64(2000), item.AmountOfMoney.Amount) // 2 x 10.00
	assert.Equal(t, int64(1000), item.InvoiceData.PricePerItem)
	assert.Equal(t, int64(200), item.OrderLineDetails.DiscountAmount) // 12.00 - 10.00 per unit
	assert.Equal(t, int64(1200), item.OrderLineDetails.ProductPrice)
	assert.Equal(t, int64(400), item.OrderLineDetails.TaxAmount)
	assert.Equal(t, "SKU-EXTENDED", item.OrderLineDetails.ProductCode) // truncated to 12

	breakdown := req.Order.ShoppingCart.AmountBreakdown
	require.Len(t, breakdown, 2)
	assert.Equal(t, AmountBreakdown{Amount: 599, Type: "SHIPPING"}, breakdown[0])
	assert.Equal(t, AmountBreakdown{Amount: 400, Type: "VAT"}, breakdown[1])
}

func TestBuildCreatePayment_TokenSuppressesPAN(t *testing.T) {
	b := builderForTest()
	req := b.BuildCreatePayment(orderForTest(), cardInstrument(),
		CardSecrets{CardNumber: "4567350000427977", CVV: "123", Token: "tok_1"}, nil, "")

	card := req.CardPaymentMethodSpecificInput
	require.NotNil(t, card)
	assert.Empty(t, card.Card.CardNumber)
	assert.Equal(t, "tok_1", card.Token)
	assert.False(t, card.Tokenize)
	assert.Nil(t, req.FraudFields)
}

func TestBuildCreatePayment_HostedPayPal(t *testing.T) {
	b := builderForTest()
	inst := &order.PaymentInstrument{Method: order.MethodHostedPayPal, Processor: order.ProcessorGatewayHosted}

	req := b.BuildCreatePayment(orderForTest(), inst, CardSecrets{}, []string{"tok_1", "tok_2"}, "")

	assert.Nil(t, req.CardPaymentMethodSpecificInput)
	require.NotNil(t, req.HostedCheckoutSpecificInput)
	assert.Equal(t, "tok_1,tok_2", req.HostedCheckoutSpecificInput.Tokens)
	assert.True(t, req.HostedCheckoutSpecificInput.ReturnCancelState)

	redirect := req.RedirectPaymentMethodSpecificInput
	require.NotNil(t, redirect)
	assert.Equal(t, ProductPayPal, redirect.PaymentProductID)
	assert.Nil(t, redirect.PaymentProduct809SpecificInput)
}

func TestBuildCreatePayment_HostedIdeal(t *testing.T) {
	b := builderForTest()
	inst := &order.PaymentInstrument{Method: order.MethodHostedIdeal, Processor: order.ProcessorGatewayHosted}

	req := b.BuildCreatePayment(orderForTest(), inst, CardSecrets{}, nil, "")

	redirect := req.RedirectPaymentMethodSpecificInput
	require.NotNil(t, redirect)
	assert.Equal(t, ProductIdeal, redirect.PaymentProductID)
	require.NotNil(t, redirect.PaymentProduct809SpecificInput)
	assert.Equal(t, "INGBNL2A", redirect.PaymentProduct809SpecificInput.IssuerID)
}

func TestBuildRefund(t *testing.T) {
	b := builderForTest()
	now := time.Date(2026, 8, 28, 14, 30, 55, 0, time.UTC)

	req := b.BuildRefund(orderForTest(), 12.34, now)

	assert.Equal(t, int64(1234), req.AmountOfMoney.Amount)
	assert.Equal(t, "GBP", req.AmountOfMoney.CurrencyCode)
	assert.Equal(t, "20260828", req.RefundDate)
	assert.Equal(t, "ORD-1001R", req.RefundReference.MerchantReference)
	assert.Equal(t, "shopper@example.com", req.Customer.ContactDetails.EmailAddress)
}

func TestBuildApprovePayment(t *testing.T) {
	b := builderForTest()
	req := b.BuildApprovePayment(orderForTest(), 2999)

	assert.Equal(t, int64(2999), req.Amount)
	assert.Equal(t, "ORD-1001", req.Order.References.MerchantReference)
}

func TestNormalizeLocale(t *testing.T) {
	assert.Equal(t, "en_GB", NormalizeLocale(""))
	assert.Equal(t, "en_GB", NormalizeLocale("default"))
	assert.Equal(t, "nl_NL", NormalizeLocale("nl_NL"))
}

func TestMerchantCustomerID_Guest(t *testing.T) {
	o := orderForTest()
	o.CustomerNo = ""
	req := builderForTest().BuildCreatePayment(o, cardInstrument(), CardSecrets{}, nil, "")
	assert.Equal(t, "GUEST#ORD-1001", req.Order.Customer.MerchantCustomerID)
}
