package notification

import (
	"fmt"

	"github.com/gateway-payment-bridge/internal/domain/order"
)

// Template names the message family a status maps to. The name also labels
// the emails-sent metric.
type Template string

const (
	TemplateFraudReview     Template = "fraud_review" // Back-office only
	TemplateFraudApproval   Template = "fraud_approval"
	TemplatePendingApproval Template = "pending_approval"
	TemplatePaid            Template = "paid"
	TemplateRedirected      Template = "redirected"
	TemplateWaitingPayment  Template = "waiting_payment"
	TemplateUnsuccessful    Template = "unsuccessful"
)

func renderCustomer(tmpl Template, o *order.Order) (subject, body string) {
	amount := fmt.Sprintf("%.2f %s", o.TotalGrossAmount, o.Currency)

	switch tmpl {
	case TemplateFraudApproval:
		subject = fmt.Sprintf("Your order %s is being reviewed", o.OrderNo)
		body = fmt.Sprintf("<p>Your payment of %s for order %s is under review. We will confirm your order shortly.</p>", amount, o.OrderNo)
	case TemplatePendingApproval:
		subject = fmt.Sprintf("Your order %s is awaiting confirmation", o.OrderNo)
		body = fmt.Sprintf("<p>Your payment of %s for order %s has been authorized and is awaiting confirmation.</p>", amount, o.OrderNo)
	case TemplatePaid:
		subject = fmt.Sprintf("Payment received for order %s", o.OrderNo)
		body = fmt.Sprintf("<p>We received your payment of %s for order %s. Your order is now being prepared.</p>", amount, o.OrderNo)
	case TemplateRedirected:
		subject = fmt.Sprintf("Complete your payment for order %s", o.OrderNo)
		body = fmt.Sprintf("<p>Your payment of %s for order %s has not been completed yet. Please finish the payment with your payment provider.</p>", amount, o.OrderNo)
	case TemplateWaitingPayment:
		subject = fmt.Sprintf("Waiting for your payment for order %s", o.OrderNo)
		body = fmt.Sprintf("<p>We are waiting for the payment of %s for order %s to complete.</p>", amount, o.OrderNo)
	case TemplateUnsuccessful:
		subject = fmt.Sprintf("Payment for order %s was not successful", o.OrderNo)
		body = fmt.Sprintf("<p>The payment of %s for order %s could not be completed. Please try again or use a different payment method.</p>", amount, o.OrderNo)
	}
	return subject, body
}

func renderFraudReview(o *order.Order) (subject, body string) {
	subject = fmt.Sprintf("Payment review required for order %s", o.OrderNo)
	body = fmt.Sprintf(
		"<p>Order %s (%.2f %s, customer %s) is held in fraud review and needs a manual decision.</p>",
		o.OrderNo, o.TotalGrossAmount, o.Currency, o.CustomerEmail)
	return subject, body
}
