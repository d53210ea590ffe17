// Package checkout drives the shopper-facing half of the bridge: creating
// orders, starting payments against the gateway and completing the browser
// return after a hosted checkout or 3-D Secure redirect.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gateway-payment-bridge/internal/config"
	"github.com/gateway-payment-bridge/internal/domain/order"
	"github.com/gateway-payment-bridge/internal/domain/payment"
	"github.com/gateway-payment-bridge/internal/domain/wallet"
	"github.com/gateway-payment-bridge/internal/gateway"
	"github.com/gateway-payment-bridge/internal/reconciler"
)

// Common errors
var (
	ErrGatewayUnavailable = errors.New("gateway did not answer in time, retry later")
	ErrUnsupportedMethod  = errors.New("unsupported payment method")
	ErrOrderNotPayable    = errors.New("order is not in a payable state")
	ErrNoPaymentSession   = errors.New("order has no payment session to complete")
)

// GatewayAPI is the slice of the gateway client checkout uses
type GatewayAPI interface {
	CreatePayment(ctx context.Context, req *gateway.CreatePaymentRequest) gateway.Result
	CreateHostedCheckout(ctx context.Context, req *gateway.CreatePaymentRequest) gateway.Result
	GetHostedCheckout(ctx context.Context, hostedCheckoutID string) gateway.Result
	GetPayment(ctx context.Context, paymentID string) gateway.Result
}

// StatusApplier folds gateway status payloads into orders
type StatusApplier interface {
	Apply(ctx context.Context, orderNo string, payload *payment.StatusPayload) (*reconciler.Outcome, error)
}

// OrderDraft is the input for creating an order
type OrderDraft struct {
	OrderNo          string
	CustomerNo       string
	CustomerName     string
	CustomerEmail    string
	LocaleID         string
	Currency         string
	TotalGrossAmount float64
	ShippingTotal    float64
	TotalTax         float64
	BillingAddress   order.Address
	ShippingAddress  order.Address
	LineItems        []order.LineItem
}

// PaymentInput is the payment-time input for an order. Card secrets pass
// through to the gateway and are never persisted.
type PaymentInput struct {
	Method     order.Method
	CardHolder string
	CardExpiry string // MMyy
	Secrets    gateway.CardSecrets
	ClientIP   string
}

// PaymentStart is the result of starting a payment. Exactly one of Status or
// RedirectURL is meaningful: direct payments settle or fail inline, hosted
// and challenged payments hand the shopper a redirect plus a return token.
type PaymentStart struct {
	OrderNo     string         `json:"order_no"`
	Status      payment.Status `json:"status,omitempty"`
	RedirectURL string         `json:"redirect_url,omitempty"`
	ReturnToken string         `json:"return_token,omitempty"`
}

// ReturnCategory buckets the payment state a returning shopper lands in
type ReturnCategory string

const (
	ReturnAccepted   ReturnCategory = "accepted"
	ReturnPending    ReturnCategory = "pending"
	ReturnInProgress ReturnCategory = "in_progress"
	ReturnCancelled  ReturnCategory = "cancelled"
	ReturnRejected   ReturnCategory = "rejected"
)

// ReturnResult is the outcome of completing a browser return
type ReturnResult struct {
	OrderNo  string         `json:"order_no"`
	Category ReturnCategory `json:"category"`
	Status   payment.Status `json:"status,omitempty"`
}

// Service implements order creation and the payment start/return flows
type Service struct {
	orders  order.Repository
	wallet  wallet.Repository
	client  GatewayAPI
	builder *gateway.PayloadBuilder
	applier StatusApplier
	webhook config.WebhookConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates the checkout service
func NewService(orders order.Repository, cards wallet.Repository, client GatewayAPI, builder *gateway.PayloadBuilder, applier StatusApplier, webhook config.WebhookConfig, logger *slog.Logger) *Service {
	return &Service{
		orders:  orders,
		wallet:  cards,
		client:  client,
		builder: builder,
		applier: applier,
		webhook: webhook,
		logger:  logger,
		now:     time.Now,
	}
}

// CreateOrder registers a new order awaiting payment
func (s *Service) CreateOrder(ctx context.Context, draft OrderDraft) (*order.Order, error) {
	o, err := order.NewOrder(draft.OrderNo, draft.Currency, draft.TotalGrossAmount, draft.LineItems)
	if err != nil {
		return nil, err
	}
	o.CustomerNo = draft.CustomerNo
	o.CustomerName = draft.CustomerName
	o.CustomerEmail = draft.CustomerEmail
	o.LocaleID = draft.LocaleID
	o.ShippingTotal = draft.ShippingTotal
	o.TotalTax = draft.TotalTax
	o.BillingAddress = draft.BillingAddress
	o.ShippingAddress = draft.ShippingAddress

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// StartPayment opens a payment for the order. Direct card payments are
// processed inline; hosted methods return a redirect for the shopper.
func (s *Service) StartPayment(ctx context.Context, orderNo string, input PaymentInput) (*PaymentStart, error) {
	o, err := s.orders.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if o.Status != order.StatusCreated {
		return nil, ErrOrderNotPayable
	}

	inst, err := newInstrument(o, input)
	if err != nil {
		return nil, err
	}

	var storedTokens []string
	if inst.IsHosted() && o.CustomerNo != "" {
		storedTokens = s.storedTokensFor(ctx, o.CustomerNo)
	}

	req := s.builder.BuildCreatePayment(o, inst, input.Secrets, storedTokens, input.ClientIP)

	if inst.IsHosted() {
		return s.startHosted(ctx, o, inst, req)
	}
	return s.startDirect(ctx, o, inst, req)
}

// CompleteReturn finishes a redirect flow: it validates the return token,
// pulls the payment outcome from the gateway, stores any card token the
// shopper saved and applies the status to the order.
func (s *Service) CompleteReturn(ctx context.Context, token string) (*ReturnResult, error) {
	orderNo, err := verifyReturnToken(s.webhook.ReturnTokenSecret, token, s.now())
	if err != nil {
		return nil, err
	}

	o, err := s.orders.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if o.Instrument == nil {
		return nil, ErrNoPaymentSession
	}

	var payload *payment.StatusPayload
	switch {
	case o.Instrument.HostedCheckoutID != "":
		payload, err = s.pullHostedOutcome(ctx, o)
	case o.Instrument.TransactionID != "":
		payload, err = s.pullPaymentOutcome(ctx, o.Instrument.TransactionID)
	default:
		return nil, ErrNoPaymentSession
	}
	if err != nil {
		return nil, err
	}
	if payload == nil {
		// The shopper came back before the gateway created a payment,
		// typically after pressing cancel on the hosted page
		return &ReturnResult{OrderNo: o.OrderNo, Category: ReturnCancelled}, nil
	}

	if _, err := s.applier.Apply(ctx, o.OrderNo, payload); err != nil {
		return nil, err
	}

	return &ReturnResult{
		OrderNo:  o.OrderNo,
		Category: categorize(payload.Status),
		Status:   payload.Status,
	}, nil
}

func (s *Service) startDirect(ctx context.Context, o *order.Order, inst *order.PaymentInstrument, req *gateway.CreatePaymentRequest) (*PaymentStart, error) {
	o.Instrument = inst
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}

	res := s.client.CreatePayment(ctx, req)
	if res.TimedOut {
		return nil, ErrGatewayUnavailable
	}
	if res.Err != nil {
		return nil, res.Err
	}

	var body struct {
		Payment        *payment.StatusPayload `json:"payment"`
		MerchantAction *struct {
			ActionType   string `json:"actionType"`
			RedirectData *struct {
				RedirectURL string `json:"redirectURL"`
			} `json:"redirectData"`
		} `json:"merchantAction"`
	}
	if err := res.Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode create payment response: %w", err)
	}
	if body.Payment == nil {
		return nil, fmt.Errorf("gateway returned no payment for order %s", o.OrderNo)
	}

	if _, err := s.applier.Apply(ctx, o.OrderNo, body.Payment); err != nil {
		return nil, err
	}

	start := &PaymentStart{OrderNo: o.OrderNo, Status: body.Payment.Status}
	if body.MerchantAction != nil && body.MerchantAction.RedirectData != nil {
		// 3-D Secure challenge, the shopper must authenticate first
		start.RedirectURL = body.MerchantAction.RedirectData.RedirectURL
		start.ReturnToken = issueReturnToken(s.webhook.ReturnTokenSecret, o.OrderNo, s.now().Add(s.webhook.ReturnTokenTTL))
	}
	return start, nil
}

func (s *Service) startHosted(ctx context.Context, o *order.Order, inst *order.PaymentInstrument, req *gateway.CreatePaymentRequest) (*PaymentStart, error) {
	res := s.client.CreateHostedCheckout(ctx, req)
	if res.TimedOut {
		return nil, ErrGatewayUnavailable
	}
	if res.Err != nil {
		return nil, res.Err
	}

	var body struct {
		HostedCheckoutID   string `json:"hostedCheckoutId"`
		PartialRedirectURL string `json:"partialRedirectUrl"`
	}
	if err := res.Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode hosted checkout response: %w", err)
	}
	if body.HostedCheckoutID == "" || body.PartialRedirectURL == "" {
		return nil, fmt.Errorf("gateway returned an incomplete hosted checkout for order %s", o.OrderNo)
	}

	inst.HostedCheckoutID = body.HostedCheckoutID
	o.Instrument = inst
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}

	return &PaymentStart{
		OrderNo:     o.OrderNo,
		RedirectURL: "https://payment." + body.PartialRedirectURL,
		ReturnToken: issueReturnToken(s.webhook.ReturnTokenSecret, o.OrderNo, s.now().Add(s.webhook.ReturnTokenTTL)),
	}, nil
}

// pullHostedOutcome reads the hosted checkout state and harvests any card
// token the shopper stored on the hosted page
func (s *Service) pullHostedOutcome(ctx context.Context, o *order.Order) (*payment.StatusPayload, error) {
	res := s.client.GetHostedCheckout(ctx, o.Instrument.HostedCheckoutID)
	if res.TimedOut {
		return nil, ErrGatewayUnavailable
	}
	if res.Err != nil {
		return nil, res.Err
	}

	var body struct {
		Status               string `json:"status"`
		CreatedPaymentOutput *struct {
			Payment *payment.StatusPayload `json:"payment"`
			Tokens  string                 `json:"tokens"`
		} `json:"createdPaymentOutput"`
	}
	if err := res.Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode hosted checkout status: %w", err)
	}
	if body.CreatedPaymentOutput == nil {
		return nil, nil
	}

	if body.CreatedPaymentOutput.Tokens != "" {
		s.storeReturnedTokens(ctx, o, body.CreatedPaymentOutput.Payment, body.CreatedPaymentOutput.Tokens)
	}
	return body.CreatedPaymentOutput.Payment, nil
}

func (s *Service) pullPaymentOutcome(ctx context.Context, paymentID string) (*payment.StatusPayload, error) {
	res := s.client.GetPayment(ctx, paymentID)
	if res.TimedOut {
		return nil, ErrGatewayUnavailable
	}
	if res.Err != nil {
		return nil, res.Err
	}

	var payload payment.StatusPayload
	if err := res.Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode payment status: %w", err)
	}
	return &payload, nil
}

// storeReturnedTokens saves tokens minted by the hosted page to the
// customer's wallet. Failures are logged, never surfaced to the shopper.
func (s *Service) storeReturnedTokens(ctx context.Context, o *order.Order, payload *payment.StatusPayload, tokens string) {
	if o.CustomerNo == "" {
		return
	}

	card := &wallet.StoredCard{
		CustomerNo: o.CustomerNo,
		CardHolder: o.CustomerName,
		CreatedAt:  s.now(),
	}
	if payload != nil && payload.PaymentOutput != nil {
		if out := payload.PaymentOutput.CardPaymentMethodSpecificOutput; out != nil {
			card.PaymentProductID = out.PaymentProductID
			if out.Card != nil {
				card.MaskedCardNumber = out.Card.CardNumber
				card.CardExpiry = out.Card.ExpiryDate
			}
		}
	}
	if card.MaskedCardNumber == "" {
		return
	}

	for _, token := range strings.Split(tokens, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		card.Token = token
		added, err := s.wallet.AddIfAbsent(ctx, card)
		if err != nil {
			s.logger.Error("Failed to store card token", "order_no", o.OrderNo, "customer_no", o.CustomerNo, "error", err)
			continue
		}
		if added {
			s.logger.Info("Stored card token for customer", "order_no", o.OrderNo, "customer_no", o.CustomerNo)
		}
	}
}

func (s *Service) storedTokensFor(ctx context.Context, customerNo string) []string {
	cards, err := s.wallet.GetByCustomerNo(ctx, customerNo)
	if err != nil {
		s.logger.Warn("Failed to load stored cards", "customer_no", customerNo, "error", err)
		return nil
	}
	tokens := make([]string, 0, len(cards))
	for _, c := range cards {
		tokens = append(tokens, c.Token)
	}
	return tokens
}

func newInstrument(o *order.Order, input PaymentInput) (*order.PaymentInstrument, error) {
	now := time.Now()
	inst := &order.PaymentInstrument{
		OrderNo:            o.OrderNo,
		Method:             input.Method,
		AuthorizedCurrency: o.Currency,
		CardHolder:         input.CardHolder,
		CardExpiry:         input.CardExpiry,
		Token:              input.Secrets.Token,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	switch input.Method {
	case order.MethodCreditCard:
		inst.Processor = order.ProcessorGatewayCredit
		inst.MaskedCardNumber = maskPAN(input.Secrets.CardNumber)
	case order.MethodHostedCreditCard, order.MethodHostedPayPal, order.MethodHostedIdeal:
		inst.Processor = order.ProcessorGatewayHosted
	default:
		return nil, ErrUnsupportedMethod
	}
	return inst, nil
}

// maskPAN keeps the first six and last four digits of a card number
func maskPAN(pan string) string {
	if len(pan) < 10 {
		return ""
	}
	return pan[:6] + strings.Repeat("*", len(pan)-10) + pan[len(pan)-4:]
}

func categorize(status payment.Status) ReturnCategory {
	switch {
	case status.IsSettled():
		return ReturnAccepted
	case status.IsAuthPending():
		return ReturnPending
	case status == payment.StatusCancelled:
		return ReturnCancelled
	case status.IsTerminatedFailure():
		return ReturnRejected
	}
	return ReturnInProgress
}
