// Package payment defines the gateway-facing payment vocabulary: the status
// taxonomy reported by the payment gateway and the webhook/poll payload
// structures that carry it.
package payment

// Status is a payment status as reported by the gateway
type Status string

const (
	StatusAuthorizationRequested Status = "AUTHORIZATION_REQUESTED"
	StatusRedirected             Status = "REDIRECTED"
	StatusCaptureRequested       Status = "CAPTURE_REQUESTED"
	StatusPendingPayment         Status = "PENDING_PAYMENT"
	StatusPendingCapture         Status = "PENDING_CAPTURE"
	StatusPendingApproval        Status = "PENDING_APPROVAL"
	StatusPendingFraudApproval   Status = "PENDING_FRAUD_APPROVAL"
	StatusPaid                   Status = "PAID"
	StatusCaptured               Status = "CAPTURED"
	StatusCancelled              Status = "CANCELLED"
	StatusRejected               Status = "REJECTED"
	StatusRejectedCapture        Status = "REJECTED_CAPTURE"
	StatusChargebacked           Status = "CHARGEBACKED"
	StatusReversed               Status = "REVERSED"
	StatusRefunded               Status = "REFUNDED"
	StatusRefundRequested        Status = "REFUND_REQUESTED"
)

// RefundStatusUnsuccessful marks refund records that no longer count against
// the refundable balance
const RefundStatusUnsuccessful Status = "UNSUCCESSFUL"

// IsSettled reports whether the status represents money captured
func (s Status) IsSettled() bool {
	return s == StatusPaid || s == StatusCaptured
}

// IsTerminatedFailure reports whether the status ends the payment attempt
// without funds
func (s Status) IsTerminatedFailure() bool {
	switch s {
	case StatusCancelled, StatusRejected, StatusRejectedCapture:
		return true
	}
	return false
}

// IsAuthPending reports whether the status represents a successful
// authorization still waiting on capture or review. CAPTURE_REQUESTED counts
// as pending here, never as settled.
func (s Status) IsAuthPending() bool {
	switch s {
	case StatusPendingFraudApproval, StatusCaptureRequested, StatusPendingApproval,
		StatusPendingCapture, StatusPendingPayment:
		return true
	}
	return false
}

// IsRefundish reports whether the status belongs to a refund object rather
// than a payment
func (s Status) IsRefundish() bool {
	return s == StatusRefunded || s == StatusRefundRequested
}
