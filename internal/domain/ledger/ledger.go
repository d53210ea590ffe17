// Package ledger models the per-order payment ledger: the authoritative
// record of the payment attempt and its refunds, persisted as a JSON document
// on the order row. The JSON shape is stable because downstream order export
// consumes it as-is.
package ledger

import (
	"encoding/json"
	"sort"

	"github.com/gateway-payment-bridge/internal/domain/payment"
)

// PaymentRecord is the ledger's view of the payment attempt. Amount is in
// decimal major units.
type PaymentRecord struct {
	ID           string                `json:"id,omitempty"`
	Amount       float64               `json:"amount,omitempty"`
	Status       payment.Status        `json:"status,omitempty"`
	StatusOutput *payment.StatusOutput `json:"statusOutput,omitempty"`
	Date         string                `json:"date,omitempty"` // yyyyMMddHHmmss, gateway clock
	Method       string                `json:"method,omitempty"`
	AuthCode     string                `json:"authCode,omitempty"`
}

// RefundRecord is one refund attempt against the payment
type RefundRecord struct {
	ID           string                `json:"id,omitempty"`
	Amount       float64               `json:"amount,omitempty"`
	Status       payment.Status        `json:"status,omitempty"`
	StatusOutput *payment.StatusOutput `json:"statusOutput,omitempty"`
	Date         string                `json:"date,omitempty"`
}

// Ledger is the full payment history document for one order
type Ledger struct {
	OriginalAmount float64        `json:"originalAmount,omitempty"`
	Payment        *PaymentRecord `json:"payment,omitempty"`
	Refunds        []RefundRecord `json:"refunds,omitempty"`
}

// Parse decodes a stored ledger document. Callers treat a parse failure as a
// fresh ledger after logging the discarded blob.
func Parse(raw []byte) (*Ledger, error) {
	if len(raw) == 0 {
		return &Ledger{}, nil
	}
	var l Ledger
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// Bytes serializes the ledger for storage
func (l *Ledger) Bytes() ([]byte, error) {
	return json.Marshal(l)
}

// ApplyPayment records a payment status update. The payment record is
// replaced wholesale since the gateway's view is authoritative.
func (l *Ledger) ApplyPayment(rec PaymentRecord) {
	if l.Payment != nil {
		// The gateway payment id never changes once assigned
		if rec.ID == "" {
			rec.ID = l.Payment.ID
		}
		if rec.Method == "" {
			rec.Method = l.Payment.Method
		}
		if rec.AuthCode == "" {
			rec.AuthCode = l.Payment.AuthCode
		}
		if rec.Amount == 0 {
			rec.Amount = l.Payment.Amount
		}
	}
	l.Payment = &rec
}

// MergeRefund folds a refund update into the ledger. Records are keyed by
// refund id; when the id is already present the record with the latest
// status-change date wins. Dates are yyyyMMddHHmmss so a plain string
// comparison orders them.
func (l *Ledger) MergeRefund(rec RefundRecord) {
	for i, existing := range l.Refunds {
		if existing.ID == rec.ID {
			if rec.Date >= existing.Date {
				l.Refunds[i] = rec
			}
			return
		}
	}
	l.Refunds = append(l.Refunds, rec)
}

// DedupeRefunds drops stale duplicate refund records, keeping the latest
// record per refund id. Needed for ledgers written before merge-on-apply.
func (l *Ledger) DedupeRefunds() {
	if len(l.Refunds) < 2 {
		return
	}
	sort.SliceStable(l.Refunds, func(i, j int) bool {
		return l.Refunds[i].Date > l.Refunds[j].Date
	})
	seen := make(map[string]bool, len(l.Refunds))
	kept := l.Refunds[:0]
	for _, r := range l.Refunds {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		kept = append(kept, r)
	}
	l.Refunds = kept
}

// RefundedMinorUnits sums all refunds that still count against the payment,
// in minor units. UNSUCCESSFUL refunds release their amount.
func (l *Ledger) RefundedMinorUnits() int64 {
	var total int64
	for _, r := range l.Refunds {
		if r.Status == payment.RefundStatusUnsuccessful {
			continue
		}
		total += payment.MinorUnits(r.Amount)
	}
	return total
}

// RefundableMinorUnits is how much of the payment can still be refunded,
// in minor units
func (l *Ledger) RefundableMinorUnits() int64 {
	if l.Payment == nil {
		return 0
	}
	return payment.MinorUnits(l.Payment.Amount) - l.RefundedMinorUnits()
}

// RefundIDs returns the ids of every refund the ledger knows about
func (l *Ledger) RefundIDs() []string {
	ids := make([]string, 0, len(l.Refunds))
	for _, r := range l.Refunds {
		ids = append(ids, r.ID)
	}
	return ids
}
