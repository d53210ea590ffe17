// Package translog records every gateway status update applied to an order.
// Entries are append-only and unbounded; history depth is controlled at
// query time, not by trimming the log.
package translog

import (
	"context"
	"encoding/json"
	"time"
)

// Entry is one applied gateway status update
type Entry struct {
	OrderNo          string          `json:"order_no" bson:"order_no"`
	TransactionID    string          `json:"transaction_id,omitempty" bson:"transaction_id,omitempty"`
	Status           string          `json:"status" bson:"status"`
	StatusLastChange string          `json:"status_last_change,omitempty" bson:"status_last_change,omitempty"` // yyyyMMddHHmmss, gateway clock
	Payload          json.RawMessage `json:"payload,omitempty" bson:"payload,omitempty"`
	CorrelationID    string          `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at" bson:"created_at"`
}

// Repository manages transaction log persistence
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	GetByOrderNo(ctx context.Context, orderNo string, limit, offset int) ([]*Entry, error)
	CountByOrderNo(ctx context.Context, orderNo string) (int64, error)
}
