// Package mongo provides MongoDB implementations of the domain repositories.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gateway-payment-bridge/internal/domain/translog"
)

// TranslogCollectionName is the name of the transaction log collection in MongoDB
const TranslogCollectionName = "transaction_logs"

// TranslogRepository implements the translog.Repository interface for MongoDB
type TranslogRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewTranslogRepository creates a new MongoDB transaction log repository
func NewTranslogRepository(logger *slog.Logger, db *mongo.Database) translog.Repository {
	return &TranslogRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores a transaction log entry. The log is append-only; duplicate
// deliveries of the same payload simply produce two entries.
func (r *TranslogRepository) Append(ctx context.Context, entry *translog.Entry) error {
	collection := r.db.Collection(TranslogCollectionName)

	_, err := collection.InsertOne(ctx, entry)
	if err != nil {
		r.logger.Error("Failed to append transaction log entry",
			"order_no", entry.OrderNo,
			"error", err)
		return fmt.Errorf("failed to append transaction log entry: %w", err)
	}

	return nil
}

// GetByOrderNo retrieves paginated log entries for an order, newest first
func (r *TranslogRepository) GetByOrderNo(ctx context.Context, orderNo string, limit, offset int) ([]*translog.Entry, error) {
	collection := r.db.Collection(TranslogCollectionName)

	filter := bson.M{"order_no": orderNo}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get transaction log entries",
			"order_no", orderNo,
			"error", err)
		return nil, fmt.Errorf("failed to get transaction log entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*translog.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode transaction log entries",
			"order_no", orderNo,
			"error", err)
		return nil, fmt.Errorf("failed to decode transaction log entries: %w", err)
	}

	return entries, nil
}

// CountByOrderNo counts the log entries recorded for an order
func (r *TranslogRepository) CountByOrderNo(ctx context.Context, orderNo string) (int64, error) {
	collection := r.db.Collection(TranslogCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"order_no": orderNo})
	if err != nil {
		r.logger.Error("Failed to count transaction log entries",
			"order_no", orderNo,
			"error", err)
		return 0, fmt.Errorf("failed to count transaction log entries: %w", err)
	}

	return count, nil
}
