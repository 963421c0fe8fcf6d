package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/loyalty-ledger/internal/domain/ledger"
)

const (
	// LedgerCollectionName is the name of the ledger collection in MongoDB
	LedgerCollectionName = "loyalty_ledger_entries"
)

// LedgerRepository implements the ledger.Repository interface for MongoDB.
// The collection is append-only: no update or delete operation exists here.
type LedgerRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

var _ ledger.Repository = (*LedgerRepository)(nil)

// NewLedgerRepository creates a new MongoDB ledger repository
func NewLedgerRepository(logger *slog.Logger, db *mongo.Database) *LedgerRepository {
	return &LedgerRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the collection's unique indexes so at-most-once
// appends hold even across instances that do not share a partition lock.
// The idempotency key index is sparse: adjust and expire entries written
// without a client key must not collide on the missing field.
func (r *LedgerRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(LedgerCollectionName)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "entry_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "idempotency_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{
				{Key: "customer_id", Value: 1},
				{Key: "program_id", Value: 1},
				{Key: "occurred_at", Value: 1},
			},
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		r.logger.Error("Failed to create ledger indexes", "error", err)
		return fmt.Errorf("failed to create ledger indexes: %w", err)
	}

	return nil
}

// Append stores a new ledger entry after checking for idempotency key and
// entry ID collisions. Returns ErrDuplicateEntry on either collision.
func (r *LedgerRepository) Append(ctx context.Context, entry *ledger.Entry) error {
	collection := r.db.Collection(LedgerCollectionName)

	if entry.IdempotencyKey != "" {
		existing, err := r.GetByIdempotencyKey(ctx, entry.IdempotencyKey)
		if err != nil {
			r.logger.Error("Failed to check idempotency key before append",
				"idempotency_key", entry.IdempotencyKey,
				"error", err)
			return fmt.Errorf("failed to check idempotency key: %w", err)
		}
		if existing != nil {
			return ledger.ErrDuplicateEntry{EntryID: existing.ID, IdempotencyKey: entry.IdempotencyKey}
		}
	}

	existing, err := r.findByID(ctx, entry.ID)
	if err != nil {
		return fmt.Errorf("failed to check for existing ledger entry: %w", err)
	}
	if existing != nil {
		return ledger.ErrDuplicateEntry{EntryID: entry.ID}
	}

	if _, err := collection.InsertOne(ctx, entry); err != nil {
		r.logger.Error("Failed to append ledger entry",
			"entry_id", entry.ID.String(),
			"error", err)
		return appendError(entry, err)
	}

	return nil
}

// appendError maps a raw insert failure onto the repository's error contract.
// A unique-index violation means another writer won the append race, which
// callers handle the same way as the read-then-insert duplicate check.
func appendError(entry *ledger.Entry, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return ledger.ErrDuplicateEntry{EntryID: entry.ID, IdempotencyKey: entry.IdempotencyKey}
	}
	return fmt.Errorf("failed to append ledger entry: %w", err)
}

// GetByID retrieves a ledger entry by its entry ID.
// Returns ErrEntryNotFound if no entry exists.
func (r *LedgerRepository) GetByID(ctx context.Context, entryID uuid.UUID) (*ledger.Entry, error) {
	entry, err := r.findByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ledger.ErrEntryNotFound{EntryID: entryID}
	}
	return entry, nil
}

func (r *LedgerRepository) findByID(ctx context.Context, entryID uuid.UUID) (*ledger.Entry, error) {
	collection := r.db.Collection(LedgerCollectionName)

	var entry ledger.Entry
	err := collection.FindOne(ctx, bson.M{"entry_id": entryID}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("Failed to get ledger entry",
			"entry_id", entryID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return &entry, nil
}

// GetByIdempotencyKey retrieves a ledger entry using its idempotency key.
// Returns nil if no entry exists, enabling at-most-once appends.
func (r *LedgerRepository) GetByIdempotencyKey(ctx context.Context, idempotencyKey string) (*ledger.Entry, error) {
	if idempotencyKey == "" {
		return nil, errors.New("idempotency key cannot be empty")
	}

	collection := r.db.Collection(LedgerCollectionName)

	var entry ledger.Entry
	err := collection.FindOne(ctx, bson.M{"idempotency_key": idempotencyKey}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("Failed to get ledger entry by idempotency key",
			"idempotency_key", idempotencyKey,
			"error", err)
		return nil, fmt.Errorf("failed to get ledger entry by idempotency key: %w", err)
	}

	return &entry, nil
}

// ListByPartition retrieves the full ledger for a (customer, program) pair,
// ordered by occurred_at with insertion order (created_at) breaking ties so
// the fold over the sequence is totally ordered and restartable.
func (r *LedgerRepository) ListByPartition(ctx context.Context, customerID, programID uuid.UUID) ([]*ledger.Entry, error) {
	collection := r.db.Collection(LedgerCollectionName)

	filter := bson.M{"customer_id": customerID, "program_id": programID}
	opts := options.Find().SetSort(bson.D{
		{Key: "occurred_at", Value: 1},
		{Key: "created_at", Value: 1},
	})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list partition ledger",
			"customer_id", customerID.String(),
			"program_id", programID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list partition ledger: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*ledger.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode partition ledger",
			"customer_id", customerID.String(),
			"program_id", programID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode partition ledger: %w", err)
	}

	return entries, nil
}

// ListByPartitionPage retrieves a newest-first page for history displays.
func (r *LedgerRepository) ListByPartitionPage(ctx context.Context, customerID, programID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	collection := r.db.Collection(LedgerCollectionName)

	filter := bson.M{"customer_id": customerID, "program_id": programID}
	opts := options.Find().
		SetSort(bson.D{
			{Key: "occurred_at", Value: -1},
			{Key: "created_at", Value: -1},
		}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to page partition ledger",
			"customer_id", customerID.String(),
			"program_id", programID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to page partition ledger: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*ledger.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode partition ledger page",
			"customer_id", customerID.String(),
			"program_id", programID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode partition ledger page: %w", err)
	}

	return entries, nil
}

// CountByPartition counts the total number of entries in a partition
func (r *LedgerRepository) CountByPartition(ctx context.Context, customerID, programID uuid.UUID) (int64, error) {
	collection := r.db.Collection(LedgerCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"customer_id": customerID, "program_id": programID})
	if err != nil {
		r.logger.Error("Failed to count partition ledger entries",
			"customer_id", customerID.String(),
			"program_id", programID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count partition ledger entries: %w", err)
	}

	return count, nil
}

// CountEarnsBetween counts earn entries in the half-open window [from, to),
// used for merchant-local daily cap enforcement.
func (r *LedgerRepository) CountEarnsBetween(ctx context.Context, customerID, programID uuid.UUID, from, to time.Time) (int64, error) {
	collection := r.db.Collection(LedgerCollectionName)

	filter := bson.M{
		"customer_id": customerID,
		"program_id":  programID,
		"kind":        ledger.KindEarn,
		"occurred_at": bson.M{
			"$gte": from,
			"$lt":  to,
		},
	}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count earn entries",
			"customer_id", customerID.String(),
			"program_id", programID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count earn entries: %w", err)
	}

	return count, nil
}

// ListExpiringPartitions returns distinct partitions that hold earn entries
// whose expiry is due as of asOf. Already-swept buckets may still be listed;
// the sweeper derives actual remainders from the ledger itself.
func (r *LedgerRepository) ListExpiringPartitions(ctx context.Context, asOf time.Time, limit int) ([]ledger.Partition, error) {
	collection := r.db.Collection(LedgerCollectionName)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"kind":       ledger.KindEarn,
			"expires_at": bson.M{"$lte": asOf},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"customer_id": "$customer_id",
				"program_id":  "$program_id",
			},
		}}},
		{{Key: "$limit", Value: limit}},
	}

	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		r.logger.Error("Failed to list expiring partitions", "error", err)
		return nil, fmt.Errorf("failed to list expiring partitions: %w", err)
	}
	defer cursor.Close(ctx)

	var groups []struct {
		ID ledger.Partition `bson:"_id"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		r.logger.Error("Failed to decode expiring partitions", "error", err)
		return nil, fmt.Errorf("failed to decode expiring partitions: %w", err)
	}

	partitions := make([]ledger.Partition, 0, len(groups))
	for _, g := range groups {
		partitions = append(partitions, g.ID)
	}
	return partitions, nil
}
