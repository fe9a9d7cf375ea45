package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jayanth922/carbontrace/internal/domain"
	"github.com/jayanth922/carbontrace/internal/observability"
	"github.com/jayanth922/carbontrace/internal/outbox"
)

const activityColumns = `activity_id, user_id, category, description, carbon_kg, metadata, source, created_at, anchor_tx_id, anchor_hash`

// Repository provides Postgres-backed persistence for activities and outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert persists the activity and records the outbox event inside a single
// transaction.
func (r *Repository) Insert(ctx context.Context, activity domain.Activity) error {
	metadata, err := json.Marshal(activity.Metadata)
	if err != nil {
		return err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const insertActivity = `INSERT INTO activities (activity_id, user_id, category, description, carbon_kg, metadata, source, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = tx.Exec(ctx, insertActivity,
		activity.ID,
		activity.UserID,
		activity.Category,
		activity.Description,
		activity.CarbonKg,
		metadata,
		activity.Source,
		activity.CreatedAt,
	)
	if err != nil {
		return err
	}

	if err = r.insertOutbox(ctx, tx, activity, "activity.recorded", outbox.ActivityRecorded{
		ActivityID:  activity.ID,
		UserID:      activity.UserID,
		Category:    string(activity.Category),
		Description: activity.Description,
		CarbonKg:    activity.CarbonKg,
		Source:      string(activity.Source),
		CreatedAt:   activity.CreatedAt,
	}); err != nil {
		return err
	}

	err = tx.Commit(ctx)
	if err != nil {
		return err
	}
	observability.RecordActivityPersisted(activity.CreatedAt)
	return nil
}

// Get retrieves one of the user's activities by ID.
func (r *Repository) Get(ctx context.Context, userID, activityID string) (*domain.Activity, error) {
	query := fmt.Sprintf(`SELECT %s FROM activities WHERE user_id=$1 AND activity_id=$2`, activityColumns)

	row := r.pool.QueryRow(ctx, query, userID, activityID)
	activity, err := scanActivity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return activity, nil
}

// ListByUser returns activities for a user ordered most-recent-first with
// keyset pagination. Ties on created_at break on activity_id.
func (r *Repository) ListByUser(ctx context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.Activity, *domain.Cursor, error) {
	args := []interface{}{userID, limit}
	query := fmt.Sprintf(`SELECT %s FROM activities WHERE user_id=$1`, activityColumns)

	if cursor != nil {
		query += ` AND (created_at, activity_id) < ($3, $4)`
		args = append(args, cursor.CreatedAt, cursor.ID)
	}

	query += ` ORDER BY created_at DESC, activity_id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	results := make([]domain.Activity, 0, limit)
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, *activity)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		nextCursor = &domain.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	return results, nextCursor, nil
}

// SetAnchor patches anchor proof onto an existing row and returns the updated
// activity, or nil when the row does not exist. No other column changes.
func (r *Repository) SetAnchor(ctx context.Context, activityID, txID, hash string) (*domain.Activity, error) {
	query := fmt.Sprintf(`UPDATE activities SET anchor_tx_id=$2, anchor_hash=$3 WHERE activity_id=$1 RETURNING %s`, activityColumns)

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	row := tx.QueryRow(ctx, query, activityID, txID, hash)
	activity, err := scanActivity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = tx.Commit(ctx)
			return nil, err
		}
		return nil, err
	}

	if err = r.insertOutbox(ctx, tx, *activity, "activity.anchored", outbox.ActivityAnchored{
		ActivityID: activity.ID,
		UserID:     activity.UserID,
		TxID:       txID,
		Hash:       hash,
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return activity, nil
}

// SnapshotByUser loads the user's full ledger, most-recent-first, for the
// aggregation views.
func (r *Repository) SnapshotByUser(ctx context.Context, userID string) ([]domain.Activity, error) {
	query := fmt.Sprintf(`SELECT %s FROM activities WHERE user_id=$1 ORDER BY created_at DESC, activity_id DESC`, activityColumns)

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.Activity, 0)
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *activity)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, activity domain.Activity, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	partitionKey := meta.PartitionKeyFn(activity)
	dedupeKey := fmt.Sprintf("%s:%s", activity.ID, eventType)

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err = tx.Exec(ctx, stmt,
		"activity",
		activity.ID,
		eventType,
		meta.Topic,
		partitionKey,
		body,
		dedupeKey,
	)
	return err
}

func scanActivity(row pgx.Row) (*domain.Activity, error) {
	var activity domain.Activity
	var metadata []byte
	if err := row.Scan(
		&activity.ID,
		&activity.UserID,
		&activity.Category,
		&activity.Description,
		&activity.CarbonKg,
		&metadata,
		&activity.Source,
		&activity.CreatedAt,
		&activity.AnchorTxID,
		&activity.AnchorHash,
	); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &activity.Metadata); err != nil {
			return nil, err
		}
	}
	return &activity, nil
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	PartitionKeyFn func(domain.Activity) string
}

var eventCatalog = map[string]EventMetadata{
	"activity.recorded": {
		Topic: "carbon_activity_events",
		PartitionKeyFn: func(a domain.Activity) string {
			return a.UserID
		},
	},
	"activity.anchored": {
		Topic: "carbon_anchor_events",
		PartitionKeyFn: func(a domain.Activity) string {
			return a.ID
		},
	},
}
