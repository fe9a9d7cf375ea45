//go:build integration

package postgres

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/jayanth922/carbontrace/internal/domain"
)

func setupRepository(t *testing.T, ctx context.Context) (*Repository, *pgxpool.Pool) {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("carbontrace"),
		postgrescontainer.WithUsername("carbontrace"),
		postgrescontainer.WithPassword("carbontrace"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))
	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return NewRepository(pool), pool
}

func newActivity(userID string, createdAt time.Time) domain.Activity {
	return domain.Activity{
		ID:          uuid.NewString(),
		UserID:      userID,
		Category:    domain.CategoryTransport,
		Description: "integration drive",
		CarbonKg:    4.2,
		Metadata: domain.Metadata{
			Transport: &domain.TransportMetadata{Vehicle: "car_petrol", DistanceKm: 20},
		},
		Source:    domain.SourceManual,
		CreatedAt: createdAt,
	}
}

func TestRepositoryInsertAndGet(t *testing.T) {
	ctx := context.Background()
	repo, pool := setupRepository(t, ctx)

	userID := uuid.NewString()
	activity := newActivity(userID, time.Now().UTC())
	require.NoError(t, repo.Insert(ctx, activity))

	stored, err := repo.Get(ctx, userID, activity.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, activity.ID, stored.ID)
	require.Equal(t, activity.CarbonKg, stored.CarbonKg)
	require.NotNil(t, stored.Metadata.Transport)
	require.Equal(t, "car_petrol", stored.Metadata.Transport.Vehicle)
	require.Nil(t, stored.AnchorTxID)
	require.Nil(t, stored.AnchorHash)

	otherUser, err := repo.Get(ctx, uuid.NewString(), activity.ID)
	require.NoError(t, err)
	require.Nil(t, otherUser, "activities must not leak across users")

	var outboxCount int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM outbox WHERE event_type='activity.recorded' AND aggregate_id=$1`,
		activity.ID).Scan(&outboxCount))
	require.Equal(t, 1, outboxCount, "insert must stage the recorded event transactionally")
}

func TestRepositoryListPagination(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepository(t, ctx)

	userID := uuid.NewString()
	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Insert(ctx, newActivity(userID, base.Add(time.Duration(i)*time.Minute))))
	}

	first, cursor, err := repo.ListByUser(ctx, userID, nil, 3)
	require.NoError(t, err)
	require.Len(t, first, 3)
	require.NotNil(t, cursor)
	for i := 1; i < len(first); i++ {
		require.False(t, first[i-1].CreatedAt.Before(first[i].CreatedAt), "list must be most-recent-first")
	}

	second, _, err := repo.ListByUser(ctx, userID, cursor, 3)
	require.NoError(t, err)
	require.Len(t, second, 2)

	seen := make(map[string]bool)
	for _, a := range append(first, second...) {
		require.False(t, seen[a.ID], "pages must not overlap")
		seen[a.ID] = true
	}
}

func TestRepositorySetAnchor(t *testing.T) {
	ctx := context.Background()
	repo, pool := setupRepository(t, ctx)

	userID := uuid.NewString()
	activity := newActivity(userID, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, repo.Insert(ctx, activity))

	patched, err := repo.SetAnchor(ctx, activity.ID, "tx-77", "deadbeef")
	require.NoError(t, err)
	require.NotNil(t, patched)
	require.NotNil(t, patched.AnchorTxID)
	require.Equal(t, "tx-77", *patched.AnchorTxID)
	require.Equal(t, "deadbeef", *patched.AnchorHash)
	require.Equal(t, activity.CarbonKg, patched.CarbonKg)

	missing, err := repo.SetAnchor(ctx, uuid.NewString(), "tx-1", "abc")
	require.NoError(t, err)
	require.Nil(t, missing)

	var payload []byte
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT payload FROM outbox WHERE event_type='activity.anchored' AND aggregate_id=$1`,
		activity.ID).Scan(&payload))

	var event struct {
		OccurredAt time.Time `json:"occurred_at"`
	}
	require.NoError(t, json.Unmarshal(payload, &event))
	require.True(t, event.OccurredAt.After(activity.CreatedAt),
		"anchored event must carry the patch time, not the recording time")
}

func TestRepositoryAnchorColumnsPairedConstraint(t *testing.T) {
	ctx := context.Background()
	repo, pool := setupRepository(t, ctx)

	activity := newActivity(uuid.NewString(), time.Now().UTC())
	require.NoError(t, repo.Insert(ctx, activity))

	_, err := pool.Exec(ctx,
		`UPDATE activities SET anchor_tx_id='tx-only' WHERE activity_id=$1`, activity.ID)
	require.Error(t, err, "tx id without hash must violate the check constraint")
}

func TestRepositorySnapshot(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepository(t, ctx)

	userID := uuid.NewString()
	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Insert(ctx, newActivity(userID, base.Add(time.Duration(i)*time.Hour))))
	}
	require.NoError(t, repo.Insert(ctx, newActivity(uuid.NewString(), base)))

	snapshot, err := repo.SnapshotByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, snapshot, 3)
	require.True(t, snapshot[0].CreatedAt.After(snapshot[2].CreatedAt))
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	files := []string{
		"../../../db/postgres/migrations/0001_init.up.sql",
	}

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, rel := range files {
		path := resolvePath(t, rel)
		contents, readErr := os.ReadFile(path)
		require.NoError(t, readErr)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoError(t, execErr)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
