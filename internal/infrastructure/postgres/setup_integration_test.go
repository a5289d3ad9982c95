//go:build integration
// +build integration

package postgres_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/terpspark/admission-service/internal/domain"
	"github.com/terpspark/admission-service/internal/infrastructure/postgres"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	dsnOnce sync.Once
	dsn     string
	dsnErr  error
)

// testDSN prefers TEST_DB_DSN and otherwise starts one postgres:17 container
// for the whole package run.
func testDSN(t *testing.T) string {
	t.Helper()
	if v := os.Getenv("TEST_DB_DSN"); v != "" {
		return v
	}
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dsnOnce.Do(func() {
		ctx := context.Background()
		if _, err := testcontainers.NewDockerClientWithOpts(ctx); err != nil {
			dsnErr = err
			return
		}
		c, err := tcpostgres.RunContainer(ctx,
			testcontainers.WithImage("postgres:17"),
			tcpostgres.WithDatabase("admission"),
			tcpostgres.WithUsername("testuser"),
			tcpostgres.WithPassword("testpass"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			dsnErr = err
			return
		}
		dsn, dsnErr = c.ConnectionString(ctx, "sslmode=disable")
	})
	if dsnErr != nil {
		t.Skipf("Skipping integration test because postgres is unavailable: %v", dsnErr)
	}
	return dsn
}

// setupRepo gives each test a freshly migrated schema.
func setupRepo(t *testing.T) (*postgres.Repository, *pgxpool.Pool) {
	t.Helper()
	pool, err := pgxpool.New(context.Background(), testDSN(t))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	WipeDB(t, pool)
	ApplyMigrations(t, pool, migrationsDir)
	return postgres.New(pool), pool
}

func seedEvent(t *testing.T, repo *postgres.Repository, capacity, registered int) domain.Event {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	ev := domain.Event{
		ID:              uuid.New(),
		Title:           "Terp Hackathon",
		Category:        domain.CategorySlug("technology"),
		StartsAt:        now.Add(48 * time.Hour),
		EndsAt:          now.Add(72 * time.Hour),
		Capacity:        capacity,
		RegisteredCount: registered,
		Status:          domain.EventPublished,
		OrganizerID:     uuid.New(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, repo.Atomic(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		return tx.InsertEvent(ctx, ev)
	}))
	return ev
}
