// Package testhelpers starts the shared PostgreSQL instance used by
// integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/andresuchdata/marketlens/backend-go/internal/config"
	"github.com/andresuchdata/marketlens/backend-go/internal/repository/postgres"
)

// TestDB is a migrated database shared by every test in the run.
type TestDB struct {
	DB      *postgres.DB
	ConnStr string
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns the shared database, starting a postgres:18-alpine
// container on first use. Set TEST_DATABASE_URL to use an external server
// instead. Tests are skipped under -short.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB(context.Background())
	})
	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}
	return sharedTestDB
}

func setupTestDB(ctx context.Context) (*TestDB, error) {
	connStr := os.Getenv("TEST_DATABASE_URL")
	if connStr == "" {
		container, err := tcpostgres.Run(ctx,
			"postgres:18-alpine",
			tcpostgres.WithDatabase("marketlens_test"),
			tcpostgres.WithUsername("postgres"),
			tcpostgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to start postgres container: %w", err)
		}

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			return nil, fmt.Errorf("failed to get connection string: %w", err)
		}
	}

	if err := postgres.Migrate(connStr, true); err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, "pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}

	return &TestDB{
		DB:      postgres.Wrap(db, &config.DatabaseConfig{MaxOpen: 10, MaxIdle: 2, MaxConcurrentTx: 4}),
		ConnStr: connStr,
	}, nil
}

// WorkspaceSlug returns a slug no other test uses, so tests can share the
// database without cleaning up.
func WorkspaceSlug(t *testing.T) string {
	t.Helper()
	return "t-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
}
