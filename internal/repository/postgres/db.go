package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/andresuchdata/marketlens/backend-go/internal/config"
)

const driverName = "pgx"

type DB struct {
	*sqlx.DB
	sem *semaphore.Weighted
}

// NewDB opens the connection pool, retrying with exponential backoff while the
// database is still coming up.
func NewDB(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second

	var db *sqlx.DB
	connect := func() error {
		var err error
		db, err = sqlx.ConnectContext(ctx, driverName, cfg.DSN())
		if err != nil {
			log.Warn().Err(err).Msg("database not ready, retrying")
		}
		return err
	}
	if err := backoff.Retry(connect, backoff.WithContext(bo, ctx)); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return Wrap(db, cfg), nil
}

// Wrap configures the pool of an already-open connection.
func Wrap(db *sqlx.DB, cfg *config.DatabaseConfig) *DB {
	maxOpen, maxIdle, maxTx := cfg.MaxOpen, cfg.MaxIdle, cfg.MaxConcurrentTx
	if maxOpen <= 0 {
		maxOpen = 25
	}
	if maxIdle <= 0 {
		maxIdle = 5
	}
	if maxTx <= 0 {
		maxTx = 10
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &DB{
		DB:  db,
		sem: semaphore.NewWeighted(maxTx),
	}
}

// WithTx executes a function within a READ COMMITTED transaction. The
// transaction is rolled back when fn returns an error or panics.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	if err := db.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("could not acquire semaphore: %w", err)
	}
	defer db.sem.Release(1)

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("could not rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}
