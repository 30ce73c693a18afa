// Package postgres implements the repository contracts on top of a
// pgx connection pool. A unit of work maps to one database transaction.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FitSync-G13/fitsync-progress-service/internal/domain"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, letting the
// same repository code serve direct reads and transactional writes.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides Postgres-backed persistence for the progress service.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Repositories returns accessors that run each call on the pool.
func (s *Store) Repositories() *domain.Repositories {
	return newRepositories(s.pool)
}

// Execute runs fn inside one transaction. The function's writes commit
// together or roll back together.
func (s *Store) Execute(ctx context.Context, fn func(ctx context.Context, repos *domain.Repositories) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, newRepositories(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func newRepositories(q querier) *domain.Repositories {
	return &domain.Repositories{
		Metrics:       &metricRepo{q: q},
		Workouts:      &workoutRepo{q: q},
		Goals:         &goalRepo{q: q},
		Achievements:  &achievementRepo{q: q},
		HealthRecords: &healthRecordRepo{q: q},
		Ledger:        &ledgerRepo{q: q},
		Outbox:        &outboxRepo{q: q},
	}
}
