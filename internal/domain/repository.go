package domain

import (
	"context"
	"time"
)

// MetricRepository is the typed accessor for body metrics.
type MetricRepository interface {
	Create(ctx context.Context, metric BodyMetric) error
	FindByUserAndRange(ctx context.Context, userID string, from, to time.Time) ([]BodyMetric, error)
	FindLatest(ctx context.Context, userID string) (*BodyMetric, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]BodyMetric, int, error)
}

// WorkoutLogRepository is the typed accessor for workout logs.
type WorkoutLogRepository interface {
	Create(ctx context.Context, log WorkoutLog) error
	FindByBookingID(ctx context.Context, userID, bookingID string) (*WorkoutLog, error)
	FindByUserAndRange(ctx context.Context, userID string, from, to time.Time) ([]WorkoutLog, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]WorkoutLog, int, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	// MaxDuration and MaxCalories return the maximum recorded value for
	// the user, skipping the log identified by excludeID so a freshly
	// inserted workout can be compared against its own history.
	MaxDuration(ctx context.Context, userID, excludeID string) (int, error)
	MaxCalories(ctx context.Context, userID, excludeID string) (int, error)
	TotalsByUser(ctx context.Context, userID string) (WorkoutTotals, error)
}

// WorkoutTotals are lifetime workout aggregates for one user.
type WorkoutTotals struct {
	Workouts      int
	TotalMinutes  int
	TotalCalories int
}

// GoalRepository stores goals and their recalculated status.
type GoalRepository interface {
	Create(ctx context.Context, goal Goal) error
	ListByUser(ctx context.Context, userID string) ([]Goal, error)
	UpdateStatus(ctx context.Context, goalID string, status GoalStatus) error
}

// AchievementRepository is append-only storage for achievements.
type AchievementRepository interface {
	Create(ctx context.Context, achievement Achievement) error
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]Achievement, int, error)
	ExistsMilestone(ctx context.Context, userID string, kind AchievementKind, value int) (bool, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}

// HealthRecordRepository stores health records.
type HealthRecordRepository interface {
	Create(ctx context.Context, record HealthRecord) error
	ListByUser(ctx context.Context, userID string) ([]HealthRecord, error)
}

// LedgerRepository is the idempotency ledger.
type LedgerRepository interface {
	// Exists reports whether the event was already processed.
	Exists(ctx context.Context, eventID string) (bool, error)
	// Record inserts the ledger row. Inserting an already-recorded
	// event_id returns false without error, signalling a duplicate.
	Record(ctx context.Context, event ProcessedEvent) (bool, error)
}

// OutboxRepository queues derived events for asynchronous publication.
type OutboxRepository interface {
	Enqueue(ctx context.Context, envelope Envelope, topic string) error
}

// Repositories bundles every accessor sharing one commit boundary.
type Repositories struct {
	Metrics       MetricRepository
	Workouts      WorkoutLogRepository
	Goals         GoalRepository
	Achievements  AchievementRepository
	HealthRecords HealthRecordRepository
	Ledger        LedgerRepository
	Outbox        OutboxRepository
}

// UnitOfWork runs a function against transaction-scoped repositories.
// The function's writes commit together or not at all.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context, repos *Repositories) error) error
}
