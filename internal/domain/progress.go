// Package domain defines the entities and business contracts of the
// progress service.
package domain

import (
	"encoding/json"
	"time"
)

// BodyMetric is a single append-only body measurement. BMI is computed
// at write time so historic chart points survive later formula changes.
type BodyMetric struct {
	ID          string
	UserID      string
	RecordedAt  time.Time
	WeightKg    float64
	HeightCm    *float64
	BMI         *float64
	BodyFatPct  *float64
	Notes       string
	CreatedAt   time.Time
}

// WorkoutLog is the canonical record of one completed workout.
// SourceBookingID carries the originating booking when the log was
// derived from a booking.completed event; its uniqueness per user is
// the dedup key for replayed events.
type WorkoutLog struct {
	ID              string
	UserID          string
	SourceBookingID *string
	DurationMin     int
	Calories        *int
	Mood            *int
	CompletedAt     time.Time
	TrainerNotes    string
	CreatedAt       time.Time
}

// GoalKind enumerates what a goal tracks.
type GoalKind string

const (
	GoalWeight  GoalKind = "weight"
	GoalBodyFat GoalKind = "bodyfat"
	GoalStreak  GoalKind = "streak"
)

// GoalStatus is the lifecycle state of a goal.
type GoalStatus string

const (
	GoalActive   GoalStatus = "active"
	GoalAchieved GoalStatus = "achieved"
	GoalExpired  GoalStatus = "expired"
)

// Goal tracks progress of a metric or streak towards a target value.
type Goal struct {
	ID          string
	UserID      string
	Kind        GoalKind
	StartValue  float64
	TargetValue float64
	TargetDate  time.Time
	Status      GoalStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AchievementKind enumerates the trigger families of the rule engine.
type AchievementKind string

const (
	AchievementMilestone      AchievementKind = "milestone"
	AchievementStreak         AchievementKind = "streak"
	AchievementPersonalRecord AchievementKind = "personal_record"
)

// Achievement is an append-only badge earned by a user. Payload holds
// rule-specific detail (threshold value, metric, program id).
type Achievement struct {
	ID       string
	UserID   string
	Kind     AchievementKind
	Title    string
	Payload  json.RawMessage
	EarnedAt time.Time
}

// RecordType classifies a health record entry.
type RecordType string

const (
	RecordInjury     RecordType = "injury"
	RecordIllness    RecordType = "illness"
	RecordMedication RecordType = "medication"
	RecordAllergy    RecordType = "allergy"
	RecordCondition  RecordType = "condition"
)

// Severity grades a health record.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// HealthRecord captures an injury, illness, or other condition relevant
// to training decisions.
type HealthRecord struct {
	ID          string
	UserID      string
	RecordType  RecordType
	Description string
	StartDate   time.Time
	EndDate     *time.Time
	Severity    Severity
	Active      bool
	Notes       string
	CreatedAt   time.Time
}

// ProcessedEvent is one row of the idempotency ledger. It is written in
// the same transaction as the derived state for its event.
type ProcessedEvent struct {
	EventID     string
	EventType   string
	ProcessedAt time.Time
}
