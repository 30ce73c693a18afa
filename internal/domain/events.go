package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Inbound event types consumed from sibling services.
const (
	EventBookingCompleted = "booking.completed"
	EventProgramCompleted = "program.completed"
)

// Derived event types republished by this service.
const (
	EventAchievementEarned = "achievement.earned"
	EventMilestoneReached  = "milestone.reached"
	EventProgressUpdated   = "progress.updated"
)

// Envelope is the wire shape shared by inbound and outbound events.
type Envelope struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	UserID    string          `json:"user_id"`
	Payload   json.RawMessage `json:"payload"`
	EmittedAt time.Time       `json:"emitted_at"`
}

// NewEnvelope wraps a payload into a freshly identified envelope.
func NewEnvelope(eventType, userID string, payload interface{}) (Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		UserID:    userID,
		Payload:   body,
		EmittedAt: time.Now().UTC(),
	}, nil
}

// BookingCompletion is the payload of booking.completed.
type BookingCompletion struct {
	BookingID    string    `json:"booking_id"`
	UserID       string    `json:"user_id"`
	DurationMin  int       `json:"duration_min"`
	Calories     *int      `json:"calories,omitempty"`
	Mood         *int      `json:"mood,omitempty"`
	CompletedAt  time.Time `json:"completed_at"`
	TrainerNotes string    `json:"trainer_notes,omitempty"`
}

// Validate checks required fields and value ranges.
func (b BookingCompletion) Validate() error {
	if strings.TrimSpace(b.BookingID) == "" {
		return fmt.Errorf("%w: booking_id is required", ErrValidation)
	}
	if strings.TrimSpace(b.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if b.DurationMin < 0 {
		return fmt.Errorf("%w: duration_min must be >= 0", ErrValidation)
	}
	if b.Mood != nil && (*b.Mood < 1 || *b.Mood > 5) {
		return fmt.Errorf("%w: mood must be within 1..5", ErrValidation)
	}
	return nil
}

// ProgramCompletion is the payload of program.completed.
type ProgramCompletion struct {
	ProgramID   string            `json:"program_id"`
	UserID      string            `json:"user_id"`
	ProgramName string            `json:"program_name,omitempty"`
	CompletedAt time.Time         `json:"completed_at"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Validate checks required fields.
func (p ProgramCompletion) Validate() error {
	if strings.TrimSpace(p.ProgramID) == "" {
		return fmt.Errorf("%w: program_id is required", ErrValidation)
	}
	if strings.TrimSpace(p.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	return nil
}

// AchievementEarned is the payload of achievement.earned.
type AchievementEarned struct {
	AchievementID string          `json:"achievement_id"`
	UserID        string          `json:"user_id"`
	Kind          AchievementKind `json:"kind"`
	Title         string          `json:"title"`
	Detail        json.RawMessage `json:"detail,omitempty"`
	EarnedAt      time.Time       `json:"earned_at"`
}

// MilestoneReached is the payload of milestone.reached.
type MilestoneReached struct {
	UserID    string    `json:"user_id"`
	Milestone int       `json:"milestone"`
	Total     int       `json:"total"`
	ReachedAt time.Time `json:"reached_at"`
}

// ProgressUpdated is the payload of progress.updated.
type ProgressUpdated struct {
	UserID    string    `json:"user_id"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}
