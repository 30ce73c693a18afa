// Package dispatcher routes inbound integration events to their
// handlers, exactly once per event id.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FitSync-G13/fitsync-progress-service/internal/achievement"
	"github.com/FitSync-G13/fitsync-progress-service/internal/client"
	"github.com/FitSync-G13/fitsync-progress-service/internal/domain"
	"github.com/FitSync-G13/fitsync-progress-service/internal/observability"
)

// DefaultWorkoutDuration is assumed when a booking.completed event
// carries no duration and the schedule service cannot supply one.
const DefaultWorkoutDuration = 60

// TopicProgressEvents is the topic derived events are published to.
const TopicProgressEvents = "progress.events"

// DetailFetcher resolves booking details from the schedule service when
// the event payload is incomplete.
type DetailFetcher interface {
	GetBooking(ctx context.Context, bookingID, token string) (*client.BookingDetails, error)
}

// Invalidator drops cached summaries after derived state changes.
type Invalidator interface {
	InvalidateUser(ctx context.Context, userID string, at time.Time)
}

// Result reports what a dispatch did.
type Result struct {
	Skipped      bool
	WorkoutLogID string
	Achievements []domain.Achievement
}

// Config carries the dispatcher's collaborators. Details, Invalidator,
// and ServiceToken are optional.
type Config struct {
	UnitOfWork   domain.UnitOfWork
	Repos        *domain.Repositories
	Engine       *achievement.Engine
	Details      DetailFetcher
	Invalidator  Invalidator
	ServiceToken string
	Clock        func() time.Time
}

type handlerFunc func(ctx context.Context, repos *domain.Repositories, env domain.Envelope) (*Result, error)

// Dispatcher applies inbound events to the progress store. Events for
// the same user are serialized; distinct users proceed in parallel.
type Dispatcher struct {
	cfg      Config
	handlers map[string]handlerFunc
	locks    *userLocks
	logger   *log.Logger
}

// New constructs a Dispatcher. UnitOfWork, Repos, and Engine are
// required.
func New(cfg Config) *Dispatcher {
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}
	d := &Dispatcher{
		cfg:    cfg,
		locks:  newUserLocks(),
		logger: log.New(log.Writer(), "[dispatcher] ", log.LstdFlags),
	}
	d.handlers = map[string]handlerFunc{
		domain.EventBookingCompleted: d.handleBookingCompleted,
		domain.EventProgramCompleted: d.handleProgramCompleted,
	}
	return d
}

// Dispatch processes one inbound envelope. Replaying an already
// processed event id returns a skipped Result without touching derived
// state. Unknown event types return domain.ErrUnsupportedEvent.
func (d *Dispatcher) Dispatch(ctx context.Context, env domain.Envelope) (Result, error) {
	if strings.TrimSpace(env.EventID) == "" {
		return Result{}, fmt.Errorf("%w: event_id is required", domain.ErrValidation)
	}
	handler, ok := d.handlers[env.EventType]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedEvent, env.EventType)
	}

	// Fast path: an event seen before never opens a transaction. The
	// ledger row inside Execute remains the authoritative guard.
	seen, err := d.cfg.Repos.Ledger.Exists(ctx, env.EventID)
	if err != nil {
		return Result{}, fmt.Errorf("ledger lookup for event %s: %w", env.EventID, err)
	}
	if seen {
		skippedCounter.WithLabelValues(env.EventType).Inc()
		d.logger.Printf("skipping duplicate event (event_id=%s, event_type=%s)", env.EventID, env.EventType)
		return Result{Skipped: true}, nil
	}

	lockKey := env.UserID
	if lockKey == "" {
		lockKey = env.EventID
	}
	release := d.locks.acquire(lockKey)
	defer release()

	var result Result
	err = d.cfg.UnitOfWork.Execute(ctx, func(ctx context.Context, repos *domain.Repositories) error {
		inserted, err := repos.Ledger.Record(ctx, domain.ProcessedEvent{
			EventID:     env.EventID,
			EventType:   env.EventType,
			ProcessedAt: d.cfg.Clock(),
		})
		if err != nil {
			return fmt.Errorf("record event %s: %w", env.EventID, err)
		}
		if !inserted {
			result = Result{Skipped: true}
			return nil
		}

		out, err := handler(ctx, repos, env)
		if err != nil {
			return err
		}
		result = *out
		return nil
	})
	if err != nil {
		failedCounter.WithLabelValues(env.EventType).Inc()
		return Result{}, err
	}

	if result.Skipped {
		skippedCounter.WithLabelValues(env.EventType).Inc()
		return result, nil
	}

	processedCounter.WithLabelValues(env.EventType).Inc()
	for _, a := range result.Achievements {
		achievementCounter.WithLabelValues(string(a.Kind)).Inc()
	}
	if result.WorkoutLogID != "" {
		observability.RecordWorkoutLogged(d.cfg.Clock())
	}
	if d.cfg.Invalidator != nil {
		at := env.EmittedAt
		if at.IsZero() {
			at = d.cfg.Clock()
		}
		d.cfg.Invalidator.InvalidateUser(ctx, env.UserID, at)
	}
	d.logger.Printf("processed event (event_id=%s, event_type=%s, user_id=%s, achievements=%d)",
		env.EventID, env.EventType, env.UserID, len(result.Achievements))
	return result, nil
}

func (d *Dispatcher) handleBookingCompleted(ctx context.Context, repos *domain.Repositories, env domain.Envelope) (*Result, error) {
	var payload domain.BookingCompletion
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed booking.completed payload: %v", domain.ErrValidation, err)
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	// A different event id replaying the same booking must not create a
	// second workout log.
	existing, err := repos.Workouts.FindByBookingID(ctx, payload.UserID, payload.BookingID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		d.logger.Printf("booking already logged, skipping (booking_id=%s, user_id=%s)", payload.BookingID, payload.UserID)
		return &Result{Skipped: true}, nil
	}

	duration := payload.DurationMin
	calories := payload.Calories
	if duration == 0 {
		duration = d.resolveDuration(ctx, payload, &calories)
	}

	completedAt := payload.CompletedAt
	if completedAt.IsZero() {
		completedAt = env.EmittedAt
	}
	if completedAt.IsZero() {
		completedAt = d.cfg.Clock()
	}

	bookingID := payload.BookingID
	workout := domain.WorkoutLog{
		ID:              uuid.NewString(),
		UserID:          payload.UserID,
		SourceBookingID: &bookingID,
		DurationMin:     duration,
		Calories:        calories,
		Mood:            payload.Mood,
		CompletedAt:     completedAt,
		TrainerNotes:    payload.TrainerNotes,
		CreatedAt:       d.cfg.Clock(),
	}
	if err := repos.Workouts.Create(ctx, workout); err != nil {
		return nil, fmt.Errorf("create workout log for booking %s: %w", payload.BookingID, err)
	}

	earned, err := d.cfg.Engine.EvaluateWorkout(ctx, repos, workout)
	if err != nil {
		return nil, fmt.Errorf("evaluate achievements for user %s: %w", payload.UserID, err)
	}
	if err := d.persistAchievements(ctx, repos, earned); err != nil {
		return nil, err
	}
	if err := d.enqueueProgressUpdated(ctx, repos, payload.UserID, env.EventType); err != nil {
		return nil, err
	}

	return &Result{WorkoutLogID: workout.ID, Achievements: earned}, nil
}

// resolveDuration consults the schedule service for the booking's real
// duration. Failures fall back to DefaultWorkoutDuration rather than
// failing the event: a retry would hit the same gap.
func (d *Dispatcher) resolveDuration(ctx context.Context, payload domain.BookingCompletion, calories **int) int {
	if d.cfg.Details == nil {
		return DefaultWorkoutDuration
	}
	booking, err := d.cfg.Details.GetBooking(ctx, payload.BookingID, d.cfg.ServiceToken)
	if err != nil {
		d.logger.Printf("booking lookup failed, assuming default duration (booking_id=%s): %v", payload.BookingID, err)
		return DefaultWorkoutDuration
	}
	if *calories == nil && booking.Calories != nil {
		*calories = booking.Calories
	}
	if booking.DurationMin <= 0 {
		return DefaultWorkoutDuration
	}
	return booking.DurationMin
}

func (d *Dispatcher) handleProgramCompleted(ctx context.Context, repos *domain.Repositories, env domain.Envelope) (*Result, error) {
	var payload domain.ProgramCompletion
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed program.completed payload: %v", domain.ErrValidation, err)
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	earned, err := d.cfg.Engine.EvaluateProgramCompletion(payload)
	if err != nil {
		return nil, fmt.Errorf("evaluate program completion %s: %w", payload.ProgramID, err)
	}
	if err := d.persistAchievements(ctx, repos, []domain.Achievement{earned}); err != nil {
		return nil, err
	}
	if err := d.enqueueProgressUpdated(ctx, repos, payload.UserID, env.EventType); err != nil {
		return nil, err
	}

	return &Result{Achievements: []domain.Achievement{earned}}, nil
}

// persistAchievements stores each achievement and queues its derived
// events in the same transaction as the triggering write.
func (d *Dispatcher) persistAchievements(ctx context.Context, repos *domain.Repositories, earned []domain.Achievement) error {
	for _, a := range earned {
		if err := repos.Achievements.Create(ctx, a); err != nil {
			return fmt.Errorf("create achievement %q for user %s: %w", a.Title, a.UserID, err)
		}

		env, err := domain.NewEnvelope(domain.EventAchievementEarned, a.UserID, domain.AchievementEarned{
			AchievementID: a.ID,
			UserID:        a.UserID,
			Kind:          a.Kind,
			Title:         a.Title,
			Detail:        a.Payload,
			EarnedAt:      a.EarnedAt,
		})
		if err != nil {
			return err
		}
		if err := repos.Outbox.Enqueue(ctx, env, TopicProgressEvents); err != nil {
			return fmt.Errorf("enqueue achievement.earned for user %s: %w", a.UserID, err)
		}

		if a.Kind != domain.AchievementMilestone {
			continue
		}
		var detail struct {
			Threshold int `json:"threshold"`
			Total     int `json:"total"`
		}
		if err := json.Unmarshal(a.Payload, &detail); err != nil || detail.Threshold == 0 {
			// Program completions carry no numeric threshold.
			continue
		}
		milestone, err := domain.NewEnvelope(domain.EventMilestoneReached, a.UserID, domain.MilestoneReached{
			UserID:    a.UserID,
			Milestone: detail.Threshold,
			Total:     detail.Total,
			ReachedAt: a.EarnedAt,
		})
		if err != nil {
			return err
		}
		if err := repos.Outbox.Enqueue(ctx, milestone, TopicProgressEvents); err != nil {
			return fmt.Errorf("enqueue milestone.reached for user %s: %w", a.UserID, err)
		}
	}
	return nil
}

func (d *Dispatcher) enqueueProgressUpdated(ctx context.Context, repos *domain.Repositories, userID, source string) error {
	env, err := domain.NewEnvelope(domain.EventProgressUpdated, userID, domain.ProgressUpdated{
		UserID:    userID,
		Source:    source,
		UpdatedAt: d.cfg.Clock(),
	})
	if err != nil {
		return err
	}
	if err := repos.Outbox.Enqueue(ctx, env, TopicProgressEvents); err != nil {
		return fmt.Errorf("enqueue progress.updated for user %s: %w", userID, err)
	}
	return nil
}
