// Package progress implements the write-side operations behind the
// REST API: recording metrics and workouts, managing goals and health
// records, and keeping goal statuses current.
package progress

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FitSync-G13/fitsync-progress-service/internal/achievement"
	"github.com/FitSync-G13/fitsync-progress-service/internal/analytics"
	"github.com/FitSync-G13/fitsync-progress-service/internal/bmi"
	"github.com/FitSync-G13/fitsync-progress-service/internal/dispatcher"
	"github.com/FitSync-G13/fitsync-progress-service/internal/domain"
	"github.com/FitSync-G13/fitsync-progress-service/internal/observability"
)

// Invalidator drops cached summaries after derived state changes.
type Invalidator interface {
	InvalidateUser(ctx context.Context, userID string, at time.Time)
}

// Service coordinates writes across repositories, the achievement
// engine, and the outbox.
type Service struct {
	uow         domain.UnitOfWork
	repos       *domain.Repositories
	engine      *achievement.Engine
	invalidator Invalidator
	now         func() time.Time
	logger      *log.Logger
}

// NewService constructs a Service. invalidator may be nil.
func NewService(uow domain.UnitOfWork, repos *domain.Repositories, engine *achievement.Engine, invalidator Invalidator) *Service {
	return &Service{
		uow:         uow,
		repos:       repos,
		engine:      engine,
		invalidator: invalidator,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      log.New(log.Writer(), "[progress] ", log.LstdFlags),
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// MetricInput is the payload for recording a body metric.
type MetricInput struct {
	UserID     string
	RecordedAt time.Time
	WeightKg   float64
	HeightCm   *float64
	BodyFatPct *float64
	Notes      string
}

func (in MetricInput) validate() error {
	if strings.TrimSpace(in.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", domain.ErrInvalidInput)
	}
	if in.WeightKg <= 0 {
		return fmt.Errorf("%w: weight_kg must be positive", domain.ErrInvalidInput)
	}
	if in.HeightCm != nil && *in.HeightCm <= 0 {
		return fmt.Errorf("%w: height_cm must be positive", domain.ErrInvalidInput)
	}
	if in.BodyFatPct != nil && (*in.BodyFatPct <= 0 || *in.BodyFatPct >= 100) {
		return fmt.Errorf("%w: body_fat_pct must be within (0, 100)", domain.ErrInvalidInput)
	}
	return nil
}

// RecordMetric stores a body metric, computing BMI at write time when a
// height is supplied, and recalculates the user's active goals.
func (s *Service) RecordMetric(ctx context.Context, in MetricInput) (domain.BodyMetric, error) {
	if err := in.validate(); err != nil {
		return domain.BodyMetric{}, err
	}

	recordedAt := in.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = s.now()
	}

	metric := domain.BodyMetric{
		ID:         uuid.NewString(),
		UserID:     in.UserID,
		RecordedAt: recordedAt,
		WeightKg:   bmi.Round2(in.WeightKg),
		HeightCm:   in.HeightCm,
		BodyFatPct: in.BodyFatPct,
		Notes:      in.Notes,
		CreatedAt:  s.now(),
	}
	if in.HeightCm != nil {
		value, err := bmi.CalculateFromCm(in.WeightKg, *in.HeightCm)
		if err != nil {
			return domain.BodyMetric{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		rounded := bmi.Round2(value)
		metric.BMI = &rounded
	}

	err := s.uow.Execute(ctx, func(ctx context.Context, repos *domain.Repositories) error {
		if err := repos.Metrics.Create(ctx, metric); err != nil {
			return fmt.Errorf("create body metric: %w", err)
		}
		if err := s.recalculateGoals(ctx, repos, metric); err != nil {
			return err
		}
		return s.enqueueProgressUpdated(ctx, repos, in.UserID, "metric.recorded")
	})
	if err != nil {
		return domain.BodyMetric{}, err
	}

	observability.RecordMetricRecorded(recordedAt)
	s.invalidate(ctx, in.UserID, recordedAt)
	return metric, nil
}

// WorkoutInput is the payload for logging a workout manually.
type WorkoutInput struct {
	UserID       string
	DurationMin  int
	Calories     *int
	Mood         *int
	CompletedAt  time.Time
	TrainerNotes string
}

func (in WorkoutInput) validate() error {
	if strings.TrimSpace(in.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", domain.ErrInvalidInput)
	}
	if in.DurationMin <= 0 {
		return fmt.Errorf("%w: duration_min must be positive", domain.ErrInvalidInput)
	}
	if in.Calories != nil && *in.Calories < 0 {
		return fmt.Errorf("%w: calories must be >= 0", domain.ErrInvalidInput)
	}
	if in.Mood != nil && (*in.Mood < 1 || *in.Mood > 5) {
		return fmt.Errorf("%w: mood must be within 1..5", domain.ErrInvalidInput)
	}
	return nil
}

// LogWorkout stores a manually entered workout and runs the achievement
// rules, exactly as a booking-driven workout would.
func (s *Service) LogWorkout(ctx context.Context, in WorkoutInput) (domain.WorkoutLog, []domain.Achievement, error) {
	if err := in.validate(); err != nil {
		return domain.WorkoutLog{}, nil, err
	}

	completedAt := in.CompletedAt
	if completedAt.IsZero() {
		completedAt = s.now()
	}

	workout := domain.WorkoutLog{
		ID:           uuid.NewString(),
		UserID:       in.UserID,
		DurationMin:  in.DurationMin,
		Calories:     in.Calories,
		Mood:         in.Mood,
		CompletedAt:  completedAt,
		TrainerNotes: in.TrainerNotes,
		CreatedAt:    s.now(),
	}

	var earned []domain.Achievement
	err := s.uow.Execute(ctx, func(ctx context.Context, repos *domain.Repositories) error {
		if err := repos.Workouts.Create(ctx, workout); err != nil {
			return fmt.Errorf("create workout log: %w", err)
		}

		var err error
		earned, err = s.engine.EvaluateWorkout(ctx, repos, workout)
		if err != nil {
			return fmt.Errorf("evaluate achievements: %w", err)
		}
		if err := s.persistAchievements(ctx, repos, earned); err != nil {
			return err
		}
		return s.enqueueProgressUpdated(ctx, repos, in.UserID, "workout.logged")
	})
	if err != nil {
		return domain.WorkoutLog{}, nil, err
	}

	observability.RecordWorkoutLogged(completedAt)
	s.invalidate(ctx, in.UserID, completedAt)
	return workout, earned, nil
}

// GoalInput is the payload for creating a goal.
type GoalInput struct {
	UserID      string
	Kind        domain.GoalKind
	StartValue  float64
	TargetValue float64
	TargetDate  time.Time
}

func (in GoalInput) validate() error {
	if strings.TrimSpace(in.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", domain.ErrInvalidInput)
	}
	switch in.Kind {
	case domain.GoalWeight, domain.GoalBodyFat, domain.GoalStreak:
	default:
		return fmt.Errorf("%w: unknown goal kind %q", domain.ErrInvalidInput, in.Kind)
	}
	if in.TargetValue == in.StartValue {
		return fmt.Errorf("%w: target must differ from start", domain.ErrInvalidGoal)
	}
	return nil
}

// CreateGoal stores a new active goal.
func (s *Service) CreateGoal(ctx context.Context, in GoalInput) (domain.Goal, error) {
	if err := in.validate(); err != nil {
		return domain.Goal{}, err
	}

	goal := domain.Goal{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		Kind:        in.Kind,
		StartValue:  in.StartValue,
		TargetValue: in.TargetValue,
		TargetDate:  in.TargetDate,
		Status:      domain.GoalActive,
		CreatedAt:   s.now(),
		UpdatedAt:   s.now(),
	}
	if err := s.repos.Goals.Create(ctx, goal); err != nil {
		return domain.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	return goal, nil
}

// GoalView is a goal together with its computed progress.
type GoalView struct {
	Goal     domain.Goal
	Current  float64
	Progress float64
}

// ListGoals returns the user's goals with progress computed from the
// latest observations. Expired goals are transitioned on read.
func (s *Service) ListGoals(ctx context.Context, userID string) ([]GoalView, error) {
	goals, err := s.repos.Goals.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]GoalView, 0, len(goals))
	for _, goal := range goals {
		if goal.Status == domain.GoalActive && !goal.TargetDate.IsZero() && goal.TargetDate.Before(s.now()) {
			if err := s.repos.Goals.UpdateStatus(ctx, goal.ID, domain.GoalExpired); err != nil {
				return nil, err
			}
			goal.Status = domain.GoalExpired
		}

		current, ok, err := s.currentValue(ctx, goal)
		if err != nil {
			return nil, err
		}
		view := GoalView{Goal: goal}
		if ok {
			view.Current = current
			progress, err := analytics.GoalProgress(goal, current)
			if err == nil {
				view.Progress = progress
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// currentValue resolves the observation a goal is measured against.
func (s *Service) currentValue(ctx context.Context, goal domain.Goal) (float64, bool, error) {
	switch goal.Kind {
	case domain.GoalWeight, domain.GoalBodyFat:
		latest, err := s.repos.Metrics.FindLatest(ctx, goal.UserID)
		if err != nil {
			return 0, false, err
		}
		if latest == nil {
			return 0, false, nil
		}
		if goal.Kind == domain.GoalWeight {
			return latest.WeightKg, true, nil
		}
		if latest.BodyFatPct == nil {
			return 0, false, nil
		}
		return *latest.BodyFatPct, true, nil
	case domain.GoalStreak:
		to := s.now()
		history, err := s.repos.Workouts.FindByUserAndRange(ctx, goal.UserID, to.AddDate(-1, 0, 0), to)
		if err != nil {
			return 0, false, err
		}
		times := make([]time.Time, 0, len(history))
		for _, h := range history {
			times = append(times, h.CompletedAt)
		}
		return float64(achievement.CurrentStreak(times)), true, nil
	default:
		return 0, false, nil
	}
}

// recalculateGoals marks weight and body fat goals achieved when the
// new metric reaches their target.
func (s *Service) recalculateGoals(ctx context.Context, repos *domain.Repositories, metric domain.BodyMetric) error {
	goals, err := repos.Goals.ListByUser(ctx, metric.UserID)
	if err != nil {
		return err
	}
	for _, goal := range goals {
		if goal.Status != domain.GoalActive {
			continue
		}
		var current float64
		switch goal.Kind {
		case domain.GoalWeight:
			current = metric.WeightKg
		case domain.GoalBodyFat:
			if metric.BodyFatPct == nil {
				continue
			}
			current = *metric.BodyFatPct
		default:
			continue
		}

		progress, err := analytics.GoalProgress(goal, current)
		if err != nil || progress < 1 {
			continue
		}
		if err := repos.Goals.UpdateStatus(ctx, goal.ID, domain.GoalAchieved); err != nil {
			return err
		}
		s.logger.Printf("goal achieved (goal_id=%s, user_id=%s, kind=%s)", goal.ID, goal.UserID, goal.Kind)
	}
	return nil
}

// HealthRecordInput is the payload for adding a health record.
type HealthRecordInput struct {
	UserID      string
	RecordType  domain.RecordType
	Description string
	StartDate   time.Time
	EndDate     *time.Time
	Severity    domain.Severity
	Notes       string
}

func (in HealthRecordInput) validate() error {
	if strings.TrimSpace(in.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", domain.ErrInvalidInput)
	}
	switch in.RecordType {
	case domain.RecordInjury, domain.RecordIllness, domain.RecordMedication, domain.RecordAllergy, domain.RecordCondition:
	default:
		return fmt.Errorf("%w: unknown record type %q", domain.ErrInvalidInput, in.RecordType)
	}
	switch in.Severity {
	case domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh:
	default:
		return fmt.Errorf("%w: unknown severity %q", domain.ErrInvalidInput, in.Severity)
	}
	if strings.TrimSpace(in.Description) == "" {
		return fmt.Errorf("%w: description is required", domain.ErrInvalidInput)
	}
	return nil
}

// AddHealthRecord stores a health record. A record with an end date in
// the past is stored inactive.
func (s *Service) AddHealthRecord(ctx context.Context, in HealthRecordInput) (domain.HealthRecord, error) {
	if err := in.validate(); err != nil {
		return domain.HealthRecord{}, err
	}

	startDate := in.StartDate
	if startDate.IsZero() {
		startDate = s.now()
	}
	record := domain.HealthRecord{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		RecordType:  in.RecordType,
		Description: in.Description,
		StartDate:   startDate,
		EndDate:     in.EndDate,
		Severity:    in.Severity,
		Active:      in.EndDate == nil || in.EndDate.After(s.now()),
		Notes:       in.Notes,
		CreatedAt:   s.now(),
	}
	if err := s.repos.HealthRecords.Create(ctx, record); err != nil {
		return domain.HealthRecord{}, fmt.Errorf("create health record: %w", err)
	}
	return record, nil
}

// ListHealthRecords returns the user's health records, newest first.
func (s *Service) ListHealthRecords(ctx context.Context, userID string) ([]domain.HealthRecord, error) {
	return s.repos.HealthRecords.ListByUser(ctx, userID)
}

func (s *Service) persistAchievements(ctx context.Context, repos *domain.Repositories, earned []domain.Achievement) error {
	for _, a := range earned {
		if err := repos.Achievements.Create(ctx, a); err != nil {
			return fmt.Errorf("create achievement %q: %w", a.Title, err)
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
		if err := repos.Outbox.Enqueue(ctx, env, dispatcher.TopicProgressEvents); err != nil {
			return fmt.Errorf("enqueue achievement.earned: %w", err)
		}
	}
	return nil
}

func (s *Service) enqueueProgressUpdated(ctx context.Context, repos *domain.Repositories, userID, source string) error {
	env, err := domain.NewEnvelope(domain.EventProgressUpdated, userID, domain.ProgressUpdated{
		UserID:    userID,
		Source:    source,
		UpdatedAt: s.now(),
	})
	if err != nil {
		return err
	}
	return repos.Outbox.Enqueue(ctx, env, dispatcher.TopicProgressEvents)
}

func (s *Service) invalidate(ctx context.Context, userID string, at time.Time) {
	if s.invalidator == nil {
		return
	}
	s.invalidator.InvalidateUser(ctx, userID, at)
}
