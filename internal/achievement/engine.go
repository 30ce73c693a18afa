// Package achievement evaluates milestone, streak, and personal-record
// rules against a user's persisted workout history.
package achievement

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/FitSync-G13/fitsync-progress-service/internal/domain"
)

// Default threshold sets. Milestones count total workouts, streaks count
// consecutive workout days.
var (
	DefaultMilestones = []int{10, 50, 100}
	DefaultStreaks    = []int{3, 7, 14, 30, 60, 90}
)

// historyWindow bounds how far back the engine reads workout history
// when computing streaks. It only needs to cover the largest streak
// threshold.
const historyWindow = 365 * 24 * time.Hour

// Engine applies achievement rules. Evaluations are read-then-decide:
// callers must serialize concurrent evaluations for the same user and
// run them inside the triggering event's transaction.
type Engine struct {
	milestones []int
	streaks    []int
	now        func() time.Time
}

// Option configures the Engine.
type Option func(*Engine)

// WithMilestones overrides the workout-count thresholds.
func WithMilestones(thresholds []int) Option {
	return func(e *Engine) { e.milestones = thresholds }
}

// WithStreaks overrides the streak-day thresholds.
func WithStreaks(thresholds []int) Option {
	return func(e *Engine) { e.streaks = thresholds }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine constructs an Engine with default thresholds.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		milestones: DefaultMilestones,
		streaks:    DefaultStreaks,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EvaluateWorkout runs every workout-triggered rule for the owner of the
// supplied log. The log is expected to be persisted already; returned
// achievements are not persisted by the engine.
func (e *Engine) EvaluateWorkout(ctx context.Context, repos *domain.Repositories, log domain.WorkoutLog) ([]domain.Achievement, error) {
	var earned []domain.Achievement

	milestone, err := e.evaluateMilestone(ctx, repos, log.UserID)
	if err != nil {
		return nil, err
	}
	earned = append(earned, milestone...)

	streak, err := e.evaluateStreak(ctx, repos, log)
	if err != nil {
		return nil, err
	}
	earned = append(earned, streak...)

	records, err := e.evaluatePersonalRecord(ctx, repos, log)
	if err != nil {
		return nil, err
	}
	earned = append(earned, records...)

	return earned, nil
}

// EvaluateProgramCompletion produces the milestone achievement for a
// finished training program.
func (e *Engine) EvaluateProgramCompletion(pc domain.ProgramCompletion) (domain.Achievement, error) {
	title := "Completed Training Program"
	if pc.ProgramName != "" {
		title = fmt.Sprintf("Completed %s", pc.ProgramName)
	}
	payload, err := json.Marshal(map[string]string{"program_id": pc.ProgramID})
	if err != nil {
		return domain.Achievement{}, err
	}
	earnedAt := pc.CompletedAt
	if earnedAt.IsZero() {
		earnedAt = e.now()
	}
	return domain.Achievement{
		ID:       uuid.NewString(),
		UserID:   pc.UserID,
		Kind:     domain.AchievementMilestone,
		Title:    title,
		Payload:  payload,
		EarnedAt: earnedAt,
	}, nil
}

func (e *Engine) evaluateMilestone(ctx context.Context, repos *domain.Repositories, userID string) ([]domain.Achievement, error) {
	total, err := repos.Workouts.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var earned []domain.Achievement
	for _, threshold := range e.milestones {
		if total < threshold {
			continue
		}
		exists, err := repos.Achievements.ExistsMilestone(ctx, userID, domain.AchievementMilestone, threshold)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		payload, err := json.Marshal(map[string]int{"threshold": threshold, "total": total})
		if err != nil {
			return nil, err
		}
		earned = append(earned, domain.Achievement{
			ID:       uuid.NewString(),
			UserID:   userID,
			Kind:     domain.AchievementMilestone,
			Title:    fmt.Sprintf("%d Workouts Completed", threshold),
			Payload:  payload,
			EarnedAt: e.now(),
		})
	}
	return earned, nil
}

func (e *Engine) evaluateStreak(ctx context.Context, repos *domain.Repositories, log domain.WorkoutLog) ([]domain.Achievement, error) {
	to := log.CompletedAt
	history, err := repos.Workouts.FindByUserAndRange(ctx, log.UserID, to.Add(-historyWindow), to)
	if err != nil {
		return nil, err
	}

	times := make([]time.Time, 0, len(history))
	for _, h := range history {
		times = append(times, h.CompletedAt)
	}
	streak := CurrentStreak(times)

	var earned []domain.Achievement
	for _, threshold := range e.streaks {
		if streak < threshold {
			continue
		}
		exists, err := repos.Achievements.ExistsMilestone(ctx, log.UserID, domain.AchievementStreak, threshold)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		payload, err := json.Marshal(map[string]int{"threshold": threshold, "current_streak": streak})
		if err != nil {
			return nil, err
		}
		earned = append(earned, domain.Achievement{
			ID:       uuid.NewString(),
			UserID:   log.UserID,
			Kind:     domain.AchievementStreak,
			Title:    fmt.Sprintf("%d-Day Workout Streak", threshold),
			Payload:  payload,
			EarnedAt: e.now(),
		})
	}
	return earned, nil
}

func (e *Engine) evaluatePersonalRecord(ctx context.Context, repos *domain.Repositories, log domain.WorkoutLog) ([]domain.Achievement, error) {
	var earned []domain.Achievement

	prevDuration, err := repos.Workouts.MaxDuration(ctx, log.UserID, log.ID)
	if err != nil {
		return nil, err
	}
	// Ties do not set a record. A first workout (previous max zero)
	// does not either: there is no record to beat yet.
	if prevDuration > 0 && log.DurationMin > prevDuration {
		record, err := newPersonalRecord(log.UserID, "duration_min", log.DurationMin, prevDuration, e.now())
		if err != nil {
			return nil, err
		}
		earned = append(earned, record)
	}

	if log.Calories != nil {
		prevCalories, err := repos.Workouts.MaxCalories(ctx, log.UserID, log.ID)
		if err != nil {
			return nil, err
		}
		if prevCalories > 0 && *log.Calories > prevCalories {
			record, err := newPersonalRecord(log.UserID, "calories", *log.Calories, prevCalories, e.now())
			if err != nil {
				return nil, err
			}
			earned = append(earned, record)
		}
	}

	return earned, nil
}

func newPersonalRecord(userID, metric string, value, previous int, earnedAt time.Time) (domain.Achievement, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"metric":   metric,
		"value":    value,
		"previous": previous,
	})
	if err != nil {
		return domain.Achievement{}, err
	}
	return domain.Achievement{
		ID:       uuid.NewString(),
		UserID:   userID,
		Kind:     domain.AchievementPersonalRecord,
		Title:    fmt.Sprintf("New Personal Record: %s", metric),
		Payload:  payload,
		EarnedAt: earnedAt,
	}, nil
}

// CurrentStreak returns the number of consecutive calendar days with at
// least one workout, counted backwards from the most recent workout
// day. A gap of more than one day breaks the run.
func CurrentStreak(times []time.Time) int {
	days := uniqueDays(times)
	if len(days) == 0 {
		return 0
	}

	streak := 1
	for i := len(days) - 1; i > 0; i-- {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			streak++
			continue
		}
		break
	}
	return streak
}

// LongestStreak returns the longest consecutive-day run anywhere in the
// supplied history.
func LongestStreak(times []time.Time) int {
	days := uniqueDays(times)
	if len(days) == 0 {
		return 0
	}

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 1
	}
	return longest
}

// uniqueDays truncates timestamps to UTC midnight, deduplicates, and
// sorts ascending.
func uniqueDays(times []time.Time) []time.Time {
	seen := make(map[time.Time]struct{}, len(times))
	days := make([]time.Time, 0, len(times))
	for _, t := range times {
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}
