// Package analytics rolls workout and metric history up into weekly and
// lifetime summaries.
package analytics

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/FitSync-G13/fitsync-progress-service/internal/achievement"
	"github.com/FitSync-G13/fitsync-progress-service/internal/domain"
)

// MaxAchievementPageSize caps achievement listing page sizes.
const MaxAchievementPageSize = 100

// Trend directions.
const (
	TrendLoss   = "loss"
	TrendGain   = "gain"
	TrendStable = "stable"
)

// stableBandPct is the |pct_change| band treated as stable.
const stableBandPct = 1.0

// WeeklyStats summarises one ISO week of workouts. A week without
// workouts yields the zero value, never an absent record.
type WeeklyStats struct {
	WeekStart     time.Time `json:"week_start"`
	WorkoutCount  int       `json:"workout_count"`
	TotalDuration int       `json:"total_duration"`
	TotalCalories int       `json:"total_calories"`
	AvgMood       float64   `json:"avg_mood"`
	StreakDays    int       `json:"streak_days"`
}

// Trend describes the movement of a metric across a window.
type Trend struct {
	Direction string  `json:"direction"`
	Delta     float64 `json:"delta"`
	PctChange float64 `json:"pct_change"`
}

// ProgressStats is the lifetime summary of a user's progress.
type ProgressStats struct {
	LatestMetric      *domain.BodyMetric `json:"latest_metric,omitempty"`
	WeightTrend       *Trend             `json:"weight_trend,omitempty"`
	BodyFatTrend      *Trend             `json:"body_fat_trend,omitempty"`
	TotalWorkouts     int                `json:"total_workouts"`
	TotalMinutes      int                `json:"total_workout_minutes"`
	TotalCalories     int                `json:"total_calories"`
	TotalAchievements int                `json:"total_achievements"`
}

// StatsCache is an advisory read-through cache for computed summaries.
// It is never consulted for idempotency decisions.
type StatsCache interface {
	GetWeekly(ctx context.Context, userID string, week string) (*WeeklyStats, error)
	SetWeekly(ctx context.Context, userID string, week string, stats WeeklyStats) error
	InvalidateWeekly(ctx context.Context, userID string, week string) error
	GetProgress(ctx context.Context, userID string, period string) (*ProgressStats, error)
	SetProgress(ctx context.Context, userID string, period string, stats ProgressStats) error
	InvalidateProgress(ctx context.Context, userID string) error
}

// Aggregator computes summaries from the persisted history.
type Aggregator struct {
	repos  *domain.Repositories
	cache  StatsCache
	logger *log.Logger
}

// NewAggregator constructs an Aggregator. cache may be nil.
func NewAggregator(repos *domain.Repositories, cache StatsCache) *Aggregator {
	return &Aggregator{
		repos:  repos,
		cache:  cache,
		logger: log.New(log.Writer(), "[analytics] ", log.LstdFlags),
	}
}

// WeekStart returns the Monday 00:00 opening the ISO week containing t,
// on t's naive wall-clock values.
func WeekStart(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -(weekday - 1))
}

// WeekKey formats the ISO week label used as the cache key component.
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// WeeklySummary computes stats for the ISO week containing anchor.
func (a *Aggregator) WeeklySummary(ctx context.Context, userID string, anchor time.Time) (WeeklyStats, error) {
	week := WeekKey(anchor)
	if a.cache != nil {
		if cached, err := a.cache.GetWeekly(ctx, userID, week); err != nil {
			a.logger.Printf("weekly cache read failed (user_id=%s, week=%s): %v", userID, week, err)
		} else if cached != nil {
			return *cached, nil
		}
	}

	start := WeekStart(anchor)
	end := start.AddDate(0, 0, 7)
	// FindByUserAndRange is inclusive on both ends; shave a nanosecond
	// to keep the [Monday, next Monday) boundary half-open.
	logs, err := a.repos.Workouts.FindByUserAndRange(ctx, userID, start, end.Add(-time.Nanosecond))
	if err != nil {
		return WeeklyStats{}, err
	}

	stats := WeeklyStats{WeekStart: start}
	moodSum, moodCount := 0, 0
	times := make([]time.Time, 0, len(logs))
	for _, w := range logs {
		stats.WorkoutCount++
		stats.TotalDuration += w.DurationMin
		if w.Calories != nil {
			stats.TotalCalories += *w.Calories
		}
		if w.Mood != nil {
			moodSum += *w.Mood
			moodCount++
		}
		times = append(times, w.CompletedAt)
	}
	if moodCount > 0 {
		stats.AvgMood = float64(moodSum) / float64(moodCount)
	}
	stats.StreakDays = achievement.LongestStreak(times)

	if a.cache != nil {
		if err := a.cache.SetWeekly(ctx, userID, week, stats); err != nil {
			a.logger.Printf("weekly cache write failed (user_id=%s, week=%s): %v", userID, week, err)
		}
	}
	return stats, nil
}

// ProgressSummary computes the lifetime summary plus metric trends over
// the supplied window.
func (a *Aggregator) ProgressSummary(ctx context.Context, userID string, window time.Duration) (ProgressStats, error) {
	period := window.String()
	if a.cache != nil {
		if cached, err := a.cache.GetProgress(ctx, userID, period); err != nil {
			a.logger.Printf("progress cache read failed (user_id=%s): %v", userID, err)
		} else if cached != nil {
			return *cached, nil
		}
	}

	stats := ProgressStats{}

	totals, err := a.repos.Workouts.TotalsByUser(ctx, userID)
	if err != nil {
		return stats, err
	}
	stats.TotalWorkouts = totals.Workouts
	stats.TotalMinutes = totals.TotalMinutes
	stats.TotalCalories = totals.TotalCalories

	achieved, err := a.repos.Achievements.CountByUser(ctx, userID)
	if err != nil {
		return stats, err
	}
	stats.TotalAchievements = achieved

	latest, err := a.repos.Metrics.FindLatest(ctx, userID)
	if err != nil {
		return stats, err
	}
	stats.LatestMetric = latest

	now := time.Now().UTC()
	metrics, err := a.repos.Metrics.FindByUserAndRange(ctx, userID, now.Add(-window), now)
	if err != nil {
		return stats, err
	}
	if len(metrics) >= 2 {
		first, last := metrics[0], metrics[len(metrics)-1]
		weight := computeTrend(first.WeightKg, last.WeightKg)
		stats.WeightTrend = &weight
		if first.BodyFatPct != nil && last.BodyFatPct != nil {
			fat := computeTrend(*first.BodyFatPct, *last.BodyFatPct)
			stats.BodyFatTrend = &fat
		}
	}

	if a.cache != nil {
		if err := a.cache.SetProgress(ctx, userID, period, stats); err != nil {
			a.logger.Printf("progress cache write failed (user_id=%s): %v", userID, err)
		}
	}
	return stats, nil
}

// computeTrend reports the linear difference between the earliest and
// latest observation. Stable means |pct_change| < 1%.
func computeTrend(earliest, latest float64) Trend {
	delta := latest - earliest
	var pct float64
	switch {
	case earliest != 0:
		pct = delta / earliest * 100
	case delta != 0:
		pct = 100 * sign(delta)
	}

	direction := TrendStable
	if math.Abs(pct) >= stableBandPct {
		if delta < 0 {
			direction = TrendLoss
		} else {
			direction = TrendGain
		}
	}
	return Trend{Direction: direction, Delta: delta, PctChange: pct}
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// GoalProgress returns progress towards a goal clamped to [0, 1].
// A degenerate goal (target equals start) is complete when the current
// value already sits at the target and invalid otherwise.
func GoalProgress(goal domain.Goal, current float64) (float64, error) {
	span := goal.TargetValue - goal.StartValue
	if span == 0 {
		if current == goal.TargetValue {
			return 1, nil
		}
		return 0, fmt.Errorf("%w: goal %s has target equal to start", domain.ErrInvalidGoal, goal.ID)
	}
	progress := (current - goal.StartValue) / span
	if progress < 0 {
		return 0, nil
	}
	if progress > 1 {
		return 1, nil
	}
	return progress, nil
}

// ListAchievements returns a page of achievements sorted by earned_at
// descending. The limit is clamped to MaxAchievementPageSize.
func (a *Aggregator) ListAchievements(ctx context.Context, userID string, offset, limit int) ([]domain.Achievement, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > MaxAchievementPageSize {
		limit = MaxAchievementPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return a.repos.Achievements.ListByUser(ctx, userID, offset, limit)
}

// InvalidateUser drops cached summaries for the user and the week the
// workout landed in. Cache errors are logged, never surfaced: the cache
// is advisory.
func (a *Aggregator) InvalidateUser(ctx context.Context, userID string, at time.Time) {
	if a.cache == nil {
		return
	}
	week := WeekKey(at)
	if err := a.cache.InvalidateWeekly(ctx, userID, week); err != nil {
		a.logger.Printf("weekly cache invalidation failed (user_id=%s, week=%s): %v", userID, week, err)
	}
	if err := a.cache.InvalidateProgress(ctx, userID); err != nil {
		a.logger.Printf("progress cache invalidation failed (user_id=%s): %v", userID, err)
	}
}
