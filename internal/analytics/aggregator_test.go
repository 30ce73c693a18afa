package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/FitSync-G13/fitsync-progress-service/internal/domain"
	"github.com/FitSync-G13/fitsync-progress-service/internal/store/memory"
)

// Monday.
var testAnchor = time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)

func seedWorkout(t *testing.T, repos *domain.Repositories, userID string, completedAt time.Time, durationMin int, calories, mood *int) {
	t.Helper()
	require.NoError(t, repos.Workouts.Create(context.Background(), domain.WorkoutLog{
		ID:          uuid.NewString(),
		UserID:      userID,
		DurationMin: durationMin,
		Calories:    calories,
		Mood:        mood,
		CompletedAt: completedAt,
		CreatedAt:   completedAt,
	}))
}

func intPtr(v int) *int { return &v }

func weightGoal(start, target float64) domain.Goal {
	return domain.Goal{
		ID:          "goal-1",
		UserID:      "user-1",
		Kind:        domain.GoalWeight,
		StartValue:  start,
		TargetValue: target,
		Status:      domain.GoalActive,
	}
}

func TestGoalProgressClampsToOneOnOvershoot(t *testing.T) {
	// Start 90, target 80, current 75: past the target reads as done.
	progress, err := GoalProgress(weightGoal(90, 80), 75)
	require.NoError(t, err)
	require.Equal(t, 1.0, progress)
}

func TestGoalProgressClampsToZeroWhenRegressing(t *testing.T) {
	// Moving away from the target never goes negative.
	progress, err := GoalProgress(weightGoal(90, 80), 95)
	require.NoError(t, err)
	require.Equal(t, 0.0, progress)
}

func TestGoalProgressMidpoint(t *testing.T) {
	progress, err := GoalProgress(weightGoal(90, 80), 85)
	require.NoError(t, err)
	require.InDelta(t, 0.5, progress, 0.001)
}

func TestGoalProgressDegenerateGoal(t *testing.T) {
	// Target equals start: complete only when already at the target.
	progress, err := GoalProgress(weightGoal(80, 80), 80)
	require.NoError(t, err)
	require.Equal(t, 1.0, progress)

	_, err = GoalProgress(weightGoal(80, 80), 85)
	require.ErrorIs(t, err, domain.ErrInvalidGoal)
}

func TestComputeTrendStableBand(t *testing.T) {
	// 80.0 to 80.5 is a 0.625% change: inside the stable band.
	trend := computeTrend(80, 80.5)
	require.Equal(t, TrendStable, trend.Direction)
	require.InDelta(t, 0.5, trend.Delta, 0.001)

	trend = computeTrend(80, 78)
	require.Equal(t, TrendLoss, trend.Direction)

	trend = computeTrend(80, 82)
	require.Equal(t, TrendGain, trend.Direction)
}

func TestWeekStartIsMonday(t *testing.T) {
	// Sunday June 22 belongs to the week opened on Monday June 16.
	sunday := time.Date(2025, 6, 22, 23, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), WeekStart(sunday))
	require.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), WeekStart(testAnchor))
}

func TestWeeklySummaryAggregatesWeek(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	aggregator := NewAggregator(repos, nil)

	// Mon, Tue, Wed inside the week.
	seedWorkout(t, repos, "user-1", testAnchor, 45, intPtr(300), intPtr(4))
	seedWorkout(t, repos, "user-1", testAnchor.AddDate(0, 0, 1), 30, intPtr(200), intPtr(2))
	seedWorkout(t, repos, "user-1", testAnchor.AddDate(0, 0, 2), 60, nil, nil)
	// Previous Sunday: outside the week, excluded.
	seedWorkout(t, repos, "user-1", testAnchor.AddDate(0, 0, -1), 90, intPtr(500), nil)

	stats, err := aggregator.WeeklySummary(context.Background(), "user-1", testAnchor)
	require.NoError(t, err)
	require.Equal(t, 3, stats.WorkoutCount)
	require.Equal(t, 135, stats.TotalDuration)
	require.Equal(t, 500, stats.TotalCalories)
	require.InDelta(t, 3.0, stats.AvgMood, 0.001)
	require.Equal(t, 3, stats.StreakDays)
}

func TestWeeklySummaryEmptyWeekIsZeroValue(t *testing.T) {
	store := memory.NewStore()
	aggregator := NewAggregator(store.Repositories(), nil)

	stats, err := aggregator.WeeklySummary(context.Background(), "user-1", testAnchor)
	require.NoError(t, err)
	require.Equal(t, WeeklyStats{WeekStart: time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)}, stats)
}
