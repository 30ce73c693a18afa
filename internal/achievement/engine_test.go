package achievement

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
var testClock = func() time.Time {
	return time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)
}

func day(offset int) time.Time {
	return testClock().AddDate(0, 0, offset)
}

func seedWorkout(t *testing.T, repos *domain.Repositories, userID string, completedAt time.Time, durationMin int, calories *int) domain.WorkoutLog {
	t.Helper()
	log := domain.WorkoutLog{
		ID:          uuid.NewString(),
		UserID:      userID,
		DurationMin: durationMin,
		Calories:    calories,
		CompletedAt: completedAt,
		CreatedAt:   completedAt,
	}
	require.NoError(t, repos.Workouts.Create(context.Background(), log))
	return log
}

func intPtr(v int) *int { return &v }

func kinds(earned []domain.Achievement) []domain.AchievementKind {
	out := make([]domain.AchievementKind, 0, len(earned))
	for _, a := range earned {
		out = append(out, a.Kind)
	}
	return out
}

func TestCurrentStreakConsecutiveDays(t *testing.T) {
	// Mon, Tue, Wed.
	times := []time.Time{day(0), day(1), day(2)}
	require.Equal(t, 3, CurrentStreak(times))
}

func TestCurrentStreakResetsAfterGap(t *testing.T) {
	// Mon, Tue, Wed, then Fri: the Thursday gap resets the run to 1.
	times := []time.Time{day(0), day(1), day(2), day(4)}
	require.Equal(t, 1, CurrentStreak(times))
	require.Equal(t, 3, LongestStreak(times))
}

func TestCurrentStreakIgnoresSameDayRepeats(t *testing.T) {
	times := []time.Time{
		day(0),
		day(0).Add(6 * time.Hour),
		day(1),
	}
	require.Equal(t, 2, CurrentStreak(times))
}

func TestStreakEmptyHistory(t *testing.T) {
	require.Equal(t, 0, CurrentStreak(nil))
	require.Equal(t, 0, LongestStreak(nil))
}

func TestEvaluateWorkoutEarnsStreakAchievement(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	engine := NewEngine(WithClock(testClock))

	seedWorkout(t, repos, "user-1", day(-2), 45, nil)
	seedWorkout(t, repos, "user-1", day(-1), 45, nil)
	log := seedWorkout(t, repos, "user-1", day(0), 45, nil)

	earned, err := engine.EvaluateWorkout(context.Background(), repos, log)
	require.NoError(t, err)
	require.Equal(t, []domain.AchievementKind{domain.AchievementStreak}, kinds(earned))
	require.Equal(t, "3-Day Workout Streak", earned[0].Title)
}

func TestEvaluateWorkoutStreakBrokenByGap(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	engine := NewEngine(WithClock(testClock))

	// Two-day gap before the latest workout: no 3-day streak.
	seedWorkout(t, repos, "user-1", day(-4), 45, nil)
	seedWorkout(t, repos, "user-1", day(-3), 45, nil)
	log := seedWorkout(t, repos, "user-1", day(0), 45, nil)

	earned, err := engine.EvaluateWorkout(context.Background(), repos, log)
	require.NoError(t, err)
	require.Empty(t, earned)
}

func TestPersonalRecordRequiresStrictlyGreater(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	engine := NewEngine(WithClock(testClock))

	seedWorkout(t, repos, "user-1", day(-10), 60, nil)

	// A tie with the previous max is not a record.
	tie := seedWorkout(t, repos, "user-1", day(0), 60, nil)
	earned, err := engine.EvaluateWorkout(context.Background(), repos, tie)
	require.NoError(t, err)
	require.Empty(t, earned)

	// One minute more is.
	better := seedWorkout(t, repos, "user-1", day(0).Add(time.Hour), 61, nil)
	earned, err = engine.EvaluateWorkout(context.Background(), repos, better)
	require.NoError(t, err)
	require.Equal(t, []domain.AchievementKind{domain.AchievementPersonalRecord}, kinds(earned))
	require.Equal(t, "New Personal Record: duration_min", earned[0].Title)
}

func TestPersonalRecordSkipsFirstWorkout(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	engine := NewEngine(WithClock(testClock))

	first := seedWorkout(t, repos, "user-1", day(0), 90, intPtr(500))
	earned, err := engine.EvaluateWorkout(context.Background(), repos, first)
	require.NoError(t, err)
	require.Empty(t, earned)
}

func TestPersonalRecordCalories(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	engine := NewEngine(WithClock(testClock))

	seedWorkout(t, repos, "user-1", day(-10), 90, intPtr(300))

	// Duration ties, calories improve: exactly one record.
	log := seedWorkout(t, repos, "user-1", day(0), 90, intPtr(320))
	earned, err := engine.EvaluateWorkout(context.Background(), repos, log)
	require.NoError(t, err)
	require.Equal(t, []domain.AchievementKind{domain.AchievementPersonalRecord}, kinds(earned))
	require.Equal(t, "New Personal Record: calories", earned[0].Title)
}

func TestMilestoneAwardedOnceAtThreshold(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	engine := NewEngine(WithClock(testClock), WithStreaks(nil))

	for i := 0; i < 9; i++ {
		seedWorkout(t, repos, "user-1", day(-3*(i+1)), 90, nil)
	}
	tenth := seedWorkout(t, repos, "user-1", day(0), 45, nil)

	earned, err := engine.EvaluateWorkout(context.Background(), repos, tenth)
	require.NoError(t, err)
	require.Equal(t, []domain.AchievementKind{domain.AchievementMilestone}, kinds(earned))
	require.Equal(t, "10 Workouts Completed", earned[0].Title)

	for _, a := range earned {
		require.NoError(t, repos.Achievements.Create(context.Background(), a))
	}

	// Workout eleven passes the threshold too but the badge is not
	// re-awarded.
	eleventh := seedWorkout(t, repos, "user-1", day(0).Add(2*time.Hour), 45, nil)
	earned, err = engine.EvaluateWorkout(context.Background(), repos, eleventh)
	require.NoError(t, err)
	require.Empty(t, earned)
}

func TestEvaluateProgramCompletionTitle(t *testing.T) {
	engine := NewEngine(WithClock(testClock))

	named, err := engine.EvaluateProgramCompletion(domain.ProgramCompletion{
		ProgramID:   "prog-1",
		UserID:      "user-1",
		ProgramName: "Strength Foundations",
		CompletedAt: testClock(),
	})
	require.NoError(t, err)
	require.Equal(t, "Completed Strength Foundations", named.Title)
	require.Equal(t, domain.AchievementMilestone, named.Kind)

	unnamed, err := engine.EvaluateProgramCompletion(domain.ProgramCompletion{
		ProgramID: "prog-2",
		UserID:    "user-1",
	})
	require.NoError(t, err)
	require.Equal(t, "Completed Training Program", unnamed.Title)
	require.Equal(t, testClock(), unnamed.EarnedAt)
}
