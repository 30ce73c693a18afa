package progress

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/FitSync-G13/fitsync-progress-service/internal/achievement"
	"github.com/FitSync-G13/fitsync-progress-service/internal/domain"
	"github.com/FitSync-G13/fitsync-progress-service/internal/store/memory"
)

var testClock = func() time.Time {
	return time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)
}

func newTestService(store *memory.Store) *Service {
	engine := achievement.NewEngine(achievement.WithClock(testClock))
	return NewService(store, store.Repositories(), engine, nil).WithClock(testClock)
}

func floatPtr(v float64) *float64 { return &v }

func TestRecordMetricComputesBMI(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(store)

	metric, err := svc.RecordMetric(context.Background(), MetricInput{
		UserID:   "user-1",
		WeightKg: 80,
		HeightCm: floatPtr(180),
	})
	require.NoError(t, err)
	require.NotNil(t, metric.BMI)
	require.InDelta(t, 24.69, *metric.BMI, 0.001)
	require.Equal(t, testClock(), metric.RecordedAt)

	// A progress.updated event is queued alongside the write.
	outbox := store.Outbox()
	require.Len(t, outbox, 1)
	require.Equal(t, domain.EventProgressUpdated, outbox[0].Envelope.EventType)
}

func TestRecordMetricWithoutHeightSkipsBMI(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(store)

	metric, err := svc.RecordMetric(context.Background(), MetricInput{
		UserID:   "user-1",
		WeightKg: 80,
	})
	require.NoError(t, err)
	require.Nil(t, metric.BMI)
}

func TestRecordMetricRejectsInvalidInput(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(store)

	_, err := svc.RecordMetric(context.Background(), MetricInput{UserID: "user-1", WeightKg: 0})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.RecordMetric(context.Background(), MetricInput{
		UserID:   "user-1",
		WeightKg: 80,
		HeightCm: floatPtr(-1),
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRecordMetricAchievesWeightGoal(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(store)

	goal, err := svc.CreateGoal(context.Background(), GoalInput{
		UserID:      "user-1",
		Kind:        domain.GoalWeight,
		StartValue:  90,
		TargetValue: 80,
		TargetDate:  testClock().AddDate(0, 6, 0),
	})
	require.NoError(t, err)
	require.Equal(t, domain.GoalActive, goal.Status)

	_, err = svc.RecordMetric(context.Background(), MetricInput{UserID: "user-1", WeightKg: 79.5})
	require.NoError(t, err)

	goals, err := store.Repositories().Goals.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, goals, 1)
	require.Equal(t, domain.GoalAchieved, goals[0].Status)
}

func TestLogWorkoutRunsAchievementRules(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(store)
	repos := store.Repositories()

	for i := 0; i < 9; i++ {
		completed := testClock().AddDate(0, 0, -3*(i+1))
		require.NoError(t, repos.Workouts.Create(context.Background(), domain.WorkoutLog{
			ID:          uuid.NewString(),
			UserID:      "user-1",
			DurationMin: 90,
			CompletedAt: completed,
			CreatedAt:   completed,
		}))
	}

	workout, earned, err := svc.LogWorkout(context.Background(), WorkoutInput{
		UserID:      "user-1",
		DurationMin: 45,
	})
	require.NoError(t, err)
	require.NotEmpty(t, workout.ID)
	require.Len(t, earned, 1)
	require.Equal(t, domain.AchievementMilestone, earned[0].Kind)

	types := make([]string, 0)
	for _, entry := range store.Outbox() {
		types = append(types, entry.Envelope.EventType)
	}
	require.Equal(t, []string{domain.EventAchievementEarned, domain.EventProgressUpdated}, types)
}

func TestLogWorkoutRejectsInvalidMood(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(store)

	mood := 6
	_, _, err := svc.LogWorkout(context.Background(), WorkoutInput{
		UserID:      "user-1",
		DurationMin: 45,
		Mood:        &mood,
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateGoalRejectsDegenerateTarget(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(store)

	_, err := svc.CreateGoal(context.Background(), GoalInput{
		UserID:      "user-1",
		Kind:        domain.GoalWeight,
		StartValue:  80,
		TargetValue: 80,
	})
	require.ErrorIs(t, err, domain.ErrInvalidGoal)
}

func TestListGoalsComputesProgress(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(store)

	_, err := svc.CreateGoal(context.Background(), GoalInput{
		UserID:      "user-1",
		Kind:        domain.GoalWeight,
		StartValue:  90,
		TargetValue: 80,
		TargetDate:  testClock().AddDate(0, 6, 0),
	})
	require.NoError(t, err)

	_, err = svc.RecordMetric(context.Background(), MetricInput{UserID: "user-1", WeightKg: 85})
	require.NoError(t, err)

	views, err := svc.ListGoals(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, 85.0, views[0].Current)
	require.InDelta(t, 0.5, views[0].Progress, 0.001)
}

func TestListGoalsExpiresPastDue(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(store)

	_, err := svc.CreateGoal(context.Background(), GoalInput{
		UserID:      "user-1",
		Kind:        domain.GoalWeight,
		StartValue:  90,
		TargetValue: 80,
		TargetDate:  testClock().AddDate(0, 0, -1),
	})
	require.NoError(t, err)

	views, err := svc.ListGoals(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, domain.GoalExpired, views[0].Goal.Status)
}

func TestAddHealthRecordMarksPastRecordInactive(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(store)

	ended := testClock().AddDate(0, 0, -7)
	record, err := svc.AddHealthRecord(context.Background(), HealthRecordInput{
		UserID:      "user-1",
		RecordType:  domain.RecordInjury,
		Description: "sprained ankle",
		StartDate:   testClock().AddDate(0, 0, -30),
		EndDate:     &ended,
		Severity:    domain.SeverityMedium,
	})
	require.NoError(t, err)
	require.False(t, record.Active)

	records, err := svc.ListHealthRecords(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
}
