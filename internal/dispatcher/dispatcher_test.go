package dispatcher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/FitSync-G13/fitsync-progress-service/internal/achievement"
	"github.com/FitSync-G13/fitsync-progress-service/internal/client"
	"github.com/FitSync-G13/fitsync-progress-service/internal/domain"
	"github.com/FitSync-G13/fitsync-progress-service/internal/store/memory"
)

var testClock = func() time.Time {
	return time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)
}

func newTestDispatcher(t *testing.T, store *memory.Store, opts ...func(*Config)) *Dispatcher {
	t.Helper()
	cfg := Config{
		UnitOfWork: store,
		Repos:      store.Repositories(),
		Engine:     achievement.NewEngine(achievement.WithClock(testClock)),
		Clock:      testClock,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return New(cfg)
}

func basePayload() domain.BookingCompletion {
	return domain.BookingCompletion{
		BookingID:   "booking-1",
		UserID:      "user-1",
		DurationMin: 45,
		CompletedAt: testClock(),
	}
}

func bookingEnvelope(t *testing.T, eventID string, payload domain.BookingCompletion) domain.Envelope {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return domain.Envelope{
		EventID:   eventID,
		EventType: domain.EventBookingCompleted,
		UserID:    payload.UserID,
		Payload:   body,
		EmittedAt: testClock(),
	}
}

func seedWorkouts(t *testing.T, store *memory.Store, userID string, n int) {
	t.Helper()
	repos := store.Repositories()
	for i := 0; i < n; i++ {
		// Spread the history out so streak rules stay quiet.
		completed := testClock().AddDate(0, 0, -3*(i+1))
		require.NoError(t, repos.Workouts.Create(context.Background(), domain.WorkoutLog{
			ID:          uuid.NewString(),
			UserID:      userID,
			DurationMin: 90,
			CompletedAt: completed,
			CreatedAt:   completed,
		}))
	}
}

func TestDispatchBookingCompleted(t *testing.T) {
	store := memory.NewStore()
	d := newTestDispatcher(t, store)

	env := bookingEnvelope(t, "evt-1", basePayload())
	result, err := d.Dispatch(context.Background(), env)
	require.NoError(t, err)
	require.False(t, result.Skipped)
	require.NotEmpty(t, result.WorkoutLogID)

	workouts := store.Workouts()
	require.Len(t, workouts, 1)
	require.Equal(t, "user-1", workouts[0].UserID)
	require.Equal(t, 45, workouts[0].DurationMin)
	require.NotNil(t, workouts[0].SourceBookingID)
	require.Equal(t, "booking-1", *workouts[0].SourceBookingID)

	require.Equal(t, 1, store.LedgerSize())

	outbox := store.Outbox()
	require.Len(t, outbox, 1)
	require.Equal(t, domain.EventProgressUpdated, outbox[0].Envelope.EventType)
	require.Equal(t, TopicProgressEvents, outbox[0].Topic)
}

func TestDispatchDuplicateEventID(t *testing.T) {
	store := memory.NewStore()
	d := newTestDispatcher(t, store)

	env := bookingEnvelope(t, "evt-1", basePayload())
	_, err := d.Dispatch(context.Background(), env)
	require.NoError(t, err)

	result, err := d.Dispatch(context.Background(), env)
	require.NoError(t, err)
	require.True(t, result.Skipped)

	require.Len(t, store.Workouts(), 1)
	require.Equal(t, 1, store.LedgerSize())
}

func TestDispatchSameBookingDifferentEventID(t *testing.T) {
	store := memory.NewStore()
	d := newTestDispatcher(t, store)

	payload := basePayload()
	_, err := d.Dispatch(context.Background(), bookingEnvelope(t, "evt-1", payload))
	require.NoError(t, err)

	result, err := d.Dispatch(context.Background(), bookingEnvelope(t, "evt-2", payload))
	require.NoError(t, err)
	require.True(t, result.Skipped)

	// The replayed booking creates no second workout but its event id is
	// still recorded.
	require.Len(t, store.Workouts(), 1)
	require.Equal(t, 2, store.LedgerSize())
}

func TestDispatchUnknownEventType(t *testing.T) {
	store := memory.NewStore()
	d := newTestDispatcher(t, store)

	_, err := d.Dispatch(context.Background(), domain.Envelope{
		EventID:   "evt-1",
		EventType: "user.registered",
		UserID:    "user-1",
	})
	require.ErrorIs(t, err, domain.ErrUnsupportedEvent)
	require.Equal(t, 0, store.LedgerSize())
}

func TestDispatchMissingEventID(t *testing.T) {
	store := memory.NewStore()
	d := newTestDispatcher(t, store)

	env := bookingEnvelope(t, "", basePayload())
	_, err := d.Dispatch(context.Background(), env)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestDispatchInvalidPayloadRollsBack(t *testing.T) {
	store := memory.NewStore()
	d := newTestDispatcher(t, store)

	env := bookingEnvelope(t, "evt-1", domain.BookingCompletion{
		BookingID:   "booking-1",
		DurationMin: 45,
		CompletedAt: testClock(),
	})
	_, err := d.Dispatch(context.Background(), env)
	require.ErrorIs(t, err, domain.ErrValidation)

	// The failed transaction must leave no ledger row, so a corrected
	// replay of the same event id can still be processed.
	require.Equal(t, 0, store.LedgerSize())
	require.Empty(t, store.Workouts())
}

func TestDispatchMilestoneAchievement(t *testing.T) {
	store := memory.NewStore()
	d := newTestDispatcher(t, store)
	seedWorkouts(t, store, "user-1", 9)

	env := bookingEnvelope(t, "evt-10", basePayload())
	result, err := d.Dispatch(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, result.Achievements, 1)
	require.Equal(t, domain.AchievementMilestone, result.Achievements[0].Kind)

	achievements := store.Achievements()
	require.Len(t, achievements, 1)
	require.Equal(t, "10 Workouts Completed", achievements[0].Title)

	types := outboxTypes(store)
	require.Equal(t, []string{
		domain.EventAchievementEarned,
		domain.EventMilestoneReached,
		domain.EventProgressUpdated,
	}, types)

	var milestone domain.MilestoneReached
	for _, entry := range store.Outbox() {
		if entry.Envelope.EventType == domain.EventMilestoneReached {
			require.NoError(t, json.Unmarshal(entry.Envelope.Payload, &milestone))
		}
	}
	require.Equal(t, 10, milestone.Milestone)
	require.Equal(t, 10, milestone.Total)
}

func TestDispatchMilestoneFiresOnce(t *testing.T) {
	store := memory.NewStore()
	d := newTestDispatcher(t, store)
	seedWorkouts(t, store, "user-1", 9)

	payload := basePayload()
	_, err := d.Dispatch(context.Background(), bookingEnvelope(t, "evt-10", payload))
	require.NoError(t, err)

	eleventh := payload
	eleventh.BookingID = "booking-2"
	result, err := d.Dispatch(context.Background(), bookingEnvelope(t, "evt-11", eleventh))
	require.NoError(t, err)
	require.Empty(t, result.Achievements)
	require.Len(t, store.Achievements(), 1)
}

func TestDispatchProgramCompleted(t *testing.T) {
	store := memory.NewStore()
	d := newTestDispatcher(t, store)

	payload := domain.ProgramCompletion{
		ProgramID:   "program-1",
		UserID:      "user-1",
		ProgramName: "Strength Foundations",
		CompletedAt: testClock(),
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	result, err := d.Dispatch(context.Background(), domain.Envelope{
		EventID:   "evt-1",
		EventType: domain.EventProgramCompleted,
		UserID:    "user-1",
		Payload:   body,
		EmittedAt: testClock(),
	})
	require.NoError(t, err)
	require.Len(t, result.Achievements, 1)
	require.Equal(t, "Completed Strength Foundations", result.Achievements[0].Title)

	require.Equal(t, []string{
		domain.EventAchievementEarned,
		domain.EventProgressUpdated,
	}, outboxTypes(store))
}

func TestDispatchZeroDurationDefaults(t *testing.T) {
	store := memory.NewStore()
	d := newTestDispatcher(t, store)

	payload := basePayload()
	payload.DurationMin = 0
	_, err := d.Dispatch(context.Background(), bookingEnvelope(t, "evt-1", payload))
	require.NoError(t, err)

	workouts := store.Workouts()
	require.Len(t, workouts, 1)
	require.Equal(t, DefaultWorkoutDuration, workouts[0].DurationMin)
}

type stubFetcher struct {
	booking *client.BookingDetails
	err     error
	calls   int
}

func (s *stubFetcher) GetBooking(context.Context, string, string) (*client.BookingDetails, error) {
	s.calls++
	return s.booking, s.err
}

func TestDispatchZeroDurationFetchesBooking(t *testing.T) {
	store := memory.NewStore()
	calories := 320
	fetcher := &stubFetcher{booking: &client.BookingDetails{
		BookingID:   "booking-1",
		DurationMin: 75,
		Calories:    &calories,
	}}
	d := newTestDispatcher(t, store, func(cfg *Config) { cfg.Details = fetcher })

	payload := basePayload()
	payload.DurationMin = 0
	payload.Calories = nil
	_, err := d.Dispatch(context.Background(), bookingEnvelope(t, "evt-1", payload))
	require.NoError(t, err)
	require.Equal(t, 1, fetcher.calls)

	workouts := store.Workouts()
	require.Len(t, workouts, 1)
	require.Equal(t, 75, workouts[0].DurationMin)
	require.NotNil(t, workouts[0].Calories)
	require.Equal(t, 320, *workouts[0].Calories)
}

func TestDispatchFetchFailureDefaults(t *testing.T) {
	store := memory.NewStore()
	fetcher := &stubFetcher{err: domain.ErrUpstreamUnavailable}
	d := newTestDispatcher(t, store, func(cfg *Config) { cfg.Details = fetcher })

	payload := basePayload()
	payload.DurationMin = 0
	_, err := d.Dispatch(context.Background(), bookingEnvelope(t, "evt-1", payload))
	require.NoError(t, err)

	workouts := store.Workouts()
	require.Len(t, workouts, 1)
	require.Equal(t, DefaultWorkoutDuration, workouts[0].DurationMin)
}

func outboxTypes(store *memory.Store) []string {
	entries := store.Outbox()
	types := make([]string, 0, len(entries))
	for _, e := range entries {
		types = append(types, e.Envelope.EventType)
	}
	return types
}
