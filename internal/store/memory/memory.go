// Package memory provides an in-memory store implementation used by
// unit tests and local development. It honours the same repository
// contracts as the Postgres store, including all-or-nothing execution
// of a unit of work (via snapshot and restore).
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/FitSync-G13/fitsync-progress-service/internal/domain"
)

// OutboxEntry is a queued derived event together with its topic.
type OutboxEntry struct {
	Envelope domain.Envelope
	Topic    string
}

// Store holds every entity in process memory behind one mutex, which
// also gives unit-of-work executions single-writer semantics.
type Store struct {
	mu            sync.Mutex
	metrics       []domain.BodyMetric
	workouts      []domain.WorkoutLog
	goals         []domain.Goal
	achievements  []domain.Achievement
	healthRecords []domain.HealthRecord
	ledger        map[string]domain.ProcessedEvent
	outbox        []OutboxEntry
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{ledger: make(map[string]domain.ProcessedEvent)}
}

// Repositories returns accessors backed by this store.
func (s *Store) Repositories() *domain.Repositories {
	return &domain.Repositories{
		Metrics:       (*metricRepo)(s),
		Workouts:      (*workoutRepo)(s),
		Goals:         (*goalRepo)(s),
		Achievements:  (*achievementRepo)(s),
		HealthRecords: (*healthRecordRepo)(s),
		Ledger:        (*ledgerRepo)(s),
		Outbox:        (*outboxRepo)(s),
	}
}

// Execute runs fn under the store lock. If fn fails, all of its writes
// are rolled back from a snapshot.
func (s *Store) Execute(ctx context.Context, fn func(ctx context.Context, repos *domain.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshot()
	if err := fn(ctx, s.lockedRepositories()); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

// lockedRepositories returns accessors that assume the caller already
// holds the store lock.
func (s *Store) lockedRepositories() *domain.Repositories {
	return &domain.Repositories{
		Metrics:       (*lockedMetricRepo)(s),
		Workouts:      (*lockedWorkoutRepo)(s),
		Goals:         (*lockedGoalRepo)(s),
		Achievements:  (*lockedAchievementRepo)(s),
		HealthRecords: (*lockedHealthRecordRepo)(s),
		Ledger:        (*lockedLedgerRepo)(s),
		Outbox:        (*lockedOutboxRepo)(s),
	}
}

type state struct {
	metrics       []domain.BodyMetric
	workouts      []domain.WorkoutLog
	goals         []domain.Goal
	achievements  []domain.Achievement
	healthRecords []domain.HealthRecord
	ledger        map[string]domain.ProcessedEvent
	outbox        []OutboxEntry
}

func (s *Store) snapshot() state {
	ledger := make(map[string]domain.ProcessedEvent, len(s.ledger))
	for k, v := range s.ledger {
		ledger[k] = v
	}
	return state{
		metrics:       append([]domain.BodyMetric(nil), s.metrics...),
		workouts:      append([]domain.WorkoutLog(nil), s.workouts...),
		goals:         append([]domain.Goal(nil), s.goals...),
		achievements:  append([]domain.Achievement(nil), s.achievements...),
		healthRecords: append([]domain.HealthRecord(nil), s.healthRecords...),
		ledger:        ledger,
		outbox:        append([]OutboxEntry(nil), s.outbox...),
	}
}

func (s *Store) restore(st state) {
	s.metrics = st.metrics
	s.workouts = st.workouts
	s.goals = st.goals
	s.achievements = st.achievements
	s.healthRecords = st.healthRecords
	s.ledger = st.ledger
	s.outbox = st.outbox
}

// Outbox returns a copy of the queued derived events.
func (s *Store) Outbox() []OutboxEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]OutboxEntry(nil), s.outbox...)
}

// Workouts returns a copy of the stored workout logs.
func (s *Store) Workouts() []domain.WorkoutLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.WorkoutLog(nil), s.workouts...)
}

// Achievements returns a copy of the stored achievements.
func (s *Store) Achievements() []domain.Achievement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Achievement(nil), s.achievements...)
}

// LedgerSize returns the number of processed events recorded.
func (s *Store) LedgerSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ledger)
}

// ── locked (transaction-scoped) implementations ──

type lockedMetricRepo Store

func (r *lockedMetricRepo) Create(_ context.Context, metric domain.BodyMetric) error {
	r.metrics = append(r.metrics, metric)
	return nil
}

func (r *lockedMetricRepo) FindByUserAndRange(_ context.Context, userID string, from, to time.Time) ([]domain.BodyMetric, error) {
	return (*Store)(r).metricsInRange(userID, from, to), nil
}

func (r *lockedMetricRepo) FindLatest(_ context.Context, userID string) (*domain.BodyMetric, error) {
	return (*Store)(r).latestMetric(userID), nil
}

func (r *lockedMetricRepo) ListByUser(_ context.Context, userID string, offset, limit int) ([]domain.BodyMetric, int, error) {
	return (*Store)(r).listMetrics(userID, offset, limit)
}

type lockedWorkoutRepo Store

func (r *lockedWorkoutRepo) Create(_ context.Context, log domain.WorkoutLog) error {
	r.workouts = append(r.workouts, log)
	return nil
}

func (r *lockedWorkoutRepo) FindByBookingID(_ context.Context, userID, bookingID string) (*domain.WorkoutLog, error) {
	for i := range r.workouts {
		w := r.workouts[i]
		if w.UserID == userID && w.SourceBookingID != nil && *w.SourceBookingID == bookingID {
			return &w, nil
		}
	}
	return nil, nil
}

func (r *lockedWorkoutRepo) FindByUserAndRange(_ context.Context, userID string, from, to time.Time) ([]domain.WorkoutLog, error) {
	return (*Store)(r).workoutsInRange(userID, from, to), nil
}

func (r *lockedWorkoutRepo) ListByUser(_ context.Context, userID string, offset, limit int) ([]domain.WorkoutLog, int, error) {
	return (*Store)(r).listWorkouts(userID, offset, limit)
}

func (r *lockedWorkoutRepo) CountByUser(_ context.Context, userID string) (int, error) {
	count := 0
	for _, w := range r.workouts {
		if w.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *lockedWorkoutRepo) MaxDuration(_ context.Context, userID, excludeID string) (int, error) {
	max := 0
	for _, w := range r.workouts {
		if w.UserID != userID || w.ID == excludeID {
			continue
		}
		if w.DurationMin > max {
			max = w.DurationMin
		}
	}
	return max, nil
}

func (r *lockedWorkoutRepo) MaxCalories(_ context.Context, userID, excludeID string) (int, error) {
	max := 0
	for _, w := range r.workouts {
		if w.UserID != userID || w.ID == excludeID || w.Calories == nil {
			continue
		}
		if *w.Calories > max {
			max = *w.Calories
		}
	}
	return max, nil
}

func (r *lockedWorkoutRepo) TotalsByUser(_ context.Context, userID string) (domain.WorkoutTotals, error) {
	return (*Store)(r).workoutTotals(userID), nil
}

type lockedGoalRepo Store

func (r *lockedGoalRepo) Create(_ context.Context, goal domain.Goal) error {
	r.goals = append(r.goals, goal)
	return nil
}

func (r *lockedGoalRepo) ListByUser(_ context.Context, userID string) ([]domain.Goal, error) {
	out := make([]domain.Goal, 0)
	for _, g := range r.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *lockedGoalRepo) UpdateStatus(_ context.Context, goalID string, status domain.GoalStatus) error {
	for i := range r.goals {
		if r.goals[i].ID == goalID {
			r.goals[i].Status = status
			return nil
		}
	}
	return domain.ErrNotFound
}

type lockedAchievementRepo Store

func (r *lockedAchievementRepo) Create(_ context.Context, achievement domain.Achievement) error {
	r.achievements = append(r.achievements, achievement)
	return nil
}

func (r *lockedAchievementRepo) ListByUser(_ context.Context, userID string, offset, limit int) ([]domain.Achievement, int, error) {
	return (*Store)(r).listAchievements(userID, offset, limit)
}

func (r *lockedAchievementRepo) ExistsMilestone(_ context.Context, userID string, kind domain.AchievementKind, value int) (bool, error) {
	for _, a := range r.achievements {
		if a.UserID != userID || a.Kind != kind {
			continue
		}
		var payload struct {
			Threshold int `json:"threshold"`
		}
		if err := json.Unmarshal(a.Payload, &payload); err != nil {
			continue
		}
		if payload.Threshold == value {
			return true, nil
		}
	}
	return false, nil
}

func (r *lockedAchievementRepo) CountByUser(_ context.Context, userID string) (int, error) {
	count := 0
	for _, a := range r.achievements {
		if a.UserID == userID {
			count++
		}
	}
	return count, nil
}

type lockedHealthRecordRepo Store

func (r *lockedHealthRecordRepo) Create(_ context.Context, record domain.HealthRecord) error {
	r.healthRecords = append(r.healthRecords, record)
	return nil
}

func (r *lockedHealthRecordRepo) ListByUser(_ context.Context, userID string) ([]domain.HealthRecord, error) {
	out := make([]domain.HealthRecord, 0)
	for _, h := range r.healthRecords {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

type lockedLedgerRepo Store

func (r *lockedLedgerRepo) Exists(_ context.Context, eventID string) (bool, error) {
	_, ok := r.ledger[eventID]
	return ok, nil
}

func (r *lockedLedgerRepo) Record(_ context.Context, event domain.ProcessedEvent) (bool, error) {
	if _, ok := r.ledger[event.EventID]; ok {
		return false, nil
	}
	r.ledger[event.EventID] = event
	return true, nil
}

type lockedOutboxRepo Store

func (r *lockedOutboxRepo) Enqueue(_ context.Context, envelope domain.Envelope, topic string) error {
	r.outbox = append(r.outbox, OutboxEntry{Envelope: envelope, Topic: topic})
	return nil
}

// ── locking wrappers for direct (non-transactional) access ──

type metricRepo Store

func (r *metricRepo) Create(ctx context.Context, metric domain.BodyMetric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*lockedMetricRepo)(r).Create(ctx, metric)
}

func (r *metricRepo) FindByUserAndRange(ctx context.Context, userID string, from, to time.Time) ([]domain.BodyMetric, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*lockedMetricRepo)(r).FindByUserAndRange(ctx, userID, from, to)
}

func (r *metricRepo) FindLatest(ctx context.Context, userID string) (*domain.BodyMetric, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*lockedMetricRepo)(r).FindLatest(ctx, userID)
}

func (r *metricRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.BodyMetric, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*lockedMetricRepo)(r).ListByUser(ctx, userID, offset, limit)
}

type workoutRepo Store

func (r *workoutRepo) Create(ctx context.Context, log domain.WorkoutLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*lockedWorkoutRepo)(r).Create(ctx, log)
}

func (r *workoutRepo) FindByBookingID(ctx context.Context, userID, bookingID string) (*domain.WorkoutLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*lockedWorkoutRepo)(r).FindByBookingID(ctx, userID, bookingID)
}

func (r *workoutRepo) FindByUserAndRange(ctx context.Context, userID string, from, to time.Time) ([]domain.WorkoutLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*lockedWorkoutRepo)(r).FindByUserAndRange(ctx, userID, from, to)
}

func (r *workoutRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.WorkoutLog, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*lockedWorkoutRepo)(r).ListByUser(ctx, userID, offset, limit)
}

func (r *workoutRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*lockedWorkoutRepo)(r).CountByUser(ctx, userID)
}

func (r *workoutRepo) MaxDuration(ctx context.Context, userID, excludeID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*lockedWorkoutRepo)(r).MaxDuration(ctx, userID, excludeID)
}

func (r *workoutRepo) MaxCalories(ctx context.Context, userID, excludeID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*lockedWorkoutRepo)(r).MaxCalories(ctx, userID, excludeID)
}

func (r *workoutRepo) TotalsByUser(ctx context.Context, userID string) (domain.WorkoutTotals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*lockedWorkoutRepo)(r).TotalsByUser(ctx, userID)
}

type goalRepo Store

func (r *goalRepo) Create(ctx context.Context, goal domain.Goal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*lockedGoalRepo)(r).Create(ctx, goal)
}

func (r *goalRepo) ListByUser(ctx context.Context, userID string) ([]domain.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*lockedGoalRepo)(r).ListByUser(ctx, userID)
}

func (r *goalRepo) UpdateStatus(ctx context.Context, goalID string, status domain.GoalStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*lockedGoalRepo)(r).UpdateStatus(ctx, goalID, status)
}

type achievementRepo Store

func (r *achievementRepo) Create(ctx context.Context, achievement domain.Achievement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*lockedAchievementRepo)(r).Create(ctx, achievement)
}

func (r *achievementRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.Achievement, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*lockedAchievementRepo)(r).ListByUser(ctx, userID, offset, limit)
}

func (r *achievementRepo) ExistsMilestone(ctx context.Context, userID string, kind domain.AchievementKind, value int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*lockedAchievementRepo)(r).ExistsMilestone(ctx, userID, kind, value)
}

func (r *achievementRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*lockedAchievementRepo)(r).CountByUser(ctx, userID)
}

type healthRecordRepo Store

func (r *healthRecordRepo) Create(ctx context.Context, record domain.HealthRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*lockedHealthRecordRepo)(r).Create(ctx, record)
}

func (r *healthRecordRepo) ListByUser(ctx context.Context, userID string) ([]domain.HealthRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*lockedHealthRecordRepo)(r).ListByUser(ctx, userID)
}

type ledgerRepo Store

func (r *ledgerRepo) Exists(ctx context.Context, eventID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*lockedLedgerRepo)(r).Exists(ctx, eventID)
}

func (r *ledgerRepo) Record(ctx context.Context, event domain.ProcessedEvent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*lockedLedgerRepo)(r).Record(ctx, event)
}

type outboxRepo Store

func (r *outboxRepo) Enqueue(ctx context.Context, envelope domain.Envelope, topic string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*lockedOutboxRepo)(r).Enqueue(ctx, envelope, topic)
}

// ── shared query helpers (caller holds the lock) ──

func (s *Store) metricsInRange(userID string, from, to time.Time) []domain.BodyMetric {
	out := make([]domain.BodyMetric, 0)
	for _, m := range s.metrics {
		if m.UserID != userID || m.RecordedAt.Before(from) || m.RecordedAt.After(to) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out
}

func (s *Store) latestMetric(userID string) *domain.BodyMetric {
	var latest *domain.BodyMetric
	for i := range s.metrics {
		m := s.metrics[i]
		if m.UserID != userID {
			continue
		}
		if latest == nil || m.RecordedAt.After(latest.RecordedAt) {
			latest = &m
		}
	}
	return latest
}

func (s *Store) listMetrics(userID string, offset, limit int) ([]domain.BodyMetric, int, error) {
	all := make([]domain.BodyMetric, 0)
	for _, m := range s.metrics {
		if m.UserID == userID {
			all = append(all, m)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].RecordedAt.After(all[j].RecordedAt) })
	return paginate(all, offset, limit), len(all), nil
}

func (s *Store) workoutsInRange(userID string, from, to time.Time) []domain.WorkoutLog {
	out := make([]domain.WorkoutLog, 0)
	for _, w := range s.workouts {
		if w.UserID != userID || w.CompletedAt.Before(from) || w.CompletedAt.After(to) {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.Before(out[j].CompletedAt) })
	return out
}

func (s *Store) listWorkouts(userID string, offset, limit int) ([]domain.WorkoutLog, int, error) {
	all := make([]domain.WorkoutLog, 0)
	for _, w := range s.workouts {
		if w.UserID == userID {
			all = append(all, w)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CompletedAt.After(all[j].CompletedAt) })
	return paginate(all, offset, limit), len(all), nil
}

func (s *Store) workoutTotals(userID string) domain.WorkoutTotals {
	totals := domain.WorkoutTotals{}
	for _, w := range s.workouts {
		if w.UserID != userID {
			continue
		}
		totals.Workouts++
		totals.TotalMinutes += w.DurationMin
		if w.Calories != nil {
			totals.TotalCalories += *w.Calories
		}
	}
	return totals
}

func (s *Store) listAchievements(userID string, offset, limit int) ([]domain.Achievement, int, error) {
	all := make([]domain.Achievement, 0)
	for _, a := range s.achievements {
		if a.UserID == userID {
			all = append(all, a)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].EarnedAt.After(all[j].EarnedAt) })
	return paginate(all, offset, limit), len(all), nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return append([]T(nil), items[offset:end]...)
}
