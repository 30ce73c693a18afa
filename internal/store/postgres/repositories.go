package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/FitSync-G13/fitsync-progress-service/internal/domain"
)

type metricRepo struct {
	q querier
}

func (r *metricRepo) Create(ctx context.Context, metric domain.BodyMetric) error {
	const stmt = `INSERT INTO body_metrics (id, user_id, recorded_at, weight_kg, height_cm, bmi, body_fat_pct, notes, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err := r.q.Exec(ctx, stmt,
		metric.ID,
		metric.UserID,
		metric.RecordedAt,
		metric.WeightKg,
		metric.HeightCm,
		metric.BMI,
		metric.BodyFatPct,
		metric.Notes,
		metric.CreatedAt,
	)
	return err
}

const metricColumns = `id, user_id, recorded_at, weight_kg, height_cm, bmi, body_fat_pct, notes, created_at`

func scanMetric(row pgx.Row) (domain.BodyMetric, error) {
	var m domain.BodyMetric
	err := row.Scan(&m.ID, &m.UserID, &m.RecordedAt, &m.WeightKg, &m.HeightCm, &m.BMI, &m.BodyFatPct, &m.Notes, &m.CreatedAt)
	return m, err
}

func (r *metricRepo) FindByUserAndRange(ctx context.Context, userID string, from, to time.Time) ([]domain.BodyMetric, error) {
	query := `SELECT ` + metricColumns + `
        FROM body_metrics
        WHERE user_id=$1 AND recorded_at BETWEEN $2 AND $3
        ORDER BY recorded_at ASC`

	rows, err := r.q.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.BodyMetric, 0)
	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *metricRepo) FindLatest(ctx context.Context, userID string) (*domain.BodyMetric, error) {
	query := `SELECT ` + metricColumns + `
        FROM body_metrics WHERE user_id=$1
        ORDER BY recorded_at DESC LIMIT 1`

	m, err := scanMetric(r.q.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *metricRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.BodyMetric, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM body_metrics WHERE user_id=$1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + metricColumns + `
        FROM body_metrics WHERE user_id=$1
        ORDER BY recorded_at DESC
        OFFSET $2 LIMIT $3`

	rows, err := r.q.Query(ctx, query, userID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]domain.BodyMetric, 0, limit)
	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

type workoutRepo struct {
	q querier
}

const workoutColumns = `id, user_id, source_booking_id, duration_min, calories, mood, completed_at, trainer_notes, created_at`

func scanWorkout(row pgx.Row) (domain.WorkoutLog, error) {
	var w domain.WorkoutLog
	err := row.Scan(&w.ID, &w.UserID, &w.SourceBookingID, &w.DurationMin, &w.Calories, &w.Mood, &w.CompletedAt, &w.TrainerNotes, &w.CreatedAt)
	return w, err
}

func (r *workoutRepo) Create(ctx context.Context, log domain.WorkoutLog) error {
	const stmt = `INSERT INTO workout_logs (id, user_id, source_booking_id, duration_min, calories, mood, completed_at, trainer_notes, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err := r.q.Exec(ctx, stmt,
		log.ID,
		log.UserID,
		log.SourceBookingID,
		log.DurationMin,
		log.Calories,
		log.Mood,
		log.CompletedAt,
		log.TrainerNotes,
		log.CreatedAt,
	)
	return err
}

func (r *workoutRepo) FindByBookingID(ctx context.Context, userID, bookingID string) (*domain.WorkoutLog, error) {
	query := `SELECT ` + workoutColumns + `
        FROM workout_logs WHERE user_id=$1 AND source_booking_id=$2`

	w, err := scanWorkout(r.q.QueryRow(ctx, query, userID, bookingID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *workoutRepo) FindByUserAndRange(ctx context.Context, userID string, from, to time.Time) ([]domain.WorkoutLog, error) {
	query := `SELECT ` + workoutColumns + `
        FROM workout_logs
        WHERE user_id=$1 AND completed_at BETWEEN $2 AND $3
        ORDER BY completed_at ASC`

	rows, err := r.q.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.WorkoutLog, 0)
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *workoutRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.WorkoutLog, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM workout_logs WHERE user_id=$1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + workoutColumns + `
        FROM workout_logs WHERE user_id=$1
        ORDER BY completed_at DESC
        OFFSET $2 LIMIT $3`

	rows, err := r.q.Query(ctx, query, userID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]domain.WorkoutLog, 0, limit)
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, w)
	}
	return out, total, rows.Err()
}

func (r *workoutRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM workout_logs WHERE user_id=$1`, userID).Scan(&count)
	return count, err
}

func (r *workoutRepo) MaxDuration(ctx context.Context, userID, excludeID string) (int, error) {
	var max int
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(MAX(duration_min), 0) FROM workout_logs WHERE user_id=$1 AND id <> $2`,
		userID, excludeID).Scan(&max)
	return max, err
}

func (r *workoutRepo) MaxCalories(ctx context.Context, userID, excludeID string) (int, error) {
	var max int
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(MAX(calories), 0) FROM workout_logs WHERE user_id=$1 AND id <> $2`,
		userID, excludeID).Scan(&max)
	return max, err
}

func (r *workoutRepo) TotalsByUser(ctx context.Context, userID string) (domain.WorkoutTotals, error) {
	var totals domain.WorkoutTotals
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(duration_min), 0), COALESCE(SUM(calories), 0)
         FROM workout_logs WHERE user_id=$1`,
		userID).Scan(&totals.Workouts, &totals.TotalMinutes, &totals.TotalCalories)
	return totals, err
}

type goalRepo struct {
	q querier
}

func (r *goalRepo) Create(ctx context.Context, goal domain.Goal) error {
	const stmt = `INSERT INTO goals (id, user_id, kind, start_value, target_value, target_date, status, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err := r.q.Exec(ctx, stmt,
		goal.ID,
		goal.UserID,
		goal.Kind,
		goal.StartValue,
		goal.TargetValue,
		goal.TargetDate,
		goal.Status,
		goal.CreatedAt,
		goal.UpdatedAt,
	)
	return err
}

func (r *goalRepo) ListByUser(ctx context.Context, userID string) ([]domain.Goal, error) {
	const query = `SELECT id, user_id, kind, start_value, target_value, target_date, status, created_at, updated_at
        FROM goals WHERE user_id=$1
        ORDER BY created_at DESC`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Goal, 0)
	for rows.Next() {
		var g domain.Goal
		if err := rows.Scan(&g.ID, &g.UserID, &g.Kind, &g.StartValue, &g.TargetValue, &g.TargetDate, &g.Status, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *goalRepo) UpdateStatus(ctx context.Context, goalID string, status domain.GoalStatus) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE goals SET status=$1, updated_at=NOW() WHERE id=$2`,
		status, goalID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type achievementRepo struct {
	q querier
}

func (r *achievementRepo) Create(ctx context.Context, achievement domain.Achievement) error {
	const stmt = `INSERT INTO achievements (id, user_id, kind, title, payload, earned_at)
        VALUES ($1,$2,$3,$4,$5,$6)`

	_, err := r.q.Exec(ctx, stmt,
		achievement.ID,
		achievement.UserID,
		achievement.Kind,
		achievement.Title,
		achievement.Payload,
		achievement.EarnedAt,
	)
	return err
}

func (r *achievementRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.Achievement, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM achievements WHERE user_id=$1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	const query = `SELECT id, user_id, kind, title, payload, earned_at
        FROM achievements WHERE user_id=$1
        ORDER BY earned_at DESC
        OFFSET $2 LIMIT $3`

	rows, err := r.q.Query(ctx, query, userID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]domain.Achievement, 0, limit)
	for rows.Next() {
		var a domain.Achievement
		if err := rows.Scan(&a.ID, &a.UserID, &a.Kind, &a.Title, &a.Payload, &a.EarnedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (r *achievementRepo) ExistsMilestone(ctx context.Context, userID string, kind domain.AchievementKind, value int) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (
            SELECT 1 FROM achievements
            WHERE user_id=$1 AND kind=$2 AND (payload->>'threshold')::int = $3
        )`,
		userID, kind, value).Scan(&exists)
	return exists, err
}

func (r *achievementRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM achievements WHERE user_id=$1`, userID).Scan(&count)
	return count, err
}

type healthRecordRepo struct {
	q querier
}

func (r *healthRecordRepo) Create(ctx context.Context, record domain.HealthRecord) error {
	const stmt = `INSERT INTO health_records (id, user_id, record_type, description, start_date, end_date, severity, active, notes, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	_, err := r.q.Exec(ctx, stmt,
		record.ID,
		record.UserID,
		record.RecordType,
		record.Description,
		record.StartDate,
		record.EndDate,
		record.Severity,
		record.Active,
		record.Notes,
		record.CreatedAt,
	)
	return err
}

func (r *healthRecordRepo) ListByUser(ctx context.Context, userID string) ([]domain.HealthRecord, error) {
	const query = `SELECT id, user_id, record_type, description, start_date, end_date, severity, active, notes, created_at
        FROM health_records WHERE user_id=$1
        ORDER BY start_date DESC`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.HealthRecord, 0)
	for rows.Next() {
		var h domain.HealthRecord
		if err := rows.Scan(&h.ID, &h.UserID, &h.RecordType, &h.Description, &h.StartDate, &h.EndDate, &h.Severity, &h.Active, &h.Notes, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

type ledgerRepo struct {
	q querier
}

func (r *ledgerRepo) Exists(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM processed_events WHERE event_id=$1)`,
		eventID).Scan(&exists)
	return exists, err
}

func (r *ledgerRepo) Record(ctx context.Context, event domain.ProcessedEvent) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`INSERT INTO processed_events (event_id, event_type, processed_at)
         VALUES ($1,$2,$3)
         ON CONFLICT (event_id) DO NOTHING`,
		event.EventID, event.EventType, event.ProcessedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

type outboxRepo struct {
	q querier
}

func (r *outboxRepo) Enqueue(ctx context.Context, envelope domain.Envelope, topic string) error {
	const stmt = `INSERT INTO outbox (event_id, event_type, user_id, topic, payload, emitted_at)
        VALUES ($1,$2,$3,$4,$5,$6)`

	_, err := r.q.Exec(ctx, stmt,
		envelope.EventID,
		envelope.EventType,
		envelope.UserID,
		topic,
		envelope.Payload,
		envelope.EmittedAt,
	)
	return err
}
