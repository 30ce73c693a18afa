// Package api exposes the HTTP handlers of the progress service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/FitSync-G13/fitsync-progress-service/internal/analytics"
	"github.com/FitSync-G13/fitsync-progress-service/internal/auth"
	"github.com/FitSync-G13/fitsync-progress-service/internal/bmi"
	"github.com/FitSync-G13/fitsync-progress-service/internal/client"
	"github.com/FitSync-G13/fitsync-progress-service/internal/domain"
	"github.com/FitSync-G13/fitsync-progress-service/internal/progress"
)

// UserValidator confirms a user exists before staff write on their
// behalf.
type UserValidator interface {
	ValidateUser(ctx context.Context, userID, token string) (*client.User, error)
}

// Handler coordinates HTTP requests with the progress service and the
// analytics aggregator.
type Handler struct {
	service    *progress.Service
	aggregator *analytics.Aggregator
	repos      *domain.Repositories
	users      UserValidator
}

// NewHandler builds a Handler. users may be nil, disabling upstream
// user validation.
func NewHandler(service *progress.Service, aggregator *analytics.Aggregator, repos *domain.Repositories, users UserValidator) *Handler {
	return &Handler{service: service, aggregator: aggregator, repos: repos, users: users}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/metrics", h.metrics)
	mux.HandleFunc("/api/metrics/", h.metricsByUser)
	mux.HandleFunc("/api/workout-logs", h.workoutLogs)
	mux.HandleFunc("/api/workout-logs/", h.workoutLogsByUser)
	mux.HandleFunc("/api/goals", h.goals)
	mux.HandleFunc("/api/goals/", h.goalsByUser)
	mux.HandleFunc("/api/health-records", h.healthRecords)
	mux.HandleFunc("/api/health-records/", h.healthRecordsByUser)
	mux.HandleFunc("/api/analytics/", h.analytics)
	mux.HandleFunc("/api/achievements/", h.achievements)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ── body metrics ──

// CreateMetricRequest is the POST /api/metrics payload.
type CreateMetricRequest struct {
	UserID     string     `json:"user_id,omitempty"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
	WeightKg   float64    `json:"weight_kg"`
	HeightCm   *float64   `json:"height_cm,omitempty"`
	BodyFatPct *float64   `json:"body_fat_pct,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

// MetricView is the JSON shape of a body metric.
type MetricView struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	RecordedAt  time.Time `json:"recorded_at"`
	WeightKg    float64   `json:"weight_kg"`
	HeightCm    *float64  `json:"height_cm,omitempty"`
	BMI         *float64  `json:"bmi,omitempty"`
	BMICategory string    `json:"bmi_category,omitempty"`
	BodyFatPct  *float64  `json:"body_fat_pct,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	var req CreateMetricRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	userID, err := h.resolveTargetUser(r.Context(), claims, req.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	input := progress.MetricInput{
		UserID:     userID,
		WeightKg:   req.WeightKg,
		HeightCm:   req.HeightCm,
		BodyFatPct: req.BodyFatPct,
		Notes:      req.Notes,
	}
	if req.RecordedAt != nil {
		input.RecordedAt = *req.RecordedAt
	}

	metric, err := h.service.RecordMetric(r.Context(), input)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMetricView(metric))
}

func (h *Handler) metricsByUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/metrics/")
	userID, tail, _ := strings.Cut(rest, "/")
	if _, ok := h.authorize(w, r, userID); !ok {
		return
	}

	switch tail {
	case "":
		h.listMetrics(w, r, userID)
	case "latest":
		h.latestMetric(w, r, userID)
	case "chart":
		h.metricChart(w, r, userID)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
	}
}

func (h *Handler) listMetrics(w http.ResponseWriter, r *http.Request, userID string) {
	offset, limit := pagination(r, 20)
	metrics, total, err := h.repos.Metrics.ListByUser(r.Context(), userID, offset, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]MetricView, 0, len(metrics))
	for _, m := range metrics {
		views = append(views, toMetricView(m))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":  views,
		"total":  total,
		"offset": offset,
		"limit":  limit,
	})
}

func (h *Handler) latestMetric(w http.ResponseWriter, r *http.Request, userID string) {
	metric, err := h.repos.Metrics.FindLatest(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if metric == nil {
		writeError(w, http.StatusNotFound, "not_found", "no metrics recorded")
		return
	}
	writeJSON(w, http.StatusOK, toMetricView(*metric))
}

func (h *Handler) metricChart(w http.ResponseWriter, r *http.Request, userID string) {
	field := r.URL.Query().Get("field")
	if field == "" {
		field = "weight_kg"
	}
	from, to := timeRange(r, 90)

	maxPoints := 100
	if raw := r.URL.Query().Get("max_points"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			maxPoints = v
		}
	}

	metrics, err := h.repos.Metrics.FindByUserAndRange(r.Context(), userID, from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	points, err := bmi.ChartSeries(metrics, field, from, to, maxPoints)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"field":  field,
		"from":   from,
		"to":     to,
		"points": points,
	})
}

// ── workout logs ──

// CreateWorkoutRequest is the POST /api/workout-logs payload.
type CreateWorkoutRequest struct {
	UserID       string     `json:"user_id,omitempty"`
	DurationMin  int        `json:"duration_min"`
	Calories     *int       `json:"calories,omitempty"`
	Mood         *int       `json:"mood,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	TrainerNotes string     `json:"trainer_notes,omitempty"`
}

// WorkoutView is the JSON shape of a workout log.
type WorkoutView struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	SourceBookingID *string   `json:"source_booking_id,omitempty"`
	DurationMin     int       `json:"duration_min"`
	Calories        *int      `json:"calories,omitempty"`
	Mood            *int      `json:"mood,omitempty"`
	CompletedAt     time.Time `json:"completed_at"`
	TrainerNotes    string    `json:"trainer_notes,omitempty"`
}

// CreateWorkoutResponse returns the stored log plus any achievements
// the workout unlocked.
type CreateWorkoutResponse struct {
	Workout      WorkoutView       `json:"workout"`
	Achievements []AchievementView `json:"achievements,omitempty"`
}

func (h *Handler) workoutLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	var req CreateWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	userID, err := h.resolveTargetUser(r.Context(), claims, req.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	input := progress.WorkoutInput{
		UserID:       userID,
		DurationMin:  req.DurationMin,
		Calories:     req.Calories,
		Mood:         req.Mood,
		TrainerNotes: req.TrainerNotes,
	}
	if req.CompletedAt != nil {
		input.CompletedAt = *req.CompletedAt
	}

	workout, earned, err := h.service.LogWorkout(r.Context(), input)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := CreateWorkoutResponse{Workout: toWorkoutView(workout)}
	for _, a := range earned {
		resp.Achievements = append(resp.Achievements, toAchievementView(a))
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) workoutLogsByUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	userID := strings.TrimPrefix(r.URL.Path, "/api/workout-logs/")
	if _, ok := h.authorize(w, r, userID); !ok {
		return
	}

	offset, limit := pagination(r, 20)
	logs, total, err := h.repos.Workouts.ListByUser(r.Context(), userID, offset, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]WorkoutView, 0, len(logs))
	for _, l := range logs {
		views = append(views, toWorkoutView(l))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":  views,
		"total":  total,
		"offset": offset,
		"limit":  limit,
	})
}

// ── goals ──

// CreateGoalRequest is the POST /api/goals payload.
type CreateGoalRequest struct {
	UserID      string    `json:"user_id,omitempty"`
	Kind        string    `json:"kind"`
	StartValue  float64   `json:"start_value"`
	TargetValue float64   `json:"target_value"`
	TargetDate  time.Time `json:"target_date"`
}

// GoalView is the JSON shape of a goal with computed progress.
type GoalView struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Kind        string    `json:"kind"`
	StartValue  float64   `json:"start_value"`
	TargetValue float64   `json:"target_value"`
	TargetDate  time.Time `json:"target_date"`
	Status      string    `json:"status"`
	Current     float64   `json:"current_value"`
	Progress    float64   `json:"progress"`
}

func (h *Handler) goals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	var req CreateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	userID, err := h.resolveTargetUser(r.Context(), claims, req.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	goal, err := h.service.CreateGoal(r.Context(), progress.GoalInput{
		UserID:      userID,
		Kind:        domain.GoalKind(req.Kind),
		StartValue:  req.StartValue,
		TargetValue: req.TargetValue,
		TargetDate:  req.TargetDate,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, GoalView{
		ID:          goal.ID,
		UserID:      goal.UserID,
		Kind:        string(goal.Kind),
		StartValue:  goal.StartValue,
		TargetValue: goal.TargetValue,
		TargetDate:  goal.TargetDate,
		Status:      string(goal.Status),
	})
}

func (h *Handler) goalsByUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	userID := strings.TrimPrefix(r.URL.Path, "/api/goals/")
	if _, ok := h.authorize(w, r, userID); !ok {
		return
	}

	views, err := h.service.ListGoals(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]GoalView, 0, len(views))
	for _, v := range views {
		out = append(out, GoalView{
			ID:          v.Goal.ID,
			UserID:      v.Goal.UserID,
			Kind:        string(v.Goal.Kind),
			StartValue:  v.Goal.StartValue,
			TargetValue: v.Goal.TargetValue,
			TargetDate:  v.Goal.TargetDate,
			Status:      string(v.Goal.Status),
			Current:     v.Current,
			Progress:    v.Progress,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": out})
}

// ── health records ──

// CreateHealthRecordRequest is the POST /api/health-records payload.
type CreateHealthRecordRequest struct {
	UserID      string     `json:"user_id,omitempty"`
	RecordType  string     `json:"record_type"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Severity    string     `json:"severity"`
	Notes       string     `json:"notes,omitempty"`
}

// HealthRecordView is the JSON shape of a health record.
type HealthRecordView struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	RecordType  string     `json:"record_type"`
	Description string     `json:"description"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Severity    string     `json:"severity"`
	Active      bool       `json:"active"`
	Notes       string     `json:"notes,omitempty"`
}

func (h *Handler) healthRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	var req CreateHealthRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	userID, err := h.resolveTargetUser(r.Context(), claims, req.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	input := progress.HealthRecordInput{
		UserID:      userID,
		RecordType:  domain.RecordType(req.RecordType),
		Description: req.Description,
		EndDate:     req.EndDate,
		Severity:    domain.Severity(req.Severity),
		Notes:       req.Notes,
	}
	if req.StartDate != nil {
		input.StartDate = *req.StartDate
	}

	record, err := h.service.AddHealthRecord(r.Context(), input)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHealthRecordView(record))
}

func (h *Handler) healthRecordsByUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	userID := strings.TrimPrefix(r.URL.Path, "/api/health-records/")
	if _, ok := h.authorize(w, r, userID); !ok {
		return
	}

	records, err := h.service.ListHealthRecords(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]HealthRecordView, 0, len(records))
	for _, rec := range records {
		views = append(views, toHealthRecordView(rec))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": views})
}

// ── analytics ──

func (h *Handler) analytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/analytics/")
	userID, tail, _ := strings.Cut(rest, "/")
	if _, ok := h.authorize(w, r, userID); !ok {
		return
	}

	switch tail {
	case "":
		h.progressStats(w, r, userID)
	case "weekly":
		h.weeklyStats(w, r, userID)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
	}
}

func (h *Handler) progressStats(w http.ResponseWriter, r *http.Request, userID string) {
	days := 90
	if raw := r.URL.Query().Get("days"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			days = v
		}
	}

	stats, err := h.aggregator.ProgressSummary(r.Context(), userID, time.Duration(days)*24*time.Hour)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) weeklyStats(w http.ResponseWriter, r *http.Request, userID string) {
	anchor := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "date must be YYYY-MM-DD")
			return
		}
		anchor = parsed
	}

	stats, err := h.aggregator.WeeklySummary(r.Context(), userID, anchor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ── achievements ──

// AchievementView is the JSON shape of an achievement.
type AchievementView struct {
	ID       string          `json:"id"`
	UserID   string          `json:"user_id"`
	Kind     string          `json:"kind"`
	Title    string          `json:"title"`
	Detail   json.RawMessage `json:"detail,omitempty"`
	EarnedAt time.Time       `json:"earned_at"`
}

func (h *Handler) achievements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	userID := strings.TrimPrefix(r.URL.Path, "/api/achievements/")
	if _, ok := h.authorize(w, r, userID); !ok {
		return
	}

	offset, limit := pagination(r, 20)
	achievements, total, err := h.aggregator.ListAchievements(r.Context(), userID, offset, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]AchievementView, 0, len(achievements))
	for _, a := range achievements {
		views = append(views, toAchievementView(a))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":  views,
		"total":  total,
		"offset": offset,
		"limit":  limit,
	})
}

// ── shared helpers ──

// authorize extracts claims and enforces the clients-read-own-data
// rule. It writes the error response itself when authorization fails.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, userID string) (*auth.Claims, bool) {
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing user id")
		return nil, false
	}
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	if !claims.CanAccessUser(userID) {
		writeError(w, http.StatusForbidden, "forbidden", "cannot access another user's data")
		return nil, false
	}
	return claims, true
}

// resolveTargetUser determines who a write applies to. Clients always
// write their own records; staff may name another user, whose existence
// is confirmed upstream.
func (h *Handler) resolveTargetUser(ctx context.Context, claims *auth.Claims, requested string) (string, error) {
	if requested == "" || requested == claims.Subject {
		return claims.Subject, nil
	}
	if !claims.IsStaff() {
		return "", domain.ErrForbidden
	}
	if h.users != nil {
		if _, err := h.users.ValidateUser(ctx, requested, claims.Raw); err != nil {
			return "", err
		}
	}
	return requested, nil
}

func pagination(r *http.Request, defaultLimit int) (int, int) {
	offset, limit := 0, defaultLimit
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > analytics.MaxAchievementPageSize {
		limit = analytics.MaxAchievementPageSize
	}
	return offset, limit
}

func timeRange(r *http.Request, defaultDays int) (time.Time, time.Time) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -defaultDays)
	to := now
	if raw := r.URL.Query().Get("from"); raw != "" {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			from = parsed
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			to = parsed
		}
	}
	return from, to
}

func toMetricView(m domain.BodyMetric) MetricView {
	view := MetricView{
		ID:         m.ID,
		UserID:     m.UserID,
		RecordedAt: m.RecordedAt,
		WeightKg:   m.WeightKg,
		HeightCm:   m.HeightCm,
		BMI:        m.BMI,
		BodyFatPct: m.BodyFatPct,
		Notes:      m.Notes,
	}
	if m.BMI != nil {
		view.BMICategory = bmi.Category(*m.BMI)
	}
	return view
}

func toWorkoutView(l domain.WorkoutLog) WorkoutView {
	return WorkoutView{
		ID:              l.ID,
		UserID:          l.UserID,
		SourceBookingID: l.SourceBookingID,
		DurationMin:     l.DurationMin,
		Calories:        l.Calories,
		Mood:            l.Mood,
		CompletedAt:     l.CompletedAt,
		TrainerNotes:    l.TrainerNotes,
	}
}

func toAchievementView(a domain.Achievement) AchievementView {
	return AchievementView{
		ID:       a.ID,
		UserID:   a.UserID,
		Kind:     string(a.Kind),
		Title:    a.Title,
		Detail:   a.Payload,
		EarnedAt: a.EarnedAt,
	}
}

func toHealthRecordView(rec domain.HealthRecord) HealthRecordView {
	return HealthRecordView{
		ID:          rec.ID,
		UserID:      rec.UserID,
		RecordType:  string(rec.RecordType),
		Description: rec.Description,
		StartDate:   rec.StartDate,
		EndDate:     rec.EndDate,
		Severity:    string(rec.Severity),
		Active:      rec.Active,
		Notes:       rec.Notes,
	}
}

// writeDomainError maps domain sentinels onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrInvalidGoal):
		writeError(w, http.StatusBadRequest, "invalid_goal", err.Error())
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		writeError(w, http.StatusBadGateway, "upstream_unavailable", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
