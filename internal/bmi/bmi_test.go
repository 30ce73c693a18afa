package bmi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/FitSync-G13/fitsync-progress-service/internal/domain"
)

func TestCalculate(t *testing.T) {
	got, err := Calculate(70, 1.75)
	require.NoError(t, err)
	require.InDelta(t, 22.86, got, 0.01)
}

func TestCalculateRejectsNonPositiveInput(t *testing.T) {
	cases := []struct {
		name   string
		weight float64
		height float64
	}{
		{"zero weight", 0, 1.75},
		{"negative weight", -10, 1.75},
		{"zero height", 70, 0},
		{"negative height", 70, -1.6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Calculate(tc.weight, tc.height)
			require.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestCategoryBoundariesInclusiveLowerEdge(t *testing.T) {
	cases := []struct {
		bmi  float64
		want string
	}{
		{16.0, CategoryUnderweight},
		{18.49, CategoryUnderweight},
		{18.5, CategoryNormal},
		{24.9, CategoryNormal},
		{25.0, CategoryOverweight},
		{29.9, CategoryOverweight},
		{30.0, CategoryObese},
		{42.0, CategoryObese},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Category(tc.bmi), "bmi=%v", tc.bmi)
	}
}

func metricAt(day int, weight float64) domain.BodyMetric {
	return domain.BodyMetric{
		UserID:     "user-1",
		RecordedAt: time.Date(2025, time.January, day, 0, 0, 0, 0, time.UTC),
		WeightKg:   weight,
	}
}

func TestChartSeriesFiltersRange(t *testing.T) {
	metrics := []domain.BodyMetric{
		metricAt(1, 85),
		metricAt(10, 84),
		metricAt(20, 83),
		metricAt(30, 82),
	}

	from := time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.January, 25, 0, 0, 0, 0, time.UTC)

	points, err := ChartSeries(metrics, "weight_kg", from, to, 0)
	require.NoError(t, err)
	require.Len(t, points, 2)
	require.Equal(t, 84.0, points[0].Value)
	require.Equal(t, 83.0, points[1].Value)
}

func TestChartSeriesDownsamplesKeepingEndpoints(t *testing.T) {
	metrics := make([]domain.BodyMetric, 0, 10)
	for day := 1; day <= 10; day++ {
		metrics = append(metrics, metricAt(day, float64(90-day)))
	}

	from := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)

	points, err := ChartSeries(metrics, "weight_kg", from, to, 4)
	require.NoError(t, err)
	require.Len(t, points, 4)
	require.Equal(t, 89.0, points[0].Value)
	require.Equal(t, 80.0, points[3].Value)
}

func TestChartSeriesNeverFabricatesPoints(t *testing.T) {
	metrics := []domain.BodyMetric{metricAt(1, 85), metricAt(2, 84)}

	from := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)

	points, err := ChartSeries(metrics, "weight_kg", from, to, 50)
	require.NoError(t, err)
	require.Len(t, points, 2)
}

func TestChartSeriesSkipsMissingOptionalValues(t *testing.T) {
	fat := 21.5
	metrics := []domain.BodyMetric{
		{UserID: "user-1", RecordedAt: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{UserID: "user-1", RecordedAt: time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC), BodyFatPct: &fat},
	}

	from := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)

	points, err := ChartSeries(metrics, "body_fat_pct", from, to, 0)
	require.NoError(t, err)
	require.Len(t, points, 1)
	require.Equal(t, 21.5, points[0].Value)
}

func TestChartSeriesUnknownField(t *testing.T) {
	_, err := ChartSeries(nil, "resting_heart_rate", time.Time{}, time.Now(), 0)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
