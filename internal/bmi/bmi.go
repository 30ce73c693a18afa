// Package bmi computes body-mass-index values and prepares metric
// history for charting.
package bmi

import (
	"fmt"
	"math"
	"time"

	"github.com/FitSync-G13/fitsync-progress-service/internal/domain"
)

// Category labels follow the WHO adult thresholds with inclusive lower
// bounds: BMI 18.5 is normal, 25.0 overweight, 30.0 obese.
const (
	CategoryUnderweight = "underweight"
	CategoryNormal      = "normal"
	CategoryOverweight  = "overweight"
	CategoryObese       = "obese"
)

// Calculate returns weight / height² for weight in kilograms and height
// in meters.
func Calculate(weightKg, heightM float64) (float64, error) {
	if weightKg <= 0 {
		return 0, fmt.Errorf("%w: weight must be > 0, got %v", domain.ErrInvalidInput, weightKg)
	}
	if heightM <= 0 {
		return 0, fmt.Errorf("%w: height must be > 0, got %v", domain.ErrInvalidInput, heightM)
	}
	return weightKg / (heightM * heightM), nil
}

// CalculateFromCm is a convenience for callers holding height in
// centimeters, the unit body metrics are recorded in.
func CalculateFromCm(weightKg, heightCm float64) (float64, error) {
	return Calculate(weightKg, heightCm/100.0)
}

// Category maps a BMI value onto its label.
func Category(bmi float64) string {
	switch {
	case bmi < 18.5:
		return CategoryUnderweight
	case bmi < 25.0:
		return CategoryNormal
	case bmi < 30.0:
		return CategoryOverweight
	default:
		return CategoryObese
	}
}

// Round2 rounds to two decimals, the precision metrics are stored with.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ChartPoint is one plotted value.
type ChartPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// ChartSeries filters metric history to [from, to] and extracts the
// selected field. When maxPoints is positive and lower than the number
// of matching records the series is uniformly down-sampled, always
// keeping the first and last point. Points are never fabricated.
func ChartSeries(metrics []domain.BodyMetric, field string, from, to time.Time, maxPoints int) ([]ChartPoint, error) {
	points := make([]ChartPoint, 0, len(metrics))
	for _, m := range metrics {
		if m.RecordedAt.Before(from) || m.RecordedAt.After(to) {
			continue
		}
		var value *float64
		switch field {
		case "weight_kg":
			v := m.WeightKg
			value = &v
		case "bmi":
			value = m.BMI
		case "body_fat_pct":
			value = m.BodyFatPct
		default:
			return nil, fmt.Errorf("%w: unknown chart field %q", domain.ErrInvalidInput, field)
		}
		if value == nil {
			continue
		}
		points = append(points, ChartPoint{Date: m.RecordedAt, Value: *value})
	}

	if maxPoints <= 0 || len(points) <= maxPoints {
		return points, nil
	}
	return downsample(points, maxPoints), nil
}

func downsample(points []ChartPoint, maxPoints int) []ChartPoint {
	if maxPoints == 1 {
		return points[len(points)-1:]
	}
	out := make([]ChartPoint, 0, maxPoints)
	step := float64(len(points)-1) / float64(maxPoints-1)
	for i := 0; i < maxPoints; i++ {
		idx := int(math.Round(float64(i) * step))
		if idx > len(points)-1 {
			idx = len(points) - 1
		}
		out = append(out, points[idx])
	}
	return out
}
