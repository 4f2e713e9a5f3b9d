package features

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/Veraticus/the-split-must-flow/internal/common"
)

// Numeric feature names, as reported in DegenerateInputError.
const (
	FeatureHour   = "hour"
	FeatureAmount = "amount"
)

// DegenerateInputError reports numeric features whose training values are all identical.
// Standardising such a feature would divide by zero.
type DegenerateInputError struct {
	Features []string
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("zero variance in %s", strings.Join(e.Features, ", "))
}

// Unwrap lets errors.Is match common.ErrDegenerateInput.
func (e *DegenerateInputError) Unwrap() error {
	return common.ErrDegenerateInput
}

// NumericStats is the fitted state of the hour/amount normalizer.
type NumericStats struct {
	MeanHour   float64
	StdHour    float64
	MeanAmount float64
	StdAmount  float64
}

// FitNumeric learns population mean and standard deviation of hour and amount.
//
// If a feature has zero standard deviation the returned error is a
// *DegenerateInputError. The stats are returned regardless, so the caller
// can decide on a fallback such as WithUnitScale. An empty sample set
// yields mean 0 and std 1 for both features.
func FitNumeric(samples []Sample) (NumericStats, error) {
	if len(samples) == 0 {
		return NumericStats{StdHour: 1, StdAmount: 1}, nil
	}

	hours := make([]float64, len(samples))
	amounts := make([]float64, len(samples))
	for i, s := range samples {
		hours[i] = float64(s.Hour)
		amounts[i] = float64(s.Amount)
	}

	var stats NumericStats
	stats.MeanHour, stats.StdHour = stat.PopMeanStdDev(hours, nil)
	stats.MeanAmount, stats.StdAmount = stat.PopMeanStdDev(amounts, nil)

	if degenerate := stats.degenerate(); len(degenerate) > 0 {
		return stats, &DegenerateInputError{Features: degenerate}
	}
	return stats, nil
}

func (s NumericStats) degenerate() []string {
	var features []string
	if s.StdHour == 0 {
		features = append(features, FeatureHour)
	}
	if s.StdAmount == 0 {
		features = append(features, FeatureAmount)
	}
	return features
}

// WithUnitScale replaces every zero standard deviation with 1.
// A constant feature then maps to its offset from the mean, which is 0 for training rows.
func (s NumericStats) WithUnitScale() NumericStats {
	if s.StdHour == 0 {
		s.StdHour = 1
	}
	if s.StdAmount == 0 {
		s.StdAmount = 1
	}
	return s
}

// Transform standardises an (hour, amount) pair.
func (s NumericStats) Transform(hour int, amount int64) (float64, float64) {
	return (float64(hour) - s.MeanHour) / s.StdHour,
		(float64(amount) - s.MeanAmount) / s.StdAmount
}
