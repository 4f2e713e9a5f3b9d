package features

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-split-must-flow/internal/common"
)

func TestFitNumeric(t *testing.T) {
	samples := []Sample{
		{Hour: 18, Amount: 10000},
		{Hour: 20, Amount: 30000},
	}

	stats, err := FitNumeric(samples)
	require.NoError(t, err)

	assert.InDelta(t, 19.0, stats.MeanHour, 1e-12)
	assert.InDelta(t, 1.0, stats.StdHour, 1e-12, "population std, not sample std")
	assert.InDelta(t, 20000.0, stats.MeanAmount, 1e-9)
	assert.InDelta(t, 10000.0, stats.StdAmount, 1e-9)

	hour, amount := stats.Transform(20, 10000)
	assert.InDelta(t, 1.0, hour, 1e-12)
	assert.InDelta(t, -1.0, amount, 1e-12)
}

func TestFitNumeric_Degenerate(t *testing.T) {
	tests := []struct {
		name    string
		samples []Sample
		want    []string
	}{
		{
			name:    "constant hour",
			samples: []Sample{{Hour: 18, Amount: 10000}, {Hour: 18, Amount: 10500}},
			want:    []string{FeatureHour},
		},
		{
			name:    "constant amount",
			samples: []Sample{{Hour: 12, Amount: 500}, {Hour: 19, Amount: 500}},
			want:    []string{FeatureAmount},
		},
		{
			name:    "single sample",
			samples: []Sample{{Hour: 12, Amount: 500}},
			want:    []string{FeatureHour, FeatureAmount},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats, err := FitNumeric(tt.samples)
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrDegenerateInput))

			var degenerate *DegenerateInputError
			require.True(t, errors.As(err, &degenerate))
			assert.Equal(t, tt.want, degenerate.Features)

			fixed := stats.WithUnitScale()
			assert.NotZero(t, fixed.StdHour)
			assert.NotZero(t, fixed.StdAmount)
			assert.Equal(t, stats.MeanHour, fixed.MeanHour)
			assert.Equal(t, stats.MeanAmount, fixed.MeanAmount)
		})
	}
}

func TestFitNumeric_Empty(t *testing.T) {
	stats, err := FitNumeric(nil)
	require.NoError(t, err)
	assert.Equal(t, NumericStats{StdHour: 1, StdAmount: 1}, stats)

	hour, amount := stats.Transform(7, 42)
	assert.Equal(t, 7.0, hour)
	assert.Equal(t, 42.0, amount)
}

func TestDegenerateInputError_Message(t *testing.T) {
	err := &DegenerateInputError{Features: []string{FeatureHour, FeatureAmount}}
	assert.Equal(t, "zero variance in hour, amount", err.Error())
}
