package restoration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-relay/internal/restoration"
	"github.com/askiada/go-relay/pkg/pipeline"
)

func TestPredictDegradation(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		material      string
		years         int
		wantPct       float64
		wantCondition string
	}{
		"canvas 10 years": {
			material: "canvas", years: 10, wantPct: 35,
			wantCondition: "Fair - Noticeable degradation, some detail loss",
		},
		"paper capped": {
			material: "Paper", years: 30, wantPct: 100,
			wantCondition: "Critical - Severe damage, major restoration required",
		},
		"stone": {
			material: "stone", years: 10, wantPct: 8,
			wantCondition: "Excellent - Minimal changes",
		},
		"glass rounding": {
			material: "glass", years: 3, wantPct: 1.5,
			wantCondition: "Excellent - Minimal changes",
		},
		"wood": {
			material: "wood", years: 7, wantPct: 19.6,
			wantCondition: "Good - Minor surface wear",
		},
		"textile poor": {
			material: "textile", years: 15, wantPct: 60,
			wantCondition: "Poor - Significant deterioration",
		},
		"unknown material uses default rate": {
			material: "plastic", years: 10, wantPct: 30,
			wantCondition: "Fair - Noticeable degradation, some detail loss",
		},
		"free text material": {
			material: "White Carrara marble", years: 10, wantPct: 8,
			wantCondition: "Excellent - Minimal changes",
		},
		"boundary 75 is critical": {
			material: "metal", years: 50, wantPct: 75,
			wantCondition: "Critical - Severe damage, major restoration required",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := restoration.PredictDegradation(tc.material, tc.years)
			assert.InDelta(t, tc.wantPct, got.DegradationPercentage, 1e-9)
			assert.Equal(t, tc.wantCondition, got.Condition)
			assert.Equal(t, tc.years, got.Year)
			assert.Equal(t, tc.material, got.Material)
		})
	}
}

func TestCondition(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Good - Minor surface wear", restoration.Condition(10))
	assert.Equal(t, "Fair - Noticeable degradation, some detail loss", restoration.Condition(25))
	assert.Equal(t, "Poor - Significant deterioration", restoration.Condition(50))
	assert.Equal(t, "Critical - Severe damage, major restoration required", restoration.Condition(75))
}

func TestNormalizeMaterial(t *testing.T) {
	t.Parallel()

	tcs := map[string]string{
		"Canvas and oil paint": "canvas",
		"Bronze":               "metal",
		"terracotta":           "ceramic",
		"silk and gold thread": "textile",
		"GLASS":                "glass",
		"Plastic":              "plastic",
	}

	for in, want := range tcs {
		assert.Equal(t, want, restoration.NormalizeMaterial(in), in)
	}
}

func TestTimeline(t *testing.T) {
	t.Parallel()

	got := restoration.Timeline("canvas", 10)
	require.Len(t, got, 5)

	years := make([]int, len(got))
	pcts := make([]float64, len(got))

	for i, p := range got {
		years[i] = p.Year
		pcts[i] = p.DegradationPercentage
	}

	assert.Equal(t, []int{0, 2, 5, 7, 10}, years)
	assert.InDeltaSlice(t, []float64{0, 7, 17.5, 24.5, 35}, pcts, 1e-9)
}

func TestEnvironment(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		args    map[string]any
		wantErr error
		want    string
	}{
		"text identification": {
			args: map[string]any{
				restoration.KeyIdentification: "TYPE: painting\nMATERIAL: canvas",
				restoration.KeyTimeSpan:       10,
			},
			want: "canvas",
		},
		"float span from json": {
			args: map[string]any{
				restoration.KeyIdentification: restoration.Identification{Material: "stone"},
				restoration.KeyTimeSpan:       float64(20),
			},
			want: "stone",
		},
		"unknown material": {
			args: map[string]any{
				restoration.KeyIdentification: "TYPE: other",
				restoration.KeyTimeSpan:       "5",
			},
			want: "unknown",
		},
		"span out of range": {
			args: map[string]any{
				restoration.KeyIdentification: "MATERIAL: wood",
				restoration.KeyTimeSpan:       101,
			},
			wantErr: restoration.ErrInvalidYears,
		},
		"span not an integer": {
			args: map[string]any{
				restoration.KeyIdentification: "MATERIAL: wood",
				restoration.KeyTimeSpan:       2.5,
			},
			wantErr: pipeline.ErrUnexpectedType,
		},
		"bad identification": {
			args: map[string]any{
				restoration.KeyIdentification: 42,
				restoration.KeyTimeSpan:       10,
			},
			wantErr: pipeline.ErrUnexpectedType,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			out, err := restoration.Environment{}.Invoke(t.Context(), tc.args)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)

				return
			}

			require.NoError(t, err)

			timeline, ok := out.(restoration.DegradationTimeline)
			require.True(t, ok)
			assert.Equal(t, tc.want, timeline.Material)
			assert.Len(t, timeline.Predictions, 5)
			assert.Equal(t, timeline.Years, timeline.Final().Year)
		})
	}
}
