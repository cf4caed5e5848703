package restoration

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-relay/pkg/pipeline"
)

// Yearly degradation rates, in percent.
var degradationRates = map[string]float64{
	"paper":   4.5,
	"canvas":  3.5,
	"wood":    2.8,
	"textile": 4.0,
	"stone":   0.8,
	"metal":   1.5,
	"ceramic": 1.0,
	"glass":   0.5,
}

const defaultRate = 3.0

// materialAliases maps words found in free text descriptions to a rated material.
// The order matters: the first match wins.
var materialAliases = []struct {
	word     string
	material string
}{
	{"paper", "paper"},
	{"parchment", "paper"},
	{"papyrus", "paper"},
	{"canvas", "canvas"},
	{"wood", "wood"},
	{"textile", "textile"},
	{"linen", "textile"},
	{"silk", "textile"},
	{"wool", "textile"},
	{"stone", "stone"},
	{"marble", "stone"},
	{"granite", "stone"},
	{"limestone", "stone"},
	{"sandstone", "stone"},
	{"metal", "metal"},
	{"bronze", "metal"},
	{"iron", "metal"},
	{"copper", "metal"},
	{"silver", "metal"},
	{"gold", "metal"},
	{"ceramic", "ceramic"},
	{"terracotta", "ceramic"},
	{"porcelain", "ceramic"},
	{"clay", "ceramic"},
	{"glass", "glass"},
}

// NormalizeMaterial maps a free text material to one of the rated materials.
// It returns the lowercased input when nothing matches.
func NormalizeMaterial(material string) string {
	lower := strings.ToLower(strings.TrimSpace(material))
	if _, ok := degradationRates[lower]; ok {
		return lower
	}

	for _, alias := range materialAliases {
		if strings.Contains(lower, alias.word) {
			return alias.material
		}
	}

	return lower
}

// Prediction is the expected state of an artifact after some years.
type Prediction struct {
	Material              string  `json:"material" yaml:"material"`
	Condition             string  `json:"condition" yaml:"condition"`
	Year                  int     `json:"year" yaml:"year"`
	DegradationPercentage float64 `json:"degradation_percentage" yaml:"degradation_percentage"`
}

// PredictDegradation applies the yearly rate of material over years.
// The degradation is capped at 100 and rounded to one decimal.
func PredictDegradation(material string, years int) Prediction {
	rate, ok := degradationRates[NormalizeMaterial(material)]
	if !ok {
		rate = defaultRate
	}

	degradation := math.Min(rate*float64(years), 100)
	degradation = math.Round(degradation*10) / 10

	return Prediction{
		Material:              material,
		Year:                  years,
		DegradationPercentage: degradation,
		Condition:             Condition(degradation),
	}
}

// Condition describes a degradation percentage.
func Condition(degradation float64) string {
	switch {
	case degradation < 10:
		return "Excellent - Minimal changes"
	case degradation < 25:
		return "Good - Minor surface wear"
	case degradation < 50:
		return "Fair - Noticeable degradation, some detail loss"
	case degradation < 75:
		return "Poor - Significant deterioration"
	default:
		return "Critical - Severe damage, major restoration required"
	}
}

// Timeline predicts the degradation at the start, at each quarter and at the end of years.
func Timeline(material string, years int) []Prediction {
	fractions := []float64{0, 0.25, 0.5, 0.75}

	res := make([]Prediction, 0, len(fractions)+1)
	for _, f := range fractions {
		res = append(res, PredictDegradation(material, int(float64(years)*f)))
	}

	return append(res, PredictDegradation(material, years))
}

// DegradationTimeline is the output of the environmental step.
type DegradationTimeline struct {
	Material    string       `json:"material" yaml:"material"`
	Predictions []Prediction `json:"predictions" yaml:"predictions"`
	Years       int          `json:"years" yaml:"years"`
}

// Final returns the prediction at the end of the span.
func (d DegradationTimeline) Final() Prediction {
	if len(d.Predictions) == 0 {
		return Prediction{Material: d.Material}
	}

	return d.Predictions[len(d.Predictions)-1]
}

func timelineOf(v any) (DegradationTimeline, error) {
	switch tl := v.(type) {
	case DegradationTimeline:
		return tl, nil
	case *DegradationTimeline:
		if tl != nil {
			return *tl, nil
		}
	}

	return DegradationTimeline{}, errors.Wrapf(pipeline.ErrUnexpectedType, "%s is %T", KeyDegradationTimeline, v)
}

// Environment is the environmental analysis tool: it predicts the degradation of the
// identified material over the requested time span.
type Environment struct{}

func (Environment) Invoke(ctx context.Context, args map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id, err := identificationOf(args[KeyIdentification])
	if err != nil {
		return nil, err
	}

	years, err := asInt(args[KeyTimeSpan])
	if err != nil {
		return nil, errors.Wrap(err, KeyTimeSpan)
	}

	err = ValidateYears(years)
	if err != nil {
		return nil, err
	}

	material := id.Material
	if material == "" {
		material = "unknown"
	}

	return DegradationTimeline{
		Material:    material,
		Years:       years,
		Predictions: Timeline(material, years),
	}, nil
}

func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, errors.Wrapf(pipeline.ErrUnexpectedType, "%v is not an integer", n)
		}

		return int(n), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, errors.Wrapf(pipeline.ErrUnexpectedType, "%q is not an integer", n)
		}

		return i, nil
	}

	return 0, errors.Wrapf(pipeline.ErrUnexpectedType, "%T", v)
}

var _ pipeline.Tool = Environment{}
