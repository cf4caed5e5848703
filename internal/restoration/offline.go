package restoration

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-relay/pkg/pipeline"
)

// Prompt templates for chat models. The image is attached to the vision prompt.
const (
	VisionSystemPrompt = "You are an expert art historian identifying artifacts from pictures. Be accurate about the artifact type."
	VisionPrompt       = `Identify the artifact in the picture. Answer with exactly these lines:
ARTIFACT NAME: <name, or "Unknown <type>">
TYPE: <painting, sculpture, statue, monument, pottery, ceramic, textile, manuscript, photograph, architecture, metalwork, jewelry, furniture or other>
MATERIAL: <what it is made of>
PERIOD: <historical period>
ORIGIN: <culture or civilization>
LOCATION: <museum and city, or Unknown>
CONDITION: <visible damage>
DESCRIPTION: <short physical description>
CONFIDENCE: <High, Medium or Low>`

	HistoricalSystemPrompt = "You are an art historian and archaeologist. Be specific and factual."
	HistoricalPrompt       = `Give the historical context of this artifact: period and culture, creation technique, purpose and significance.

{{.identification}}`

	EnvironmentalSystemPrompt = "You are a conservation scientist. Use the typical climate of the place where this kind of artifact is usually kept."
	EnvironmentalPrompt       = `Based on this artifact context, give the environmental degradation outlook.

CONTEXT:
{{.historical_context}}

QUANTITATIVE DATA:
- Material: {{.degradation_timeline.Material}}
- Time span: {{.degradation_timeline.Years}} years
- Predicted degradation: {{.degradation_timeline.Final.DegradationPercentage}}%
- Condition: {{.degradation_timeline.Final.Condition}}

Cover the current baseline, the degradation timeline, the environmental threats (temperature,
humidity, light, pollution, biological), the recommended storage conditions, the preservation
interventions and their cost over the time span.`
)

// OfflineVision is a vision model that cannot see: it only reports what the bytes of
// the picture tell.
type OfflineVision struct{}

func (OfflineVision) Infer(ctx context.Context, prompt map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, ok := prompt[KeyImage].([]byte)
	if !ok {
		return nil, errors.Wrapf(pipeline.ErrUnexpectedType, "%s is %T, want []byte", KeyImage, prompt[KeyImage])
	}

	return Identification{
		Name:        "Unknown artifact",
		Type:        "other",
		Material:    "unknown",
		Period:      "Unknown",
		Origin:      "Unknown",
		Location:    "Unknown",
		Condition:   "Not assessed",
		Description: fmt.Sprintf("%s picture of %d bytes", http.DetectContentType(img), len(img)),
		Confidence:  "Low",
	}.String(), nil
}

// OfflineHistorian writes a short context from the identification alone.
type OfflineHistorian struct{}

func (OfflineHistorian) Infer(ctx context.Context, prompt map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id, err := identificationOf(prompt[KeyIdentification])
	if err != nil {
		return nil, err
	}

	var parts []string

	subject := id.Name
	if subject == "" {
		subject = "This artifact"
	}

	if id.Type != "" {
		subject += " is a " + id.Type
	} else {
		subject += " is an artifact"
	}

	if id.Period != "" && !strings.EqualFold(id.Period, "unknown") {
		subject += " from " + id.Period
	}

	parts = append(parts, subject+".")

	if id.Origin != "" && !strings.EqualFold(id.Origin, "unknown") {
		parts = append(parts, "It was made by the "+id.Origin+" culture.")
	}

	if id.Material != "" && !strings.EqualFold(id.Material, "unknown") {
		parts = append(parts, "Material: "+id.Material+".")
	}

	if id.Location != "" && !strings.EqualFold(id.Location, "unknown") {
		parts = append(parts, "It is kept at "+id.Location+".")
	}

	return strings.Join(parts, " "), nil
}

// OfflineConservator turns the degradation timeline into a short outlook with storage advice.
type OfflineConservator struct{}

func (OfflineConservator) Infer(ctx context.Context, prompt map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeline, err := timelineOf(prompt[KeyDegradationTimeline])
	if err != nil {
		return nil, err
	}

	final := timeline.Final()
	outlook := fmt.Sprintf("%s is expected to reach %.1f%% degradation in %d years (%s).",
		timeline.Material, final.DegradationPercentage, timeline.Years, final.Condition)

	if len(timeline.Predictions) == 5 {
		quarter, half := timeline.Predictions[1], timeline.Predictions[2]
		outlook += fmt.Sprintf(" Expected %.1f%% after %d years and %.1f%% after %d years.",
			quarter.DegradationPercentage, quarter.Year, half.DegradationPercentage, half.Year)
	}

	return outlook + " " + storageAdvice(final.DegradationPercentage), nil
}

func storageAdvice(degradation float64) string {
	switch {
	case degradation < 25:
		return "Routine monitoring at 18-22 °C and 45-55 % relative humidity is enough."
	case degradation < 50:
		return "Climate control, low light and a conservation review every few years are recommended."
	default:
		return "Conservation treatment is needed now, with controlled temperature, humidity and light."
	}
}

var (
	_ pipeline.Model = OfflineVision{}
	_ pipeline.Model = OfflineHistorian{}
	_ pipeline.Model = OfflineConservator{}
)
