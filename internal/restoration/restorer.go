package restoration

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-relay/pkg/pipeline"
)

// Restoration methods.
const (
	MethodGenerated = "generated"
	MethodOriginal  = "original"
)

// ImageGenerator renders an image from a text prompt and the original picture.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, original []byte) ([]byte, error)
}

// ImageGeneratorFunc is an adapter to use an ordinary function as an ImageGenerator.
type ImageGeneratorFunc func(ctx context.Context, prompt string, original []byte) ([]byte, error)

func (f ImageGeneratorFunc) Generate(ctx context.Context, prompt string, original []byte) ([]byte, error) {
	return f(ctx, prompt, original)
}

// Restoration is the output of the restoration step.
type Restoration struct {
	Image        []byte `json:"image" yaml:"-"`
	Method       string `json:"method" yaml:"method"`
	Level        string `json:"level" yaml:"level"`
	ArtifactType string `json:"artifact_type" yaml:"artifact_type"`
	Prompt       string `json:"prompt" yaml:"prompt"`
	Note         string `json:"note,omitempty" yaml:"note,omitempty"`
}

// Restorer is the restoration tool. Without a generator, or when the generator fails,
// it hands back the original image together with the reconstruction prompt.
type Restorer struct {
	generator ImageGenerator
	logger    *zap.Logger
}

// NewRestorer creates a restorer. generator and logger are optional.
func NewRestorer(generator ImageGenerator, logger *zap.Logger) *Restorer {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Restorer{generator: generator, logger: logger}
}

func (r *Restorer) Invoke(ctx context.Context, args map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, ok := args[KeyImage].([]byte)
	if !ok {
		return nil, errors.Wrapf(pipeline.ErrUnexpectedType, "%s is %T, want []byte", KeyImage, args[KeyImage])
	}

	level, ok := args[KeyRestorationLevel].(string)
	if !ok {
		return nil, errors.Wrapf(pipeline.ErrUnexpectedType, "%s is %T, want string", KeyRestorationLevel, args[KeyRestorationLevel])
	}

	err := ValidateLevel(level)
	if err != nil {
		return nil, err
	}

	id, err := identificationOf(args[KeyIdentification])
	if err != nil {
		return nil, err
	}

	artifactType := id.Type
	if artifactType == "" {
		artifactType = "artifact"
	}

	res := Restoration{
		Image:        img,
		Method:       MethodOriginal,
		Level:        level,
		ArtifactType: artifactType,
		Prompt:       ReconstructionPrompt(id, level),
	}

	if r.generator == nil {
		res.Note = "no image generator configured"

		return res, nil
	}

	generated, err := r.generator.Generate(ctx, res.Prompt, img)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}

		r.logger.Warn("image generation failed, keeping the original image", zap.Error(err))
		res.Note = "image generation failed: " + err.Error()

		return res, nil
	}

	res.Image = generated
	res.Method = MethodGenerated

	return res, nil
}

var levelInstructions = map[string]string{
	LevelLight:  "Clean the surface and fix discoloration, keep the visible age of the piece.",
	LevelMedium: "Repair cracks and fading, restore the original colors.",
	LevelHeavy:  "Rebuild every missing or broken part, show the artifact as it looked when it was made.",
}

// ReconstructionPrompt describes the pristine artifact for an image generator.
func ReconstructionPrompt(id Identification, level string) string {
	var buf strings.Builder

	name := id.Name
	if name == "" {
		name = "Unknown artifact"
	}

	fmt.Fprintf(&buf, "Museum quality photograph of %s", name)

	if id.Type != "" {
		fmt.Fprintf(&buf, ", a %s", id.Type)
	}

	if id.Period != "" {
		fmt.Fprintf(&buf, " from %s", id.Period)
	}

	if id.Origin != "" {
		fmt.Fprintf(&buf, " (%s)", id.Origin)
	}

	buf.WriteString(".")

	if id.Material != "" {
		fmt.Fprintf(&buf, " Material: %s.", id.Material)
	}

	if id.Description != "" {
		fmt.Fprintf(&buf, " %s", strings.TrimSuffix(id.Description, "."))
		buf.WriteString(".")
	}

	if id.Condition != "" {
		fmt.Fprintf(&buf, " Damage to repair: %s.", strings.TrimSuffix(id.Condition, "."))
	}

	fmt.Fprintf(&buf, " %s", levelInstructions[level])

	return buf.String()
}

var _ pipeline.Tool = (*Restorer)(nil)
