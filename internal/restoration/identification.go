package restoration

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-relay/pkg/pipeline"
)

// Identification is what the vision model tells about an artifact.
type Identification struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Material    string `json:"material" yaml:"material"`
	Period      string `json:"period" yaml:"period"`
	Origin      string `json:"origin" yaml:"origin"`
	Location    string `json:"location" yaml:"location"`
	Condition   string `json:"condition" yaml:"condition"`
	Description string `json:"description" yaml:"description"`
	Confidence  string `json:"confidence" yaml:"confidence"`
}

func (id *Identification) field(label string) *string {
	switch label {
	case "ARTIFACT NAME", "NAME":
		return &id.Name
	case "TYPE":
		return &id.Type
	case "MATERIAL", "MATERIALS":
		return &id.Material
	case "PERIOD":
		return &id.Period
	case "ORIGIN":
		return &id.Origin
	case "LOCATION":
		return &id.Location
	case "CONDITION":
		return &id.Condition
	case "DESCRIPTION":
		return &id.Description
	case "CONFIDENCE":
		return &id.Confidence
	}

	return nil
}

// ParseIdentification reads "FIELD: value" lines. Field names are case insensitive
// and may be decorated with markdown emphasis. A line without a known field continues
// the previous value; a blank line ends it.
func ParseIdentification(text string) Identification {
	var (
		id   Identification
		last *string
	)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*#"))
		if line == "" {
			last = nil

			continue
		}

		if label, value, found := strings.Cut(line, ":"); found {
			label = strings.ToUpper(strings.Trim(strings.TrimSpace(label), "*_ "))
			if dst := id.field(label); dst != nil {
				*dst = strings.TrimSpace(strings.Trim(strings.TrimSpace(value), "*_"))
				last = dst

				continue
			}
		}

		if last != nil {
			*last = strings.TrimSpace(*last + " " + line)
		}
	}

	return id
}

// String renders the identification back to "FIELD: value" lines, skipping empty fields.
func (id Identification) String() string {
	var buf strings.Builder

	for _, f := range []struct {
		label string
		value string
	}{
		{"ARTIFACT NAME", id.Name},
		{"TYPE", id.Type},
		{"MATERIAL", id.Material},
		{"PERIOD", id.Period},
		{"ORIGIN", id.Origin},
		{"LOCATION", id.Location},
		{"CONDITION", id.Condition},
		{"DESCRIPTION", id.Description},
		{"CONFIDENCE", id.Confidence},
	} {
		if f.value == "" {
			continue
		}

		buf.WriteString(f.label)
		buf.WriteString(": ")
		buf.WriteString(f.value)
		buf.WriteString("\n")
	}

	return buf.String()
}

// identificationOf accepts the raw text of a model or an already parsed identification.
func identificationOf(v any) (Identification, error) {
	switch id := v.(type) {
	case Identification:
		return id, nil
	case *Identification:
		if id == nil {
			return Identification{}, errors.Wrap(pipeline.ErrUnexpectedType, "nil identification")
		}

		return *id, nil
	case string:
		return ParseIdentification(id), nil
	}

	return Identification{}, errors.Wrapf(pipeline.ErrUnexpectedType, "%s is %T", KeyIdentification, v)
}
