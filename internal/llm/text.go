package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/askiada/go-relay/pkg/pipeline"
)

// toText renders a prompt value: strings as is, everything else as JSON.
func toText(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case nil:
		return ""
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}

	return string(b)
}

// Static is a model always answering the same text. It is the offline stand-in for
// collaborators that cannot be computed locally.
type Static struct {
	Text string
}

func (s Static) Infer(ctx context.Context, _ map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return s.Text, nil
}

var _ pipeline.Model = Static{}
