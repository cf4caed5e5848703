package intrusion

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-relay/pkg/pipeline"
)

// Mitigation statuses.
const (
	StatusBlocked  = "blocked"
	StatusNoAction = "no_action"
)

// Mitigation is the output of the mitigation step.
type Mitigation struct {
	Action    string `json:"action" yaml:"action"`
	IP        string `json:"ip" yaml:"ip"`
	Status    string `json:"status" yaml:"status"`
	Simulated bool   `json:"simulated" yaml:"simulated"`
}

// Blocker simulates an IP block. Nothing leaves the process: blocked addresses
// are only recorded. It is safe for concurrent use.
type Blocker struct {
	logger  *zap.Logger
	blocked map[string]struct{}
	mu      sync.Mutex
}

// NewBlocker creates a blocker. A nil logger disables logging.
func NewBlocker(logger *zap.Logger) *Blocker {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Blocker{
		logger:  logger,
		blocked: make(map[string]struct{}),
	}
}

func (b *Blocker) Invoke(ctx context.Context, args map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var text string

	switch report := args[KeyIncidentReport].(type) {
	case string:
		text = report
	case fmt.Stringer:
		text = report.String()
	default:
		return nil, errors.Wrapf(pipeline.ErrUnexpectedType, "%s is %T, want string", KeyIncidentReport, report)
	}

	report := ParseReport(text)

	if report.IP == unknownIP || report.Class == ClassNone {
		b.logger.Info("nothing to mitigate", zap.String("class", report.Class), zap.String("ip", report.IP))

		return Mitigation{Action: "none", IP: report.IP, Status: StatusNoAction, Simulated: true}, nil
	}

	b.mu.Lock()
	b.blocked[report.IP] = struct{}{}
	b.mu.Unlock()

	b.logger.Info("ip blocked", zap.String("class", report.Class), zap.String("ip", report.IP), zap.Bool("simulated", true))

	return Mitigation{Action: "block_ip", IP: report.IP, Status: StatusBlocked, Simulated: true}, nil
}

// Blocked returns the blocked addresses, sorted.
func (b *Blocker) Blocked() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	res := make([]string, 0, len(b.blocked))
	for ip := range b.blocked {
		res = append(res, ip)
	}

	sort.Strings(res)

	return res
}

var _ pipeline.Tool = (*Blocker)(nil)
