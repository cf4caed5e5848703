package intrusion_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-relay/internal/intrusion"
	"github.com/askiada/go-relay/pkg/pipeline"
)

func TestCountFailures(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		alert string
		want  int
	}{
		"empty":            {alert: "", want: 0},
		"single":           {alert: "failed login for bob", want: 1},
		"repetition":       {alert: "FAILED LOGIN x5", want: 5},
		"repetition space": {alert: "failed login  x12 from 1.2.3.4", want: 12},
		"mixed markers":    {alert: "failed password\ninvalid user test\nauthentication failure", want: 3},
		"x without digits": {alert: "failed login xyz", want: 1},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, intrusion.CountFailures(tc.alert))
		})
	}
}

func TestFirstAddr(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		text   string
		want   string
		wantOK bool
	}{
		"ipv4":          {text: "from 1.2.3.4 port 22", want: "1.2.3.4", wantOK: true},
		"assignment":    {text: "incident: x, ip=5.6.7.8", want: "5.6.7.8", wantOK: true},
		"with port":     {text: "peer 9.9.9.9:443 closed", want: "9.9.9.9", wantOK: true},
		"ipv6":          {text: "src [2001:db8::2]", want: "2001:db8::2", wantOK: true},
		"trailing dot":  {text: "blocked 8.8.4.4.", want: "8.8.4.4", wantOK: true},
		"first wins":    {text: "1.1.1.1 then 2.2.2.2", want: "1.1.1.1", wantOK: true},
		"none":          {text: "failed login x5", wantOK: false},
		"invalid octet": {text: "999.1.1.1", wantOK: false},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			addr, ok := intrusion.FirstAddr(tc.text)
			require.Equal(t, tc.wantOK, ok)

			if tc.wantOK {
				assert.Equal(t, tc.want, addr.String())
			}
		})
	}
}

func TestParseReport(t *testing.T) {
	t.Parallel()

	report := intrusion.ParseReport("Incident: Brute Force, ip=1.2.3.4")
	assert.Equal(t, intrusion.Report{Class: intrusion.ClassBruteForce, IP: "1.2.3.4"}, report)

	report = intrusion.ParseReport("the host 4.3.2.1 looks compromised")
	assert.Equal(t, intrusion.Report{Class: intrusion.ClassSuspicious, IP: "4.3.2.1"}, report)

	report = intrusion.ParseReport("nothing here")
	assert.Equal(t, "unknown", report.IP)
}

func TestAnalystThreshold(t *testing.T) {
	t.Parallel()

	prompt := map[string]any{intrusion.KeyAlert: "failed login x3 from 1.2.3.4"}

	out, err := intrusion.Analyst{Threshold: 3}.Infer(t.Context(), prompt)
	require.NoError(t, err)
	assert.Equal(t, "incident: brute force, ip=1.2.3.4", out)

	out, err = intrusion.Analyst{}.Infer(t.Context(), prompt)
	require.NoError(t, err)
	assert.Equal(t, "incident: suspicious activity, ip=1.2.3.4", out)
}

func TestAnalystErrors(t *testing.T) {
	t.Parallel()

	_, err := intrusion.Analyst{}.Infer(t.Context(), map[string]any{intrusion.KeyAlert: 42})
	require.ErrorIs(t, err, pipeline.ErrUnexpectedType)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err = intrusion.Analyst{}.Infer(ctx, map[string]any{intrusion.KeyAlert: "x"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestBlockerUnexpectedReport(t *testing.T) {
	t.Parallel()

	_, err := intrusion.NewBlocker(nil).Invoke(t.Context(), map[string]any{intrusion.KeyIncidentReport: 1})
	require.ErrorIs(t, err, pipeline.ErrUnexpectedType)
}

func TestBlockerRecordsOnce(t *testing.T) {
	t.Parallel()

	blocker := intrusion.NewBlocker(nil)
	args := map[string]any{intrusion.KeyIncidentReport: intrusion.Report{Class: intrusion.ClassBruteForce, IP: "1.2.3.4"}}

	for range 3 {
		out, err := blocker.Invoke(t.Context(), args)
		require.NoError(t, err)
		assert.Equal(t, intrusion.StatusBlocked, out.(intrusion.Mitigation).Status)
	}

	assert.Equal(t, []string{"1.2.3.4"}, blocker.Blocked())
}
