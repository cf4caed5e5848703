package intrusion_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-relay/internal/intrusion"
	"github.com/askiada/go-relay/pkg/pipeline"
	"github.com/askiada/go-relay/pkg/pipeline/model"
)

func TestRunCompleted(t *testing.T) {
	t.Parallel()

	analyst := pipeline.ModelFunc(func(_ context.Context, prompt map[string]any) (any, error) {
		assert.Equal(t, map[string]any{intrusion.KeyAlert: "failed login x5"}, prompt)

		return "incident: brute force, ip=1.2.3.4", nil
	})
	blocker := intrusion.NewBlocker(nil)

	pipe, err := intrusion.New(analyst, blocker)
	require.NoError(t, err)

	res, err := pipe.Run(t.Context(), intrusion.Seed("failed login x5"))
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, res.Status)
	assert.Equal(t, -1, res.FailedStep)
	assert.Equal(t, intrusion.Name, res.Pipeline)
	assert.Equal(t, "incident: brute force, ip=1.2.3.4", res.State[intrusion.KeyIncidentReport])
	assert.Equal(t, intrusion.Mitigation{
		Action:    "block_ip",
		IP:        "1.2.3.4",
		Status:    intrusion.StatusBlocked,
		Simulated: true,
	}, res.State[intrusion.KeyMitigationStatus])
	assert.Equal(t, []string{"1.2.3.4"}, blocker.Blocked())
}

func TestRunAnalystServiceError(t *testing.T) {
	t.Parallel()

	quota := errors.New("quota exceeded")
	analyst := pipeline.ModelFunc(func(context.Context, map[string]any) (any, error) {
		return nil, quota
	})
	blocker := intrusion.NewBlocker(nil)

	pipe, err := intrusion.New(analyst, blocker)
	require.NoError(t, err)

	res, err := pipe.Run(t.Context(), intrusion.Seed("failed login x5"))
	require.Error(t, err)
	require.ErrorIs(t, err, pipeline.ErrService)
	require.ErrorIs(t, err, quota)

	assert.Equal(t, model.StatusFailed, res.Status)
	assert.Equal(t, 0, res.FailedStep)
	assert.Equal(t, intrusion.StepAnalyze, res.FailedStepName)
	assert.Equal(t, map[string]any{intrusion.KeyAlert: "failed login x5"}, res.State)
	assert.Empty(t, blocker.Blocked())
}

func TestMisorderedSteps(t *testing.T) {
	t.Parallel()

	steps := intrusion.Steps(intrusion.Analyst{}, intrusion.NewBlocker(nil))
	reversed := []pipeline.Step{steps[1], steps[0]}

	t.Run("assembles without dependency check and fails at run time", func(t *testing.T) {
		t.Parallel()

		pipe, err := pipeline.New()
		require.NoError(t, err)
		require.NoError(t, pipe.AddSteps(reversed...))

		res, err := pipe.Run(t.Context(), intrusion.Seed("failed login x5 from 1.2.3.4"))
		require.ErrorIs(t, err, pipeline.ErrMissingInput)

		var missing *pipeline.MissingInputError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, []string{intrusion.KeyIncidentReport}, missing.Keys)
		assert.Equal(t, 0, res.FailedStep)
		assert.Equal(t, intrusion.StepMitigate, res.FailedStepName)
		assert.Len(t, res.State, 1)
	})

	t.Run("rejected at assembly with dependency check", func(t *testing.T) {
		t.Parallel()

		pipe, err := pipeline.New(pipeline.WithDependencyCheck(intrusion.KeyAlert))
		require.NoError(t, err)

		err = pipe.AddSteps(reversed...)
		require.ErrorIs(t, err, pipeline.ErrUnresolvedInput)
	})
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := intrusion.New(nil, intrusion.NewBlocker(nil))
	require.ErrorIs(t, err, intrusion.ErrCollaboratorMustBeSet)

	_, err = intrusion.New(intrusion.Analyst{}, nil)
	require.ErrorIs(t, err, intrusion.ErrCollaboratorMustBeSet)
}

func TestOfflineRun(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		alert      string
		wantReport string
		wantStatus string
	}{
		"brute force": {
			alert:      "sshd: failed login x7 for root from 10.0.0.8 port 22",
			wantReport: "incident: brute force, ip=10.0.0.8",
			wantStatus: intrusion.StatusBlocked,
		},
		"suspicious": {
			alert:      "Failed password for admin from 2001:db8::1\nFailed password for admin from 2001:db8::1",
			wantReport: "incident: suspicious activity, ip=2001:db8::1",
			wantStatus: intrusion.StatusBlocked,
		},
		"benign": {
			alert:      "accepted publickey for deploy from 192.168.1.20",
			wantReport: "incident: none, ip=192.168.1.20",
			wantStatus: intrusion.StatusNoAction,
		},
		"no address": {
			alert:      "failed login x9",
			wantReport: "incident: brute force, ip=unknown",
			wantStatus: intrusion.StatusNoAction,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			pipe, err := intrusion.New(intrusion.Analyst{}, intrusion.NewBlocker(nil))
			require.NoError(t, err)

			res, err := pipe.Run(t.Context(), intrusion.Seed(tc.alert))
			require.NoError(t, err)

			assert.Equal(t, tc.wantReport, res.State[intrusion.KeyIncidentReport])

			mitigation, ok := res.State[intrusion.KeyMitigationStatus].(intrusion.Mitigation)
			require.True(t, ok)
			assert.Equal(t, tc.wantStatus, mitigation.Status)
			assert.True(t, mitigation.Simulated)
		})
	}
}

func TestRunAllAlerts(t *testing.T) {
	t.Parallel()

	blocker := intrusion.NewBlocker(nil)
	pipe, err := intrusion.New(intrusion.Analyst{}, blocker)
	require.NoError(t, err)

	seeds := []map[string]any{
		intrusion.Seed("failed login x5 from 1.1.1.1"),
		intrusion.Seed("failed login from 2.2.2.2"),
		intrusion.Seed("all good"),
	}

	results, err := pipeline.RunAll(t.Context(), pipe, seeds, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for _, res := range results {
		assert.True(t, res.Completed())
	}

	assert.Equal(t, []string{"1.1.1.1", "2.2.2.2"}, blocker.Blocked())
}
