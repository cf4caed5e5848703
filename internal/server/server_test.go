package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-relay/internal/intrusion"
	"github.com/askiada/go-relay/internal/restoration"
	"github.com/askiada/go-relay/internal/server"
	"github.com/askiada/go-relay/pkg/pipeline"
	"github.com/askiada/go-relay/pkg/pipeline/measure"
)

type runResponse struct {
	State          map[string]any `json:"state"`
	Status         string         `json:"status"`
	FailedStepName string         `json:"failed_step_name"`
	Error          string         `json:"error"`
	FailedStep     int            `json:"failed_step"`
}

func newServer(t *testing.T, analyst pipeline.Model) (*server.Server, *prometheus.Registry) {
	t.Helper()

	reg := prometheus.NewRegistry()
	collector := measure.NewCollector(reg, "relay")

	intrusionPipe, err := intrusion.New(analyst, intrusion.NewBlocker(nil),
		pipeline.WithOptions(collector.PipelineOption(intrusion.Name)))
	require.NoError(t, err)

	restorationPipe, err := restoration.New(restoration.Collaborators{
		Vision:     restoration.OfflineVision{},
		Historical: restoration.OfflineHistorian{},
	}, pipeline.WithOptions(collector.PipelineOption(restoration.Name)))
	require.NoError(t, err)

	srv, err := server.New(server.Config{
		Intrusion:   intrusionPipe,
		Restoration: restorationPipe,
		Gatherer:    reg,
		Concurrency: 2,
	})
	require.NoError(t, err)

	return srv, reg
}

func do(t *testing.T, srv *server.Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	return rec
}

func jsonRequest(t *testing.T, path string, body any) *http.Request {
	t.Helper()

	b, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")

	return req
}

func TestNewRequiresPipelines(t *testing.T) {
	t.Parallel()

	_, err := server.New(server.Config{})
	require.ErrorIs(t, err, server.ErrPipelineMustBeSet)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv, _ := newServer(t, intrusion.Analyst{})

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestIntrusionRun(t *testing.T) {
	t.Parallel()

	srv, _ := newServer(t, intrusion.Analyst{})

	rec := do(t, srv, jsonRequest(t, "/api/v1/intrusion/runs", server.IntrusionRequest{Alert: "failed login x5 from 1.2.3.4"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res runResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "completed", res.Status)
	assert.Equal(t, -1, res.FailedStep)
	assert.Equal(t, "incident: brute force, ip=1.2.3.4", res.State[intrusion.KeyIncidentReport])

	mitigation, ok := res.State[intrusion.KeyMitigationStatus].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "blocked", mitigation["status"])
}

func TestIntrusionRunServiceError(t *testing.T) {
	t.Parallel()

	srv, _ := newServer(t, pipeline.ModelFunc(func(context.Context, map[string]any) (any, error) {
		return nil, errors.New("quota exceeded")
	}))

	rec := do(t, srv, jsonRequest(t, "/api/v1/intrusion/runs", server.IntrusionRequest{Alert: "failed login"}))
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var res runResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "failed", res.Status)
	assert.Equal(t, 0, res.FailedStep)
	assert.Equal(t, intrusion.StepAnalyze, res.FailedStepName)
	assert.Contains(t, res.Error, "quota exceeded")
	assert.Equal(t, map[string]any{intrusion.KeyAlert: "failed login"}, res.State)
}

func TestIntrusionBatch(t *testing.T) {
	t.Parallel()

	srv, _ := newServer(t, intrusion.Analyst{})

	rec := do(t, srv, jsonRequest(t, "/api/v1/intrusion/runs", server.IntrusionRequest{
		Alerts: []string{"failed login x5 from 1.1.1.1", "all good", "failed password from 2.2.2.2"},
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var batch struct {
		Results []runResponse `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
	require.Len(t, batch.Results, 3)
	assert.Equal(t, "all good", batch.Results[1].State[intrusion.KeyAlert])

	for _, res := range batch.Results {
		assert.Equal(t, "completed", res.Status)
	}
}

func TestIntrusionBadRequests(t *testing.T) {
	t.Parallel()

	srv, _ := newServer(t, intrusion.Analyst{})

	tcs := map[string]*http.Request{
		"empty":     jsonRequest(t, "/api/v1/intrusion/runs", server.IntrusionRequest{}),
		"both":      jsonRequest(t, "/api/v1/intrusion/runs", server.IntrusionRequest{Alert: "a", Alerts: []string{"b"}}),
		"malformed": httptest.NewRequest(http.MethodPost, "/api/v1/intrusion/runs", strings.NewReader("{")),
	}
	tcs["malformed"].Header.Set("Content-Type", "application/json")

	for name, req := range tcs {
		rec := do(t, srv, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func multipartRequest(t *testing.T, image []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer

	w := multipart.NewWriter(&body)

	if image != nil {
		part, err := w.CreateFormFile(restoration.KeyImage, "artifact.jpg")
		require.NoError(t, err)

		_, err = part.Write(image)
		require.NoError(t, err)
	}

	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}

	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/restoration/runs", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())

	return req
}

func TestRestorationRun(t *testing.T) {
	t.Parallel()

	srv, _ := newServer(t, intrusion.Analyst{})

	rec := do(t, srv, multipartRequest(t, []byte("\xff\xd8\xff\xe0fake jpeg"), map[string]string{
		"level":                 restoration.LevelHeavy,
		restoration.KeyTimeSpan: "20",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res runResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "completed", res.Status)
	assert.EqualValues(t, 20, res.State[restoration.KeyTimeSpan])
	assert.Equal(t, restoration.LevelHeavy, res.State[restoration.KeyRestorationLevel])

	timeline, ok := res.State[restoration.KeyDegradationTimeline].(map[string]any)
	require.True(t, ok)
	assert.Len(t, timeline["predictions"], 5)
}

func TestRestorationBadRequests(t *testing.T) {
	t.Parallel()

	srv, _ := newServer(t, intrusion.Analyst{})
	img := []byte("\xff\xd8\xff\xe0fake jpeg")

	tcs := map[string]*http.Request{
		"no image":      multipartRequest(t, nil, map[string]string{"level": "light"}),
		"bad level":     multipartRequest(t, img, map[string]string{"level": "high"}),
		"bad span":      multipartRequest(t, img, map[string]string{restoration.KeyTimeSpan: "ten"}),
		"span too long": multipartRequest(t, img, map[string]string{restoration.KeyTimeSpan: "500"}),
	}

	for name, req := range tcs {
		rec := do(t, srv, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestPipelinesAndMetrics(t *testing.T) {
	t.Parallel()

	srv, _ := newServer(t, intrusion.Analyst{})

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/v1/pipelines", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var pipes []server.PipelineDescription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pipes))
	require.Len(t, pipes, 2)
	assert.Equal(t, intrusion.Name, pipes[0].Name)
	assert.Len(t, pipes[0].Steps, 2)
	assert.Equal(t, restoration.Name, pipes[1].Name)
	assert.Len(t, pipes[1].Steps, 5)

	rec = do(t, srv, jsonRequest(t, "/api/v1/intrusion/runs", server.IntrusionRequest{Alert: "failed login"}))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `relay_pipeline_runs_total{pipeline="intrusion",status="completed"} 1`)
	assert.Contains(t, rec.Body.String(), `relay_pipeline_steps_total{kind="model",pipeline="intrusion",status="completed",step="analyze"} 1`)
}
