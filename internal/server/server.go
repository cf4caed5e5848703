// Package server exposes the pipelines as a JSON API.
package server

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/askiada/go-relay/internal/intrusion"
	"github.com/askiada/go-relay/internal/restoration"
	"github.com/askiada/go-relay/pkg/pipeline"
	"github.com/askiada/go-relay/pkg/pipeline/model"
)

const (
	maxImageSize    = 10 << 20
	shutdownTimeout = 30 * time.Second
)

var ErrPipelineMustBeSet = errors.New("intrusion and restoration pipelines must be set")

// Config holds the dependencies of the server.
type Config struct {
	Intrusion    *pipeline.Pipeline
	Restoration  *pipeline.Pipeline
	Gatherer     prometheus.Gatherer
	Logger       *zap.Logger
	DefaultLevel string
	DefaultYears int
	Concurrency  int
}

// Server serves the intrusion and restoration pipelines.
type Server struct {
	echo        *echo.Echo
	intrusion   *pipeline.Pipeline
	restoration *pipeline.Pipeline
	logger      *zap.Logger
	level       string
	years       int
	concurrency int
}

// New creates the server and registers its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Intrusion == nil || cfg.Restoration == nil {
		return nil, ErrPipelineMustBeSet
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		echo:        echo.New(),
		intrusion:   cfg.Intrusion,
		restoration: cfg.Restoration,
		logger:      logger,
		level:       cfg.DefaultLevel,
		years:       cfg.DefaultYears,
		concurrency: max(cfg.Concurrency, 1),
	}

	if s.level == "" {
		s.level = restoration.LevelMedium
	}

	if s.years == 0 {
		s.years = 10
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}

			s.logger.Info("request", fields...)

			return nil
		},
	}))

	s.echo.GET("/healthz", s.health)

	if cfg.Gatherer != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	api := s.echo.Group("/api/v1")
	api.GET("/pipelines", s.listPipelines)
	api.POST("/intrusion/runs", s.runIntrusion)
	api.POST("/restoration/runs", s.runRestoration, middleware.BodyLimit("11M"))

	return s, nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)

	go func() {
		s.logger.Info("server starting", zap.String("addr", addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return errors.Wrap(err, "unable to serve")
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		return errors.Wrap(err, "unable to shutdown server")
	}

	return nil
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// PipelineDescription describes an assembled pipeline.
type PipelineDescription struct {
	Name  string           `json:"name"`
	Steps []model.StepInfo `json:"steps"`
}

func (s *Server) listPipelines(c echo.Context) error {
	return c.JSON(http.StatusOK, []PipelineDescription{
		{Name: s.intrusion.Name(), Steps: s.intrusion.Steps()},
		{Name: s.restoration.Name(), Steps: s.restoration.Steps()},
	})
}

// IntrusionRequest is the body of POST /api/v1/intrusion/runs. Either Alert or Alerts is set.
type IntrusionRequest struct {
	Alert  string   `json:"alert"`
	Alerts []string `json:"alerts"`
}

// BatchResponse holds the results of a batch, in request order.
type BatchResponse struct {
	Results []*model.Result `json:"results"`
}

func (s *Server) runIntrusion(c echo.Context) error {
	var req IntrusionRequest

	err := c.Bind(&req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}

	ctx := c.Request().Context()

	switch {
	case req.Alert != "" && len(req.Alerts) > 0:
		return echo.NewHTTPError(http.StatusBadRequest, "alert and alerts are mutually exclusive")
	case req.Alert != "":
		res, _ := s.intrusion.Run(ctx, intrusion.Seed(req.Alert))

		return c.JSON(statusOf(res), res)
	case len(req.Alerts) > 0:
		seeds := make([]map[string]any, len(req.Alerts))
		for i, alert := range req.Alerts {
			seeds[i] = intrusion.Seed(alert)
		}

		results, err := pipeline.RunAll(ctx, s.intrusion, seeds, s.concurrency)
		if err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}

		return c.JSON(http.StatusOK, BatchResponse{Results: results})
	}

	return echo.NewHTTPError(http.StatusBadRequest, "alert must be set")
}

func (s *Server) runRestoration(c echo.Context) error {
	fileHeader, err := c.FormFile(restoration.KeyImage)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "image file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unable to open image: "+err.Error())
	}
	defer file.Close()

	img, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unable to read image: "+err.Error())
	}

	if len(img) > maxImageSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "image is larger than 10MB")
	}

	level := s.level
	if v := c.FormValue("level"); v != "" {
		level = v
	}

	years := s.years
	if v := c.FormValue(restoration.KeyTimeSpan); v != "" {
		years, err = strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "time_span must be an integer")
		}
	}

	seed, err := restoration.Seed(img, level, years)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, _ := s.restoration.Run(c.Request().Context(), seed)

	return c.JSON(statusOf(res), res)
}

// statusOf maps a run result to an HTTP status. The result, partial state included,
// is always sent back.
func statusOf(res *model.Result) int {
	switch {
	case res.Completed():
		return http.StatusOK
	case errors.Is(res.Err, pipeline.ErrService):
		return http.StatusBadGateway
	case errors.Is(res.Err, context.Canceled), errors.Is(res.Err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
