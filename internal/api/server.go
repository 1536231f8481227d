package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bakkerme/experiments-refresh/internal/core"
	"github.com/bakkerme/experiments-refresh/internal/runner"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// StateStore is the part of the persisted state the API exposes.
type StateStore interface {
	Snapshot(ctx context.Context) (core.FetchState, error)
	SetPreviewModeEnabled(ctx context.Context, enabled bool) error
}

type Server struct {
	logger  *slog.Logger
	checker runner.Checker
	store   StateStore
	refresh core.RefreshConfig
	echo    *echo.Echo
}

type stateResponse struct {
	core.FetchState
	ThresholdMillis int64 `json:"threshold_ms"`
}

type previewRequest struct {
	Enabled *bool `json:"enabled"`
}

type maybeFetchRequest struct {
	NowMillis *int64 `json:"now_ms"`
}

type maybeFetchResponse struct {
	Decision core.Decision `json:"decision"`
	Fetched  bool          `json:"fetched"`
	CheckID  string        `json:"check_id"`
	Error    string        `json:"error,omitempty"`
}

func NewServer(logger *slog.Logger, checker runner.Checker, store StateStore, refresh core.RefreshConfig) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	server := &Server{
		logger:  logger,
		checker: checker,
		store:   store,
		refresh: refresh,
		echo:    e,
	}
	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/state", s.handleGetState)
	api.PUT("/preview", s.handleSetPreview)
	api.POST("/maybe-fetch", s.handleMaybeFetch)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(addr string) error {
	s.logger.Info("api listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "experiments-refresh",
	})
}

func (s *Server) handleGetState(c echo.Context) error {
	state, err := s.store.Snapshot(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("read state: %v", err))
	}
	return c.JSON(http.StatusOK, stateResponse{FetchState: state, ThresholdMillis: s.refresh.Threshold()})
}

func (s *Server) handleSetPreview(c echo.Context) error {
	var req previewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json body")
	}
	if req.Enabled == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "enabled is required")
	}
	ctx := c.Request().Context()
	if err := s.store.SetPreviewModeEnabled(ctx, *req.Enabled); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("write preview mode: %v", err))
	}
	s.logger.Info("preview mode changed", "enabled", *req.Enabled)
	return s.handleGetState(c)
}

func (s *Server) handleMaybeFetch(c echo.Context) error {
	var req maybeFetchRequest
	if err := c.Bind(&req); err != nil && !errors.Is(err, io.EOF) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json body")
	}

	checkID := fmt.Sprintf("check-%d", time.Now().UnixNano())
	ctx := core.WithCheckID(c.Request().Context(), checkID)
	ctx = core.WithLogger(ctx, s.logger)

	decision, err := s.checker.MaybeFetch(ctx, s.refresh, req.NowMillis)
	resp := maybeFetchResponse{
		Decision: decision,
		Fetched:  decision.Fetched(),
		CheckID:  checkID,
	}
	if err != nil {
		// The body still says whether the trigger fired before the failure.
		resp.Error = err.Error()
		return c.JSON(http.StatusInternalServerError, resp)
	}
	return c.JSON(http.StatusOK, resp)
}
