// Package server serves single-shot price predictions over HTTP. Each coin is served from a
// published model snapshot that is refit when the coin's price file changes.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aouyang1/go-pricecast/cache"
	"github.com/aouyang1/go-pricecast/metrics"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Server wires the snapshot registry, prediction cache and metrics behind an echo router
type Server struct {
	opt      *Options
	echo     *echo.Echo
	registry *Registry
	cache    cache.Cache
	metrics  *metrics.Recorder
}

// New builds the router. A nil cache disables caching and a nil recorder records onto a private
// registry.
func New(opt *Options, c cache.Cache, rec *metrics.Recorder) (*Server, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if c == nil {
		c = cache.Noop{}
	}
	if rec == nil {
		rec = metrics.New()
	}

	s := &Server{
		opt:      opt,
		registry: NewRegistry(opt, rec),
		cache:    c,
		metrics:  rec,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}
	e.Validator = newRequestValidator()
	e.HTTPErrorHandler = s.handleError
	e.Server.ReadTimeout = opt.ReadTimeout
	e.Server.WriteTimeout = opt.WriteTimeout

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(s.observe)

	e.POST("/predict", s.predict)
	e.GET("/healthz", s.healthz)
	if opt.MetricsPath != "" {
		e.GET(opt.MetricsPath, echo.WrapHandler(rec.Handler()))
	}

	s.echo = e
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Registry() *Registry {
	return s.registry
}

// Run serves until ctx is done and then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		slog.Info("serving predictions", "addr", s.opt.Addr, "model", s.opt.Kind, "coins", s.opt.Coins)
		errc <- s.echo.Start(s.opt.Addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opt.ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("unable to shut down server, %w", err)
	}
	slog.Info("server stopped")
	return nil
}
