package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aouyang1/go-pricecast/cache"
	"github.com/aouyang1/go-pricecast/multistep"

	"github.com/creasty/defaults"
	"github.com/labstack/echo/v4"
)

type PredictRequest struct {
	Coin       string `json:"coin" validate:"required,alphanum"`
	TimePeriod *int   `json:"time_period" validate:"required,min=1"`
	// Carry overrides how non-target fields are filled while chaining
	Carry string `json:"carry" default:"hold" validate:"oneof=hold zero"`
}

type PredictResponse struct {
	Coin           string  `json:"coin"`
	TimePeriod     int     `json:"time_period"`
	PredictedPrice float64 `json:"predicted_price"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status"`
	// Snapshots maps each fitted coin to the version it was fit on
	Snapshots map[string]string `json:"snapshots"`
}

func (s *Server) predict(c echo.Context) error {
	req := new(PredictRequest)
	if err := c.Bind(req); err != nil {
		return err
	}
	if err := defaults.Set(req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	coin := strings.ToUpper(req.Coin)
	timePeriod := *req.TimePeriod
	if maxHorizon := s.opt.Forecast.MaxHorizon; maxHorizon > 0 && timePeriod > maxHorizon {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("time_period must be at most %d", maxHorizon))
	}
	carry, err := multistep.ParseCarry(req.Carry)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	version, err := s.registry.Version(coin)
	if err != nil {
		return err
	}
	entry, err := s.cache.Get(ctx, coin, cacheVersion(version, carry), timePeriod)
	switch {
	case err == nil:
		s.metrics.RecordCache(true)
		return c.JSON(http.StatusOK, PredictResponse{Coin: coin, TimePeriod: timePeriod, PredictedPrice: entry.PredictedPrice})
	case errors.Is(err, cache.ErrCacheMiss):
		s.metrics.RecordCache(false)
	default:
		slog.Warn("cache lookup failed", "coin", coin, "error", err)
		s.metrics.RecordError("cache")
	}

	snap, err := s.registry.Get(ctx, coin)
	if err != nil {
		return err
	}
	opt := *s.opt.Forecast
	opt.Carry = carry
	opt.Interval = snap.Interval
	points, err := multistep.Forecast(ctx, snap.Adapter, snap.Seed, multistep.Horizons{timePeriod}, &opt)
	if err != nil {
		return fmt.Errorf("unable to forecast %s, %w", coin, err)
	}
	price := points[0].Value

	err = s.cache.Set(ctx, &cache.Entry{
		Coin:           coin,
		TimePeriod:     timePeriod,
		PredictedPrice: price,
		Version:        cacheVersion(snap.Version, carry),
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		slog.Warn("unable to cache prediction", "coin", coin, "error", err)
		s.metrics.RecordError("cache")
	}
	s.metrics.RecordPrediction(coin, price)

	return c.JSON(http.StatusOK, PredictResponse{Coin: coin, TimePeriod: timePeriod, PredictedPrice: price})
}

func cacheVersion(version string, carry multistep.Carry) string {
	return version + ":" + carry.String()
}

func (s *Server) healthz(c echo.Context) error {
	res := HealthResponse{Status: "ok", Snapshots: make(map[string]string)}
	for _, coin := range s.opt.Coins {
		if snap := s.registry.Loaded(coin); snap != nil {
			res.Snapshots[coin] = snap.Version
		}
	}
	return c.JSON(http.StatusOK, res)
}

// handleError renders every error as {"message": ...}. Unknown coins are 404, bad horizons and
// request errors 400, everything else 500.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		code = he.Code
		msg = fmt.Sprint(he.Message)
	case errors.Is(err, ErrUnknownCoin):
		code = http.StatusNotFound
	case errors.Is(err, multistep.ErrInvalidHorizon), errors.Is(err, multistep.ErrHorizonTooLarge):
		code = http.StatusBadRequest
	}
	if code >= http.StatusInternalServerError {
		slog.Error("request failed", "path", c.Path(), "error", err)
		s.metrics.RecordError("internal")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, ErrorResponse{Message: msg})
	}
	if err != nil {
		slog.Error("unable to write error response", "error", err)
	}
}
