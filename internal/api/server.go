// Package api serves the trend pipeline over HTTP with echo.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trend-radar/internal/model"
	"trend-radar/internal/trend"
)

// Pipeline is the subset of trend.Pipeline the handlers call.
type Pipeline interface {
	Generate(ctx context.Context, profile *model.CompanyProfile) trend.Result
	Aggregate(ctx context.Context, profile *model.CompanyProfile) (trend.Result, error)
	Discover(ctx context.Context, topic string, count int) ([]string, error)
	ScrapeURL(ctx context.Context, topic, pageURL string, profile *model.CompanyProfile) trend.Result
	ScrapeDiscovered(ctx context.Context, topic string, urls []string, profile *model.CompanyProfile, onProgress func(trend.Progress)) (trend.Result, error)
}

// ProfileStore is implemented by profile.Store. A nil store disables the
// profile routes and profileId lookups.
type ProfileStore interface {
	Get(ctx context.Context, id string) (*model.CompanyProfile, error)
	Upsert(ctx context.Context, p *model.CompanyProfile) error
}

// Server owns the echo instance and its handlers.
type Server struct {
	e        *echo.Echo
	pipeline Pipeline
	profiles ProfileStore
}

type requestValidator struct {
	v *validator.Validate
}

func (rv *requestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}

func newValidator() *requestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
	return &requestValidator{v: v}
}

// New builds the server and registers routes.
func New(p Pipeline, profiles ProfileStore) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newValidator()

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/healthz" || c.Request().URL.Path == "/metrics"
		},
		LogStatus:    true,
		LogURI:       true,
		LogError:     true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error == nil {
				slog.Info("api: request", "id", v.RequestID, "method", v.Method, "uri", v.URI,
					"status", v.Status, "latency_ms", v.Latency.Milliseconds())
				return nil
			}
			slog.Error("api: request failed", "id", v.RequestID, "method", v.Method, "uri", v.URI,
				"status", v.Status, "latency_ms", v.Latency.Milliseconds(), "err", v.Error)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	s := &Server{e: e, pipeline: p, profiles: profiles}
	e.GET("/healthz", s.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/trends", s.getTrends)
	e.GET("/profiles/:id", s.getProfile)
	e.PUT("/profiles/:id", s.putProfile)
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	slog.Info("api: listening", "addr", addr)
	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// envelope is the response shape of every /trends and /profiles call.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, envelope{Success: false, Error: msg})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fe.Field()+": must satisfy "+fe.Tag()+"="+fe.Param())
			continue
		}
		parts = append(parts, fe.Field()+": must satisfy "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}
