package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"trend-radar/internal/model"
	"trend-radar/internal/profile"
)

type profileRequest struct {
	Name                 string   `json:"name" validate:"required,max=200"`
	Industry             string   `json:"industry" validate:"omitempty,max=200"`
	InnovationPriorities []string `json:"innovationPriorities" validate:"max=25,dive,max=200"`
	BusinessChallenges   []string `json:"businessChallenges" validate:"max=25,dive,max=200"`
	TeamExpertise        []string `json:"teamExpertise" validate:"max=50,dive,max=100"`
	Budget               string   `json:"budget" validate:"omitempty,max=32"`
	Timeline             string   `json:"timeline" validate:"omitempty,max=32"`
}

func (s *Server) getProfile(c echo.Context) error {
	if s.profiles == nil {
		return c.JSON(http.StatusServiceUnavailable, envelope{Error: "profile store not configured"})
	}
	p, err := s.profiles.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, profile.ErrNotFound) {
		return c.JSON(http.StatusNotFound, envelope{Error: "profile not found"})
	}
	if err != nil {
		slog.Error("api: get profile", "id", c.Param("id"), "err", err)
		return c.JSON(http.StatusInternalServerError, envelope{Error: "profile lookup failed"})
	}
	return c.JSON(http.StatusOK, envelope{Success: true, Data: p})
}

func (s *Server) putProfile(c echo.Context) error {
	if s.profiles == nil {
		return c.JSON(http.StatusServiceUnavailable, envelope{Error: "profile store not configured"})
	}
	id := strings.TrimSpace(c.Param("id"))
	var req profileRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid profile body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, validationMessage(err))
	}
	p := &model.CompanyProfile{
		ID:                   id,
		Name:                 strings.TrimSpace(req.Name),
		Industry:             strings.TrimSpace(req.Industry),
		InnovationPriorities: compact(req.InnovationPriorities),
		BusinessChallenges:   compact(req.BusinessChallenges),
		TeamExpertise:        compact(req.TeamExpertise),
		Budget:               strings.TrimSpace(req.Budget),
		Timeline:             strings.TrimSpace(req.Timeline),
	}
	if err := s.profiles.Upsert(c.Request().Context(), p); err != nil {
		slog.Error("api: upsert profile", "id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, envelope{Error: "profile save failed"})
	}
	return c.JSON(http.StatusOK, envelope{Success: true, Data: p})
}

// compact trims entries and drops empty ones.
func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
