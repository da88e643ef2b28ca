// Package server exposes the template cache and proposal computation to
// editors over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sst/templateassist/internal/assist"
	"github.com/sst/templateassist/internal/loader"
	"github.com/sst/templateassist/internal/templates"
	"github.com/sst/templateassist/pkg/app"
)

type Server struct {
	app  *app.App
	echo *echo.Echo
	addr string
	log  *slog.Logger
}

// ProposalsRequest is the body of POST /proposals.
type ProposalsRequest struct {
	app.ProposalRequest
	// Accept materializes only the proposal at this index.
	Accept *int `json:"accept,omitempty"`
	// Build materializes every proposal in the listing.
	Build bool `json:"build,omitempty"`
}

type ProposalsResponse struct {
	Proposals []app.Candidate  `json:"proposals,omitempty"`
	Proposal  *assist.Proposal `json:"proposal,omitempty"`
}

type WarmRequest struct {
	Root   string   `json:"root,omitempty"`
	Scopes []string `json:"scopes"`
}

func New(a *app.App, addr string) *Server {
	result := &Server{
		app:  a,
		echo: echo.New(),
		addr: addr,
		log:  slog.With("service", "server"),
	}
	result.echo.HideBanner = true
	result.echo.HidePort = true
	result.echo.HTTPErrorHandler = result.handleError

	result.echo.POST("/proposals", result.proposals)
	result.echo.GET("/cache", result.inventory)
	result.echo.POST("/cache", result.warm)
	result.echo.POST("/cache/reset", result.reset)
	result.echo.GET("/logs", result.logs)
	return result
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.log.Info("starting server", "addr", s.addr)
	go func() {
		<-ctx.Done()
		s.echo.Shutdown(context.Background())
	}()
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) proposals(c echo.Context) error {
	var req ProposalsRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	builders, err := s.app.Propose(c.Request().Context(), req.ProposalRequest)
	if err != nil {
		return err
	}
	if req.Accept != nil {
		p, err := app.Accept(builders, *req.Accept)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, ProposalsResponse{Proposal: &p})
	}
	return c.JSON(http.StatusOK, ProposalsResponse{Proposals: app.Candidates(builders, req.Build)})
}

func (s *Server) inventory(c echo.Context) error {
	return c.JSON(http.StatusOK, s.app.Inventory())
}

func (s *Server) warm(c echo.Context) error {
	var req WarmRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := s.app.Warm(c.Request().Context(), req.Root, req.Scopes); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.app.Inventory())
}

func (s *Server) reset(c echo.Context) error {
	s.app.Reset()
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) logs(c echo.Context) error {
	if s.app.Logs == nil {
		return echo.NewHTTPError(http.StatusNotFound, "log recording disabled")
	}
	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	return c.JSON(http.StatusOK, s.app.Logs.Recent(limit))
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	var httpErr *echo.HTTPError
	var invalidFile loader.ErrInvalidTemplateFile
	switch {
	case errors.As(err, &httpErr):
		code = httpErr.Code
	case errors.Is(err, app.ErrInvalidRequest):
		code = http.StatusBadRequest
	case errors.Is(err, app.ErrNoSuchProposal):
		code = http.StatusNotFound
	case errors.Is(err, templates.ErrMalformedTemplate), errors.As(err, &invalidFile):
		code = http.StatusUnprocessableEntity
	}
	if code >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", c.Path(), "error", err)
	}

	msg := err.Error()
	if httpErr != nil {
		if m, ok := httpErr.Message.(string); ok {
			msg = m
		}
	}
	if err := c.JSON(code, map[string]string{"error": msg}); err != nil {
		s.log.Warn("write error response", "error", err)
	}
}
