// Package server hosts the HTTP surface of the planning service.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/planweaver/internal/profile"
	apiv1 "github.com/hrygo/planweaver/server/router/api/v1"
)

// Server wraps the echo instance serving the v1 API.
type Server struct {
	profile *profile.Profile
	echo    *echo.Echo
}

// New builds the HTTP server and mounts the API routes.
func New(p *profile.Profile, api *apiv1.APIV1Service) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("http request",
				"method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))
	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: 30 * time.Second,
		Skipper: func(c echo.Context) bool {
			// Generation can legitimately run for minutes.
			return c.Path() == "/api/v1/plan/generate"
		},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(200, "ok")
	})

	api.RegisterRoutes(e)

	return &Server{profile: p, echo: e}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	slog.Info("http server listening", "addr", addr)
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
