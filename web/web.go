// Package web exposes the venue pipeline over HTTP: the search/list API,
// facet enumeration, the deduplicated image listing, and the provider-image
// proxy endpoint.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/machimap/machimap/distance"
	"github.com/machimap/machimap/geoloc"
	"github.com/machimap/machimap/pipeline"
	"github.com/machimap/machimap/search"
)

// Config wires the HTTP surface.
type Config struct {
	Addr     string
	Debug    bool
	Pipeline *pipeline.Pipeline

	// Events is the optional second collection; nil when no event dataset
	// is configured.
	Events       *pipeline.Pipeline
	Distances    *distance.Engine
	Session      *geoloc.Session
	Search       *search.Engine
	AllowedHosts []string
	Logger       *zap.Logger
}

// Start runs the HTTP server until ctx is cancelled.
func Start(ctx context.Context, cfg Config) error {
	e := echo.New()
	e.Debug = cfg.Debug
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	srv := newServer(cfg, &http.Client{Timeout: 20 * time.Second})

	RegisterHandlers(e, srv)

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = e.Shutdown(shutdownCtx)
	}()

	err := e.Start(cfg.Addr)
	if err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}
