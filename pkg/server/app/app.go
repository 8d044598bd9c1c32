// Package app owns the web server lifecycle: wiring the conversion service,
// run registry, and event hub into the router, then running the HTTP server
// until the context is cancelled.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aditya-xq/PicToWebP/pkg/config"
	"github.com/aditya-xq/PicToWebP/pkg/convexec"
	"github.com/aditya-xq/PicToWebP/pkg/notify"
	"github.com/aditya-xq/PicToWebP/pkg/runs"
	"github.com/aditya-xq/PicToWebP/pkg/server/api"
	"github.com/aditya-xq/PicToWebP/pkg/server/httpx"
)

// shutdownGrace bounds how long in-flight requests get to finish after a
// shutdown signal. Event streams are closed along with everything else.
const shutdownGrace = 10 * time.Second

// App is the assembled web front end.
type App struct {
	cfg    config.ServerConfig
	deps   *api.Deps
	server *http.Server
}

// New wires the full server: registry, event hub, conversion service, and
// router. An alternative runner can be injected for testing.
func New(cfg config.ServerConfig, convertCfg config.ConvertConfig, runner api.ConversionRunner) *App {
	registry := runs.NewStore()
	hub := notify.NewHub()

	if runner == nil {
		runner = convexec.NewService().
			WithRegistry(registry).
			WithSinkFactory(hub.Run)
	}

	deps := &api.Deps{
		Runner:   runner,
		Registry: registry,
		Hub:      hub,
		Defaults: convertCfg,
		Ready:    &atomic.Bool{},
	}

	router := httpx.NewRouter(cfg, deps)

	return &App{
		cfg:  cfg,
		deps: deps,
		server: &http.Server{
			Addr:         net.JoinHostPort(cfg.Addr, fmt.Sprintf("%d", cfg.Port)),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// listener fails. Shutdown is graceful within shutdownGrace.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("component", "server").
			Str("addr", a.server.Addr).
			Msg("web server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	a.deps.Ready.Store(true)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.deps.Ready.Store(false)
	log.Info().Str("component", "server").Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return <-errCh
}
