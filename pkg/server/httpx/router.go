// Package httpx assembles the HTTP router: health checks, the versioned
// API, and the embedded single-page front end.
package httpx

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/aditya-xq/PicToWebP/pkg/config"
	"github.com/aditya-xq/PicToWebP/pkg/server/api"
	v1 "github.com/aditya-xq/PicToWebP/pkg/server/api/v1"
)

//go:embed index.html
var indexPage []byte

// NewRouter builds the full router for the web front end.
func NewRouter(cfg config.ServerConfig, deps *api.Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", HealthzHandler)
	r.Get("/readyz", ReadyzHandler(deps))

	r.Get("/", IndexHandler)
	r.Mount("/api/v1", v1.Routes(deps))

	log.Info().
		Str("component", "httpx.router").
		Str("addr", cfg.Addr).
		Int("port", cfg.Port).
		Msg("router assembled")

	return r
}

// HealthzHandler reports process liveness. Always returns 200 OK.
func HealthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// ReadyzHandler reports readiness to accept conversion requests.
func ReadyzHandler(deps *api.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Ready == nil || !deps.Ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("starting"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// IndexHandler serves the embedded conversion form.
func IndexHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexPage)
}
