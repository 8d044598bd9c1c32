package v1

import (
	"github.com/go-chi/chi/v5"

	"github.com/aditya-xq/PicToWebP/pkg/server/api"
)

// Routes returns the versioned API router.
func Routes(deps *api.Deps) chi.Router {
	r := chi.NewRouter()

	r.Route("/conversions", func(r chi.Router) {
		r.Post("/", StartConversionHandler(deps))
		r.Get("/", ListConversionsHandler(deps))
		r.Get("/{id}", GetConversionHandler(deps))
		r.Get("/{id}/events", ConversionEventsHandler(deps))
	})

	return r
}
