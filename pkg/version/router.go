package version

import (
	"github.com/go-chi/chi/v5"

	"github.com/uvlhub/datahub/pkg/dataset"
)

// RegisterRoutes mounts the versioning API onto an existing router.
func RegisterRoutes(r chi.Router, svc *Service, datasets *dataset.Store) {
	r.Route("/datasets/{datasetID}/versions", func(r chi.Router) {
		r.Get("/", listVersionsHandler(svc.Store(), datasets))
		r.Post("/", createVersionHandler(svc, datasets))
	})

	r.Route("/versions/{id}", func(r chi.Router) {
		r.Get("/", getVersionHandler(svc.Store()))
		r.Get("/compare/{otherID}", compareVersionsHandler(svc))
	})
}

// NewRouter creates a chi router with the versioning API routes.
func NewRouter(svc *Service, datasets *dataset.Store) chi.Router {
	r := chi.NewRouter()
	RegisterRoutes(r, svc, datasets)
	return r
}
