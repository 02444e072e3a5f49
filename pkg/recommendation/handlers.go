package recommendation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type listResponse struct {
	DatasetID uint     `json:"dataset_id"`
	Related   []Scored `json:"related"`
}

// RegisterRoutes mounts the related-dataset endpoint onto an existing
// router.
func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/datasets/{datasetID}/related", relatedHandler(svc))
}

// NewRouter exposes related-dataset lookups under
// /datasets/{datasetID}/related.
func NewRouter(svc *Service) http.Handler {
	r := chi.NewRouter()
	RegisterRoutes(r, svc)
	return r
}

func relatedHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(chi.URLParam(r, "datasetID"), 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid dataset id")
			return
		}
		limit := 5
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit <= 0 || limit > 50 {
				writeError(w, http.StatusBadRequest, "limit must be between 1 and 50")
				return
			}
		}

		related, err := svc.Related(uint(id), limit)
		switch {
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "dataset not found")
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, "could not compute recommendations")
			return
		}
		writeJSON(w, http.StatusOK, listResponse{DatasetID: uint(id), Related: related})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
