package trending

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type listResponse struct {
	Metric  Metric  `json:"metric"`
	Period  Period  `json:"period"`
	Entries []Entry `json:"entries"`
}

// RegisterRoutes mounts the trending endpoint onto an existing router.
func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/explore/trending", trendingHandler(svc))
}

// NewRouter exposes the trending rankings under /explore/trending.
func NewRouter(svc *Service) http.Handler {
	r := chi.NewRouter()
	RegisterRoutes(r, svc)
	return r
}

func trendingHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		metric, err := ParseMetric(q.Get("metric"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		period, err := ParsePeriod(q.Get("period"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		limit := 10
		if raw := q.Get("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit <= 0 || limit > 100 {
				writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
				return
			}
		}

		entries, err := svc.Top(metric, period, limit)
		if err != nil {
			if errors.Is(err, ErrUnknownMetric) || errors.Is(err, ErrUnknownPeriod) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "could not compute trending datasets")
			return
		}
		writeJSON(w, http.StatusOK, listResponse{Metric: metric, Period: period, Entries: entries})
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
