package version

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/uvlhub/datahub/pkg/dataset"
	"github.com/uvlhub/datahub/pkg/semver"
)

// Response is the API representation of a version record. Kind-specific
// fields are present only for the matching kind.
type Response struct {
	ID            uint   `json:"id"`
	VersionNumber string `json:"version_number"`
	CreatedAt     string `json:"created_at"`
	Changelog     string `json:"changelog"`
	CreatedBy     string `json:"created_by"`
	Title         string `json:"title"`
	Description   string `json:"description"`

	TotalDistanceKm    *float64 `json:"total_distance_km,omitempty"`
	TotalElevationGain *float64 `json:"total_elevation_gain,omitempty"`
	TotalElevationLoss *float64 `json:"total_elevation_loss,omitempty"`
	TotalPoints        *int     `json:"total_points,omitempty"`
	TrackCount         *int     `json:"track_count,omitempty"`

	TotalFeatures    *int `json:"total_features,omitempty"`
	TotalConstraints *int `json:"total_constraints,omitempty"`
	ModelCount       *int `json:"model_count,omitempty"`
}

// ListResponse is the version history of one dataset.
type ListResponse struct {
	DatasetID    uint       `json:"dataset_id"`
	VersionCount int        `json:"version_count"`
	Versions     []Response `json:"versions"`
}

// listVersionsHandler returns a handler that lists a dataset's versions,
// newest first.
// GET /datasets/{datasetID}/versions
func listVersionsHandler(store *Store, datasets *dataset.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		datasetID, ok := uintParam(r, "datasetID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid dataset id")
			return
		}

		ds, err := datasets.Get(datasetID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load dataset: %v", err))
			return
		}
		if ds == nil {
			writeError(w, http.StatusNotFound, "dataset not found")
			return
		}

		records, err := store.ListByDataset(datasetID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list versions: %v", err))
			return
		}

		versions := make([]Response, len(records))
		for i, rec := range records {
			versions[i] = recordToResponse(rec)
		}
		writeJSON(w, http.StatusOK, ListResponse{
			DatasetID:    datasetID,
			VersionCount: len(versions),
			Versions:     versions,
		})
	}
}

// createVersionHandler returns a handler that snapshots the dataset's
// current state as a new version.
// POST /datasets/{datasetID}/versions
func createVersionHandler(svc *Service, datasets *dataset.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		datasetID, ok := uintParam(r, "datasetID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid dataset id")
			return
		}

		var req struct {
			Changelog string `json:"changelog"`
			Bump      string `json:"bump"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if req.Changelog == "" {
			writeError(w, http.StatusBadRequest, "changelog is required")
			return
		}

		ds, err := datasets.Get(datasetID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load dataset: %v", err))
			return
		}
		if ds == nil {
			writeError(w, http.StatusNotFound, "dataset not found")
			return
		}

		record, err := svc.Create(ds, req.Changelog, extractActor(r), semver.NormalizeBump(req.Bump))
		if err != nil {
			if errors.Is(err, semver.ErrInvalidVersion) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create version: %v", err))
			return
		}
		writeJSON(w, http.StatusCreated, recordToResponse(*record))
	}
}

// getVersionHandler returns a handler that fetches one version record.
// GET /versions/{id}
func getVersionHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uintParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid version id")
			return
		}

		record, err := store.Get(id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load version: %v", err))
			return
		}
		if record == nil {
			writeError(w, http.StatusNotFound, "version not found")
			return
		}
		writeJSON(w, http.StatusOK, recordToResponse(*record))
	}
}

// compareVersionsHandler returns a handler that diffs two versions of the
// same dataset.
// GET /versions/{id}/compare/{otherID}
func compareVersionsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok1 := uintParam(r, "id")
		otherID, ok2 := uintParam(r, "otherID")
		if !ok1 || !ok2 {
			writeError(w, http.StatusBadRequest, "invalid version id")
			return
		}

		cmp, err := svc.CompareByID(id, otherID)
		if err != nil {
			switch {
			case errors.Is(err, ErrNotFound):
				writeError(w, http.StatusNotFound, "version not found")
			case errors.Is(err, ErrCrossDataset):
				writeError(w, http.StatusBadRequest, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to compare versions: %v", err))
			}
			return
		}
		writeJSON(w, http.StatusOK, cmp)
	}
}

// recordToResponse converts a version record to its API shape.
func recordToResponse(rec Record) Response {
	resp := Response{
		ID:            rec.ID,
		VersionNumber: rec.VersionNumber,
		CreatedAt:     rec.CreatedAt.Format(time.RFC3339),
		Changelog:     rec.Changelog,
		CreatedBy:     rec.CreatedBy,
		Title:         rec.Title,
		Description:   rec.Description,
	}
	switch rec.Kind {
	case dataset.KindGPX:
		distanceKm := math.Round(rec.GPX.TotalDistance/10) / 100
		gain := math.Round(rec.GPX.TotalElevationGain)
		loss := math.Round(rec.GPX.TotalElevationLoss)
		points := rec.GPX.TotalPoints
		tracks := rec.GPX.TrackCount
		resp.TotalDistanceKm = &distanceKm
		resp.TotalElevationGain = &gain
		resp.TotalElevationLoss = &loss
		resp.TotalPoints = &points
		resp.TrackCount = &tracks
	case dataset.KindUVL:
		features := rec.UVL.TotalFeatures
		constraints := rec.UVL.TotalConstraints
		models := rec.UVL.ModelCount
		resp.TotalFeatures = &features
		resp.TotalConstraints = &constraints
		resp.ModelCount = &models
	}
	return resp
}

// extractActor reads the acting user from the X-User header. Authentication
// itself lives outside this service.
func extractActor(r *http.Request) string {
	if actor := r.Header.Get("X-User"); actor != "" {
		return actor
	}
	return "anonymous"
}

func uintParam(r *http.Request, name string) (uint, bool) {
	v, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(v), true
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
