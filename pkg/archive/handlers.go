package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// depositionResponse is the wire shape of a deposition. Field names follow
// the Zenodo deposition API so clients written against the real service
// work against the mock unchanged.
type depositionResponse struct {
	ID           int               `json:"id"`
	ConceptRecID string            `json:"conceptrecid"`
	Created      string            `json:"created"`
	Modified     string            `json:"modified"`
	Metadata     map[string]any    `json:"metadata"`
	State        State             `json:"state"`
	Files        []fileResponse    `json:"files"`
	Version      int               `json:"version"`
	ConceptDOI   string            `json:"conceptdoi"`
	DOI          *string           `json:"doi"`
	Links        map[string]string `json:"links"`
}

type fileResponse struct {
	Filename string `json:"filename"`
	Filesize int64  `json:"filesize"`
}

func toResponse(dep Deposition) depositionResponse {
	files := make([]fileResponse, 0, len(dep.Files))
	for _, f := range dep.Files {
		files = append(files, fileResponse{Filename: f.Filename, Filesize: f.Size})
	}
	var doi *string
	if dep.DOI != "" {
		doi = &dep.DOI
	}
	return depositionResponse{
		ID:           dep.ID,
		ConceptRecID: dep.ConceptID,
		Created:      dep.Created.Format(time.RFC3339),
		Modified:     dep.Modified.Format(time.RFC3339),
		Metadata:     dep.Metadata,
		State:        dep.State,
		Files:        files,
		Version:      dep.Version,
		ConceptDOI:   dep.ConceptDOI,
		DOI:          doi,
		Links: map[string]string{
			"self": fmt.Sprintf("/api/deposit/depositions/%d", dep.ID),
		},
	}
}

// NewRouter mounts the deposition API onto a fresh chi router.
func NewRouter(reg *Registry, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	r.Route("/api/deposit/depositions", func(r chi.Router) {
		r.Post("/", createDepositionHandler(reg))
		r.Get("/", listDepositionsHandler(reg))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getDepositionHandler(reg))
			r.Put("/", updateDepositionHandler(reg))
			r.Patch("/", updateDepositionHandler(reg))
			r.Delete("/", deleteDepositionHandler(reg))
			r.Post("/files", uploadFileHandler(reg))
			r.Get("/files/{filename}", downloadFileHandler(reg, logger))
			r.Post("/actions/publish", publishDepositionHandler(reg))
		})
	})
	r.Get("/api/records/{conceptID}/versions", listConceptVersionsHandler(reg))

	return r
}

func createDepositionHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Metadata map[string]any `json:"metadata"`
		}
		if r.Body != nil {
			// An empty body is a valid way to create a bare draft.
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
				writeMessage(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
		}
		dep := reg.Create(body.Metadata)
		writeJSON(w, http.StatusCreated, toResponse(dep))
	}
}

func listDepositionsHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps := reg.List()
		out := make([]depositionResponse, 0, len(deps))
		for _, dep := range deps {
			out = append(out, toResponse(dep))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getDepositionHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		dep, err := reg.Get(id)
		if err != nil {
			writeMessage(w, http.StatusNotFound, "deposition not found")
			return
		}
		writeJSON(w, http.StatusOK, toResponse(dep))
	}
}

func updateDepositionHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		var body struct {
			Metadata map[string]any `json:"metadata"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		dep, err := reg.UpdateMetadata(id, body.Metadata)
		if err != nil {
			writeMessage(w, http.StatusNotFound, "deposition not found")
			return
		}
		writeJSON(w, http.StatusOK, toResponse(dep))
	}
}

func deleteDepositionHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		reg.Delete(id)
		w.WriteHeader(http.StatusNoContent)
	}
}

func uploadFileHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeMessage(w, http.StatusBadRequest, "missing file or name")
			return
		}
		name := r.FormValue("name")
		file, _, err := r.FormFile("file")
		if err != nil || name == "" {
			writeMessage(w, http.StatusBadRequest, "missing file or name")
			return
		}
		defer file.Close()

		ref, err := reg.UploadFile(id, file, name)
		switch {
		case errors.Is(err, ErrNotFound):
			writeMessage(w, http.StatusNotFound, "deposition not found")
			return
		case err != nil:
			writeMessage(w, http.StatusInternalServerError, "could not store file")
			return
		}
		writeJSON(w, http.StatusCreated, fileResponse{Filename: ref.Filename, Filesize: ref.Size})
	}
}

func downloadFileHandler(reg *Registry, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		filename := chi.URLParam(r, "filename")
		rc, err := reg.OpenFile(id, filename)
		if err != nil {
			writeMessage(w, http.StatusNotFound, "file not found")
			return
		}
		defer rc.Close()

		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		if _, err := io.Copy(w, rc); err != nil {
			logger.Warn("file download interrupted", "deposition", id, "file", filename, "error", err)
		}
	}
}

func publishDepositionHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		dep, err := reg.Publish(id)
		if err != nil {
			writeMessage(w, http.StatusNotFound, "deposition not found")
			return
		}
		writeJSON(w, http.StatusAccepted, toResponse(dep))
	}
}

func listConceptVersionsHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conceptID := chi.URLParam(r, "conceptID")
		deps := reg.ListVersions(conceptID)
		out := make([]depositionResponse, 0, len(deps))
		for _, dep := range deps {
			out = append(out, toResponse(dep))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func idParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusBadRequest, "invalid deposition id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
