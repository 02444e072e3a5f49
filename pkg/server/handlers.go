package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/uvlhub/datahub/pkg/dataset"
)

// createDatasetRequest is the payload for dataset creation. File checksums
// may be omitted when a storage path is given; they are computed on ingest.
type createDatasetRequest struct {
	UserID   uint   `json:"user_id"`
	Kind     string `json:"kind"`
	Metadata struct {
		Title           string `json:"title"`
		Description     string `json:"description"`
		PublicationType string `json:"publication_type"`
		Tags            string `json:"tags"`
		Authors         []struct {
			Name        string `json:"name"`
			Affiliation string `json:"affiliation"`
			ORCID       string `json:"orcid"`
		} `json:"authors"`
	} `json:"metadata"`
	FeatureModels []struct {
		Files []struct {
			Name        string `json:"name"`
			Checksum    string `json:"checksum"`
			Size        int64  `json:"size"`
			StoragePath string `json:"storage_path"`
		} `json:"files"`
	} `json:"feature_models"`
}

type datasetResponse struct {
	ID              uint           `json:"id"`
	UserID          uint           `json:"user_id"`
	Kind            dataset.Kind   `json:"kind"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	PublicationType string         `json:"publication_type"`
	Tags            string         `json:"tags"`
	DOI             string         `json:"doi,omitempty"`
	Authors         []string       `json:"authors"`
	Files           []fileResponse `json:"files"`
}

type fileResponse struct {
	Name     string `json:"name"`
	Checksum string `json:"checksum"`
	Size     int64  `json:"size"`
}

func toDatasetResponse(ds *dataset.Dataset) datasetResponse {
	authors := make([]string, 0, len(ds.Metadata.Authors))
	for _, a := range ds.Metadata.Authors {
		authors = append(authors, a.Name)
	}
	files := make([]fileResponse, 0)
	for _, f := range ds.Files() {
		files = append(files, fileResponse{Name: f.Name, Checksum: f.Checksum, Size: f.Size})
	}
	return datasetResponse{
		ID:              ds.ID,
		UserID:          ds.UserID,
		Kind:            ds.Kind,
		Title:           ds.Metadata.Title,
		Description:     ds.Metadata.Description,
		PublicationType: ds.Metadata.PublicationType,
		Tags:            ds.Metadata.Tags,
		DOI:             ds.Metadata.DatasetDOI,
		Authors:         authors,
		Files:           files,
	}
}

// POST /datasets
func (s *Server) createDatasetHandler(w http.ResponseWriter, r *http.Request) {
	var req createDatasetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Metadata.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	meta := dataset.DSMetaData{
		Title:           req.Metadata.Title,
		Description:     req.Metadata.Description,
		PublicationType: req.Metadata.PublicationType,
		Tags:            req.Metadata.Tags,
	}
	for _, a := range req.Metadata.Authors {
		meta.Authors = append(meta.Authors, dataset.Author{
			Name:        a.Name,
			Affiliation: a.Affiliation,
			ORCID:       a.ORCID,
		})
	}

	ds := &dataset.Dataset{
		UserID:   req.UserID,
		Kind:     dataset.ParseKind(req.Kind),
		Metadata: meta,
	}
	for _, fm := range req.FeatureModels {
		model := dataset.FeatureModel{}
		for _, f := range fm.Files {
			file := dataset.HubFile{
				Name:        f.Name,
				Checksum:    f.Checksum,
				Size:        f.Size,
				StoragePath: f.StoragePath,
			}
			if file.Checksum == "" && file.StoragePath != "" {
				checksum, size, err := dataset.ChecksumAndSize(file.StoragePath)
				if err != nil {
					writeError(w, http.StatusBadRequest,
						fmt.Sprintf("cannot read file %s: %v", f.Name, err))
					return
				}
				file.Checksum = checksum
				file.Size = size
			}
			model.Files = append(model.Files, file)
		}
		ds.FeatureModels = append(ds.FeatureModels, model)
	}

	if err := s.datasets.Create(ds); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create dataset: %v", err))
		return
	}
	s.logger.Info("dataset created", "id", ds.ID, "kind", ds.Kind, "title", meta.Title)
	writeJSON(w, http.StatusCreated, toDatasetResponse(ds))
}

// GET /datasets
func (s *Server) listDatasetsHandler(w http.ResponseWriter, r *http.Request) {
	datasets, err := s.datasets.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list datasets: %v", err))
		return
	}
	out := make([]datasetResponse, 0, len(datasets))
	for i := range datasets {
		out = append(out, toDatasetResponse(&datasets[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /datasets/{datasetID}
func (s *Server) getDatasetHandler(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.loadDataset(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toDatasetResponse(ds))
}

// DELETE /datasets/{datasetID}
// Removes the dataset and its whole version history.
func (s *Server) deleteDatasetHandler(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.loadDataset(w, r)
	if !ok {
		return
	}
	if err := s.versions.Store().DeleteByDataset(ds.ID); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to delete versions: %v", err))
		return
	}
	if err := s.datasets.Delete(ds.ID); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to delete dataset: %v", err))
		return
	}
	s.logger.Info("dataset deleted", "id", ds.ID)
	w.WriteHeader(http.StatusNoContent)
}

// POST /datasets/{datasetID}/view
func (s *Server) recordViewHandler(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.loadDataset(w, r)
	if !ok {
		return
	}
	cookie, err := s.datasets.RecordView(ds.ID, nil, cookieValue(r, "view_cookie"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to record view: %v", err))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "view_cookie", Value: cookie, Path: "/"})
	writeJSON(w, http.StatusOK, map[string]string{"cookie": cookie})
}

// POST /datasets/{datasetID}/download
func (s *Server) recordDownloadHandler(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.loadDataset(w, r)
	if !ok {
		return
	}
	cookie, err := s.datasets.RecordDownload(ds.ID, nil, cookieValue(r, "download_cookie"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to record download: %v", err))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "download_cookie", Value: cookie, Path: "/"})
	writeJSON(w, http.StatusOK, map[string]string{"cookie": cookie})
}

func (s *Server) loadDataset(w http.ResponseWriter, r *http.Request) (*dataset.Dataset, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "datasetID"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dataset id")
		return nil, false
	}
	ds, err := s.datasets.Get(uint(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load dataset: %v", err))
		return nil, false
	}
	if ds == nil {
		writeError(w, http.StatusNotFound, "dataset not found")
		return nil, false
	}
	return ds, true
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
