package server

import (
	"fmt"
	"net/http"
	"os"
)

// publishResponse reports the archive publication outcome.
type publishResponse struct {
	DatasetID    uint   `json:"dataset_id"`
	DepositionID int    `json:"deposition_id"`
	DOI          string `json:"doi"`
	ConceptDOI   string `json:"conceptdoi"`
	Version      int    `json:"version"`
}

// POST /datasets/{datasetID}/publish
//
// Pushes the dataset to the archive service: creates a deposition on first
// publish, re-uploads the current file set otherwise, then publishes. The
// archive mints the DOI and forks a new deposition when the files changed;
// either way the dataset metadata is updated with the resulting DOI and
// deposition id.
func (s *Server) publishDatasetHandler(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "archive service not configured")
		return
	}
	ds, ok := s.loadDataset(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	depositionID := ds.Metadata.DepositionID
	if depositionID == 0 {
		metadata := map[string]any{
			"title":       ds.Metadata.Title,
			"description": ds.Metadata.Description,
			"upload_type": "dataset",
		}
		if ds.Metadata.Tags != "" {
			metadata["keywords"] = ds.Metadata.Tags
		}
		var authors []string
		for _, a := range ds.Metadata.Authors {
			authors = append(authors, a.Name)
		}
		if len(authors) > 0 {
			metadata["creators"] = authors
		}

		info, err := s.archive.CreateDeposition(ctx, metadata)
		if err != nil {
			writeError(w, http.StatusBadGateway, fmt.Sprintf("archive deposition failed: %v", err))
			return
		}
		depositionID = info.ID
	}

	for _, file := range ds.Files() {
		f, err := os.Open(file.StoragePath)
		if err != nil {
			writeError(w, http.StatusInternalServerError,
				fmt.Sprintf("cannot read dataset file %s: %v", file.Name, err))
			return
		}
		err = s.archive.UploadFile(ctx, depositionID, file.Name, f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadGateway, fmt.Sprintf("archive upload failed: %v", err))
			return
		}
	}

	published, err := s.archive.Publish(ctx, depositionID)
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("archive publish failed: %v", err))
		return
	}

	doi := ""
	if published.DOI != nil {
		doi = *published.DOI
	}
	updates := map[string]any{
		"dataset_doi":   doi,
		"deposition_id": published.ID,
	}
	if err := s.datasets.UpdateMetadata(ds.ID, updates); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store DOI: %v", err))
		return
	}

	s.logger.Info("dataset published to archive",
		"dataset", ds.ID, "deposition", published.ID, "doi", doi, "version", published.Version)
	writeJSON(w, http.StatusAccepted, publishResponse{
		DatasetID:    ds.ID,
		DepositionID: published.ID,
		DOI:          doi,
		ConceptDOI:   published.ConceptDOI,
		Version:      published.Version,
	})
}
