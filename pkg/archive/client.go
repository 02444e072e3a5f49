package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// DepositionInfo is the client-side view of a deposition as returned by the
// deposition API.
type DepositionInfo struct {
	ID           int            `json:"id"`
	ConceptRecID string         `json:"conceptrecid"`
	Metadata     map[string]any `json:"metadata"`
	State        State          `json:"state"`
	Version      int            `json:"version"`
	ConceptDOI   string         `json:"conceptdoi"`
	DOI          *string        `json:"doi"`
}

// Client talks to a deposition API (the mock service or a real Zenodo-style
// endpoint) over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the given base URL, e.g.
// "http://localhost:5001". A nil httpClient gets a 30 second timeout default.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any, wantStatus int) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, msg)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// CreateDeposition creates a new draft with the given metadata.
func (c *Client) CreateDeposition(ctx context.Context, metadata map[string]any) (DepositionInfo, error) {
	payload, err := json.Marshal(map[string]any{"metadata": metadata})
	if err != nil {
		return DepositionInfo{}, fmt.Errorf("encode metadata: %w", err)
	}
	var info DepositionInfo
	err = c.do(ctx, http.MethodPost, "/api/deposit/depositions",
		bytes.NewReader(payload), "application/json", &info, http.StatusCreated)
	return info, err
}

// GetDeposition fetches a deposition by id.
func (c *Client) GetDeposition(ctx context.Context, id int) (DepositionInfo, error) {
	var info DepositionInfo
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/deposit/depositions/%d", id),
		nil, "", &info, http.StatusOK)
	return info, err
}

// UpdateMetadata replaces a deposition's metadata.
func (c *Client) UpdateMetadata(ctx context.Context, id int, metadata map[string]any) (DepositionInfo, error) {
	payload, err := json.Marshal(map[string]any{"metadata": metadata})
	if err != nil {
		return DepositionInfo{}, fmt.Errorf("encode metadata: %w", err)
	}
	var info DepositionInfo
	err = c.do(ctx, http.MethodPut, fmt.Sprintf("/api/deposit/depositions/%d", id),
		bytes.NewReader(payload), "application/json", &info, http.StatusOK)
	return info, err
}

// UploadFile streams one file into a draft deposition.
func (c *Client) UploadFile(ctx context.Context, id int, name string, payload io.Reader) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("name", name); err != nil {
		return fmt.Errorf("encode upload: %w", err)
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("encode upload: %w", err)
	}
	if _, err := io.Copy(part, payload); err != nil {
		return fmt.Errorf("encode upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("encode upload: %w", err)
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/deposit/depositions/%d/files", id),
		&buf, mw.FormDataContentType(), nil, http.StatusCreated)
}

// Publish publishes a deposition and returns the published record, which is
// a forked deposition when the file set changed since the last publication.
func (c *Client) Publish(ctx context.Context, id int) (DepositionInfo, error) {
	var info DepositionInfo
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/deposit/depositions/%d/actions/publish", id),
		nil, "", &info, http.StatusAccepted)
	return info, err
}

// DeleteDeposition removes a deposition and its files.
func (c *Client) DeleteDeposition(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/deposit/depositions/%d", id),
		nil, "", nil, http.StatusNoContent)
}

// ListVersions returns all published and draft versions of a concept.
func (c *Client) ListVersions(ctx context.Context, conceptID string) ([]DepositionInfo, error) {
	var infos []DepositionInfo
	err := c.do(ctx, http.MethodGet, "/api/records/"+conceptID+"/versions",
		nil, "", &infos, http.StatusOK)
	return infos, err
}
