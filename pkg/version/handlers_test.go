package version

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uvlhub/datahub/pkg/dataset"
)

func newTestServer(t *testing.T) (*httptest.Server, *dataset.Store) {
	t.Helper()
	db := newTestDB(t)

	datasets := dataset.NewStore(db)
	require.NoError(t, datasets.AutoMigrate())

	store := NewStore(db)
	require.NoError(t, store.AutoMigrate())

	svc := NewService(store, nil)
	srv := httptest.NewServer(NewRouter(svc, datasets))
	t.Cleanup(srv.Close)
	return srv, datasets
}

func createTestDataset(t *testing.T, datasets *dataset.Store) *dataset.Dataset {
	t.Helper()
	ds := &dataset.Dataset{
		UserID: 1,
		Kind:   dataset.KindBase,
		Metadata: dataset.DSMetaData{
			Title:       "API test dataset",
			Description: "versioned over HTTP",
		},
		FeatureModels: []dataset.FeatureModel{
			{Files: []dataset.HubFile{{Name: "data.csv", Checksum: "c1", Size: 128}}},
		},
	}
	require.NoError(t, datasets.Create(ds))
	return ds
}

func postVersion(t *testing.T, srv *httptest.Server, datasetID string, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/datasets/"+datasetID+"/versions", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("X-User", "alice")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func TestVersionAPI_CreateAndList(t *testing.T) {
	srv, datasets := newTestServer(t)
	ds := createTestDataset(t, datasets)

	resp := postVersion(t, srv, "1", `{"changelog":"initial","bump":"patch"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "1.0.0", created.VersionNumber)
	assert.Equal(t, "alice", created.CreatedBy)
	assert.Equal(t, "API test dataset", created.Title)

	listResp, err := srv.Client().Get(srv.URL + "/datasets/1/versions")
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var list ListResponse
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
	assert.Equal(t, ds.ID, list.DatasetID)
	assert.Equal(t, 1, list.VersionCount)
	require.Len(t, list.Versions, 1)
	assert.Equal(t, "1.0.0", list.Versions[0].VersionNumber)
}

func TestVersionAPI_ChangelogRequired(t *testing.T) {
	srv, datasets := newTestServer(t)
	createTestDataset(t, datasets)

	resp := postVersion(t, srv, "1", `{"bump":"patch"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestVersionAPI_UnknownBumpFallsBackToPatch(t *testing.T) {
	srv, datasets := newTestServer(t)
	createTestDataset(t, datasets)

	resp := postVersion(t, srv, "1", `{"changelog":"one","bump":"patch"}`)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postVersion(t, srv, "1", `{"changelog":"two","bump":"rewrite"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "1.0.1", created.VersionNumber)
}

func TestVersionAPI_DatasetNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postVersion(t, srv, "999", `{"changelog":"x"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	listResp, err := srv.Client().Get(srv.URL + "/datasets/999/versions")
	require.NoError(t, err)
	defer listResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, listResp.StatusCode)
}

func TestVersionAPI_GetAndCompare(t *testing.T) {
	srv, datasets := newTestServer(t)
	createTestDataset(t, datasets)

	resp := postVersion(t, srv, "1", `{"changelog":"first"}`)
	var v1 Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v1))
	resp.Body.Close()

	require.NoError(t, datasets.UpdateMetadata(1, map[string]any{"title": "Renamed dataset"}))

	resp = postVersion(t, srv, "1", `{"changelog":"second"}`)
	var v2 Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v2))
	resp.Body.Close()

	getResp, err := srv.Client().Get(srv.URL + "/versions/" + itoa(v1.ID))
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	cmpResp, err := srv.Client().Get(srv.URL + "/versions/" + itoa(v2.ID) + "/compare/" + itoa(v1.ID))
	require.NoError(t, err)
	defer cmpResp.Body.Close()
	require.Equal(t, http.StatusOK, cmpResp.StatusCode)

	var cmp Comparison
	require.NoError(t, json.NewDecoder(cmpResp.Body).Decode(&cmp))
	assert.Equal(t, "Renamed dataset", cmp.MetadataChanges["title"].New)
}

func TestVersionAPI_CrossDatasetCompareRejected(t *testing.T) {
	srv, datasets := newTestServer(t)
	createTestDataset(t, datasets)
	createTestDataset(t, datasets)

	resp := postVersion(t, srv, "1", `{"changelog":"a"}`)
	var v1 Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v1))
	resp.Body.Close()

	resp = postVersion(t, srv, "2", `{"changelog":"b"}`)
	var v2 Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v2))
	resp.Body.Close()

	cmpResp, err := srv.Client().Get(srv.URL + "/versions/" + itoa(v1.ID) + "/compare/" + itoa(v2.ID))
	require.NoError(t, err)
	defer cmpResp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, cmpResp.StatusCode)
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
