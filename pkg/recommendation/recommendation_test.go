package recommendation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/uvlhub/datahub/pkg/dataset"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *dataset.Store) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	store := dataset.NewStore(db)
	require.NoError(t, store.AutoMigrate())

	svc := NewService(store)
	svc.now = func() time.Time { return testNow }
	return svc, store
}

func seed(t *testing.T, store *dataset.Store, id uint, title, tags string, authors []string, age time.Duration) {
	t.Helper()
	var authorRecords []dataset.Author
	for _, name := range authors {
		authorRecords = append(authorRecords, dataset.Author{Name: name})
	}
	ds := &dataset.Dataset{
		ID:        id,
		UserID:    1,
		CreatedAt: testNow.Add(-age),
		Metadata: dataset.DSMetaData{
			Title:   title,
			Tags:    tags,
			Authors: authorRecords,
		},
	}
	require.NoError(t, store.Create(ds))
}

func TestRelated_AuthorOverlapDominates(t *testing.T) {
	svc, store := newTestService(t)
	old := 300 * 24 * time.Hour

	seed(t, store, 1, "Anchor", "uvl,spl", []string{"Alice", "Bob"}, old)
	seed(t, store, 2, "Shared author", "", []string{"Alice"}, old)
	seed(t, store, 3, "Shared tag", "uvl", nil, old)

	related, err := svc.Related(1, 5)
	require.NoError(t, err)
	require.Len(t, related, 2)

	// One shared author (3.0) outranks one shared tag (2.0).
	assert.Equal(t, uint(2), related[0].DatasetID)
	assert.Equal(t, 3.0, related[0].Score)
	assert.Equal(t, uint(3), related[1].DatasetID)
	assert.Equal(t, 2.0, related[1].Score)
}

func TestRelated_CaseInsensitiveMatching(t *testing.T) {
	svc, store := newTestService(t)
	old := 300 * 24 * time.Hour

	seed(t, store, 1, "Anchor", "UVL, SPL", []string{"Alice Smith"}, old)
	seed(t, store, 2, "Other", "uvl,spl", []string{"alice smith"}, old)

	related, err := svc.Related(1, 5)
	require.NoError(t, err)
	require.Len(t, related, 1)
	// 1 author * 3 + 2 tags * 2.
	assert.Equal(t, 7.0, related[0].Score)
}

func TestRelated_DownloadsBreakTies(t *testing.T) {
	svc, store := newTestService(t)
	old := 300 * 24 * time.Hour

	seed(t, store, 1, "Anchor", "uvl", nil, old)
	seed(t, store, 2, "Quiet", "uvl", nil, old)
	seed(t, store, 3, "Popular", "uvl", nil, old)

	for i := 0; i < 4; i++ {
		_, err := store.RecordDownload(3, nil, "")
		require.NoError(t, err)
	}
	_, err := store.RecordDownload(2, nil, "")
	require.NoError(t, err)

	related, err := svc.Related(1, 5)
	require.NoError(t, err)
	require.Len(t, related, 2)

	// Popular has the max downloads, normalized to 1.0; Quiet gets 0.25.
	assert.Equal(t, uint(3), related[0].DatasetID)
	assert.Equal(t, 3.0, related[0].Score)
	assert.Equal(t, 2.25, related[1].Score)
}

func TestRelated_RecencyDecaysLinearly(t *testing.T) {
	svc, store := newTestService(t)

	seed(t, store, 1, "Anchor", "uvl", nil, 300*24*time.Hour)
	seed(t, store, 2, "Fresh", "uvl", nil, 0)
	seed(t, store, 3, "Half window", "uvl", nil, 90*24*time.Hour)
	seed(t, store, 4, "Expired", "uvl", nil, 181*24*time.Hour)

	related, err := svc.Related(1, 5)
	require.NoError(t, err)
	require.Len(t, related, 3)

	// Shared tag contributes 2.0; the rest is the recency term.
	assert.Equal(t, uint(2), related[0].DatasetID)
	assert.InDelta(t, 3.0, related[0].Score, 0.001)
	assert.Equal(t, uint(3), related[1].DatasetID)
	assert.InDelta(t, 2.5, related[1].Score, 0.001)
	assert.Equal(t, uint(4), related[2].DatasetID)
	assert.InDelta(t, 2.0, related[2].Score, 0.001)
}

func TestRelated_ExcludesNonOverlappingCandidates(t *testing.T) {
	svc, store := newTestService(t)

	seed(t, store, 1, "Anchor", "uvl", []string{"Alice"}, 300*24*time.Hour)
	// Fresh and popular, but shares neither an author nor a tag.
	seed(t, store, 2, "Totally unrelated", "gpx", []string{"Mallory"}, 24*time.Hour)
	for i := 0; i < 5; i++ {
		_, err := store.RecordDownload(2, nil, "")
		require.NoError(t, err)
	}

	related, err := svc.Related(1, 5)
	require.NoError(t, err)
	assert.Empty(t, related)
}

func TestRelated_AnchorWithoutAuthorsOrTags(t *testing.T) {
	svc, store := newTestService(t)

	seed(t, store, 1, "Anchor", "", nil, 0)
	seed(t, store, 2, "Candidate", "uvl", []string{"Alice"}, 0)

	related, err := svc.Related(1, 5)
	require.NoError(t, err)
	assert.Empty(t, related)
}

func TestRelated_ExcludesAnchorAndHonorsLimit(t *testing.T) {
	svc, store := newTestService(t)
	old := 300 * 24 * time.Hour

	seed(t, store, 1, "Anchor", "uvl", nil, old)
	for id := uint(2); id <= 10; id++ {
		seed(t, store, id, "Candidate", "uvl", nil, old)
	}

	related, err := svc.Related(1, 3)
	require.NoError(t, err)
	require.Len(t, related, 3)
	for _, r := range related {
		assert.NotEqual(t, uint(1), r.DatasetID)
	}
	// Equal scores: lowest ids win.
	assert.Equal(t, uint(2), related[0].DatasetID)
	assert.Equal(t, uint(3), related[1].DatasetID)
	assert.Equal(t, uint(4), related[2].DatasetID)
}

func TestRelated_UnknownDataset(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Related(42, 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRelatedHandler(t *testing.T) {
	svc, store := newTestService(t)
	old := 300 * 24 * time.Hour
	seed(t, store, 1, "Anchor", "gpx", []string{"Alice"}, old)
	seed(t, store, 2, "Match", "gpx", []string{"Alice"}, old)

	srv := httptest.NewServer(NewRouter(svc))
	t.Cleanup(srv.Close)

	resp, err := srv.Client().Get(srv.URL + "/datasets/1/related?limit=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body listResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, uint(1), body.DatasetID)
	require.Len(t, body.Related, 1)
	assert.Equal(t, "Match", body.Related[0].Title)
	assert.Equal(t, 5.0, body.Related[0].Score)

	missing, err := srv.Client().Get(srv.URL + "/datasets/99/related")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}
