package trending

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

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&dataset.Dataset{}, &dataset.DSMetaData{},
		&dataset.DSViewRecord{}, &dataset.DSDownloadRecord{},
	))

	svc := NewService(db)
	svc.now = func() time.Time { return testNow }
	return svc, db
}

func seedDataset(t *testing.T, db *gorm.DB, id uint, title, doi string) {
	t.Helper()
	require.NoError(t, db.Create(&dataset.Dataset{ID: id, UserID: 1}).Error)
	require.NoError(t, db.Create(&dataset.DSMetaData{
		DatasetID: id, Title: title, DatasetDOI: doi,
	}).Error)
}

func seedViews(t *testing.T, db *gorm.DB, datasetID uint, daysAgo int, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, db.Create(&dataset.DSViewRecord{
			DatasetID:  datasetID,
			ViewDate:   testNow.AddDate(0, 0, -daysAgo).Add(time.Hour),
			ViewCookie: "cookie",
		}).Error)
	}
}

func seedDownloads(t *testing.T, db *gorm.DB, datasetID uint, daysAgo int, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, db.Create(&dataset.DSDownloadRecord{
			DatasetID:      datasetID,
			DownloadDate:   testNow.AddDate(0, 0, -daysAgo).Add(time.Hour),
			DownloadCookie: "cookie",
		}).Error)
	}
}

func TestTop_ScoreRanking(t *testing.T) {
	svc, db := newTestService(t)
	seedDataset(t, db, 1, "First", "10.9999/fakenodo.aaa.v1")
	seedDataset(t, db, 2, "Second", "10.9999/fakenodo.bbb.v1")

	// score = 2*downloads + views over the window.
	seedDownloads(t, db, 1, 2, 3) // score 6
	seedViews(t, db, 2, 2, 10)    // score 10

	entries, err := svc.Top(MetricScore, PeriodWeek, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, uint(2), entries[0].DatasetID)
	assert.Equal(t, float64(10), entries[0].Score)
	assert.Equal(t, uint(1), entries[1].DatasetID)
	assert.Equal(t, float64(6), entries[1].Score)
}

func TestTop_OnlyDOIDatasetsRank(t *testing.T) {
	svc, db := newTestService(t)
	seedDataset(t, db, 1, "Published", "10.9999/fakenodo.aaa.v1")
	seedDataset(t, db, 2, "Draft", "")

	seedViews(t, db, 1, 1, 1)
	seedViews(t, db, 2, 1, 100)

	entries, err := svc.Top(MetricViews, PeriodWeek, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint(1), entries[0].DatasetID)
}

func TestTop_PeriodWindowing(t *testing.T) {
	svc, db := newTestService(t)
	seedDataset(t, db, 1, "Windowed", "10.9999/fakenodo.aaa.v1")

	seedViews(t, db, 1, 0, 2)  // today
	seedViews(t, db, 1, 5, 3)  // within week
	seedViews(t, db, 1, 20, 4) // within month only

	day, err := svc.Top(MetricViews, PeriodDay, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), day[0].Views)

	week, err := svc.Top(MetricViews, PeriodWeek, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(5), week[0].Views)

	month, err := svc.Top(MetricViews, PeriodMonth, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(9), month[0].Views)
}

func TestTop_ScoreV2BoostsRecentActivity(t *testing.T) {
	svc, db := newTestService(t)
	seedDataset(t, db, 1, "Steady", "10.9999/fakenodo.aaa.v1")
	seedDataset(t, db, 2, "Spiking", "10.9999/fakenodo.bbb.v1")

	// Steady: 4 downloads earlier in the week. score_v2 = 2*4 = 8.
	seedDownloads(t, db, 1, 5, 4)
	// Spiking: 2 downloads today. score_v2 = 3*2 + 2*2 = 10.
	seedDownloads(t, db, 2, 0, 2)

	entries, err := svc.Top(MetricScoreV2, PeriodWeek, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint(2), entries[0].DatasetID)
	assert.Equal(t, float64(10), entries[0].Score)
	assert.Equal(t, float64(8), entries[1].Score)
}

func TestTop_TiesBreakTowardLowerID(t *testing.T) {
	svc, db := newTestService(t)
	seedDataset(t, db, 3, "Later", "10.9999/fakenodo.ccc.v1")
	seedDataset(t, db, 1, "Earlier", "10.9999/fakenodo.aaa.v1")

	seedViews(t, db, 1, 1, 5)
	seedViews(t, db, 3, 1, 5)

	entries, err := svc.Top(MetricViews, PeriodWeek, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint(1), entries[0].DatasetID)
	assert.Equal(t, uint(3), entries[1].DatasetID)
}

func TestTop_CachesResults(t *testing.T) {
	svc, db := newTestService(t)
	seedDataset(t, db, 1, "Cached", "10.9999/fakenodo.aaa.v1")
	seedViews(t, db, 1, 1, 2)

	first, err := svc.Top(MetricViews, PeriodWeek, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), first[0].Views)

	// New events within the TTL are invisible.
	seedViews(t, db, 1, 1, 5)
	second, err := svc.Top(MetricViews, PeriodWeek, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second[0].Views)

	// A different limit is a different cache key and sees fresh data.
	third, err := svc.Top(MetricViews, PeriodWeek, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(7), third[0].Views)
}

func TestParseMetricAndPeriod(t *testing.T) {
	m, err := ParseMetric("")
	require.NoError(t, err)
	assert.Equal(t, MetricScore, m)

	_, err = ParseMetric("stars")
	assert.ErrorIs(t, err, ErrUnknownMetric)

	p, err := ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, PeriodWeek, p)

	_, err = ParsePeriod("year")
	assert.ErrorIs(t, err, ErrUnknownPeriod)
}

func TestTrendingHandler(t *testing.T) {
	svc, db := newTestService(t)
	seedDataset(t, db, 1, "Ranked", "10.9999/fakenodo.aaa.v1")
	seedDownloads(t, db, 1, 1, 2)

	srv := httptest.NewServer(NewRouter(svc))
	t.Cleanup(srv.Close)

	resp, err := srv.Client().Get(srv.URL + "/explore/trending?metric=score&period=week&limit=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body listResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, MetricScore, body.Metric)
	require.Len(t, body.Entries, 1)
	assert.Equal(t, "Ranked", body.Entries[0].Title)
	assert.Equal(t, float64(4), body.Entries[0].Score)

	bad, err := srv.Client().Get(srv.URL + "/explore/trending?metric=stars")
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}
