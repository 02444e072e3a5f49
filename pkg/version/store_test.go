package version

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/uvlhub/datahub/pkg/dataset"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(newTestDB(t))
	require.NoError(t, store.AutoMigrate())
	return store
}

func TestStore_CreateAndGet(t *testing.T) {
	store := newTestStore(t)

	record := &Record{
		DatasetID:     1,
		VersionNumber: "1.0.0",
		Title:         "First",
		FilesSnapshot: FilesSnapshot{"a.uvl": {ID: 1, Checksum: "c1", Size: 10}},
		Changelog:     "initial version",
		CreatedBy:     "alice",
		Kind:          dataset.KindUVL,
	}
	require.NoError(t, store.Create(record))
	require.NotZero(t, record.ID)

	got, err := store.Get(record.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "1.0.0", got.VersionNumber)
	assert.Equal(t, "alice", got.CreatedBy)
	assert.Equal(t, dataset.KindUVL, got.Kind)
	assert.Equal(t, FileEntry{ID: 1, Checksum: "c1", Size: 10}, got.FilesSnapshot["a.uvl"])

	// Not found.
	got, err = store.Get(9999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_LatestAndList(t *testing.T) {
	store := newTestStore(t)

	for _, number := range []string{"1.0.0", "1.0.1", "1.1.0"} {
		require.NoError(t, store.Create(&Record{DatasetID: 7, VersionNumber: number}))
	}
	// Another dataset's history must not interfere.
	require.NoError(t, store.Create(&Record{DatasetID: 8, VersionNumber: "2.0.0"}))

	latest, err := store.Latest(7)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "1.1.0", latest.VersionNumber)

	records, err := store.ListByDataset(7)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "1.1.0", records[0].VersionNumber)
	assert.Equal(t, "1.0.0", records[2].VersionNumber)

	count, err := store.CountByDataset(7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// No versions yet.
	latest, err = store.Latest(999)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestStore_UniqueVersionNumberPerDataset(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Create(&Record{DatasetID: 1, VersionNumber: "1.0.0"}))
	assert.Error(t, store.Create(&Record{DatasetID: 1, VersionNumber: "1.0.0"}))
	// Same number on another dataset is fine.
	assert.NoError(t, store.Create(&Record{DatasetID: 2, VersionNumber: "1.0.0"}))
}

func TestStore_DeleteByDataset(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Create(&Record{DatasetID: 1, VersionNumber: "1.0.0"}))
	require.NoError(t, store.Create(&Record{DatasetID: 1, VersionNumber: "1.0.1"}))
	require.NoError(t, store.Create(&Record{DatasetID: 2, VersionNumber: "1.0.0"}))

	require.NoError(t, store.DeleteByDataset(1))

	count, err := store.CountByDataset(1)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = store.CountByDataset(2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
