package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uvlhub/datahub/pkg/dataset"
)

func TestCompare_MetadataAndFiles(t *testing.T) {
	older := &Record{
		DatasetID:   1,
		Title:       "Old title",
		Description: "Same description",
		FilesSnapshot: FilesSnapshot{
			"kept.uvl":    {ID: 1, Checksum: "c1", Size: 10},
			"changed.uvl": {ID: 2, Checksum: "c2", Size: 20},
			"removed.uvl": {ID: 3, Checksum: "c3", Size: 30},
		},
	}
	newer := &Record{
		DatasetID:   1,
		Title:       "New title",
		Description: "Same description",
		FilesSnapshot: FilesSnapshot{
			"kept.uvl":    {ID: 1, Checksum: "c1", Size: 10},
			"changed.uvl": {ID: 2, Checksum: "c2-bis", Size: 22},
			"added.uvl":   {ID: 4, Checksum: "c4", Size: 40},
		},
	}

	cmp, err := Compare(newer, older)
	require.NoError(t, err)

	assert.Equal(t, FieldChange{Old: "Old title", New: "New title"}, cmp.MetadataChanges["title"])
	assert.NotContains(t, cmp.MetadataChanges, "description")

	assert.Equal(t, []string{"added.uvl"}, cmp.FileChanges.Added)
	assert.Equal(t, []string{"removed.uvl"}, cmp.FileChanges.Removed)
	assert.Equal(t, []string{"changed.uvl"}, cmp.FileChanges.Modified)
}

func TestCompare_ModifiedOnIDChange(t *testing.T) {
	older := &Record{DatasetID: 1, FilesSnapshot: FilesSnapshot{"a.uvl": {ID: 1, Checksum: "same"}}}
	newer := &Record{DatasetID: 1, FilesSnapshot: FilesSnapshot{"a.uvl": {ID: 9, Checksum: "same"}}}

	cmp, err := Compare(newer, older)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.uvl"}, cmp.FileChanges.Modified)
}

func TestCompare_AddedRemovedInvertUnderReversal(t *testing.T) {
	v1 := &Record{DatasetID: 1, FilesSnapshot: FilesSnapshot{
		"a.uvl": {ID: 1}, "b.uvl": {ID: 2},
	}}
	v2 := &Record{DatasetID: 1, FilesSnapshot: FilesSnapshot{
		"b.uvl": {ID: 2}, "c.uvl": {ID: 3},
	}}

	forward, err := Compare(v2, v1)
	require.NoError(t, err)
	backward, err := Compare(v1, v2)
	require.NoError(t, err)

	assert.Equal(t, forward.FileChanges.Added, backward.FileChanges.Removed)
	assert.Equal(t, forward.FileChanges.Removed, backward.FileChanges.Added)
}

func TestCompare_CrossDatasetRejected(t *testing.T) {
	a := &Record{DatasetID: 1}
	b := &Record{DatasetID: 2}

	_, err := Compare(a, b)
	assert.ErrorIs(t, err, ErrCrossDataset)
}

func TestCompare_GPXStatistics(t *testing.T) {
	older := &Record{
		DatasetID: 1,
		Kind:      dataset.KindGPX,
		GPX: GPXMetrics{
			TotalDistance:      10000,
			TotalElevationGain: 120.4,
			TrackCount:         1,
		},
	}
	newer := &Record{
		DatasetID: 1,
		Kind:      dataset.KindGPX,
		GPX: GPXMetrics{
			TotalDistance:      12500,
			TotalElevationGain: 150.6,
			TrackCount:         2,
		},
	}

	cmp, err := Compare(newer, older)
	require.NoError(t, err)
	require.NotNil(t, cmp.GPXStatistics)

	assert.Equal(t, MetricDelta{Old: 10, New: 12.5, Diff: 2.5, Unit: "km"}, cmp.GPXStatistics["distance"])
	assert.Equal(t, MetricDelta{Old: 120, New: 151, Diff: 30, Unit: "m"}, cmp.GPXStatistics["elevation_gain"])
	assert.Equal(t, MetricDelta{Old: 1, New: 2, Diff: 1}, cmp.GPXStatistics["tracks"])
}

func TestCompare_GPXUnchangedMetricsOmitted(t *testing.T) {
	metrics := GPXMetrics{TotalDistance: 5000, TotalElevationGain: 80, TrackCount: 1}
	older := &Record{DatasetID: 1, Kind: dataset.KindGPX, GPX: metrics}
	newer := &Record{DatasetID: 1, Kind: dataset.KindGPX, GPX: metrics}

	cmp, err := Compare(newer, older)
	require.NoError(t, err)
	assert.Empty(t, cmp.GPXStatistics)
}

func TestCompare_UVLMetrics(t *testing.T) {
	older := &Record{
		DatasetID: 1,
		Kind:      dataset.KindUVL,
		UVL:       UVLMetrics{TotalFeatures: 10, TotalConstraints: 4},
	}
	newer := &Record{
		DatasetID: 1,
		Kind:      dataset.KindUVL,
		UVL:       UVLMetrics{TotalFeatures: 14, TotalConstraints: 4},
	}

	cmp, err := Compare(newer, older)
	require.NoError(t, err)
	assert.Equal(t, MetricDelta{Old: 10, New: 14, Diff: 4}, cmp.UVLMetrics["features"])
	assert.NotContains(t, cmp.UVLMetrics, "constraints")
}

func TestCompare_MixedKindsSkipExtendedDeltas(t *testing.T) {
	older := &Record{DatasetID: 1, Kind: dataset.KindBase}
	newer := &Record{DatasetID: 1, Kind: dataset.KindGPX, GPX: GPXMetrics{TotalDistance: 100}}

	cmp, err := Compare(newer, older)
	require.NoError(t, err)
	assert.Nil(t, cmp.GPXStatistics)
	assert.Nil(t, cmp.UVLMetrics)
}
