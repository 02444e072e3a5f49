package version

import (
	"errors"
	"fmt"
	"math"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/uvlhub/datahub/pkg/dataset"
)

// ErrCrossDataset is returned when comparing versions of different datasets.
var ErrCrossDataset = errors.New("versions must belong to the same dataset")

// FieldChange is a before/after pair for a metadata field.
type FieldChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// FileChanges describes how the file set changed from the older to the
// newer version.
type FileChanges struct {
	Added    []string `json:"added"`
	Removed  []string `json:"removed"`
	Modified []string `json:"modified"`
}

// MetricDelta is a before/after pair for a numeric metric, with the forward
// difference and an optional display unit.
type MetricDelta struct {
	Old  float64 `json:"old"`
	New  float64 `json:"new"`
	Diff float64 `json:"diff"`
	Unit string  `json:"unit,omitempty"`
}

// Comparison is the structured diff of two versions of the same dataset,
// always expressed as older → newer.
type Comparison struct {
	MetadataChanges map[string]FieldChange `json:"metadata_changes"`
	FileChanges     FileChanges            `json:"file_changes"`
	GPXStatistics   map[string]MetricDelta `json:"gpx_statistics,omitempty"`
	UVLMetrics      map[string]MetricDelta `json:"uvl_metrics,omitempty"`
}

// Compare computes the diff of newer against older. The caller is
// responsible for chronological order; Compare does not reorder. Comparing
// records of different datasets fails with ErrCrossDataset.
func Compare(newer, older *Record) (*Comparison, error) {
	if newer.DatasetID != older.DatasetID {
		return nil, fmt.Errorf("%w: %d vs %d", ErrCrossDataset, newer.DatasetID, older.DatasetID)
	}

	cmp := &Comparison{
		MetadataChanges: compareMetadata(newer, older),
		FileChanges:     compareFiles(newer, older),
	}

	// Kind-specific deltas only when both records carry the same extension.
	if newer.Kind == dataset.KindGPX && older.Kind == dataset.KindGPX {
		cmp.GPXStatistics = compareGPX(newer, older)
	}
	if newer.Kind == dataset.KindUVL && older.Kind == dataset.KindUVL {
		cmp.UVLMetrics = compareUVL(newer, older)
	}

	return cmp, nil
}

func compareMetadata(newer, older *Record) map[string]FieldChange {
	changes := make(map[string]FieldChange)
	if newer.Title != older.Title {
		changes["title"] = FieldChange{Old: older.Title, New: newer.Title}
	}
	if newer.Description != older.Description {
		changes["description"] = FieldChange{Old: older.Description, New: newer.Description}
	}
	return changes
}

func compareFiles(newer, older *Record) FileChanges {
	oldNames := mapset.NewSet[string]()
	for name := range older.FilesSnapshot {
		oldNames.Add(name)
	}
	newNames := mapset.NewSet[string]()
	for name := range newer.FilesSnapshot {
		newNames.Add(name)
	}

	added := newNames.Difference(oldNames).ToSlice()
	removed := oldNames.Difference(newNames).ToSlice()

	var modified []string
	for name := range newNames.Intersect(oldNames).Iter() {
		oldEntry := older.FilesSnapshot[name]
		newEntry := newer.FilesSnapshot[name]
		if oldEntry.Checksum != newEntry.Checksum || oldEntry.ID != newEntry.ID {
			modified = append(modified, name)
		}
	}

	sort.Strings(added)
	sort.Strings(removed)
	sort.Strings(modified)
	return FileChanges{Added: added, Removed: removed, Modified: modified}
}

func compareGPX(newer, older *Record) map[string]MetricDelta {
	changes := make(map[string]MetricDelta)

	if newer.GPX.TotalDistance != older.GPX.TotalDistance {
		changes["distance"] = MetricDelta{
			Old:  roundTo(older.GPX.TotalDistance/1000, 2),
			New:  roundTo(newer.GPX.TotalDistance/1000, 2),
			Diff: roundTo((newer.GPX.TotalDistance-older.GPX.TotalDistance)/1000, 2),
			Unit: "km",
		}
	}
	if newer.GPX.TotalElevationGain != older.GPX.TotalElevationGain {
		changes["elevation_gain"] = MetricDelta{
			Old:  math.Round(older.GPX.TotalElevationGain),
			New:  math.Round(newer.GPX.TotalElevationGain),
			Diff: math.Round(newer.GPX.TotalElevationGain - older.GPX.TotalElevationGain),
			Unit: "m",
		}
	}
	if newer.GPX.TrackCount != older.GPX.TrackCount {
		changes["tracks"] = MetricDelta{
			Old:  float64(older.GPX.TrackCount),
			New:  float64(newer.GPX.TrackCount),
			Diff: float64(newer.GPX.TrackCount - older.GPX.TrackCount),
		}
	}
	return changes
}

func compareUVL(newer, older *Record) map[string]MetricDelta {
	changes := make(map[string]MetricDelta)

	if newer.UVL.TotalFeatures != older.UVL.TotalFeatures {
		changes["features"] = MetricDelta{
			Old:  float64(older.UVL.TotalFeatures),
			New:  float64(newer.UVL.TotalFeatures),
			Diff: float64(newer.UVL.TotalFeatures - older.UVL.TotalFeatures),
		}
	}
	if newer.UVL.TotalConstraints != older.UVL.TotalConstraints {
		changes["constraints"] = MetricDelta{
			Old:  float64(older.UVL.TotalConstraints),
			New:  float64(newer.UVL.TotalConstraints),
			Diff: float64(newer.UVL.TotalConstraints - older.UVL.TotalConstraints),
		}
	}
	return changes
}

func roundTo(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}
