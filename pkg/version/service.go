package version

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/uvlhub/datahub/pkg/dataset"
	"github.com/uvlhub/datahub/pkg/gpx"
	"github.com/uvlhub/datahub/pkg/semver"
	"github.com/uvlhub/datahub/pkg/uvl"
)

// ErrNotFound is returned when a referenced version does not exist.
var ErrNotFound = errors.New("version not found")

// Service orchestrates version creation and comparison.
type Service struct {
	store  *Store
	logger *slog.Logger
}

// NewService creates a Service. A nil logger falls back to slog.Default.
func NewService(store *Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Store exposes the underlying version store.
func (s *Service) Store() *Store { return s.store }

// Create captures the dataset's current state as a new immutable version:
// next semantic number, metadata copies, files snapshot and kind-specific
// metrics. Metric computation failures degrade to zero values; a missing
// version record is worse than a degraded metric.
func (s *Service) Create(ds *dataset.Dataset, changelog, actor string, bump semver.Bump) (*Record, error) {
	last, err := s.store.Latest(ds.ID)
	if err != nil {
		return nil, err
	}
	lastNumber := semver.Baseline
	if last != nil {
		lastNumber = last.VersionNumber
	}

	nextNumber, err := semver.Increment(lastNumber, bump)
	if err != nil {
		return nil, fmt.Errorf("increment version of dataset %d: %w", ds.ID, err)
	}

	record := &Record{
		DatasetID:     ds.ID,
		VersionNumber: nextNumber,
		Title:         ds.Metadata.Title,
		Description:   ds.Metadata.Description,
		FilesSnapshot: BuildSnapshot(ds.Files()),
		Changelog:     changelog,
		CreatedBy:     actor,
		Kind:          ds.Kind,
	}

	switch ds.Kind {
	case dataset.KindGPX:
		record.GPX = s.computeGPXMetrics(ds)
	case dataset.KindUVL:
		metrics, err := computeUVLMetrics(ds)
		if err != nil {
			// Degrade to zero-valued metrics, never abort version creation.
			s.logger.Warn("could not calculate UVL metrics, degrading to zero",
				"dataset", ds.ID, "error", err)
			metrics = UVLMetrics{}
		}
		record.UVL = metrics
	}

	if err := s.store.Create(record); err != nil {
		return nil, err
	}
	return record, nil
}

// computeGPXMetrics aggregates the statistics of every GPX file the dataset
// holds. Files that fail to parse are skipped with a warning; their
// contribution degrades to zero.
func (s *Service) computeGPXMetrics(ds *dataset.Dataset) GPXMetrics {
	var metrics GPXMetrics
	for _, f := range ds.Files() {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".gpx") {
			continue
		}
		metrics.TrackCount++
		stats, err := gpx.ParseFile(f.StoragePath)
		if err != nil {
			s.logger.Warn("could not parse GPX file, skipping its metrics",
				"dataset", ds.ID, "file", f.Name, "error", err)
			continue
		}
		metrics.TotalDistance += stats.Distance
		metrics.TotalElevationGain += stats.ElevationGain
		metrics.TotalElevationLoss += stats.ElevationLoss
		metrics.TotalPoints += stats.PointCount
	}
	return metrics
}

// computeUVLMetrics counts features and constraints across all UVL models.
func computeUVLMetrics(ds *dataset.Dataset) (UVLMetrics, error) {
	var metrics UVLMetrics
	metrics.ModelCount = len(ds.FeatureModels)
	for _, f := range ds.Files() {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".uvl") {
			continue
		}
		counts, err := uvl.CountFile(f.StoragePath)
		if err != nil {
			return UVLMetrics{}, fmt.Errorf("count uvl metrics for %s: %w", f.Name, err)
		}
		metrics.TotalFeatures += counts.Features
		metrics.TotalConstraints += counts.Constraints
	}
	return metrics, nil
}

// CompareByID loads two versions, orders them chronologically and returns
// the diff of the newer against the older. Versions of different datasets
// fail with ErrCrossDataset.
func (s *Service) CompareByID(id, otherID uint) (*Comparison, error) {
	a, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	b, err := s.store.Get(otherID)
	if err != nil {
		return nil, err
	}
	if a == nil || b == nil {
		return nil, ErrNotFound
	}

	newer, older := a, b
	if older.CreatedAt.After(newer.CreatedAt) ||
		(older.CreatedAt.Equal(newer.CreatedAt) && older.ID > newer.ID) {
		newer, older = older, newer
	}
	return Compare(newer, older)
}
