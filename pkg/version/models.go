// Package version implements the dataset versioning core: immutable version
// records with file snapshots, semantic version numbering, kind-specific
// metrics and structured comparison between versions.
package version

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uvlhub/datahub/pkg/dataset"
)

// FileEntry identifies one file inside a snapshot.
type FileEntry struct {
	ID       uint   `json:"id"`
	Checksum string `json:"checksum"`
	Size     int64  `json:"size"`
}

// FilesSnapshot maps filename to file identity. Stored as a JSON text
// column; immutable once the owning record is created.
type FilesSnapshot map[string]FileEntry

// Scan implements the sql.Scanner interface for FilesSnapshot.
func (s *FilesSnapshot) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for FilesSnapshot: %T", value)
	}
	return json.Unmarshal(bytes, s)
}

// Value implements the driver.Valuer interface for FilesSnapshot.
func (s FilesSnapshot) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// GPXMetrics are the aggregate track statistics captured on GPX versions.
// Distances and elevations are meters.
type GPXMetrics struct {
	TotalDistance      float64 `gorm:"column:total_distance"`
	TotalElevationGain float64 `gorm:"column:total_elevation_gain"`
	TotalElevationLoss float64 `gorm:"column:total_elevation_loss"`
	TotalPoints        int     `gorm:"column:total_points"`
	TrackCount         int     `gorm:"column:track_count"`
}

// UVLMetrics are the feature-model statistics captured on UVL versions.
type UVLMetrics struct {
	TotalFeatures    int `gorm:"column:total_features"`
	TotalConstraints int `gorm:"column:total_constraints"`
	ModelCount       int `gorm:"column:model_count"`
}

// Record is one immutable dataset version. The original schema used joined
// per-kind tables; here a single table carries a kind discriminator plus the
// metric columns of both kinds, and the kind decides which set is
// meaningful.
type Record struct {
	ID            uint          `gorm:"primaryKey;column:id"`
	DatasetID     uint          `gorm:"column:dataset_id;index;uniqueIndex:idx_version_unique,priority:1;not null"`
	VersionNumber string        `gorm:"column:version_number;type:varchar(20);uniqueIndex:idx_version_unique,priority:2;not null"`
	CreatedAt     time.Time     `gorm:"column:created_at;autoCreateTime"`
	Title         string        `gorm:"column:title;type:varchar(200)"`
	Description   string        `gorm:"column:description;type:text"`
	FilesSnapshot FilesSnapshot `gorm:"column:files_snapshot;type:text"`
	Changelog     string        `gorm:"column:changelog;type:text"`
	CreatedBy     string        `gorm:"column:created_by;type:varchar(120)"`
	Kind          dataset.Kind  `gorm:"column:kind;type:varchar(32);default:base;not null"`

	GPX GPXMetrics `gorm:"embedded"`
	UVL UVLMetrics `gorm:"embedded"`
}

// TableName returns the GORM table name.
func (Record) TableName() string { return "dataset_versions" }
