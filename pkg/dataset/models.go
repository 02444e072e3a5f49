// Package dataset holds the dataset domain model: a dataset of a given kind
// (UVL feature models, GPX tracks, or plain files) with metadata and files
// grouped into feature models, plus the view/download event records consumed
// by the trending queries.
package dataset

import (
	"time"
)

// Kind discriminates dataset behavior. It replaces the original single-table
// inheritance hierarchy: one record type plus a kind tag dispatched on in
// the services.
type Kind string

const (
	KindBase Kind = "base"
	KindUVL  Kind = "uvl"
	KindGPX  Kind = "gpx"
)

// ParseKind maps an arbitrary string to a known Kind, falling back to base.
func ParseKind(s string) Kind {
	switch Kind(s) {
	case KindUVL, KindGPX:
		return Kind(s)
	default:
		return KindBase
	}
}

// Dataset is the root record. The versioning core treats it as read-only:
// version creation snapshots its state but never mutates it.
type Dataset struct {
	ID        uint      `gorm:"primaryKey;column:id"`
	UserID    uint      `gorm:"column:user_id;index;not null"`
	Kind      Kind      `gorm:"column:kind;type:varchar(32);index;default:base;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`

	Metadata      DSMetaData     `gorm:"foreignKey:DatasetID"`
	FeatureModels []FeatureModel `gorm:"foreignKey:DatasetID"`
}

// TableName returns the GORM table name.
func (Dataset) TableName() string { return "datasets" }

// Files flattens the dataset's feature models into a single file list,
// preserving insertion order.
func (d *Dataset) Files() []HubFile {
	var files []HubFile
	for _, fm := range d.FeatureModels {
		files = append(files, fm.Files...)
	}
	return files
}

// DSMetaData carries the dataset's descriptive metadata. The DOI and
// deposition id are set once the dataset has been published to the archive.
type DSMetaData struct {
	ID              uint   `gorm:"primaryKey;column:id"`
	DatasetID       uint   `gorm:"column:dataset_id;uniqueIndex;not null"`
	Title           string `gorm:"column:title;type:varchar(200);not null"`
	Description     string `gorm:"column:description;type:text"`
	PublicationType string `gorm:"column:publication_type;type:varchar(64);default:none"`
	PublicationDOI  string `gorm:"column:publication_doi;type:varchar(120)"`
	DatasetDOI      string `gorm:"column:dataset_doi;type:varchar(120);index"`
	DepositionID    int    `gorm:"column:deposition_id"`
	Tags            string `gorm:"column:tags;type:varchar(200)"`

	Authors []Author `gorm:"foreignKey:MetadataID"`
}

// TableName returns the GORM table name.
func (DSMetaData) TableName() string { return "ds_meta_data" }

// Author of a dataset. ORCID is optional.
type Author struct {
	ID          uint   `gorm:"primaryKey;column:id"`
	MetadataID  uint   `gorm:"column:metadata_id;index;not null"`
	Name        string `gorm:"column:name;type:varchar(120);not null"`
	Affiliation string `gorm:"column:affiliation;type:varchar(120)"`
	ORCID       string `gorm:"column:orcid;type:varchar(120)"`
}

// TableName returns the GORM table name.
func (Author) TableName() string { return "authors" }

// FeatureModel groups the files uploaded together. For GPX datasets each
// "feature model" is a single track upload; the name is historical.
type FeatureModel struct {
	ID        uint      `gorm:"primaryKey;column:id"`
	DatasetID uint      `gorm:"column:dataset_id;index;not null"`
	Files     []HubFile `gorm:"foreignKey:FeatureModelID"`
}

// TableName returns the GORM table name.
func (FeatureModel) TableName() string { return "feature_models" }

// HubFile is one stored file belonging to a feature model.
type HubFile struct {
	ID             uint   `gorm:"primaryKey;column:id"`
	FeatureModelID uint   `gorm:"column:feature_model_id;index;not null"`
	Name           string `gorm:"column:name;type:varchar(255);not null"`
	Checksum       string `gorm:"column:checksum;type:varchar(64);not null"`
	Size           int64  `gorm:"column:size;not null"`
	StoragePath    string `gorm:"column:storage_path;type:varchar(512)"`
}

// TableName returns the GORM table name.
func (HubFile) TableName() string { return "hub_files" }

// DSViewRecord is one anonymous dataset page view.
type DSViewRecord struct {
	ID         uint      `gorm:"primaryKey;column:id"`
	UserID     *uint     `gorm:"column:user_id"`
	DatasetID  uint      `gorm:"column:dataset_id;index;not null"`
	ViewDate   time.Time `gorm:"column:view_date;index;not null"`
	ViewCookie string    `gorm:"column:view_cookie;type:varchar(36);not null"`
}

// TableName returns the GORM table name.
func (DSViewRecord) TableName() string { return "ds_view_records" }

// DSDownloadRecord is one dataset download.
type DSDownloadRecord struct {
	ID             uint      `gorm:"primaryKey;column:id"`
	UserID         *uint     `gorm:"column:user_id"`
	DatasetID      uint      `gorm:"column:dataset_id;index;not null"`
	DownloadDate   time.Time `gorm:"column:download_date;index;not null"`
	DownloadCookie string    `gorm:"column:download_cookie;type:varchar(36);not null"`
}

// TableName returns the GORM table name.
func (DSDownloadRecord) TableName() string { return "ds_download_records" }
