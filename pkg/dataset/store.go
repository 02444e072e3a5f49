package dataset

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store provides CRUD operations for datasets and their file hierarchy.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the dataset tables.
func (s *Store) AutoMigrate() error {
	err := s.db.AutoMigrate(
		&Dataset{},
		&DSMetaData{},
		&Author{},
		&FeatureModel{},
		&HubFile{},
		&DSViewRecord{},
		&DSDownloadRecord{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate dataset tables: %w", err)
	}
	return nil
}

// Create inserts a dataset together with its metadata, feature models and
// files in a single transaction.
func (s *Store) Create(ds *Dataset) error {
	if err := s.db.Create(ds).Error; err != nil {
		return fmt.Errorf("create dataset: %w", err)
	}
	return nil
}

// Get retrieves a dataset with metadata, authors and files preloaded.
// Returns nil, nil if no record exists.
func (s *Store) Get(id uint) (*Dataset, error) {
	var ds Dataset
	err := s.db.
		Preload("Metadata.Authors").
		Preload("Metadata").
		Preload("FeatureModels.Files").
		Preload("FeatureModels").
		First(&ds, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get dataset: %w", err)
	}
	return &ds, nil
}

// List returns all datasets with metadata preloaded, newest first.
func (s *Store) List() ([]Dataset, error) {
	var datasets []Dataset
	err := s.db.
		Preload("Metadata.Authors").
		Preload("Metadata").
		Preload("FeatureModels.Files").
		Preload("FeatureModels").
		Order("created_at DESC").
		Find(&datasets).Error
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	return datasets, nil
}

// Delete removes a dataset and everything hanging off it: metadata, authors,
// feature models, files and view/download records. Version records are owned
// by the version store; callers cascade those separately.
func (s *Store) Delete(id uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var fmIDs []uint
		if err := tx.Model(&FeatureModel{}).Where("dataset_id = ?", id).Pluck("id", &fmIDs).Error; err != nil {
			return err
		}
		if len(fmIDs) > 0 {
			if err := tx.Where("feature_model_id IN ?", fmIDs).Delete(&HubFile{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("dataset_id = ?", id).Delete(&FeatureModel{}).Error; err != nil {
			return err
		}

		var metaIDs []uint
		if err := tx.Model(&DSMetaData{}).Where("dataset_id = ?", id).Pluck("id", &metaIDs).Error; err != nil {
			return err
		}
		if len(metaIDs) > 0 {
			if err := tx.Where("metadata_id IN ?", metaIDs).Delete(&Author{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("dataset_id = ?", id).Delete(&DSMetaData{}).Error; err != nil {
			return err
		}

		if err := tx.Where("dataset_id = ?", id).Delete(&DSViewRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("dataset_id = ?", id).Delete(&DSDownloadRecord{}).Error; err != nil {
			return err
		}

		return tx.Delete(&Dataset{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("delete dataset %d: %w", id, err)
	}
	return nil
}

// UpdateMetadata applies field updates to a dataset's metadata record.
func (s *Store) UpdateMetadata(datasetID uint, updates map[string]any) error {
	err := s.db.Model(&DSMetaData{}).Where("dataset_id = ?", datasetID).Updates(updates).Error
	if err != nil {
		return fmt.Errorf("update dataset %d metadata: %w", datasetID, err)
	}
	return nil
}

// RecordView appends an anonymous view event and returns the cookie used,
// so callers can hand it back to the client.
func (s *Store) RecordView(datasetID uint, userID *uint, cookie string) (string, error) {
	if cookie == "" {
		cookie = uuid.New().String()
	}
	rec := &DSViewRecord{
		UserID:     userID,
		DatasetID:  datasetID,
		ViewDate:   time.Now().UTC(),
		ViewCookie: cookie,
	}
	if err := s.db.Create(rec).Error; err != nil {
		return "", fmt.Errorf("record view: %w", err)
	}
	return cookie, nil
}

// RecordDownload appends a download event.
func (s *Store) RecordDownload(datasetID uint, userID *uint, cookie string) (string, error) {
	if cookie == "" {
		cookie = uuid.New().String()
	}
	rec := &DSDownloadRecord{
		UserID:         userID,
		DatasetID:      datasetID,
		DownloadDate:   time.Now().UTC(),
		DownloadCookie: cookie,
	}
	if err := s.db.Create(rec).Error; err != nil {
		return "", fmt.Errorf("record download: %w", err)
	}
	return cookie, nil
}

// CountDownloads returns the total download count per dataset id.
func (s *Store) CountDownloads() (map[uint]int64, error) {
	type row struct {
		DatasetID uint
		Count     int64
	}
	var rows []row
	err := s.db.Model(&DSDownloadRecord{}).
		Select("dataset_id, count(id) as count").
		Group("dataset_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count downloads: %w", err)
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.DatasetID] = r.Count
	}
	return counts, nil
}
