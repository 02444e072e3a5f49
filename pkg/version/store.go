package version

import (
	"fmt"

	"gorm.io/gorm"
)

// Store provides CRUD operations for version records.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the dataset_versions table.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("auto-migrate dataset_versions: %w", err)
	}
	return nil
}

// Create inserts a new immutable version record inside a transaction.
func (s *Store) Create(record *Record) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(record).Error
	})
	if err != nil {
		return fmt.Errorf("create version: %w", err)
	}
	return nil
}

// Get retrieves a version record by id. Returns nil, nil if no record exists.
func (s *Store) Get(id uint) (*Record, error) {
	var record Record
	err := s.db.First(&record, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get version: %w", err)
	}
	return &record, nil
}

// Latest returns the newest version of a dataset, or nil, nil if the dataset
// has no versions yet.
func (s *Store) Latest(datasetID uint) (*Record, error) {
	var record Record
	err := s.db.Where("dataset_id = ?", datasetID).
		Order("created_at DESC, id DESC").
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("latest version: %w", err)
	}
	return &record, nil
}

// ListByDataset returns all versions of a dataset, newest first.
func (s *Store) ListByDataset(datasetID uint) ([]Record, error) {
	var records []Record
	err := s.db.Where("dataset_id = ?", datasetID).
		Order("created_at DESC, id DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return records, nil
}

// CountByDataset returns the number of versions a dataset has.
func (s *Store) CountByDataset(datasetID uint) (int64, error) {
	var count int64
	err := s.db.Model(&Record{}).Where("dataset_id = ?", datasetID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count versions: %w", err)
	}
	return count, nil
}

// DeleteByDataset removes all versions of a dataset. Used only when the
// owning dataset is deleted; history is otherwise append-only.
func (s *Store) DeleteByDataset(datasetID uint) error {
	if err := s.db.Where("dataset_id = ?", datasetID).Delete(&Record{}).Error; err != nil {
		return fmt.Errorf("delete versions of dataset %d: %w", datasetID, err)
	}
	return nil
}
