package provision

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// StageRecord is one completed stage of one run. The ledger makes
// provisioning state explicit instead of re-deriving it purely from
// artifact probing: when an artifact exists but its recorded input hash
// differs from the current configuration, the orchestrator can say so.
type StageRecord struct {
	ID          uint `gorm:"primaryKey"`
	RunID       string
	RunLabel    string
	Stage       string `gorm:"index"`
	InputHash   string
	CompletedAt time.Time
}

// StateStore persists StageRecords in a sqlite database under the state
// directory.
type StateStore struct {
	db *gorm.DB
}

// OpenStateStore opens (and migrates) the ledger at path.
func OpenStateStore(path string) (*StateStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open state db %s: %w", path, err)
	}

	if err := db.AutoMigrate(&StageRecord{}); err != nil {
		return nil, fmt.Errorf("migrate state db: %w", err)
	}

	return &StateStore{db: db}, nil
}

// RecordStage appends a completion record for the stage.
func (s *StateStore) RecordStage(runID, runLabel, stage, inputHash string) error {
	record := StageRecord{
		RunID:       runID,
		RunLabel:    runLabel,
		Stage:       stage,
		InputHash:   inputHash,
		CompletedAt: time.Now(),
	}
	if err := s.db.Create(&record).Error; err != nil {
		return fmt.Errorf("record stage %s: %w", stage, err)
	}
	return nil
}

// LastRecord returns the most recent completion record for a stage, or nil
// when the stage never completed on this host.
func (s *StateStore) LastRecord(stage string) (*StageRecord, error) {
	var record StageRecord
	err := s.db.Where("stage = ?", stage).Order("id desc").First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load stage record %s: %w", stage, err)
	}
	return &record, nil
}

// Close releases the underlying database handle.
func (s *StateStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
