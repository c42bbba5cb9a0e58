package store

import (
	"context"

	"github.com/kirillslovesnov/tender-sync/internal/store/model"
	"gorm.io/gorm"
)

type SyncRun interface {
	Create(ctx context.Context, run *model.SyncRun) error
	List(ctx context.Context, limit int) ([]model.SyncRun, error)
	InitialMigration() error
}

type SyncRunStore struct {
	db *gorm.DB
}

// Make sure we conform to SyncRun interface
var _ SyncRun = (*SyncRunStore)(nil)

func NewSyncRunStore(db *gorm.DB) SyncRun {
	return &SyncRunStore{db: db}
}

func (s *SyncRunStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.SyncRun{}, &model.SyncFailure{})
}

func (s *SyncRunStore) Create(ctx context.Context, run *model.SyncRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *SyncRunStore) List(ctx context.Context, limit int) ([]model.SyncRun, error) {
	var runs []model.SyncRun
	result := s.db.WithContext(ctx).
		Preload("Failures").
		Order("started_at DESC").
		Limit(limit).
		Find(&runs)
	if result.Error != nil {
		return nil, result.Error
	}
	return runs, nil
}
