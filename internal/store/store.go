package store

import (
	"gorm.io/gorm"
)

type Store interface {
	SyncRun() SyncRun
	InitialMigration() error
	Close() error
}

type DataStore struct {
	db      *gorm.DB
	syncRun SyncRun
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db:      db,
		syncRun: NewSyncRunStore(db),
	}
}

func (s *DataStore) SyncRun() SyncRun {
	return s.syncRun
}

func (s *DataStore) InitialMigration() error {
	return s.syncRun.InitialMigration()
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
