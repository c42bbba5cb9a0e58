package model

import "time"

// SyncRun is the persisted record of one batch run.
type SyncRun struct {
	ID         uint `gorm:"primarykey"`
	StartedAt  time.Time
	FinishedAt time.Time

	Total      int
	Processed  int
	Written    int
	Filtered   int
	Duplicates int
	Failed     int

	// Fatal holds the run-fatal error when the batch ended before iterating.
	Fatal string

	Failures []SyncFailure `gorm:"constraint:OnDelete:CASCADE"`
}

// SyncFailure is one failed work item within a run.
type SyncFailure struct {
	ID        uint `gorm:"primarykey"`
	SyncRunID uint
	Number    string
	Reason    string
}
