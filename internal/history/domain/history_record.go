package domain

import (
	"errors"
	"time"
)

var (
	// ErrDuplicate is returned when (account, cursor) was already recorded.
	ErrDuplicate = errors.New("history cursor already recorded")
	// ErrStorage wraps any failure of the underlying store.
	ErrStorage = errors.New("history storage unavailable")
)

// Source tells how a cursor reached the system.
type Source string

const (
	SourceHook   Source = "hook"
	SourceManual Source = "manual"
)

// HistoryRecord marks that a change cursor was observed for an account.
// Rows are append-only.
type HistoryRecord struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	AccountID    string    `json:"account_id" gorm:"uniqueIndex:idx_history_account_cursor;not null"`
	ChangeCursor uint64    `json:"change_cursor" gorm:"uniqueIndex:idx_history_account_cursor;not null"`
	Source       Source    `json:"source" gorm:"not null"`
	RecordedAt   time.Time `json:"recorded_at"`
}
