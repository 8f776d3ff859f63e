package domain

import (
	"errors"
	"time"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	// ErrAuth is the single credential failure kind: missing, undecryptable or unrefreshable tokens.
	ErrAuth = errors.New("auth error")
)

// Account is a connected mailbox.
type Account struct {
	ID              string     `json:"id" gorm:"primaryKey"`
	Email           string     `json:"email" gorm:"uniqueIndex;not null"`
	Name            string     `json:"name"`
	Role            string     `json:"role"`
	Provider        string     `json:"provider" gorm:"default:google"`
	AccessToken     string     `json:"-"` // sealed
	RefreshToken    string     `json:"-"` // sealed
	TokenExpiry     time.Time  `json:"-"`
	LastHistoryID   uint64     `json:"last_history_id" gorm:"default:0"`
	WatchExpiration *time.Time `json:"watch_expiration,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Settings are the per-account feature toggles and reply policy overrides.
type Settings struct {
	AccountID        string    `json:"account_id" gorm:"primaryKey"`
	AutoLabel        bool      `json:"auto_label"`
	AutoResponse     bool      `json:"auto_response"`
	CreateDraft      bool      `json:"create_draft"`
	ScheduleEvent    bool      `json:"schedule_event"`
	// GenerateReport is stored and served only; the pipeline never reads it.
	GenerateReport   bool      `json:"generate_report"`
	NeedsReplyLabels []string  `json:"needs_reply_labels,omitempty" gorm:"serializer:json"`
	AlwaysReplyRoles []string  `json:"always_reply_roles,omitempty" gorm:"serializer:json"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DefaultSettings is used for accounts that never saved settings.
func DefaultSettings(accountID string) *Settings {
	return &Settings{
		AccountID:     accountID,
		AutoLabel:     true,
		AutoResponse:  true,
		CreateDraft:   true,
		ScheduleEvent: true,
	}
}

// Label is one entry of the account's classification label set.
type Label struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	AccountID   string    `json:"account_id" gorm:"uniqueIndex:idx_label_account_name;not null"`
	Name        string    `json:"label_name" gorm:"uniqueIndex:idx_label_account_name;not null"`
	Description string    `json:"label_description"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
}
