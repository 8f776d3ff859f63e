package domain

import "time"

type FinanceKind string

const (
	FinanceExpense FinanceKind = "expense"
	FinanceIncome  FinanceKind = "income"
)

// FinanceRecord is extracted from expense/income mail. One per message.
type FinanceRecord struct {
	ID        string      `json:"id" gorm:"primaryKey"`
	AccountID string      `json:"account_id" gorm:"uniqueIndex:idx_finance_account_message;not null"`
	MessageID string      `json:"message_id" gorm:"uniqueIndex:idx_finance_account_message;not null"`
	Kind      FinanceKind `json:"type" gorm:"not null"`
	Amount    *float64    `json:"amount"`
	Currency  *string     `json:"currency"`
	Date      *string     `json:"date"`
	Vendor    *string     `json:"vendor"`
	Category  *string     `json:"category"`
	Notes     *string     `json:"notes"`
	CreatedAt time.Time   `json:"created_at"`
}

// ReplyDraft is a generated reply. One per message.
type ReplyDraft struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	AccountID       string    `json:"account_id" gorm:"uniqueIndex:idx_draft_account_message;not null"`
	MessageID       string    `json:"message_id" gorm:"uniqueIndex:idx_draft_account_message;not null"`
	Body            string    `json:"body" gorm:"not null"`
	ProviderDraftID string    `json:"provider_draft_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Priority represents event priority level
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// CalendarEvent is an event extracted from a message. One per message.
type CalendarEvent struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	AccountID   string    `json:"account_id" gorm:"uniqueIndex:idx_event_account_message;not null"`
	MessageID   string    `json:"message_id" gorm:"uniqueIndex:idx_event_account_message;not null"`
	Title       string    `json:"title" gorm:"not null"`
	Start       *string   `json:"start"`
	End         *string   `json:"end"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	Priority    Priority  `json:"priority" gorm:"default:medium"`
	Usability   float64   `json:"usability"`
	CreatedAt   time.Time `json:"created_at"`
}
