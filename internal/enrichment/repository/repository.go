package repository

import (
	"context"

	"github.com/Alok-Gaur/mail-management-agent/internal/enrichment/domain"
)

// FinanceRepository stores extracted finance records
type FinanceRepository interface {
	// Save inserts the record unless one exists for (account, message). Reports whether it inserted.
	Save(ctx context.Context, record *domain.FinanceRecord) (bool, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*domain.FinanceRecord, error)
}

// DraftRepository stores generated reply drafts
type DraftRepository interface {
	Save(ctx context.Context, draft *domain.ReplyDraft) (bool, error)
	FindByMessage(ctx context.Context, accountID, messageID string) (*domain.ReplyDraft, error)
	SetProviderDraftID(ctx context.Context, id, providerDraftID string) error
}

// EventRepository stores extracted calendar events
type EventRepository interface {
	Save(ctx context.Context, event *domain.CalendarEvent) (bool, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*domain.CalendarEvent, error)
}
