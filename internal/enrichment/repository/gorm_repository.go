package repository

import (
	"context"
	"time"

	"github.com/Alok-Gaur/mail-management-agent/internal/enrichment/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// insertOnce runs INSERT ... ON CONFLICT DO NOTHING and reports whether a row was written.
func insertOnce(ctx context.Context, db *gorm.DB, value interface{}) (bool, error) {
	result := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(value)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

type gormFinanceRepository struct {
	db *gorm.DB
}

func NewGormFinanceRepository(db *gorm.DB) FinanceRepository {
	return &gormFinanceRepository{db: db}
}

func (r *gormFinanceRepository) Save(ctx context.Context, record *domain.FinanceRecord) (bool, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.CreatedAt = time.Now()
	return insertOnce(ctx, r.db, record)
}

func (r *gormFinanceRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*domain.FinanceRecord, error) {
	var records []*domain.FinanceRecord
	query := r.db.WithContext(ctx).Where("account_id = ?", accountID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

type gormDraftRepository struct {
	db *gorm.DB
}

func NewGormDraftRepository(db *gorm.DB) DraftRepository {
	return &gormDraftRepository{db: db}
}

func (r *gormDraftRepository) Save(ctx context.Context, draft *domain.ReplyDraft) (bool, error) {
	if draft.ID == "" {
		draft.ID = uuid.New().String()
	}
	draft.CreatedAt = time.Now()
	return insertOnce(ctx, r.db, draft)
}

func (r *gormDraftRepository) FindByMessage(ctx context.Context, accountID, messageID string) (*domain.ReplyDraft, error) {
	var draft domain.ReplyDraft
	err := r.db.WithContext(ctx).Where("account_id = ? AND message_id = ?", accountID, messageID).First(&draft).Error
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

func (r *gormDraftRepository) SetProviderDraftID(ctx context.Context, id, providerDraftID string) error {
	return r.db.WithContext(ctx).Model(&domain.ReplyDraft{}).Where("id = ?", id).
		Update("provider_draft_id", providerDraftID).Error
}

type gormEventRepository struct {
	db *gorm.DB
}

func NewGormEventRepository(db *gorm.DB) EventRepository {
	return &gormEventRepository{db: db}
}

func (r *gormEventRepository) Save(ctx context.Context, event *domain.CalendarEvent) (bool, error) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Priority == "" {
		event.Priority = domain.PriorityMedium
	}
	event.CreatedAt = time.Now()
	return insertOnce(ctx, r.db, event)
}

func (r *gormEventRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*domain.CalendarEvent, error) {
	var events []*domain.CalendarEvent
	query := r.db.WithContext(ctx).Where("account_id = ?", accountID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
