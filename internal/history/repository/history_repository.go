package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Alok-Gaur/mail-management-agent/internal/history/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type HistoryRepository interface {
	HasSeen(ctx context.Context, accountID string, cursor uint64) (bool, error)
	Record(ctx context.Context, accountID string, cursor uint64, source domain.Source) (*domain.HistoryRecord, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*domain.HistoryRecord, error)
}

type historyRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db, now: time.Now}
}

func (r *historyRepository) HasSeen(ctx context.Context, accountID string, cursor uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.HistoryRecord{}).
		Where("account_id = ? AND change_cursor = ?", accountID, cursor).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return count > 0, nil
}

// Record inserts (accountID, cursor) exactly once. A concurrent or repeated
// insert gets ErrDuplicate together with the row that won.
func (r *historyRepository) Record(ctx context.Context, accountID string, cursor uint64, source domain.Source) (*domain.HistoryRecord, error) {
	rec := &domain.HistoryRecord{
		ID:           uuid.New().String(),
		AccountID:    accountID,
		ChangeCursor: cursor,
		Source:       source,
		RecordedAt:   r.now().UTC(),
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	if result.Error != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, result.Error)
	}
	if result.RowsAffected > 0 {
		return rec, nil
	}

	var existing domain.HistoryRecord
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND change_cursor = ?", accountID, cursor).
		First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: conflicting row for cursor %d vanished", domain.ErrStorage, cursor)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return &existing, domain.ErrDuplicate
}

func (r *historyRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*domain.HistoryRecord, error) {
	var records []*domain.HistoryRecord
	query := r.db.WithContext(ctx).Where("account_id = ?", accountID).Order("change_cursor DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return records, nil
}
