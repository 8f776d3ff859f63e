package repository

import (
	"context"
	"errors"
	"time"

	accountdomain "github.com/Alok-Gaur/mail-management-agent/internal/account/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountRepository defines persistence for accounts, their settings and label sets
type AccountRepository interface {
	Create(ctx context.Context, account *accountdomain.Account) error
	FindByEmail(ctx context.Context, email string) (*accountdomain.Account, error)
	FindByID(ctx context.Context, id string) (*accountdomain.Account, error)
	UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error
	// AdvanceCursor raises last_history_id to cursor; an older cursor never overwrites a newer one.
	AdvanceCursor(ctx context.Context, id string, cursor uint64) (bool, error)
	SetWatchExpiration(ctx context.Context, id string, expiration *time.Time) error
	FindWatchesExpiringBefore(ctx context.Context, deadline time.Time) ([]accountdomain.Account, error)

	SaveSettings(ctx context.Context, settings *accountdomain.Settings) error
	ReplaceLabels(ctx context.Context, accountID string, labels []accountdomain.Label) error
	// LoadPolicy reads settings and labels in one transaction.
	LoadPolicy(ctx context.Context, accountID string) (*accountdomain.Settings, []accountdomain.Label, error)
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *accountdomain.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*accountdomain.Account, error) {
	var account accountdomain.Account
	err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindByID(ctx context.Context, id string) (*accountdomain.Account, error) {
	var account accountdomain.Account
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error {
	updates := map[string]interface{}{
		"access_token": accessToken,
		"token_expiry": expiry,
		"updated_at":   time.Now(),
	}
	if refreshToken != "" {
		updates["refresh_token"] = refreshToken
	}
	return r.db.WithContext(ctx).Model(&accountdomain.Account{}).Where("id = ?", id).Updates(updates).Error
}

func (r *accountRepository) AdvanceCursor(ctx context.Context, id string, cursor uint64) (bool, error) {
	result := r.db.WithContext(ctx).Model(&accountdomain.Account{}).
		Where("id = ? AND last_history_id < ?", id, cursor).
		Updates(map[string]interface{}{"last_history_id": cursor, "updated_at": time.Now()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *accountRepository) SetWatchExpiration(ctx context.Context, id string, expiration *time.Time) error {
	return r.db.WithContext(ctx).Model(&accountdomain.Account{}).Where("id = ?", id).
		Updates(map[string]interface{}{"watch_expiration": expiration, "updated_at": time.Now()}).Error
}

func (r *accountRepository) FindWatchesExpiringBefore(ctx context.Context, deadline time.Time) ([]accountdomain.Account, error) {
	var accounts []accountdomain.Account
	err := r.db.WithContext(ctx).
		Where("watch_expiration IS NOT NULL AND watch_expiration < ?", deadline).
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepository) SaveSettings(ctx context.Context, settings *accountdomain.Settings) error {
	settings.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(settings).Error
}

func (r *accountRepository) ReplaceLabels(ctx context.Context, accountID string, labels []accountdomain.Label) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", accountID).Delete(&accountdomain.Label{}).Error; err != nil {
			return err
		}
		for i := range labels {
			labels[i].ID = uuid.New().String()
			labels[i].AccountID = accountID
			labels[i].Position = i
			labels[i].CreatedAt = time.Now()
		}
		if len(labels) == 0 {
			return nil
		}
		return tx.Create(&labels).Error
	})
}

func (r *accountRepository) LoadPolicy(ctx context.Context, accountID string) (*accountdomain.Settings, []accountdomain.Label, error) {
	var settings *accountdomain.Settings
	var labels []accountdomain.Label

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s accountdomain.Settings
		err := tx.Where("account_id = ?", accountID).First(&s).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			settings = accountdomain.DefaultSettings(accountID)
		case err != nil:
			return err
		default:
			settings = &s
		}
		return tx.Where("account_id = ?", accountID).Order("position ASC").Find(&labels).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return settings, labels, nil
}
