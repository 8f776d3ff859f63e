package repository

import (
	"context"
	"time"

	accountdomain "github.com/Alok-Gaur/mail-management-agent/internal/account/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FCMTokenRepository defines the interface for FCM token operations
type FCMTokenRepository interface {
	SaveToken(ctx context.Context, accountID, token, deviceInfo string) error
	GetTokensByAccountID(ctx context.Context, accountID string) ([]accountdomain.FCMToken, error)
	DeleteToken(ctx context.Context, token string) error
}

type fcmTokenRepository struct {
	db *gorm.DB
}

func NewFCMTokenRepository(db *gorm.DB) FCMTokenRepository {
	return &fcmTokenRepository{db: db}
}

// SaveToken registers a device token; re-registering moves it to the new account.
func (r *fcmTokenRepository) SaveToken(ctx context.Context, accountID, token, deviceInfo string) error {
	now := time.Now()
	fcmToken := &accountdomain.FCMToken{
		ID:         uuid.New().String(),
		AccountID:  accountID,
		Token:      token,
		DeviceInfo: deviceInfo,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// INSERT ... ON CONFLICT (token) DO UPDATE
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"account_id", "device_info", "updated_at"}),
	}).Create(fcmToken).Error
}

func (r *fcmTokenRepository) GetTokensByAccountID(ctx context.Context, accountID string) ([]accountdomain.FCMToken, error) {
	var tokens []accountdomain.FCMToken
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *fcmTokenRepository) DeleteToken(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Where("token = ?", token).Delete(&accountdomain.FCMToken{}).Error
}
