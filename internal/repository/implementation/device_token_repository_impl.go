package implementation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"school-admin-be/internal/model"
	"school-admin-be/internal/repository/contract"
)

type DeviceTokenRepositoryImpl struct {
	db *gorm.DB
}

func NewDeviceTokenRepository(db *gorm.DB) contract.DeviceTokenRepository {
	return &DeviceTokenRepositoryImpl{db: db}
}

func (r *DeviceTokenRepositoryImpl) Upsert(ctx context.Context, token *model.DeviceToken) error {
	now := time.Now()
	token.IsActive = true
	token.LastUsedAt = now

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "token"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"platform":     token.Platform,
				"is_active":    true,
				"last_used_at": now,
				"updated_at":   now,
			}),
		}).
		Create(token).Error
}

func (r *DeviceTokenRepositoryImpl) GetActiveTokensForUsers(ctx context.Context, userIds []uuid.UUID) ([]model.DeviceToken, error) {
	if len(userIds) == 0 {
		return nil, nil
	}
	var tokens []model.DeviceToken
	err := r.db.WithContext(ctx).
		Where("user_id IN ? AND is_active = ?", userIds, true).
		Find(&tokens).Error
	return tokens, err
}
