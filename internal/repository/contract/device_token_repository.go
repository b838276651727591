package contract

import (
	"context"

	"github.com/google/uuid"

	"school-admin-be/internal/model"
)

type DeviceTokenRepository interface {
	// Upsert registers a device token. If (userId, token) already exists the
	// row is refreshed (platform, is_active, last_used_at); no duplicate row
	// is ever created.
	Upsert(ctx context.Context, token *model.DeviceToken) error

	// GetActiveTokensForUsers is the worker's only read path; inactive tokens
	// are never targeted for delivery.
	GetActiveTokensForUsers(ctx context.Context, userIds []uuid.UUID) ([]model.DeviceToken, error)
}
