package quotas

import (
	"context"

	"github.com/dmogilev/docmill/internal/server/models"
)

type Repository interface {
	// GetForUpdate loads a user's quota row, locking it for the duration
	// of the surrounding transaction so read-modify-write stays atomic
	// per user.
	GetForUpdate(ctx context.Context, userID string) (*models.UserQuota, error)
	Create(ctx context.Context, quota *models.UserQuota) error
	Save(ctx context.Context, quota *models.UserQuota) error
}
