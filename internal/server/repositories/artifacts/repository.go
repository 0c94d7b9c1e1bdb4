package artifacts

import (
	"context"
	"time"

	"github.com/dmogilev/docmill/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, artifact *models.Artifact) error
	GetByToken(ctx context.Context, token string) (*models.Artifact, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Artifact, error)
	Delete(ctx context.Context, id string) error
	// SelectExpired returns up to limit artifacts whose expiry lies
	// before the given instant, oldest first. Used by the storage
	// hygiene sweep.
	SelectExpired(ctx context.Context, before time.Time, limit int) ([]*models.Artifact, error)
}
