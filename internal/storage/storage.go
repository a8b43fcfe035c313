// internal/storage/storage.go
package storage

import (
	"context"

	"github.com/rovshanmuradov/solana-launchpad/internal/storage/models"
)

// Storage persists deployment history per creator, most recent first.
type Storage interface {
	SaveDeployment(ctx context.Context, dep *models.Deployment) error
	ListDeployments(ctx context.Context, creator string, limit, offset int) ([]*models.Deployment, error)
	CountDeployments(ctx context.Context, creator string) (int64, error)
	Close() error
}
