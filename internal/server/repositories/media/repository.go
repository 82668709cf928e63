package media

import (
	"context"

	"github.com/dwianugrah/keepsake/internal/dbx"
	"github.com/dwianugrah/keepsake/internal/server/models"
)

type Repository interface {
	AttachDraft(ctx context.Context, m *models.Media) error
	ListByVault(ctx context.Context, vaultID string) ([]*models.Media, error)
	GetForGuardian(ctx context.Context, mediaID, guardianID string) (*models.Media, error)
	StorageKeysByVault(ctx context.Context, vaultID string) ([]string, error)
	DeleteByVault(ctx context.Context, vaultID string) error

	WithTx(tx dbx.DBTX) Repository
}
