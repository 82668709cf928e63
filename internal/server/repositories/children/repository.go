package children

import (
	"context"

	"github.com/dwianugrah/keepsake/internal/dbx"
	"github.com/dwianugrah/keepsake/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Child) error
	GetByID(ctx context.Context, childID string) (*models.Child, error)
	ListForGuardian(ctx context.Context, guardianID string) ([]*models.Child, error)
	Update(ctx context.Context, c *models.Child) error
	Delete(ctx context.Context, childID string) error

	WithTx(tx dbx.DBTX) Repository
}
