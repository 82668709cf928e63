package grants

import (
	"context"
	"time"

	"github.com/dwianugrah/keepsake/internal/dbx"
	"github.com/dwianugrah/keepsake/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, g *models.Grant) error
	GetByID(ctx context.Context, grantID string) (*models.Grant, error)
	ListForGuardian(ctx context.Context, guardianID string) ([]*models.Grant, error)
	HasPending(ctx context.Context, childID, email string) (bool, error)
	Redeem(ctx context.Context, code, userID string, at time.Time) (*models.Grant, error)
	Delete(ctx context.Context, grantID string) error
	HasAccepted(ctx context.Context, childID, userID string) (bool, error)

	WithTx(tx dbx.DBTX) Repository
}
