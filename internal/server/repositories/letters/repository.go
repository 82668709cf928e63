package letters

import (
	"context"

	"github.com/dwianugrah/keepsake/internal/dbx"
	"github.com/dwianugrah/keepsake/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, l *models.ScheduledLetter) error
	GetByID(ctx context.Context, letterID string) (*models.ScheduledLetter, error)
	ListByChild(ctx context.Context, childID string) ([]*models.ScheduledLetter, error)
	MarkSent(ctx context.Context, letterID string) error
	Delete(ctx context.Context, letterID, authorID string) error

	WithTx(tx dbx.DBTX) Repository
}
