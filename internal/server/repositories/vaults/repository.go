package vaults

import (
	"context"
	"time"

	"github.com/dwianugrah/keepsake/internal/dbx"
	"github.com/dwianugrah/keepsake/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, v *models.Vault) error
	GetForGuardian(ctx context.Context, vaultID, guardianID string) (*models.Vault, error)
	ListForGuardian(ctx context.Context, guardianID string) ([]*models.Vault, error)
	UpdateDraft(ctx context.Context, v *models.Vault) error
	Seal(ctx context.Context, vaultID string, at time.Time) error
	Open(ctx context.Context, vaultID string, at time.Time) error
	DeleteDraft(ctx context.Context, vaultID string) error

	// WithTx returns a repository bound to the given transactional handle.
	WithTx(tx dbx.DBTX) Repository
}
