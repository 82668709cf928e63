package services

import (
	"context"

	"github.com/dwianugrah/keepsake/internal/common"
	"github.com/dwianugrah/keepsake/internal/server/models"
	"github.com/dwianugrah/keepsake/internal/server/repositories/children"
)

// requireChildOwner resolves the child and verifies the principal is its
// guardian. A missing child is ErrorNotFound, a foreign one ErrorNotOwner.
func requireChildOwner(ctx context.Context, repo children.Repository, childID, principalID string) (*models.Child, error) {
	child, err := repo.GetByID(ctx, childID)
	if err != nil {
		return nil, err
	}
	if child.UserID != principalID {
		return nil, common.ErrorNotOwner
	}
	return child, nil
}
