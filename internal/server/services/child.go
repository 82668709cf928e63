package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dwianugrah/keepsake/internal/common"
	"github.com/dwianugrah/keepsake/internal/dbx"
	"github.com/dwianugrah/keepsake/internal/logging"
	"github.com/dwianugrah/keepsake/internal/server/blobstore"
	"github.com/dwianugrah/keepsake/internal/server/models"
	"github.com/dwianugrah/keepsake/internal/server/repositories/repomanager"
)

// ChildService manages child records. It owns the cascading delete: a
// removed child takes its vaults, media, grants and letters with it.
type ChildService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	blobs  blobstore.Store
	logger logging.Logger
}

func NewChildService(db *sql.DB, repos repomanager.RepositoryManager, blobs blobstore.Store,
	logger logging.Logger) *ChildService {
	return &ChildService{db: db, repos: repos, blobs: blobs, logger: logger}
}

// ChildInput carries caller-provided child fields.
type ChildInput struct {
	Name      string
	DOB       time.Time
	Gender    string
	BloodType string
	Notes     string
	PhotoURL  string
}

func (in *ChildInput) validate() error {
	if strings.TrimSpace(in.Name) == "" || in.DOB.IsZero() {
		return common.ErrorValidation
	}
	return nil
}

func (s *ChildService) Create(ctx context.Context, principalID string, in ChildInput) (*models.Child, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	c := &models.Child{
		ID:        uuid.NewString(),
		UserID:    principalID,
		Name:      strings.TrimSpace(in.Name),
		DOB:       models.DateOnly(in.DOB),
		Gender:    in.Gender,
		BloodType: in.BloodType,
		Notes:     in.Notes,
		PhotoURL:  in.PhotoURL,
	}
	if err := s.repos.Children(s.db).Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "child created", "child_id", c.ID)
	return c, nil
}

func (s *ChildService) Get(ctx context.Context, principalID, childID string) (*models.Child, error) {
	c, err := s.repos.Children(s.db).GetByID(ctx, childID)
	if err != nil {
		return nil, err
	}
	if c.UserID != principalID {
		// hide the record rather than admit it exists
		return nil, common.ErrorNotFound
	}
	return c, nil
}

func (s *ChildService) List(ctx context.Context, principalID string) ([]*models.Child, error) {
	return s.repos.Children(s.db).ListForGuardian(ctx, principalID)
}

func (s *ChildService) Update(ctx context.Context, principalID, childID string, in ChildInput) (*models.Child, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	c, err := s.Get(ctx, principalID, childID)
	if err != nil {
		return nil, err
	}

	c.Name = strings.TrimSpace(in.Name)
	c.DOB = models.DateOnly(in.DOB)
	c.Gender = in.Gender
	c.BloodType = in.BloodType
	c.Notes = in.Notes
	c.PhotoURL = in.PhotoURL

	if err := s.repos.Children(s.db).Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes the child and everything hanging off it in a single
// transaction, then cleans up media blobs best-effort.
func (s *ChildService) Delete(ctx context.Context, principalID, childID string) error {
	if _, err := requireChildOwner(ctx, s.repos.Children(s.db), childID, principalID); err != nil {
		return err
	}

	var keys []string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		vaultRepo := s.repos.Vaults(tx)
		mediaRepo := s.repos.Media(tx)

		vaultsOfChild, err := vaultRepo.ListForGuardian(ctx, principalID)
		if err != nil {
			return err
		}
		for _, v := range vaultsOfChild {
			if v.ChildID != childID {
				continue
			}
			vaultKeys, err := mediaRepo.StorageKeysByVault(ctx, v.ID)
			if err != nil {
				return err
			}
			keys = append(keys, vaultKeys...)
			if err := mediaRepo.DeleteByVault(ctx, v.ID); err != nil {
				return err
			}
		}

		if err := deleteChildRows(ctx, tx, childID); err != nil {
			return err
		}
		return s.repos.Children(tx).Delete(ctx, childID)
	})
	if err != nil {
		return err
	}

	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Warn(ctx, "blob cleanup failed", "child_id", childID, "key", key, "error", err.Error())
		}
	}

	s.logger.Info(ctx, "child deleted", "child_id", childID)
	return nil
}

// deleteChildRows clears the child's dependent tables. Vault media rows are
// removed beforehand so the vault delete does not trip the FK.
func deleteChildRows(ctx context.Context, tx dbx.DBTX, childID string) error {
	statements := []string{
		`DELETE FROM vaults WHERE child_id = $1`,
		`DELETE FROM family_access WHERE child_id = $1`,
		`DELETE FROM scheduled_letters WHERE child_id = $1`,
	}
	for _, q := range statements {
		if _, err := tx.ExecContext(ctx, q, childID); err != nil {
			return err
		}
	}
	return nil
}
