// Package services implements the application core: the vault state
// machine, the access grant registry, scheduled letter gating and the child
// registry. Every operation takes the acting principal explicitly; nothing
// here reads ambient request state.
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

// VaultService drives the vault lifecycle: draft → sealed → opened. Content
// and media are mutable only in draft; opening is gated by the unlock date.
type VaultService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	blobs  blobstore.Store
	clock  Clock
	logger logging.Logger
}

func NewVaultService(db *sql.DB, repos repomanager.RepositoryManager, blobs blobstore.Store,
	clock Clock, logger logging.Logger) *VaultService {
	return &VaultService{db: db, repos: repos, blobs: blobs, clock: clock, logger: logger}
}

// VaultInput carries the caller-editable vault fields. Updates are
// whole-record replacements, so the same struct serves create and update.
type VaultInput struct {
	Title          string
	LetterContent  string
	UnlockDate     time.Time
	UnlockOccasion string
}

func (in *VaultInput) validate() error {
	if strings.TrimSpace(in.Title) == "" || in.UnlockDate.IsZero() {
		return common.ErrorValidation
	}
	return nil
}

// VaultDigest partitions a guardian's vaults for display. Building it never
// mutates any vault: readiness is derived from the clock on the fly.
type VaultDigest struct {
	Opened      []*models.Vault
	ReadyToOpen []*models.Vault
	Sealed      []*models.Vault
	Draft       []*models.Vault
}

// VaultDetail is a single vault with its attachments.
type VaultDetail struct {
	Vault   *models.Vault
	Media   []*models.Media
	CanOpen bool
}

// Create makes a new draft vault for one of the principal's children.
func (s *VaultService) Create(ctx context.Context, principalID, childID string, in VaultInput) (*models.Vault, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := requireChildOwner(ctx, s.repos.Children(s.db), childID, principalID); err != nil {
		return nil, err
	}

	v := &models.Vault{
		ID:             uuid.NewString(),
		ChildID:        childID,
		Title:          strings.TrimSpace(in.Title),
		LetterContent:  in.LetterContent,
		UnlockDate:     models.DateOnly(in.UnlockDate),
		UnlockOccasion: in.UnlockOccasion,
	}
	if err := s.repos.Vaults(s.db).Create(ctx, v); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "vault created", "vault_id", v.ID, "child_id", childID)
	return v, nil
}

// Update replaces the vault content. Draft only.
func (s *VaultService) Update(ctx context.Context, principalID, vaultID string, in VaultInput) (*models.Vault, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	repo := s.repos.Vaults(s.db)
	v, err := repo.GetForGuardian(ctx, vaultID, principalID)
	if err != nil {
		return nil, err
	}
	if v.State() != models.VaultDraft {
		return nil, common.ErrorIllegalState
	}

	v.Title = strings.TrimSpace(in.Title)
	v.LetterContent = in.LetterContent
	v.UnlockDate = models.DateOnly(in.UnlockDate)
	v.UnlockOccasion = in.UnlockOccasion

	// The conditional update re-checks draft state, so a concurrent seal
	// cannot slip an edit into a sealed vault.
	if err := repo.UpdateDraft(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// MediaUpload is a presigned upload slot for a new attachment.
type MediaUpload struct {
	StorageKey string
	UploadURL  string
}

// PresignMediaUpload hands the client a PUT URL for a draft vault
// attachment. The metadata row is written afterwards via AttachMedia.
func (s *VaultService) PresignMediaUpload(ctx context.Context, principalID, vaultID, filename string) (*MediaUpload, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, common.ErrorValidation
	}

	v, err := s.repos.Vaults(s.db).GetForGuardian(ctx, vaultID, principalID)
	if err != nil {
		return nil, err
	}
	if v.State() != models.VaultDraft {
		return nil, common.ErrorIllegalState
	}

	key := blobstore.MediaKey(vaultID, filename)
	url, err := s.blobs.PresignPut(ctx, key)
	if err != nil {
		return nil, err
	}
	return &MediaUpload{StorageKey: key, UploadURL: url}, nil
}

// AttachMedia records an uploaded attachment on a draft vault. The INSERT
// itself re-checks vault state, closing the race between this check and a
// concurrent seal.
func (s *VaultService) AttachMedia(ctx context.Context, principalID, vaultID, filename, storageKey, caption string) (*models.Media, error) {
	if strings.TrimSpace(filename) == "" || strings.TrimSpace(storageKey) == "" {
		return nil, common.ErrorValidation
	}

	if _, err := s.repos.Vaults(s.db).GetForGuardian(ctx, vaultID, principalID); err != nil {
		return nil, err
	}

	m := &models.Media{
		ID:         uuid.NewString(),
		VaultID:    vaultID,
		Kind:       models.KindFromFilename(filename),
		StorageKey: storageKey,
		Caption:    caption,
	}
	if err := s.repos.Media(s.db).AttachDraft(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "media attached", "vault_id", vaultID, "media_id", m.ID, "kind", m.Kind)
	return m, nil
}

// MediaDownloadURL returns a presigned GET URL for an attachment the
// principal can see.
func (s *VaultService) MediaDownloadURL(ctx context.Context, principalID, mediaID string) (string, error) {
	m, err := s.repos.Media(s.db).GetForGuardian(ctx, mediaID, principalID)
	if err != nil {
		return "", err
	}
	return s.blobs.PresignGet(ctx, m.StorageKey)
}

// Seal transitions draft → sealed. One-way: repeated calls fail with
// ErrorIllegalState, and of two concurrent calls exactly one wins.
func (s *VaultService) Seal(ctx context.Context, principalID, vaultID string) (*models.Vault, error) {
	repo := s.repos.Vaults(s.db)
	v, err := repo.GetForGuardian(ctx, vaultID, principalID)
	if err != nil {
		return nil, err
	}
	if v.State() != models.VaultDraft {
		return nil, common.ErrorIllegalState
	}
	if v.UnlockDate.IsZero() {
		return nil, common.ErrorValidation
	}

	now := s.clock.Now()
	if err := repo.Seal(ctx, vaultID, now); err != nil {
		return nil, err
	}
	v.SealedAt = &now

	s.logger.Info(ctx, "vault sealed", "vault_id", vaultID, "unlock_date", v.UnlockDate.Format(time.DateOnly))
	return v, nil
}

// Open transitions sealed → opened once the unlock date is reached. The
// unlock date itself counts: a vault sealed for 2030-01-01 opens on that
// day.
func (s *VaultService) Open(ctx context.Context, principalID, vaultID string) (*models.Vault, error) {
	repo := s.repos.Vaults(s.db)
	v, err := repo.GetForGuardian(ctx, vaultID, principalID)
	if err != nil {
		return nil, err
	}

	switch v.State() {
	case models.VaultDraft, models.VaultOpened:
		return nil, common.ErrorIllegalState
	case models.VaultSealed:
		// fall through to the date gate
	}

	now := s.clock.Now()
	if !v.Unlockable(now) {
		return nil, common.ErrorNotYetUnlockable
	}
	if err := repo.Open(ctx, vaultID, now); err != nil {
		return nil, err
	}
	v.OpenedAt = &now

	s.logger.Info(ctx, "vault opened", "vault_id", vaultID)
	return v, nil
}

// Delete removes a draft vault, its attachment rows and their blobs. Rows
// go in one transaction; blob removal happens after commit and failures are
// logged, never surfaced — the logical delete already succeeded.
func (s *VaultService) Delete(ctx context.Context, principalID, vaultID string) error {
	v, err := s.repos.Vaults(s.db).GetForGuardian(ctx, vaultID, principalID)
	if err != nil {
		return err
	}
	if v.State() != models.VaultDraft {
		return common.ErrorIllegalState
	}

	var keys []string
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		mediaRepo := s.repos.Media(tx)
		var err error
		keys, err = mediaRepo.StorageKeysByVault(ctx, vaultID)
		if err != nil {
			return err
		}
		if err := mediaRepo.DeleteByVault(ctx, vaultID); err != nil {
			return err
		}
		return s.repos.Vaults(tx).DeleteDraft(ctx, vaultID)
	})
	if err != nil {
		return err
	}

	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Warn(ctx, "blob cleanup failed", "vault_id", vaultID, "key", key, "error", err.Error())
		}
	}

	s.logger.Info(ctx, "vault deleted", "vault_id", vaultID, "media_count", len(keys))
	return nil
}

// Get returns the vault with its attachments and whether it can be opened
// right now.
func (s *VaultService) Get(ctx context.Context, principalID, vaultID string) (*VaultDetail, error) {
	v, err := s.repos.Vaults(s.db).GetForGuardian(ctx, vaultID, principalID)
	if err != nil {
		return nil, err
	}
	media, err := s.repos.Media(s.db).ListByVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	return &VaultDetail{
		Vault:   v,
		Media:   media,
		CanOpen: v.State() == models.VaultSealed && v.Unlockable(s.clock.Now()),
	}, nil
}

// List partitions all vaults of the principal's children by display bucket.
func (s *VaultService) List(ctx context.Context, principalID string) (*VaultDigest, error) {
	all, err := s.repos.Vaults(s.db).ListForGuardian(ctx, principalID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	digest := &VaultDigest{}
	for _, v := range all {
		switch v.State() {
		case models.VaultOpened:
			digest.Opened = append(digest.Opened, v)
		case models.VaultSealed:
			if v.Unlockable(now) {
				digest.ReadyToOpen = append(digest.ReadyToOpen, v)
			} else {
				digest.Sealed = append(digest.Sealed, v)
			}
		default:
			digest.Draft = append(digest.Draft, v)
		}
	}
	return digest, nil
}
