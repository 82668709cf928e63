package services

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/dwianugrah/keepsake/internal/common"
	"github.com/dwianugrah/keepsake/internal/logging"
	"github.com/dwianugrah/keepsake/internal/server/mailer"
	"github.com/dwianugrah/keepsake/internal/server/models"
	"github.com/dwianugrah/keepsake/internal/server/repositories/repomanager"
)

// inviteCodeBytes sizes the random invite code (hex doubles it).
const inviteCodeBytes = 16

// GrantService runs the access grant registry: invite-code based sharing of
// a child's records with a second guardian account.
type GrantService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	mail   mailer.Mailer
	clock  Clock
	logger logging.Logger
}

func NewGrantService(db *sql.DB, repos repomanager.RepositoryManager, mail mailer.Mailer,
	clock Clock, logger logging.Logger) *GrantService {
	return &GrantService{db: db, repos: repos, mail: mail, clock: clock, logger: logger}
}

// Invite creates a pending grant for (child, email) with a fresh single-use
// code and emails it to the invitee. A pending invite for the same pair is
// rejected with ErrorDuplicateInvite.
func (s *GrantService) Invite(ctx context.Context, principalID, childID, email, role string) (*models.Grant, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, common.ErrorValidation
	}
	if role == "" {
		role = string(models.RoleViewer)
	}
	if !models.ValidRole(role) {
		return nil, common.ErrorValidation
	}

	child, err := requireChildOwner(ctx, s.repos.Children(s.db), childID, principalID)
	if err != nil {
		return nil, err
	}

	repo := s.repos.Grants(s.db)
	pending, err := repo.HasPending(ctx, childID, email)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, common.ErrorDuplicateInvite
	}

	code, err := common.MakeRandHexString(inviteCodeBytes)
	if err != nil {
		return nil, err
	}

	g := &models.Grant{
		ID:          uuid.NewString(),
		ChildID:     childID,
		InvitedBy:   principalID,
		InviteCode:  code,
		InviteEmail: email,
		Role:        models.GrantRole(role),
		Status:      models.GrantPending,
	}
	// The partial unique index backs up the HasPending check against a
	// concurrent duplicate invite.
	if err := repo.Create(ctx, g); err != nil {
		return nil, err
	}

	if err := s.mail.SendInvite(ctx, email, child.Name, code); err != nil {
		s.logger.Warn(ctx, "invite mail failed", "grant_id", g.ID, "error", err.Error())
	}

	s.logger.Info(ctx, "invite created", "grant_id", g.ID, "child_id", childID)
	return g, nil
}

// Redeem consumes a pending invite code and binds the redeeming principal.
// Unknown and already-consumed codes both return ErrorInvalidInvite. The
// operation assumes nothing about how the caller held on to the code before
// authenticating; it only needs the principal to be known now.
func (s *GrantService) Redeem(ctx context.Context, principalID, code string) (*models.Grant, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, common.ErrorInvalidInvite
	}

	g, err := s.repos.Grants(s.db).Redeem(ctx, code, principalID, s.clock.Now())
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "invite redeemed", "grant_id", g.ID, "child_id", g.ChildID)
	return g, nil
}

// Revoke deletes a grant in any status. Only the child's guardian may
// revoke; a grant the principal cannot see is ErrorNotFound.
func (s *GrantService) Revoke(ctx context.Context, principalID, grantID string) error {
	repo := s.repos.Grants(s.db)
	g, err := repo.GetByID(ctx, grantID)
	if err != nil {
		return err
	}

	child, err := s.repos.Children(s.db).GetByID(ctx, g.ChildID)
	if err != nil {
		return err
	}
	if child.UserID != principalID {
		return common.ErrorNotOwner
	}

	if err := repo.Delete(ctx, grantID); err != nil {
		return err
	}

	s.logger.Info(ctx, "grant revoked", "grant_id", grantID, "child_id", g.ChildID)
	return nil
}

// ListForOwner returns every grant across the principal's children.
func (s *GrantService) ListForOwner(ctx context.Context, principalID string) ([]*models.Grant, error) {
	return s.repos.Grants(s.db).ListForGuardian(ctx, principalID)
}

// HasReadAccess reports whether the principal may read the child's records:
// the guardian always may, an accepted grantee may, nobody else.
func (s *GrantService) HasReadAccess(ctx context.Context, principalID, childID string) (bool, error) {
	child, err := s.repos.Children(s.db).GetByID(ctx, childID)
	if err != nil {
		return false, err
	}
	if child.UserID == principalID {
		return true, nil
	}
	return s.repos.Grants(s.db).HasAccepted(ctx, childID, principalID)
}
