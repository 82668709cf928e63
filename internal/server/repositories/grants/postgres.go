// Package grants provides the PostgreSQL-backed repository for family
// access grants. Invite codes are single-use: redemption is a conditional
// update on the pending row, so a consumed or unknown code behaves
// identically.
package grants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dwianugrah/keepsake/internal/common"
	"github.com/dwianugrah/keepsake/internal/dbx"
	"github.com/dwianugrah/keepsake/internal/server/models"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint hits.
const pgUniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) WithTx(tx dbx.DBTX) Repository {
	return &PostgresRepository{db: tx}
}

const grantColumns = `g.id, g.child_id, g.invited_by, g.invite_code, g.invite_email, g.role, g.status,
		g.user_id, g.accepted_at, g.created_at`

func scanGrant(row interface{ Scan(...any) error }) (*models.Grant, error) {
	var g models.Grant
	var userID sql.NullString
	var acceptedAt sql.NullTime
	if err := row.Scan(&g.ID, &g.ChildID, &g.InvitedBy, &g.InviteCode, &g.InviteEmail, &g.Role, &g.Status,
		&userID, &acceptedAt, &g.CreatedAt); err != nil {
		return nil, err
	}
	if userID.Valid {
		s := userID.String
		g.UserID = &s
	}
	if acceptedAt.Valid {
		t := acceptedAt.Time
		g.AcceptedAt = &t
	}
	return &g, nil
}

// Create inserts a pending grant. A partial unique index on
// (child_id, lower(invite_email)) WHERE status='pending' backs the
// duplicate-invite rule; hitting it maps to ErrorDuplicateInvite.
func (r *PostgresRepository) Create(ctx context.Context, g *models.Grant) error {
	query := `
		INSERT INTO family_access (id, child_id, invited_by, invite_code, invite_email, role, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		g.ID, g.ChildID, g.InvitedBy, g.InviteCode, g.InviteEmail, g.Role, g.Status).
		Scan(&g.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return common.ErrorDuplicateInvite
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, grantID string) (*models.Grant, error) {
	query := `SELECT ` + grantColumns + ` FROM family_access g WHERE g.id = $1`
	g, err := scanGrant(r.db.QueryRowContext(ctx, query, grantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return g, nil
}

func (r *PostgresRepository) ListForGuardian(ctx context.Context, guardianID string) ([]*models.Grant, error) {
	query := `
		SELECT ` + grantColumns + `
		FROM family_access g
		JOIN children c ON g.child_id = c.id
		WHERE c.user_id = $1
		ORDER BY g.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, guardianID)
	if err != nil {
		return nil, fmt.Errorf("failed to select grants: %w", err)
	}
	defer rows.Close()

	var result []*models.Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) HasPending(ctx context.Context, childID, email string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM family_access
			WHERE child_id = $1 AND lower(invite_email) = lower($2) AND status = 'pending'
		)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, childID, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// Redeem flips a pending grant to accepted and binds the redeeming account.
// Zero rows means the code is unknown or already consumed; callers get
// ErrorInvalidInvite either way.
func (r *PostgresRepository) Redeem(ctx context.Context, code, userID string, at time.Time) (*models.Grant, error) {
	query := `
		UPDATE family_access g
		SET status = 'accepted', user_id = $2, accepted_at = $3
		WHERE g.invite_code = $1 AND g.status = 'pending'
		RETURNING ` + grantColumns + `
	`
	g, err := scanGrant(r.db.QueryRowContext(ctx, query, code, userID, at))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorInvalidInvite
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return g, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, grantID string) error {
	query := `DELETE FROM family_access WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, grantID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) HasAccepted(ctx context.Context, childID, userID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM family_access
			WHERE child_id = $1 AND user_id = $2 AND status = 'accepted'
		)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, childID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}
