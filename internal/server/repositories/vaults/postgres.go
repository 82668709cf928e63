// Package vaults provides the PostgreSQL-backed repository for memory
// vaults. State transitions are conditional updates so that concurrent
// attempts resolve to exactly one winner.
package vaults

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dwianugrah/keepsake/internal/common"
	"github.com/dwianugrah/keepsake/internal/dbx"
	"github.com/dwianugrah/keepsake/internal/server/models"
)

// PostgresRepository implements vault storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) WithTx(tx dbx.DBTX) Repository {
	return &PostgresRepository{db: tx}
}

const vaultColumns = `v.id, v.child_id, v.title, v.letter_content, v.unlock_date, v.unlock_occasion,
		v.sealed_at, v.opened_at, v.created_at, v.updated_at`

func scanVault(row interface{ Scan(...any) error }) (*models.Vault, error) {
	var v models.Vault
	var sealedAt, openedAt sql.NullTime
	if err := row.Scan(&v.ID, &v.ChildID, &v.Title, &v.LetterContent, &v.UnlockDate, &v.UnlockOccasion,
		&sealedAt, &openedAt, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	if sealedAt.Valid {
		t := sealedAt.Time
		v.SealedAt = &t
	}
	if openedAt.Valid {
		t := openedAt.Time
		v.OpenedAt = &t
	}
	return &v, nil
}

func (r *PostgresRepository) Create(ctx context.Context, v *models.Vault) error {
	query := `
		INSERT INTO vaults (id, child_id, title, letter_content, unlock_date, unlock_occasion)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		v.ID, v.ChildID, v.Title, v.LetterContent, v.UnlockDate, v.UnlockOccasion).
		Scan(&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetForGuardian returns the vault only when it belongs to one of the
// guardian's children. A missing and a foreign vault are both ErrorNotFound
// so callers cannot probe for existence.
func (r *PostgresRepository) GetForGuardian(ctx context.Context, vaultID, guardianID string) (*models.Vault, error) {
	query := `
		SELECT ` + vaultColumns + `
		FROM vaults v
		JOIN children c ON v.child_id = c.id
		WHERE v.id = $1 AND c.user_id = $2
	`
	v, err := scanVault(r.db.QueryRowContext(ctx, query, vaultID, guardianID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) ListForGuardian(ctx context.Context, guardianID string) ([]*models.Vault, error) {
	query := `
		SELECT ` + vaultColumns + `
		FROM vaults v
		JOIN children c ON v.child_id = c.id
		WHERE c.user_id = $1
		ORDER BY v.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, guardianID)
	if err != nil {
		return nil, fmt.Errorf("failed to select vaults: %w", err)
	}
	defer rows.Close()

	var result []*models.Vault
	for rows.Next() {
		v, err := scanVault(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateDraft replaces the vault content, but only while the vault is
// unsealed. Returns ErrorIllegalState when a seal won the race.
func (r *PostgresRepository) UpdateDraft(ctx context.Context, v *models.Vault) error {
	query := `
		UPDATE vaults
		SET title = $2, letter_content = $3, unlock_date = $4, unlock_occasion = $5, updated_at = now()
		WHERE id = $1 AND sealed_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, v.ID, v.Title, v.LetterContent, v.UnlockDate, v.UnlockOccasion)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res, common.ErrorIllegalState)
}

// Seal stamps sealed_at exactly once. Two concurrent calls yield one
// success and one ErrorIllegalState.
func (r *PostgresRepository) Seal(ctx context.Context, vaultID string, at time.Time) error {
	query := `
		UPDATE vaults
		SET sealed_at = $2, updated_at = now()
		WHERE id = $1 AND sealed_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, vaultID, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res, common.ErrorIllegalState)
}

// Open stamps opened_at exactly once, and only on a sealed vault.
func (r *PostgresRepository) Open(ctx context.Context, vaultID string, at time.Time) error {
	query := `
		UPDATE vaults
		SET opened_at = $2, updated_at = now()
		WHERE id = $1 AND sealed_at IS NOT NULL AND opened_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, vaultID, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res, common.ErrorIllegalState)
}

// DeleteDraft removes the vault row, refusing once sealed.
func (r *PostgresRepository) DeleteDraft(ctx context.Context, vaultID string) error {
	query := `DELETE FROM vaults WHERE id = $1 AND sealed_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, vaultID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res, common.ErrorIllegalState)
}

func expectOneRow(res sql.Result, zeroErr error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return zeroErr
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
