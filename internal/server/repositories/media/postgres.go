// Package media provides the PostgreSQL-backed repository for vault media
// attachments.
package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dwianugrah/keepsake/internal/common"
	"github.com/dwianugrah/keepsake/internal/dbx"
	"github.com/dwianugrah/keepsake/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) WithTx(tx dbx.DBTX) Repository {
	return &PostgresRepository{db: tx}
}

// AttachDraft inserts the attachment row, re-checking the vault state in the
// same statement. If the vault was sealed between the caller's authorization
// check and this write, zero rows are inserted and ErrorIllegalState is
// returned.
func (r *PostgresRepository) AttachDraft(ctx context.Context, m *models.Media) error {
	query := `
		INSERT INTO vault_media (id, vault_id, media_kind, storage_key, caption)
		SELECT $1, v.id, $3, $4, $5
		FROM vaults v
		WHERE v.id = $2 AND v.sealed_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, m.ID, m.VaultID, m.Kind, m.StorageKey, m.Caption)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorIllegalState
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) ListByVault(ctx context.Context, vaultID string) ([]*models.Media, error) {
	query := `
		SELECT id, vault_id, media_kind, storage_key, caption, created_at
		FROM vault_media
		WHERE vault_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, vaultID)
	if err != nil {
		return nil, fmt.Errorf("failed to select media: %w", err)
	}
	defer rows.Close()

	var result []*models.Media
	for rows.Next() {
		var m models.Media
		if err := rows.Scan(&m.ID, &m.VaultID, &m.Kind, &m.StorageKey, &m.Caption, &m.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetForGuardian resolves an attachment through its vault's child, so media
// of other guardians is indistinguishable from missing media.
func (r *PostgresRepository) GetForGuardian(ctx context.Context, mediaID, guardianID string) (*models.Media, error) {
	query := `
		SELECT m.id, m.vault_id, m.media_kind, m.storage_key, m.caption, m.created_at
		FROM vault_media m
		JOIN vaults v ON m.vault_id = v.id
		JOIN children c ON v.child_id = c.id
		WHERE m.id = $1 AND c.user_id = $2
	`
	var m models.Media
	err := r.db.QueryRowContext(ctx, query, mediaID, guardianID).
		Scan(&m.ID, &m.VaultID, &m.Kind, &m.StorageKey, &m.Caption, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &m, nil
}

func (r *PostgresRepository) StorageKeysByVault(ctx context.Context, vaultID string) ([]string, error) {
	query := `SELECT storage_key FROM vault_media WHERE vault_id = $1`
	rows, err := r.db.QueryContext(ctx, query, vaultID)
	if err != nil {
		return nil, fmt.Errorf("failed to select storage keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *PostgresRepository) DeleteByVault(ctx context.Context, vaultID string) error {
	query := `DELETE FROM vault_media WHERE vault_id = $1`
	if _, err := r.db.ExecContext(ctx, query, vaultID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
