// Package children provides the PostgreSQL-backed repository for child
// records. Child ownership is the authorization root consumed by the vault,
// grant and letter services.
package children

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

const childColumns = `id, user_id, name, dob, gender, blood_type, notes, photo_url, created_at`

func (r *PostgresRepository) Create(ctx context.Context, c *models.Child) error {
	query := `
		INSERT INTO children (id, user_id, name, dob, gender, blood_type, notes, photo_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		c.ID, c.UserID, c.Name, c.DOB, c.Gender, c.BloodType, c.Notes, c.PhotoURL).
		Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, childID string) (*models.Child, error) {
	query := `SELECT ` + childColumns + ` FROM children WHERE id = $1`
	var c models.Child
	err := r.db.QueryRowContext(ctx, query, childID).Scan(
		&c.ID, &c.UserID, &c.Name, &c.DOB, &c.Gender, &c.BloodType, &c.Notes, &c.PhotoURL, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &c, nil
}

func (r *PostgresRepository) ListForGuardian(ctx context.Context, guardianID string) ([]*models.Child, error) {
	query := `SELECT ` + childColumns + ` FROM children WHERE user_id = $1 ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, guardianID)
	if err != nil {
		return nil, fmt.Errorf("failed to select children: %w", err)
	}
	defer rows.Close()

	var result []*models.Child
	for rows.Next() {
		var c models.Child
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.DOB, &c.Gender, &c.BloodType,
			&c.Notes, &c.PhotoURL, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update rewrites the record, scoped to the owning guardian.
func (r *PostgresRepository) Update(ctx context.Context, c *models.Child) error {
	query := `
		UPDATE children
		SET name = $3, dob = $4, gender = $5, blood_type = $6, notes = $7, photo_url = $8
		WHERE id = $1 AND user_id = $2
	`
	res, err := r.db.ExecContext(ctx, query,
		c.ID, c.UserID, c.Name, c.DOB, c.Gender, c.BloodType, c.Notes, c.PhotoURL)
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

func (r *PostgresRepository) Delete(ctx context.Context, childID string) error {
	query := `DELETE FROM children WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, childID)
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
