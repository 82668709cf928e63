// Package letters provides the PostgreSQL-backed repository for scheduled
// letters.
package letters

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

const letterColumns = `id, child_id, user_id, title, content, unlock_date, unlock_occasion, is_sent, created_at`

func (r *PostgresRepository) Create(ctx context.Context, l *models.ScheduledLetter) error {
	query := `
		INSERT INTO scheduled_letters (id, child_id, user_id, title, content, unlock_date, unlock_occasion)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		l.ID, l.ChildID, l.UserID, l.Title, l.Content, l.UnlockDate, l.UnlockOccasion).
		Scan(&l.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, letterID string) (*models.ScheduledLetter, error) {
	query := `SELECT ` + letterColumns + ` FROM scheduled_letters WHERE id = $1`
	var l models.ScheduledLetter
	err := r.db.QueryRowContext(ctx, query, letterID).Scan(
		&l.ID, &l.ChildID, &l.UserID, &l.Title, &l.Content, &l.UnlockDate, &l.UnlockOccasion, &l.Sent, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &l, nil
}

func (r *PostgresRepository) ListByChild(ctx context.Context, childID string) ([]*models.ScheduledLetter, error) {
	query := `SELECT ` + letterColumns + ` FROM scheduled_letters WHERE child_id = $1 ORDER BY unlock_date`
	rows, err := r.db.QueryContext(ctx, query, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to select letters: %w", err)
	}
	defer rows.Close()

	var result []*models.ScheduledLetter
	for rows.Next() {
		var l models.ScheduledLetter
		if err := rows.Scan(&l.ID, &l.ChildID, &l.UserID, &l.Title, &l.Content, &l.UnlockDate,
			&l.UnlockOccasion, &l.Sent, &l.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkSent flips the sent flag exactly once.
func (r *PostgresRepository) MarkSent(ctx context.Context, letterID string) error {
	query := `UPDATE scheduled_letters SET is_sent = TRUE WHERE id = $1 AND is_sent = FALSE`
	res, err := r.db.ExecContext(ctx, query, letterID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorIllegalState
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, letterID, authorID string) error {
	query := `DELETE FROM scheduled_letters WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, letterID, authorID)
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
