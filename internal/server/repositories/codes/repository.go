// Package codes stores the 6-digit email verification and password reset codes.
package codes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pd15/saocontacts/internal/common"
	"github.com/pd15/saocontacts/internal/dbx"
	"github.com/pd15/saocontacts/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, code *models.VerificationCode) (*models.VerificationCode, error)
	// FindLatestUnused returns the newest unused code for the user that
	// matches value and purpose, whether or not it has expired.
	FindLatestUnused(ctx context.Context, userID int64, purpose models.CodePurpose, value string) (*models.VerificationCode, error)
	MarkUsed(ctx context.Context, id int64) error
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
}

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Create(ctx context.Context, c *models.VerificationCode) (*models.VerificationCode, error) {
	query := r.dialect.Rebind(
		`INSERT INTO email_verification (user_id, verification_code, purpose, expires_at, used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING id`)

	err := r.db.QueryRowContext(ctx, query,
		c.UserID, c.Code, string(c.Purpose), c.ExpiresAt, false, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *SQLRepository) FindLatestUnused(ctx context.Context, userID int64, purpose models.CodePurpose, value string) (*models.VerificationCode, error) {
	query := r.dialect.Rebind(
		`SELECT id, user_id, verification_code, purpose, expires_at, used, created_at
		 FROM email_verification
		 WHERE user_id = ? AND purpose = ? AND verification_code = ? AND used = ?
		 ORDER BY id DESC
		 LIMIT 1`)

	c := &models.VerificationCode{}
	var purposeStr string
	err := r.db.QueryRowContext(ctx, query, userID, string(purpose), value, false).
		Scan(&c.ID, &c.UserID, &c.Code, &purposeStr, &c.ExpiresAt, &c.Used, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	c.Purpose = models.CodePurpose(purposeStr)
	return c, nil
}

// MarkUsed flips used from false to true. A code that is already used
// reports common.ErrorNotFound.
func (r *SQLRepository) MarkUsed(ctx context.Context, id int64) error {
	query := r.dialect.Rebind(`UPDATE email_verification SET used = ? WHERE id = ? AND used = ?`)

	res, err := r.db.ExecContext(ctx, query, true, id, false)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM email_verification WHERE user_id = ?`), userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
