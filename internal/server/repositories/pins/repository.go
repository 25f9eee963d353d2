// Package pins stores hashed one-time login PINs.
package pins

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
	Create(ctx context.Context, pin *models.LoginPIN) (*models.LoginPIN, error)
	// LatestUnused returns the most recently issued unused PIN. Older unused
	// PINs are never returned while a newer one exists.
	LatestUnused(ctx context.Context, userID int64) (*models.LoginPIN, error)
	MarkUsed(ctx context.Context, id int64) error
	// InvalidateOlder marks every unused PIN issued before id as used, so a
	// superseded PIN cannot resurface once the newest one is consumed.
	InvalidateOlder(ctx context.Context, userID, id int64) (int64, error)
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
}

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Create(ctx context.Context, p *models.LoginPIN) (*models.LoginPIN, error) {
	query := r.dialect.Rebind(
		`INSERT INTO login_pins (user_id, pin_hash, expires_at, used, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id`)

	err := r.db.QueryRowContext(ctx, query, p.UserID, p.PINHash, p.ExpiresAt, false, p.CreatedAt).Scan(&p.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *SQLRepository) LatestUnused(ctx context.Context, userID int64) (*models.LoginPIN, error) {
	query := r.dialect.Rebind(
		`SELECT id, user_id, pin_hash, expires_at, used, created_at
		 FROM login_pins
		 WHERE user_id = ? AND used = ?
		 ORDER BY id DESC
		 LIMIT 1`)

	p := &models.LoginPIN{}
	err := r.db.QueryRowContext(ctx, query, userID, false).
		Scan(&p.ID, &p.UserID, &p.PINHash, &p.ExpiresAt, &p.Used, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *SQLRepository) MarkUsed(ctx context.Context, id int64) error {
	query := r.dialect.Rebind(`UPDATE login_pins SET used = ? WHERE id = ? AND used = ?`)

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

func (r *SQLRepository) InvalidateOlder(ctx context.Context, userID, id int64) (int64, error) {
	query := r.dialect.Rebind(`UPDATE login_pins SET used = ? WHERE user_id = ? AND id < ? AND used = ?`)

	res, err := r.db.ExecContext(ctx, query, true, userID, id, false)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM login_pins WHERE user_id = ?`), userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
