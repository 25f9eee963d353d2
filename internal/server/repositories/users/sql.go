// Package users implements the account table of the credential store on
// SQLite and PostgreSQL.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pd15/saocontacts/internal/common"
	"github.com/pd15/saocontacts/internal/dbx"
	"github.com/pd15/saocontacts/internal/server/models"
)

const userColumns = `id, username, email, password_hash, is_verified, is_admin,
		failed_login_attempts, locked_until, created_at, last_login`

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsVerified, &u.IsAdmin,
		&u.FailedLoginAttempts, &u.LockedUntil, &u.CreatedAt, &u.LastLogin)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *SQLRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := r.dialect.Rebind(
		`INSERT INTO users (username, email, password_hash, is_verified, is_admin, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING id`)

	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.IsVerified, user.IsAdmin, user.CreatedAt).Scan(&user.ID)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *SQLRepository) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, r.dialect.Rebind(query), args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *SQLRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *SQLRepository) GetByEmailForUpdate(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`+r.dialect.ForUpdate(), email)
}

func (r *SQLRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	query := r.dialect.Rebind(`SELECT COUNT(*) FROM users WHERE username = ? OR email = ?`)

	var n int
	if err := r.db.QueryRowContext(ctx, query, username, email).Scan(&n); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

// List returns every account, newest first.
func (r *SQLRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) CountAdmins(ctx context.Context) (int, error) {
	query := r.dialect.Rebind(`SELECT COUNT(*) FROM users WHERE is_admin = ?`)

	var n int
	if err := r.db.QueryRowContext(ctx, query, true).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// exec runs a single-row UPDATE/DELETE and reports a missing row as
// common.ErrorNotFound.
func (r *SQLRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), args...)
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

func (r *SQLRepository) MarkVerified(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE users SET is_verified = ? WHERE id = ?`, true, id)
}

func (r *SQLRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.exec(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
}

func (r *SQLRepository) ClearLock(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE users SET failed_login_attempts = 0, locked_until = NULL WHERE id = ?`, id)
}

func (r *SQLRepository) RecordFailure(ctx context.Context, id int64, threshold int, lockUntil time.Time) (int, error) {
	query := r.dialect.Rebind(
		`UPDATE users
		 SET failed_login_attempts = failed_login_attempts + 1,
		     locked_until = CASE WHEN failed_login_attempts + 1 >= ? THEN ? ELSE locked_until END
		 WHERE id = ?
		 RETURNING failed_login_attempts`)

	var attempts int
	err := r.db.QueryRowContext(ctx, query, threshold, lockUntil, id).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return attempts, nil
}

func (r *SQLRepository) RecordLogin(ctx context.Context, id int64, at time.Time) error {
	return r.exec(ctx,
		`UPDATE users SET failed_login_attempts = 0, locked_until = NULL, last_login = ? WHERE id = ?`, at, id)
}

func (r *SQLRepository) SetAdmin(ctx context.Context, id int64, admin bool) error {
	return r.exec(ctx, `UPDATE users SET is_admin = ? WHERE id = ?`, admin, id)
}

func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	return r.exec(ctx, `DELETE FROM users WHERE id = ?`, id)
}
