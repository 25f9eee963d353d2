package users

import (
	"context"
	"time"

	"github.com/pd15/saocontacts/internal/server/models"
)

// Repository persists user accounts.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByEmailForUpdate also takes a row lock where the backend supports it.
	GetByEmailForUpdate(ctx context.Context, email string) (*models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	List(ctx context.Context) ([]*models.User, error)
	CountAdmins(ctx context.Context) (int, error)

	MarkVerified(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	ClearLock(ctx context.Context, id int64) error
	// RecordFailure atomically bumps the failed-attempt counter and sets
	// locked_until when the counter reaches threshold. It returns the new count.
	RecordFailure(ctx context.Context, id int64, threshold int, lockUntil time.Time) (int, error)
	RecordLogin(ctx context.Context, id int64, at time.Time) error
	SetAdmin(ctx context.Context, id int64, admin bool) error
	Delete(ctx context.Context, id int64) error
}
