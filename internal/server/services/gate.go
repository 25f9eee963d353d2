package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pd15/saocontacts/internal/common"
	"github.com/pd15/saocontacts/internal/dbx"
	"github.com/pd15/saocontacts/internal/policy"
	"github.com/pd15/saocontacts/internal/server/models"
	"github.com/pd15/saocontacts/internal/server/repositories/users"
	"github.com/pd15/saocontacts/internal/server/session"
)

const activeWindow = 7 * 24 * time.Hour

// Confirmations for admin operations, keyed by the target address.
func PromotedMessage(email string) string {
	return fmt.Sprintf("User %s is now an admin", policy.NormalizeEmail(email))
}

func DemotedMessage(email string) string {
	return fmt.Sprintf("Admin privileges removed from %s", policy.NormalizeEmail(email))
}

func DeletedMessage(email string) string {
	return fmt.Sprintf("User %s deleted successfully", policy.NormalizeEmail(email))
}

// Gate guards the administrative account operations. Every call checks the
// acting session and then re-reads the actor from the store, so an admin that
// was demoted or deleted meanwhile is refused.
type Gate struct {
	core
}

func NewGate(d Deps) *Gate {
	return &Gate{core: newCore(d, "gate")}
}

func requireAdmin(actor *session.Session) error {
	if !session.IsAuthenticated(actor) {
		return common.ErrNotAuthenticated
	}
	if !session.IsAdmin(actor) {
		return common.ErrNotAdmin
	}
	return nil
}

func confirmAdmin(ctx context.Context, repo users.Repository, actor *session.Session) (*models.User, error) {
	u, err := repo.GetByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrNotAuthenticated
		}
		return nil, err
	}
	if !u.IsAdmin {
		return nil, common.ErrNotAdmin
	}
	return u, nil
}

func sameEmail(actor *session.Session, email string) bool {
	return actor != nil && policy.NormalizeEmail(actor.Email) == policy.NormalizeEmail(email)
}

type adminFunc func(ctx context.Context, tx dbx.DBTX, self, target *models.User) error

// adminTx runs fn in one transaction after confirming the actor and locking
// the target account.
func (g *Gate) adminTx(ctx context.Context, op string, actor *session.Session, email string, fn adminFunc) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	email = policy.NormalizeEmail(email)

	err := dbx.WithTx(ctx, g.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := g.Repos.Users(tx)

		self, err := confirmAdmin(ctx, repo, actor)
		if err != nil {
			return err
		}

		target, err := repo.GetByEmailForUpdate(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrAccountNotFound
			}
			return err
		}

		return fn(ctx, tx, self, target)
	})
	if err != nil {
		return g.storeFailure(ctx, op, err)
	}

	g.log.Info(ctx, "admin operation", "op", op, "actor_id", actor.UserID, "target", email)
	return nil
}

// Promote grants the admin role.
func (g *Gate) Promote(ctx context.Context, actor *session.Session, email string) error {
	return g.adminTx(ctx, "promote", actor, email, func(ctx context.Context, tx dbx.DBTX, _, target *models.User) error {
		return g.Repos.Users(tx).SetAdmin(ctx, target.ID, true)
	})
}

// Demote revokes the admin role. An admin can never demote themself.
func (g *Gate) Demote(ctx context.Context, actor *session.Session, email string) error {
	if session.IsAdmin(actor) && sameEmail(actor, email) {
		return common.ErrSelfDemotion
	}
	return g.adminTx(ctx, "demote", actor, email, func(ctx context.Context, tx dbx.DBTX, self, target *models.User) error {
		if self.ID == target.ID {
			return common.ErrSelfDemotion
		}
		return g.Repos.Users(tx).SetAdmin(ctx, target.ID, false)
	})
}

// Delete removes the account after its PINs and verification codes.
func (g *Gate) Delete(ctx context.Context, actor *session.Session, email string) error {
	if session.IsAdmin(actor) && sameEmail(actor, email) {
		return common.ErrSelfDeletion
	}
	return g.adminTx(ctx, "delete", actor, email, func(ctx context.Context, tx dbx.DBTX, self, target *models.User) error {
		if self.ID == target.ID {
			return common.ErrSelfDeletion
		}
		if _, err := g.Repos.PINs(tx).DeleteByUser(ctx, target.ID); err != nil {
			return err
		}
		if _, err := g.Repos.Codes(tx).DeleteByUser(ctx, target.ID); err != nil {
			return err
		}
		return g.Repos.Users(tx).Delete(ctx, target.ID)
	})
}

// List returns every account, newest first.
func (g *Gate) List(ctx context.Context, actor *session.Session) ([]models.AccountSummary, error) {
	all, err := g.accounts(ctx, actor)
	if err != nil {
		return nil, err
	}

	out := make([]models.AccountSummary, 0, len(all))
	for _, u := range all {
		out = append(out, u.Summary())
	}
	return out, nil
}

// Stats counts accounts for the admin overview. Active means logged in
// within the last seven days.
func (g *Gate) Stats(ctx context.Context, actor *session.Session) (models.AccountStats, error) {
	all, err := g.accounts(ctx, actor)
	if err != nil {
		return models.AccountStats{}, err
	}

	since := g.Clock.Now().Add(-activeWindow)
	var st models.AccountStats
	for _, u := range all {
		st.Total++
		if u.IsVerified {
			st.Verified++
		}
		if u.IsAdmin {
			st.Admins++
		}
		if u.LastLogin != nil && !u.LastLogin.Before(since) {
			st.ActiveRecent++
		}
	}
	return st, nil
}

func (g *Gate) accounts(ctx context.Context, actor *session.Session) ([]*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	repo := g.Repos.Users(g.DB)
	if _, err := confirmAdmin(ctx, repo, actor); err != nil {
		return nil, g.storeFailure(ctx, "list", err)
	}

	all, err := repo.List(ctx)
	if err != nil {
		return nil, g.storeFailure(ctx, "list", err)
	}
	return all, nil
}

// Bootstrap makes email the first admin. It refuses once any admin exists,
// so it can only ever seed an empty directory.
func (g *Gate) Bootstrap(ctx context.Context, email string) error {
	email = policy.NormalizeEmail(email)

	err := dbx.WithTx(ctx, g.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := g.Repos.Users(tx)

		n, err := repo.CountAdmins(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return common.ErrAdminExists
		}

		u, err := repo.GetByEmailForUpdate(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrNotFoundOrUnverified
			}
			return err
		}
		if !u.IsVerified {
			return common.ErrNotFoundOrUnverified
		}

		return repo.SetAdmin(ctx, u.ID, true)
	})
	if err != nil {
		return g.storeFailure(ctx, "bootstrap", err)
	}

	g.log.Info(ctx, "bootstrap admin granted", "email", email)
	return nil
}
