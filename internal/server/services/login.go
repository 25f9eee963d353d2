package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pd15/saocontacts/internal/common"
	"github.com/pd15/saocontacts/internal/dbx"
	"github.com/pd15/saocontacts/internal/delivery"
	"github.com/pd15/saocontacts/internal/metrics"
	"github.com/pd15/saocontacts/internal/policy"
	"github.com/pd15/saocontacts/internal/server/models"
	"github.com/pd15/saocontacts/internal/server/repositories/users"
	"github.com/pd15/saocontacts/internal/server/session"
)

const (
	MsgPINSent      = "Login PIN sent to your email"
	MsgLoginSuccess = "Login successful"
	MsgLoggedOut    = "Logged out"
)

// LoginService issues one-time PINs and checks them, tracking failed
// attempts and locking accounts that exceed the threshold.
type LoginService struct {
	core
}

func NewLoginService(d Deps) *LoginService {
	return &LoginService{core: newCore(d, "login")}
}

// IssuePIN mails a fresh PIN to a verified account. Earlier PINs stay in
// the store but only the newest one can be redeemed.
func (s *LoginService) IssuePIN(ctx context.Context, email string) error {
	email = policy.NormalizeEmail(email)

	pin, err := s.Generator.NumericCode()
	if err != nil {
		return s.storeFailure(ctx, "issue_pin", err)
	}
	pinHash, err := s.Hasher.Hash(pin)
	if err != nil {
		return s.storeFailure(ctx, "issue_pin", err)
	}

	now := s.Clock.Now()
	err = dbx.WithTx(ctx, s.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.Repos.Users(tx).GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrNotFoundOrUnverified
			}
			return err
		}
		if !user.IsVerified {
			return common.ErrNotFoundOrUnverified
		}

		_, err = s.Repos.PINs(tx).Create(ctx, &models.LoginPIN{
			UserID:    user.ID,
			PINHash:   pinHash,
			ExpiresAt: now.Add(s.Policy.PINTTL),
			CreatedAt: now,
		})
		return err
	})
	if err != nil {
		return s.storeFailure(ctx, "issue_pin", err)
	}

	s.Metrics.PINIssued()
	s.deliver(ctx, email, delivery.PINMessage(pin, s.Policy.PINTTL))
	return nil
}

// VerifyPIN authenticates email with pin and returns a new session.
//
// A locked account is rejected before the PIN is looked at and without
// counting an attempt. Every other failure is recorded against the account
// in the same transaction that observed it, so concurrent attempts can never
// lose an increment.
func (s *LoginService) VerifyPIN(ctx context.Context, email, pin string) (*session.Session, error) {
	email = policy.NormalizeEmail(email)
	pin = strings.TrimSpace(pin)
	now := s.Clock.Now()

	var (
		sess    *session.Session
		outcome error
	)
	err := dbx.WithTx(ctx, s.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		usersRepo := s.Repos.Users(tx)

		user, err := usersRepo.GetByEmailForUpdate(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				outcome = common.ErrNoActivePIN
				return nil
			}
			return err
		}

		if user.LockedAt(now) {
			outcome = &common.LockedError{Until: *user.LockedUntil, Remaining: user.LockedUntil.Sub(now)}
			return nil
		}
		if user.StaleLock(now) {
			if err := usersRepo.ClearLock(ctx, user.ID); err != nil {
				return err
			}
			user.FailedLoginAttempts = 0
			user.LockedUntil = nil
		}

		if !user.IsVerified {
			outcome = common.ErrNoActivePIN
			return s.recordFailure(ctx, usersRepo, user.ID, now)
		}

		pinsRepo := s.Repos.PINs(tx)
		p, err := pinsRepo.LatestUnused(ctx, user.ID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				outcome = common.ErrNoActivePIN
				return s.recordFailure(ctx, usersRepo, user.ID, now)
			}
			return err
		}
		if policy.Expired(p.ExpiresAt, now) {
			outcome = common.ErrPINExpired
			return s.recordFailure(ctx, usersRepo, user.ID, now)
		}
		if !s.Hasher.Verify(pin, p.PINHash) {
			outcome = common.ErrInvalidPIN
			return s.recordFailure(ctx, usersRepo, user.ID, now)
		}

		if err := pinsRepo.MarkUsed(ctx, p.ID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				outcome = common.ErrInvalidPIN
				return nil
			}
			return err
		}
		if _, err := pinsRepo.InvalidateOlder(ctx, user.ID, p.ID); err != nil {
			return err
		}
		if err := usersRepo.RecordLogin(ctx, user.ID, now); err != nil {
			return err
		}

		sess = session.New(user, now)
		return nil
	})
	if err != nil {
		s.Metrics.Login(metrics.LoginError)
		return nil, s.storeFailure(ctx, "verify_pin", err)
	}
	if outcome != nil {
		s.Metrics.Login(loginResult(outcome))
		s.log.Info(ctx, "login rejected", "email", email, "reason", common.KindOf(outcome).String())
		return nil, outcome
	}

	s.Metrics.Login(metrics.LoginSuccess)
	s.log.Info(ctx, "login succeeded", "user_id", sess.UserID)
	return sess, nil
}

// recordFailure counts one failed attempt, locking the account when the
// counter reaches the threshold.
func (s *LoginService) recordFailure(ctx context.Context, repo users.Repository, userID int64, now time.Time) error {
	threshold := s.Policy.LockoutThreshold
	attempts, err := repo.RecordFailure(ctx, userID, threshold, now.Add(s.Policy.LockoutDuration))
	if err != nil {
		return err
	}
	if attempts == threshold {
		s.Metrics.Locked()
		s.log.Warn(ctx, "account locked", "user_id", userID, "attempts", attempts)
	}
	return nil
}

func loginResult(err error) string {
	switch common.KindOf(err) {
	case common.KindAccountLocked:
		return metrics.LoginLocked
	case common.KindPINExpired:
		return metrics.LoginExpired
	default:
		return metrics.LoginInvalid
	}
}
