package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pd15/saocontacts/internal/common"
	"github.com/pd15/saocontacts/internal/dbx"
	"github.com/pd15/saocontacts/internal/delivery"
	"github.com/pd15/saocontacts/internal/policy"
	"github.com/pd15/saocontacts/internal/server/models"
)

// Success messages rendered by presentation layers.
const (
	MsgRegistered     = "Registration successful! Please check your email for verification code."
	MsgVerified       = "Email verified successfully! You can now log in."
	MsgResetRequested = "If this email is registered, you will receive a reset code."
	MsgPasswordReset  = "Password reset successfully"
)

// AccountService registers accounts, verifies email ownership and resets
// passwords.
type AccountService struct {
	core
}

func NewAccountService(d Deps) *AccountService {
	return &AccountService{core: newCore(d, "accounts")}
}

// Register creates an unverified, non-admin account and mails it a
// verification code. The account and its code are committed together.
func (s *AccountService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = policy.NormalizeEmail(email)

	if username == "" {
		return nil, common.ErrInvalidUsername
	}
	if !s.Policy.IsDomainAllowed(email) {
		return nil, common.ErrDomainRejected
	}
	if !policy.IsFormatValid(email) {
		return nil, common.ErrInvalidFormat
	}
	if !policy.MeetsPasswordPolicy(password) {
		return nil, common.ErrWeakPassword
	}

	passwordHash, err := s.Hasher.Hash(password)
	if err != nil {
		return nil, s.storeFailure(ctx, "register", err)
	}
	code, err := s.Generator.NumericCode()
	if err != nil {
		return nil, s.storeFailure(ctx, "register", err)
	}

	now := s.Clock.Now()
	var user *models.User
	err = dbx.WithTx(ctx, s.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.Repos.Users(tx)

		exists, err := users.ExistsByUsernameOrEmail(ctx, username, email)
		if err != nil {
			return err
		}
		if exists {
			return common.ErrAlreadyExists
		}

		user, err = users.Create(ctx, &models.User{
			Username:     username,
			Email:        email,
			PasswordHash: passwordHash,
			CreatedAt:    now,
		})
		if err != nil {
			if errors.Is(err, common.ErrorConflict) {
				return common.ErrAlreadyExists
			}
			return err
		}

		_, err = s.Repos.Codes(tx).Create(ctx, &models.VerificationCode{
			UserID:    user.ID,
			Code:      code,
			Purpose:   models.PurposeRegistration,
			ExpiresAt: now.Add(s.Policy.VerificationTTL),
			CreatedAt: now,
		})
		return err
	})
	if err != nil {
		return nil, s.storeFailure(ctx, "register", err)
	}

	s.Metrics.Registered()
	s.log.Info(ctx, "account registered", "user_id", user.ID)
	s.deliver(ctx, email, delivery.RegistrationMessage(code, s.Policy.VerificationTTL))

	return user, nil
}

// VerifyEmail redeems a registration code and marks the account verified.
func (s *AccountService) VerifyEmail(ctx context.Context, email, code string) error {
	email = policy.NormalizeEmail(email)
	code = strings.TrimSpace(code)
	now := s.Clock.Now()

	err := dbx.WithTx(ctx, s.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.Repos.Users(tx).GetByEmailForUpdate(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidCode
			}
			return err
		}

		switch err := s.redeem(ctx, tx, user.ID, models.PurposeRegistration, code, now); {
		case errors.Is(err, common.ErrorNotFound):
			return common.ErrInvalidCode
		case errors.Is(err, errCodeExpired):
			return common.ErrCodeExpired
		case err != nil:
			return err
		}

		return s.Repos.Users(tx).MarkVerified(ctx, user.ID)
	})
	if err != nil {
		return s.storeFailure(ctx, "verify_email", err)
	}

	s.Metrics.Verified()
	s.log.Info(ctx, "email verified", "email", email)
	return nil
}

var errCodeExpired = errors.New("code expired")

// redeem marks the newest unused matching code as used. It returns
// common.ErrorNotFound when nothing matches and errCodeExpired, leaving the
// code untouched, when the match is past its expiry.
func (s *AccountService) redeem(ctx context.Context, tx dbx.DBTX, userID int64, purpose models.CodePurpose, code string, now time.Time) error {
	codes := s.Repos.Codes(tx)

	vc, err := codes.FindLatestUnused(ctx, userID, purpose, code)
	if err != nil {
		return err
	}
	if policy.Expired(vc.ExpiresAt, now) {
		return errCodeExpired
	}
	return codes.MarkUsed(ctx, vc.ID)
}

// RequestPasswordReset always answers with the same message so callers
// cannot learn whether an address is registered. Verified accounts get a
// reset code by mail.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) string {
	email = policy.NormalizeEmail(email)
	now := s.Clock.Now()

	code, err := s.Generator.NumericCode()
	if err != nil {
		s.log.Error(ctx, "reset code generation failed", "err", err)
		return MsgResetRequested
	}

	issued := false
	err = dbx.WithTx(ctx, s.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.Repos.Users(tx).GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil
			}
			return err
		}
		if !user.IsVerified {
			return nil
		}

		_, err = s.Repos.Codes(tx).Create(ctx, &models.VerificationCode{
			UserID:    user.ID,
			Code:      code,
			Purpose:   models.PurposeReset,
			ExpiresAt: now.Add(s.Policy.ResetTTL),
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
		issued = true
		return nil
	})
	if err != nil {
		s.log.Error(ctx, "reset request failed", "err", err)
		return MsgResetRequested
	}

	if issued {
		s.deliver(ctx, email, delivery.ResetMessage(code, s.Policy.ResetTTL))
	}
	return MsgResetRequested
}

// ResetPassword redeems a reset code and replaces the password hash.
func (s *AccountService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = policy.NormalizeEmail(email)
	code = strings.TrimSpace(code)

	if !policy.MeetsPasswordPolicy(newPassword) {
		return common.ErrWeakPassword
	}
	passwordHash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return s.storeFailure(ctx, "reset_password", err)
	}

	now := s.Clock.Now()
	err = dbx.WithTx(ctx, s.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.Repos.Users(tx).GetByEmailForUpdate(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidResetCode
			}
			return err
		}

		switch err := s.redeem(ctx, tx, user.ID, models.PurposeReset, code, now); {
		case errors.Is(err, common.ErrorNotFound):
			return common.ErrInvalidResetCode
		case errors.Is(err, errCodeExpired):
			return common.ErrResetCodeExpired
		case err != nil:
			return err
		}

		return s.Repos.Users(tx).UpdatePassword(ctx, user.ID, passwordHash)
	})
	if err != nil {
		return s.storeFailure(ctx, "reset_password", err)
	}

	s.Metrics.PasswordReset()
	s.log.Info(ctx, "password reset", "email", email)
	return nil
}
