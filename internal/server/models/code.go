package models

import "time"

// CodePurpose separates registration codes from password reset codes so one
// can never be redeemed as the other.
type CodePurpose string

const (
	PurposeRegistration CodePurpose = "registration"
	PurposeReset        CodePurpose = "reset"
)

// VerificationCode is a 6-digit code mailed to prove control of an address.
type VerificationCode struct {
	ID        int64
	UserID    int64
	Code      string
	Purpose   CodePurpose
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// LoginPIN is a hashed one-time login PIN.
type LoginPIN struct {
	ID        int64
	UserID    int64
	PINHash   string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}
