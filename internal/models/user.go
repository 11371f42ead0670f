package models

import "time"

// LoginTypeEmail is the default login-method tag for new profiles.
const LoginTypeEmail = "email"

// User captures the core fields of an authenticated identity.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile holds seller details and verification state, one row per user.
// OTP and OTPCreatedAt are either both nil or both set.
type Profile struct {
	UserID       int64      `json:"user_id"`
	PhoneNo      *string    `json:"phone_no,omitempty"`
	BusinessName *string    `json:"business_name,omitempty"`
	Verified     bool       `json:"verified"`
	OTP          *string    `json:"-"`
	OTPCreatedAt *time.Time `json:"-"`
	LoginType    string     `json:"login_type"`
}

// HasChallenge reports whether an OTP challenge is outstanding.
func (p Profile) HasChallenge() bool {
	return p.OTP != nil && p.OTPCreatedAt != nil
}
