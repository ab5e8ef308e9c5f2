package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Credential is the persisted identity record
type Credential struct {
	bun.BaseModel  `bun:"table:credentials,alias:cred"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FirstName      string     `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName       string     `bun:"last_name,notnull" json:"last_name,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"-"`
	EmailValidated bool       `bun:"is_verified" json:"is_verified"`
	OTPCode        *string    `bun:"otp_code,nullzero" json:"-"`
	OTPExpiresAt   *time.Time `bun:"otp_expires_at,nullzero" json:"-"`
	FailedAttempts int        `bun:"failed_attempts" json:"-"`
	LockedUntil    *time.Time `bun:"locked_until,nullzero" json:"-"`
	LastLoginAt    *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// NormalizeEmail lower-cases and trims an email for storage and lookup.
// Uniqueness is enforced against the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// VerificationStateKind tags the explicit credential state
type VerificationStateKind = string

const (
	// StateVerified means the email has been proven; no OTP may be live.
	StateVerified VerificationStateKind = "verified"
	// StateUnverifiedPending means a code was issued and has not been
	// consumed or replaced.
	StateUnverifiedPending VerificationStateKind = "unverified_pending"
	// StateUnverifiedNoCode means no code is currently live.
	StateUnverifiedNoCode VerificationStateKind = "unverified_no_code"
)

// VerificationState holds the tagged view of the nullable OTP columns so
// callers never have to reason about half-set code/expiry pairs.
type VerificationState struct {
	Kind      VerificationStateKind
	Code      string
	ExpiresAt time.Time
}

// VerificationState derives the explicit state from the stored columns.
// A verified credential never reports a pending code, and a code missing
// either half of the (code, expiry) pair is treated as absent.
func (c *Credential) VerificationState() VerificationState {
	if c.EmailValidated {
		return VerificationState{Kind: StateVerified}
	}

	if c.OTPCode == nil || c.OTPExpiresAt == nil {
		return VerificationState{Kind: StateUnverifiedNoCode}
	}

	return VerificationState{
		Kind:      StateUnverifiedPending,
		Code:      *c.OTPCode,
		ExpiresAt: *c.OTPExpiresAt,
	}
}

// IsLocked reports whether the credential is inside an active lockout window.
func (c *Credential) IsLocked(now time.Time) bool {
	return IsLockedOut(c.LockedUntil, now)
}

// FullName joins first and last name for notification payloads.
func (c *Credential) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Identity adapts the record to the Identity interface so callers can mint
// session tokens for it.
func (c *Credential) Identity() Identity {
	return credIdentity{c}
}

// PublicCredential is the JSON shape exposed over HTTP. It never carries
// the password hash, OTP fields, or lockout bookkeeping.
type PublicCredential struct {
	ID          uuid.UUID  `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email"`
	IsVerified  bool       `json:"is_verified"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// Public returns the exportable view of the credential.
func (c *Credential) Public() *PublicCredential {
	return &PublicCredential{
		ID:          c.ID,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		IsVerified:  c.EmailValidated,
		LastLoginAt: c.LastLoginAt,
		CreatedAt:   c.CreatedAt,
	}
}
