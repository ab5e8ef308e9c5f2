package identity

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// OTPLength is the number of digits in a verification code.
const OTPLength = 6

// OTPLifetime is how long a code stays valid after issuance. The code space
// is only 10^6, so the short window is the binding defense, not the code
// entropy.
const OTPLifetime = 10 * time.Minute

var otpCodeSpace = big.NewInt(1_000_000)

// GenerateOTP draws a fixed-length numeric code from a uniform distribution.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpCodeSpace)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification code")
	}
	return fmt.Sprintf("%0*d", OTPLength, n), nil
}

// NewPendingOTP generates a fresh code and its expiry. Applying it to a
// credential that already holds a pending code replaces that code wholesale;
// only one code is ever live per credential.
func NewPendingOTP(now time.Time) (code string, expiresAt time.Time, err error) {
	code, err = GenerateOTP()
	if err != nil {
		return "", time.Time{}, err
	}
	return code, now.Add(OTPLifetime), nil
}

// ValidateOTP checks a submitted code against the credential's current
// verification state. It returns nil only when the live code matches before
// its expiry; the caller is then responsible for consuming the code through
// a single conditional update.
//
// The expiry boundary is inclusive: a submission at exactly the expiry
// instant fails Expired, never Mismatch, even when the code is correct.
func ValidateOTP(cred *Credential, submitted string, now time.Time) error {
	state := cred.VerificationState()

	switch state.Kind {
	case StateVerified:
		return ErrAlreadyVerified
	case StateUnverifiedNoCode:
		return ErrNoCodeIssued
	}

	if !now.Before(state.ExpiresAt) {
		return ErrOTPExpired
	}

	if subtle.ConstantTimeCompare([]byte(state.Code), []byte(submitted)) != 1 {
		return ErrOTPMismatch
	}

	return nil
}
