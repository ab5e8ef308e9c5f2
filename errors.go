package identity

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeValidation         = "VALIDATION_ERROR"
	textCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	textCodeCredentialNotFound = "CREDENTIAL_NOT_FOUND"
	textCodeAlreadyVerified    = "ALREADY_VERIFIED"
	textCodeNoCodeIssued       = "NO_CODE_ISSUED"
	textCodeOTPExpired         = "OTP_EXPIRED"
	textCodeOTPMismatch        = "OTP_MISMATCH"
	textCodeAccountLocked      = "ACCOUNT_LOCKED"
	textCodeNotVerified        = "NOT_VERIFIED"
	textCodeInvalidCredentials = "INVALID_CREDENTIALS"
	textCodeInvalidToken       = "INVALID_TOKEN"
	textCodeTokenExpired       = "TOKEN_EXPIRED"
)

// ErrDuplicateEmail is returned when registration hits an existing email.
var ErrDuplicateEmail = goerrors.New("a user already exists with this email", goerrors.CategoryConflict).
	WithTextCode(textCodeDuplicateEmail).
	WithCode(goerrors.CodeBadRequest)

// ErrCredentialNotFound is returned when the email resolves to no record.
var ErrCredentialNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode(textCodeCredentialNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrAlreadyVerified is returned for any OTP operation against a verified
// credential.
var ErrAlreadyVerified = goerrors.New("user already verified", goerrors.CategoryConflict).
	WithTextCode(textCodeAlreadyVerified).
	WithCode(goerrors.CodeBadRequest)

// ErrNoCodeIssued is returned when validation runs with no live code.
var ErrNoCodeIssued = goerrors.New("no verification code issued, request a new one", goerrors.CategoryValidation).
	WithTextCode(textCodeNoCodeIssued).
	WithCode(goerrors.CodeBadRequest)

// ErrOTPExpired is returned at or after the code's expiry instant, even when
// the submitted code matches.
var ErrOTPExpired = goerrors.New("verification code has expired, request a new one", goerrors.CategoryValidation).
	WithTextCode(textCodeOTPExpired).
	WithCode(goerrors.CodeBadRequest)

// ErrOTPMismatch is returned when the submitted code differs from the live one.
var ErrOTPMismatch = goerrors.New("invalid verification code", goerrors.CategoryValidation).
	WithTextCode(textCodeOTPMismatch).
	WithCode(goerrors.CodeBadRequest)

// ErrAccountLocked rejects logins while the lockout window is active. It is
// checked before any password comparison.
var ErrAccountLocked = goerrors.New("account temporarily locked due to too many failed login attempts", goerrors.CategoryRateLimit).
	WithTextCode(textCodeAccountLocked).
	WithCode(http.StatusLocked)

// ErrNotVerified rejects logins for credentials that never completed email
// verification.
var ErrNotVerified = goerrors.New("please verify your email first", goerrors.CategoryAuth).
	WithTextCode(textCodeNotVerified).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidCredentials covers both an unknown email and a wrong password.
// The two cases are deliberately indistinguishable to prevent account
// enumeration.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidToken covers forged, malformed, or orphaned bearer tokens,
// including tokens whose subject no longer resolves to a verified credential.
var ErrInvalidToken = goerrors.New("invalid authentication token", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned for structurally valid tokens past their expiry.
var ErrTokenExpired = goerrors.New("authentication token expired", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ValidationError wraps a per-field error map produced at the HTTP boundary.
func ValidationError(fields map[string]string) *goerrors.Error {
	meta := make(map[string]any, len(fields))
	for k, v := range fields {
		meta[k] = v
	}
	return goerrors.New("invalid request payload", goerrors.CategoryValidation).
		WithTextCode(textCodeValidation).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(meta)
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
