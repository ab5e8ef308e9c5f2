// Package identity implements the credential and session core for the
// course platform: registration, email verification with one-time codes,
// brute-force lockout, and JWT session issuance.
//
// Credential lifecycle:
//   - Credentials are created unverified with a pending OTP. Exactly one
//     successful OTP validation flips them to verified and clears the code.
//     Reissuing a code replaces the pending one wholesale; only one code is
//     ever live per credential.
//   - Failed logins increment a per-credential counter; reaching the
//     threshold locks the account for a fixed window. Counter and lock are
//     mutated through single-statement conditional updates so concurrent
//     attempts against the same credential never lose updates.
//
// Sessions:
//   - TokenService signs HS256 bearer tokens over the credential id with a
//     process-wide secret loaded from configuration. Validation re-resolves
//     the credential and rejects subjects that no longer exist or are no
//     longer verified, which is what gives tokens their
//     revoke-by-deleting semantics.
//
// Notifications:
//   - Notifier is a best-effort capability. Sends happen after the primary
//     state transition commits and run under a bounded timeout; failures
//     are logged, never surfaced to the caller.
package identity
