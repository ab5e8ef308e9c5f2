package identity

import "time"

// MaxFailedAttempts is the number of consecutive password failures that
// triggers a lockout.
const MaxFailedAttempts = 5

// LockoutPeriod is how long a triggered lockout lasts.
const LockoutPeriod = 2 * time.Hour

// IsLockedOut reports whether lockedUntil marks an active window.
func IsLockedOut(lockedUntil *time.Time, now time.Time) bool {
	return lockedUntil != nil && lockedUntil.After(now)
}

// NextFailureState computes the counter/lock pair that recording one more
// failure yields. Reaching the threshold sets the lock and resets the
// counter in the same transition, so an established lock stays independent
// of further attempts until it expires.
//
// The credentials repository applies this transition as a single SQL
// statement; this function exists so the arithmetic is testable and the
// statement has a reference semantics.
func NextFailureState(failedAttempts int, lockedUntil *time.Time, now time.Time) (int, *time.Time) {
	next := failedAttempts + 1
	if next >= MaxFailedAttempts {
		until := now.Add(LockoutPeriod)
		return 0, &until
	}
	return next, lockedUntil
}
