package auth

import (
	"fmt"
	"math"
	"time"

	"github.com/mcoot/playerinfo-proxy/internal/shardmap"
)

// LockedError reports a login refused because the account is locked
type LockedError struct {
	// Remaining is the time left until the lock lapses
	Remaining time.Duration
	// JustLocked is set when this attempt was the one that triggered the lock
	JustLocked bool
}

// RemainingMinutes is Remaining rounded up to whole minutes
func (e *LockedError) RemainingMinutes() int {
	return int(math.Ceil(e.Remaining.Minutes()))
}

func (e *LockedError) Error() string {
	if e.JustLocked {
		return fmt.Sprintf("too many failed attempts, account locked for %d minutes", e.RemainingMinutes())
	}
	return fmt.Sprintf("account locked, retry in %d minutes", e.RemainingMinutes())
}

func (e *LockedError) Unwrap() error {
	return ErrAccountLocked
}

type lockoutState struct {
	failures    int
	lockedUntil time.Time
}

// lockouts tracks failed attempts per username.
// A lock lapses lazily: the first look after it expires clears the entry.
type lockouts struct {
	states *shardmap.Map[string, lockoutState]
}

func newLockouts() *lockouts {
	return &lockouts{states: shardmap.New[string, lockoutState](shardmap.DefaultShards)}
}

// check returns the remaining lock time, or zero when username may attempt a login
func (l *lockouts) check(username string, now time.Time) time.Duration {
	var remaining time.Duration
	l.states.Compute(username, func(st lockoutState, loaded bool) (lockoutState, bool) {
		if !loaded {
			return st, false
		}
		if st.lockedUntil.IsZero() {
			return st, true
		}
		if now.Before(st.lockedUntil) {
			remaining = st.lockedUntil.Sub(now)
			return st, true
		}
		return st, false
	})
	return remaining
}

// fail records a failed attempt. It returns the lock duration when the
// account is (or already was) locked after this attempt.
func (l *lockouts) fail(username string, now time.Time, maxAttempts int, lockFor time.Duration) (time.Duration, bool) {
	var remaining time.Duration
	var justLocked bool
	l.states.Compute(username, func(st lockoutState, loaded bool) (lockoutState, bool) {
		if loaded && !st.lockedUntil.IsZero() {
			if now.Before(st.lockedUntil) {
				remaining = st.lockedUntil.Sub(now)
				return st, true
			}
			st = lockoutState{}
		}
		st.failures++
		if st.failures >= maxAttempts {
			st.lockedUntil = now.Add(lockFor)
			remaining = lockFor
			justLocked = true
		}
		return st, true
	})
	return remaining, justLocked
}

// failures returns the current failure count for username
func (l *lockouts) failures(username string) int {
	st, _ := l.states.Load(username)
	return st.failures
}

func (l *lockouts) clear(username string) {
	l.states.Delete(username)
}
