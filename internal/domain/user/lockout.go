package user

import "time"

const (
	DefaultMaxFailedAttempts = 5
	DefaultLockoutDuration   = 15 * time.Minute
)

// LockoutPolicy - временная блокировка после серии неудачных попыток входа
type LockoutPolicy struct {
	MaxFailedAttempts int
	Duration          time.Duration
}

func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{
		MaxFailedAttempts: DefaultMaxFailedAttempts,
		Duration:          DefaultLockoutDuration,
	}
}

// expireLock снимает истекшую блокировку и обнуляет счетчик,
// чтобы попытка после окна оценивалась как будто блокировки не было
func expireLock(u *User, now time.Time) bool {
	if u.LockedUntil == nil || u.IsLocked(now) {
		return false
	}
	u.LockedUntil = nil
	u.FailedAttempts = 0
	return true
}

// registerFailure увеличивает счетчик и выставляет блокировку при достижении порога
func (p LockoutPolicy) registerFailure(u *User, now time.Time) (locked bool) {
	u.FailedAttempts++
	if u.FailedAttempts >= p.MaxFailedAttempts {
		until := now.Add(p.Duration)
		u.LockedUntil = &until
		return true
	}
	return false
}

func registerSuccess(u *User, now time.Time) {
	u.FailedAttempts = 0
	u.LockedUntil = nil
	u.LastLogin = &now
}
