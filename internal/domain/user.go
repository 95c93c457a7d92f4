package domain

import "time"

// User is the store-of-record identity behind an external chat handle.
// Exactly one row exists per handle; creation is idempotent under
// concurrent first contact. Users are never hard-deleted, only banned.
type User struct {
	ID                int64      `db:"user_id"` // external handle
	Username          *string    `db:"username"`
	DisplayName       string     `db:"display_name"`
	TotalRequests     int        `db:"total_requests"`
	FulfilledRequests int        `db:"fulfilled_requests"`
	RejectedRequests  int        `db:"rejected_requests"`
	ReputationScore   int        `db:"reputation_score"`
	IsBanned          bool       `db:"is_banned"`
	BanReason         *string    `db:"ban_reason"`
	BanUntil          *time.Time `db:"ban_until"`
	WarningsCount     int        `db:"warnings_count"`
	FirstSeen         time.Time  `db:"first_seen"`
	LastSeen          time.Time  `db:"last_seen"`
	LastRequestAt     *time.Time `db:"last_request_at"`
}

// DefaultReputation is the score assigned to a freshly created user.
const DefaultReputation = 50

// NewUser returns a User with defaults for first contact at the given time.
func NewUser(handle int64, displayName string, now time.Time) User {
	return User{
		ID:              handle,
		DisplayName:     displayName,
		ReputationScore: DefaultReputation,
		FirstSeen:       now,
		LastSeen:        now,
	}
}

// BanActive reports whether the ban is in force at the given time.
// A ban without an expiry is permanent.
func (u *User) BanActive(now time.Time) bool {
	if !u.IsBanned {
		return false
	}
	if u.BanUntil == nil {
		return true
	}
	return u.BanUntil.After(now)
}

// SuccessRate returns the fraction of the user's requests that were
// fulfilled, or 0 when the user has no requests yet.
func (u *User) SuccessRate() float64 {
	if u.TotalRequests == 0 {
		return 0
	}
	return float64(u.FulfilledRequests) / float64(u.TotalRequests)
}
