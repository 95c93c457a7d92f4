package domain

import "time"

// Rating is a user's 1–5 score for a fulfilled request. At most one
// rating exists per (request, user) pair (enforced by the store); the
// requester may not rate their own request (enforced by the service).
type Rating struct {
	ID        int64     `db:"id"`
	RequestID int64     `db:"request_id"`
	UserID    int64     `db:"user_id"`
	Score     int       `db:"score"`
	Comment   *string   `db:"comment"`
	CreatedAt time.Time `db:"created_at"`
}

// ValidateScore checks that a rating score is within 1–5.
func ValidateScore(score int) error {
	if score < 1 || score > 5 {
		return NewValidationError("score", "must be between 1 and 5")
	}
	return nil
}
