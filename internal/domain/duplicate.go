package domain

import "time"

// DuplicateLink records that a candidate request was judged similar to an
// earlier, original request. Unique per ordered (original, candidate) pair.
// A request may be the original of many links, but each candidate is linked
// to at most one confirmed original at a time.
type DuplicateLink struct {
	ID          int64        `db:"id"`
	OriginalID  int64        `db:"original_request_id"`
	CandidateID int64        `db:"candidate_request_id"`
	Similarity  float64      `db:"similarity"` // 0.0–1.0
	Status      ReviewStatus `db:"status"`
	ReviewedBy  *int64       `db:"reviewed_by"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
}

// Match pairs a dedup candidate with its similarity score.
type Match struct {
	Candidate  Request
	Similarity float64
}
