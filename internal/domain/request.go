package domain

import "time"

// Request is a persisted content request owned by a user.
//
// Status transitions are monotonic per the state graph on RequestStatus.
// FulfilledBy is set only on the transition into fulfilled; RejectedBy and
// RejectionReason only on the transition into rejected.
type Request struct {
	ID              int64         `db:"id"`
	UserID          int64         `db:"user_id"`
	OriginalText    string        `db:"original_text"`
	Title           string        `db:"title"`
	Category        Category      `db:"category"`
	Subcategory     *string       `db:"subcategory"`
	Priority        Priority      `db:"priority"`
	Status          RequestStatus `db:"status"`
	Confidence      int           `db:"confidence"`
	Year            *int          `db:"year"`
	Season          *int          `db:"season"`
	Episode         *int          `db:"episode"`
	Quality         *string       `db:"quality"`
	LanguagePref    string        `db:"language_pref"`
	Notes           *string       `db:"notes"`
	FulfilledBy     *int64        `db:"fulfilled_by"`
	RejectedBy      *int64        `db:"rejected_by"`
	RejectionReason *string       `db:"rejection_reason"`
	CreatedAt       time.Time     `db:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at"`
	FulfilledAt     *time.Time    `db:"fulfilled_at"`
}

// Draft is an unsaved, structured extraction of a free-text request,
// produced by the classifier before dedup and lifecycle processing.
type Draft struct {
	Title        string
	Category     Category
	Subcategory  *string
	Year         *int
	Season       *int
	Episode      *int
	Quality      *string
	LanguagePref string
	Priority     Priority
	Confidence   int // 0–100, monotonic in the number of matched fields
}

// RequestFilter contains filtering and pagination parameters for request
// searches. Nil fields are not applied.
type RequestFilter struct {
	UserID    *int64
	Status    *RequestStatus
	Category  *Category
	TitleLike *string
	Limit     int
	Offset    int
}
