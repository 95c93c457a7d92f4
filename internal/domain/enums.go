package domain

// RequestStatus represents the lifecycle state of a content request.
type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusProcessing RequestStatus = "processing"
	StatusFulfilled  RequestStatus = "fulfilled"
	StatusRejected   RequestStatus = "rejected"
	StatusCancelled  RequestStatus = "cancelled"
)

func (s RequestStatus) String() string { return string(s) }

func (s RequestStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusFulfilled, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are permitted.
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case StatusFulfilled, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the edge s -> next exists in the state
// graph. A pending request must pass through processing before it can be
// fulfilled or rejected; cancellation is allowed from either live state.
// Terminal states have no outgoing edges.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusCancelled
	case StatusProcessing:
		return next == StatusFulfilled || next == StatusRejected || next == StatusCancelled
	}
	return false
}

// Category classifies the kind of content being requested.
type Category string

const (
	CategorySeries  Category = "series"
	CategoryMovies  Category = "movies"
	CategoryAnime   Category = "anime"
	CategoryGames   Category = "games"
	CategoryBooks   Category = "books"
	CategoryApps    Category = "apps"
	CategoryGeneral Category = "general"
)

func (c Category) String() string { return string(c) }

func (c Category) IsValid() bool {
	switch c {
	case CategorySeries, CategoryMovies, CategoryAnime, CategoryGames,
		CategoryBooks, CategoryApps, CategoryGeneral:
		return true
	}
	return false
}

// Priority represents handling urgency of a request.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) String() string { return string(p) }

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ReviewStatus represents the human-review state of a duplicate link.
type ReviewStatus string

const (
	ReviewPending   ReviewStatus = "pending"
	ReviewConfirmed ReviewStatus = "confirmed"
	ReviewRejected  ReviewStatus = "rejected"
)

func (s ReviewStatus) String() string { return string(s) }

func (s ReviewStatus) IsValid() bool {
	switch s {
	case ReviewPending, ReviewConfirmed, ReviewRejected:
		return true
	}
	return false
}

// Outcome is a request-outcome event consumed by the reputation tracker.
type Outcome string

const (
	OutcomeFulfilled Outcome = "fulfilled"
	OutcomeRejected  Outcome = "rejected"
	OutcomeWarning   Outcome = "warning"
)
