package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackflag/requestbot/internal/config"
	"github.com/blackflag/requestbot/internal/domain"
	"github.com/blackflag/requestbot/internal/service/requests"
)

const (
	adminID  = int64(1)
	ownerID  = int64(42)
	otherID  = int64(77)
	reqID    = int64(100)
	someLink = int64(5)
)

type mockIdentity struct {
	ApplyOutcomeFunc func(ctx context.Context, userID int64, outcome domain.Outcome) (*domain.User, error)
	banned           []int64
	unbanned         []int64
	outcomes         []domain.Outcome
}

func (m *mockIdentity) Resolve(_ context.Context, handle int64, displayName string, _ *string) (*domain.User, bool, error) {
	return &domain.User{ID: handle, DisplayName: displayName}, false, nil
}

func (m *mockIdentity) ApplyOutcome(ctx context.Context, userID int64, outcome domain.Outcome) (*domain.User, error) {
	m.outcomes = append(m.outcomes, outcome)
	if m.ApplyOutcomeFunc != nil {
		return m.ApplyOutcomeFunc(ctx, userID, outcome)
	}
	return &domain.User{ID: userID}, nil
}

func (m *mockIdentity) Ban(_ context.Context, userID int64, _ string, _ *time.Time) error {
	m.banned = append(m.banned, userID)
	return nil
}

func (m *mockIdentity) Unban(_ context.Context, userID int64) error {
	m.unbanned = append(m.unbanned, userID)
	return nil
}

type mockRequests struct {
	GetFunc func(ctx context.Context, id int64) (*domain.Request, error)
}

func (m *mockRequests) Submit(context.Context, requests.SubmitParams) (*requests.SubmitResult, error) {
	return &requests.SubmitResult{}, nil
}

func (m *mockRequests) Get(ctx context.Context, id int64) (*domain.Request, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return &domain.Request{ID: id, UserID: ownerID, Status: domain.StatusPending}, nil
}

func (m *mockRequests) Search(context.Context, domain.RequestFilter) ([]domain.Request, error) {
	return nil, nil
}

func (m *mockRequests) Rate(context.Context, int64, int64, int, *string) (*domain.Rating, error) {
	return &domain.Rating{}, nil
}

func (m *mockRequests) RatingSummary(context.Context, int64) (float64, int, error) {
	return 0, 0, nil
}

func (m *mockRequests) Ratings(_ context.Context, requestID int64) ([]domain.Rating, error) {
	return []domain.Rating{{RequestID: requestID, UserID: otherID, Score: 5}}, nil
}

type mockLifecycle struct {
	TransitionFunc func(ctx context.Context, id int64, to domain.RequestStatus, actor *int64, reason *string) (*domain.Request, error)
	calls          int
}

func (m *mockLifecycle) Transition(ctx context.Context, id int64, to domain.RequestStatus, actor *int64, reason *string) (*domain.Request, error) {
	m.calls++
	if m.TransitionFunc != nil {
		return m.TransitionFunc(ctx, id, to, actor, reason)
	}
	return &domain.Request{ID: id, UserID: ownerID, Status: to}, nil
}

type mockLinks struct {
	GetByIDFunc  func(ctx context.Context, id int64) (*domain.DuplicateLink, error)
	confirmed    int
	reviewedWith domain.ReviewStatus
	reviewCalls  int
}

func (m *mockLinks) GetByID(ctx context.Context, id int64) (*domain.DuplicateLink, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return &domain.DuplicateLink{ID: id, OriginalID: 7, CandidateID: reqID, Status: domain.ReviewPending}, nil
}

func (m *mockLinks) Review(_ context.Context, id int64, status domain.ReviewStatus, reviewerID int64) (*domain.DuplicateLink, error) {
	m.reviewCalls++
	m.reviewedWith = status
	return &domain.DuplicateLink{ID: id, Status: status, ReviewedBy: &reviewerID}, nil
}

func (m *mockLinks) CountConfirmedForCandidate(context.Context, int64) (int, error) {
	return m.confirmed, nil
}

func (m *mockLinks) ListByOriginal(_ context.Context, originalID int64) ([]domain.DuplicateLink, error) {
	return []domain.DuplicateLink{
		{ID: someLink, OriginalID: originalID, CandidateID: reqID, Similarity: 0.91},
	}, nil
}

type mockUsers struct{}

func (mockUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	return &domain.User{ID: id}, nil
}

type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	engine    *Engine
	identity  *mockIdentity
	requests  *mockRequests
	lifecycle *mockLifecycle
	links     *mockLinks
}

func newFixture() *fixture {
	f := &fixture{
		identity:  &mockIdentity{},
		requests:  &mockRequests{},
		lifecycle: &mockLifecycle{},
		links:     &mockLinks{},
	}
	f.engine = NewEngine(slog.New(slog.DiscardHandler), Deps{
		Identity:  f.identity,
		Requests:  f.requests,
		Lifecycle: f.lifecycle,
		Links:     f.links,
		Users:     mockUsers{},
		Tx:        passthroughTx{},
		Admins:    config.AdminConfig{IDs: []int64{adminID}},
	})
	return f
}

func TestTransitionRequest_Authorization(t *testing.T) {
	tests := []struct {
		name    string
		actor   int64
		to      domain.RequestStatus
		allowed bool
	}{
		{"admin fulfills", adminID, domain.StatusFulfilled, true},
		{"admin rejects", adminID, domain.StatusRejected, true},
		{"admin takes processing", adminID, domain.StatusProcessing, true},
		{"owner cancels", ownerID, domain.StatusCancelled, true},
		{"admin cancels", adminID, domain.StatusCancelled, true},
		{"owner fulfills own request", ownerID, domain.StatusFulfilled, false},
		{"stranger cancels", otherID, domain.StatusCancelled, false},
		{"stranger rejects", otherID, domain.StatusRejected, false},
	}

	reason := "because"
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.engine.TransitionRequest(context.Background(), reqID, tt.actor, tt.to, &reason)
			if tt.allowed {
				assert.NoError(t, err)
				assert.Equal(t, 1, f.lifecycle.calls)
			} else {
				assert.ErrorIs(t, err, domain.ErrForbidden)
				assert.Zero(t, f.lifecycle.calls, "forbidden actions must not reach the state machine")
			}
		})
	}
}

func TestTransitionRequest_OutcomeHook(t *testing.T) {
	reason := "no source"

	t.Run("fulfilled feeds reputation", func(t *testing.T) {
		f := newFixture()
		_, err := f.engine.TransitionRequest(context.Background(), reqID, adminID, domain.StatusFulfilled, nil)
		require.NoError(t, err)
		assert.Equal(t, []domain.Outcome{domain.OutcomeFulfilled}, f.identity.outcomes)
	})

	t.Run("rejected feeds reputation", func(t *testing.T) {
		f := newFixture()
		_, err := f.engine.TransitionRequest(context.Background(), reqID, adminID, domain.StatusRejected, &reason)
		require.NoError(t, err)
		assert.Equal(t, []domain.Outcome{domain.OutcomeRejected}, f.identity.outcomes)
	})

	t.Run("cancelled and processing do not", func(t *testing.T) {
		f := newFixture()
		_, err := f.engine.TransitionRequest(context.Background(), reqID, adminID, domain.StatusCancelled, nil)
		require.NoError(t, err)
		_, err = f.engine.TransitionRequest(context.Background(), reqID, adminID, domain.StatusProcessing, nil)
		require.NoError(t, err)
		assert.Empty(t, f.identity.outcomes)
	})

	t.Run("reputation failure does not fail the committed transition", func(t *testing.T) {
		f := newFixture()
		f.identity.ApplyOutcomeFunc = func(context.Context, int64, domain.Outcome) (*domain.User, error) {
			return nil, domain.ErrPoolExhausted
		}
		updated, err := f.engine.TransitionRequest(context.Background(), reqID, adminID, domain.StatusFulfilled, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusFulfilled, updated.Status)
	})
}

func TestReviewDuplicate(t *testing.T) {
	t.Run("admin confirms pending link", func(t *testing.T) {
		f := newFixture()
		link, err := f.engine.ReviewDuplicate(context.Background(), someLink, adminID, true)
		require.NoError(t, err)
		assert.Equal(t, domain.ReviewConfirmed, link.Status)
	})

	t.Run("admin rejects pending link", func(t *testing.T) {
		f := newFixture()
		link, err := f.engine.ReviewDuplicate(context.Background(), someLink, adminID, false)
		require.NoError(t, err)
		assert.Equal(t, domain.ReviewRejected, link.Status)
	})

	t.Run("non-admin forbidden", func(t *testing.T) {
		f := newFixture()
		_, err := f.engine.ReviewDuplicate(context.Background(), someLink, otherID, true)
		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.Zero(t, f.links.reviewCalls)
	})

	t.Run("second confirmed original refused", func(t *testing.T) {
		f := newFixture()
		f.links.confirmed = 1
		_, err := f.engine.ReviewDuplicate(context.Background(), someLink, adminID, true)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Zero(t, f.links.reviewCalls)
	})
}

func TestRequestRatings(t *testing.T) {
	f := newFixture()
	ratings, err := f.engine.RequestRatings(context.Background(), reqID)
	require.NoError(t, err)
	require.Len(t, ratings, 1)
	assert.Equal(t, reqID, ratings[0].RequestID)
	assert.Equal(t, 5, ratings[0].Score)
}

func TestDuplicateLinks(t *testing.T) {
	f := newFixture()
	links, err := f.engine.DuplicateLinks(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, int64(7), links[0].OriginalID)
	assert.Equal(t, reqID, links[0].CandidateID)
}

func TestAdminUserActions(t *testing.T) {
	t.Run("warn", func(t *testing.T) {
		f := newFixture()
		_, err := f.engine.WarnUser(context.Background(), ownerID, adminID)
		require.NoError(t, err)
		assert.Equal(t, []domain.Outcome{domain.OutcomeWarning}, f.identity.outcomes)

		_, err = f.engine.WarnUser(context.Background(), ownerID, otherID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("ban and unban", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.engine.BanUser(context.Background(), ownerID, adminID, "spam", nil))
		assert.Equal(t, []int64{ownerID}, f.identity.banned)

		require.NoError(t, f.engine.UnbanUser(context.Background(), ownerID, adminID))
		assert.Equal(t, []int64{ownerID}, f.identity.unbanned)

		assert.ErrorIs(t, f.engine.BanUser(context.Background(), ownerID, otherID, "spam", nil), domain.ErrForbidden)
		assert.ErrorIs(t, f.engine.UnbanUser(context.Background(), ownerID, otherID), domain.ErrForbidden)
	})
}
