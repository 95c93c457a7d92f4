package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackflag/requestbot/internal/adapter/postgres/request"
	"github.com/blackflag/requestbot/internal/domain"
)

type mockRequestRepo struct {
	GetByIDFunc    func(ctx context.Context, id int64) (*domain.Request, error)
	TransitionFunc func(ctx context.Context, p request.TransitionParams) (*domain.Request, error)
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id int64) (*domain.Request, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockRequestRepo) Transition(ctx context.Context, p request.TransitionParams) (*domain.Request, error) {
	if m.TransitionFunc != nil {
		return m.TransitionFunc(ctx, p)
	}
	return nil, domain.ErrNotFound
}

func int64p(n int64) *int64 { return &n }
func strp(s string) *string { return &s }

func repoWith(status domain.RequestStatus) *mockRequestRepo {
	return &mockRequestRepo{
		GetByIDFunc: func(_ context.Context, id int64) (*domain.Request, error) {
			return &domain.Request{ID: id, Status: status}, nil
		},
		TransitionFunc: func(_ context.Context, p request.TransitionParams) (*domain.Request, error) {
			return &domain.Request{ID: p.ID, Status: p.To, FulfilledBy: p.Actor}, nil
		},
	}
}

func newManager(repo *mockRequestRepo) *Manager {
	return NewManager(slog.New(slog.DiscardHandler), repo)
}

func TestTransition_GraphEnforced(t *testing.T) {
	tests := []struct {
		from    domain.RequestStatus
		to      domain.RequestStatus
		allowed bool
	}{
		{domain.StatusPending, domain.StatusProcessing, true},
		{domain.StatusPending, domain.StatusCancelled, true},
		{domain.StatusPending, domain.StatusFulfilled, false},
		{domain.StatusPending, domain.StatusRejected, false},
		{domain.StatusProcessing, domain.StatusFulfilled, true},
		{domain.StatusProcessing, domain.StatusRejected, true},
		{domain.StatusProcessing, domain.StatusCancelled, true},
		{domain.StatusProcessing, domain.StatusPending, false},
		{domain.StatusFulfilled, domain.StatusPending, false},
		{domain.StatusFulfilled, domain.StatusProcessing, false},
		{domain.StatusRejected, domain.StatusCancelled, false},
		{domain.StatusCancelled, domain.StatusProcessing, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_to_%s", tt.from, tt.to), func(t *testing.T) {
			m := newManager(repoWith(tt.from))
			_, err := m.Transition(context.Background(), 1, tt.to, int64p(99), strp("because"))
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domain.ErrInvalidTransition)
			}
		})
	}
}

func TestTransition_RequiredFields(t *testing.T) {
	t.Run("fulfilled without actor", func(t *testing.T) {
		_, err := newManager(repoWith(domain.StatusPending)).
			Transition(context.Background(), 1, domain.StatusFulfilled, nil, nil)
		assert.ErrorIs(t, err, domain.ErrMissingField)
	})

	t.Run("rejected without reason", func(t *testing.T) {
		_, err := newManager(repoWith(domain.StatusPending)).
			Transition(context.Background(), 1, domain.StatusRejected, int64p(99), nil)
		assert.ErrorIs(t, err, domain.ErrMissingField)
	})

	t.Run("rejected with empty reason", func(t *testing.T) {
		_, err := newManager(repoWith(domain.StatusPending)).
			Transition(context.Background(), 1, domain.StatusRejected, int64p(99), strp(""))
		assert.ErrorIs(t, err, domain.ErrMissingField)
	})

	t.Run("cancelled needs neither", func(t *testing.T) {
		_, err := newManager(repoWith(domain.StatusPending)).
			Transition(context.Background(), 1, domain.StatusCancelled, nil, nil)
		assert.NoError(t, err)
	})
}

func TestTransition_UnknownStatus(t *testing.T) {
	_, err := newManager(repoWith(domain.StatusPending)).
		Transition(context.Background(), 1, domain.RequestStatus("archived"), nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTransition_LostRace(t *testing.T) {
	// The guarded update misses because another transition landed first;
	// the reread shows the status that won.
	calls := 0
	repo := &mockRequestRepo{
		GetByIDFunc: func(_ context.Context, id int64) (*domain.Request, error) {
			calls++
			if calls == 1 {
				return &domain.Request{ID: id, Status: domain.StatusPending}, nil
			}
			return &domain.Request{ID: id, Status: domain.StatusFulfilled}, nil
		},
		TransitionFunc: func(context.Context, request.TransitionParams) (*domain.Request, error) {
			return nil, fmt.Errorf("request 1: %w", domain.ErrNotFound)
		},
	}

	_, err := newManager(repo).Transition(context.Background(), 1, domain.StatusProcessing, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestTransition_MissingRequest(t *testing.T) {
	_, err := newManager(&mockRequestRepo{}).
		Transition(context.Background(), 404, domain.StatusProcessing, nil, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransition_WritesAuditFields(t *testing.T) {
	var got request.TransitionParams
	repo := repoWith(domain.StatusProcessing)
	inner := repo.TransitionFunc
	repo.TransitionFunc = func(ctx context.Context, p request.TransitionParams) (*domain.Request, error) {
		got = p
		return inner(ctx, p)
	}

	_, err := newManager(repo).Transition(context.Background(), 1, domain.StatusRejected, int64p(99), strp("no source found"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, got.From)
	assert.Equal(t, domain.StatusRejected, got.To)
	assert.Equal(t, int64(99), *got.Actor)
	assert.Equal(t, "no source found", *got.Reason)
	assert.False(t, got.Now.IsZero())
}
