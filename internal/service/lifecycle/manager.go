// Package lifecycle owns the request status state machine. It enforces
// the transition graph and the audit fields terminal transitions require;
// authorization happens in the caller.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/blackflag/requestbot/internal/adapter/postgres/request"
	"github.com/blackflag/requestbot/internal/domain"
)

type requestRepo interface {
	GetByID(ctx context.Context, id int64) (*domain.Request, error)
	Transition(ctx context.Context, p request.TransitionParams) (*domain.Request, error)
}

// Manager applies status transitions as single compare-and-set updates.
type Manager struct {
	log      *slog.Logger
	requests requestRepo
	now      func() time.Time
}

func NewManager(logger *slog.Logger, requests requestRepo) *Manager {
	return &Manager{
		log:      logger.With("service", "lifecycle"),
		requests: requests,
		now:      time.Now,
	}
}

// Transition moves the request to the target status.
//
// The graph is pending → processing → {fulfilled, rejected, cancelled},
// with pending also allowed straight into cancelled. Fulfilling requires
// an actor; rejecting requires an actor and a reason. Terminal states
// have no outgoing edges.
//
// The status change and its audit fields land in one guarded update. If
// the guard misses because the status moved concurrently, the loser gets
// domain.ErrInvalidTransition against the status that won.
func (m *Manager) Transition(ctx context.Context, id int64, to domain.RequestStatus, actor *int64, reason *string) (*domain.Request, error) {
	if !to.IsValid() {
		return nil, domain.NewValidationError("status", fmt.Sprintf("unknown status %q", to))
	}
	if err := requiredFields(to, actor, reason); err != nil {
		return nil, err
	}

	req, err := m.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("request %d: %s -> %s: %w", id, req.Status, to, domain.ErrInvalidTransition)
	}

	updated, err := m.requests.Transition(ctx, request.TransitionParams{
		ID:     id,
		From:   req.Status,
		To:     to,
		Actor:  actor,
		Reason: reason,
		Now:    m.now().UTC(),
	})
	if errors.Is(err, domain.ErrNotFound) {
		// The guard missed: either the row vanished or another transition
		// won the race. Reread to tell the two apart.
		current, rerr := m.requests.GetByID(ctx, id)
		if rerr != nil {
			return nil, rerr
		}
		return nil, fmt.Errorf("request %d: %s -> %s: %w", id, current.Status, to, domain.ErrInvalidTransition)
	}
	if err != nil {
		return nil, err
	}

	m.log.Info("request transitioned",
		"request_id", id, "from", req.Status, "to", to)
	return updated, nil
}

// requiredFields checks the audit fields a terminal transition must carry.
func requiredFields(to domain.RequestStatus, actor *int64, reason *string) error {
	switch to {
	case domain.StatusFulfilled:
		if actor == nil {
			return fmt.Errorf("fulfilled requires an actor: %w", domain.ErrMissingField)
		}
	case domain.StatusRejected:
		if actor == nil {
			return fmt.Errorf("rejected requires an actor: %w", domain.ErrMissingField)
		}
		if reason == nil || *reason == "" {
			return fmt.Errorf("rejected requires a reason: %w", domain.ErrMissingField)
		}
	}
	return nil
}
