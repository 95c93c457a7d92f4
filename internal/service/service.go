// Package service exposes the engine surface consumed by the transport
// and admin layers. The Engine composes the resolver, classifier, dedup
// engine and lifecycle manager behind one API and applies the admin
// allowlist authorization the inner services deliberately leave out.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/blackflag/requestbot/internal/config"
	"github.com/blackflag/requestbot/internal/domain"
	"github.com/blackflag/requestbot/internal/service/requests"
)

type identitySvc interface {
	Resolve(ctx context.Context, handle int64, displayName string, username *string) (*domain.User, bool, error)
	ApplyOutcome(ctx context.Context, userID int64, outcome domain.Outcome) (*domain.User, error)
	Ban(ctx context.Context, userID int64, reason string, until *time.Time) error
	Unban(ctx context.Context, userID int64) error
}

type requestsSvc interface {
	Submit(ctx context.Context, p requests.SubmitParams) (*requests.SubmitResult, error)
	Get(ctx context.Context, id int64) (*domain.Request, error)
	Search(ctx context.Context, f domain.RequestFilter) ([]domain.Request, error)
	Rate(ctx context.Context, requestID, userID int64, score int, comment *string) (*domain.Rating, error)
	RatingSummary(ctx context.Context, requestID int64) (float64, int, error)
	Ratings(ctx context.Context, requestID int64) ([]domain.Rating, error)
}

type lifecycleSvc interface {
	Transition(ctx context.Context, id int64, to domain.RequestStatus, actor *int64, reason *string) (*domain.Request, error)
}

type linkRepo interface {
	GetByID(ctx context.Context, id int64) (*domain.DuplicateLink, error)
	ListByOriginal(ctx context.Context, originalID int64) ([]domain.DuplicateLink, error)
	Review(ctx context.Context, id int64, status domain.ReviewStatus, reviewerID int64) (*domain.DuplicateLink, error)
	CountConfirmedForCandidate(ctx context.Context, candidateID int64) (int, error)
}

type userRepo interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Engine is the single entry point for the transport/admin layer.
type Engine struct {
	log       *slog.Logger
	identity  identitySvc
	requests  requestsSvc
	lifecycle lifecycleSvc
	links     linkRepo
	users     userRepo
	tx        txManager
	admins    config.AdminConfig
}

type Deps struct {
	Identity  identitySvc
	Requests  requestsSvc
	Lifecycle lifecycleSvc
	Links     linkRepo
	Users     userRepo
	Tx        txManager
	Admins    config.AdminConfig
}

func NewEngine(logger *slog.Logger, d Deps) *Engine {
	return &Engine{
		log:       logger.With("service", "engine"),
		identity:  d.Identity,
		requests:  d.Requests,
		lifecycle: d.Lifecycle,
		links:     d.Links,
		users:     d.Users,
		tx:        d.Tx,
		admins:    d.Admins,
	}
}

// ResolveUser maps an external handle to its user record. isNew is true
// for exactly the call that created the row.
func (e *Engine) ResolveUser(ctx context.Context, handle int64, displayName string, username *string) (*domain.User, bool, error) {
	return e.identity.Resolve(ctx, handle, displayName, username)
}

// SubmitRequest runs the full pipeline for one inbound message.
func (e *Engine) SubmitRequest(ctx context.Context, p requests.SubmitParams) (*requests.SubmitResult, error) {
	log := e.opLog("submit")
	res, err := e.requests.Submit(ctx, p)
	if err != nil {
		log.Warn("submission failed", "handle", p.Handle, "error", err)
		return nil, err
	}
	return res, nil
}

// TransitionRequest moves a request through its lifecycle on behalf of an
// actor. Fulfil, reject and processing are admin actions; cancel is open
// to the request's owner as well. A terminal outcome feeds the
// requester's reputation after the transition commits.
func (e *Engine) TransitionRequest(ctx context.Context, requestID, actorID int64, to domain.RequestStatus, reason *string) (*domain.Request, error) {
	log := e.opLog("transition")

	req, err := e.requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := e.authorizeTransition(req, actorID, to); err != nil {
		return nil, err
	}

	updated, err := e.lifecycle.Transition(ctx, requestID, to, &actorID, reason)
	if err != nil {
		return nil, err
	}

	// The transition is committed; a reputation failure only delays the
	// score adjustment and must not report the transition as failed.
	var outcome domain.Outcome
	switch to {
	case domain.StatusFulfilled:
		outcome = domain.OutcomeFulfilled
	case domain.StatusRejected:
		outcome = domain.OutcomeRejected
	}
	if outcome != "" {
		if _, err := e.identity.ApplyOutcome(ctx, updated.UserID, outcome); err != nil {
			log.Error("reputation update failed after transition",
				"request_id", requestID, "user_id", updated.UserID, "error", err)
		}
	}
	return updated, nil
}

func (e *Engine) authorizeTransition(req *domain.Request, actorID int64, to domain.RequestStatus) error {
	if e.admins.IsAdmin(actorID) {
		return nil
	}
	if to == domain.StatusCancelled && actorID == req.UserID {
		return nil
	}
	return fmt.Errorf("actor %d may not move request %d to %s: %w",
		actorID, req.ID, to, domain.ErrForbidden)
}

// RateRequest records a satisfaction score for a fulfilled request.
func (e *Engine) RateRequest(ctx context.Context, requestID, userID int64, score int, comment *string) (*domain.Rating, error) {
	return e.requests.Rate(ctx, requestID, userID, score, comment)
}

// RequestRating returns the mean score and count for a request.
func (e *Engine) RequestRating(ctx context.Context, requestID int64) (float64, int, error) {
	return e.requests.RatingSummary(ctx, requestID)
}

// RequestRatings returns the individual ratings for a request.
func (e *Engine) RequestRatings(ctx context.Context, requestID int64) ([]domain.Rating, error) {
	return e.requests.Ratings(ctx, requestID)
}

// DuplicateLinks returns the links that name the request as their
// original, highest similarity first.
func (e *Engine) DuplicateLinks(ctx context.Context, originalID int64) ([]domain.DuplicateLink, error) {
	return e.links.ListByOriginal(ctx, originalID)
}

// SearchRequests returns a finite page of requests matching the filter.
func (e *Engine) SearchRequests(ctx context.Context, f domain.RequestFilter) ([]domain.Request, error) {
	return e.requests.Search(ctx, f)
}

// ReviewDuplicate confirms or rejects a pending duplicate link. Admin
// only. Confirmation preserves the invariant that a candidate has at most
// one confirmed original: the count check and the review run in one
// transaction.
func (e *Engine) ReviewDuplicate(ctx context.Context, linkID, actorID int64, confirm bool) (*domain.DuplicateLink, error) {
	if !e.admins.IsAdmin(actorID) {
		return nil, fmt.Errorf("actor %d may not review links: %w", actorID, domain.ErrForbidden)
	}

	status := domain.ReviewRejected
	if confirm {
		status = domain.ReviewConfirmed
	}

	var reviewed *domain.DuplicateLink
	err := e.tx.RunInTx(ctx, func(txCtx context.Context) error {
		link, err := e.links.GetByID(txCtx, linkID)
		if err != nil {
			return err
		}
		if confirm {
			n, err := e.links.CountConfirmedForCandidate(txCtx, link.CandidateID)
			if err != nil {
				return err
			}
			if n > 0 {
				return domain.NewValidationError("link_id",
					fmt.Sprintf("request %d already has a confirmed original", link.CandidateID))
			}
		}
		reviewed, err = e.links.Review(txCtx, linkID, status, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("duplicate link reviewed",
		"link_id", linkID, "reviewer", actorID, "status", status)
	return reviewed, nil
}

// WarnUser records an admin warning: bumps the warning counter and
// applies the warning reputation delta.
func (e *Engine) WarnUser(ctx context.Context, userID, actorID int64) (*domain.User, error) {
	if !e.admins.IsAdmin(actorID) {
		return nil, fmt.Errorf("actor %d may not warn users: %w", actorID, domain.ErrForbidden)
	}
	return e.identity.ApplyOutcome(ctx, userID, domain.OutcomeWarning)
}

// BanUser bans a user, permanently when until is nil. Admin only.
func (e *Engine) BanUser(ctx context.Context, userID, actorID int64, reason string, until *time.Time) error {
	if !e.admins.IsAdmin(actorID) {
		return fmt.Errorf("actor %d may not ban users: %w", actorID, domain.ErrForbidden)
	}
	return e.identity.Ban(ctx, userID, reason, until)
}

// UnbanUser lifts a ban. Admin only.
func (e *Engine) UnbanUser(ctx context.Context, userID, actorID int64) error {
	if !e.admins.IsAdmin(actorID) {
		return fmt.Errorf("actor %d may not unban users: %w", actorID, domain.ErrForbidden)
	}
	return e.identity.Unban(ctx, userID)
}

// UserStats returns the stored counters and reputation for a user.
func (e *Engine) UserStats(ctx context.Context, userID int64) (*domain.User, error) {
	return e.users.GetByID(ctx, userID)
}

// opLog tags log records of one operation with a correlation id, so the
// fan-out of a single inbound message is greppable across services.
func (e *Engine) opLog(op string) *slog.Logger {
	return e.log.With("op", op, "correlation_id", uuid.NewString())
}
