// Package identity implements the identity resolver: the sole authority
// for whether a contacting user is new. It sits on the cache layer and the
// user repository and guarantees that "store unavailable" is never
// collapsed into "user does not exist".
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/blackflag/requestbot/internal/cache"
	"github.com/blackflag/requestbot/internal/config"
	"github.com/blackflag/requestbot/internal/domain"
)

// userRepo defines the user repository interface needed by the resolver.
type userRepo interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	CreateIfAbsent(ctx context.Context, u domain.User) (*domain.User, bool, error)
	TouchSeen(ctx context.Context, id int64, displayName string, username *string) error
	ApplyOutcome(ctx context.Context, id int64, outcome domain.Outcome, delta int) (*domain.User, error)
	SetBan(ctx context.Context, id int64, banned bool, reason *string, until *time.Time) error
}

// userCache defines the cache layer interface needed by the resolver.
type userCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Invalidate(ctx context.Context, key string)
}

// Service resolves external handles to user records and tracks reputation.
type Service struct {
	log     *slog.Logger
	users   userRepo
	cache   userCache
	userTTL time.Duration
	rep     config.ReputationConfig
	sf      singleflight.Group
	now     func() time.Time
}

// NewService creates a new identity service instance.
func NewService(logger *slog.Logger, users userRepo, c userCache, userTTL time.Duration, rep config.ReputationConfig) *Service {
	return &Service{
		log:     logger.With("service", "identity"),
		users:   users,
		cache:   c,
		userTTL: userTTL,
		rep:     rep,
		now:     time.Now,
	}
}

// Resolve maps an external handle to its user record.
//
// The contract is three-valued:
//   - cache or store hit: the existing user, isNew=false;
//   - store-confirmed absence: an idempotent create, isNew=true for
//     exactly the caller whose insert landed;
//   - store unreachable: domain.ErrIdentityUnavailable — never "new".
//
// Only a store-confirmed absence may trigger creation; a cache miss alone
// is just a reason to ask the store.
func (s *Service) Resolve(ctx context.Context, handle int64, displayName string, username *string) (*domain.User, bool, error) {
	key := cache.UserKey(handle)

	if raw, hit := s.cache.Get(ctx, key); hit {
		var u domain.User
		if err := json.Unmarshal(raw, &u); err == nil {
			s.afterContact(&u, displayName, username)
			return &u, false, nil
		}
		// Corrupt entry: drop it and fall through to the store.
		s.cache.Invalidate(ctx, key)
	}

	// Collapse concurrent store reads for the same handle. Only the read
	// is shared — creation stays per-caller so the store can arbitrate
	// who actually inserted.
	v, err, _ := s.sf.Do(key, func() (any, error) {
		return s.users.GetByID(ctx, handle)
	})
	switch {
	case err == nil:
		// The collapsed read hands the same record to every waiting
		// caller; each gets its own copy so later mutation (say, lifting
		// an expired ban) cannot race a sibling resolver.
		u := *v.(*domain.User)
		s.cacheUser(ctx, &u)
		s.afterContact(&u, displayName, username)
		return &u, false, nil

	case errors.Is(err, domain.ErrNotFound):
		// Store-confirmed absence: fall through to the idempotent create.

	default:
		// Pool exhausted, query error, timeout: the store said nothing
		// about existence. Surfacing absence here is exactly the bug that
		// once greeted every returning user as new.
		return nil, false, fmt.Errorf("resolve handle %d: %w: %s", handle, domain.ErrIdentityUnavailable, err)
	}

	u, inserted, err := s.users.CreateIfAbsent(ctx, domain.NewUser(handle, displayName, s.now().UTC()))
	if err != nil {
		return nil, false, fmt.Errorf("create handle %d: %w: %s", handle, domain.ErrIdentityUnavailable, err)
	}
	s.cacheUser(ctx, u)
	if !inserted {
		s.afterContact(u, displayName, username)
	}
	return u, inserted, nil
}

// ApplyOutcome records a request-outcome event against the user: adjusts
// the bounded reputation score by the configured delta and bumps the
// matching counter. The cached copy is invalidated, not patched.
func (s *Service) ApplyOutcome(ctx context.Context, userID int64, outcome domain.Outcome) (*domain.User, error) {
	var delta int
	switch outcome {
	case domain.OutcomeFulfilled:
		delta = s.rep.FulfilledDelta
	case domain.OutcomeRejected:
		delta = s.rep.RejectedDelta
	case domain.OutcomeWarning:
		delta = s.rep.WarningDelta
	default:
		return nil, domain.NewValidationError("outcome", "unknown outcome event")
	}

	u, err := s.users.ApplyOutcome(ctx, userID, outcome, delta)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.UserKey(userID))

	s.log.Info("reputation updated",
		"user_id", userID, "outcome", outcome, "score", u.ReputationScore)
	return u, nil
}

// Ban marks the user banned, optionally until a deadline. Users are never
// hard-deleted; a ban is the only removal mechanism.
func (s *Service) Ban(ctx context.Context, userID int64, reason string, until *time.Time) error {
	if err := s.users.SetBan(ctx, userID, true, &reason, until); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.UserKey(userID))
	s.log.Info("user banned", "user_id", userID, "reason", reason)
	return nil
}

// Unban lifts a ban and clears its reason and expiry.
func (s *Service) Unban(ctx context.Context, userID int64) error {
	if err := s.users.SetBan(ctx, userID, false, nil, nil); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.UserKey(userID))
	return nil
}

// EnsureNotBanned checks the ban state, lifting bans whose expiry has
// passed. Returns domain.ErrUserBanned while a ban is in force.
func (s *Service) EnsureNotBanned(ctx context.Context, u *domain.User) error {
	if !u.IsBanned {
		return nil
	}
	if u.BanActive(s.now()) {
		return fmt.Errorf("user %d: %w", u.ID, domain.ErrUserBanned)
	}
	// Expired timed ban: lift it on contact.
	if err := s.Unban(ctx, u.ID); err != nil {
		return err
	}
	u.IsBanned = false
	u.BanReason = nil
	u.BanUntil = nil
	return nil
}

// afterContact refreshes last-seen off the caller's critical path. A
// failed touch only leaves last_seen slightly stale.
func (s *Service) afterContact(u *domain.User, displayName string, username *string) {
	id := u.ID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.users.TouchSeen(ctx, id, displayName, username); err != nil {
			s.log.Warn("refresh last_seen failed", "user_id", id, "error", err)
		}
	}()
}

func (s *Service) cacheUser(ctx context.Context, u *domain.User) {
	raw, err := json.Marshal(u)
	if err != nil {
		return
	}
	s.cache.Set(ctx, cache.UserKey(u.ID), raw, s.userTTL)
}
