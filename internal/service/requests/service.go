// Package requests orchestrates the submission pipeline: identity
// resolution, classification, deduplication and persistence of the
// resulting request, plus search and rating on top of the same store.
package requests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/blackflag/requestbot/internal/cache"
	"github.com/blackflag/requestbot/internal/config"
	"github.com/blackflag/requestbot/internal/domain"
	"github.com/blackflag/requestbot/internal/service/dedup"
)

type identityService interface {
	Resolve(ctx context.Context, handle int64, displayName string, username *string) (*domain.User, bool, error)
	EnsureNotBanned(ctx context.Context, u *domain.User) error
}

type classifier interface {
	Classify(raw string) (*domain.Draft, error)
}

type dedupEngine interface {
	FindDuplicates(draft *domain.Draft, open []domain.Request) []domain.Match
	Decide(score float64) dedup.Decision
}

type requestRepo interface {
	GetByID(ctx context.Context, id int64) (*domain.Request, error)
	Create(ctx context.Context, req *domain.Request) (*domain.Request, error)
	ListOpen(ctx context.Context, category domain.Category, limit int) ([]domain.Request, error)
	Find(ctx context.Context, f domain.RequestFilter) ([]domain.Request, error)
}

type userRepo interface {
	MarkRequested(ctx context.Context, id int64) error
}

type linkRepo interface {
	Create(ctx context.Context, link domain.DuplicateLink) (*domain.DuplicateLink, error)
}

type ratingRepo interface {
	Create(ctx context.Context, rating domain.Rating) (*domain.Rating, error)
	ListByRequest(ctx context.Context, requestID int64) ([]domain.Rating, error)
	AverageForRequest(ctx context.Context, requestID int64) (float64, int, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type requestCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Invalidate(ctx context.Context, key string)
}

// Service runs the submission pipeline.
type Service struct {
	log        *slog.Logger
	identity   identityService
	classifier classifier
	dedup      dedupEngine
	requests   requestRepo
	users      userRepo
	links      linkRepo
	ratings    ratingRepo
	tx         txManager
	cache      requestCache
	dedupCfg   config.DedupConfig
	requestTTL time.Duration
}

type Deps struct {
	Identity   identityService
	Classifier classifier
	Dedup      dedupEngine
	Requests   requestRepo
	Users      userRepo
	Links      linkRepo
	Ratings    ratingRepo
	Tx         txManager
	Cache      requestCache
	DedupCfg   config.DedupConfig
	RequestTTL time.Duration
}

func NewService(logger *slog.Logger, d Deps) *Service {
	return &Service{
		log:        logger.With("service", "requests"),
		identity:   d.Identity,
		classifier: d.Classifier,
		dedup:      d.Dedup,
		requests:   d.Requests,
		users:      d.Users,
		links:      d.Links,
		ratings:    d.Ratings,
		tx:         d.Tx,
		cache:      d.Cache,
		dedupCfg:   d.DedupCfg,
		requestTTL: d.RequestTTL,
	}
}

// SubmitParams is one inbound message from the transport layer.
type SubmitParams struct {
	Handle      int64
	DisplayName string
	Username    *string
	RawText     string
	Notes       *string
}

// SubmitResult reports what the pipeline did with the message.
type SubmitResult struct {
	Request   *domain.Request
	User      *domain.User
	IsNewUser bool
	Decision  dedup.Decision
	// BestMatch is the highest-scoring open candidate, set whenever the
	// decision is not distinct.
	BestMatch *domain.Match
	// Link is the persisted duplicate link, nil when a racing submission
	// already linked the same pair.
	Link *domain.DuplicateLink
}

// Submit runs resolve → classify → dedup → persist for one message.
//
// The request row and the submitter's counters commit in one transaction.
// The duplicate link is written after that commit: losing the link race
// must not roll back an already-valid request, so a conflict is logged
// and the first persisted link stands.
func (s *Service) Submit(ctx context.Context, p SubmitParams) (*SubmitResult, error) {
	user, isNew, err := s.identity.Resolve(ctx, p.Handle, p.DisplayName, p.Username)
	if err != nil {
		return nil, err
	}
	if err := s.identity.EnsureNotBanned(ctx, user); err != nil {
		return nil, err
	}

	draft, err := s.classifier.Classify(p.RawText)
	if err != nil {
		return nil, err
	}

	candidates, err := s.openCandidates(ctx, draft.Category)
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{User: user, IsNewUser: isNew, Decision: dedup.DecisionDistinct}
	matches := s.dedup.FindDuplicates(draft, candidates)
	if len(matches) > 0 {
		result.Decision = s.dedup.Decide(matches[0].Similarity)
		if result.Decision != dedup.DecisionDistinct {
			result.BestMatch = &matches[0]
		}
	}

	req := &domain.Request{
		UserID:       user.ID,
		OriginalText: p.RawText,
		Title:        draft.Title,
		Category:     draft.Category,
		Subcategory:  draft.Subcategory,
		Priority:     draft.Priority,
		Confidence:   draft.Confidence,
		Year:         draft.Year,
		Season:       draft.Season,
		Episode:      draft.Episode,
		Quality:      draft.Quality,
		LanguagePref: draft.LanguagePref,
		Notes:        p.Notes,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		created, err := s.requests.Create(txCtx, req)
		if err != nil {
			return err
		}
		result.Request = created
		return s.users.MarkRequested(txCtx, user.ID)
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, cache.OpenRequestsKey(draft.Category.String()))

	if result.BestMatch != nil {
		result.Link = s.persistLink(ctx, result)
	}

	s.log.Info("request submitted",
		"request_id", result.Request.ID,
		"user_id", user.ID,
		"category", req.Category,
		"confidence", req.Confidence,
		"decision", result.Decision.String())
	return result, nil
}

// persistLink writes the duplicate link decided for the submission. A
// pair conflict means a racing submission linked first; that link wins.
func (s *Service) persistLink(ctx context.Context, r *SubmitResult) *domain.DuplicateLink {
	status := domain.ReviewPending
	if r.Decision == dedup.DecisionAutoConfirm {
		status = domain.ReviewConfirmed
	}

	link, err := s.links.Create(ctx, domain.DuplicateLink{
		OriginalID:  r.BestMatch.Candidate.ID,
		CandidateID: r.Request.ID,
		Similarity:  r.BestMatch.Similarity,
		Status:      status,
	})
	if errors.Is(err, domain.ErrDuplicateLinkConflict) {
		s.log.Warn("duplicate link race lost, keeping first link",
			"original_id", r.BestMatch.Candidate.ID, "candidate_id", r.Request.ID)
		return nil
	}
	if err != nil {
		// The request itself is already committed and valid; a failed
		// link only costs a review hint.
		s.log.Error("persist duplicate link failed",
			"original_id", r.BestMatch.Candidate.ID, "candidate_id", r.Request.ID, "error", err)
		return nil
	}
	return link
}

// openCandidates returns the dedup candidate list for a category, served
// from cache when fresh. A cache miss falls back to the store; candidates
// are a bounded, newest-first snapshot, not an exhaustive scan.
func (s *Service) openCandidates(ctx context.Context, category domain.Category) ([]domain.Request, error) {
	key := cache.OpenRequestsKey(category.String())

	if raw, hit := s.cache.Get(ctx, key); hit {
		var reqs []domain.Request
		if err := json.Unmarshal(raw, &reqs); err == nil {
			return reqs, nil
		}
		s.cache.Invalidate(ctx, key)
	}

	reqs, err := s.requests.ListOpen(ctx, category, s.dedupCfg.MaxCandidates)
	if err != nil {
		return nil, fmt.Errorf("list open requests: %w", err)
	}
	if raw, err := json.Marshal(reqs); err == nil {
		s.cache.Set(ctx, key, raw, s.requestTTL)
	}
	return reqs, nil
}

// Get returns a request by id.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Request, error) {
	return s.requests.GetByID(ctx, id)
}

// Search returns requests matching the filter, newest first, always a
// finite page.
func (s *Service) Search(ctx context.Context, f domain.RequestFilter) ([]domain.Request, error) {
	return s.requests.Find(ctx, f)
}

// Rate records a satisfaction score for a fulfilled request. Raters must
// be distinct from the requester; one rating per user per request, a
// second attempt surfaces domain.ErrAlreadyExists.
func (s *Service) Rate(ctx context.Context, requestID, userID int64, score int, comment *string) (*domain.Rating, error) {
	if err := domain.ValidateScore(score); err != nil {
		return nil, err
	}

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.StatusFulfilled {
		return nil, domain.NewValidationError("request_id", "only fulfilled requests can be rated")
	}
	if req.UserID == userID {
		return nil, fmt.Errorf("user %d may not rate own request %d: %w", userID, requestID, domain.ErrForbidden)
	}

	rating, err := s.ratings.Create(ctx, domain.Rating{
		RequestID: requestID,
		UserID:    userID,
		Score:     score,
		Comment:   comment,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("request rated", "request_id", requestID, "user_id", userID, "score", score)
	return rating, nil
}

// RatingSummary returns the mean score and rating count for a request.
func (s *Service) RatingSummary(ctx context.Context, requestID int64) (float64, int, error) {
	return s.ratings.AverageForRequest(ctx, requestID)
}

// Ratings returns the individual ratings recorded for a request.
func (s *Service) Ratings(ctx context.Context, requestID int64) ([]domain.Rating, error) {
	return s.ratings.ListByRequest(ctx, requestID)
}
