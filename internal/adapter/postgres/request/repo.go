// Package request implements the content-request repository using PostgreSQL.
package request

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/blackflag/requestbot/internal/adapter/postgres"
	"github.com/blackflag/requestbot/internal/domain"
)

var columns = []string{
	"id", "user_id", "original_text", "title", "category", "subcategory",
	"priority", "status", "confidence", "year", "season", "episode",
	"quality", "language_pref", "notes", "fulfilled_by", "rejected_by",
	"rejection_reason", "created_at", "updated_at", "fulfilled_at",
}

// Repo provides content-request persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new request repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// GetByID returns a request by primary key.
func (r *Repo) GetByID(ctx context.Context, id int64) (*domain.Request, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	sql, args, err := postgres.Builder().
		Select(columns...).
		From("content_requests").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var req domain.Request
	if err := pgxscan.Get(ctx, q, &req, sql, args...); err != nil {
		return nil, postgres.MapError(err, "request", id)
	}
	return &req, nil
}

// Create inserts a new request in pending status and returns the
// persisted row.
func (r *Repo) Create(ctx context.Context, req *domain.Request) (*domain.Request, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	sql, args, err := postgres.Builder().
		Insert("content_requests").
		Columns("user_id", "original_text", "title", "category", "subcategory",
			"priority", "status", "confidence", "year", "season", "episode",
			"quality", "language_pref", "notes").
		Values(req.UserID, req.OriginalText, req.Title, req.Category, req.Subcategory,
			req.Priority, domain.StatusPending, req.Confidence, req.Year, req.Season,
			req.Episode, req.Quality, req.LanguagePref, req.Notes).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}

	var created domain.Request
	if err := pgxscan.Get(ctx, q, &created, sql, args...); err != nil {
		return nil, postgres.MapError(err, "request", req.UserID)
	}
	return &created, nil
}

// ListOpen returns non-terminal requests in the given category, newest
// first, bounded by limit. These are the dedup candidates.
func (r *Repo) ListOpen(ctx context.Context, category domain.Category, limit int) ([]domain.Request, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	sql, args, err := postgres.Builder().
		Select(columns...).
		From("content_requests").
		Where(squirrel.Eq{
			"category": category,
			"status":   []domain.RequestStatus{domain.StatusPending, domain.StatusProcessing},
		}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var reqs []domain.Request
	if err := pgxscan.Select(ctx, q, &reqs, sql, args...); err != nil {
		return nil, postgres.MapError(err, "request", 0)
	}
	return reqs, nil
}

// TransitionParams carries a compare-and-set status update. Audit fields
// are written in the same statement as the status change, so a transition
// is never half-applied.
type TransitionParams struct {
	ID     int64
	From   domain.RequestStatus
	To     domain.RequestStatus
	Actor  *int64
	Reason *string
	Now    time.Time
}

// Transition applies the status change atomically, guarded on the expected
// current status. Returns domain.ErrNotFound when either the request does
// not exist or its status is no longer From; the caller distinguishes the
// two by rereading.
func (r *Repo) Transition(ctx context.Context, p TransitionParams) (*domain.Request, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	update := postgres.Builder().
		Update("content_requests").
		Set("status", p.To).
		Set("updated_at", p.Now).
		Where(squirrel.Eq{"id": p.ID, "status": p.From})

	switch p.To {
	case domain.StatusFulfilled:
		update = update.
			Set("fulfilled_by", p.Actor).
			Set("fulfilled_at", p.Now)
	case domain.StatusRejected:
		update = update.
			Set("rejected_by", p.Actor).
			Set("rejection_reason", p.Reason)
	}

	sql, args, err := update.
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update: %w", err)
	}

	var req domain.Request
	if err := pgxscan.Get(ctx, q, &req, sql, args...); err != nil {
		return nil, postgres.MapError(err, "request", p.ID)
	}
	return &req, nil
}

// Find returns requests matching the filter, newest first. A zero filter
// limit falls back to 50 rows; the sequence is always finite.
func (r *Repo) Find(ctx context.Context, f domain.RequestFilter) ([]domain.Request, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	query := postgres.Builder().
		Select(columns...).
		From("content_requests").
		OrderBy("created_at DESC")

	if f.UserID != nil {
		query = query.Where(squirrel.Eq{"user_id": *f.UserID})
	}
	if f.Status != nil {
		query = query.Where(squirrel.Eq{"status": *f.Status})
	}
	if f.Category != nil {
		query = query.Where(squirrel.Eq{"category": *f.Category})
	}
	if f.TitleLike != nil {
		query = query.Where(squirrel.ILike{"title": "%" + *f.TitleLike + "%"})
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query = query.Limit(uint64(limit))
	if f.Offset > 0 {
		query = query.Offset(uint64(f.Offset))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var reqs []domain.Request
	if err := pgxscan.Select(ctx, q, &reqs, sql, args...); err != nil {
		return nil, postgres.MapError(err, "request", 0)
	}
	return reqs, nil
}
