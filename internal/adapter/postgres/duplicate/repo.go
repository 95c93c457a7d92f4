// Package duplicate implements the DuplicateLink repository using PostgreSQL.
package duplicate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/blackflag/requestbot/internal/adapter/postgres"
	"github.com/blackflag/requestbot/internal/domain"
)

var columns = []string{
	"id", "original_request_id", "candidate_request_id",
	"similarity", "status", "reviewed_by", "created_at", "updated_at",
}

// Repo provides duplicate-link persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new duplicate-link repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// Create inserts a link for an ordered (original, candidate) pair. When a
// concurrent dedup decision already persisted a link for the same pair,
// the insert fails with domain.ErrDuplicateLinkConflict and the first
// persisted link stands.
func (r *Repo) Create(ctx context.Context, link domain.DuplicateLink) (*domain.DuplicateLink, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	sql, args, err := postgres.Builder().
		Insert("duplicate_links").
		Columns("original_request_id", "candidate_request_id", "similarity", "status", "reviewed_by").
		Values(link.OriginalID, link.CandidateID, link.Similarity, link.Status, link.ReviewedBy).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}

	var created domain.DuplicateLink
	if err := pgxscan.Get(ctx, q, &created, sql, args...); err != nil {
		mapped := postgres.MapError(err, "duplicate_link", link.OriginalID)
		if errors.Is(mapped, domain.ErrAlreadyExists) {
			return nil, fmt.Errorf("pair (%d,%d): %w",
				link.OriginalID, link.CandidateID, domain.ErrDuplicateLinkConflict)
		}
		return nil, mapped
	}
	return &created, nil
}

// GetByID returns a link by primary key.
func (r *Repo) GetByID(ctx context.Context, id int64) (*domain.DuplicateLink, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	sql, args, err := postgres.Builder().
		Select(columns...).
		From("duplicate_links").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var link domain.DuplicateLink
	if err := pgxscan.Get(ctx, q, &link, sql, args...); err != nil {
		return nil, postgres.MapError(err, "duplicate_link", id)
	}
	return &link, nil
}

// ListByOriginal returns all links whose original is the given request,
// highest similarity first.
func (r *Repo) ListByOriginal(ctx context.Context, originalID int64) ([]domain.DuplicateLink, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	sql, args, err := postgres.Builder().
		Select(columns...).
		From("duplicate_links").
		Where(squirrel.Eq{"original_request_id": originalID}).
		OrderBy("similarity DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var links []domain.DuplicateLink
	if err := pgxscan.Select(ctx, q, &links, sql, args...); err != nil {
		return nil, postgres.MapError(err, "duplicate_link", originalID)
	}
	return links, nil
}

// CountConfirmedForCandidate returns how many confirmed links point at the
// candidate. The invariant is at most one; the review path checks this
// inside its transaction before confirming another.
func (r *Repo) CountConfirmedForCandidate(ctx context.Context, candidateID int64) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	sql, args, err := postgres.Builder().
		Select("COUNT(*)").
		From("duplicate_links").
		Where(squirrel.Eq{
			"candidate_request_id": candidateID,
			"status":               domain.ReviewConfirmed,
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var count int
	if err := q.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, postgres.MapError(err, "duplicate_link", candidateID)
	}
	return count, nil
}

// Review moves a pending link to confirmed or rejected, recording the
// reviewer. Guarded on pending status so racing reviews cannot both apply.
func (r *Repo) Review(ctx context.Context, id int64, status domain.ReviewStatus, reviewerID int64) (*domain.DuplicateLink, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	sql, args, err := postgres.Builder().
		Update("duplicate_links").
		Set("status", status).
		Set("reviewed_by", reviewerID).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "status": domain.ReviewPending}).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update: %w", err)
	}

	var link domain.DuplicateLink
	if err := pgxscan.Get(ctx, q, &link, sql, args...); err != nil {
		return nil, postgres.MapError(err, "duplicate_link", id)
	}
	return &link, nil
}
