// Package rating implements the Rating repository using PostgreSQL.
package rating

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/blackflag/requestbot/internal/adapter/postgres"
	"github.com/blackflag/requestbot/internal/domain"
)

var columns = []string{
	"id", "request_id", "user_id", "score", "comment", "created_at",
}

// Repo provides rating persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new rating repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// Create inserts a rating. The (request_id, user_id) unique constraint
// surfaces as domain.ErrAlreadyExists — never a silent overwrite.
func (r *Repo) Create(ctx context.Context, rating domain.Rating) (*domain.Rating, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	sql, args, err := postgres.Builder().
		Insert("content_ratings").
		Columns("request_id", "user_id", "score", "comment").
		Values(rating.RequestID, rating.UserID, rating.Score, rating.Comment).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}

	var created domain.Rating
	if err := pgxscan.Get(ctx, q, &created, sql, args...); err != nil {
		return nil, postgres.MapError(err, "rating", rating.RequestID)
	}
	return &created, nil
}

// ListByRequest returns all ratings for a request, newest first.
func (r *Repo) ListByRequest(ctx context.Context, requestID int64) ([]domain.Rating, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	sql, args, err := postgres.Builder().
		Select(columns...).
		From("content_ratings").
		Where(squirrel.Eq{"request_id": requestID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var ratings []domain.Rating
	if err := pgxscan.Select(ctx, q, &ratings, sql, args...); err != nil {
		return nil, postgres.MapError(err, "rating", requestID)
	}
	return ratings, nil
}

// AverageForRequest returns the mean score, or 0 with count 0 when the
// request has no ratings.
func (r *Repo) AverageForRequest(ctx context.Context, requestID int64) (float64, int, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	sql, args, err := postgres.Builder().
		Select("COALESCE(AVG(score), 0)", "COUNT(*)").
		From("content_ratings").
		Where(squirrel.Eq{"request_id": requestID}).
		ToSql()
	if err != nil {
		return 0, 0, fmt.Errorf("build query: %w", err)
	}

	var avg float64
	var count int
	if err := q.QueryRow(ctx, sql, args...).Scan(&avg, &count); err != nil {
		return 0, 0, postgres.MapError(err, "rating", requestID)
	}
	return avg, count, nil
}
