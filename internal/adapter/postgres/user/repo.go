// Package user implements the User repository using PostgreSQL.
package user

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
	"user_id", "username", "display_name",
	"total_requests", "fulfilled_requests", "rejected_requests",
	"reputation_score", "is_banned", "ban_reason", "ban_until",
	"warnings_count", "first_seen", "last_seen", "last_request_at",
}

// Repo provides user persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new user repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// GetByID returns a user by external handle.
func (r *Repo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	sql, args, err := postgres.Builder().
		Select(columns...).
		From("users").
		Where(squirrel.Eq{"user_id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var u domain.User
	if err := pgxscan.Get(ctx, q, &u, sql, args...); err != nil {
		return nil, postgres.MapError(err, "user", id)
	}
	return &u, nil
}

// CreateIfAbsent performs the idempotent first-contact insert:
// insert-or-ignore, then reread on conflict. Under concurrent first
// contacts from the same handle exactly one caller observes inserted=true;
// the others read the row that insert produced.
func (r *Repo) CreateIfAbsent(ctx context.Context, u domain.User) (*domain.User, bool, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	sql, args, err := postgres.Builder().
		Insert("users").
		Columns("user_id", "username", "display_name", "reputation_score", "first_seen", "last_seen").
		Values(u.ID, u.Username, u.DisplayName, u.ReputationScore, u.FirstSeen, u.LastSeen).
		Suffix("ON CONFLICT (user_id) DO NOTHING RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build insert: %w", err)
	}

	var created domain.User
	err = pgxscan.Get(ctx, q, &created, sql, args...)
	if err == nil {
		return &created, true, nil
	}
	if !pgxscan.NotFound(err) {
		return nil, false, postgres.MapError(err, "user", u.ID)
	}

	// Conflict: the row already exists (possibly inserted a moment ago by a
	// concurrent first contact). Reread it.
	existing, err := r.GetByID(ctx, u.ID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// TouchSeen refreshes last_seen and the observed identity fields.
func (r *Repo) TouchSeen(ctx context.Context, id int64, displayName string, username *string) error {
	q := postgres.QuerierFromCtx(ctx, r.db)

	update := postgres.Builder().
		Update("users").
		Set("last_seen", squirrel.Expr("now()")).
		Set("display_name", displayName).
		Where(squirrel.Eq{"user_id": id})
	if username != nil {
		update = update.Set("username", username)
	}

	sql, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "user", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// MarkRequested increments the submission counter and stamps
// last_request_at. Applied atomically in the store.
func (r *Repo) MarkRequested(ctx context.Context, id int64) error {
	q := postgres.QuerierFromCtx(ctx, r.db)

	sql, args, err := postgres.Builder().
		Update("users").
		Set("total_requests", squirrel.Expr("total_requests + 1")).
		Set("last_request_at", squirrel.Expr("now()")).
		Set("last_seen", squirrel.Expr("now()")).
		Where(squirrel.Eq{"user_id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err, "user", id)
	}
	return nil
}

// ApplyOutcome adjusts the reputation score by delta (clamped to [0,100])
// and bumps the counter matching the outcome, as a single atomic update.
func (r *Repo) ApplyOutcome(ctx context.Context, id int64, outcome domain.Outcome, delta int) (*domain.User, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	update := postgres.Builder().
		Update("users").
		Set("reputation_score", squirrel.Expr("GREATEST(0, LEAST(100, reputation_score + ?))", delta)).
		Where(squirrel.Eq{"user_id": id}).
		Suffix("RETURNING " + strings.Join(columns, ", "))

	switch outcome {
	case domain.OutcomeFulfilled:
		update = update.Set("fulfilled_requests", squirrel.Expr("fulfilled_requests + 1"))
	case domain.OutcomeRejected:
		update = update.Set("rejected_requests", squirrel.Expr("rejected_requests + 1"))
	case domain.OutcomeWarning:
		update = update.Set("warnings_count", squirrel.Expr("warnings_count + 1"))
	default:
		return nil, domain.NewValidationError("outcome", "unknown outcome event")
	}

	sql, args, err := update.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update: %w", err)
	}

	var u domain.User
	if err := pgxscan.Get(ctx, q, &u, sql, args...); err != nil {
		return nil, postgres.MapError(err, "user", id)
	}
	return &u, nil
}

// SetBan updates the ban state. A nil until with banned=true is a
// permanent ban; reason and expiry are cleared on unban.
func (r *Repo) SetBan(ctx context.Context, id int64, banned bool, reason *string, until *time.Time) error {
	q := postgres.QuerierFromCtx(ctx, r.db)

	update := postgres.Builder().
		Update("users").
		Set("is_banned", banned).
		Where(squirrel.Eq{"user_id": id})
	if banned {
		update = update.Set("ban_reason", reason).Set("ban_until", until)
	} else {
		update = update.Set("ban_reason", nil).Set("ban_until", nil)
	}

	sql, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "user", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
