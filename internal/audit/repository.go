package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scholaris-edu/scholaris/internal/authz"
)

const defaultLimit = 100
const maxLimit = 1000

// Repository persists and queries decision records in authz_decisions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores one decision record.
func (r *Repository) Insert(ctx context.Context, rec authz.Record) error {
	const query = `
		INSERT INTO authz_decisions (actor_id, resource, action, scope, allowed, reason, occurred_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query,
		rec.ActorID, rec.Resource, rec.Action, string(rec.Scope), rec.Allowed, rec.Reason, rec.At)
	return err
}

// Timeline returns decision entries matching the filter, newest first.
func (r *Repository) Timeline(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.ActorID > 0 {
		where = append(where, "actor_id = "+arg(f.ActorID))
	}
	if f.Resource != "" {
		where = append(where, "resource = "+arg(f.Resource))
	}
	if f.Allowed != nil {
		where = append(where, "allowed = "+arg(*f.Allowed))
	}
	if !f.Since.IsZero() {
		where = append(where, "occurred_at >= "+arg(f.Since))
	}
	if !f.Until.IsZero() {
		where = append(where, "occurred_at < "+arg(f.Until))
	}

	query := `SELECT id, actor_id, resource, action, COALESCE(scope, ''), allowed, reason, occurred_at FROM authz_decisions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	query += " ORDER BY occurred_at DESC, id DESC LIMIT " + arg(limit)
	if f.Offset > 0 {
		query += " OFFSET " + arg(f.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		var scope string
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Resource, &e.Action, &scope, &e.Allowed, &e.Reason, &e.At); err != nil {
			return nil, err
		}
		e.Scope = authz.Scope(scope)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// PurgeOlderThan deletes records past the retention horizon and reports
// how many went away.
func (r *Repository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM authz_decisions WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
