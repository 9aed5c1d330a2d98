// Package postgres implements the timeline storage collaborator over
// PostgreSQL. Attribute payloads live in a JSONB column; the temporal
// bounds stay plain integers so range predicates hit the indexes.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tempus/internal/timeline"
	"tempus/pkg/calendar"
	"tempus/pkg/platform/sentinel"
	"tempus/pkg/platform/tx"
)

const schema = `
CREATE TABLE IF NOT EXISTS iterations (
	id UUID PRIMARY KEY,
	identity TEXT NOT NULL,
	effective_from INTEGER NOT NULL,
	effective_to INTEGER NOT NULL,
	attributes JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT iterations_period_valid CHECK (effective_from < effective_to)
);
CREATE INDEX IF NOT EXISTS idx_iterations_identity_from ON iterations (identity, effective_from);
CREATE INDEX IF NOT EXISTS idx_iterations_identity_to ON iterations (identity, effective_to);
`

// Store persists iterations in PostgreSQL.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to the given DSN through the pgx stdlib driver and wraps
// the pool in a Store.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	return New(db), nil
}

// EnsureSchema creates the iterations table and indexes if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure iterations schema: %w", err)
	}
	return nil
}

// querier abstracts *sql.DB and *sql.Tx so reads and writes inside a
// Transact scope run on the transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) conn(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *Store) Insert(ctx context.Context, it *timeline.Iteration) error {
	attrs, err := json.Marshal(it.Attributes)
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}
	_, err = s.conn(ctx).ExecContext(ctx, `
		INSERT INTO iterations (id, identity, effective_from, effective_to, attributes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		it.ID, it.Identity, int(it.EffectiveFrom), int(it.EffectiveTo), attrs, it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert iteration: %w", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, it *timeline.Iteration) error {
	attrs, err := json.Marshal(it.Attributes)
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}
	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE iterations
		SET identity = $2, effective_from = $3, effective_to = $4, attributes = $5, updated_at = $6
		WHERE id = $1`,
		it.ID, it.Identity, int(it.EffectiveFrom), int(it.EffectiveTo), attrs, it.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update iteration: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update iteration: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update iteration %s: %w", it.ID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM iterations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete iteration: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete iteration: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete iteration %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

func (s *Store) List(ctx context.Context, f timeline.Filter) ([]*timeline.Iteration, error) {
	query, args := buildListQuery(f)
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list iterations: %w", err)
	}
	defer rows.Close()

	var out []*timeline.Iteration
	for rows.Next() {
		var (
			it       timeline.Iteration
			from, to int
			attrs    []byte
		)
		if err := rows.Scan(&it.ID, &it.Identity, &from, &to, &attrs, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan iteration: %w", err)
		}
		it.EffectiveFrom = calendar.Date(from)
		it.EffectiveTo = calendar.Date(to)
		if err := json.Unmarshal(attrs, &it.Attributes); err != nil {
			return nil, fmt.Errorf("unmarshal attributes: %w", err)
		}
		out = append(out, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list iterations: %w", err)
	}
	return out, nil
}

// Transact runs fn inside one SQL transaction, carried through the
// context so nested store calls land on it.
func (s *Store) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx.WithTx(ctx, sqlTx)); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func buildListQuery(f timeline.Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Identity != "" {
		where = append(where, "identity = "+arg(f.Identity))
	}
	if f.At != nil {
		p := arg(int(*f.At))
		where = append(where, "effective_from <= "+p, "effective_to > "+p)
	}
	if f.WhollyBefore != nil {
		p := arg(int(*f.WhollyBefore))
		where = append(where, "effective_from < "+p, "effective_to < "+p)
	}
	if f.WhollyAfter != nil {
		p := arg(int(*f.WhollyAfter))
		where = append(where, "effective_from > "+p, "effective_to > "+p)
	}
	if f.FromEquals != nil {
		where = append(where, "effective_from = "+arg(int(*f.FromEquals)))
	}
	if f.ToEquals != nil {
		where = append(where, "effective_to = "+arg(int(*f.ToEquals)))
	}
	if f.FromAtLeast != nil {
		where = append(where, "effective_from >= "+arg(int(*f.FromAtLeast)))
	}
	if f.ToAtMost != nil {
		where = append(where, "effective_to <= "+arg(int(*f.ToAtMost)))
	}
	if f.Current {
		where = append(where, "effective_to = 99999999")
	}
	if f.Initial {
		where = append(where, "effective_from = 0")
	}
	if f.Ended {
		where = append(where, "effective_to < 99999999")
	}

	var b strings.Builder
	b.WriteString("SELECT id, identity, effective_from, effective_to, attributes, created_at, updated_at FROM iterations")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	switch f.Order {
	case timeline.OrderFromDesc:
		b.WriteString(" ORDER BY effective_from DESC, identity")
	case timeline.OrderToAsc:
		b.WriteString(" ORDER BY effective_to ASC, identity")
	case timeline.OrderToDesc:
		b.WriteString(" ORDER BY effective_to DESC, identity")
	default:
		b.WriteString(" ORDER BY effective_from ASC, identity")
	}
	if f.Limit > 0 {
		b.WriteString(" LIMIT " + arg(f.Limit))
	}
	return b.String(), args
}
