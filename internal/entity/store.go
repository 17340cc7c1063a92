package entity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sentinel errors for entity persistence.
var (
	ErrNotFound     = errors.New("entity: not found")
	ErrSlugConflict = errors.New("entity: slug already assigned")
)

var qb = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

const table = "entities"

var columns = []string{
	"id", "kind", "display_name", "slug", "slug_history",
	"status", "fields", "owner_id", "created_at", "updated_at",
}

// Store persists entity records in PostgreSQL. Methods with a Tx suffix
// participate in a caller-owned transaction so slug registry writes and
// entity writes commit atomically.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store over the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateTx inserts a new record inside tx.
func (s *Store) CreateTx(ctx context.Context, tx pgx.Tx, rec *Record) error {
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.SlugHistory == nil {
		rec.SlugHistory = []string{}
	}

	sql, args, err := qb.Insert(table).
		Columns(columns...).
		Values(rec.ID, rec.Kind, rec.DisplayName, rec.Slug, rec.SlugHistory,
			rec.Status, rec.Fields, rec.OwnerID, rec.CreatedAt, rec.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("entity: build insert: %w", err)
	}

	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", ErrSlugConflict, rec.Slug)
		}
		return fmt.Errorf("entity: insert: %w", err)
	}
	return nil
}

// GetByID fetches a record by its id.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.getWhere(ctx, squirrel.Eq{"id": id})
}

// GetBySlug fetches the record whose *current* slug matches.
func (s *Store) GetBySlug(ctx context.Context, slug string) (*Record, error) {
	return s.getWhere(ctx, squirrel.Eq{"slug": slug})
}

// FindByHistorySlug returns entities whose slug history contains the
// given slug, ordered by id so multi-match tie-breaks are
// deterministic. At most two rows are fetched: one match is the normal
// case, a second signals a data-integrity problem to the caller.
func (s *Store) FindByHistorySlug(ctx context.Context, slug string) ([]*Record, error) {
	sql, args, err := qb.Select(columns...).
		From(table).
		Where(squirrel.Expr("slug_history @> ?", []string{slug})).
		OrderBy("id").
		Limit(2).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("entity: build query: %w", err)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("entity: query history: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RenameTx swaps the record's current slug inside tx, appending the
// previous slug to the history in the same statement so the two can
// never diverge.
func (s *Store) RenameTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, newSlug string) error {
	tag, err := tx.Exec(ctx,
		`UPDATE entities
		 SET slug = $1, slug_history = array_append(slug_history, slug), updated_at = $2
		 WHERE id = $3`,
		newSlug, time.Now().UTC(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", ErrSlugConflict, newSlug)
		}
		return fmt.Errorf("entity: rename: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateTx writes the record's mutable non-slug fields inside tx.
// Slug changes go through RenameTx only.
func (s *Store) UpdateTx(ctx context.Context, tx pgx.Tx, rec *Record) error {
	rec.UpdatedAt = time.Now().UTC()

	sql, args, err := qb.Update(table).
		Set("display_name", rec.DisplayName).
		Set("status", rec.Status).
		Set("fields", rec.Fields).
		Set("updated_at", rec.UpdatedAt).
		Where(squirrel.Eq{"id": rec.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("entity: build update: %w", err)
	}

	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("entity: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUpdatedSince returns records modified after the cutoff, oldest
// first, for artifact reconciliation sweeps.
func (s *Store) ListUpdatedSince(ctx context.Context, cutoff time.Time, limit uint64) ([]*Record, error) {
	sql, args, err := qb.Select(columns...).
		From(table).
		Where(squirrel.Gt{"updated_at": cutoff}).
		OrderBy("updated_at").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("entity: build query: %w", err)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("entity: query updated: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) getWhere(ctx context.Context, pred any) (*Record, error) {
	sql, args, err := qb.Select(columns...).
		From(table).
		Where(pred).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("entity: build query: %w", err)
	}

	rec, err := scanRecord(s.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.Kind, &rec.DisplayName, &rec.Slug, &rec.SlugHistory,
		&rec.Status, &rec.Fields, &rec.OwnerID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
