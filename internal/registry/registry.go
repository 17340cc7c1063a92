package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/permalink/internal/entity"
	"github.com/dmitrymomot/permalink/pkg/slug"
)

// Reservation retry tuning. The suffix space widens after a few
// collisions, so the bounded loop terminates in practice even against
// adversarial name churn.
const (
	maxAttempts   = 8
	suffixLen     = 4
	wideSuffixLen = 6
	widenAfter    = 4
)

var (
	// ErrSlugTaken means a concurrent transaction reserved the same
	// candidate between our existence check and insert. The enclosing
	// transaction is aborted; callers retry with a fresh one.
	ErrSlugTaken = errors.New("registry: slug reserved concurrently")

	// ErrExhausted means no free candidate was found within the retry
	// budget. With a widening random suffix this indicates something
	// systematically generating collisions, not normal load.
	ErrExhausted = errors.New("registry: no free slug candidate found")
)

// Conn is the transaction subset the registry needs. *pgx.Tx satisfies it.
type Conn interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Registry is the authoritative slug-to-entity mapping. Reservations
// are append-only: a slug row, once inserted, is never removed, which
// is what keeps superseded links resolving forever.
type Registry struct {
	reserved map[string]struct{}
}

// New creates a Registry that refuses the embedded reserved list.
func New() *Registry {
	return &Registry{reserved: Reserved}
}

// Reserve binds a free slug derived from base to the entity, inside the
// caller's transaction. The normalized base is tried verbatim first;
// on collision a fixed-width random suffix is appended and retried,
// widening after repeated failures.
//
// The insert participates in the caller's transaction, so the binding
// only becomes visible when the entity write commits with it.
func (r *Registry) Reserve(ctx context.Context, conn Conn, base string, entityID uuid.UUID, kind entity.Kind) (string, error) {
	candidate := base
	for attempt := range maxAttempts {
		exists := r.isReserved(candidate)
		if !exists {
			if err := conn.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM slugs WHERE slug = $1)`, candidate,
			).Scan(&exists); err != nil {
				return "", fmt.Errorf("registry: check candidate: %w", err)
			}
		}

		if !exists {
			_, err := conn.Exec(ctx,
				`INSERT INTO slugs (slug, entity_id, kind) VALUES ($1, $2, $3)`,
				candidate, entityID, kind)
			if err != nil {
				if isUniqueViolation(err) {
					return "", fmt.Errorf("%w: %q", ErrSlugTaken, candidate)
				}
				return "", fmt.Errorf("registry: reserve: %w", err)
			}
			return candidate, nil
		}

		n := suffixLen
		if attempt >= widenAfter {
			n = wideSuffixLen
		}
		candidate = slug.Make(base, slug.WithSuffix(n))
	}

	return "", fmt.Errorf("%w: base %q", ErrExhausted, base)
}

func (r *Registry) isReserved(candidate string) bool {
	_, ok := r.reserved[candidate]
	return ok
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
