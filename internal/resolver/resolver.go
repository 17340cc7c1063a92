package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/permalink/internal/entity"
	"github.com/dmitrymomot/permalink/pkg/cache"
)

// Status classifies a slug lookup outcome.
type Status int

const (
	StatusNotFound Status = iota
	StatusCurrent
	StatusRedirect
)

// Resolution is the outcome of resolving a requested slug. For
// StatusCurrent, Entity is populated. For StatusRedirect, Target is the
// entity's live slug; redirects always point one hop at the current
// location, regardless of how many renames happened in between.
type Resolution struct {
	Status Status
	Kind   entity.Kind
	Target string
	Entity entity.Record
}

// Store is the entity lookup surface the resolver needs.
type Store interface {
	GetBySlug(ctx context.Context, slug string) (*entity.Record, error)
	FindByHistorySlug(ctx context.Context, slug string) ([]*entity.Record, error)
}

// Redirect outcomes are stable until the owning entity renames again,
// so they can be cached aggressively. Renames invalidate explicitly.
const redirectTTL = 24 * time.Hour

// RedirectEntry is the cached form of a redirect outcome.
type RedirectEntry struct {
	Kind   entity.Kind `json:"kind"`
	Target string      `json:"target"`
}

// Resolver resolves requested slugs to live entities or permanent
// redirects, consulting the append-only slug history.
type Resolver struct {
	store Store
	cache cache.Cache[RedirectEntry]
	log   *slog.Logger
}

// New creates a Resolver. The cache holds redirect outcomes only;
// current-slug hits always go to the store so fresh renames are
// observed immediately.
func New(store Store, c cache.Cache[RedirectEntry], log *slog.Logger) *Resolver {
	return &Resolver{store: store, cache: c, log: log}
}

// Resolve classifies the requested slug.
func (r *Resolver) Resolve(ctx context.Context, requested string) (Resolution, error) {
	rec, err := r.store.GetBySlug(ctx, requested)
	switch {
	case err == nil:
		if !rec.PubliclyVisible() {
			return Resolution{Status: StatusNotFound}, nil
		}
		return Resolution{Status: StatusCurrent, Kind: rec.Kind, Entity: *rec}, nil
	case !errors.Is(err, entity.ErrNotFound):
		return Resolution{}, fmt.Errorf("resolver: lookup %q: %w", requested, err)
	}

	if hit, err := r.cache.Get(ctx, requested); err == nil {
		return Resolution{Status: StatusRedirect, Kind: hit.Kind, Target: hit.Target}, nil
	} else if !errors.Is(err, cache.ErrNotFound) {
		r.log.WarnContext(ctx, "redirect cache read failed", slog.String("slug", requested), slog.Any("error", err))
	}

	matches, err := r.store.FindByHistorySlug(ctx, requested)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolver: history lookup %q: %w", requested, err)
	}
	if len(matches) == 0 {
		return Resolution{Status: StatusNotFound}, nil
	}
	if len(matches) > 1 {
		r.log.WarnContext(ctx, "slug present in multiple entity histories",
			slog.String("slug", requested),
			slog.String("chosen_entity_id", matches[0].ID.String()))
	}

	rec = matches[0]
	if !rec.PubliclyVisible() {
		return Resolution{Status: StatusNotFound}, nil
	}

	res := Resolution{Status: StatusRedirect, Kind: rec.Kind, Target: rec.Slug, Entity: *rec}
	if err := r.cache.Set(ctx, requested, RedirectEntry{Kind: rec.Kind, Target: rec.Slug}, redirectTTL); err != nil {
		r.log.WarnContext(ctx, "redirect cache write failed", slog.String("slug", requested), slog.Any("error", err))
	}
	return res, nil
}

// InvalidateSlugs drops cached redirect outcomes for the given slugs.
// Called after a rename so superseded entries pick up the new target.
func (r *Resolver) InvalidateSlugs(ctx context.Context, slugs ...string) {
	for _, s := range slugs {
		if err := r.cache.Delete(ctx, s); err != nil {
			r.log.WarnContext(ctx, "redirect cache invalidation failed", slog.String("slug", s), slog.Any("error", err))
		}
	}
}
