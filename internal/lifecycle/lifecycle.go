package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/permalink/internal/entity"
	"github.com/dmitrymomot/permalink/internal/registry"
	"github.com/dmitrymomot/permalink/internal/render"
	"github.com/dmitrymomot/permalink/pkg/slug"
)

var (
	ErrDisplayNameRequired = errors.New("lifecycle: display name is required")
	ErrInvalidKind         = errors.New("lifecycle: invalid entity kind")
	ErrKindMismatch        = errors.New("lifecycle: update kind does not match entity")
	ErrForbidden           = errors.New("lifecycle: actor does not own entity")

	// ErrConsistency means the registry and the entities table disagree,
	// e.g. a freshly reserved slug already sits on another entity row.
	// This should never happen; it indicates manual data surgery.
	ErrConsistency = errors.New("lifecycle: registry and entity state diverged")
)

const (
	maxSlugLen = 80

	// A whole-transaction retry covers the window where two requests
	// reserve the same candidate concurrently.
	maxTxRetries = 3
)

// Transactor runs a function inside a database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// EntityStore is the persistence surface the coordinator drives.
type EntityStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, rec *entity.Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Record, error)
	RenameTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, newSlug string) error
	UpdateTx(ctx context.Context, tx pgx.Tx, rec *entity.Record) error
	ListUpdatedSince(ctx context.Context, cutoff time.Time, limit uint64) ([]*entity.Record, error)
}

// SlugRegistry reserves slugs inside a transaction.
type SlugRegistry interface {
	Reserve(ctx context.Context, conn registry.Conn, base string, entityID uuid.UUID, kind entity.Kind) (string, error)
}

// Publisher writes rendered documents to the artifact store.
type Publisher interface {
	Publish(ctx context.Context, slug string, doc render.Document) error
}

// Enqueuer schedules a background republish for an entity whose
// artifact writes failed inline.
type Enqueuer interface {
	EnqueueRepublish(ctx context.Context, entityID uuid.UUID) error
}

// Invalidator drops cached redirect outcomes for slugs.
type Invalidator interface {
	InvalidateSlugs(ctx context.Context, slugs ...string)
}

// Coordinator owns the create and rename flows. Database state commits
// first; artifact publishing happens after commit, best effort, with a
// background republish queued on failure. The artifact store may lag
// the database but never the other way around.
type Coordinator struct {
	tx        Transactor
	store     EntityStore
	registry  SlugRegistry
	renderer  *render.Renderer
	publisher Publisher
	caches    Invalidator
	enqueue   Enqueuer
	log       *slog.Logger
}

// New wires a Coordinator.
func New(tx Transactor, store EntityStore, reg SlugRegistry, renderer *render.Renderer, pub Publisher, caches Invalidator, enq Enqueuer, log *slog.Logger) *Coordinator {
	return &Coordinator{
		tx:        tx,
		store:     store,
		registry:  reg,
		renderer:  renderer,
		publisher: pub,
		caches:    caches,
		enqueue:   enq,
		log:       log,
	}
}

// CreateInput carries the fields for a new entity.
type CreateInput struct {
	Kind        entity.Kind
	DisplayName string
	OwnerID     uuid.UUID
	Fields      entity.Fields
}

// Create reserves a slug and inserts the entity atomically, then
// publishes its page. Articles start as drafts; users and businesses
// are visible immediately.
func (c *Coordinator) Create(ctx context.Context, in CreateInput) (*entity.Record, error) {
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, in.Kind)
	}
	if strings.TrimSpace(in.DisplayName) == "" {
		return nil, ErrDisplayNameRequired
	}

	now := time.Now().UTC()
	rec := &entity.Record{
		ID:          uuid.New(),
		Kind:        in.Kind,
		DisplayName: strings.TrimSpace(in.DisplayName),
		Status:      entity.StatusPublished,
		Fields:      in.Fields,
		OwnerID:     in.OwnerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Kind == entity.KindArticle {
		rec.Status = entity.StatusDraft
	}

	base := slugBase(rec.DisplayName, in.Kind)
	if err := c.retryTx(ctx, func(tx pgx.Tx) error {
		reserved, err := c.registry.Reserve(ctx, tx, base, rec.ID, rec.Kind)
		if err != nil {
			return err
		}
		rec.Slug = reserved
		if err := c.store.CreateTx(ctx, tx, rec); err != nil {
			if errors.Is(err, entity.ErrSlugConflict) {
				return fmt.Errorf("%w: slug %q free in registry but taken on an entity", ErrConsistency, reserved)
			}
			return err
		}
		return nil
	}); err != nil {
		return nil, err
	}

	c.publishBestEffort(ctx, rec)
	return rec, nil
}

// Update applies field changes and, when the display name moves to a
// genuinely new slug base, renames the entity. The old slug joins the
// history and keeps resolving as a permanent redirect.
func (c *Coordinator) Update(ctx context.Context, actorID, id uuid.UUID, upd entity.Update) (*entity.Record, error) {
	rec, err := c.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.OwnerID != actorID {
		return nil, ErrForbidden
	}
	if upd.Kind() != rec.Kind {
		return nil, fmt.Errorf("%w: got %q, entity is %q", ErrKindMismatch, upd.Kind(), rec.Kind)
	}

	oldSlug := rec.Slug
	oldBase := slugBase(rec.DisplayName, rec.Kind)
	upd.Apply(rec)
	rec.UpdatedAt = time.Now().UTC()

	// A rename happens only when the display name normalizes to a new
	// base. Cosmetic edits ("Jane Doe" to "Jane  Doe.") keep the slug,
	// including any collision suffix it carries.
	base := slugBase(rec.DisplayName, rec.Kind)
	needsRename := base != oldBase

	if err := c.retryTx(ctx, func(tx pgx.Tx) error {
		if needsRename {
			newSlug, err := c.registry.Reserve(ctx, tx, base, rec.ID, rec.Kind)
			if err != nil {
				return err
			}
			if err := c.store.RenameTx(ctx, tx, id, newSlug); err != nil {
				if errors.Is(err, entity.ErrSlugConflict) {
					return fmt.Errorf("%w: slug %q free in registry but taken on an entity", ErrConsistency, newSlug)
				}
				return err
			}
			rec.Slug = newSlug
		}
		return c.store.UpdateTx(ctx, tx, rec)
	}); err != nil {
		return nil, err
	}

	if needsRename {
		rec.SlugHistory = append(rec.SlugHistory, oldSlug)
		c.caches.InvalidateSlugs(ctx, rec.SlugHistory...)
	}

	c.publishBestEffort(ctx, rec)
	return rec, nil
}

// PublishArticle flips a draft article to published and publishes its
// page.
func (c *Coordinator) PublishArticle(ctx context.Context, actorID, id uuid.UUID) (*entity.Record, error) {
	rec, err := c.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.OwnerID != actorID {
		return nil, ErrForbidden
	}
	if rec.Kind != entity.KindArticle {
		return nil, fmt.Errorf("%w: only articles have a draft state", ErrKindMismatch)
	}

	if rec.Status == entity.StatusPublished {
		return rec, nil
	}

	rec.Status = entity.StatusPublished
	rec.UpdatedAt = time.Now().UTC()
	if err := c.tx.WithTx(ctx, func(tx pgx.Tx) error {
		return c.store.UpdateTx(ctx, tx, rec)
	}); err != nil {
		return nil, err
	}

	c.publishBestEffort(ctx, rec)
	return rec, nil
}

// Republish regenerates every artifact for the entity: its page and a
// redirect stub for each superseded slug. Used by background recovery;
// errors propagate so the job is retried.
func (c *Coordinator) Republish(ctx context.Context, id uuid.UUID) error {
	rec, err := c.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return c.publishAll(ctx, rec)
}

// ReconcileRecent republishes artifacts for entities updated within the
// window. Individual failures are logged and skipped so one bad record
// does not stall the sweep.
func (c *Coordinator) ReconcileRecent(ctx context.Context, window time.Duration, limit uint64) error {
	recs, err := c.store.ListUpdatedSince(ctx, time.Now().UTC().Add(-window), limit)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if err := c.publishAll(ctx, rec); err != nil {
			c.log.ErrorContext(ctx, "reconcile republish failed",
				slog.String("entity_id", rec.ID.String()), slog.Any("error", err))
		}
	}
	return nil
}

func (c *Coordinator) retryTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	var err error
	for range maxTxRetries {
		err = c.tx.WithTx(ctx, fn)
		if !errors.Is(err, registry.ErrSlugTaken) {
			return err
		}
	}
	return err
}

// publishBestEffort writes artifacts after a successful commit. A
// failure here never unwinds the database write; the entity is queued
// for background republish instead.
func (c *Coordinator) publishBestEffort(ctx context.Context, rec *entity.Record) {
	if err := c.publishAll(ctx, rec); err != nil {
		c.log.ErrorContext(ctx, "artifact publish failed, queueing republish",
			slog.String("entity_id", rec.ID.String()),
			slog.String("slug", rec.Slug),
			slog.Any("error", err))
		if qerr := c.enqueue.EnqueueRepublish(ctx, rec.ID); qerr != nil {
			c.log.ErrorContext(ctx, "republish enqueue failed",
				slog.String("entity_id", rec.ID.String()), slog.Any("error", qerr))
		}
	}
}

// publishAll writes the entity page plus one collapsed redirect stub
// per superseded slug. Writing stubs for the whole history every time
// keeps stored redirects pointing one hop at the live slug.
func (c *Coordinator) publishAll(ctx context.Context, rec *entity.Record) error {
	if rec.PubliclyVisible() {
		doc, err := c.renderer.Page(*rec)
		if err != nil {
			return err
		}
		if err := c.publisher.Publish(ctx, rec.Slug, doc); err != nil {
			return err
		}
	}

	for _, old := range rec.SlugHistory {
		stub, err := c.renderer.RedirectStub(rec.Kind, rec.Slug)
		if err != nil {
			return err
		}
		if err := c.publisher.Publish(ctx, old, stub); err != nil {
			return err
		}
	}
	return nil
}

// slugBase normalizes a display name into the slug candidate base.
// Deterministic: the same display name always yields the same base, so
// base equality is how cosmetic edits are told apart from renames.
// Reserved bases (and the kind-name fallback, which is reserved) come
// out suffixed at reservation time, not here.
func slugBase(displayName string, kind entity.Kind) string {
	base := slug.Make(displayName, slug.MaxLength(maxSlugLen))
	if base == "" {
		base = kind.FallbackSlug()
	}
	return base
}
