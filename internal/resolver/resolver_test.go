package resolver_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/permalink/internal/entity"
	"github.com/dmitrymomot/permalink/internal/resolver"
	"github.com/dmitrymomot/permalink/pkg/cache"
	"github.com/dmitrymomot/permalink/pkg/logger"
)

type fakeStore struct {
	bySlug    map[string]*entity.Record
	byHistory map[string][]*entity.Record
	calls     map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		bySlug:    make(map[string]*entity.Record),
		byHistory: make(map[string][]*entity.Record),
		calls:     make(map[string]int),
	}
}

func (s *fakeStore) GetBySlug(_ context.Context, slug string) (*entity.Record, error) {
	s.calls["GetBySlug"]++
	rec, ok := s.bySlug[slug]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return rec, nil
}

func (s *fakeStore) FindByHistorySlug(_ context.Context, slug string) ([]*entity.Record, error) {
	s.calls["FindByHistorySlug"]++
	return s.byHistory[slug], nil
}

func newResolver(store *fakeStore) *resolver.Resolver {
	return resolver.New(store, cache.NewMemory[resolver.RedirectEntry](), logger.NewNope())
}

func published(kind entity.Kind, slug string, history ...string) *entity.Record {
	return &entity.Record{
		ID:          uuid.New(),
		Kind:        kind,
		DisplayName: slug,
		Slug:        slug,
		SlugHistory: history,
		Status:      entity.StatusPublished,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("current slug", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		rec := published(entity.KindUser, "jane-doe")
		store.bySlug["jane-doe"] = rec

		res, err := newResolver(store).Resolve(ctx, "jane-doe")
		require.NoError(t, err)
		assert.Equal(t, resolver.StatusCurrent, res.Status)
		assert.Equal(t, rec.ID, res.Entity.ID)
	})

	t.Run("superseded slug redirects to current", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		rec := published(entity.KindUser, "j-smith", "jane-doe", "jane-smith")
		store.bySlug["j-smith"] = rec
		store.byHistory["jane-doe"] = []*entity.Record{rec}
		store.byHistory["jane-smith"] = []*entity.Record{rec}

		r := newResolver(store)
		for _, old := range []string{"jane-doe", "jane-smith"} {
			res, err := r.Resolve(ctx, old)
			require.NoError(t, err)
			assert.Equal(t, resolver.StatusRedirect, res.Status)
			assert.Equal(t, "j-smith", res.Target, "chain collapses to one hop")
			assert.Equal(t, entity.KindUser, res.Kind)
		}
	})

	t.Run("redirect outcome cached", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		rec := published(entity.KindUser, "jane-smith", "jane-doe")
		store.bySlug["jane-smith"] = rec
		store.byHistory["jane-doe"] = []*entity.Record{rec}

		r := newResolver(store)
		_, err := r.Resolve(ctx, "jane-doe")
		require.NoError(t, err)
		_, err = r.Resolve(ctx, "jane-doe")
		require.NoError(t, err)
		assert.Equal(t, 1, store.calls["FindByHistorySlug"])
	})

	t.Run("invalidation forces fresh lookup", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		rec := published(entity.KindUser, "jane-smith", "jane-doe")
		store.bySlug["jane-smith"] = rec
		store.byHistory["jane-doe"] = []*entity.Record{rec}

		r := newResolver(store)
		_, err := r.Resolve(ctx, "jane-doe")
		require.NoError(t, err)

		// Rename again: current slug moves on and history grows.
		rec.Slug = "j-smith"
		rec.SlugHistory = append(rec.SlugHistory, "jane-smith")
		delete(store.bySlug, "jane-smith")
		store.bySlug["j-smith"] = rec
		store.byHistory["jane-doe"] = []*entity.Record{rec}
		store.byHistory["jane-smith"] = []*entity.Record{rec}

		r.InvalidateSlugs(ctx, "jane-doe", "jane-smith")

		res, err := r.Resolve(ctx, "jane-doe")
		require.NoError(t, err)
		assert.Equal(t, "j-smith", res.Target)
	})

	t.Run("unknown slug", func(t *testing.T) {
		t.Parallel()

		res, err := newResolver(newFakeStore()).Resolve(ctx, "nobody")
		require.NoError(t, err)
		assert.Equal(t, resolver.StatusNotFound, res.Status)
	})

	t.Run("draft article hidden", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		rec := published(entity.KindArticle, "draft-post")
		rec.Status = entity.StatusDraft
		store.bySlug["draft-post"] = rec

		res, err := newResolver(store).Resolve(ctx, "draft-post")
		require.NoError(t, err)
		assert.Equal(t, resolver.StatusNotFound, res.Status)
	})

	t.Run("contested history slug picks first match", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		a := published(entity.KindUser, "winner", "old-name")
		b := published(entity.KindUser, "loser", "old-name")
		store.byHistory["old-name"] = []*entity.Record{a, b}

		res, err := newResolver(store).Resolve(ctx, "old-name")
		require.NoError(t, err)
		assert.Equal(t, resolver.StatusRedirect, res.Status)
		assert.Equal(t, "winner", res.Target)
	})
}
