package render_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/permalink/internal/entity"
	"github.com/dmitrymomot/permalink/internal/render"
)

func TestPage(t *testing.T) {
	t.Parallel()

	r, err := render.New()
	require.NoError(t, err)

	t.Run("user page with fallbacks", func(t *testing.T) {
		t.Parallel()

		doc, err := r.Page(entity.Record{
			ID:          uuid.New(),
			Kind:        entity.KindUser,
			DisplayName: "Jane Doe",
			Slug:        "jane-doe",
		})
		require.NoError(t, err)

		body := string(doc.Body)
		assert.Contains(t, body, "<h1>Jane Doe</h1>")
		assert.Contains(t, body, "No bio provided.")
		assert.Contains(t, body, "/static/default-avatar.svg")
		assert.Contains(t, body, `href="/user/jane-doe"`)
		assert.Equal(t, "text/html; charset=utf-8", doc.ContentType)
		assert.Equal(t, render.ContentCacheControl, doc.CacheControl)
	})

	t.Run("user page escapes display name", func(t *testing.T) {
		t.Parallel()

		doc, err := r.Page(entity.Record{
			Kind:        entity.KindUser,
			DisplayName: "Jane <script>alert(1)</script>",
			Slug:        "jane",
		})
		require.NoError(t, err)
		assert.NotContains(t, string(doc.Body), "<script>")
	})

	t.Run("business page lists services", func(t *testing.T) {
		t.Parallel()

		doc, err := r.Page(entity.Record{
			Kind:        entity.KindBusiness,
			DisplayName: "Acme Consulting",
			Slug:        "acme-consulting",
			Fields: entity.Fields{
				Description: "We consult.",
				Services:    []string{"Audits", "Training"},
			},
		})
		require.NoError(t, err)

		body := string(doc.Body)
		assert.Contains(t, body, "We consult.")
		assert.Contains(t, body, "<li>Audits</li>")
		assert.Contains(t, body, "<li>Training</li>")
	})

	t.Run("article renders markdown and strips unsafe html", func(t *testing.T) {
		t.Parallel()

		doc, err := r.Page(entity.Record{
			Kind:        entity.KindArticle,
			DisplayName: "Hello World",
			Slug:        "hello-world",
			Fields: entity.Fields{
				Content: "## Section\n\nSome *emphasis*.\n\n<script>alert(1)</script>",
			},
		})
		require.NoError(t, err)

		body := string(doc.Body)
		assert.Contains(t, body, "<h2")
		assert.Contains(t, body, "<em>emphasis</em>")
		assert.NotContains(t, body, "<script>")
	})

	t.Run("missing slug rejected", func(t *testing.T) {
		t.Parallel()

		_, err := r.Page(entity.Record{Kind: entity.KindUser, DisplayName: "Jane"})
		require.ErrorIs(t, err, render.ErrMissingSlug)
	})
}

func TestRedirectStub(t *testing.T) {
	t.Parallel()

	r, err := render.New()
	require.NoError(t, err)

	doc, err := r.RedirectStub(entity.KindUser, "jane-smith")
	require.NoError(t, err)

	body := string(doc.Body)
	assert.Contains(t, body, `link rel="canonical" href="/user/jane-smith"`)
	assert.Contains(t, body, `url=/user/jane-smith`)
	assert.Equal(t, render.RedirectCacheControl, doc.CacheControl)

	_, err = r.RedirectStub(entity.KindUser, "")
	require.ErrorIs(t, err, render.ErrMissingSlug)
}
