package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrymomot/permalink/internal/render"
	"github.com/dmitrymomot/permalink/pkg/storage"
)

// Key maps a slug to its object key. Leading slashes are stripped so a
// slug arriving as a request path segment keys the same object as the
// bare form.
func Key(slug string) string {
	return strings.TrimLeft(slug, "/") + ".html"
}

// Publisher writes rendered documents to object storage under their
// slug-derived keys. Writes are full overwrites, so publishing the
// same document twice is a no-op in effect.
type Publisher struct {
	store storage.Storage
}

// NewPublisher creates a Publisher backed by the given store.
func NewPublisher(store storage.Storage) *Publisher {
	return &Publisher{store: store}
}

// Publish uploads the document under the slug's key.
func (p *Publisher) Publish(ctx context.Context, slug string, doc render.Document) error {
	err := p.store.Put(ctx, Key(slug), bytes.NewReader(doc.Body),
		storage.WithContentType(doc.ContentType),
		storage.WithCacheControl(doc.CacheControl),
	)
	if err != nil {
		return fmt.Errorf("artifact: publish %q: %w", slug, err)
	}
	return nil
}

// Fetch returns the stored document body for the slug.
func (p *Publisher) Fetch(ctx context.Context, slug string) ([]byte, error) {
	rc, err := p.store.Get(ctx, Key(slug))
	if err != nil {
		return nil, fmt.Errorf("artifact: fetch %q: %w", slug, err)
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("artifact: read %q: %w", slug, err)
	}
	return body, nil
}

// Exists reports whether an artifact is stored for the slug.
func (p *Publisher) Exists(ctx context.Context, slug string) (bool, error) {
	ok, err := p.store.Exists(ctx, Key(slug))
	if err != nil {
		return false, fmt.Errorf("artifact: head %q: %w", slug, err)
	}
	return ok, nil
}
