package entity

import (
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the three entity families sharing the slug space.
type Kind string

const (
	KindUser     Kind = "user"
	KindBusiness Kind = "business"
	KindArticle  Kind = "article"
)

// Valid reports whether k is a known entity kind.
func (k Kind) Valid() bool {
	switch k {
	case KindUser, KindBusiness, KindArticle:
		return true
	}
	return false
}

// FallbackSlug is the slug base used when a display name normalizes to
// nothing (e.g. all punctuation).
func (k Kind) FallbackSlug() string {
	return string(k)
}

// Status is the article lifecycle tag. Other kinds leave it empty.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Record is a stored entity. Slug is the current canonical public
// identifier; SlugHistory lists every previously-held slug, oldest
// first, and only ever grows.
type Record struct {
	ID          uuid.UUID `json:"id"`
	Kind        Kind      `json:"kind"`
	DisplayName string    `json:"display_name"`
	Slug        string    `json:"slug"`
	SlugHistory []string  `json:"slug_history"`
	Status      Status    `json:"status,omitempty"`
	Fields      Fields    `json:"fields"`
	OwnerID     uuid.UUID `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PubliclyVisible reports whether the entity's page may be served to
// anonymous visitors. Draft articles are registered but not resolvable.
func (r *Record) PubliclyVisible() bool {
	if r.Kind == KindArticle {
		return r.Status == StatusPublished
	}
	return true
}

// Fields holds the kind-specific renderable payload. Unused members
// stay at their zero value and are omitted from storage.
type Fields struct {
	// User.
	Bio      string `json:"bio,omitempty"`
	PhotoURL string `json:"photo_url,omitempty"`

	// Business.
	Description string   `json:"description,omitempty"`
	Services    []string `json:"services,omitempty"`

	// Article. Content is markdown.
	Content string `json:"content,omitempty"`
}
