package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/dmitrymomot/permalink/internal/entity"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Cache policies baked into rendered documents. Content pages change
// with every profile edit, so they keep a short edge TTL; redirect
// stubs only ever change target and can live at the edge for a day.
const (
	ContentCacheControl  = "public, max-age=300, s-maxage=600"
	RedirectCacheControl = "public, max-age=3600, s-maxage=86400"

	htmlContentType = "text/html; charset=utf-8"
)

// ErrMissingSlug is returned when asked to render a record that has no
// slug assigned yet.
var ErrMissingSlug = errors.New("render: record has no slug")

// Document is a fully rendered artifact ready for storage, headers
// included.
type Document struct {
	Body         []byte
	ContentType  string
	CacheControl string
}

// Renderer produces static HTML documents for entity pages and
// redirect stubs. Article bodies pass through markdown rendering and
// HTML sanitization; everything else is escaped by the templates.
type Renderer struct {
	tmpl   *template.Template
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// New parses the embedded templates and prepares the markdown pipeline.
func New() (*Renderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Typographer),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)

	return &Renderer{
		tmpl:   tmpl,
		md:     md,
		policy: bluemonday.UGCPolicy(),
	}, nil
}

type pageData struct {
	Title       string
	Slug        string
	Bio         string
	PhotoURL    string
	Description string
	Services    []string
	Content     template.HTML
}

// Page renders the content page for a record.
func (r *Renderer) Page(rec entity.Record) (Document, error) {
	if rec.Slug == "" {
		return Document{}, ErrMissingSlug
	}

	data := pageData{
		Title:    rec.DisplayName,
		Slug:     rec.Slug,
		Bio:      rec.Fields.Bio,
		PhotoURL: rec.Fields.PhotoURL,
	}

	var name string
	switch rec.Kind {
	case entity.KindUser:
		name = "user.tmpl"
		if data.Bio == "" {
			data.Bio = "No bio provided."
		}
		if data.PhotoURL == "" {
			data.PhotoURL = "/static/default-avatar.svg"
		}
	case entity.KindBusiness:
		name = "business.tmpl"
		data.Description = rec.Fields.Description
		if data.Description == "" {
			data.Description = "No description provided."
		}
		data.Services = rec.Fields.Services
	case entity.KindArticle:
		name = "article.tmpl"
		body, err := r.renderMarkdown(rec.Fields.Content)
		if err != nil {
			return Document{}, err
		}
		data.Content = body
	default:
		return Document{}, fmt.Errorf("render: unknown kind %q", rec.Kind)
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return Document{}, fmt.Errorf("render: execute %s: %w", name, err)
	}

	return Document{
		Body:         buf.Bytes(),
		ContentType:  htmlContentType,
		CacheControl: ContentCacheControl,
	}, nil
}

type redirectData struct {
	Target string
}

// RedirectStub renders the permanent-redirect page pointing at the
// entity's current location. Stubs always point one hop to the live
// slug, never at another stub.
func (r *Renderer) RedirectStub(kind entity.Kind, targetSlug string) (Document, error) {
	if targetSlug == "" {
		return Document{}, ErrMissingSlug
	}

	var buf bytes.Buffer
	data := redirectData{Target: "/" + string(kind) + "/" + targetSlug}
	if err := r.tmpl.ExecuteTemplate(&buf, "redirect.tmpl", data); err != nil {
		return Document{}, fmt.Errorf("render: execute redirect: %w", err)
	}

	return Document{
		Body:         buf.Bytes(),
		ContentType:  htmlContentType,
		CacheControl: RedirectCacheControl,
	}, nil
}

func (r *Renderer) renderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render: markdown: %w", err)
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil
}
