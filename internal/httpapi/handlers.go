package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dmitrymomot/permalink/internal/entity"
	"github.com/dmitrymomot/permalink/internal/lifecycle"
	"github.com/dmitrymomot/permalink/internal/render"
	"github.com/dmitrymomot/permalink/internal/resolver"
	"github.com/dmitrymomot/permalink/pkg/storage"
)

// Lifecycle is the write-side surface exposed over the API.
type Lifecycle interface {
	Create(ctx context.Context, in lifecycle.CreateInput) (*entity.Record, error)
	Update(ctx context.Context, actorID, id uuid.UUID, upd entity.Update) (*entity.Record, error)
	PublishArticle(ctx context.Context, actorID, id uuid.UUID) (*entity.Record, error)
}

// EntityGetter fetches a record by id for owner reads.
type EntityGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Record, error)
}

// SlugResolver classifies public slug requests.
type SlugResolver interface {
	Resolve(ctx context.Context, slug string) (resolver.Resolution, error)
}

// ArtifactReader serves stored page bytes.
type ArtifactReader interface {
	Fetch(ctx context.Context, slug string) ([]byte, error)
}

// Enqueuer requests a background artifact rebuild.
type Enqueuer interface {
	EnqueueRepublish(ctx context.Context, entityID uuid.UUID) error
}

// Server carries the handler dependencies.
type Server struct {
	lifecycle Lifecycle
	store     EntityGetter
	resolver  SlugResolver
	artifacts ArtifactReader
	renderer  *render.Renderer
	enqueue   Enqueuer
	log       *slog.Logger
}

// NewServer wires the HTTP handlers.
func NewServer(lc Lifecycle, store EntityGetter, res SlugResolver, artifacts ArtifactReader, renderer *render.Renderer, enq Enqueuer, log *slog.Logger) *Server {
	return &Server{
		lifecycle: lc,
		store:     store,
		resolver:  res,
		artifacts: artifacts,
		renderer:  renderer,
		enqueue:   enq,
		log:       log,
	}
}

// Router assembles the route tree: an authenticated management API
// under /api and the anonymous public pages at the root.
func (s *Server) Router(verifier TokenVerifier) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/{kind}", func(api chi.Router) {
		api.Use(Authenticate(verifier))
		api.Post("/", s.handleCreate)
		api.Get("/{id}", s.handleGet)
		api.Put("/{id}", s.handleUpdate)
		api.Post("/{id}/publish", s.handlePublish)
	})

	r.Get("/{kind}/{slug}", s.handlePage)

	return r
}

type createRequest struct {
	DisplayName string        `json:"display_name"`
	Fields      entity.Fields `json:"fields"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	kind := entity.Kind(chi.URLParam(r, "kind"))
	actor, _ := Principal(r.Context())

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	rec, err := s.lifecycle.Create(r.Context(), lifecycle.CreateInput{
		Kind:        kind,
		DisplayName: req.DisplayName,
		OwnerID:     actor,
		Fields:      req.Fields,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.ownedRecord(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	kind := entity.Kind(chi.URLParam(r, "kind"))
	actor, _ := Principal(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	upd, err := decodeUpdate(kind, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	rec, err := s.lifecycle.Update(r.Context(), actor, id, upd)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	actor, _ := Principal(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	rec, err := s.lifecycle.PublishArticle(r.Context(), actor, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handlePage serves the public entity pages. Requests arrive either as
// /{kind}/{slug} or with a trailing .html from crawlers that saw the
// raw artifact keys; both forms resolve the same way.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	kind := entity.Kind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		http.NotFound(w, r)
		return
	}
	requested := strings.TrimSuffix(chi.URLParam(r, "slug"), ".html")

	res, err := s.resolver.Resolve(r.Context(), requested)
	if err != nil {
		s.log.ErrorContext(r.Context(), "resolve failed",
			slog.String("slug", requested), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")

	switch res.Status {
	case resolver.StatusCurrent:
		if res.Kind != kind {
			// Right slug, wrong section. Send the visitor to the
			// canonical path.
			s.permanentRedirect(w, r, res.Kind, requested, render.ContentCacheControl)
			return
		}
		s.servePage(w, r, res.Entity)

	case resolver.StatusRedirect:
		s.permanentRedirect(w, r, res.Kind, res.Target, render.RedirectCacheControl)

	default:
		http.NotFound(w, r)
	}
}

func (s *Server) permanentRedirect(w http.ResponseWriter, r *http.Request, kind entity.Kind, slug, cacheControl string) {
	w.Header().Set("Cache-Control", cacheControl)
	http.Redirect(w, r, "/"+string(kind)+"/"+slug, http.StatusMovedPermanently)
}

// servePage streams the stored artifact, falling back to an inline
// render when the store is missing the page, with a background
// republish queued to heal the store.
func (s *Server) servePage(w http.ResponseWriter, r *http.Request, rec entity.Record) {
	ctx := r.Context()

	body, err := s.artifacts.Fetch(ctx, rec.Slug)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.ErrorContext(ctx, "artifact fetch failed",
				slog.String("slug", rec.Slug), slog.Any("error", err))
		}
		doc, rerr := s.renderer.Page(rec)
		if rerr != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		body = doc.Body
		if qerr := s.enqueue.EnqueueRepublish(ctx, rec.ID); qerr != nil {
			s.log.ErrorContext(ctx, "republish enqueue failed",
				slog.String("entity_id", rec.ID.String()), slog.Any("error", qerr))
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", render.ContentCacheControl)
	_, _ = w.Write(body)
}

func decodeUpdate(kind entity.Kind, r *http.Request) (entity.Update, error) {
	switch kind {
	case entity.KindUser:
		var u entity.UserUpdate
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			return nil, err
		}
		return u, nil
	case entity.KindBusiness:
		var u entity.BusinessUpdate
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			return nil, err
		}
		return u, nil
	case entity.KindArticle:
		var u entity.ArticleUpdate
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			return nil, err
		}
		return u, nil
	default:
		return nil, errors.New("unknown kind")
	}
}

func (s *Server) ownedRecord(w http.ResponseWriter, r *http.Request) (*entity.Record, bool) {
	actor, _ := Principal(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return nil, false
	}

	rec, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	if rec.OwnerID != actor {
		writeError(w, http.StatusForbidden, "forbidden")
		return nil, false
	}
	return rec, true
}
