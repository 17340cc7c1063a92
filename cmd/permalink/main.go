package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/permalink/internal/artifact"
	"github.com/dmitrymomot/permalink/internal/config"
	"github.com/dmitrymomot/permalink/internal/entity"
	"github.com/dmitrymomot/permalink/internal/httpapi"
	"github.com/dmitrymomot/permalink/internal/jobs"
	"github.com/dmitrymomot/permalink/internal/lifecycle"
	"github.com/dmitrymomot/permalink/internal/registry"
	"github.com/dmitrymomot/permalink/internal/render"
	"github.com/dmitrymomot/permalink/internal/resolver"
	"github.com/dmitrymomot/permalink/migrations"
	"github.com/dmitrymomot/permalink/pkg/cache"
	"github.com/dmitrymomot/permalink/pkg/db"
	"github.com/dmitrymomot/permalink/pkg/logger"
	"github.com/dmitrymomot/permalink/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(cfg.Logger)

	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, migrations.FS, cfg.Database.MigrationsTable, log); err != nil {
		return err
	}
	if err := migrateRiver(ctx, pool); err != nil {
		return err
	}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		return err
	}

	entities := entity.NewStore(pool)
	renderer, err := render.New()
	if err != nil {
		return err
	}
	publisher := artifact.NewPublisher(store)
	resolv := resolver.New(entities, redirectCache(cfg.RedisURL, log), log)

	enq := &deferredEnqueuer{}
	coord := lifecycle.New(
		poolTransactor{pool}, entities, registry.New(),
		renderer, publisher, resolv, enq, log,
	)

	jobClient, err := jobs.NewClient(pool, coord, cfg.Jobs, log)
	if err != nil {
		return err
	}
	enq.client = jobClient

	server := httpapi.NewServer(coord, entities, resolv, publisher, renderer, jobClient, log)
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(httpapi.NewJWTVerifier(cfg.AuthJWTSecret)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := jobClient.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", slog.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := jobClient.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func migrateRiver(ctx context.Context, pool *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return fmt.Errorf("river migrations: %w", err)
	}
	return nil
}

// redirectCache picks Redis when configured, otherwise an in-process
// fallback for single-instance setups.
func redirectCache(redisURL string, log *slog.Logger) cache.Cache[resolver.RedirectEntry] {
	if redisURL == "" {
		log.Warn("REDIS_URL not set, using in-process redirect cache")
		return cache.NewMemory[resolver.RedirectEntry]()
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn("invalid REDIS_URL, using in-process redirect cache", slog.Any("error", err))
		return cache.NewMemory[resolver.RedirectEntry]()
	}
	return cache.NewRedis[resolver.RedirectEntry](redis.NewClient(opts), "redirect")
}

// poolTransactor adapts the pgx pool to the coordinator's transaction
// surface.
type poolTransactor struct {
	pool *pgxpool.Pool
}

func (t poolTransactor) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return db.WithTx(ctx, t.pool, fn)
}

// deferredEnqueuer breaks the construction cycle between the
// coordinator (which enqueues republish jobs) and the job client
// (whose workers call back into the coordinator).
type deferredEnqueuer struct {
	client *jobs.Client
}

func (d *deferredEnqueuer) EnqueueRepublish(ctx context.Context, id uuid.UUID) error {
	if d.client == nil {
		return errors.New("job client not initialized")
	}
	return d.client.EnqueueRepublish(ctx, id)
}
