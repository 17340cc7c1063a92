package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/robfig/cron/v3"

	"github.com/dmitrymomot/permalink/internal/entity"
)

var (
	ErrAlreadyStarted = errors.New("jobs: already started")
	ErrNotStarted     = errors.New("jobs: not started")
)

// Config tunes background processing. Embed it in the app config for
// env parsing.
type Config struct {
	MaxWorkers        int           `env:"JOBS_MAX_WORKERS" envDefault:"10"`
	ReconcileSchedule string        `env:"JOBS_RECONCILE_SCHEDULE" envDefault:"*/15 * * * *"`
	ReconcileWindow   time.Duration `env:"JOBS_RECONCILE_WINDOW" envDefault:"1h"`
	ReconcileLimit    uint64        `env:"JOBS_RECONCILE_LIMIT" envDefault:"500"`
}

// Coordinator is the artifact-recovery surface the workers drive.
type Coordinator interface {
	Republish(ctx context.Context, id uuid.UUID) error
	ReconcileRecent(ctx context.Context, window time.Duration, limit uint64) error
}

// RepublishArgs asks for a full artifact rebuild of one entity: its
// page plus a redirect stub per superseded slug.
type RepublishArgs struct {
	EntityID uuid.UUID `json:"entity_id"`
}

func (RepublishArgs) Kind() string { return "artifact_republish" }

func (RepublishArgs) InsertOpts() river.InsertOpts {
	// Collapse duplicate requests for the same entity while one is
	// still pending.
	return river.InsertOpts{
		UniqueOpts: river.UniqueOpts{ByArgs: true},
	}
}

// ReconcileArgs triggers a sweep over recently updated entities.
type ReconcileArgs struct{}

func (ReconcileArgs) Kind() string { return "artifact_reconcile" }

func (ReconcileArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		UniqueOpts: river.UniqueOpts{ByArgs: true},
	}
}

type republishWorker struct {
	river.WorkerDefaults[RepublishArgs]
	coord Coordinator
	log   *slog.Logger
}

func (w *republishWorker) Work(ctx context.Context, job *river.Job[RepublishArgs]) error {
	err := w.coord.Republish(ctx, job.Args.EntityID)
	if errors.Is(err, entity.ErrNotFound) {
		// The entity vanished between enqueue and execution. Nothing
		// left to rebuild.
		w.log.WarnContext(ctx, "republish target gone",
			slog.String("entity_id", job.Args.EntityID.String()))
		return nil
	}
	return err
}

type reconcileWorker struct {
	river.WorkerDefaults[ReconcileArgs]
	coord  Coordinator
	window time.Duration
	limit  uint64
}

func (w *reconcileWorker) Work(ctx context.Context, _ *river.Job[ReconcileArgs]) error {
	return w.coord.ReconcileRecent(ctx, w.window, w.limit)
}

// Client owns the River client: republish workers plus the periodic
// reconcile sweep that catches artifacts whose inline publish and
// queued republish both failed.
type Client struct {
	client *river.Client[pgx.Tx]
	log    *slog.Logger

	mu      sync.Mutex
	started bool
}

// NewClient builds the job client. Jobs can be enqueued before Start.
func NewClient(pool *pgxpool.Pool, coord Coordinator, cfg Config, log *slog.Logger) (*Client, error) {
	workers := river.NewWorkers()
	river.AddWorker(workers, &republishWorker{coord: coord, log: log})
	river.AddWorker(workers, &reconcileWorker{coord: coord, window: cfg.ReconcileWindow, limit: cfg.ReconcileLimit})

	schedule, err := parseCronSchedule(cfg.ReconcileSchedule)
	if err != nil {
		return nil, fmt.Errorf("jobs: invalid reconcile schedule %q: %w", cfg.ReconcileSchedule, err)
	}

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.MaxWorkers},
		},
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				schedule,
				func() (river.JobArgs, *river.InsertOpts) {
					return ReconcileArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: false},
			),
		},
		Logger: log,
	})
	if err != nil {
		return nil, fmt.Errorf("jobs: create client: %w", err)
	}

	return &Client{client: client, log: log}, nil
}

// Start begins processing jobs.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return ErrAlreadyStarted
	}
	if err := c.client.Start(ctx); err != nil {
		return fmt.Errorf("jobs: start: %w", err)
	}
	c.started = true
	c.log.Info("job client started")
	return nil
}

// Stop drains in-flight jobs and shuts the client down.
func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return ErrNotStarted
	}
	if err := c.client.Stop(ctx); err != nil {
		return fmt.Errorf("jobs: stop: %w", err)
	}
	c.started = false
	c.log.Info("job client stopped")
	return nil
}

// EnqueueRepublish queues a full artifact rebuild for the entity.
func (c *Client) EnqueueRepublish(ctx context.Context, entityID uuid.UUID) error {
	_, err := c.client.Insert(ctx, RepublishArgs{EntityID: entityID}, nil)
	if err != nil {
		return fmt.Errorf("jobs: enqueue republish: %w", err)
	}
	return nil
}

type cronScheduleAdapter struct {
	schedule cron.Schedule
}

func (a *cronScheduleAdapter) Next(current time.Time) time.Time {
	return a.schedule.Next(current)
}

func parseCronSchedule(expr string) (river.PeriodicSchedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, err
	}
	return &cronScheduleAdapter{schedule: schedule}, nil
}
