package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/dshills/ctxmirror/internal/planner"
	"github.com/dshills/ctxmirror/internal/retry"
	"github.com/dshills/ctxmirror/internal/storage"
	"github.com/dshills/ctxmirror/internal/tasks"
	"github.com/dshills/ctxmirror/internal/uploader"
	"github.com/dshills/ctxmirror/pkg/types"
)

var log = logging.Logger("indexer")

// NoContextMessage replaces an empty retrieval result.
const NoContextMessage = "No relevant code context found for your query."

// DefaultRetrievalBaseDelay is the first backoff of a failed retrieval.
const DefaultRetrievalBaseDelay = 2 * time.Second

// Collector turns a project directory into blobs.
type Collector interface {
	Collect(ctx context.Context, root string) ([]types.Blob, error)
}

// Gateway is the remote backend.
type Gateway interface {
	uploader.Gateway
	Retrieve(ctx context.Context, query string, fingerprints []string) (string, error)
}

// Indexer coordinates the pipeline: collect -> plan -> upload -> persist,
// and answers queries against the persisted index.
type Indexer struct {
	collector Collector
	store     storage.Store
	gateway   Gateway
	uploader  *uploader.Uploader
	tasks     *tasks.Manager

	retrievalRetry retry.Config
	normalize      func(string) (string, error)

	wg sync.WaitGroup
}

// Config contains configuration for the indexer
type Config struct {
	BatchSize      int                          // blobs per upload request (default: 10)
	UploadRetry    retry.Config                 // default: 3 attempts from 1s
	RetrievalRetry retry.Config                 // default: 3 attempts from 2s
	Tasks          *tasks.Manager               // shared registry; created when nil
	Normalize      func(string) (string, error) // project key function; required
}

// IndexOptions tunes a single run.
type IndexOptions struct {
	ForceFull bool // ignore the stored index and upload everything
}

// Statistics describes a completed run.
type Statistics struct {
	Total        int
	New          int
	Existing     int
	Fingerprints []string
	Duration     time.Duration
}

// Summary renders the one-line result reported to callers.
func (s *Statistics) Summary() string {
	return fmt.Sprintf("Index complete: total_blobs=%d, new_blobs=%d, existing_blobs=%d",
		s.Total, s.New, s.Existing)
}

// New creates a new Indexer instance
func New(c Collector, s storage.Store, gw Gateway, cfg Config) *Indexer {
	if cfg.Tasks == nil {
		cfg.Tasks = tasks.NewManager()
	}
	if cfg.RetrievalRetry.Attempts < 1 {
		cfg.RetrievalRetry = retry.WithBase(DefaultRetrievalBaseDelay)
	}
	return &Indexer{
		collector:      c,
		store:          s,
		gateway:        gw,
		uploader:       uploader.New(gw, uploader.Config{BatchSize: cfg.BatchSize, Retry: cfg.UploadRetry}),
		tasks:          cfg.Tasks,
		retrievalRetry: cfg.RetrievalRetry,
		normalize:      cfg.Normalize,
	}
}

// Tasks exposes the run registry.
func (idx *Indexer) Tasks() *tasks.Manager { return idx.tasks }

// Index runs the pipeline for key and waits for it. It fails with
// types.ErrIndexingInProgress when another run owns key. When only the
// final save fails, the statistics are returned together with an error
// wrapping types.ErrPersistence.
func (idx *Indexer) Index(ctx context.Context, key, root string, opts IndexOptions) (*Statistics, error) {
	task, ok := idx.tasks.Begin(ctx, key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrIndexingInProgress, key)
	}
	return idx.run(task, root, opts)
}

// IndexAsync starts a run for key in the background and returns its task
// ID. The run is detached from ctx's cancellation; use Stop to abort it.
func (idx *Indexer) IndexAsync(ctx context.Context, key, root string, opts IndexOptions) (string, error) {
	task, ok := idx.tasks.Begin(context.WithoutCancel(ctx), key)
	if !ok {
		return "", fmt.Errorf("%w: %s", types.ErrIndexingInProgress, key)
	}

	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		stats, err := idx.run(task, root, opts)
		if err != nil {
			log.Warnw("background index ended with error", "key", key, "task", task.ID(), "error", err)
			return
		}
		log.Infow("background index complete", "key", key, "task", task.ID(),
			"total", stats.Total, "new", stats.New, "duration", stats.Duration)
	}()
	return task.ID(), nil
}

// Wait blocks until every background run has returned.
func (idx *Indexer) Wait() {
	idx.wg.Wait()
}

// run executes the pipeline under task and records the outcome.
func (idx *Indexer) run(task *tasks.Task, root string, opts IndexOptions) (*Statistics, error) {
	ctx := task.Context()
	stats, err := idx.pipeline(ctx, task, root, opts)

	switch {
	case err == nil:
		task.Finish()
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		// Abort already marked the record when it came from Stop.
		task.Abort()
		log.Infow("index run cancelled", "key", task.Key(), "task", task.ID())
	default:
		task.Fail(err.Error())
		log.Errorw("index run failed", "key", task.Key(), "task", task.ID(), "error", err)
	}
	return stats, err
}

func (idx *Indexer) pipeline(ctx context.Context, task *tasks.Task, root string, opts IndexOptions) (*Statistics, error) {
	start := time.Now()
	key := task.Key()

	task.SetPhase(types.PhaseCollecting)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blobs, err := idx.collector.Collect(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	if len(blobs) == 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrNoFilesFound, root)
	}

	stored, err := idx.store.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load project index: %w", err)
	}

	plan := planner.Plan(blobs, stored, opts.ForceFull)
	task.SetUploadTotals(len(plan.New), idx.uploader.BatchCount(len(plan.New)), plan.Total())
	log.Infow("planned index", "key", key, "total", plan.Total(), "new", len(plan.New), "existing", plan.Existing())

	if len(plan.New) > 0 {
		task.SetPhase(types.PhaseUploading)
		_, err := idx.uploader.Upload(ctx, plan.New, func(p uploader.Progress) {
			task.OnChunk(p.UploadedItems, p.ChunkIndex, p.ChunkBytes)
		})
		if err != nil {
			return nil, err
		}
	}

	// An aborted run must leave the stored index untouched.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !task.Commit() {
		return nil, context.Canceled
	}

	stats := &Statistics{
		Total:        plan.Total(),
		New:          len(plan.New),
		Existing:     plan.Existing(),
		Fingerprints: plan.All,
		Duration:     time.Since(start),
	}
	if err := idx.store.Save(context.WithoutCancel(ctx), key, plan.All); err != nil {
		return stats, fmt.Errorf("%w: %w", types.ErrPersistence, err)
	}
	return stats, nil
}

// Search answers query for the project at key, indexing it first unless
// skipIfIndexed is set and a non-empty index is already stored.
func (idx *Indexer) Search(ctx context.Context, key, root, query string, skipIfIndexed bool) (string, error) {
	var fps []string
	if skipIfIndexed {
		stored, err := idx.store.Load(ctx, key)
		if err != nil {
			log.Warnw("failed to load stored index, reindexing", "key", key, "error", err)
		}
		if len(stored) > 0 {
			log.Debugw("using stored index", "key", key, "blobs", len(stored))
			fps = stored
		}
	}

	if fps == nil {
		stats, err := idx.Index(ctx, key, root, IndexOptions{})
		switch {
		case err == nil:
			fps = stats.Fingerprints
		case errors.Is(err, types.ErrPersistence) && stats != nil:
			log.Warnw("index not persisted, continuing with in-memory list", "key", key, "error", err)
			fps = stats.Fingerprints
		default:
			return "", err
		}
	}

	return idx.Retrieve(ctx, query, fps)
}

// Retrieve queries the backend with retry. An empty answer is replaced by
// NoContextMessage.
func (idx *Indexer) Retrieve(ctx context.Context, query string, fingerprints []string) (string, error) {
	cfg := idx.retrievalRetry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		log.Warnw("retrying retrieval", "attempt", attempt, "delay", delay, "error", err)
	}

	out, err := retry.Do(ctx, cfg, func() (string, error) {
		return idx.gateway.Retrieve(ctx, query, fingerprints)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrRetrievalFailed, err)
	}
	if strings.TrimSpace(out) == "" {
		return NoContextMessage, nil
	}
	return out, nil
}
