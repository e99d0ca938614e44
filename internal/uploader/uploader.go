// Package uploader sends new blobs to the backend in sequential batches.
package uploader

import (
	"context"
	"fmt"
	"runtime"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/dshills/ctxmirror/internal/retry"
	"github.com/dshills/ctxmirror/pkg/types"
)

var log = logging.Logger("uploader")

const (
	DefaultBatchSize = 10
	DefaultBaseDelay = time.Second
)

// Gateway uploads one batch per call.
type Gateway interface {
	Upload(ctx context.Context, blobs []types.Blob) ([]string, error)
}

// Progress is emitted after each successfully uploaded batch.
type Progress struct {
	ChunkIndex    int // 1-indexed batch number
	ChunksTotal   int
	UploadedItems int // cumulative blobs uploaded
	TotalItems    int
	ChunkItems    int // blobs in this batch
	ChunkBytes    int // content bytes in this batch
}

// Config configures batching and retry.
type Config struct {
	BatchSize int
	Retry     retry.Config
}

// Uploader drives batched uploads through a Gateway.
type Uploader struct {
	gw    Gateway
	batch int
	retry retry.Config
}

// New creates an Uploader. A batch size below 1 falls back to the default.
func New(gw Gateway, cfg Config) *Uploader {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Retry.Attempts < 1 {
		cfg.Retry = retry.WithBase(DefaultBaseDelay)
	}
	return &Uploader{gw: gw, batch: cfg.BatchSize, retry: cfg.Retry}
}

// BatchCount returns how many batches n blobs need.
func (u *Uploader) BatchCount(n int) int {
	return (n + u.batch - 1) / u.batch
}

// Upload sends blobs in order, one batch at a time, and returns every name
// the backend assigned. Cancellation is observed only between batches: a
// batch that has started always runs to completion or exhausts its
// retries. A batch that fails every attempt stops the run; earlier batches
// stay uploaded.
func (u *Uploader) Upload(ctx context.Context, blobs []types.Blob, onProgress func(Progress)) ([]string, error) {
	if len(blobs) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	total := len(blobs)
	chunks := u.BatchCount(total)
	names := make([]string, 0, total)
	uploaded := 0

	for i := 0; i < chunks; i++ {
		lo := i * u.batch
		hi := min(lo+u.batch, total)
		batch := blobs[lo:hi]

		got, err := u.uploadBatch(ctx, i+1, chunks, batch)
		if err != nil {
			log.Errorw("batch upload failed", "chunk", i+1, "chunks", chunks, "error", err)
			return names, fmt.Errorf("%w: batch %d/%d: %w", types.ErrUploadFailed, i+1, chunks, err)
		}
		names = append(names, got...)
		uploaded += len(batch)

		if onProgress != nil {
			onProgress(Progress{
				ChunkIndex:    i + 1,
				ChunksTotal:   chunks,
				UploadedItems: uploaded,
				TotalItems:    total,
				ChunkItems:    len(batch),
				ChunkBytes:    batchBytes(batch),
			})
		}

		runtime.Gosched()
		if err := ctx.Err(); err != nil {
			log.Infow("upload cancelled between batches", "uploaded", uploaded, "total", total)
			return names, err
		}
	}

	log.Infow("upload complete", "blobs", total, "batches", chunks)
	return names, nil
}

// uploadBatch retries one batch on a context that ignores cancellation,
// so a pending abort never interrupts a request in flight. Each attempt is
// still bounded by the gateway's own timeout.
func (u *Uploader) uploadBatch(ctx context.Context, idx, chunks int, batch []types.Blob) ([]string, error) {
	detached := context.WithoutCancel(ctx)
	cfg := u.retry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		log.Warnw("retrying batch upload",
			"chunk", idx, "chunks", chunks, "attempt", attempt, "delay", delay, "error", err)
	}

	return retry.Do(detached, cfg, func() ([]string, error) {
		return u.gw.Upload(detached, batch)
	})
}

func batchBytes(batch []types.Blob) int {
	n := 0
	for _, b := range batch {
		n += b.Size()
	}
	return n
}
