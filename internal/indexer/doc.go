// Package indexer mirrors a project onto the retrieval backend and answers
// questions against that mirror.
//
// # Pipeline
//
// A run walks four stages, each owned by its own package:
//
//  1. collector: walk the project, apply ignore rules and split files
//  2. planner: fingerprint blobs and keep only those not stored yet
//  3. uploader: send new blobs in sequential batches with retry
//  4. storage: replace the stored fingerprint list for the project
//
// Runs are registered with a tasks.Manager, so at most one run per project
// key is live at any time. A second request for the same key fails fast
// with types.ErrIndexingInProgress rather than queueing.
//
// # Modes
//
// Index runs synchronously and returns Statistics. IndexAsync returns as
// soon as the run is registered; poll Status for progress and ETA, and
// call Stop to abort. An aborted run stops between upload batches and
// never persists a partial index.
//
//	idx := indexer.New(collector, store, client, indexer.Config{
//	    BatchSize: 10,
//	    Normalize: config.NormalizePath,
//	})
//	key, root, err := idx.ResolveTarget(ctx, "web", "/srv/web")
//	stats, err := idx.Index(ctx, key, root, indexer.IndexOptions{})
//	fmt.Println(stats.Summary())
//
// # Search
//
// Search reuses the stored index when skipIfIndexed is set and the index
// is non-empty; otherwise it indexes first. Retrieval is retried three
// times with a backoff starting at two seconds.
package indexer
