package types

import "errors"

// Errors shared across the indexing pipeline. Callers match them with
// errors.Is; producers wrap them with context using %w.
var (
	// Collection
	ErrProjectNotFound = errors.New("project root not found")
	ErrNotDirectory    = errors.New("project root is not a directory")
	ErrNoFilesFound    = errors.New("no text files found in project")

	// Remote backend
	ErrUploadFailed    = errors.New("upload failed")
	ErrRetrievalFailed = errors.New("retrieval failed")

	// Local state
	ErrPersistence        = errors.New("failed to persist project index")
	ErrIndexingInProgress = errors.New("indexing already in progress for this project")

	// Target resolution
	ErrAliasNotFound  = errors.New("alias not found")
	ErrTargetRequired = errors.New("provide project_root_path or alias")
)
