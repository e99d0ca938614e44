// Package storage persists project indexes and aliases.
//
// A project index is the ordered list of blob fingerprints last uploaded
// for a project, keyed by the project's normalized absolute path. Save
// always replaces the whole list for one key and never touches other keys.
//
// Two backends implement Store:
//
//   - SQLiteStorage (default): tables projects, project_blobs and aliases,
//     versioned with semver migrations. Built on modernc.org/sqlite, or on
//     mattn/go-sqlite3 with the sqlite_cgo build tag.
//   - JSONStore: projects.json and aliases.json in a data directory,
//     rewritten atomically on every save.
//
// CachedStore adds an LRU read cache in front of either backend.
//
// # Basic Usage
//
//	store, err := storage.Open(storage.Config{
//	    Backend:   storage.BackendSQLite,
//	    DataDir:   "~/.ctxmirror/data",
//	    CacheSize: 64,
//	})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	fps, err := store.Load(ctx, "/home/me/project")
//	...
//	err = store.Save(ctx, "/home/me/project", newList)
package storage
