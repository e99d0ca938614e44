//go:build purego || !sqlite_cgo

package storage

// Compiled by default. No C compiler is required:
//
//	CGO_ENABLED=0 go build ./...
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the database/sql driver name
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
