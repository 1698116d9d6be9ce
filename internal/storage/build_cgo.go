//go:build sqlite_cgo
// +build sqlite_cgo

package storage

// This file is compiled when building with CGO and the sqlite_cgo tag.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "sqlite_cgo" ./...
//
// The cgo driver links the SQLite amalgamation and is noticeably faster
// when iterating large census relations.
//
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)

// readOnlyDSN opens path as a read-only URI with the query_only pragma set
// on every pooled connection.
func readOnlyDSN(path string) string {
	return catalogURI(path, "mode=ro&_query_only=1")
}
