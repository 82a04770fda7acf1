// Package tada provides a minimal public API for embedding the task
// engine in other Go programs.
//
// It exports only the types and constructors needed to open a task
// database, reorder and reclassify tasks, and run conflict-aware
// backup import. Everything else lives under internal/.
package tada

import (
	"github.com/tada-app/tada/internal/importer"
	"github.com/tada-app/tada/internal/ordering"
	"github.com/tada-app/tada/internal/storage"
	"github.com/tada-app/tada/internal/storage/sqlite"
	"github.com/tada-app/tada/internal/types"
)

// Core entity types
type (
	Task     = types.Task
	Subtask  = types.Subtask
	TaskList = types.TaskList
	Summary  = types.Summary
	Setting  = types.Setting
	Millis   = types.Millis
)

// Due-date buckets
type Bucket = types.Bucket

const (
	BucketOverdue   = types.BucketOverdue
	BucketToday     = types.BucketToday
	BucketNext7Days = types.BucketNext7Days
	BucketLater     = types.BucketLater
	BucketNoDate    = types.BucketNoDate
)

// Conflict resolution strategies
type ConflictResolution = types.ConflictResolution

const (
	KeepLocal    = types.KeepLocal
	KeepImported = types.KeepImported
	KeepNewer    = types.KeepNewer
	Skip         = types.Skip
)

// Import/export surface
type (
	ImportOptions = types.ImportOptions
	DataConflict  = types.DataConflict
	ExportedData  = types.ExportedData
	Coordinator   = importer.Coordinator
	ImportResult  = importer.Result
)

// Ordering surface
type (
	MoveRequest   = ordering.MoveRequest
	PendingBuffer = ordering.PendingBuffer
)

// Storage is the persistence contract shared by the SQLite and in-memory
// backends.
type Storage = storage.Storage

// NewSQLiteStorage opens (or creates) a tada SQLite database.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	return sqlite.New(dbPath)
}

// NewCoordinator returns an import/export coordinator over a store.
func NewCoordinator(store Storage) *Coordinator {
	return importer.New(store)
}

// DefaultImportOptions mirrors the desktop app's import defaults: every
// category included, conflicts settled keep-newer.
func DefaultImportOptions() ImportOptions {
	return types.DefaultImportOptions()
}
