// Package storage defines the persistence contract consumed by the
// ordering and reconciliation engine.
//
// The concrete implementations live in the sqlite and memory sub-packages.
// Consumers depend on the Storage interface rather than a concrete type so
// that the in-memory store can substitute in tests.
package storage

import (
	"context"
	"errors"

	"github.com/tada-app/tada/internal/ordering"
	"github.com/tada-app/tada/internal/types"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateName is returned when a list name is already taken
// (names are unique, case-insensitive).
var ErrDuplicateName = errors.New("list name already in use")

// ErrReservedName is returned for list names that collide with the
// virtual views (Inbox, Today, ...).
var ErrReservedName = errors.New("list name is reserved")

// TaskFilter narrows ListTasks.
type TaskFilter struct {
	ListID    string
	ListName  string
	Completed *bool
}

// OptionalMillis distinguishes "leave unchanged" (Set=false) from
// "write this value, possibly null" (Set=true).
type OptionalMillis struct {
	Set   bool
	Value *types.Millis
}

// TaskPatch is a partial task update. Nil fields are left unchanged.
type TaskPatch struct {
	Title         *string
	Content       *string
	Completed     *bool
	CompletedAt   OptionalMillis
	DueDate       OptionalMillis
	Priority      *int
	Order         *float64
	ListID        *string
	ListName      *string
	Tags          *[]string
	GroupCategory *types.Bucket
	UpdatedAt     *types.Millis
}

// Storage is the backend contract: CRUD per category plus a transactional
// commit primitive for import batches and reorder flushes.
type Storage interface {
	// Tasks
	CreateTask(ctx context.Context, task *types.Task) error
	GetTask(ctx context.Context, id string) (*types.Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]*types.Task, error)
	UpdateTask(ctx context.Context, id string, patch TaskPatch) error
	DeleteTask(ctx context.Context, id string) error

	// Lists
	CreateList(ctx context.Context, list *types.TaskList) error
	GetList(ctx context.Context, id string) (*types.TaskList, error)
	GetListByName(ctx context.Context, name string) (*types.TaskList, error)
	ListLists(ctx context.Context) ([]*types.TaskList, error)
	DeleteList(ctx context.Context, id string) error

	// Summaries
	ListSummaries(ctx context.Context) ([]*types.Summary, error)
	PutSummary(ctx context.Context, summary *types.Summary) error
	DeleteSummary(ctx context.Context, id string) error

	// Settings
	GetSetting(ctx context.Context, key string) (types.Setting, error)
	PutSetting(ctx context.Context, key string, setting types.Setting) error
	AllSettings(ctx context.Context) (map[string]types.Setting, error)

	// Transactions
	RunInTransaction(ctx context.Context, fn func(tx Tx) error) error

	Close() error
}

// Tx is the subset of operations available inside one transaction. All
// writes either commit together or roll back together; upserts preserve
// the provided timestamps (imports keep their snapshots' updatedAt).
type Tx interface {
	GetTask(ctx context.Context, id string) (*types.Task, error)
	UpsertTask(ctx context.Context, task *types.Task) error
	UpdateTask(ctx context.Context, id string, patch TaskPatch) error
	DeleteTask(ctx context.Context, id string) error
	ClearTasks(ctx context.Context) error

	UpsertList(ctx context.Context, list *types.TaskList) error
	ClearLists(ctx context.Context) error

	UpsertSummary(ctx context.Context, summary *types.Summary) error
	ClearSummaries(ctx context.Context) error

	PutSetting(ctx context.Context, key string, setting types.Setting) error
	ClearSettings(ctx context.Context) error
}

// ReorderCommitter adapts a Storage to the ordering engine's Committer:
// one flush becomes one transaction.
type ReorderCommitter struct {
	Store Storage
}

// CommitReorder writes every patch inside a single transaction.
func (r ReorderCommitter) CommitReorder(ctx context.Context, patches []ordering.Patch) error {
	return r.Store.RunInTransaction(ctx, func(tx Tx) error {
		for _, p := range patches {
			patch := TaskPatch{}
			if p.SetOrder {
				v := p.Order
				patch.Order = &v
			}
			if p.SetDue {
				patch.DueDate = OptionalMillis{Set: true, Value: p.DueDate}
			}
			if p.SetBucket {
				b := p.Bucket
				patch.GroupCategory = &b
			}
			if p.UpdatedAt != 0 {
				v := p.UpdatedAt
				patch.UpdatedAt = &v
			}
			if err := tx.UpdateTask(ctx, p.TaskID, patch); err != nil {
				return err
			}
		}
		return nil
	})
}
