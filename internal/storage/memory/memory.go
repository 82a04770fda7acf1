// Package memory provides an in-memory Storage implementation used by
// engine tests and as a reference for the contract's semantics.
package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/tada-app/tada/internal/storage"
	"github.com/tada-app/tada/internal/types"
)

// Store keeps every collection in maps. It is not safe for concurrent use;
// the engine assumes a single active session.
type Store struct {
	tasks     map[string]*types.Task
	lists     map[string]*types.TaskList
	summaries map[string]*types.Summary
	settings  map[string]types.Setting

	// FailNextTransaction forces the next RunInTransaction to fail after
	// the callback runs, exercising rollback paths in tests.
	FailNextTransaction bool

	// BusyTransactions fails that many RunInTransaction calls with a
	// database-is-locked error after the callback runs, simulating
	// SQLITE_BUSY at commit time.
	BusyTransactions int
}

// New returns an empty store seeded with the default Inbox list.
func New() *Store {
	s := &Store{
		tasks:     make(map[string]*types.Task),
		lists:     make(map[string]*types.TaskList),
		summaries: make(map[string]*types.Summary),
		settings:  make(map[string]types.Setting),
	}
	now := types.NowMillis()
	s.lists["inbox-default"] = &types.TaskList{
		ID:        "inbox-default",
		Name:      types.DefaultListName,
		Icon:      "inbox",
		Order:     1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s
}

// CreateTask stores a new task. The id must be unused.
func (s *Store) CreateTask(ctx context.Context, task *types.Task) error {
	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("task %s: already exists", task.ID)
	}
	s.tasks[task.ID] = task.Clone()
	return nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*types.Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, storage.ErrNotFound)
	}
	return t.Clone(), nil
}

func (s *Store) ListTasks(ctx context.Context, filter storage.TaskFilter) ([]*types.Task, error) {
	var out []*types.Task
	for _, t := range s.tasks {
		if filter.ListID != "" && t.ListID != filter.ListID {
			continue
		}
		if filter.ListName != "" && !strings.EqualFold(t.ListName, filter.ListName) {
			continue
		}
		if filter.Completed != nil && t.Completed != *filter.Completed {
			continue
		}
		out = append(out, t.Clone())
	}
	types.SortTasksForView(out)
	return out, nil
}

func (s *Store) UpdateTask(ctx context.Context, id string, patch storage.TaskPatch) error {
	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, storage.ErrNotFound)
	}
	applyTaskPatch(t, patch)
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("task %s: %w", id, storage.ErrNotFound)
	}
	delete(s.tasks, id)
	return nil
}

// CreateList stores a new list, enforcing unique case-insensitive names
// and the reserved-name rule.
func (s *Store) CreateList(ctx context.Context, list *types.TaskList) error {
	if types.IsReservedListName(list.Name) && !strings.EqualFold(list.Name, types.DefaultListName) {
		return fmt.Errorf("list %q: %w", list.Name, storage.ErrReservedName)
	}
	for _, l := range s.lists {
		if strings.EqualFold(l.Name, list.Name) {
			return fmt.Errorf("list %q: %w", list.Name, storage.ErrDuplicateName)
		}
	}
	s.lists[list.ID] = list.Clone()
	return nil
}

func (s *Store) GetList(ctx context.Context, id string) (*types.TaskList, error) {
	l, ok := s.lists[id]
	if !ok {
		return nil, fmt.Errorf("list %s: %w", id, storage.ErrNotFound)
	}
	return l.Clone(), nil
}

func (s *Store) GetListByName(ctx context.Context, name string) (*types.TaskList, error) {
	for _, l := range s.lists {
		if strings.EqualFold(l.Name, name) {
			return l.Clone(), nil
		}
	}
	return nil, fmt.Errorf("list %q: %w", name, storage.ErrNotFound)
}

func (s *Store) ListLists(ctx context.Context) ([]*types.TaskList, error) {
	out := make([]*types.TaskList, 0, len(s.lists))
	for _, l := range s.lists {
		out = append(out, l.Clone())
	}
	types.SortLists(out)
	return out, nil
}

func (s *Store) DeleteList(ctx context.Context, id string) error {
	if _, ok := s.lists[id]; !ok {
		return fmt.Errorf("list %s: %w", id, storage.ErrNotFound)
	}
	delete(s.lists, id)
	// Tasks fall back to the default list, matching ON DELETE SET NULL.
	for _, t := range s.tasks {
		if t.ListID == id {
			t.ListID = ""
			t.ListName = types.DefaultListName
		}
	}
	return nil
}

func (s *Store) ListSummaries(ctx context.Context) ([]*types.Summary, error) {
	out := make([]*types.Summary, 0, len(s.summaries))
	for _, sum := range s.summaries {
		out = append(out, sum.Clone())
	}
	return out, nil
}

func (s *Store) PutSummary(ctx context.Context, summary *types.Summary) error {
	s.summaries[summary.ID] = summary.Clone()
	return nil
}

func (s *Store) DeleteSummary(ctx context.Context, id string) error {
	if _, ok := s.summaries[id]; !ok {
		return fmt.Errorf("summary %s: %w", id, storage.ErrNotFound)
	}
	delete(s.summaries, id)
	return nil
}

func (s *Store) GetSetting(ctx context.Context, key string) (types.Setting, error) {
	v, ok := s.settings[key]
	if !ok {
		return types.Setting{}, fmt.Errorf("setting %q: %w", key, storage.ErrNotFound)
	}
	return v, nil
}

func (s *Store) PutSetting(ctx context.Context, key string, setting types.Setting) error {
	s.settings[key] = setting
	return nil
}

func (s *Store) AllSettings(ctx context.Context) (map[string]types.Setting, error) {
	out := make(map[string]types.Setting, len(s.settings))
	for k, v := range s.settings {
		out[k] = v
	}
	return out, nil
}

// RunInTransaction snapshots all collections, runs fn against the live
// maps, and restores the snapshot if fn (or the injected failure) errors.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx storage.Tx) error) error {
	snapTasks := make(map[string]*types.Task, len(s.tasks))
	for k, v := range s.tasks {
		snapTasks[k] = v.Clone()
	}
	snapLists := make(map[string]*types.TaskList, len(s.lists))
	for k, v := range s.lists {
		snapLists[k] = v.Clone()
	}
	snapSummaries := make(map[string]*types.Summary, len(s.summaries))
	for k, v := range s.summaries {
		snapSummaries[k] = v.Clone()
	}
	snapSettings := make(map[string]types.Setting, len(s.settings))
	for k, v := range s.settings {
		snapSettings[k] = v
	}

	err := fn(&memTx{s})
	if err == nil && s.BusyTransactions > 0 {
		s.BusyTransactions--
		err = fmt.Errorf("database is locked")
	}
	if err == nil && s.FailNextTransaction {
		s.FailNextTransaction = false
		err = fmt.Errorf("injected transaction failure")
	}
	if err != nil {
		s.tasks = snapTasks
		s.lists = snapLists
		s.summaries = snapSummaries
		s.settings = snapSettings
		return err
	}
	return nil
}

func (s *Store) Close() error { return nil }

// memTx exposes the transactional subset over the live maps.
type memTx struct {
	s *Store
}

func (t *memTx) GetTask(ctx context.Context, id string) (*types.Task, error) {
	return t.s.GetTask(ctx, id)
}

func (t *memTx) UpsertTask(ctx context.Context, task *types.Task) error {
	t.s.tasks[task.ID] = task.Clone()
	return nil
}

func (t *memTx) UpdateTask(ctx context.Context, id string, patch storage.TaskPatch) error {
	return t.s.UpdateTask(ctx, id, patch)
}

func (t *memTx) DeleteTask(ctx context.Context, id string) error {
	return t.s.DeleteTask(ctx, id)
}

func (t *memTx) ClearTasks(ctx context.Context) error {
	t.s.tasks = make(map[string]*types.Task)
	return nil
}

func (t *memTx) UpsertList(ctx context.Context, list *types.TaskList) error {
	t.s.lists[list.ID] = list.Clone()
	return nil
}

func (t *memTx) ClearLists(ctx context.Context) error {
	t.s.lists = make(map[string]*types.TaskList)
	return nil
}

func (t *memTx) UpsertSummary(ctx context.Context, summary *types.Summary) error {
	t.s.summaries[summary.ID] = summary.Clone()
	return nil
}

func (t *memTx) ClearSummaries(ctx context.Context) error {
	t.s.summaries = make(map[string]*types.Summary)
	return nil
}

func (t *memTx) PutSetting(ctx context.Context, key string, setting types.Setting) error {
	t.s.settings[key] = setting
	return nil
}

func (t *memTx) ClearSettings(ctx context.Context) error {
	t.s.settings = make(map[string]types.Setting)
	return nil
}

func applyTaskPatch(t *types.Task, patch storage.TaskPatch) {
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Content != nil {
		t.Content = *patch.Content
	}
	if patch.Completed != nil {
		t.Completed = *patch.Completed
	}
	if patch.CompletedAt.Set {
		t.CompletedAt = patch.CompletedAt.Value
	}
	if patch.DueDate.Set {
		t.DueDate = patch.DueDate.Value
	}
	if patch.Priority != nil {
		t.Priority = patch.Priority
	}
	if patch.Order != nil {
		t.Order = *patch.Order
	}
	if patch.ListID != nil {
		t.ListID = *patch.ListID
	}
	if patch.ListName != nil {
		t.ListName = *patch.ListName
	}
	if patch.Tags != nil {
		t.Tags = append([]string(nil), (*patch.Tags)...)
	}
	if patch.GroupCategory != nil {
		t.GroupCategory = *patch.GroupCategory
	}
	if patch.UpdatedAt != nil {
		t.UpdatedAt = *patch.UpdatedAt
	}
}
