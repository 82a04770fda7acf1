package importer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tada-app/tada/internal/storage"
	"github.com/tada-app/tada/internal/storage/memory"
	"github.com/tada-app/tada/internal/types"
)

func newTask(id, title string, updated types.Millis) *types.Task {
	return &types.Task{ID: id, Title: title, ListName: types.DefaultListName, CreatedAt: 1, UpdatedAt: updated}
}

func marshalEnvelope(t *testing.T, p types.Payload) []byte {
	t.Helper()
	raw, err := json.Marshal(types.ExportedData{Version: types.EnvelopeVersion, Timestamp: 1, Data: p})
	require.NoError(t, err)
	return raw
}

func TestParseRejectsMalformedEnvelopes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "nonsense{"},
		{"missing version", `{"data":{"tasks":[]}}`},
		{"missing data", `{"version":1}`},
		{"future version", `{"version":99,"data":{"tasks":[]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			assert.ErrorIs(t, err, ErrInvalidFormat)
		})
	}
}

func TestParseAcceptsEnvelope(t *testing.T) {
	raw := `{"version":1,"timestamp":42,"data":{"tasks":[],"lists":[],"summaries":[]}}`

	payload, err := Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, int64(1), payload.Version)
	assert.Equal(t, types.Millis(42), payload.Timestamp)
}

func TestStartInvalidFormatReturnsToIdle(t *testing.T) {
	store := memory.New()
	coord := New(store)

	_, err := coord.Start(context.Background(), []byte("not json"), types.DefaultImportOptions())
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.Equal(t, StateIdle, coord.State())

	// Nothing was written.
	tasks, err := store.ListTasks(context.Background(), storage.TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestStartNoConflictsCommitsDirectly(t *testing.T) {
	store := memory.New()
	coord := New(store)

	raw := marshalEnvelope(t, types.Payload{
		Tasks: []*types.Task{newTask("t1", "imported", 100)},
	})

	outcome, err := coord.Start(context.Background(), raw, types.DefaultImportOptions())
	require.NoError(t, err)
	require.NotNil(t, outcome.Result)
	assert.Empty(t, outcome.Conflicts)
	assert.Equal(t, StateIdle, coord.State())

	assert.Equal(t, 1, outcome.Result.Tasks.Inserted)

	got, err := store.GetTask(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "imported", got.Title)
	// Imports keep the snapshot's timestamps.
	assert.Equal(t, types.Millis(100), got.UpdatedAt)
}

func TestStartWithConflictsSuspends(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.CreateTask(context.Background(), newTask("t1", "local", 300)))
	coord := New(store)

	raw := marshalEnvelope(t, types.Payload{
		Tasks: []*types.Task{newTask("t1", "imported", 100)},
	})

	outcome, err := coord.Start(context.Background(), raw, types.DefaultImportOptions())
	require.NoError(t, err)
	assert.Nil(t, outcome.Result)
	require.Len(t, outcome.Conflicts, 1)
	assert.Equal(t, StateAwaitingResolution, coord.State())

	// A second Start while suspended is refused.
	_, err = coord.Start(context.Background(), raw, types.DefaultImportOptions())
	assert.ErrorIs(t, err, ErrBusy)

	// Nothing committed yet; the local task is untouched.
	got, err := store.GetTask(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "local", got.Title)
}

func TestResolveCommitsWinners(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.CreateTask(ctx, newTask("t1", "local", 300)))
	require.NoError(t, store.CreateTask(ctx, newTask("t2", "local", 100)))
	coord := New(store)

	raw := marshalEnvelope(t, types.Payload{
		Tasks: []*types.Task{
			newTask("t1", "imported", 100),
			newTask("t2", "imported", 300),
		},
	})

	outcome, err := coord.Start(ctx, raw, types.DefaultImportOptions())
	require.NoError(t, err)
	require.Len(t, outcome.Conflicts, 2)

	// Default keep-newer: t1 keeps local (300 > 100), t2 takes imported.
	result, err := coord.Resolve(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, coord.State())

	assert.Equal(t, 1, result.Tasks.Updated)
	assert.Equal(t, 1, result.Tasks.Skipped)

	t1, _ := store.GetTask(ctx, "t1")
	t2, _ := store.GetTask(ctx, "t2")
	assert.Equal(t, "local", t1.Title)
	assert.Equal(t, "imported", t2.Title)
}

func TestResolveHonorsPerConflictPins(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.CreateTask(ctx, newTask("t1", "local", 300)))
	coord := New(store)

	raw := marshalEnvelope(t, types.Payload{
		Tasks: []*types.Task{newTask("t1", "imported", 100)},
	})

	_, err := coord.Start(ctx, raw, types.DefaultImportOptions())
	require.NoError(t, err)

	result, err := coord.Resolve(ctx, map[string]types.ConflictResolution{
		"t1": types.KeepImported,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Tasks.Updated)

	got, _ := store.GetTask(ctx, "t1")
	assert.Equal(t, "imported", got.Title)
}

func TestResolveOutsideAwaiting(t *testing.T) {
	coord := New(memory.New())

	_, err := coord.Resolve(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotAwaiting)
}

func TestCancelDiscardsSuspendedImport(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.CreateTask(ctx, newTask("t1", "local", 300)))
	coord := New(store)

	raw := marshalEnvelope(t, types.Payload{
		Tasks: []*types.Task{newTask("t1", "imported", 100)},
	})
	_, err := coord.Start(ctx, raw, types.DefaultImportOptions())
	require.NoError(t, err)

	require.NoError(t, coord.Cancel())
	assert.Equal(t, StateIdle, coord.State())

	// Cancel again: nothing to cancel.
	assert.ErrorIs(t, coord.Cancel(), ErrNotAwaiting)

	got, _ := store.GetTask(ctx, "t1")
	assert.Equal(t, "local", got.Title)
}

func TestCommitFailureRollsBackAndReturnsToIdle(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	coord := New(store)
	store.FailNextTransaction = true

	raw := marshalEnvelope(t, types.Payload{
		Tasks: []*types.Task{newTask("t1", "imported", 100)},
	})

	_, err := coord.Start(ctx, raw, types.DefaultImportOptions())
	require.Error(t, err)
	assert.Equal(t, StateIdle, coord.State())

	_, err = store.GetTask(ctx, "t1")
	assert.Error(t, err)
}

func TestCommitRetriesBusyTransaction(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.BusyTransactions = 1
	coord := New(store)

	raw := marshalEnvelope(t, types.Payload{
		Tasks: []*types.Task{newTask("t1", "imported", 100)},
	})

	outcome, err := coord.Start(ctx, raw, types.DefaultImportOptions())
	require.NoError(t, err)
	require.NotNil(t, outcome.Result)
	assert.Equal(t, StateIdle, coord.State())

	// The first attempt hit the lock and rolled back; the retry must not
	// count the batch twice.
	assert.Equal(t, 1, outcome.Result.Tasks.Inserted)
	assert.Equal(t, 0, outcome.Result.Tasks.Updated)
	assert.Equal(t, 0, outcome.Result.Tasks.Skipped)

	got, err := store.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "imported", got.Title)
}

func TestReplaceRetriesBusyTransaction(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.BusyTransactions = 1
	coord := New(store)

	raw := marshalEnvelope(t, types.Payload{
		Tasks: []*types.Task{newTask("t1", "fresh", 100)},
	})

	opts := types.DefaultImportOptions()
	opts.ReplaceAllData = true
	outcome, err := coord.Start(ctx, raw, opts)
	require.NoError(t, err)
	require.NotNil(t, outcome.Result)
	assert.Equal(t, 1, outcome.Result.Tasks.Inserted)

	_, err = store.GetTask(ctx, "t1")
	require.NoError(t, err)
}

func TestCommitGivesUpWhenBusyPersists(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.BusyTransactions = 100
	coord := New(store)

	raw := marshalEnvelope(t, types.Payload{
		Tasks: []*types.Task{newTask("t1", "imported", 100)},
	})

	_, err := coord.Start(ctx, raw, types.DefaultImportOptions())
	require.Error(t, err)
	assert.Equal(t, StateIdle, coord.State())

	// One initial attempt plus four retries, then the lock error surfaces.
	assert.Equal(t, 95, store.BusyTransactions)

	_, err = store.GetTask(ctx, "t1")
	assert.Error(t, err)
}

// flakyListsStore fails ListLists once its budget of successful calls is
// spent.
type flakyListsStore struct {
	*memory.Store
	listCallsLeft int
}

func (s *flakyListsStore) ListLists(ctx context.Context) ([]*types.TaskList, error) {
	if s.listCallsLeft <= 0 {
		return nil, errors.New("disk I/O error")
	}
	s.listCallsLeft--
	return s.Store.ListLists(ctx)
}

func TestCommitSurfacesListLoadFailure(t *testing.T) {
	ctx := context.Background()
	// The snapshot's ListLists succeeds; the commit-time one fails.
	store := &flakyListsStore{Store: memory.New(), listCallsLeft: 1}
	coord := New(store)

	raw := marshalEnvelope(t, types.Payload{
		Tasks: []*types.Task{newTask("t1", "imported", 100)},
	})

	_, err := coord.Start(ctx, raw, types.DefaultImportOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.Equal(t, StateIdle, coord.State())

	_, err = store.GetTask(ctx, "t1")
	assert.Error(t, err)
}

func TestReplaceAllData(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.CreateTask(ctx, newTask("old", "stale", 100)))
	coord := New(store)

	raw := marshalEnvelope(t, types.Payload{
		Tasks: []*types.Task{newTask("new", "fresh", 100)},
	})

	opts := types.DefaultImportOptions()
	opts.ReplaceAllData = true
	outcome, err := coord.Start(ctx, raw, opts)
	require.NoError(t, err)
	require.NotNil(t, outcome.Result)
	assert.Equal(t, 1, outcome.Result.Tasks.Inserted)

	_, err = store.GetTask(ctx, "old")
	assert.Error(t, err)
	got, err := store.GetTask(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.Title)
}

func TestImportSkipsTasksWithNoResolvableList(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	coord := New(store)

	orphan := &types.Task{ID: "orphan", Title: "nowhere", CreatedAt: 1, UpdatedAt: 1}
	raw := marshalEnvelope(t, types.Payload{Tasks: []*types.Task{orphan}})

	outcome, err := coord.Start(ctx, raw, types.DefaultImportOptions())
	require.NoError(t, err)
	require.NotNil(t, outcome.Result)
	assert.Equal(t, 0, outcome.Result.Tasks.Inserted)
	assert.Equal(t, 1, outcome.Result.Tasks.Skipped)
}

func TestImportDetachesTaskFromMissingList(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	coord := New(store)

	task := newTask("t1", "homeless", 100)
	task.ListID = "gone-list"
	task.ListName = "Projects"
	raw := marshalEnvelope(t, types.Payload{Tasks: []*types.Task{task}})

	outcome, err := coord.Start(ctx, raw, types.DefaultImportOptions())
	require.NoError(t, err)
	require.NotNil(t, outcome.Result)
	assert.Equal(t, 1, outcome.Result.Tasks.Inserted)

	got, err := store.GetTask(ctx, "t1")
	require.NoError(t, err)
	// The denormalized name survives; the dangling id does not.
	assert.Empty(t, got.ListID)
	assert.Equal(t, "Projects", got.ListName)
}

func TestImportRemapsTaskToListByName(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	coord := New(store)

	list := &types.TaskList{ID: "list-new", Name: "Projects", CreatedAt: 1, UpdatedAt: 1}
	task := newTask("t1", "moved", 100)
	task.ListID = "list-old"
	task.ListName = "Projects"
	raw := marshalEnvelope(t, types.Payload{
		Tasks: []*types.Task{task},
		Lists: []*types.TaskList{list},
	})

	outcome, err := coord.Start(ctx, raw, types.DefaultImportOptions())
	require.NoError(t, err)
	require.NotNil(t, outcome.Result)

	got, err := store.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "list-new", got.ListID)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := memory.New()
	due := types.Millis(1_700_000_000_000)
	task := newTask("t1", "round trip", 100)
	task.DueDate = &due
	task.Tags = []string{"home", "urgent"}
	require.NoError(t, src.CreateTask(ctx, task))
	require.NoError(t, src.PutSummary(ctx, &types.Summary{ID: "s1", PeriodKey: "2024-W02", SummaryText: "week", CreatedAt: 1, UpdatedAt: 1}))

	envelope, err := New(src).Export(ctx)
	require.NoError(t, err)
	raw, err := json.Marshal(envelope)
	require.NoError(t, err)

	dst := memory.New()
	outcome, err := New(dst).Start(ctx, raw, types.DefaultImportOptions())
	require.NoError(t, err)
	require.NotNil(t, outcome.Result)

	got, err := dst.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "round trip", got.Title)
	assert.Equal(t, []string{"home", "urgent"}, got.Tags)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, due, *got.DueDate)

	summaries, err := dst.ListSummaries(ctx)
	require.NoError(t, err)
	assert.Len(t, summaries, 1)

	// Importing the same envelope again changes nothing.
	outcome2, err := New(dst).Start(ctx, raw, types.DefaultImportOptions())
	require.NoError(t, err)
	require.NotNil(t, outcome2.Result)
	assert.Equal(t, 0, outcome2.Result.Tasks.Inserted)
	assert.Equal(t, 0, outcome2.Result.Tasks.Updated)
}
