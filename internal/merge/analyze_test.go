package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tada-app/tada/internal/types"
)

func task(id, title string, updated types.Millis) *types.Task {
	return &types.Task{ID: id, Title: title, ListName: types.DefaultListName, CreatedAt: 1, UpdatedAt: updated}
}

func envelope(p types.Payload) *types.ExportedData {
	return &types.ExportedData{Version: types.EnvelopeVersion, Timestamp: 1, Data: p}
}

func TestAnalyzeInsertionsAndConflicts(t *testing.T) {
	local := Dataset{
		Tasks: []*types.Task{
			task("t1", "unchanged", 100),
			task("t2", "local title", 100),
		},
	}
	imported := envelope(types.Payload{
		Tasks: []*types.Task{
			task("t1", "unchanged", 500), // only timestamps differ: not a conflict
			task("t2", "imported title", 200),
			task("t3", "brand new", 100),
		},
	})

	a := Analyze(local, imported, types.DefaultImportOptions())

	require.Len(t, a.Insertions.Tasks, 1)
	assert.Equal(t, "t3", a.Insertions.Tasks[0].ID)

	require.Len(t, a.Conflicts, 1)
	assert.Equal(t, "t2", a.Conflicts[0].ID)
	assert.Equal(t, types.KindTask, a.Conflicts[0].Kind)
	assert.Equal(t, "local title", a.Conflicts[0].Local.Task.Title)
	assert.Equal(t, "imported title", a.Conflicts[0].Imported.Task.Title)
}

func TestAnalyzeLocalOnlyEntitiesUntouched(t *testing.T) {
	local := Dataset{Tasks: []*types.Task{task("t1", "only local", 100)}}
	imported := envelope(types.Payload{})

	a := Analyze(local, imported, types.DefaultImportOptions())

	assert.Empty(t, a.Conflicts)
	assert.True(t, a.Insertions.Empty())
}

func TestAnalyzeConflictOrderFollowsImport(t *testing.T) {
	local := Dataset{
		Tasks: []*types.Task{
			task("a", "1", 1), task("b", "2", 1), task("c", "3", 1),
		},
	}
	imported := envelope(types.Payload{
		Tasks: []*types.Task{
			task("c", "3'", 2), task("a", "1'", 2), task("b", "2'", 2),
		},
	})

	a := Analyze(local, imported, types.DefaultImportOptions())

	require.Len(t, a.Conflicts, 3)
	assert.Equal(t, "c", a.Conflicts[0].ID)
	assert.Equal(t, "a", a.Conflicts[1].ID)
	assert.Equal(t, "b", a.Conflicts[2].ID)
}

func TestAnalyzeListsAndSummaries(t *testing.T) {
	local := Dataset{
		Lists:     []*types.TaskList{{ID: "l1", Name: "Work", UpdatedAt: 10}},
		Summaries: []*types.Summary{{ID: "s1", PeriodKey: "2024-W02", SummaryText: "old", UpdatedAt: 10}},
	}
	imported := envelope(types.Payload{
		Lists: []*types.TaskList{
			{ID: "l1", Name: "Work renamed", UpdatedAt: 20},
			{ID: "l2", Name: "Home", UpdatedAt: 20},
		},
		Summaries: []*types.Summary{
			{ID: "s1", PeriodKey: "2024-W02", SummaryText: "new", UpdatedAt: 20},
		},
	})

	a := Analyze(local, imported, types.DefaultImportOptions())

	require.Len(t, a.Insertions.Lists, 1)
	assert.Equal(t, "l2", a.Insertions.Lists[0].ID)

	require.Len(t, a.Conflicts, 2)
	assert.Equal(t, types.KindList, a.Conflicts[0].Kind)
	assert.Equal(t, types.KindSummary, a.Conflicts[1].Kind)
}

func TestAnalyzeSettingsLastWriteWins(t *testing.T) {
	local := Dataset{
		Settings: map[string]types.Setting{
			"appearance":  {Value: `{"theme":"dark"}`, UpdatedAt: 200},
			"preferences": {Value: `{"sound":true}`, UpdatedAt: 100},
		},
	}
	imported := envelope(types.Payload{
		Settings: map[string]types.Setting{
			"appearance":  {Value: `{"theme":"light"}`, UpdatedAt: 100}, // older: loses
			"preferences": {Value: `{"sound":false}`, UpdatedAt: 300},   // newer: wins
			"ai":          {Value: `{}`, UpdatedAt: 50},                 // absent locally: wins
		},
	})

	a := Analyze(local, imported, types.DefaultImportOptions())

	// Settings never appear as conflicts.
	assert.Empty(t, a.Conflicts)
	require.Len(t, a.Insertions.Settings, 2)
	assert.Contains(t, a.Insertions.Settings, "preferences")
	assert.Contains(t, a.Insertions.Settings, "ai")
	assert.NotContains(t, a.Insertions.Settings, "appearance")
}

func TestAnalyzeCategoryToggles(t *testing.T) {
	local := Dataset{}
	imported := envelope(types.Payload{
		Tasks:     []*types.Task{task("t1", "x", 1)},
		Lists:     []*types.TaskList{{ID: "l1", Name: "Work"}},
		Summaries: []*types.Summary{{ID: "s1"}},
		Settings:  map[string]types.Setting{"k": {Value: "v", UpdatedAt: 1}},
	})

	opts := types.ImportOptions{IncludeTasks: true}
	a := Analyze(local, imported, opts)

	assert.Len(t, a.Insertions.Tasks, 1)
	assert.Empty(t, a.Insertions.Lists)
	assert.Empty(t, a.Insertions.Summaries)
	assert.Empty(t, a.Insertions.Settings)
}

func TestAnalyzeEchoAliasCoversSummaries(t *testing.T) {
	local := Dataset{}
	imported := envelope(types.Payload{
		Summaries: []*types.Summary{{ID: "s1", SummaryText: "hello"}},
	})

	opts := types.ImportOptions{IncludeEcho: true}
	a := Analyze(local, imported, opts)

	assert.Len(t, a.Insertions.Summaries, 1)
}

func TestTasksEqualIgnoresTimestamps(t *testing.T) {
	a := task("t", "same", 1)
	b := task("t", "same", 999)
	b.CreatedAt = 500

	assert.True(t, tasksEqual(a, b))

	due := types.Millis(42)
	b.DueDate = &due
	assert.False(t, tasksEqual(a, b))
}

func TestTasksEqualIgnoresTagOrder(t *testing.T) {
	a := task("t", "same", 1)
	b := task("t", "same", 1)
	a.Tags = []string{"home", "urgent"}
	b.Tags = []string{"urgent", "home"}

	assert.True(t, tasksEqual(a, b))

	b.Tags = []string{"urgent", "work"}
	assert.False(t, tasksEqual(a, b))
}

func TestTasksEqualComparesSubtasks(t *testing.T) {
	a := task("t", "same", 1)
	b := task("t", "same", 1)
	a.Subtasks = []*types.Subtask{{ID: "s1", Title: "step", Order: 1}}
	b.Subtasks = []*types.Subtask{{ID: "s1", Title: "step", Order: 1}}
	assert.True(t, tasksEqual(a, b))

	b.Subtasks[0].Completed = true
	assert.False(t, tasksEqual(a, b))
}
