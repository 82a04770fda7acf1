// Package merge implements the data-reconciliation engine used when an
// imported backup is merged into the live dataset: conflict detection
// (Analyze) and per-conflict resolution (Resolve).
package merge

import (
	"slices"

	"github.com/tada-app/tada/internal/types"
)

// Dataset is a snapshot of the live collections the analyzer diffs against.
type Dataset struct {
	Tasks     []*types.Task
	Lists     []*types.TaskList
	Summaries []*types.Summary
	Settings  map[string]types.Setting
}

// Insertions are imported entities with no local counterpart. They are
// staged separately from conflicts and always committed.
type Insertions struct {
	Tasks     []*types.Task
	Lists     []*types.TaskList
	Summaries []*types.Summary
	// Settings carries imported settings rows that win last-write-wins
	// against the local row (or have none). Settings never conflict.
	Settings map[string]types.Setting
}

// Empty reports whether nothing was staged.
func (i Insertions) Empty() bool {
	return len(i.Tasks) == 0 && len(i.Lists) == 0 && len(i.Summaries) == 0 && len(i.Settings) == 0
}

// Analysis is the analyzer's output: the conflict list, in imported
// insertion order, plus the staged pure insertions.
type Analysis struct {
	Conflicts  []types.DataConflict
	Insertions Insertions
}

// Analyze diffs the imported payload against the live dataset and emits a
// conflict per entity whose id exists on both sides with differing
// substantive content. Identical entities are not conflicts; entities
// present only in the import are staged as insertions; entities present
// only locally are untouched.
//
// The result is deterministic: same snapshots in, same conflicts out, in
// the imported collections' order.
func Analyze(local Dataset, imported *types.ExportedData, opts types.ImportOptions) Analysis {
	var a Analysis

	if opts.IncludeTasks {
		byID := make(map[string]*types.Task, len(local.Tasks))
		for _, t := range local.Tasks {
			byID[t.ID] = t
		}
		for _, imp := range imported.Data.Tasks {
			loc, exists := byID[imp.ID]
			switch {
			case !exists:
				a.Insertions.Tasks = append(a.Insertions.Tasks, imp)
			case !tasksEqual(loc, imp):
				a.Conflicts = append(a.Conflicts, types.DataConflict{
					ID:       imp.ID,
					Kind:     types.KindTask,
					Local:    types.Snapshot{Task: loc},
					Imported: types.Snapshot{Task: imp},
				})
			}
		}
	}

	if opts.IncludeLists {
		byID := make(map[string]*types.TaskList, len(local.Lists))
		for _, l := range local.Lists {
			byID[l.ID] = l
		}
		for _, imp := range imported.Data.Lists {
			loc, exists := byID[imp.ID]
			switch {
			case !exists:
				a.Insertions.Lists = append(a.Insertions.Lists, imp)
			case !listsEqual(loc, imp):
				a.Conflicts = append(a.Conflicts, types.DataConflict{
					ID:       imp.ID,
					Kind:     types.KindList,
					Local:    types.Snapshot{List: loc},
					Imported: types.Snapshot{List: imp},
				})
			}
		}
	}

	if opts.WantSummaries() {
		byID := make(map[string]*types.Summary, len(local.Summaries))
		for _, s := range local.Summaries {
			byID[s.ID] = s
		}
		for _, imp := range imported.Data.Summaries {
			loc, exists := byID[imp.ID]
			switch {
			case !exists:
				a.Insertions.Summaries = append(a.Insertions.Summaries, imp)
			case !summariesEqual(loc, imp):
				a.Conflicts = append(a.Conflicts, types.DataConflict{
					ID:       imp.ID,
					Kind:     types.KindSummary,
					Local:    types.Snapshot{Summary: loc},
					Imported: types.Snapshot{Summary: imp},
				})
			}
		}
	}

	if opts.IncludeSettings && len(imported.Data.Settings) > 0 {
		staged := make(map[string]types.Setting)
		for key, imp := range imported.Data.Settings {
			loc, exists := local.Settings[key]
			if !exists || imp.UpdatedAt > loc.UpdatedAt {
				staged[key] = imp
			}
		}
		if len(staged) > 0 {
			a.Insertions.Settings = staged
		}
	}

	return a
}

// tasksEqual compares substantive task fields. createdAt/updatedAt are
// volatile and never make a task differ on their own.
func tasksEqual(a, b *types.Task) bool {
	return a.Title == b.Title &&
		a.Completed == b.Completed &&
		millisPtrEqual(a.CompletedAt, b.CompletedAt) &&
		millisPtrEqual(a.DueDate, b.DueDate) &&
		intPtrEqual(a.Priority, b.Priority) &&
		a.Order == b.Order &&
		a.ListID == b.ListID &&
		a.ListName == b.ListName &&
		a.Content == b.Content &&
		tagSetsEqual(a.Tags, b.Tags) &&
		subtasksEqual(a.Subtasks, b.Subtasks)
}

// tagSetsEqual compares tags as an unordered set.
func tagSetsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as, bs := slices.Clone(a), slices.Clone(b)
	slices.Sort(as)
	slices.Sort(bs)
	return slices.Equal(as, bs)
}

func listsEqual(a, b *types.TaskList) bool {
	return a.Name == b.Name &&
		a.Icon == b.Icon &&
		a.Color == b.Color &&
		a.Order == b.Order
}

func summariesEqual(a, b *types.Summary) bool {
	return a.PeriodKey == b.PeriodKey &&
		a.ListKey == b.ListKey &&
		a.SummaryText == b.SummaryText &&
		slices.Equal(a.TaskIDs, b.TaskIDs)
}

func subtasksEqual(a, b []*types.Subtask) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.ID != y.ID || x.Title != y.Title || x.Completed != y.Completed ||
			x.Order != y.Order ||
			!millisPtrEqual(x.CompletedAt, y.CompletedAt) ||
			!millisPtrEqual(x.DueDate, y.DueDate) {
			return false
		}
	}
	return true
}

func millisPtrEqual(a, b *types.Millis) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
