package merge

import "github.com/tada-app/tada/internal/types"

// CommitSet is the resolver's output: the imported snapshots that should
// overwrite their local counterparts, plus counts for the strategies that
// produce no write.
type CommitSet struct {
	Tasks     []*types.Task
	Lists     []*types.TaskList
	Summaries []*types.Summary

	// Unapplied counts, per category, the conflicts that produced no write:
	// keep-local, keep-newer won by the local side, and skip.
	Unapplied map[types.EntityKind]int
}

// UnappliedFor returns the no-write count for one category.
func (s CommitSet) UnappliedFor(kind types.EntityKind) int {
	return s.Unapplied[kind]
}

// Resolve applies a per-conflict strategy to each conflict. Conflicts
// missing from resolutions fall back to def (itself defaulting to
// keep-newer). Each conflict resolves independently, and applying the same
// resolution map twice is idempotent: the winning snapshots carry their own
// updatedAt, so a second Analyze finds no divergence.
func Resolve(conflicts []types.DataConflict, resolutions map[string]types.ConflictResolution, def types.ConflictResolution) CommitSet {
	if !types.ValidResolution(def) {
		def = types.KeepNewer
	}

	set := CommitSet{Unapplied: make(map[types.EntityKind]int)}
	for _, c := range conflicts {
		r, ok := resolutions[c.ID]
		if !ok || !types.ValidResolution(r) {
			r = def
		}

		var winner types.Snapshot
		switch r {
		case types.Skip:
			set.Unapplied[c.Kind]++
			continue
		case types.KeepLocal:
			set.Unapplied[c.Kind]++
			continue
		case types.KeepImported:
			winner = c.Imported
		case types.KeepNewer:
			// Later updatedAt wins; local wins ties so an in-place dataset
			// never churns.
			if c.Imported.UpdatedAt() > c.Local.UpdatedAt() {
				winner = c.Imported
			} else {
				set.Unapplied[c.Kind]++
				continue
			}
		}

		switch c.Kind {
		case types.KindTask:
			set.Tasks = append(set.Tasks, winner.Task)
		case types.KindList:
			set.Lists = append(set.Lists, winner.List)
		case types.KindSummary:
			set.Summaries = append(set.Summaries, winner.Summary)
		}
	}
	return set
}
