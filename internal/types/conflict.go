package types

// EntityKind identifies which collection a conflict belongs to.
type EntityKind string

const (
	KindTask    EntityKind = "task"
	KindList    EntityKind = "list"
	KindSummary EntityKind = "summary"
)

// ConflictResolution selects how a single conflict is settled.
type ConflictResolution string

const (
	KeepLocal    ConflictResolution = "keep-local"
	KeepImported ConflictResolution = "keep-imported"
	KeepNewer    ConflictResolution = "keep-newer"
	Skip         ConflictResolution = "skip"
)

// ValidResolution reports whether r is a known strategy.
func ValidResolution(r ConflictResolution) bool {
	switch r {
	case KeepLocal, KeepImported, KeepNewer, Skip:
		return true
	}
	return false
}

// Snapshot holds one side of a conflict. Exactly one pointer is set,
// matching the conflict's kind.
type Snapshot struct {
	Task    *Task     `json:"task,omitempty"`
	List    *TaskList `json:"list,omitempty"`
	Summary *Summary  `json:"summary,omitempty"`
}

// UpdatedAt returns the snapshot's update timestamp, falling back to
// createdAt when updatedAt is unset (keep-newer comparison rule).
func (s Snapshot) UpdatedAt() Millis {
	switch {
	case s.Task != nil:
		if s.Task.UpdatedAt != 0 {
			return s.Task.UpdatedAt
		}
		return s.Task.CreatedAt
	case s.List != nil:
		if s.List.UpdatedAt != 0 {
			return s.List.UpdatedAt
		}
		return s.List.CreatedAt
	case s.Summary != nil:
		if s.Summary.UpdatedAt != 0 {
			return s.Summary.UpdatedAt
		}
		return s.Summary.CreatedAt
	}
	return 0
}

// DataConflict records a divergence between a local and an imported
// entity sharing the same id. Conflicts are ephemeral: created by the
// analyzer, consumed by the resolver, never persisted.
type DataConflict struct {
	ID       string     `json:"id"`
	Kind     EntityKind `json:"type"`
	Local    Snapshot   `json:"local"`
	Imported Snapshot   `json:"imported"`
}

// ImportOptions controls which categories an import touches and how
// conflicts default.
type ImportOptions struct {
	IncludeTasks     bool `json:"includeTasks"`
	IncludeLists     bool `json:"includeLists"`
	IncludeSummaries bool `json:"includeSummaries"`
	IncludeSettings  bool `json:"includeSettings"`
	// IncludeEcho is the original app's name for the summaries toggle;
	// summaries are imported when either flag is set.
	IncludeEcho bool `json:"includeEcho"`

	// ConflictResolution is the default strategy for conflicts without an
	// explicit per-id resolution. Empty means keep-newer.
	ConflictResolution ConflictResolution `json:"conflictResolution,omitempty"`

	// ReplaceAllData clears each included category before inserting the
	// imported entities, bypassing conflict analysis entirely.
	ReplaceAllData bool `json:"replaceAllData"`
}

// DefaultImportOptions includes every category with keep-newer defaults.
func DefaultImportOptions() ImportOptions {
	return ImportOptions{
		IncludeTasks:       true,
		IncludeLists:       true,
		IncludeSummaries:   true,
		IncludeSettings:    true,
		IncludeEcho:        true,
		ConflictResolution: KeepNewer,
	}
}

// WantSummaries reports whether the summaries category is included.
func (o ImportOptions) WantSummaries() bool {
	return o.IncludeSummaries || o.IncludeEcho
}

// DefaultResolution returns the effective default strategy.
func (o ImportOptions) DefaultResolution() ConflictResolution {
	if ValidResolution(o.ConflictResolution) {
		return o.ConflictResolution
	}
	return KeepNewer
}
