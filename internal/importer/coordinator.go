// Package importer orchestrates backup export and the analyze → resolve →
// commit import pipeline against the storage backend.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tada-app/tada/internal/debug"
	"github.com/tada-app/tada/internal/merge"
	"github.com/tada-app/tada/internal/storage"
	"github.com/tada-app/tada/internal/types"
)

// ErrInvalidFormat means the import payload is missing required structural
// fields (version, data). Nothing is mutated.
var ErrInvalidFormat = errors.New("invalid backup format")

// ErrBusy is returned when an import or resolution call arrives while the
// coordinator is not in the state that accepts it.
var ErrBusy = errors.New("import already in progress")

// ErrNotAwaiting is returned by Resolve/Cancel outside AwaitingResolution.
var ErrNotAwaiting = errors.New("no import awaiting resolution")

// State is the coordinator's position in the import pipeline.
type State string

const (
	StateIdle               State = "idle"
	StateParsing            State = "parsing"
	StateAnalyzing          State = "analyzing"
	StateAwaitingResolution State = "awaiting-resolution"
	StateCommitting         State = "committing"
)

// CategoryCount reports what happened to one entity category.
type CategoryCount struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

// Result summarizes a committed import.
type Result struct {
	Tasks     CategoryCount `json:"tasks"`
	Lists     CategoryCount `json:"lists"`
	Summaries CategoryCount `json:"summaries"`
	Settings  int           `json:"settings"`
}

// Outcome is what Start produces: either a committed Result (no conflicts,
// or replace-all), or the conflict list with the coordinator suspended in
// AwaitingResolution.
type Outcome struct {
	Result    *Result
	Conflicts []types.DataConflict
}

// Coordinator drives export and import. A single coordinator serves a
// single session; phases never overlap for one import operation.
type Coordinator struct {
	store storage.Storage
	now   func() types.Millis

	state    State
	payload  *types.ExportedData
	opts     types.ImportOptions
	analysis merge.Analysis
}

// New returns an idle coordinator over the given store.
func New(store storage.Storage) *Coordinator {
	return &Coordinator{store: store, now: types.NowMillis, state: StateIdle}
}

// State returns the coordinator's current pipeline state.
func (c *Coordinator) State() State {
	return c.state
}

// Export snapshots the full dataset into a versioned envelope. It has no
// side effects and never produces partial output.
func (c *Coordinator) Export(ctx context.Context) (*types.ExportedData, error) {
	tasks, err := c.store.ListTasks(ctx, storage.TaskFilter{})
	if err != nil {
		return nil, fmt.Errorf("exporting tasks: %w", err)
	}
	lists, err := c.store.ListLists(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporting lists: %w", err)
	}
	summaries, err := c.store.ListSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporting summaries: %w", err)
	}
	settings, err := c.store.AllSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporting settings: %w", err)
	}

	return &types.ExportedData{
		Version:   types.EnvelopeVersion,
		Timestamp: c.now(),
		Data: types.Payload{
			Tasks:     tasks,
			Lists:     lists,
			Summaries: summaries,
			Settings:  settings,
		},
	}, nil
}

// Parse validates and decodes a raw envelope. Structural problems surface
// as ErrInvalidFormat.
func Parse(raw []byte) (*types.ExportedData, error) {
	var probe struct {
		Version   *int64         `json:"version"`
		Timestamp types.Millis   `json:"timestamp"`
		Data      *types.Payload `json:"data"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if probe.Version == nil {
		return nil, fmt.Errorf("%w: missing version", ErrInvalidFormat)
	}
	if probe.Data == nil {
		return nil, fmt.Errorf("%w: missing data", ErrInvalidFormat)
	}
	if *probe.Version > types.EnvelopeVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidFormat, *probe.Version)
	}
	return &types.ExportedData{
		Version:   *probe.Version,
		Timestamp: probe.Timestamp,
		Data:      *probe.Data,
	}, nil
}

// Start runs Parsing and Analyzing on a raw envelope. With no conflicts
// (or with ReplaceAllData) it proceeds straight to Committing and returns
// the Result. Otherwise it suspends in AwaitingResolution holding the
// payload, and returns the conflict list for the caller to resolve.
func (c *Coordinator) Start(ctx context.Context, raw []byte, opts types.ImportOptions) (*Outcome, error) {
	if c.state != StateIdle {
		return nil, ErrBusy
	}

	c.state = StateParsing
	payload, err := Parse(raw)
	if err != nil {
		c.state = StateIdle
		return nil, err
	}

	if opts.ReplaceAllData {
		result, err := c.commitReplace(ctx, payload, opts)
		c.state = StateIdle
		if err != nil {
			return nil, err
		}
		return &Outcome{Result: result}, nil
	}

	c.state = StateAnalyzing
	local, err := c.snapshot(ctx)
	if err != nil {
		c.state = StateIdle
		return nil, err
	}
	analysis := merge.Analyze(local, payload, opts)

	if len(analysis.Conflicts) == 0 {
		result, err := c.commit(ctx, analysis.Insertions, merge.CommitSet{}, opts)
		c.state = StateIdle
		if err != nil {
			return nil, err
		}
		return &Outcome{Result: result}, nil
	}

	c.payload = payload
	c.opts = opts
	c.analysis = analysis
	c.state = StateAwaitingResolution
	return &Outcome{Conflicts: analysis.Conflicts}, nil
}

// Resolve resumes a suspended import with per-conflict resolutions.
// Conflicts missing from the map use the options' default strategy.
func (c *Coordinator) Resolve(ctx context.Context, resolutions map[string]types.ConflictResolution) (*Result, error) {
	if c.state != StateAwaitingResolution {
		return nil, ErrNotAwaiting
	}

	set := merge.Resolve(c.analysis.Conflicts, resolutions, c.opts.DefaultResolution())
	result, err := c.commit(ctx, c.analysis.Insertions, set, c.opts)

	c.reset()
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel discards a suspended import, returning to Idle. It is only valid
// in AwaitingResolution.
func (c *Coordinator) Cancel() error {
	if c.state != StateAwaitingResolution {
		return ErrNotAwaiting
	}
	c.reset()
	return nil
}

func (c *Coordinator) reset() {
	c.state = StateIdle
	c.payload = nil
	c.opts = types.ImportOptions{}
	c.analysis = merge.Analysis{}
}

// Analyze computes the merge plan for a parsed payload without changing
// coordinator state or writing anything. Dry runs use this directly.
func (c *Coordinator) Analyze(ctx context.Context, payload *types.ExportedData, opts types.ImportOptions) (merge.Analysis, error) {
	local, err := c.snapshot(ctx)
	if err != nil {
		return merge.Analysis{}, err
	}
	return merge.Analyze(local, payload, opts), nil
}

func (c *Coordinator) snapshot(ctx context.Context) (merge.Dataset, error) {
	tasks, err := c.store.ListTasks(ctx, storage.TaskFilter{})
	if err != nil {
		return merge.Dataset{}, fmt.Errorf("loading tasks: %w", err)
	}
	lists, err := c.store.ListLists(ctx)
	if err != nil {
		return merge.Dataset{}, fmt.Errorf("loading lists: %w", err)
	}
	summaries, err := c.store.ListSummaries(ctx)
	if err != nil {
		return merge.Dataset{}, fmt.Errorf("loading summaries: %w", err)
	}
	settings, err := c.store.AllSettings(ctx)
	if err != nil {
		return merge.Dataset{}, fmt.Errorf("loading settings: %w", err)
	}
	return merge.Dataset{Tasks: tasks, Lists: lists, Summaries: summaries, Settings: settings}, nil
}

// commit writes staged insertions and resolved updates in one transaction.
func (c *Coordinator) commit(ctx context.Context, ins merge.Insertions, set merge.CommitSet, opts types.ImportOptions) (*Result, error) {
	c.state = StateCommitting

	result := &Result{}
	result.Tasks.Skipped = set.UnappliedFor(types.KindTask)
	result.Lists.Skipped = set.UnappliedFor(types.KindList)
	result.Summaries.Skipped = set.UnappliedFor(types.KindSummary)

	// Lists land first so imported tasks can resolve against them.
	insertLists, updateLists := filterLists(ins.Lists, set.Lists, result)
	known, err := c.knownLists(ctx, insertLists, updateLists)
	if err != nil {
		return nil, err
	}

	insertTasks := filterTasks(ins.Tasks, known, &result.Tasks)
	updateTasks := filterTasks(set.Tasks, known, &result.Tasks)

	// The closure only writes; a busy retry re-runs it in full, so counts
	// come from the batches instead.
	err = c.transactWithRetry(ctx, func(tx storage.Tx) error {
		for _, l := range insertLists {
			if err := tx.UpsertList(ctx, l); err != nil {
				return err
			}
		}
		for _, l := range updateLists {
			if err := tx.UpsertList(ctx, l); err != nil {
				return err
			}
		}
		for _, t := range insertTasks {
			if err := tx.UpsertTask(ctx, t); err != nil {
				return err
			}
		}
		for _, t := range updateTasks {
			if err := tx.UpsertTask(ctx, t); err != nil {
				return err
			}
		}
		for _, s := range ins.Summaries {
			if err := tx.UpsertSummary(ctx, s); err != nil {
				return err
			}
		}
		for _, s := range set.Summaries {
			if err := tx.UpsertSummary(ctx, s); err != nil {
				return err
			}
		}
		for key, setting := range ins.Settings {
			if err := tx.PutSetting(ctx, key, setting); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("committing import: %w", err)
	}

	result.Lists.Inserted = len(insertLists)
	result.Lists.Updated = len(updateLists)
	result.Tasks.Inserted = len(insertTasks)
	result.Tasks.Updated = len(updateTasks)
	result.Summaries.Inserted = len(ins.Summaries)
	result.Summaries.Updated = len(set.Summaries)
	result.Settings = len(ins.Settings)
	return result, nil
}

// commitReplace clears every included category and inserts the imported
// entities, all in one transaction. Conflict analysis does not apply.
func (c *Coordinator) commitReplace(ctx context.Context, payload *types.ExportedData, opts types.ImportOptions) (*Result, error) {
	c.state = StateCommitting

	result := &Result{}

	var keepLists []*types.TaskList
	if opts.IncludeLists {
		for _, l := range payload.Data.Lists {
			if types.IsReservedListName(l.Name) && !strings.EqualFold(l.Name, types.DefaultListName) {
				result.Lists.Skipped++
				debug.Logf("import: skipping list %s: reserved name %q\n", l.ID, l.Name)
				continue
			}
			keepLists = append(keepLists, l)
		}
	}
	var keepTasks []*types.Task
	if opts.IncludeTasks {
		for _, t := range payload.Data.Tasks {
			if t.ListID == "" && t.ListName == "" {
				result.Tasks.Skipped++
				debug.Logf("import: skipping task %s: no resolvable list\n", t.ID)
				continue
			}
			keepTasks = append(keepTasks, t)
		}
	}

	err := c.transactWithRetry(ctx, func(tx storage.Tx) error {
		if opts.IncludeTasks {
			if err := tx.ClearTasks(ctx); err != nil {
				return err
			}
		}
		if opts.IncludeLists {
			if err := tx.ClearLists(ctx); err != nil {
				return err
			}
			for _, l := range keepLists {
				if err := tx.UpsertList(ctx, l); err != nil {
					return err
				}
			}
		}
		for _, t := range keepTasks {
			if err := tx.UpsertTask(ctx, t); err != nil {
				return err
			}
		}
		if opts.WantSummaries() {
			if err := tx.ClearSummaries(ctx); err != nil {
				return err
			}
			for _, s := range payload.Data.Summaries {
				if err := tx.UpsertSummary(ctx, s); err != nil {
					return err
				}
			}
		}
		if opts.IncludeSettings && len(payload.Data.Settings) > 0 {
			if err := tx.ClearSettings(ctx); err != nil {
				return err
			}
			for key, setting := range payload.Data.Settings {
				if err := tx.PutSetting(ctx, key, setting); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("committing import: %w", err)
	}

	result.Lists.Inserted = len(keepLists)
	result.Tasks.Inserted = len(keepTasks)
	if opts.WantSummaries() {
		result.Summaries.Inserted = len(payload.Data.Summaries)
	}
	if opts.IncludeSettings {
		result.Settings = len(payload.Data.Settings)
	}
	return result, nil
}

// transactWithRetry retries the transaction on a busy database. SQLite
// surfaces contention as SQLITE_BUSY / "database is locked"; anything else
// fails immediately.
func (c *Coordinator) transactWithRetry(ctx context.Context, fn func(tx storage.Tx) error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(50*time.Millisecond),
		backoff.WithMaxInterval(time.Second),
	), 4), ctx)

	return backoff.Retry(func() error {
		err := c.store.RunInTransaction(ctx, fn)
		if err != nil && !isBusy(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "busy")
}

// knownLists builds the id set and name index tasks resolve against:
// everything already stored plus everything this batch writes.
func (c *Coordinator) knownLists(ctx context.Context, batches ...[]*types.TaskList) (listIndex, error) {
	idx := listIndex{ids: map[string]bool{}, byName: map[string]string{}}
	lists, err := c.store.ListLists(ctx)
	if err != nil {
		return listIndex{}, fmt.Errorf("loading lists: %w", err)
	}
	for _, l := range lists {
		idx.add(l)
	}
	for _, batch := range batches {
		for _, l := range batch {
			idx.add(l)
		}
	}
	return idx, nil
}

type listIndex struct {
	ids    map[string]bool
	byName map[string]string
}

func (i listIndex) add(l *types.TaskList) {
	i.ids[l.ID] = true
	i.byName[strings.ToLower(l.Name)] = l.ID
}

// filterTasks drops tasks whose list cannot be resolved (per-entity
// validation: one bad entity never blocks the batch) and remaps ids for
// tasks whose list moved but whose name still resolves.
func filterTasks(tasks []*types.Task, idx listIndex, count *CategoryCount) []*types.Task {
	var out []*types.Task
	for _, t := range tasks {
		switch {
		case t.ListID != "" && idx.ids[t.ListID]:
			out = append(out, t)
		case t.ListName != "":
			if id, ok := idx.byName[strings.ToLower(t.ListName)]; ok {
				remapped := t.Clone()
				remapped.ListID = id
				out = append(out, remapped)
			} else {
				// The denormalized name keeps the task usable; it joins the
				// default view until the list reappears.
				detached := t.Clone()
				detached.ListID = ""
				out = append(out, detached)
			}
		default:
			count.Skipped++
			debug.Logf("import: skipping task %s: no resolvable list\n", t.ID)
		}
	}
	return out
}

// filterLists drops imported lists with reserved names.
func filterLists(inserts, updates []*types.TaskList, result *Result) ([]*types.TaskList, []*types.TaskList) {
	keep := func(batch []*types.TaskList) []*types.TaskList {
		var out []*types.TaskList
		for _, l := range batch {
			if types.IsReservedListName(l.Name) && !strings.EqualFold(l.Name, types.DefaultListName) {
				result.Lists.Skipped++
				debug.Logf("import: skipping list %s: reserved name %q\n", l.ID, l.Name)
				continue
			}
			out = append(out, l)
		}
		return out
	}
	return keep(inserts), keep(updates)
}
