package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tada-app/tada/internal/storage"
	"github.com/tada-app/tada/internal/types"
)

const taskColumns = `id, title, completed, completed_at, due_date, list_id,
	list_name, content, "order", created_at, updated_at, tags, priority, group_category`

// CreateTask inserts a task and its subtasks.
func (s *Store) CreateTask(ctx context.Context, task *types.Task) error {
	return insertTask(ctx, s.db, task, false)
}

func (s *Store) GetTask(ctx context.Context, id string) (*types.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading task %s: %w", id, err)
	}
	if err := attachSubtasks(ctx, s.db, []*types.Task{task}); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Store) ListTasks(ctx context.Context, filter storage.TaskFilter) ([]*types.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var conds []string
	var args []any
	if filter.ListID != "" {
		conds = append(conds, "list_id = ?")
		args = append(args, filter.ListID)
	}
	if filter.ListName != "" {
		conds = append(conds, "lower(list_name) = lower(?)")
		args = append(args, filter.ListName)
	}
	if filter.Completed != nil {
		conds = append(conds, "completed = ?")
		args = append(args, boolToInt(*filter.Completed))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY "order" ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*types.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	if err := attachSubtasks(ctx, s.db, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *Store) UpdateTask(ctx context.Context, id string, patch storage.TaskPatch) error {
	return updateTask(ctx, s.db, id, patch)
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// CreateList inserts a list, enforcing the case-insensitive unique-name and
// reserved-name rules.
func (s *Store) CreateList(ctx context.Context, list *types.TaskList) error {
	if types.IsReservedListName(list.Name) && !strings.EqualFold(list.Name, types.DefaultListName) {
		return fmt.Errorf("list %q: %w", list.Name, storage.ErrReservedName)
	}
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lists WHERE lower(name) = lower(?)`, list.Name).Scan(&count); err != nil {
		return fmt.Errorf("checking list name: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("list %q: %w", list.Name, storage.ErrDuplicateName)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lists (id, name, icon, color, "order", created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		list.ID, list.Name, nullStr(list.Icon), nullStr(list.Color),
		list.Order, list.CreatedAt, list.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating list %q: %w", list.Name, err)
	}
	return nil
}

func (s *Store) GetList(ctx context.Context, id string) (*types.TaskList, error) {
	return getList(ctx, s.db, `WHERE id = ?`, id)
}

func (s *Store) GetListByName(ctx context.Context, name string) (*types.TaskList, error) {
	return getList(ctx, s.db, `WHERE lower(name) = lower(?)`, name)
}

func (s *Store) ListLists(ctx context.Context) ([]*types.TaskList, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, icon, color, "order", created_at, updated_at
		FROM lists ORDER BY "order" ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing lists: %w", err)
	}
	defer rows.Close()

	var lists []*types.TaskList
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning list: %w", err)
		}
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

func (s *Store) DeleteList(ctx context.Context, id string) error {
	// Tasks in the list fall back to the default list; the FK only nulls
	// the id, the denormalized name needs the same treatment.
	return s.RunInTransaction(ctx, func(tx storage.Tx) error {
		st := tx.(*storeTx)
		if _, err := st.q.ExecContext(ctx,
			`UPDATE tasks SET list_name = ? WHERE list_id = ?`,
			types.DefaultListName, id); err != nil {
			return fmt.Errorf("reassigning tasks: %w", err)
		}
		res, err := st.q.ExecContext(ctx, `DELETE FROM lists WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("deleting list %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("list %s: %w", id, storage.ErrNotFound)
		}
		return nil
	})
}

func (s *Store) ListSummaries(ctx context.Context) ([]*types.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, period_key, list_key, task_ids, summary_text, created_at, updated_at
		FROM summaries ORDER BY period_key ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing summaries: %w", err)
	}
	defer rows.Close()

	var out []*types.Summary
	for rows.Next() {
		var sum types.Summary
		var taskIDs string
		if err := rows.Scan(&sum.ID, &sum.PeriodKey, &sum.ListKey, &taskIDs,
			&sum.SummaryText, &sum.CreatedAt, &sum.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		if err := json.Unmarshal([]byte(taskIDs), &sum.TaskIDs); err != nil {
			return nil, fmt.Errorf("decoding summary %s task ids: %w", sum.ID, err)
		}
		out = append(out, &sum)
	}
	return out, rows.Err()
}

func (s *Store) PutSummary(ctx context.Context, summary *types.Summary) error {
	return upsertSummary(ctx, s.db, summary)
}

func (s *Store) DeleteSummary(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM summaries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting summary %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("summary %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) GetSetting(ctx context.Context, key string) (types.Setting, error) {
	var set types.Setting
	err := s.db.QueryRowContext(ctx,
		`SELECT value, updated_at FROM settings WHERE key = ?`, key).
		Scan(&set.Value, &set.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Setting{}, fmt.Errorf("setting %q: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return types.Setting{}, fmt.Errorf("loading setting %q: %w", key, err)
	}
	return set, nil
}

func (s *Store) PutSetting(ctx context.Context, key string, setting types.Setting) error {
	return putSetting(ctx, s.db, key, setting)
}

func (s *Store) AllSettings(ctx context.Context) (map[string]types.Setting, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value, updated_at FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]types.Setting)
	for rows.Next() {
		var key string
		var set types.Setting
		if err := rows.Scan(&key, &set.Value, &set.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		out[key] = set
	}
	return out, rows.Err()
}

// --- storage.Tx implementation ---

func (t *storeTx) GetTask(ctx context.Context, id string) (*types.Task, error) {
	row := t.q.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading task %s: %w", id, err)
	}
	if err := attachSubtasks(ctx, t.q, []*types.Task{task}); err != nil {
		return nil, err
	}
	return task, nil
}

func (t *storeTx) UpsertTask(ctx context.Context, task *types.Task) error {
	return insertTask(ctx, t.q, task, true)
}

func (t *storeTx) UpdateTask(ctx context.Context, id string, patch storage.TaskPatch) error {
	return updateTask(ctx, t.q, id, patch)
}

func (t *storeTx) DeleteTask(ctx context.Context, id string) error {
	res, err := t.q.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (t *storeTx) ClearTasks(ctx context.Context) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM subtasks`); err != nil {
		return fmt.Errorf("clearing subtasks: %w", err)
	}
	if _, err := t.q.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return fmt.Errorf("clearing tasks: %w", err)
	}
	return nil
}

func (t *storeTx) UpsertList(ctx context.Context, list *types.TaskList) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO lists (id, name, icon, color, "order", created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			icon = excluded.icon,
			color = excluded.color,
			"order" = excluded."order",
			updated_at = excluded.updated_at`,
		list.ID, list.Name, nullStr(list.Icon), nullStr(list.Color),
		list.Order, list.CreatedAt, list.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting list %s: %w", list.ID, err)
	}
	return nil
}

func (t *storeTx) ClearLists(ctx context.Context) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM lists`); err != nil {
		return fmt.Errorf("clearing lists: %w", err)
	}
	return nil
}

func (t *storeTx) UpsertSummary(ctx context.Context, summary *types.Summary) error {
	return upsertSummary(ctx, t.q, summary)
}

func (t *storeTx) ClearSummaries(ctx context.Context) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM summaries`); err != nil {
		return fmt.Errorf("clearing summaries: %w", err)
	}
	return nil
}

func (t *storeTx) PutSetting(ctx context.Context, key string, setting types.Setting) error {
	return putSetting(ctx, t.q, key, setting)
}

func (t *storeTx) ClearSettings(ctx context.Context) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM settings`); err != nil {
		return fmt.Errorf("clearing settings: %w", err)
	}
	return nil
}

// --- shared helpers ---

func insertTask(ctx context.Context, q querier, task *types.Task, upsert bool) error {
	tags, err := encodeTags(task.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags for %s: %w", task.ID, err)
	}

	query := `
		INSERT INTO tasks (id, title, completed, completed_at, due_date, list_id,
			list_name, content, "order", created_at, updated_at, tags, priority, group_category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if upsert {
		query += `
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			completed = excluded.completed,
			completed_at = excluded.completed_at,
			due_date = excluded.due_date,
			list_id = excluded.list_id,
			list_name = excluded.list_name,
			content = excluded.content,
			"order" = excluded."order",
			updated_at = excluded.updated_at,
			tags = excluded.tags,
			priority = excluded.priority,
			group_category = excluded.group_category`
	}

	bucket := task.GroupCategory
	if bucket == "" {
		bucket = types.BucketNoDate
	}
	_, err = q.ExecContext(ctx, query,
		task.ID, task.Title, boolToInt(task.Completed),
		nullMillis(task.CompletedAt), nullMillis(task.DueDate),
		nullStr(task.ListID), task.ListName, nullStr(task.Content),
		task.Order, task.CreatedAt, task.UpdatedAt, tags,
		nullInt(task.Priority), string(bucket))
	if err != nil {
		return fmt.Errorf("writing task %s: %w", task.ID, err)
	}

	// Subtasks are replaced wholesale; their order keys travel with them.
	if _, err := q.ExecContext(ctx, `DELETE FROM subtasks WHERE parent_id = ?`, task.ID); err != nil {
		return fmt.Errorf("clearing subtasks of %s: %w", task.ID, err)
	}
	for _, st := range task.Subtasks {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO subtasks (id, parent_id, title, completed, completed_at,
				due_date, "order", created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			st.ID, task.ID, st.Title, boolToInt(st.Completed),
			nullMillis(st.CompletedAt), nullMillis(st.DueDate),
			st.Order, st.CreatedAt, st.UpdatedAt); err != nil {
			return fmt.Errorf("writing subtask %s: %w", st.ID, err)
		}
	}
	return nil
}

func updateTask(ctx context.Context, q querier, id string, patch storage.TaskPatch) error {
	var sets []string
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Content != nil {
		add("content", nullStr(*patch.Content))
	}
	if patch.Completed != nil {
		add("completed", boolToInt(*patch.Completed))
	}
	if patch.CompletedAt.Set {
		add("completed_at", nullMillis(patch.CompletedAt.Value))
	}
	if patch.DueDate.Set {
		add("due_date", nullMillis(patch.DueDate.Value))
	}
	if patch.Priority != nil {
		add("priority", *patch.Priority)
	}
	if patch.Order != nil {
		add(`"order"`, *patch.Order)
	}
	if patch.ListID != nil {
		add("list_id", nullStr(*patch.ListID))
	}
	if patch.ListName != nil {
		add("list_name", *patch.ListName)
	}
	if patch.Tags != nil {
		tags, err := encodeTags(*patch.Tags)
		if err != nil {
			return fmt.Errorf("encoding tags for %s: %w", id, err)
		}
		add("tags", tags)
	}
	if patch.GroupCategory != nil {
		add("group_category", string(*patch.GroupCategory))
	}
	if patch.UpdatedAt != nil {
		add("updated_at", *patch.UpdatedAt)
	}
	if len(sets) == 0 {
		return nil
	}

	res, err := q.ExecContext(ctx,
		`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`,
		append(args, id)...)
	if err != nil {
		return fmt.Errorf("updating task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func upsertSummary(ctx context.Context, q querier, summary *types.Summary) error {
	taskIDs, err := json.Marshal(summary.TaskIDs)
	if err != nil {
		return fmt.Errorf("encoding task ids for %s: %w", summary.ID, err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO summaries (id, period_key, list_key, task_ids, summary_text, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			period_key = excluded.period_key,
			list_key = excluded.list_key,
			task_ids = excluded.task_ids,
			summary_text = excluded.summary_text,
			updated_at = excluded.updated_at`,
		summary.ID, summary.PeriodKey, summary.ListKey, string(taskIDs),
		summary.SummaryText, summary.CreatedAt, summary.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting summary %s: %w", summary.ID, err)
	}
	return nil
}

func putSetting(ctx context.Context, q querier, key string, setting types.Setting) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key, setting.Value, setting.UpdatedAt)
	if err != nil {
		return fmt.Errorf("writing setting %q: %w", key, err)
	}
	return nil
}

func getList(ctx context.Context, q querier, where string, arg any) (*types.TaskList, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, icon, color, "order", created_at, updated_at
		FROM lists `+where, arg)
	l, err := scanList(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("list %v: %w", arg, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading list %v: %w", arg, err)
	}
	return l, nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*types.Task, error) {
	var t types.Task
	var completed int
	var completedAt, dueDate, priority sql.NullInt64
	var listID, content, tags sql.NullString
	var bucket string

	err := row.Scan(&t.ID, &t.Title, &completed, &completedAt, &dueDate,
		&listID, &t.ListName, &content, &t.Order, &t.CreatedAt, &t.UpdatedAt,
		&tags, &priority, &bucket)
	if err != nil {
		return nil, err
	}

	t.Completed = completed != 0
	t.CompletedAt = millisFromNull(completedAt)
	t.DueDate = millisFromNull(dueDate)
	t.ListID = listID.String
	t.Content = content.String
	t.GroupCategory = types.Bucket(bucket)
	if priority.Valid {
		p := int(priority.Int64)
		t.Priority = &p
	}
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &t.Tags); err != nil {
			return nil, fmt.Errorf("decoding tags: %w", err)
		}
	}
	return &t, nil
}

func scanList(row scanner) (*types.TaskList, error) {
	var l types.TaskList
	var icon, color sql.NullString
	err := row.Scan(&l.ID, &l.Name, &icon, &color, &l.Order, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.Icon = icon.String
	l.Color = color.String
	return &l, nil
}

func attachSubtasks(ctx context.Context, q querier, tasks []*types.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	byID := make(map[string]*types.Task, len(tasks))
	placeholders := make([]string, 0, len(tasks))
	args := make([]any, 0, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
		placeholders = append(placeholders, "?")
		args = append(args, t.ID)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, parent_id, title, completed, completed_at, due_date, "order", created_at, updated_at
		FROM subtasks WHERE parent_id IN (`+strings.Join(placeholders, ",")+`)
		ORDER BY "order" ASC, id ASC`, args...)
	if err != nil {
		return fmt.Errorf("loading subtasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var st types.Subtask
		var completed int
		var completedAt, dueDate sql.NullInt64
		if err := rows.Scan(&st.ID, &st.ParentID, &st.Title, &completed,
			&completedAt, &dueDate, &st.Order, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return fmt.Errorf("scanning subtask: %w", err)
		}
		st.Completed = completed != 0
		st.CompletedAt = millisFromNull(completedAt)
		st.DueDate = millisFromNull(dueDate)
		if parent, ok := byID[st.ParentID]; ok {
			parent.Subtasks = append(parent.Subtasks, &st)
		}
	}
	return rows.Err()
}

func encodeTags(tags []string) (any, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullMillis(p *types.Millis) any {
	if p == nil {
		return nil
	}
	return *p
}

func millisFromNull(v sql.NullInt64) *types.Millis {
	if !v.Valid {
		return nil
	}
	m := v.Int64
	return &m
}
