package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tada-app/tada/internal/storage"
	"github.com/tada-app/tada/internal/types"
)

// resolveTask finds a task by full or unambiguous prefix id.
func resolveTask(ctx context.Context, id string) (*types.Task, error) {
	task, err := store.GetTask(ctx, id)
	if err == nil {
		return task, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("looking up task %s: %w", id, err)
	}

	tasks, err := store.ListTasks(ctx, storage.TaskFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}

	var matches []*types.Task
	for _, t := range tasks {
		if strings.HasPrefix(t.ID, id) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no task matching %q", id)
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, len(matches))
		for i, t := range matches {
			ids[i] = t.ID[:8]
		}
		return nil, fmt.Errorf("ambiguous id %q: matches %s", id, strings.Join(ids, ", "))
	}
}
