package types

import (
	"cmp"
	"slices"
)

// SortTasksForView orders tasks the way a view renders them: ascending
// fractional order, with id as the stable tiebreak so transient order
// collisions stay deterministic.
func SortTasksForView(tasks []*Task) {
	slices.SortFunc(tasks, func(a, b *Task) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// SortSubtasks orders subtasks by their own fractional key, id tiebreak.
func SortSubtasks(subtasks []*Subtask) {
	slices.SortFunc(subtasks, func(a, b *Subtask) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// SortLists orders lists by order then id.
func SortLists(lists []*TaskList) {
	slices.SortFunc(lists, func(a, b *TaskList) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// GroupTasksByBucket splits tasks into their date buckets, preserving the
// view order within each bucket. now anchors the day boundaries.
func GroupTasksByBucket(tasks []*Task, now Millis) map[Bucket][]*Task {
	groups := make(map[Bucket][]*Task)
	anchor := millisToTime(now)
	for _, t := range tasks {
		b := BucketForDueDate(t.DueDate, anchor)
		groups[b] = append(groups[b], t)
	}
	for _, g := range groups {
		SortTasksForView(g)
	}
	return groups
}
