package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tada-app/tada/internal/ordering"
	"github.com/tada-app/tada/internal/storage"
	"github.com/tada-app/tada/internal/types"
)

var moveCmd = &cobra.Command{
	Use:   "move <id>",
	Short: "Reorder a task or move it between buckets and lists",
	Long: `Move a task within its list view, into a different due-date bucket,
or into another list.

Reordering only rewrites the moved task's fractional key; neighbors keep
theirs. Moving into a bucket rewrites the due date (today, tomorrow, a
week out, or yesterday for overdue) while keeping the task's time of day.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		afterID, _ := cmd.Flags().GetString("after")
		beforeID, _ := cmd.Flags().GetString("before")
		top, _ := cmd.Flags().GetBool("top")
		bottom, _ := cmd.Flags().GetBool("bottom")
		bucketName, _ := cmd.Flags().GetString("bucket")
		listName, _ := cmd.Flags().GetString("list")

		positional := 0
		for _, set := range []bool{afterID != "", beforeID != "", top, bottom} {
			if set {
				positional++
			}
		}
		if positional > 1 {
			FatalErrorRespectJSON("--after, --before, --top and --bottom are mutually exclusive")
		}
		if positional == 0 && bucketName == "" && listName == "" {
			FatalErrorRespectJSON("nothing to do: pass --after/--before/--top/--bottom, --bucket, or --list")
		}

		ctx := rootCtx
		now := types.NowMillis()

		task, err := resolveTask(ctx, args[0])
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}

		if listName != "" {
			moveToList(ctx, task, listName, now)
			task, err = store.GetTask(ctx, task.ID)
			if err != nil {
				FatalErrorRespectJSON("reloading task: %v", err)
			}
		}

		if positional == 0 && bucketName == "" {
			return
		}

		// The visible view: open tasks in the moved task's list.
		completed := false
		view, err := store.ListTasks(ctx, storage.TaskFilter{ListID: task.ListID, ListName: task.ListName, Completed: &completed})
		if err != nil {
			FatalErrorRespectJSON("loading view: %v", err)
		}
		types.SortTasksForView(view)

		buf := ordering.NewPendingBuffer(view)

		if positional > 0 {
			visible := moveWithinView(view, task.ID, afterID, beforeID, top, bottom)
			if visible == nil {
				FatalErrorRespectJSON("reference task not found in view")
			}

			orders := make(map[string]float64, len(view))
			for _, t := range view {
				orders[t.ID] = t.Order
			}

			order, err := ordering.Assign(ordering.MoveRequest{
				Visible: visible,
				MovedID: task.ID,
				Orders:  orders,
			}, now)
			if err != nil {
				FatalErrorRespectJSON("assigning order: %v", err)
			}

			if err := buf.Stage(ordering.Patch{TaskID: task.ID, Order: order, SetOrder: true, UpdatedAt: now}); err != nil {
				FatalErrorRespectJSON("staging reorder: %v", err)
			}
		}

		if bucketName != "" {
			target := types.Bucket(strings.ToLower(bucketName))
			if !types.ValidBucket(target) {
				FatalErrorRespectJSON("unknown bucket %q (overdue, today, next7days, later, nodate)", bucketName)
			}

			due, changed := ordering.Reclassify(task.DueDate, target, time.Now())
			if changed {
				patch := ordering.Patch{
					TaskID:    task.ID,
					DueDate:   due,
					SetDue:    true,
					Bucket:    types.BucketForDueDate(due, time.Now()),
					SetBucket: true,
					UpdatedAt: now,
				}
				if err := buf.Stage(patch); err != nil {
					FatalErrorRespectJSON("staging bucket move: %v", err)
				}
			}
		}

		if err := buf.Flush(ctx, storage.ReorderCommitter{Store: store}); err != nil {
			FatalErrorRespectJSON("committing move: %v", err)
		}

		moved := buf.Task(task.ID)
		if jsonOutput {
			outputJSON(moved)
			return
		}
		fmt.Printf("Moved %s: %s\n", moved.ID[:8], moved.Title)
	},
}

// moveWithinView returns the view's id slice with movedID repositioned, or
// nil when a reference id is missing.
func moveWithinView(view []*types.Task, movedID, afterID, beforeID string, top, bottom bool) []string {
	ids := make([]string, 0, len(view))
	for _, t := range view {
		if t.ID != movedID {
			ids = append(ids, t.ID)
		}
	}

	insertAt := -1
	switch {
	case top:
		insertAt = 0
	case bottom:
		insertAt = len(ids)
	case afterID != "":
		for i, id := range ids {
			if strings.HasPrefix(id, afterID) {
				insertAt = i + 1
				break
			}
		}
	case beforeID != "":
		for i, id := range ids {
			if strings.HasPrefix(id, beforeID) {
				insertAt = i
				break
			}
		}
	}
	if insertAt < 0 {
		return nil
	}

	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:insertAt]...)
	out = append(out, movedID)
	out = append(out, ids[insertAt:]...)
	return out
}

func moveToList(ctx context.Context, task *types.Task, listName string, now types.Millis) {
	var listID, resolvedName string
	if strings.EqualFold(listName, types.DefaultListName) {
		resolvedName = types.DefaultListName
	} else {
		list, err := store.GetListByName(ctx, listName)
		if err != nil {
			FatalErrorRespectJSON("no list named %q", listName)
		}
		listID = list.ID
		resolvedName = list.Name
	}

	order := ordering.AppendOrder(now)
	patch := storage.TaskPatch{
		ListID:    &listID,
		ListName:  &resolvedName,
		Order:     &order,
		UpdatedAt: &now,
	}
	if err := store.UpdateTask(ctx, task.ID, patch); err != nil {
		FatalErrorRespectJSON("moving to list %q: %v", listName, err)
	}
}

func init() {
	moveCmd.Flags().String("after", "", "Place the task after this id")
	moveCmd.Flags().String("before", "", "Place the task before this id")
	moveCmd.Flags().Bool("top", false, "Place the task first in its view")
	moveCmd.Flags().Bool("bottom", false, "Place the task last in its view")
	moveCmd.Flags().StringP("bucket", "b", "", "Move into a due-date bucket (today, next7days, later, nodate, overdue)")
	moveCmd.Flags().StringP("list", "l", "", "Move into another list")
	rootCmd.AddCommand(moveCmd)
}
