package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tada-app/tada/internal/storage"
	"github.com/tada-app/tada/internal/types"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Long: `List open tasks in view order (fractional key, then id).

With --grouped, tasks are bucketed by due date: overdue, today, next 7
days, later, and no date.`,
	Run: func(cmd *cobra.Command, args []string) {
		listName, _ := cmd.Flags().GetString("list")
		all, _ := cmd.Flags().GetBool("all")
		grouped, _ := cmd.Flags().GetBool("grouped")

		filter := storage.TaskFilter{ListName: listName}
		if !all {
			completed := false
			filter.Completed = &completed
		}

		tasks, err := store.ListTasks(rootCtx, filter)
		if err != nil {
			FatalErrorRespectJSON("listing tasks: %v", err)
		}
		types.SortTasksForView(tasks)

		if grouped {
			printGrouped(tasks)
			return
		}

		if jsonOutput {
			outputJSON(tasks)
			return
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks.")
			return
		}
		for _, t := range tasks {
			printTaskLine(t)
		}
	},
}

// bucketOrder fixes the display order of due-date groups.
var bucketOrder = []types.Bucket{
	types.BucketOverdue,
	types.BucketToday,
	types.BucketNext7Days,
	types.BucketLater,
	types.BucketNoDate,
}

var bucketLabels = map[types.Bucket]string{
	types.BucketOverdue:   "Overdue",
	types.BucketToday:     "Today",
	types.BucketNext7Days: "Next 7 days",
	types.BucketLater:     "Later",
	types.BucketNoDate:    "No date",
}

func printGrouped(tasks []*types.Task) {
	groups := types.GroupTasksByBucket(tasks, types.NowMillis())

	if jsonOutput {
		out := make(map[string][]*types.Task, len(groups))
		for b, ts := range groups {
			out[string(b)] = ts
		}
		outputJSON(out)
		return
	}

	empty := true
	for _, b := range bucketOrder {
		ts := groups[b]
		if len(ts) == 0 {
			continue
		}
		empty = false
		fmt.Printf("%s:\n", bucketLabels[b])
		for _, t := range ts {
			fmt.Print("  ")
			printTaskLine(t)
		}
	}
	if empty {
		fmt.Println("No tasks.")
	}
}

func printTaskLine(t *types.Task) {
	mark := "☐"
	if t.Completed {
		mark = "✓"
	}
	fmt.Printf("%s %s  %s", mark, t.ID[:8], t.Title)
	if t.ListName != "" && t.ListName != types.DefaultListName {
		fmt.Printf("  [%s]", t.ListName)
	}
	if t.DueDate != nil {
		fmt.Printf("  (due %s)", formatDue(*t.DueDate))
	}
	if t.Priority != nil {
		fmt.Printf("  P%d", *t.Priority)
	}
	fmt.Println()
}

func init() {
	listCmd.Flags().StringP("list", "l", "", "Only tasks in this list")
	listCmd.Flags().BoolP("all", "a", false, "Include completed tasks")
	listCmd.Flags().BoolP("grouped", "g", false, "Group by due-date bucket")
	rootCmd.AddCommand(listCmd)
}
