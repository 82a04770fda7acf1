package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tada-app/tada/internal/ordering"
	"github.com/tada-app/tada/internal/storage"
	"github.com/tada-app/tada/internal/timeparsing"
	"github.com/tada-app/tada/internal/types"
)

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task",
	Long: `Add a task to a list (the Inbox by default).

Due dates accept compact durations (+1d, +2w), fixed dates (2026-09-01),
and natural language ("tomorrow at 9am", "next friday").`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		title := strings.TrimSpace(strings.Join(args, " "))
		if title == "" {
			FatalErrorRespectJSON("task title is empty")
		}

		listName, _ := cmd.Flags().GetString("list")
		dueExpr, _ := cmd.Flags().GetString("due")
		content, _ := cmd.Flags().GetString("content")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		priority, _ := cmd.Flags().GetInt("priority")

		if listName == "" {
			listName = cfg.DefaultList
		}
		if listName == "" {
			listName = types.DefaultListName
		}

		ctx := rootCtx
		now := types.NowMillis()

		task := &types.Task{
			ID:        types.NewID(),
			Title:     title,
			Content:   content,
			Tags:      tags,
			ListName:  listName,
			Order:     ordering.AppendOrder(now),
			CreatedAt: now,
			UpdatedAt: now,
		}

		if !strings.EqualFold(listName, types.DefaultListName) {
			list, err := store.GetListByName(ctx, listName)
			if errors.Is(err, storage.ErrNotFound) {
				FatalErrorRespectJSON("no list named %q (see 'tada lists')", listName)
			} else if err != nil {
				FatalErrorRespectJSON("looking up list %q: %v", listName, err)
			}
			task.ListID = list.ID
			task.ListName = list.Name
		}

		if cmd.Flags().Changed("priority") {
			task.Priority = &priority
		}

		if dueExpr != "" {
			due, err := timeparsing.ParseRelativeTime(dueExpr, time.Now())
			if err != nil {
				FatalErrorRespectJSON("parsing due date: %v", err)
			}
			m := due.UnixMilli()
			task.DueDate = &m
		}
		task.GroupCategory = types.BucketForDueDate(task.DueDate, time.Now())

		if err := store.CreateTask(ctx, task); err != nil {
			FatalErrorRespectJSON("creating task: %v", err)
		}

		if jsonOutput {
			outputJSON(task)
			return
		}
		fmt.Printf("Added %s: %s", task.ID[:8], task.Title)
		if task.DueDate != nil {
			fmt.Printf(" (due %s)", formatDue(*task.DueDate))
		}
		fmt.Println()
	},
}

func formatDue(m types.Millis) string {
	t := time.UnixMilli(m).Local()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04")
}

func init() {
	addCmd.Flags().StringP("list", "l", "", "List to add the task to (default: Inbox)")
	addCmd.Flags().StringP("due", "d", "", "Due date expression (+1d, 2026-09-01, \"tomorrow at 9am\")")
	addCmd.Flags().StringP("content", "c", "", "Task notes")
	addCmd.Flags().StringSliceP("tag", "t", nil, "Tag (repeatable)")
	addCmd.Flags().IntP("priority", "p", 0, "Priority (lower is more urgent)")
	rootCmd.AddCommand(addCmd)
}
