package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tada-app/tada/internal/storage"
	"github.com/tada-app/tada/internal/types"
)

var doneCmd = &cobra.Command{
	Use:   "done <id...>",
	Short: "Complete one or more tasks",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		undo, _ := cmd.Flags().GetBool("undo")

		ctx := rootCtx
		now := types.NowMillis()

		var finished []*types.Task
		for _, id := range args {
			task, err := resolveTask(ctx, id)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}

			completed := !undo
			patch := storage.TaskPatch{
				Completed: &completed,
				UpdatedAt: &now,
			}
			if completed {
				v := now
				patch.CompletedAt = storage.OptionalMillis{Set: true, Value: &v}
			} else {
				patch.CompletedAt = storage.OptionalMillis{Set: true, Value: nil}
			}

			if err := store.UpdateTask(ctx, task.ID, patch); err != nil {
				fmt.Fprintf(os.Stderr, "Error completing %s: %v\n", task.ID[:8], err)
				continue
			}

			updated, _ := store.GetTask(ctx, task.ID)
			if updated != nil {
				finished = append(finished, updated)
			}
			if !jsonOutput {
				if undo {
					fmt.Printf("Reopened %s: %s\n", task.ID[:8], task.Title)
				} else {
					fmt.Printf("✓ Done %s: %s\n", task.ID[:8], task.Title)
				}
			}
		}

		if jsonOutput {
			outputJSON(finished)
		}
	},
}

func init() {
	doneCmd.Flags().Bool("undo", false, "Reopen instead of completing")
	rootCmd.AddCommand(doneCmd)
}
