package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id...>",
	Short: "Delete one or more tasks",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := rootCtx

		deleted := []string{}
		for _, id := range args {
			task, err := resolveTask(ctx, id)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			if err := store.DeleteTask(ctx, task.ID); err != nil {
				fmt.Fprintf(os.Stderr, "Error deleting %s: %v\n", task.ID[:8], err)
				continue
			}
			deleted = append(deleted, task.ID)
			if !jsonOutput {
				fmt.Printf("Deleted %s: %s\n", task.ID[:8], task.Title)
			}
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{"deleted": deleted})
		}
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
