package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tada-app/tada/internal/ordering"
	"github.com/tada-app/tada/internal/storage"
	"github.com/tada-app/tada/internal/types"
)

var listsCmd = &cobra.Command{
	Use:   "lists",
	Short: "Show and manage task lists",
	Run: func(cmd *cobra.Command, args []string) {
		lists, err := store.ListLists(rootCtx)
		if err != nil {
			FatalErrorRespectJSON("listing lists: %v", err)
		}
		types.SortLists(lists)

		if jsonOutput {
			outputJSON(lists)
			return
		}
		fmt.Printf("%s (built-in)\n", types.DefaultListName)
		for _, l := range lists {
			if l.ID == "inbox-default" {
				continue
			}
			fmt.Println(l.Name)
		}
	},
}

var listsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a list",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := args[0]
		icon, _ := cmd.Flags().GetString("icon")
		color, _ := cmd.Flags().GetString("color")

		now := types.NowMillis()
		list := &types.TaskList{
			ID:        types.NewID(),
			Name:      name,
			Icon:      icon,
			Color:     color,
			Order:     ordering.AppendOrder(now),
			CreatedAt: now,
			UpdatedAt: now,
		}

		err := store.CreateList(rootCtx, list)
		switch {
		case errors.Is(err, storage.ErrReservedName):
			FatalErrorRespectJSON("%q is a reserved name", name)
		case errors.Is(err, storage.ErrDuplicateName):
			FatalErrorRespectJSON("a list named %q already exists", name)
		case err != nil:
			FatalErrorRespectJSON("creating list: %v", err)
		}

		if jsonOutput {
			outputJSON(list)
			return
		}
		fmt.Printf("Created list %s\n", list.Name)
	},
}

var listsRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Delete a list (its tasks fall back to the Inbox)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := args[0]

		list, err := store.GetListByName(rootCtx, name)
		if errors.Is(err, storage.ErrNotFound) {
			FatalErrorRespectJSON("no list named %q", name)
		} else if err != nil {
			FatalErrorRespectJSON("looking up list: %v", err)
		}

		if err := store.DeleteList(rootCtx, list.ID); err != nil {
			FatalErrorRespectJSON("deleting list: %v", err)
		}

		if !jsonOutput {
			fmt.Printf("Deleted list %s (tasks moved to %s)\n", list.Name, types.DefaultListName)
		}
	},
}

func init() {
	listsAddCmd.Flags().String("icon", "", "List icon")
	listsAddCmd.Flags().String("color", "", "List color")
	listsCmd.AddCommand(listsAddCmd)
	listsCmd.AddCommand(listsRmCmd)
	rootCmd.AddCommand(listsCmd)
}
