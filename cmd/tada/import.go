package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tada-app/tada/internal/importer"
	"github.com/tada-app/tada/internal/types"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a backup file",
	Long: `Import a backup envelope produced by 'tada export'.

New entities are inserted. Entities that exist locally with different
content become conflicts, settled per --strategy (keep-newer by default:
the side with the later updatedAt wins, local wins ties). Individual
conflicts can be pinned with --resolve id=strategy.

Reads from stdin by default, or use -i for file input.`,
	Run: func(cmd *cobra.Command, args []string) {
		input, _ := cmd.Flags().GetString("input")
		replace, _ := cmd.Flags().GetBool("replace")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		strategy, _ := cmd.Flags().GetString("strategy")
		resolveFlags, _ := cmd.Flags().GetStringArray("resolve")
		noTasks, _ := cmd.Flags().GetBool("no-tasks")
		noLists, _ := cmd.Flags().GetBool("no-lists")
		noSummaries, _ := cmd.Flags().GetBool("no-summaries")
		noSettings, _ := cmd.Flags().GetBool("no-settings")

		if len(args) > 0 {
			FatalErrorWithHint(
				fmt.Sprintf("unexpected argument %q", args[0]),
				fmt.Sprintf("Use the -i flag: tada import -i %s", args[0]))
		}

		opts := types.DefaultImportOptions()
		opts.IncludeTasks = !noTasks
		opts.IncludeLists = !noLists
		opts.IncludeSummaries = !noSummaries
		opts.IncludeSettings = !noSettings
		opts.ReplaceAllData = replace
		if strategy != "" {
			r := types.ConflictResolution(strategy)
			if !types.ValidResolution(r) {
				FatalErrorRespectJSON("unknown strategy %q (keep-local, keep-imported, keep-newer, skip)", strategy)
			}
			opts.ConflictResolution = r
		}

		resolutions, err := parseResolveFlags(resolveFlags)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}

		raw, err := readImportInput(input)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}

		ctx := rootCtx
		coord := importer.New(store)

		if dryRun {
			runImportDryRun(coord, raw, opts)
			return
		}

		outcome, err := coord.Start(ctx, raw, opts)
		if errors.Is(err, importer.ErrInvalidFormat) {
			FatalErrorRespectJSON("invalid backup: %v", err)
		} else if err != nil {
			FatalErrorRespectJSON("importing: %v", err)
		}

		if outcome.Result != nil {
			printImportResult(outcome.Result)
			return
		}

		// Conflicts: settle them with the per-id pins plus the default
		// strategy. Without --resolve flags every conflict uses the default.
		if !jsonOutput {
			printConflicts(outcome.Conflicts)
		}

		result, err := coord.Resolve(ctx, resolutions)
		if err != nil {
			FatalErrorRespectJSON("resolving conflicts: %v", err)
		}
		printImportResult(result)
	},
}

func readImportInput(input string) ([]byte, error) {
	if input == "" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", input, err)
	}
	return raw, nil
}

func parseResolveFlags(flags []string) (map[string]types.ConflictResolution, error) {
	resolutions := make(map[string]types.ConflictResolution, len(flags))
	for _, f := range flags {
		id, strategy, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("bad --resolve %q: want id=strategy", f)
		}
		r := types.ConflictResolution(strategy)
		if !types.ValidResolution(r) {
			return nil, fmt.Errorf("bad --resolve %q: unknown strategy %q", f, strategy)
		}
		resolutions[id] = r
	}
	return resolutions, nil
}

// runImportDryRun analyzes without committing and reports what would happen.
func runImportDryRun(coord *importer.Coordinator, raw []byte, opts types.ImportOptions) {
	if opts.ReplaceAllData {
		FatalErrorRespectJSON("--dry-run cannot be combined with --replace")
	}

	payload, err := importer.Parse(raw)
	if err != nil {
		FatalErrorRespectJSON("invalid backup: %v", err)
	}

	analysis, err := coord.Analyze(rootCtx, payload, opts)
	if err != nil {
		FatalErrorRespectJSON("analyzing: %v", err)
	}

	if jsonOutput {
		outputJSON(map[string]interface{}{
			"insert_tasks":     len(analysis.Insertions.Tasks),
			"insert_lists":     len(analysis.Insertions.Lists),
			"insert_summaries": len(analysis.Insertions.Summaries),
			"settings":         len(analysis.Insertions.Settings),
			"conflicts":        analysis.Conflicts,
		})
		return
	}

	fmt.Printf("Would insert %d tasks, %d lists, %d summaries, %d settings\n",
		len(analysis.Insertions.Tasks), len(analysis.Insertions.Lists),
		len(analysis.Insertions.Summaries), len(analysis.Insertions.Settings))
	if len(analysis.Conflicts) == 0 {
		fmt.Println("No conflicts.")
		return
	}
	printConflicts(analysis.Conflicts)
}

func printConflicts(conflicts []types.DataConflict) {
	fmt.Printf("%d conflict(s):\n", len(conflicts))
	for _, c := range conflicts {
		fmt.Printf("  %s %s  local updated %d, imported updated %d\n",
			c.Kind, c.ID, c.Local.UpdatedAt(), c.Imported.UpdatedAt())
	}
}

func printImportResult(result *importer.Result) {
	if jsonOutput {
		outputJSON(result)
		return
	}
	fmt.Printf("Tasks: %d inserted, %d updated, %d skipped\n",
		result.Tasks.Inserted, result.Tasks.Updated, result.Tasks.Skipped)
	fmt.Printf("Lists: %d inserted, %d updated, %d skipped\n",
		result.Lists.Inserted, result.Lists.Updated, result.Lists.Skipped)
	fmt.Printf("Summaries: %d inserted, %d updated, %d skipped\n",
		result.Summaries.Inserted, result.Summaries.Updated, result.Summaries.Skipped)
	fmt.Printf("Settings: %d written\n", result.Settings)
}

func init() {
	importCmd.Flags().StringP("input", "i", "", "Input file (default: stdin)")
	importCmd.Flags().Bool("replace", false, "Replace all data instead of merging")
	importCmd.Flags().Bool("dry-run", false, "Analyze and report without writing")
	importCmd.Flags().StringP("strategy", "s", "", "Default conflict strategy (keep-local, keep-imported, keep-newer, skip)")
	importCmd.Flags().StringArray("resolve", nil, "Pin one conflict: id=strategy (repeatable)")
	importCmd.Flags().Bool("no-tasks", false, "Exclude tasks")
	importCmd.Flags().Bool("no-lists", false, "Exclude lists")
	importCmd.Flags().Bool("no-summaries", false, "Exclude summaries")
	importCmd.Flags().Bool("no-settings", false, "Exclude settings")
	rootCmd.AddCommand(importCmd)
}
