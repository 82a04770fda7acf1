package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tada-app/tada/internal/configfile"
	"github.com/tada-app/tada/internal/debug"
	"github.com/tada-app/tada/internal/storage"
	"github.com/tada-app/tada/internal/storage/sqlite"
)

var (
	dataDirFlag string
	dbPathFlag  string
	jsonOutput  bool
	verboseFlag bool
	quietFlag   bool

	dataDir string
	cfg     *configfile.Config
	store   storage.Storage

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

// noDbCommands run without opening the database.
var noDbCommands = map[string]bool{
	"init":       true,
	"version":    true,
	"help":       true,
	"completion": true,
	"config":     true,
}

func isNoDbCommand(cmd *cobra.Command) bool {
	if noDbCommands[cmd.Name()] {
		return true
	}
	for c := cmd; c != nil; c = c.Parent() {
		if noDbCommands[c.Name()] {
			return true
		}
	}
	return false
}

var rootCmd = &cobra.Command{
	Use:   "tada",
	Short: "tada - Personal task manager",
	Long:  `A personal task manager with ordered lists, due-date buckets, and conflict-aware backup import.`,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("tada version %s (%s)\n", Version, Build)
			return
		}
		_ = cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

		debug.SetVerbose(verboseFlag)
		debug.SetQuiet(quietFlag)

		var err error
		dataDir, cfg, err = resolveConfig()
		if err != nil {
			FatalError("resolving config: %v", err)
		}

		if isNoDbCommand(cmd) {
			return
		}

		dbPath := cfg.DatabasePath(dataDir)
		if dbPathFlag != "" {
			dbPath = dbPathFlag
		}
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			FatalErrorWithHint(fmt.Sprintf("no database at %s", dbPath), "Run 'tada init' to create one")
		}

		store, err = sqlite.New(dbPath)
		if err != nil {
			FatalError("opening database: %v", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			_ = store.Close()
			store = nil
		}
		if rootCancel != nil {
			rootCancel()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Data directory (default: $TADA_HOME or the platform config dir)")
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "Database path (default: <data-dir>/tada.db)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")

	rootCmd.Flags().BoolP("version", "V", false, "Print version information")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
