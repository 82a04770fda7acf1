package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tada-app/tada/internal/configfile"
	"github.com/tada-app/tada/internal/storage/sqlite"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the data directory and task database",
	Long: `Create the data directory, a default config file, and an empty task
database seeded with the Inbox list.`,
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")

		existing, err := configfile.Load(dataDir)
		if err != nil {
			FatalError("reading config: %v", err)
		}
		if existing != nil && !force {
			dbPath := existing.DatabasePath(dataDir)
			if _, err := os.Stat(dbPath); err == nil {
				FatalErrorWithHint(
					fmt.Sprintf("already initialized at %s", dataDir),
					"Use --force to reinitialize the config (the database is kept)")
			}
		}

		initCfg := existing
		if initCfg == nil {
			initCfg = configfile.DefaultConfig()
		}
		if err := initCfg.Save(dataDir); err != nil {
			FatalError("writing config: %v", err)
		}

		dbPath := initCfg.DatabasePath(dataDir)
		s, err := sqlite.New(dbPath)
		if err != nil {
			FatalError("creating database: %v", err)
		}
		defer s.Close()

		if jsonOutput {
			outputJSON(map[string]string{
				"data_dir": dataDir,
				"database": dbPath,
			})
			return
		}
		fmt.Printf("Initialized tada in %s\n", dataDir)
		fmt.Printf("Database: %s\n", dbPath)
	},
}

func init() {
	initCmd.Flags().BoolP("force", "f", false, "Rewrite the config file even if already initialized")
	rootCmd.AddCommand(initCmd)
}
