package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tada-app/tada/internal/importer"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the full dataset to a backup file",
	Long: `Export every task, list, summary, and setting into a versioned JSON
envelope. Exporting never mutates the database.`,
	Run: func(cmd *cobra.Command, args []string) {
		outPath, _ := cmd.Flags().GetString("output")
		if outPath == "" {
			outPath = cfg.ExportPath(dataDir)
		}

		coord := importer.New(store)
		envelope, err := coord.Export(rootCtx)
		if err != nil {
			FatalErrorRespectJSON("exporting: %v", err)
		}

		data, err := json.MarshalIndent(envelope, "", "  ")
		if err != nil {
			FatalErrorRespectJSON("encoding backup: %v", err)
		}

		if outPath == "-" {
			fmt.Println(string(data))
			return
		}

		if err := os.WriteFile(outPath, data, 0o600); err != nil {
			FatalErrorRespectJSON("writing %s: %v", outPath, err)
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{
				"path":      outPath,
				"tasks":     len(envelope.Data.Tasks),
				"lists":     len(envelope.Data.Lists),
				"summaries": len(envelope.Data.Summaries),
				"settings":  len(envelope.Data.Settings),
			})
			return
		}
		fmt.Printf("Exported %d tasks, %d lists, %d summaries to %s\n",
			len(envelope.Data.Tasks), len(envelope.Data.Lists), len(envelope.Data.Summaries), outPath)
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "Output file (default: the configured export path, '-' for stdout)")
	rootCmd.AddCommand(exportCmd)
}
