package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tada-app/tada/internal/configfile"
)

// configKeys are the keys 'tada config' accepts.
var configKeys = map[string]bool{
	"database":     true,
	"export_file":  true,
	"default_list": true,
}

// resolveConfig loads config.json layered under TADA_* env overrides.
// A missing file yields the defaults.
func resolveConfig() (string, *configfile.Config, error) {
	dir := dataDirFlag
	if dir == "" {
		var err error
		dir, err = configfile.DataDir()
		if err != nil {
			return "", nil, err
		}
	}

	defaults := configfile.DefaultConfig()

	v := viper.New()
	v.SetConfigFile(configfile.ConfigPath(dir))
	v.SetConfigType("json")
	v.SetEnvPrefix("TADA")
	v.AutomaticEnv()
	v.SetDefault("database", defaults.Database)
	v.SetDefault("export_file", defaults.ExportFile)
	v.SetDefault("default_list", "")

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return "", nil, fmt.Errorf("reading %s: %w", configfile.ConfigPath(dir), err)
			}
		}
	}

	return dir, &configfile.Config{
		Database:    v.GetString("database"),
		ExportFile:  v.GetString("export_file"),
		DefaultList: v.GetString("default_list"),
	}, nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Get and set configuration values",
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a configuration value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]
		if !configKeys[key] {
			FatalError("unknown config key %q (valid: database, export_file, default_list)", key)
		}

		var value string
		switch key {
		case "database":
			value = cfg.Database
		case "export_file":
			value = cfg.ExportFile
		case "default_list":
			value = cfg.DefaultList
		}

		if jsonOutput {
			outputJSON(map[string]string{key: value})
			return
		}
		fmt.Println(value)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		key, value := args[0], args[1]
		if !configKeys[key] {
			FatalError("unknown config key %q (valid: database, export_file, default_list)", key)
		}

		updated, err := configfile.Load(dataDir)
		if err != nil {
			FatalError("loading config: %v", err)
		}
		if updated == nil {
			updated = configfile.DefaultConfig()
		}

		switch key {
		case "database":
			updated.Database = value
		case "export_file":
			updated.ExportFile = value
		case "default_list":
			updated.DefaultList = value
		}

		if err := updated.Save(dataDir); err != nil {
			FatalError("saving config: %v", err)
		}

		if !jsonOutput {
			fmt.Printf("Set %s = %s\n", key, value)
		}
	},
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
