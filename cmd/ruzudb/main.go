package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/ruzudb/pkg/config"
	"github.com/cuemby/ruzudb/pkg/database"
	"github.com/cuemby/ruzudb/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ruzudb",
	Short: "ruzudb - embeddable graph database storage core",
	Long: `ruzudb is the storage and transactional core of an embeddable graph
database: a page-based durable store, a write-ahead log with crash
recovery, a persistent catalog, and a CSR relationship store, driven
from a single command-line tool.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"ruzudb version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("data-dir", "./ruzudb-data", "Database directory")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(createNodeTableCmd)
	rootCmd.AddCommand(createRelTableCmd)
	rootCmd.AddCommand(insertNodeCmd)
	rootCmd.AddCommand(insertRelCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(importNodesCmd)
	rootCmd.AddCommand(importRelsCmd)
	rootCmd.AddCommand(checkpointCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(serveMetricsCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

// loadConfig resolves the effective configuration for a command invocation:
// the --config file if given, else config.Default. No other flag is
// overlaid onto the result.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// openDatabase opens the database at --data-dir under the effective config.
func openDatabase(cmd *cobra.Command) (*database.Database, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	dir, _ := cmd.Flags().GetString("data-dir")
	return database.Open(dir, cfg)
}
