package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/ruzudb/pkg/csvload"
)

func csvOptionsFromFlags(cmd *cobra.Command) (csvload.Options, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return csvload.Options{}, err
	}
	opts := csvload.FromConfig(cfg.CSV)

	if v, _ := cmd.Flags().GetBool("has-header"); cmd.Flags().Changed("has-header") {
		opts.HasHeader = v
	}
	if v, _ := cmd.Flags().GetInt("skip-rows"); cmd.Flags().Changed("skip-rows") {
		opts.SkipRows = v
	}
	if v, _ := cmd.Flags().GetBool("ignore-errors"); cmd.Flags().Changed("ignore-errors") {
		opts.IgnoreErrors = v
	}
	if v, _ := cmd.Flags().GetBool("parallel"); cmd.Flags().Changed("parallel") {
		opts.Parallel = v
	}
	if v, _ := cmd.Flags().GetInt("batch-size"); cmd.Flags().Changed("batch-size") && v > 0 {
		opts.BatchSize = v
	}
	return opts, nil
}

func reportImportResult(result csvload.ImportResult) {
	fmt.Printf("imported %d rows, skipped %d, read %d bytes\n", result.RowsImported, result.RowsSkipped, result.BytesRead)
	for _, e := range result.Errors {
		fmt.Printf("  row %d column %s: %s\n", e.Row, e.Column, e.Message)
	}
}

func importProgress() csvload.ProgressFunc {
	return func(p csvload.Progress) {
		fmt.Printf("\r%d rows (%.0f rows/s, eta %.0fs)", p.RowsProcessed, p.RowsPerSecond, p.ETASeconds)
	}
}

var importNodesCmd = &cobra.Command{
	Use:   "import-nodes <table> <csv-file>",
	Short: "Bulk load a node table from a CSV file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, path := args[0], args[1]

		opts, err := csvOptionsFromFlags(cmd)
		if err != nil {
			return err
		}

		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := csvload.ImportNodes(db, table, path, opts, importProgress())
		fmt.Println()
		if err != nil {
			return err
		}
		reportImportResult(result)
		return nil
	},
}

var importRelsCmd = &cobra.Command{
	Use:   "import-rels <table> <csv-file>",
	Short: "Bulk load a relationship table from a CSV file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, path := args[0], args[1]
		srcKeys, _ := cmd.Flags().GetString("src-keys")
		dstKeys, _ := cmd.Flags().GetString("dst-keys")
		if srcKeys == "" || dstKeys == "" {
			return fmt.Errorf("--src-keys and --dst-keys are required")
		}

		opts, err := csvOptionsFromFlags(cmd)
		if err != nil {
			return err
		}

		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		spec := csvload.RelImportSpec{
			SrcKeyColumns: splitCSVList(srcKeys),
			DstKeyColumns: splitCSVList(dstKeys),
		}
		result, err := csvload.ImportRels(db, table, path, spec, opts, importProgress())
		fmt.Println()
		if err != nil {
			return err
		}
		reportImportResult(result)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{importNodesCmd, importRelsCmd} {
		c.Flags().Bool("has-header", true, "First row is a header")
		c.Flags().Int("skip-rows", 0, "Rows to skip before the header")
		c.Flags().Bool("ignore-errors", false, "Collect row errors instead of aborting")
		c.Flags().Bool("parallel", false, "Use the block-parallel import pipeline")
		c.Flags().Int("batch-size", 0, "Override the configured batch size")
	}
	importRelsCmd.Flags().String("src-keys", "", "Comma-separated CSV header names for the source endpoint's primary key (required)")
	importRelsCmd.Flags().String("dst-keys", "", "Comma-separated CSV header names for the destination endpoint's primary key (required)")
}
