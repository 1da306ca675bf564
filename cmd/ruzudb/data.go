package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cuemby/ruzudb/pkg/types"
)

var insertNodeCmd = &cobra.Command{
	Use:   "insert-node <table>",
	Short: "Insert one row into a node table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table := args[0]
		valuesFlag, _ := cmd.Flags().GetStringSlice("value")

		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		schema, ok := db.NodeSchema(table)
		if !ok {
			return fmt.Errorf("node table %q does not exist", table)
		}
		row, err := parseRowValues(valuesFlag, schema.Columns)
		if err != nil {
			return err
		}

		offset, err := db.InsertNode(table, row)
		if err != nil {
			return err
		}
		fmt.Printf("inserted row at offset %d\n", offset)
		return nil
	},
}

func init() {
	insertNodeCmd.Flags().StringSlice("value", nil, "Repeatable name=value column assignment")
}

var insertRelCmd = &cobra.Command{
	Use:   "insert-rel <table>",
	Short: "Insert one edge into a relationship table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table := args[0]
		src, _ := cmd.Flags().GetInt("src")
		dst, _ := cmd.Flags().GetInt("dst")
		valuesFlag, _ := cmd.Flags().GetStringSlice("value")

		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		schema, ok := db.RelSchema(table)
		if !ok {
			return fmt.Errorf("relationship table %q does not exist", table)
		}
		row, err := parseRowValues(valuesFlag, schema.Properties)
		if err != nil {
			return err
		}
		props := make([]types.Value, len(schema.Properties))
		for i, c := range schema.Properties {
			if v, ok := row[c.Name]; ok {
				props[i] = v
			}
		}

		relID, err := db.InsertRel(table, src, dst, props)
		if err != nil {
			return err
		}
		fmt.Printf("inserted relationship id %d\n", relID)
		return nil
	},
}

func init() {
	insertRelCmd.Flags().Int("src", -1, "Source row offset (required)")
	insertRelCmd.Flags().Int("dst", -1, "Destination row offset (required)")
	insertRelCmd.Flags().StringSlice("value", nil, "Repeatable name=value property assignment")
}

// parseRowValues parses a set of "name=value" flags against the column
// definitions of the table being written to.
func parseRowValues(values []string, cols []types.Column) (map[string]types.Value, error) {
	byName := make(map[string]types.Kind, len(cols))
	for _, c := range cols {
		byName[c.Name] = c.Type
	}
	row := make(map[string]types.Value, len(values))
	for _, kv := range values {
		nameValue := strings.SplitN(kv, "=", 2)
		if len(nameValue) != 2 {
			return nil, fmt.Errorf("invalid --value %q, expected name=value", kv)
		}
		kind, ok := byName[nameValue[0]]
		if !ok {
			return nil, fmt.Errorf("unknown column %q", nameValue[0])
		}
		v, err := parseFieldValue(nameValue[1], kind)
		if err != nil {
			return nil, err
		}
		row[nameValue[0]] = v
	}
	return row, nil
}

var scanCmd = &cobra.Command{
	Use:   "scan <table>",
	Short: "Dump every row of a node table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table := args[0]

		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		schema, ok := db.NodeSchema(table)
		if !ok {
			return fmt.Errorf("node table %q does not exist", table)
		}
		rows, err := db.ScanNodes(table)
		if err != nil {
			return err
		}
		for i, row := range rows {
			fields := make([]string, 0, len(schema.Columns))
			for _, c := range schema.Columns {
				fields = append(fields, fmt.Sprintf("%s=%v", c.Name, row[c.Name]))
			}
			fmt.Printf("%d: %s\n", i, strings.Join(fields, " "))
		}
		return nil
	},
}
