package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/ruzudb/pkg/types"
)

var createNodeTableCmd = &cobra.Command{
	Use:   "create-node-table <name>",
	Short: "Register a new node table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		columnsFlag, _ := cmd.Flags().GetString("columns")
		pkFlag, _ := cmd.Flags().GetString("primary-key")

		cols, err := parseColumnSpecs(columnsFlag)
		if err != nil {
			return err
		}
		pk := splitCSVList(pkFlag)
		if len(pk) == 0 {
			return fmt.Errorf("--primary-key is required")
		}

		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		schema := &types.NodeSchema{Name: args[0], Columns: cols, PrimaryKey: pk}
		if err := db.CreateNodeTable(schema); err != nil {
			return err
		}
		fmt.Printf("created node table %q\n", args[0])
		return nil
	},
}

func init() {
	createNodeTableCmd.Flags().String("columns", "", "Comma-separated name:TYPE column list (required)")
	createNodeTableCmd.Flags().String("primary-key", "", "Comma-separated primary key column names (required)")
}

var createRelTableCmd = &cobra.Command{
	Use:   "create-rel-table <name>",
	Short: "Register a new relationship table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		directionFlag, _ := cmd.Flags().GetString("direction")
		propsFlag, _ := cmd.Flags().GetString("properties")

		if from == "" || to == "" {
			return fmt.Errorf("--from and --to are required")
		}
		direction, err := parseDirection(directionFlag)
		if err != nil {
			return err
		}
		var props []types.Column
		if propsFlag != "" {
			props, err = parseColumnSpecs(propsFlag)
			if err != nil {
				return err
			}
		}

		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		schema := &types.RelSchema{
			Name:       args[0],
			FromTable:  from,
			ToTable:    to,
			Properties: props,
			Direction:  direction,
		}
		if err := db.CreateRelTable(schema); err != nil {
			return err
		}
		fmt.Printf("created relationship table %q (%s -> %s, %s)\n", args[0], from, to, direction)
		return nil
	},
}

func init() {
	createRelTableCmd.Flags().String("from", "", "Source node table (required)")
	createRelTableCmd.Flags().String("to", "", "Destination node table (required)")
	createRelTableCmd.Flags().String("direction", "both", "Adjacency direction: forward, backward, or both")
	createRelTableCmd.Flags().String("properties", "", "Comma-separated name:TYPE property list")
}
