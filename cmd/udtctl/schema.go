package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"udtkit/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print or apply the DDL of the mapped tables",
}

var schemaPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print CREATE TABLE statements for the configured dialect",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, stmt := range statements() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s;\n\n", stmt)
		}
		return nil
	},
}

var schemaApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Create the mapped tables and the sequence table if missing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stmts := statements()
		if err := schema.Apply(cmd.Context(), env.db, stmts, env.logger); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "applied %d statements (%s)\n", len(stmts), strings.ToLower(string(env.store.Dialect().Name())))
		return nil
	},
}

func init() {
	schemaCmd.AddCommand(schemaPrintCmd)
	schemaCmd.AddCommand(schemaApplyCmd)
}

func statements() []string {
	return schema.Generate(env.store.Dialect(), env.registry.Schemas()...)
}
