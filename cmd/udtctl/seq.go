package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var seqCmd = &cobra.Command{
	Use:   "seq",
	Short: "Serial code sequences",
}

var seqNextCmd = &cobra.Command{
	Use:   "next <table>",
	Short: "Allocate the next serial code of a table",
	Long: `Next allocates and prints the next serial code of the table from the
configured sequence backend (sql or redis). The code is consumed.

Example:
  udtctl seq next ITEMS`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := env.repo.NextSequenceValue(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("next sequence value: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), code)
		return nil
	},
}

func init() {
	seqCmd.AddCommand(seqNextCmd)
}
