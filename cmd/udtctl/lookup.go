package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"udtkit/field"
)

var lookupField string

var lookupCmd = &cobra.Command{
	Use:   "lookup [table]",
	Short: "List drop-down values of a table, catalog or item field",
	Long: `Lookup prints the (value, label) pairs served by the repository for a
table or reference catalog. With --field it resolves the linkage of an
item field instead.

Example:
  udtctl lookup WAREHOUSES
  udtctl lookup ITEM_CATEGORY
  udtctl lookup --field Warehouse`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLookup,
}

func init() {
	lookupCmd.Flags().StringVar(&lookupField, "field", "", "item field whose linkage to resolve")
}

func runLookup(cmd *cobra.Command, args []string) error {
	var (
		values []field.ValidValue
		err    error
	)
	switch {
	case lookupField != "":
		values, err = env.items.Lookup(cmd.Context(), lookupField)
	case len(args) == 1:
		values, err = env.repo.LookupValues(cmd.Context(), args[0])
	default:
		return fmt.Errorf("either a table or --field is required")
	}
	if err != nil {
		return fmt.Errorf("lookup: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, v := range values {
		fmt.Fprintf(w, "%s\t%s\n", v.Value, v.Label)
	}
	return w.Flush()
}
