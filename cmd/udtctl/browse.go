package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"udtkit/engine"
)

var browseTable string

var browseCmd = &cobra.Command{
	Use:   "browse <first|last|next|prev> [code]",
	Short: "Walk a table in key order",
	Long: `Browse prints the record adjacent to CODE in key order. Serial tables
order numerically, other tables lexicographically. Walking past either
end wraps to the first or last record.

Example:
  udtctl browse first
  udtctl browse next 9
  udtctl browse prev OSL --table WAREHOUSES`,
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: []string{"first", "last", "next", "prev"},
	RunE:      runBrowse,
}

func init() {
	browseCmd.Flags().StringVar(&browseTable, "table", "ITEMS", "table to browse (ITEMS, WAREHOUSES, NOTES)")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	dir := strings.ToLower(args[0])
	current := ""
	if len(args) == 2 {
		current = args[1]
	}
	ctx, out := cmd.Context(), cmd.OutOrStdout()

	switch strings.ToUpper(browseTable) {
	case env.items.Table().Name:
		return browse(ctx, out, env.items, dir, current)
	case env.warehouses.Table().Name:
		return browse(ctx, out, env.warehouses, dir, current)
	case env.notes.Table().Name:
		return browse(ctx, out, env.notes, dir, current)
	default:
		return fmt.Errorf("unknown table %q", browseTable)
	}
}

func browse[T any, PT engine.Model[T]](ctx context.Context, w io.Writer, e *engine.Engine[T, PT], dir, current string) error {
	var (
		m  *T
		ok bool
	)
	switch dir {
	case "first":
		m, ok = e.First(ctx)
	case "last":
		m, ok = e.Last(ctx)
	case "next":
		m, ok = e.Next(ctx, current)
	case "prev":
		m, ok = e.Prev(ctx, current)
	default:
		return fmt.Errorf("unknown direction %q", dir)
	}
	if !ok {
		_, err := fmt.Fprintf(w, "%s is empty\n", e.Table().Name)
		return err
	}
	return printRecord(w, e, m)
}
