package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"udtkit/data/orm"
	"udtkit/examples/catalog"
)

var (
	itemCategory  string
	itemWarehouse string
	itemPrice     float64
	itemQty       int64
	itemDue       string
	itemRemarks   string
	itemActive    bool

	houseCity    string
	houseCountry string
)

var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Maintain ITEMS records",
}

var itemAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Insert an item under the next serial code",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		it := &catalog.Item{
			Category:  itemCategory,
			Warehouse: itemWarehouse,
			Price:     itemPrice,
			Remarks:   itemRemarks,
		}
		if cmd.Flags().Changed("qty") {
			qty := itemQty
			it.Qty = &qty
		}
		if itemDue != "" {
			due, err := time.Parse("2006-01-02 15:04", itemDue)
			if err != nil {
				return fmt.Errorf("--due: %w", err)
			}
			it.Due = due
		}
		if !env.items.Add(cmd.Context(), it) {
			return fmt.Errorf("add item: %w", it.Err())
		}
		return printRecord(cmd.OutOrStdout(), env.items, it)
	},
}

var itemGetCmd = &cobra.Command{
	Use:   "get <code>",
	Short: "Print one item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		it, ok := env.items.Get(cmd.Context(), args[0])
		if !ok {
			return fmt.Errorf("item %s not found", args[0])
		}
		return printRecord(cmd.OutOrStdout(), env.items, it)
	},
}

var itemListCmd = &cobra.Command{
	Use:   "list",
	Short: "List items, active ones first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts []orm.QueryOption
		if itemActive {
			active := env.store.Dialect().QuoteIdentifier("U_Active")
			opts = append(opts, orm.WithWhere(active+" = ?", "Y"))
		}
		items, ok := env.items.GetAll(cmd.Context(), opts...)
		if !ok {
			return fmt.Errorf("list items failed")
		}
		return printList(cmd.OutOrStdout(), env.items, items)
	},
}

var itemDeleteCmd = &cobra.Command{
	Use:   "delete <code>",
	Short: "Mark an item inactive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		it, ok := env.items.Get(cmd.Context(), args[0])
		if !ok {
			return fmt.Errorf("item %s not found", args[0])
		}
		if !env.items.Delete(cmd.Context(), it) {
			return fmt.Errorf("delete item: %w", it.Err())
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", it.Code)
		return nil
	},
}

var itemRestoreCmd = &cobra.Command{
	Use:   "restore <code>",
	Short: "Reactivate a deleted item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		it, ok := env.items.Get(cmd.Context(), args[0])
		if !ok {
			return fmt.Errorf("item %s not found", args[0])
		}
		if !env.items.Restore(cmd.Context(), it) {
			return fmt.Errorf("restore item: %w", it.Err())
		}
		fmt.Fprintf(cmd.OutOrStdout(), "restored %s\n", it.Code)
		return nil
	},
}

var warehouseCmd = &cobra.Command{
	Use:   "warehouse",
	Short: "Maintain WAREHOUSES records",
}

var warehouseAddCmd = &cobra.Command{
	Use:   "add <code>",
	Short: "Insert a warehouse under a caller-chosen code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := &catalog.Warehouse{City: houseCity, Country: houseCountry}
		w.Code = args[0]
		if !env.warehouses.Add(cmd.Context(), w) {
			return fmt.Errorf("add warehouse: %w", w.Err())
		}
		return printRecord(cmd.OutOrStdout(), env.warehouses, w)
	},
}

func init() {
	f := itemAddCmd.Flags()
	f.StringVar(&itemCategory, "category", "", "category code from the ITEM_CATEGORY catalog")
	f.StringVar(&itemWarehouse, "warehouse", "", "warehouse code")
	f.Float64Var(&itemPrice, "price", 0, "unit price")
	f.Int64Var(&itemQty, "qty", 0, "quantity (defaults to 1 when omitted)")
	f.StringVar(&itemDue, "due", "", `due date and time, "2006-01-02 15:04"`)
	f.StringVar(&itemRemarks, "remarks", "", "free text remarks")
	itemListCmd.Flags().BoolVar(&itemActive, "active", false, "only list active items")

	itemCmd.AddCommand(itemAddCmd, itemGetCmd, itemListCmd, itemDeleteCmd, itemRestoreCmd)

	warehouseAddCmd.Flags().StringVar(&houseCity, "city", "", "city")
	warehouseAddCmd.Flags().StringVar(&houseCountry, "country", "", "country code (NO, SE, DK)")
	warehouseCmd.AddCommand(warehouseAddCmd)
}
