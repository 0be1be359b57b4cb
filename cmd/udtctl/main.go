// Package main provides the udtctl CLI for mapped user-defined tables:
// schema declaration, sequence allocation, lookups and record browsing
// over the sample catalog models.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configFile is set by the --config flag.
	configFile string

	// env is the runtime initialized on startup.
	env *runtime
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "udtctl",
	Short: "udtctl manages user-defined tables",
	Long: `udtctl declares the tables of the sample catalog models, allocates
serial codes, lists drop-down values and browses records in primary-key order.`,
	SilenceUsage:      true,
	PersistentPreRunE: initRuntime,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeRuntime()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./udt.yaml)")

	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(seqCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(itemCmd)
	rootCmd.AddCommand(warehouseCmd)
}

// initRuntime loads config and wires the store, repositories and engines.
func initRuntime(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd.Context(), configFile)
	if err != nil {
		return err
	}
	env = rt
	return nil
}

// closeRuntime waits for pending invalidations and releases connections.
func closeRuntime() error {
	if env == nil {
		return nil
	}
	err := env.Close()
	env = nil
	return err
}
