package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/tenderflow/pkg/connect"
	"github.com/ajitpratap0/tenderflow/pkg/store"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "tenderflow",
		Short: "tenderflow - batch export and statistics for procurement tenders",
		Long: `tenderflow reads tender records from MongoDB, PostgreSQL, MySQL, SQLite or an
in-memory seed file in fixed-size batches and streams them to JSON, JSON lines,
Excel workbooks or Avro files without holding the dataset in memory.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Path to a YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the configuration")
	root.PersistentFlags().StringVar(&a.driver, "driver", "", "Store driver; overrides store.driver")
	root.PersistentFlags().StringVar(&a.uri, "uri", "", "Store connection URI; overrides store.uri")

	root.AddCommand(
		newExportCmd(a),
		newStatsCmd(a),
		newSearchCmd(a),
		newGetCmd(a),
		newLoadCmd(a),
		newBackendsCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		// no configuration needed
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tenderflow v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newBackendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "backends",
		Short:              "List available store drivers",
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Available store drivers:")
			for _, d := range connect.Drivers() {
				fmt.Fprintf(out, "  - %s\n", d)
			}
			fmt.Fprintf(out, "\nOptional capabilities: %s, %s, %s\n",
				store.CapabilityAggregate, store.CapabilityFind, store.CapabilityInsert)
		},
	}
}
