package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plumenote/eventstore/domain/record"
)

// statsOptions holds options for the stats command.
type statsOptions struct {
	storeOptions
	jsonOutput bool
}

// newStatsCmd creates the stats command.
func (a *App) newStatsCmd() *cobra.Command {
	opts := &statsOptions{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Report per-table record counts and sizes",
		Long: `Open the store and print a usage snapshot: record count and approximate
serialized size for every logical table.

Examples:
  # Print the usage snapshot
  plumestore stats -c store.yaml

  # Machine-readable snapshot
  plumestore stats -c store.yaml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStats(cmd.Context(), opts)
		},
	}

	opts.registerFlags(cmd)
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the snapshot as JSON")

	return cmd
}

// runStats opens the store and prints the usage snapshot.
func (a *App) runStats(ctx context.Context, opts *statsOptions) error {
	st, err := a.openStore(ctx, &opts.storeOptions)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	stats := st.Stats()

	if opts.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	_, _ = fmt.Fprintf(a.stdout, "Store usage (%s backend)\n\n", st.Backend())
	_, _ = fmt.Fprintf(a.stdout, "  %-22s %8s %12s\n", "TABLE", "COUNT", "BYTES")
	for _, table := range record.Tables() {
		ts := stats.Tables[table]
		_, _ = fmt.Fprintf(a.stdout, "  %-22s %8d %12d\n", table, ts.Count, ts.Bytes)
	}
	_, _ = fmt.Fprintf(a.stdout, "  %-22s %8d %12d\n", "total", stats.TotalCount(), stats.TotalBytes())

	return nil
}
