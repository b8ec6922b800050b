package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// wipeOptions holds options for the wipe command.
type wipeOptions struct {
	storeOptions
	yes bool
}

// newWipeCmd creates the wipe command.
func (a *App) newWipeCmd() *cobra.Command {
	opts := &wipeOptions{}

	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete every record in the store",
		Long: `Clear all tables while keeping the store open and usable. If the substrate
cannot wipe in place, the database is destroyed and recreated.

The command refuses to run without --yes.

Examples:
  # Wipe the store
  plumestore wipe -c store.yaml --yes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWipe(cmd.Context(), opts)
		},
	}

	opts.registerFlags(cmd)
	cmd.Flags().BoolVar(&opts.yes, "yes", false, "Confirm the wipe")

	return cmd
}

// runWipe clears the store.
func (a *App) runWipe(ctx context.Context, opts *wipeOptions) error {
	if !opts.yes {
		return fmt.Errorf("wipe removes every record; re-run with --yes to confirm")
	}

	st, err := a.openStore(ctx, &opts.storeOptions)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if err := st.Wipe(ctx); err != nil {
		return fmt.Errorf("failed to wipe store: %w", err)
	}

	_, _ = fmt.Fprintf(a.stdout, "Store wiped (%s backend)\n", st.Backend())
	return nil
}
