package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/plumenote/eventstore/domain/event"
)

// newGetCmd creates the get command.
func (a *App) newGetCmd() *cobra.Command {
	opts := &storeOptions{}

	cmd := &cobra.Command{
		Use:   "get <event-id>",
		Short: "Fetch one event by id",
		Long: `Fetch a stored event by its id and print it as JSON.

Examples:
  # Fetch an event
  plumestore get -c store.yaml 5c83e1a0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runGet(cmd.Context(), opts, args[0])
		},
	}

	opts.registerFlags(cmd)
	return cmd
}

// runGet fetches the event and prints it.
func (a *App) runGet(ctx context.Context, opts *storeOptions, id string) error {
	st, err := a.openStore(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	e, ok, err := st.GetEventByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch event: %w", err)
	}
	if !ok {
		return fmt.Errorf("event %q not found", id)
	}

	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

// saveOptions holds options for the save command.
type saveOptions struct {
	storeOptions
	jsonOutput bool
}

// newSaveCmd creates the save command.
func (a *App) newSaveCmd() *cobra.Command {
	opts := &saveOptions{}

	cmd := &cobra.Command{
		Use:   "save [file]",
		Short: "Store a JSON event from a file or stdin",
		Long: `Store one protocol event, applying the replacement rules for its kind.
The event is read as JSON from the file argument, or from stdin when no
argument is given.

Examples:
  # Save an event from a file
  plumestore save -c store.yaml event.json

  # Save an event from stdin
  cat event.json | plumestore save -c store.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			return a.runSave(cmd.Context(), opts, path)
		},
	}

	opts.registerFlags(cmd)
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the save result as JSON")

	return cmd
}

// runSave reads the event payload and stores it.
func (a *App) runSave(ctx context.Context, opts *saveOptions, path string) error {
	data, err := a.readPayload(path)
	if err != nil {
		return err
	}

	var e event.Event
	if err := json.Unmarshal(data, &e); err != nil {
		return fmt.Errorf("failed to parse event JSON: %w", err)
	}

	st, err := a.openStore(ctx, &opts.storeOptions)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	result, err := st.SaveEvent(ctx, &e)
	if err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}

	if opts.jsonOutput {
		output := map[string]any{
			"id":       e.ID,
			"kind":     e.Kind,
			"class":    result.Class.String(),
			"outcome":  string(result.Outcome),
			"replaced": result.Replaced,
			"degraded": result.Degraded,
		}
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(output)
	}

	_, _ = fmt.Fprintf(a.stdout, "Save completed\n")
	_, _ = fmt.Fprintf(a.stdout, "  ID: %s\n", e.ID)
	_, _ = fmt.Fprintf(a.stdout, "  Class: %s\n", result.Class)
	_, _ = fmt.Fprintf(a.stdout, "  Outcome: %s\n", result.Outcome)
	if result.Replaced > 0 {
		_, _ = fmt.Fprintf(a.stdout, "  Replaced: %d\n", result.Replaced)
	}
	if result.Degraded {
		_, _ = fmt.Fprintf(a.stdout, "  Degraded: the event is held in memory only\n")
	}

	return nil
}

// readPayload reads the event payload from the file, or stdin when path is
// empty.
func (a *App) readPayload(path string) ([]byte, error) {
	if path == "" {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read event from stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read event file: %w", err)
	}
	return data, nil
}

// newDeleteCmd creates the delete command.
func (a *App) newDeleteCmd() *cobra.Command {
	opts := &storeOptions{}

	cmd := &cobra.Command{
		Use:   "delete <event-id>",
		Short: "Delete one event by id",
		Long: `Delete a stored event by its id. Deleting an id that is not stored is a
no-op.

Examples:
  # Delete an event
  plumestore delete -c store.yaml 5c83e1a0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDelete(cmd.Context(), opts, args[0])
		},
	}

	opts.registerFlags(cmd)
	return cmd
}

// runDelete removes the event.
func (a *App) runDelete(ctx context.Context, opts *storeOptions, id string) error {
	st, err := a.openStore(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if err := st.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	_, _ = fmt.Fprintf(a.stdout, "Deleted %s\n", id)
	return nil
}
