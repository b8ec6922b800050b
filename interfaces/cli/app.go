// Package cli provides the command-line interface for the event store.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Build-time variables set via ldflags.
var (
	// Version is the CLI version.
	Version = "dev"
	// GitCommit is the git commit hash.
	GitCommit = "unknown"
	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// App is the CLI application.
type App struct {
	root   *cobra.Command
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	root := &cobra.Command{
		Use:   "plumestore",
		Short: "Local store for signed protocol events",
		Long: `plumestore is a client-side store for an event-based social protocol.

Events are classified by kind into storage classes. Replaceable kinds keep
only the newest event per slot, and the store falls back to an in-memory
substrate when persistent storage is unusable.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		app.newVersionCmd(),
		app.newInitCmd(),
		app.newStatsCmd(),
		app.newGetCmd(),
		app.newSaveCmd(),
		app.newDeleteCmd(),
		app.newWipeCmd(),
		app.newValidateCmd(),
		app.newSchemaCmd(),
	)

	app.root = root
	return app
}

// WithOutput sets the output writers, primarily for testing.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// WithInput sets the input reader, primarily for testing.
func (a *App) WithInput(stdin io.Reader) *App {
	a.stdin = stdin
	a.root.SetIn(stdin)
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments (useful for testing).
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// newVersionCmd creates the version command.
func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(a.stdout, "plumestore version %s\n", Version)
			_, _ = fmt.Fprintf(a.stdout, "  commit: %s\n", GitCommit)
			_, _ = fmt.Fprintf(a.stdout, "  built:  %s\n", BuildDate)
		},
	}
}
