package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/arjunv/foldersync/internal/httpapi"
)

// cmdOut is where JSON-formatted command output is written; overridable
// in tests.
var cmdOut io.Writer = os.Stdout

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagAddr    string
	flagJSON    bool
	flagVerbose bool
	flagDebug   bool
	flagQuiet   bool
)

// skipClientAnnotation marks commands that don't talk to a running daemon
// over HTTP: serve, which instead builds the daemon, and reload, which
// signals it through its PID file.
const skipClientAnnotation = "skipClient"

const clientTimeout = 10 * time.Second

// CLIContext bundles the HTTP client used by every command that queries
// or controls a running daemon.
type CLIContext struct {
	BaseURL string
	HTTP    *http.Client
	Logger  *slog.Logger
}

type cliContextKey struct{}

func cliContextFrom(ctx context.Context) *CLIContext {
	cc, _ := ctx.Value(cliContextKey{}).(*CLIContext)

	return cc
}

// mustCLIContext extracts the CLIContext or panics with an actionable
// message — a programmer error, since the command tree guarantees
// PersistentPreRunE populates it before RunE runs.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc := cliContextFrom(ctx)
	if cc == nil {
		panic("BUG: CLIContext not found in context — command needs skipClientAnnotation or must load it itself")
	}

	return cc
}

// isColorOutput reports whether stdout is a terminal. The status command
// prints its header line only when it is.
func isColorOutput() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}

// newRootCmd builds the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "foldersync",
		Short:   "Bidirectional local-folder to cloud-folder sync",
		Long:    "foldersync keeps a local folder and a cloud shared folder in sync, running as a background daemon with an HTTP control surface.",
		Version: version,
		// Silence Cobra's default error/usage printing — handled ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipClientAnnotation] == "true" {
				return nil
			}

			return loadClient(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagAddr, "addr", "http://"+httpapi.DefaultAddr, "control surface base URL")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "show detailed output")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.MarkFlagsMutuallyExclusive("verbose", "debug", "quiet")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newTriggerCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newReloadCmd())

	return cmd
}

// loadClient builds the CLIContext used by commands that talk to a
// running daemon's HTTP control surface.
func loadClient(cmd *cobra.Command) error {
	logger := buildLogger()

	cc := &CLIContext{
		BaseURL: flagAddr,
		HTTP:    &http.Client{Timeout: clientTimeout},
		Logger:  logger,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))

	return nil
}

// buildLogger creates an slog.Logger configured from CLI flags.
// --verbose, --debug, and --quiet are mutually exclusive (enforced by
// Cobra).
func buildLogger() *slog.Logger {
	level := slog.LevelWarn

	switch {
	case flagDebug:
		level = slog.LevelDebug
	case flagVerbose:
		level = slog.LevelInfo
	case flagQuiet:
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// exitOnError prints a user-friendly error message to stderr and exits
// with status 1.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
