package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/vocos/attendance-go/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// CLIFlags are the persistent flags shared by every command.
type CLIFlags struct {
	ConfigPath string
	JSON       bool
	Verbose    bool
	Quiet      bool
	Flow       string
	Folder     string
	Cipher     string
	NoHistory  bool
}

// CLIContext is built once in the root pre-run and handed to every
// command through its context.
type CLIContext struct {
	Flags  CLIFlags
	Cfg    *config.Resolved
	Logger *slog.Logger
}

type cliContextKey struct{}

// flags is bound by newRootCmd. Tests that need different values parse
// arguments through cmd.SetArgs rather than assigning to it.
var flags CLIFlags

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	flags = CLIFlags{}

	cmd := &cobra.Command{
		Use:   "attendance-go",
		Short: "Encrypted attendance entries on Google Drive",
		Long: `Record a timesheet entry (name, shift, hours), encrypt it locally with a
password, and upload it to the HR_Attendance_Data folder of your Google Drive.`,
		Version: version,
		// Errors are printed once by main.
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: loadCLIContext,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.ConfigPath, "config", "", "config file path")
	pf.BoolVar(&flags.JSON, "json", false, "output in JSON format")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress informational output")
	pf.StringVar(&flags.Flow, "flow", "", "authorization flow: browser or device")
	pf.StringVar(&flags.Folder, "folder", "", "destination folder name in Drive")
	pf.StringVar(&flags.Cipher, "cipher", "", "encryption scheme for new entries: openssl or argon2id")
	pf.BoolVar(&flags.NoHistory, "no-history", false, "do not record uploads in the local history")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newSaveCmd())
	cmd.AddCommand(newFormCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newDecryptCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadCLIContext resolves configuration through the override chain, builds
// the logger, and stores both on the command context.
func loadCLIContext(cmd *cobra.Command, _ []string) error {
	cli := cliOverrides(cmd, flags)

	resolved, err := config.Resolve(config.ReadEnvOverrides(), cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cc := &CLIContext{
		Flags:  flags,
		Cfg:    resolved,
		Logger: buildLogger(resolved, flags, os.Stderr),
	}

	cc.Logger.Debug("config resolved",
		slog.String("config_path", resolved.ConfigPath),
		slog.String("folder", resolved.FolderName),
		slog.String("flow", resolved.AuthFlow),
	)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}

	cmd.SetContext(context.WithValue(parent, cliContextKey{}, cc))

	return nil
}

// cliOverrides passes only explicitly set flags to the resolver so that an
// empty flag never masks a config or environment value.
func cliOverrides(cmd *cobra.Command, f CLIFlags) config.CLIOverrides {
	cli := config.CLIOverrides{
		ConfigPath: f.ConfigPath,
		NoHistory:  f.NoHistory,
	}

	if cmd.Flags().Changed("flow") {
		cli.AuthFlow = &f.Flow
	}

	if cmd.Flags().Changed("folder") {
		cli.FolderName = &f.Folder
	}

	if cmd.Flags().Changed("cipher") {
		cli.CipherScheme = &f.Cipher
	}

	return cli
}

// mustCLIContext returns the context built by loadCLIContext. Every command
// runs after the root pre-run, so a missing value is a programming error.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		panic("attendance-go: command context missing CLIContext")
	}

	return cc
}

// buildLogger creates an slog.Logger from the resolved config and CLI flags.
// Config-file log level provides the baseline; --verbose and --quiet
// override it because CLI flags always win.
func buildLogger(cfg *config.Resolved, f CLIFlags, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	format := "auto"

	if cfg != nil {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}

		format = cfg.LogFormat
	}

	if f.Verbose {
		level = slog.LevelDebug
	}

	if f.Quiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if format == "json" || (format == "auto" && !isTerminal(w)) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// isTerminal reports whether stream is a terminal. Only *os.File can be.
func isTerminal(stream any) bool {
	f, ok := stream.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
