package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/vocos/attendance-go/internal/folder"
	"github.com/vocos/attendance-go/internal/ui"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authorize access to Google Drive",
		Long: `Run the Google consent flow and keep the resulting token for later commands.

The browser flow (default) opens a browser and listens on a loopback port for
the redirect. Use --flow device on machines without a browser.`,
		RunE: runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke and remove the saved token",
		RunE:  runLogout,
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authorization state, account, and destination folder",
		RunE:  runStatus,
	}
}

// statusOut returns where binder status lines and prompts go: stderr, or
// nowhere with --quiet unless someone is at the terminal to answer prompts.
func statusOut(cmd *cobra.Command, cc *CLIContext) io.Writer {
	if cc.Flags.Quiet && !isTerminal(cmd.InOrStdin()) {
		return io.Discard
	}

	return cmd.ErrOrStderr()
}

// newBoundTerminal returns a terminal surface bound to the session's
// controller and pipeline. The caller must Close the binder.
func newBoundTerminal(cc *CLIContext, s *Session, in io.Reader, out io.Writer) (*ui.Terminal, *ui.Binder) {
	t := ui.NewTerminal(in, out)
	b := ui.NewBinder(t, s.Auth, s.Pipeline, cc.Logger)
	b.Bind()

	return t, b
}

func runLogin(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx, stop := shutdownContext(cmd.Context(), cc.Logger)
	defer stop()

	s, err := newSession(ctx, cc, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	if s.Auth.IsAuthorized() {
		cc.Logger.Info("already authorized, starting a new consent flow")
	}

	_, b := newBoundTerminal(cc, s, cmd.InOrStdin(), statusOut(cmd, cc))
	defer b.Close()

	if err := b.HandleAuthorize(ctx); err != nil {
		return err
	}

	if user, err := s.Drive.About(ctx); err == nil {
		statusf(cc.Flags.Quiet, "Logged in as %s (%s).\n", user.DisplayName, user.EmailAddress)
	} else {
		cc.Logger.Debug("about after login failed", slog.String("error", err.Error()))
	}

	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx, stop := shutdownContext(cmd.Context(), cc.Logger)
	defer stop()

	s, err := newSession(ctx, cc, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	if !s.Auth.HasToken() {
		statusf(cc.Flags.Quiet, "Not logged in.\n")
		return nil
	}

	_, b := newBoundTerminal(cc, s, cmd.InOrStdin(), statusOut(cmd, cc))
	defer b.Close()

	return b.HandleSignOut(ctx)
}

// statusOutput is the JSON schema for `status --json`.
type statusOutput struct {
	State       string     `json:"state"`
	Authorized  bool       `json:"authorized"`
	TokenExpiry *time.Time `json:"token_expiry,omitempty"`
	Refreshable bool       `json:"refreshable"`
	User        string     `json:"user,omitempty"`
	Email       string     `json:"email,omitempty"`
	Folder      string     `json:"folder"`
	FolderID    string     `json:"folder_id,omitempty"`
	Cipher      string     `json:"cipher"`
	Flow        string     `json:"flow"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx, stop := shutdownContext(cmd.Context(), cc.Logger)
	defer stop()

	s, err := newSession(ctx, cc, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	out := buildStatus(ctx, cc, s)

	if cc.Flags.JSON {
		return printJSON(cmd.OutOrStdout(), out)
	}

	printStatusText(cmd.OutOrStdout(), out)

	return nil
}

// buildStatus gathers what can be known. Remote lookups only run when
// authorized; their failures are logged and leave the fields empty.
func buildStatus(ctx context.Context, cc *CLIContext, s *Session) statusOutput {
	out := statusOutput{
		State:      s.Auth.State().String(),
		Authorized: s.Auth.IsAuthorized(),
		Folder:     cc.Cfg.FolderName,
		Cipher:     cc.Cfg.CipherScheme,
		Flow:       cc.Cfg.AuthFlow,
	}

	if tok := s.Auth.CurrentToken(); tok != nil {
		out.Refreshable = tok.RefreshToken != ""

		if !tok.Expiry.IsZero() {
			expiry := tok.Expiry
			out.TokenExpiry = &expiry
		}
	}

	if !out.Authorized {
		return out
	}

	if user, err := s.Drive.About(ctx); err != nil {
		cc.Logger.Warn("fetching account", slog.String("error", err.Error()))
	} else {
		out.User = user.DisplayName
		out.Email = user.EmailAddress
	}

	id, err := s.Folders.Lookup(ctx, cc.Cfg.FolderName)
	switch {
	case err == nil:
		out.FolderID = id
	case errors.Is(err, folder.ErrFolderNotFound):
		cc.Logger.Debug("destination folder not created yet")
	default:
		cc.Logger.Warn("looking up folder", slog.String("error", err.Error()))
	}

	return out
}

func printStatusText(w io.Writer, st statusOutput) {
	fmt.Fprintf(w, "State:   %s\n", st.State)

	if st.User != "" {
		fmt.Fprintf(w, "Account: %s (%s)\n", st.User, st.Email)
	}

	if st.TokenExpiry != nil {
		fmt.Fprintf(w, "Token:   expires %s", formatTime(*st.TokenExpiry))

		if st.Refreshable {
			fmt.Fprint(w, " (refreshable)")
		}

		fmt.Fprintln(w)
	}

	folderState := "not created yet"
	if st.FolderID != "" {
		folderState = st.FolderID
	} else if !st.Authorized {
		folderState = "unknown"
	}

	fmt.Fprintf(w, "Folder:  %s (%s)\n", st.Folder, folderState)
	fmt.Fprintf(w, "Cipher:  %s\n", st.Cipher)
	fmt.Fprintf(w, "Flow:    %s\n", st.Flow)
}
