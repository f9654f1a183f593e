package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/vocos/attendance-go/internal/ui"
)

func newFormCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "form",
		Short: "Interactive entry form",
		Long: `Run an interactive loop that offers authorize, save, and sign-out actions
according to the current authorization state. The password is kept between
entries; name and hours are cleared after each successful save.`,
		RunE: runForm,
	}
}

func runForm(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx, stop := shutdownContext(cmd.Context(), cc.Logger)
	defer stop()

	s, err := newSession(ctx, cc, sessionOptions{WithJournal: true})
	if err != nil {
		return err
	}
	defer s.Close()

	// The form is the user's only view, so status lines ignore --quiet.
	t, b := newBoundTerminal(cc, s, cmd.InOrStdin(), cmd.ErrOrStderr())
	defer b.Close()

	if err := ui.RunForm(ctx, b, t); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
