package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vocos/attendance-go/internal/cipher"
	"github.com/vocos/attendance-go/internal/ui"
)

func newDecryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt <file-id | path>",
		Short: "Decrypt an uploaded entry",
		Long: `Decrypt an entry and print its CSV line. The argument is a local file when
one exists at that path, otherwise a Drive file ID (as shown by ls). Both
cipher schemes are detected from the data.`,
		Args: cobra.ExactArgs(1),
		RunE: runDecrypt,
	}
}

func runDecrypt(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx, stop := shutdownContext(cmd.Context(), cc.Logger)
	defer stop()

	blob, err := os.ReadFile(args[0])
	if errors.Is(err, fs.ErrNotExist) {
		s, sessErr := newSession(ctx, cc, sessionOptions{})
		if sessErr != nil {
			return sessErr
		}
		defer s.Close()

		if authErr := s.requireAuthorized(); authErr != nil {
			return authErr
		}

		blob, err = s.Drive.Download(ctx, args[0])
	}

	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	cc.Logger.Debug("decrypting", slog.String("scheme", cipher.SchemeOf(string(blob))))

	t := ui.NewTerminal(cmd.InOrStdin(), cmd.ErrOrStderr())
	if err := t.PromptPassword("Encryption password: "); err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	plain, err := cipher.Decrypt(string(blob), strings.TrimSpace(t.Field(ui.FieldPassword)))
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), plain)

	return nil
}
