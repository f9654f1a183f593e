package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vocos/attendance-go/internal/attendance"
	"github.com/vocos/attendance-go/internal/drive"
	"github.com/vocos/attendance-go/internal/ui"
)

// saveFlags are the entry fields given on the command line.
type saveFlags struct {
	name  string
	shift string
	hours string
}

func newSaveCmd() *cobra.Command {
	var sf saveFlags

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Encrypt one attendance entry and upload it",
		Long: `Encrypt one attendance entry with a password and upload it to the destination
folder as attendance_entry_<millis>.vocos.

Fields not given as flags are prompted for when stdin is a terminal. The
password is always read from stdin: hidden on a terminal, otherwise the first
line of input.

Examples:
  attendance-go save --name "Jane Doe" --shift Morning --hours 8
  echo "$PASSWORD" | attendance-go save --name "Jane Doe" --shift 1 --hours 7.5`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSave(cmd, sf)
		},
	}

	cmd.Flags().StringVar(&sf.name, "name", "", "employee name")
	cmd.Flags().StringVar(&sf.shift, "shift", "",
		"shift: "+strings.Join(attendance.Shifts, ", ")+" (or its number)")
	cmd.Flags().StringVar(&sf.hours, "hours", "", "hours worked")

	return cmd
}

// saveOutput is the JSON schema for `save --json`.
type saveOutput struct {
	FileID      string `json:"file_id"`
	Name        string `json:"name"`
	Folder      string `json:"folder"`
	WebViewLink string `json:"web_view_link,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

func runSave(cmd *cobra.Command, sf saveFlags) error {
	cc := mustCLIContext(cmd.Context())
	ctx, stop := shutdownContext(cmd.Context(), cc.Logger)
	defer stop()

	s, err := newSession(ctx, cc, sessionOptions{WithJournal: true})
	if err != nil {
		return err
	}
	defer s.Close()

	t, b := newBoundTerminal(cc, s, cmd.InOrStdin(), statusOut(cmd, cc))
	defer b.Close()

	if err := fillEntry(t, sf); err != nil {
		return err
	}

	f, err := b.HandleSave(ctx)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cmd.OutOrStdout(), saveResult(f, s.Pipeline.FolderName()))
	}

	return nil
}

// fillEntry copies flag values into the surface and prompts for what is
// missing. Prompts only happen on an interactive terminal; otherwise
// missing fields stay empty and validation reports them.
func fillEntry(t *ui.Terminal, sf saveFlags) error {
	t.SetField(ui.FieldName, sf.name)
	t.SetField(ui.FieldShift, ui.CanonicalShift(sf.shift))
	t.SetField(ui.FieldHours, sf.hours)

	if t.Interactive() {
		prompts := []struct {
			id     ui.FieldID
			prompt string
		}{
			{ui.FieldName, "Name: "},
			{ui.FieldShift, "Shift [" + strings.Join(attendance.Shifts, ", ") + "]: "},
			{ui.FieldHours, "Hours: "},
		}

		for _, p := range prompts {
			if strings.TrimSpace(t.Field(p.id)) != "" {
				continue
			}

			if err := t.PromptField(p.id, p.prompt); err != nil {
				return fmt.Errorf("reading %s: %w", p.id, err)
			}
		}

		t.SetField(ui.FieldShift, ui.CanonicalShift(t.Field(ui.FieldShift)))
	}

	if err := t.PromptPassword("Encryption password: "); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading password: %w", err)
	}

	return nil
}

func saveResult(f *drive.File, folderName string) saveOutput {
	return saveOutput{
		FileID:      f.ID,
		Name:        f.Name,
		Folder:      folderName,
		WebViewLink: f.WebViewLink,
		Size:        f.Size,
	}
}
