package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vocos/attendance-go/internal/attendance"
)

// menuItem is one choice offered by the form loop when its element is visible.
type menuItem struct {
	key   string
	label string
	el    Element
}

var menu = []menuItem{
	{"a", "Authorize with Google Drive", ElementAuthorize},
	{"s", "Save an attendance entry", ElementForm},
	{"o", "Sign out", ElementSignOut},
}

// RunForm drives b through t until the user quits, input ends, or ctx is
// canceled. Only the actions whose elements are visible are offered.
// Failures are shown as status lines and do not end the loop.
func RunForm(ctx context.Context, b *Binder, t *Terminal) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		offered := offeredItems(t)
		printMenu(t, offered)

		choice, err := t.ReadLine("> ")
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("ui: reading choice: %w", err)
		}

		choice = strings.ToLower(strings.TrimSpace(choice))

		switch {
		case choice == "":
			continue
		case choice == "q" || choice == "quit" || choice == "exit":
			return nil
		case choice == "a" && t.Visible(ElementAuthorize):
			_ = b.HandleAuthorize(ctx)
		case choice == "o" && t.Visible(ElementSignOut):
			_ = b.HandleSignOut(ctx)
		case choice == "s" && t.Visible(ElementForm):
			if err := promptEntry(t); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}

				return fmt.Errorf("ui: reading entry: %w", err)
			}

			_, _ = b.HandleSave(ctx)
		default:
			t.SetStatus(fmt.Sprintf("Unknown choice %q.", choice), ClassError)
		}
	}
}

func offeredItems(t *Terminal) []menuItem {
	var out []menuItem

	for _, it := range menu {
		if t.Visible(it.el) {
			out = append(out, it)
		}
	}

	return out
}

func printMenu(t *Terminal, items []menuItem) {
	fmt.Fprintln(t.out)

	if t.Visible(ElementAuthInstruction) {
		fmt.Fprintln(t.out, "Authorize access to your Google Drive to save attendance entries.")
	}

	for _, it := range items {
		fmt.Fprintf(t.out, "  %s) %s\n", it.key, it.label)
	}

	fmt.Fprintln(t.out, "  q) Quit")
}

// promptEntry fills the form fields.
func promptEntry(t *Terminal) error {
	if err := t.PromptField(FieldName, "Name: "); err != nil {
		return err
	}

	options := make([]string, len(attendance.Shifts))
	for i, s := range attendance.Shifts {
		options[i] = fmt.Sprintf("%d) %s", i+1, s)
	}

	shift, err := t.ReadLine("Shift [" + strings.Join(options, ", ") + "]: ")
	if err != nil {
		return err
	}

	t.SetField(FieldShift, CanonicalShift(shift))

	if err := t.PromptField(FieldHours, "Hours: "); err != nil {
		return err
	}

	prompt := "Encryption password: "
	if t.Field(FieldPassword) != "" {
		prompt = "Encryption password (enter to keep): "
	}

	return t.PromptPassword(prompt)
}

// CanonicalShift accepts a shift's menu number or any casing of its name.
// Other text is kept as typed.
func CanonicalShift(in string) string {
	s := strings.TrimSpace(in)

	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= len(attendance.Shifts) {
		return attendance.Shifts[n-1]
	}

	for _, known := range attendance.Shifts {
		if strings.EqualFold(s, known) {
			return known
		}
	}

	return in
}
