package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// Terminal is a Surface over a line-oriented terminal. Status lines go to
// out; fields are filled by the prompt methods.
type Terminal struct {
	reader      *bufio.Reader
	out         io.Writer
	fd          int
	interactive bool
	fields      map[FieldID]string
	visible     map[Element]bool
}

// NewTerminal reads from in and writes to out. Passwords are read without
// echo only when in is an interactive terminal.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	t := &Terminal{
		reader:  bufio.NewReader(in),
		out:     out,
		fd:      -1,
		fields:  make(map[FieldID]string),
		visible: make(map[Element]bool),
	}

	if f, ok := in.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		t.interactive = true
		t.fd = int(f.Fd())
	}

	return t
}

// Interactive reports whether input comes from a terminal.
func (t *Terminal) Interactive() bool {
	return t.interactive
}

func (t *Terminal) Field(id FieldID) string {
	return t.fields[id]
}

func (t *Terminal) SetField(id FieldID, value string) {
	t.fields[id] = value
}

func (t *Terminal) SetStatus(text string, class Class) {
	if text == "" {
		return
	}

	fmt.Fprintln(t.out, statusPrefix(class)+text)
}

func (t *Terminal) SetVisible(el Element, visible bool) {
	t.visible[el] = visible
}

// Visible reports whether the binder last showed el.
func (t *Terminal) Visible(el Element) bool {
	return t.visible[el]
}

func statusPrefix(class Class) string {
	switch class {
	case ClassSuccess:
		return "✓ "
	case ClassError:
		return "✗ "
	default:
		return ""
	}
}

// ReadLine prints prompt and reads one line without its line ending. A
// final line without a newline is returned before io.EOF.
func (t *Terminal) ReadLine(prompt string) (string, error) {
	fmt.Fprint(t.out, prompt)

	line, err := t.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}

		return "", err
	}

	return strings.TrimRight(line, "\r\n"), nil
}

// PromptField reads a value into id.
func (t *Terminal) PromptField(id FieldID, prompt string) error {
	v, err := t.ReadLine(prompt)
	if err != nil {
		return err
	}

	t.fields[id] = v

	return nil
}

// PromptPassword reads the password field, hidden when interactive. An
// empty answer keeps a password entered earlier.
func (t *Terminal) PromptPassword(prompt string) error {
	var (
		v   string
		err error
	)

	if t.interactive {
		fmt.Fprint(t.out, prompt)

		var pw []byte
		pw, err = readPassword(t.fd)
		fmt.Fprintln(t.out)

		v = string(pw)
	} else {
		v, err = t.ReadLine(prompt)
	}

	if err != nil {
		return err
	}

	if v == "" && t.fields[FieldPassword] != "" {
		return nil
	}

	t.fields[FieldPassword] = v

	return nil
}
