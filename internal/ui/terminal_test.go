package ui

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTerminal_NonFileIsNotInteractive(t *testing.T) {
	term := NewTerminal(strings.NewReader(""), io.Discard)
	assert.False(t, term.Interactive())
}

func TestTerminal_SetStatus(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(strings.NewReader(""), &out)

	term.SetStatus("working", ClassNeutral)
	term.SetStatus("done", ClassSuccess)
	term.SetStatus("broken", ClassError)
	term.SetStatus("", ClassError)

	assert.Equal(t, "working\n✓ done\n✗ broken\n", out.String())
}

func TestTerminal_ReadLine(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(strings.NewReader("first\r\nlast"), &out)

	v, err := term.ReadLine("A: ")
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	v, err = term.ReadLine("B: ")
	require.NoError(t, err)
	assert.Equal(t, "last", v, "final line without newline")

	_, err = term.ReadLine("C: ")
	require.ErrorIs(t, err, io.EOF)

	assert.Equal(t, "A: B: C: ", out.String())
}

func TestTerminal_PromptPassword_KeepsPrevious(t *testing.T) {
	term := NewTerminal(strings.NewReader("secret123\n\n"), io.Discard)

	require.NoError(t, term.PromptPassword("pw: "))
	assert.Equal(t, "secret123", term.Field(FieldPassword))

	require.NoError(t, term.PromptPassword("pw: "))
	assert.Equal(t, "secret123", term.Field(FieldPassword))
}

func TestTerminal_PromptPassword_Hidden(t *testing.T) {
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })

	var gotFD int
	readPassword = func(fd int) ([]byte, error) {
		gotFD = fd
		return []byte("hidden-pw"), nil
	}

	var out bytes.Buffer
	term := NewTerminal(strings.NewReader("should-not-be-read\n"), &out)
	term.interactive = true
	term.fd = 7

	require.NoError(t, term.PromptPassword("pw: "))
	assert.Equal(t, "hidden-pw", term.Field(FieldPassword))
	assert.Equal(t, 7, gotFD)
	assert.Equal(t, "pw: \n", out.String())
}

func TestTerminal_PromptPassword_ReadError(t *testing.T) {
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })

	readPassword = func(int) ([]byte, error) { return nil, errors.New("not a tty") }

	term := NewTerminal(strings.NewReader(""), io.Discard)
	term.interactive = true

	require.Error(t, term.PromptPassword("pw: "))
}

func TestTerminal_Visibility(t *testing.T) {
	term := NewTerminal(strings.NewReader(""), io.Discard)

	assert.False(t, term.Visible(ElementForm))
	term.SetVisible(ElementForm, true)
	assert.True(t, term.Visible(ElementForm))
}
