package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"
)

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(quiet bool, format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// formatSize renders the size of an uploaded entry. Entries are a few
// hundred bytes; anything from 1 KiB up is shown in KB.
func formatSize(n int64) string {
	if n < 1024 {
		return strconv.FormatInt(n, 10) + " B"
	}

	return strconv.FormatFloat(float64(n)/1024, 'f', 1, 64) + " KB"
}

// formatTime renders an upload or token-expiry instant in local time.
func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

// printTable writes headers and rows as space-aligned columns.
func printTable(w io.Writer, headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	writeCells(tw, headers)

	for _, row := range rows {
		writeCells(tw, row)
	}

	_ = tw.Flush()
}

func writeCells(w io.Writer, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			_, _ = io.WriteString(w, "\t")
		}

		_, _ = io.WriteString(w, cell)
	}

	_, _ = io.WriteString(w, "\n")
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	return nil
}
