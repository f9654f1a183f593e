package config

import (
	"fmt"
	"io"
)

// secretMask replaces secrets in rendered output.
const secretMask = "********"

// RenderEffective writes the resolved configuration as TOML-like text to w
// for "config show". The client secret is masked.
func RenderEffective(r *Resolved, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (file: %s)\n\n", r.ConfigPath)

	ew.printf("# auth\n")
	ew.printf("client_id       = %q\n", r.ClientID)

	if r.ClientSecret != "" {
		ew.printf("client_secret   = %q\n", secretMask)
	}

	ew.printf("auth_flow       = %q\n\n", r.AuthFlow)

	ew.printf("# drive\n")
	ew.printf("folder_name     = %q\n", r.FolderName)
	ew.printf("api_base_url    = %q\n", r.APIBaseURL)
	ew.printf("upload_base_url = %q\n\n", r.UploadBaseURL)

	ew.printf("# cipher\n")
	ew.printf("cipher_scheme   = %q\n\n", r.CipherScheme)

	ew.printf("# history\n")
	ew.printf("history         = %t\n", r.History)
	ew.printf("history_path    = %q\n\n", r.HistoryPath)

	ew.printf("# logging\n")
	ew.printf("log_level       = %q\n", r.LogLevel)
	ew.printf("log_format      = %q\n\n", r.LogFormat)

	ew.printf("# network\n")
	ew.printf("request_timeout = %q\n\n", r.RequestTimeout)

	ew.printf("# token file: %s\n", r.TokenPath)

	return ew.err
}

// errWriter wraps an io.Writer and keeps the first write error; later
// writes are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
