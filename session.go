package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"runtime"

	"github.com/vocos/attendance-go/internal/auth"
	"github.com/vocos/attendance-go/internal/cipher"
	"github.com/vocos/attendance-go/internal/drive"
	"github.com/vocos/attendance-go/internal/folder"
	"github.com/vocos/attendance-go/internal/history"
	"github.com/vocos/attendance-go/internal/tokenstore"
	"github.com/vocos/attendance-go/internal/upload"
)

// Session holds the initialized controller and clients for one command.
// Every command that talks to Google builds one from the resolved config.
type Session struct {
	Auth     *auth.Controller
	Drive    *drive.Client
	Folders  *folder.Resolver
	Pipeline *upload.Pipeline
	// Journal is nil when history is disabled or not requested.
	Journal *history.Journal

	logger *slog.Logger
}

// sessionOptions selects the optional parts of a Session.
type sessionOptions struct {
	// WithJournal opens the history journal when history is enabled.
	WithJournal bool
}

// newSession wires config -> HTTP client -> auth controller -> Drive client
// -> folder resolver -> cipher -> pipeline, then initializes the controller.
func newSession(ctx context.Context, cc *CLIContext, opts sessionOptions) (*Session, error) {
	cfg := cc.Cfg
	logger := cc.Logger

	httpClient := &http.Client{Timeout: cfg.Timeout}

	controller := auth.NewController(auth.Options{
		ClientID:          cfg.ClientID,
		ClientSecret:      cfg.ClientSecret,
		TokenPath:         cfg.TokenPath,
		Flow:              auth.Flow(cfg.AuthFlow),
		HTTPClient:        httpClient,
		OpenURL:           openBrowser,
		DisplayDeviceCode: showDeviceCode,
		Logger:            logger,
	}, tokenstore.New())

	client := drive.NewClient(cfg.APIBaseURL, cfg.UploadBaseURL, httpClient, controller, logger)

	if err := controller.Initialize(ctx, client); err != nil {
		return nil, fmt.Errorf("initializing: %w", err)
	}

	enc, err := cipher.New(cfg.CipherScheme)
	if err != nil {
		return nil, err
	}

	resolver := folder.NewResolver(client, logger)
	pipeline := upload.NewPipeline(enc, resolver, client, cfg.FolderName, logger)

	s := &Session{
		Auth:     controller,
		Drive:    client,
		Folders:  resolver,
		Pipeline: pipeline,
		logger:   logger,
	}

	if opts.WithJournal && cfg.History {
		j, err := history.Open(ctx, cfg.HistoryPath, logger)
		if err != nil {
			// A broken journal never blocks saving.
			logger.Warn("history disabled",
				slog.String("path", cfg.HistoryPath),
				slog.String("error", err.Error()),
			)
		} else {
			s.Journal = j
			pipeline.SetJournal(j)
		}
	}

	return s, nil
}

// Close releases the journal, if open.
func (s *Session) Close() {
	if s.Journal == nil {
		return
	}

	if err := s.Journal.Close(); err != nil {
		s.logger.Warn("closing history", slog.String("error", err.Error()))
	}
}

// requireAuthorized fails with a hint when no token is held.
func (s *Session) requireAuthorized() error {
	if !s.Auth.IsAuthorized() {
		return errors.New("not authorized; run 'attendance-go login' first")
	}

	return nil
}

// showDeviceCode prints the device-flow prompt. It is shown even with
// --quiet because login cannot proceed without it.
func showDeviceCode(da auth.DeviceAuth) {
	fmt.Fprintf(os.Stderr, "To authorize, visit: %s\n", da.VerificationURI)
	fmt.Fprintf(os.Stderr, "Enter code: %s\n", da.UserCode)
}

// openBrowser asks the desktop to open u. Failure is not fatal: the
// controller then prints the URL for the user to open.
func openBrowser(u string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", u)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", u)
	default:
		cmd = exec.Command("xdg-open", u)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("opening browser: %w", err)
	}

	// Reap the child without blocking the login.
	go func() { _ = cmd.Wait() }()

	return nil
}
