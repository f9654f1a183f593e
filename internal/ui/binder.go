package ui

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/vocos/attendance-go/internal/attendance"
	"github.com/vocos/attendance-go/internal/auth"
	"github.com/vocos/attendance-go/internal/drive"
)

// Authorizer is the part of the auth controller the binder drives.
type Authorizer interface {
	State() auth.State
	Subscribe(fn func(auth.Event)) (unsubscribe func())
	RequestAuthorization(ctx context.Context) error
	SignOut(ctx context.Context) error
	HasToken() bool
}

// Saver is the upload pipeline.
type Saver interface {
	Save(ctx context.Context, rec attendance.Record, password string) (*drive.File, error)
	FolderName() string
}

// Binder keeps a Surface in step with authorization state and turns button
// presses into controller and pipeline calls.
type Binder struct {
	surface     Surface
	auth        Authorizer
	saver       Saver
	logger      *slog.Logger
	nowFunc     func() time.Time
	unsubscribe func()
}

// NewBinder returns an unbound Binder.
func NewBinder(surface Surface, authorizer Authorizer, saver Saver, logger *slog.Logger) *Binder {
	if logger == nil {
		logger = slog.Default()
	}

	return &Binder{
		surface: surface,
		auth:    authorizer,
		saver:   saver,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Bind subscribes to controller events and renders the current state.
func (b *Binder) Bind() {
	if b.unsubscribe != nil {
		return
	}

	b.unsubscribe = b.auth.Subscribe(b.onEvent)
	b.Render()
}

// Close stops following controller events.
func (b *Binder) Close() {
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
}

func (b *Binder) onEvent(ev auth.Event) {
	b.render(ev.State)

	if ev.Err != nil {
		b.surface.SetStatus(authErrorMessage(ev.Err), ClassError)
	}
}

// Render draws the controller's current state. Nothing is drawn until both
// clients are ready.
func (b *Binder) Render() {
	b.render(b.auth.State())
}

func (b *Binder) render(state auth.State) {
	switch state {
	case auth.StateAuthorized:
		b.surface.SetVisible(ElementAuthorize, false)
		b.surface.SetVisible(ElementAuthInstruction, false)
		b.surface.SetVisible(ElementSignOut, true)
		b.surface.SetVisible(ElementForm, true)
		b.surface.SetStatus(msgAuthorized, ClassSuccess)
	case auth.StateUnauthorized:
		b.surface.SetVisible(ElementAuthorize, true)
		b.surface.SetVisible(ElementAuthInstruction, true)
		b.surface.SetVisible(ElementSignOut, false)
		b.surface.SetVisible(ElementForm, false)
	case auth.StateUninitialized:
	}
}

// HandleAuthorize runs the consent flow. Outcomes reach the surface through
// controller events.
func (b *Binder) HandleAuthorize(ctx context.Context) error {
	err := b.auth.RequestAuthorization(ctx)
	if err != nil {
		b.logger.Debug("authorize failed", slog.String("error", err.Error()))
	}

	return err
}

// HandleSignOut signs out and reports it. Without a held token it does
// nothing.
func (b *Binder) HandleSignOut(ctx context.Context) error {
	if !b.auth.HasToken() {
		b.logger.Debug("sign-out ignored, no token held")
		return nil
	}

	err := b.auth.SignOut(ctx)
	b.surface.SetStatus(msgSignedOut, ClassNeutral)

	return err
}

// HandleSave submits the form. On success name and hours are cleared and
// the password is kept for the next entry. Surrounding whitespace is
// trimmed from every field, the password included. Every failure becomes one
// error status line.
func (b *Binder) HandleSave(ctx context.Context) (*drive.File, error) {
	b.surface.SetStatus(msgUploading, ClassNeutral)

	rec := attendance.NewRecord(
		b.nowFunc(),
		b.surface.Field(FieldName),
		b.surface.Field(FieldShift),
		b.surface.Field(FieldHours),
	)

	f, err := b.saver.Save(ctx, rec, strings.TrimSpace(b.surface.Field(FieldPassword)))
	if err != nil {
		var verr *attendance.ValidationError
		if !errors.As(err, &verr) {
			b.logger.Warn("save failed", slog.String("error", err.Error()))
		}

		b.surface.SetStatus(saveErrorMessage(err), ClassError)

		return nil, err
	}

	b.surface.SetStatus(savedMessage(f, b.saver.FolderName()), ClassSuccess)
	b.surface.SetField(FieldName, "")
	b.surface.SetField(FieldHours, "")

	return f, nil
}
