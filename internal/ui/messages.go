package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vocos/attendance-go/internal/attendance"
	"github.com/vocos/attendance-go/internal/auth"
	"github.com/vocos/attendance-go/internal/drive"
	"github.com/vocos/attendance-go/internal/upload"
)

// Status texts.
const (
	msgAuthorized    = "Authorized to save data."
	msgSignedOut     = "Signed out. Please authorize again to save data."
	msgUploading     = "Encrypting and uploading..."
	msgStarting      = "Still starting up, please try again in a moment."
	msgAuthFailed    = "Authorization failed."
	msgAuthRequired  = "Authorization expired or missing. Please authorize again."
	msgSaveInFlight  = "A save is already in progress."
	msgInvalidHours  = "Hours must be a non-negative number."
	msgMultiline     = "must be a single line."
	remoteErrorHint  = "Please check the log and try authorizing again."
	msgGenericFailed = "Error saving data"
)

var fieldLabels = map[string]string{
	attendance.FieldName:     "Name",
	attendance.FieldShift:    "Shift",
	attendance.FieldHours:    "Hours",
	attendance.FieldPassword: "Encryption password",
}

func savedMessage(f *drive.File, folderName string) string {
	if f.Name != "" {
		return fmt.Sprintf("Saved securely to Google Drive as %s in %s.", f.Name, folderName)
	}

	return fmt.Sprintf("Saved securely to Google Drive in %s.", folderName)
}

// authErrorMessage renders an error delivered with a controller event.
func authErrorMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrUninitialized):
		return msgStarting
	case errors.Is(err, auth.ErrAuthorizationFailed):
		return msgAuthFailed + " " + remoteErrorHint
	default:
		return err.Error()
	}
}

// saveErrorMessage picks the one status line shown for a failed save.
func saveErrorMessage(err error) string {
	var (
		verr *attendance.ValidationError
		rerr *upload.RemoteError
	)

	switch {
	case errors.As(err, &verr):
		return validationMessage(verr)
	case errors.Is(err, upload.ErrAuthorizationRequired):
		return msgAuthRequired
	case errors.Is(err, upload.ErrSaveInProgress):
		return msgSaveInFlight
	case errors.As(err, &rerr):
		return fmt.Sprintf("%s: %s. %s", msgGenericFailed, remoteDetail(rerr), remoteErrorHint)
	default:
		return fmt.Sprintf("%s: %v", msgGenericFailed, err)
	}
}

func validationMessage(verr *attendance.ValidationError) string {
	var parts []string

	if len(verr.Missing) > 0 {
		labels := make([]string, len(verr.Missing))
		for i, f := range verr.Missing {
			labels[i] = label(f)
		}

		parts = append(parts, "Please fill in all fields (missing: "+strings.Join(labels, ", ")+").")
	}

	for _, f := range verr.Invalid {
		if f == attendance.FieldHours {
			parts = append(parts, msgInvalidHours)
			continue
		}

		if f == attendance.FieldName || f == attendance.FieldShift {
			parts = append(parts, label(f)+" "+msgMultiline)
			continue
		}

		parts = append(parts, label(f)+" is invalid.")
	}

	return strings.Join(parts, " ")
}

func remoteDetail(rerr *upload.RemoteError) string {
	if rerr.StatusCode == 0 {
		return rerr.Err.Error()
	}

	var apiErr *drive.APIError
	if errors.As(rerr, &apiErr) && apiErr.Message != "" {
		return fmt.Sprintf("HTTP %d - %s", rerr.StatusCode, apiErr.Message)
	}

	return fmt.Sprintf("HTTP %d - %s", rerr.StatusCode, strings.TrimSpace(rerr.Body))
}

func label(field string) string {
	if l, ok := fieldLabels[field]; ok {
		return l
	}

	return field
}
