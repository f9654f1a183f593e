package upload

import (
	"errors"
	"fmt"

	"github.com/vocos/attendance-go/internal/drive"
)

var (
	// ErrAuthorizationRequired means the provider rejected the bearer token or
	// no token was held. The user must authorize again.
	ErrAuthorizationRequired = errors.New("upload: authorization required")
	// ErrSaveInProgress rejects a Save that overlaps another on the same pipeline.
	ErrSaveInProgress = errors.New("upload: a save is already in progress")
)

// RemoteError is any other provider or transport failure during a save.
// StatusCode is zero when no HTTP response was received.
type RemoteError struct {
	Step       string
	StatusCode int
	Body       string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upload: %s failed: HTTP %d: %v", e.Step, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("upload: %s failed: %v", e.Step, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// classify maps a Drive client error onto the save error taxonomy.
func classify(step string, err error) error {
	if errors.Is(err, drive.ErrUnauthorized) {
		return fmt.Errorf("%w: %s: %w", ErrAuthorizationRequired, step, err)
	}

	re := &RemoteError{Step: step, Err: err}

	var apiErr *drive.APIError
	if errors.As(err, &apiErr) {
		re.StatusCode = apiErr.StatusCode
		re.Body = apiErr.Body
	}

	return re
}
