// Package apperr holds the error conditions the core reports to its callers.
// Recoverable conditions (a missing avatar, a duplicate like) never surface
// here; they are resolved inside the core.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated means the operation needs a signed-in viewer.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrPermissionDenied means the viewer may not perform the operation on
	// the target. Nothing was changed.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrEmptyComment rejects comment text that is empty after trimming.
	ErrEmptyComment = errors.New("comment text is empty")

	// ErrNotFound means the target row does not exist.
	ErrNotFound = errors.New("not found")
)

// RemoteError reports a failed round trip to the remote store. Local state
// has already been restored when it is returned, so the caller may retry.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: remote store unavailable", e.Op)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Retryable is always true; it exists so callers can branch on behaviour
// rather than on type.
func (e *RemoteError) Retryable() bool {
	return true
}

// Remote wraps err as a RemoteError for op. A nil err yields nil.
func Remote(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteError{Op: op, Err: err}
}

// IsRemote reports whether err is a RemoteError.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
