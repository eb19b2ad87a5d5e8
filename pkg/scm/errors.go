package scm

import (
	"errors"

	"github.com/Sumatoshi-tech/gitscm/pkg/gitlib"
)

// MessageError is an error whose message is meant for the end user as is.
type MessageError struct {
	Message string
	Err     error
}

// Error implements error.
func (e *MessageError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *MessageError) Unwrap() error {
	return e.Err
}

func notInWorkTree(dir string, err error) error {
	return &MessageError{Message: "Not inside a Git work tree: " + dir, Err: err}
}

// userError converts a missing repository into a MessageError and passes
// other errors through.
func userError(dir string, err error) error {
	if errors.Is(err, gitlib.ErrNotInWorkTree) {
		return notInWorkTree(dir, err)
	}

	return err
}
