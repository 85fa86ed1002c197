package wsession

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInvalidURL   = errors.New("connection url is not valid")
	ErrNotConnected = errors.New("no active connection")
	ErrOpenFailure  = errors.New("connection cannot be established")
	ErrTextDecoding = errors.New("text frame is not valid utf-8")
	ErrTransport    = errors.New("transport failure")
	ErrRateLimit    = errors.New("rate limit exceeded")
)

// ErrTransportFailure wraps any error reported by the underlying transport.
// It matches ErrTransport under errors.Is so callers can test against the
// taxonomy without losing the original cause.
type ErrTransportFailure struct {
	err error
}

func (e *ErrTransportFailure) Error() string {
	return fmt.Sprintf("transport failure: %s", e.err)
}

func (e *ErrTransportFailure) Unwrap() error { return e.err }

func (e *ErrTransportFailure) Is(target error) bool { return target == ErrTransport }

func WrapErrorTransportFailure(err error) error {
	if err == nil {
		return nil
	}
	return &ErrTransportFailure{err: err}
}
