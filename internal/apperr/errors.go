package apperr

import "errors"

var (
	// ErrValidation marks missing or malformed input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks an unknown user or identifier.
	ErrNotFound = errors.New("not found")
	// ErrAuth marks a password mismatch or a missing session.
	ErrAuth = errors.New("unauthorized")
	// ErrStorage marks unreadable or unwritable persisted state.
	ErrStorage = errors.New("storage error")
)

// Error carries a human-readable message alongside one of the sentinel kinds.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func Validation(msg string) error { return &Error{Kind: ErrValidation, Msg: msg} }

func NotFound(msg string) error { return &Error{Kind: ErrNotFound, Msg: msg} }

func Auth(msg string) error { return &Error{Kind: ErrAuth, Msg: msg} }

// Storage wraps a persistence failure so it matches ErrStorage as well as cause.
func Storage(msg string, cause error) error {
	return &storageError{msg: msg, cause: cause}
}

type storageError struct {
	msg   string
	cause error
}

func (e *storageError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return e.msg + ": " + e.cause.Error()
}

func (e *storageError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrStorage}
	}
	return []error{ErrStorage, e.cause}
}

// Message returns the user-facing message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
