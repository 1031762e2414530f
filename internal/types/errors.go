package types

import "fmt"

// ErrorKind is the stable tag reported to callers with every failure.
type ErrorKind string

const (
	// KindValidation covers bad bet amounts, malformed actions, and
	// ill-formed outcome payloads.
	KindValidation ErrorKind = "VALIDATION"

	// KindInsufficientFunds is returned when a debit would take a wallet
	// below zero.
	KindInsufficientFunds ErrorKind = "INSUFFICIENT_FUNDS"

	// KindNotFound is returned for unknown games, sessions, or wallets.
	KindNotFound ErrorKind = "NOT_FOUND"

	// KindInvalidSessionState is returned when an action is not legal in
	// the session's current state, including double-settlement attempts.
	KindInvalidSessionState ErrorKind = "INVALID_SESSION_STATE"

	// KindTransientStore is returned for persistence timeouts and write
	// conflicts. The caller may retry; the engine never retries itself.
	KindTransientStore ErrorKind = "TRANSIENT_STORE"
)

// Error is a kind-tagged error. Every failure the engine reports carries one
// so the excluded API layer can map it to a response without string matching.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error // underlying cause, if any
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a tagged error.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Errorf creates a tagged error with a formatted message.
func Errorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps an existing error with a kind tag.
func WrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// IsKind checks whether err is a tagged error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var tagged *Error
	if err == nil {
		return false
	}
	if !As(err, &tagged) {
		return false
	}
	return tagged.Kind == kind
}

// KindOf returns the kind tag of err, or an empty kind for untagged errors.
func KindOf(err error) ErrorKind {
	var tagged *Error
	if As(err, &tagged) {
		return tagged.Kind
	}
	return ""
}

// As walks the error chain looking for a tagged error.
func As(err error, target **Error) bool {
	if target == nil {
		return false
	}
	for err != nil {
		if tagged, ok := err.(*Error); ok {
			*target = tagged
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
