// Package errs defines the taxonomy of error kinds the analysis pipeline
// can produce, as a tagged union rather than scattered string enums or
// ad-hoc error types.
package errs

import "fmt"

// Kind is a closed set of error categories. Exhaustive switches over Kind
// are expected at every boundary that needs to branch on error type.
type Kind int

const (
	Unknown Kind = iota
	BridgeUnavailable
	BridgeTransient
	NoAccount
	NoSymbols
	InsufficientData
	InvalidTimeframe
	SessionChanged
	Cancelled
	Internal
)

func (k Kind) String() string {
	switch k {
	case BridgeUnavailable:
		return "BridgeUnavailable"
	case BridgeTransient:
		return "BridgeTransient"
	case NoAccount:
		return "NoAccount"
	case NoSymbols:
		return "NoSymbols"
	case InsufficientData:
		return "InsufficientData"
	case InvalidTimeframe:
		return "InvalidTimeframe"
	case SessionChanged:
		return "SessionChanged"
	case Cancelled:
		return "Cancelled"
	case Internal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error wraps a Kind with a message and an optional cause, compatible with
// errors.Is/errors.As via Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given kind around a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error, else
// Unknown.
func KindOf(err error) Kind {
	var e *Error
	if ok := As(err, &e); ok {
		return e.Kind
	}
	return Unknown
}

// As is a tiny local wrapper so callers don't need a second import just to
// read KindOf; it mirrors errors.As for the single *Error type used here.
func As(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
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

// Surfaced reports whether this kind of error is surfaced directly to
// subscribers (per the propagation policy) rather than attached as a
// per-timeframe warning.
func (k Kind) Surfaced() bool {
	switch k {
	case BridgeUnavailable, NoAccount, NoSymbols, SessionChanged:
		return true
	default:
		return false
	}
}
