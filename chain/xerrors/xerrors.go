// Package xerrors defines the typed error kinds emitted by the chain's
// evaluators, in the wrapping style chain/types and chain/economics already
// use (errors.New sentinels, fmt.Errorf("...: %w", err) wrapping).
package xerrors

import (
	"errors"
	"fmt"
)

// Kind enumerates the error kinds in spec §7.
type Kind uint8

const (
	Unknown Kind = iota
	InsufficientBalance
	Unauthorized
	InactiveAccount
	AssetRestricted
	InvariantViolation
	NotFound
	AlreadyExists
	Expired
	PriceFeedMissing
	InsufficientCollateral
	PoolExhausted
	Invalid
)

func (k Kind) String() string {
	switch k {
	case InsufficientBalance:
		return "InsufficientBalance"
	case Unauthorized:
		return "Unauthorized"
	case InactiveAccount:
		return "InactiveAccount"
	case AssetRestricted:
		return "AssetRestricted"
	case InvariantViolation:
		return "InvariantViolation"
	case NotFound:
		return "NotFound"
	case AlreadyExists:
		return "AlreadyExists"
	case Expired:
		return "Expired"
	case PriceFeedMissing:
		return "PriceFeedMissing"
	case InsufficientCollateral:
		return "InsufficientCollateral"
	case PoolExhausted:
		return "PoolExhausted"
	case Invalid:
		return "Invalid"
	default:
		return "Unknown"
	}
}

// Error bundles a Kind with the evaluator operation name and offending
// parameters, plus an optional wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error for op/kind with a formatted message.
func New(op string, kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error for op/kind, wrapping an underlying cause.
func Wrap(op string, kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind from err, or Unknown if err is not (or does not
// wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err is (or wraps) an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
