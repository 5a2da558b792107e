// Package driver orchestrates the Source Model, Marker Collector, Type
// Resolver, and Call-site Rewriter across a set of files: it is the
// engine behind molt's migrate/cleanup/check/info subcommands.
package driver

import "fmt"

// Code enumerates the error taxonomy from spec.md §7. The Driver branches
// on Code rather than string-matching a message, the way waffle's
// pantry/errors.Error lets callers dispatch on a typed field instead of
// parsing text.
type Code int

const (
	ParseError Code = iota
	CollectorError
	BindingError
	TypeResolverUnavailable
	TypeResolverTimeout
	IOError
	FatalConfigurationError
)

func (c Code) String() string {
	switch c {
	case ParseError:
		return "parse_error"
	case CollectorError:
		return "collector_error"
	case BindingError:
		return "binding_error"
	case TypeResolverUnavailable:
		return "type_resolver_unavailable"
	case TypeResolverTimeout:
		return "type_resolver_timeout"
	case IOError:
		return "io_error"
	case FatalConfigurationError:
		return "fatal_configuration_error"
	default:
		return "unknown"
	}
}

// Recoverable reports spec.md §7's "Recovered locally?" column: true when
// only the offending construct or site is skipped and processing of the
// file continues, false when the whole file stops (ParseError, IOError) or
// the run stops before any file is touched (FatalConfigurationError).
func (c Code) Recoverable() bool {
	switch c {
	case ParseError, IOError, FatalConfigurationError:
		return false
	default:
		return true
	}
}

// Error is the Driver's structured error type, wrapping an underlying
// cause with the Code the report and exit-code logic dispatch on.
type Error struct {
	Code    Code
	Message string
	File    string // "" when not file-scoped
	Err     error
}

func (e *Error) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code Code, file, format string, args ...any) *Error {
	return &Error{Code: code, File: file, Message: fmt.Sprintf(format, args...)}
}

func wrapError(code Code, file string, err error) *Error {
	return &Error{Code: code, File: file, Message: err.Error(), Err: err}
}
