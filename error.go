package argv

import (
	"fmt"
)

// Error is implemented by every parse error produced by this package.
//
// Errors are values: parsers never panic across their own boundary, and a
// conversion function that fails is surfaced as a *ConvertError rather than
// unwinding the program.
type Error interface {
	error
	// Message returns the unadorned user-visible message, without any usage
	// prefix.
	Message() string
}

// MissingError is returned when a required token is absent from the input.
type MissingError struct {
	// Missing is the destination or literal that was expected.
	Missing string
	// Described optionally overrides Missing in the rendered message.
	Described string
}

func (e *MissingError) Message() string {
	name := e.Described
	if name == "" {
		name = e.Missing
	}
	return fmt.Sprintf("The following arguments are required: %s", name)
}

func (e *MissingError) Error() string { return e.Message() }

// UnexpectedError is returned when input remains after the parser expected
// end-of-input, or a token could not be recognised.
type UnexpectedError struct {
	Token string
}

func (e *UnexpectedError) Message() string {
	return fmt.Sprintf("Unrecognized argument: %s", e.Token)
}

func (e *UnexpectedError) Error() string { return e.Message() }

// UnequalError is returned when a literal or pattern did not match the next
// token.
type UnequalError struct {
	Want string
	Got  string
}

func (e *UnequalError) Message() string {
	return fmt.Sprintf("Expected '%s'. Got '%s'", e.Want, e.Got)
}

func (e *UnequalError) Error() string { return e.Message() }

// NoMatchError is the generic "no viable alternative" failure. It is the
// zero of the Result alternation and carries no blame for any particular
// token.
type NoMatchError struct {
	// Reason optionally replaces the generic message.
	Reason string
}

func (e *NoMatchError) Message() string {
	if e.Reason != "" {
		return e.Reason
	}
	return "no matching alternative"
}

func (e *NoMatchError) Error() string { return e.Message() }

// HelpError is returned when the user explicitly asked for usage with
// --help or -h. It carries the usage string of the parser that intercepted
// the request.
type HelpError struct {
	Usage string
}

func (e *HelpError) Message() string { return "help requested" }

func (e *HelpError) Error() string { return e.Message() }

// ConvertError wraps a failure from a user-supplied conversion or
// validation function.
type ConvertError struct {
	// Arg is a rendering of the value the conversion was applied to.
	Arg string
	Err error
}

func (e *ConvertError) Message() string {
	return fmt.Sprintf("argument %s: %v", e.Arg, e.Err)
}

func (e *ConvertError) Error() string { return e.Message() }

func (e *ConvertError) Unwrap() error { return e.Err }

// BinaryError records that both branches of an alternation failed. The
// rendered message is the first branch's, blaming the preferred
// alternative.
type BinaryError struct {
	First  error
	Second error
}

func (e *BinaryError) Message() string { return e.First.Error() }

func (e *BinaryError) Error() string { return e.Message() }

func (e *BinaryError) Unwrap() []error { return []error{e.First, e.Second} }

// SuccessError is returned by Fails when the wrapped parser unexpectedly
// succeeded.
type SuccessError struct{}

func (e *SuccessError) Message() string { return "parser unexpectedly succeeded" }

func (e *SuccessError) Error() string { return e.Message() }
