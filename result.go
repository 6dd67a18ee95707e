package argv

import (
	"errors"
)

// A Parse pairs the value produced by a parser with the suffix of the input
// it did not consume. Unparsed is always a suffix of the input handed to the
// producing parser; it is narrowed, never rewritten.
type Parse[T any] struct {
	Parsed   T
	Unparsed Sequence[string]
}

// A Result is the outcome of applying a parser: either one or more tied
// candidate values, or a single terminal error. A successful Result always
// holds at least one candidate.
type Result[T any] struct {
	candidates []T
	err        error
}

// Success wraps a single value as the sole candidate of a successful Result.
func Success[T any](v T) Result[T] {
	return Result[T]{candidates: []T{v}}
}

// Failure wraps a terminal error. A nil err is replaced by the generic
// *NoMatchError.
func Failure[T any](err error) Result[T] {
	if err == nil {
		err = &NoMatchError{}
	}
	return Result[T]{err: err}
}

// Err returns the terminal error, or nil if the Result succeeded.
func (r Result[T]) Err() error { return r.err }

// Values returns the candidate values in order, or nil on failure.
func (r Result[T]) Values() []T {
	if r.err != nil {
		return nil
	}
	return r.candidates
}

// First returns the canonical (first) candidate. ok is false on failure.
func (r Result[T]) First() (v T, ok bool) {
	if r.err != nil {
		return v, false
	}
	return r.candidates[0], true
}

// Or is the ordered union of two Results. When both succeed the candidate
// lists are concatenated, left side first; a lone success wins over a
// failure; when both fail, a help request on either side takes priority and
// otherwise the failures combine into a *BinaryError whose rendered message
// is the first error's.
func (r Result[T]) Or(other Result[T]) Result[T] {
	switch {
	case r.err == nil && other.err == nil:
		out := make([]T, 0, len(r.candidates)+len(other.candidates))
		out = append(out, r.candidates...)
		out = append(out, other.candidates...)
		return Result[T]{candidates: out}
	case r.err == nil:
		return r
	case other.err == nil:
		return other
	}
	var help *HelpError
	if errors.As(r.err, &help) {
		return r
	}
	if errors.As(other.err, &help) {
		return other
	}
	return Failure[T](&BinaryError{First: r.err, Second: other.err})
}

// BindResult chains a continuation through a Result. A failure
// short-circuits. On success the continuation runs against every candidate
// and the successful outcomes are concatenated in order; if no candidate's
// continuation succeeds, the error from the first candidate is surfaced so
// the caller sees a representative diagnostic instead of a bare failure.
func BindResult[A, B any](r Result[A], f func(A) Result[B]) Result[B] {
	if r.err != nil {
		return Result[B]{err: r.err}
	}
	var out []B
	var firstErr error
	for i, a := range r.candidates {
		rb := f(a)
		if rb.err == nil {
			out = append(out, rb.candidates...)
		} else if i == 0 {
			firstErr = rb.err
		}
	}
	if len(out) == 0 {
		if firstErr == nil {
			// The first candidate succeeded but produced no values, which
			// Success and Failure make unrepresentable.
			firstErr = &NoMatchError{}
		}
		return Result[B]{err: firstErr}
	}
	return Result[B]{candidates: out}
}
