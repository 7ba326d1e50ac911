// Package modelerr defines the typed failures raised by the projection and
// valuation engine. Defaulting happens only at ingestion; once an assumption
// set is complete every structural violation surfaces as one of these kinds.
package modelerr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies an engine failure.
type Kind string

const (
	KindMalformedInput        Kind = "MALFORMED_INPUT"
	KindInvalidAssumptions    Kind = "INVALID_ASSUMPTIONS"
	KindInvalidValuationInput Kind = "INVALID_VALUATION_INPUT"
)

// Sentinels for errors.Is matching. They carry only the kind.
var (
	ErrMalformedInput        = &Error{Kind: KindMalformedInput}
	ErrInvalidAssumptions    = &Error{Kind: KindInvalidAssumptions}
	ErrInvalidValuationInput = &Error{Kind: KindInvalidValuationInput}
)

// Error is the engine error carrier. Params holds the triggering parameter
// values so the presentation layer can show them next to the message.
type Error struct {
	Kind   Kind
	Op     string
	Msg    string
	Params map[string]interface{}
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	if e.Op != "" {
		sb.WriteString(" [")
		sb.WriteString(e.Op)
		sb.WriteString("]")
	}
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if len(e.Params) > 0 {
		keys := make([]string, 0, len(e.Params))
		for k := range e.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Params[k]))
		}
		sb.WriteString(" (")
		sb.WriteString(strings.Join(parts, ", "))
		sb.WriteString(")")
	}
	return sb.String()
}

// Is matches any *Error of the same kind, so sentinels work through wrapping.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// With returns a copy of e carrying an extra parameter.
func (e *Error) With(key string, value interface{}) *Error {
	params := make(map[string]interface{}, len(e.Params)+1)
	for k, v := range e.Params {
		params[k] = v
	}
	params[key] = value
	cp := *e
	cp.Params = params
	return &cp
}

func newError(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// MalformedInput reports historical data that cannot be read as optional numerics.
func MalformedInput(op, format string, args ...interface{}) *Error {
	return newError(KindMalformedInput, op, format, args...)
}

// InvalidAssumptions reports an incomplete assumption set or a bad horizon.
func InvalidAssumptions(op, format string, args ...interface{}) *Error {
	return newError(KindInvalidAssumptions, op, format, args...)
}

// InvalidValuationInput reports an empty cash-flow series or a discount rate <= -1.
func InvalidValuationInput(op, format string, args ...interface{}) *Error {
	return newError(KindInvalidValuationInput, op, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
