// Package apperr is the error taxonomy shared by every domain package.
//
// Domain packages declare sentinel errors with New and return them with
// WithIDs / Wrap attached. Callers match either the sentinel itself or the
// kind sentinel (ErrConflict, ErrState, ...) with errors.Is.
package apperr

import (
	"errors"
	"strings"
)

type Kind string

const (
	KindValidation Kind = "VALIDATION_ERROR"
	KindConflict   Kind = "CONFLICT"
	KindNotFound   Kind = "NOT_FOUND"
	KindState      Kind = "STATE_ERROR"
	KindPayment    Kind = "PAYMENT_ERROR"
)

// Kind sentinels. errors.Is(err, ErrConflict) is true for any conflict.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrState      = &Error{Kind: KindState}
	ErrPayment    = &Error{Kind: KindPayment}
)

type Error struct {
	Kind    Kind
	Message string
	// IDs names the offending entities (flight, player slot, line item ...).
	IDs []string
	Err error

	base *Error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.IDs) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.IDs, ","))
		b.WriteString("]")
	}
	if e.Err != nil {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message == "" && t.base == nil {
		return t.Kind == e.Kind
	}
	return e.base != nil && (e.base == t || e.base == t.base)
}

// WithIDs returns a copy of e carrying the offending entity ids.
func (e *Error) WithIDs(ids ...string) *Error {
	d := e.derive()
	d.IDs = append(append([]string(nil), e.IDs...), ids...)
	return d
}

// Wrap returns a copy of e with cause attached.
func (e *Error) Wrap(cause error) *Error {
	d := e.derive()
	d.Err = cause
	return d
}

func (e *Error) derive() *Error {
	d := *e
	if d.base == nil {
		d.base = e
	}
	return &d
}

// KindOf reports the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
