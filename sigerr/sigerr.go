// Package sigerr defines the error kinds reported by the signing pipeline.
//
// Every component returns *Error values at its boundary. Callers match on the
// kind with errors.Is against the exported sentinels, or extract it with
// KindOf:
//
//	if errors.Is(err, sigerr.ErrEmptyInput) {
//		// ask the signer to draw something
//	}
package sigerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind int

const (
	KindUnknown Kind = iota
	KindGeometryNotReady
	KindEmptyInput
	KindMissingSignerInfo
	KindFieldPageOutOfRange
	KindSourceDocumentInvalid
	KindImageEmbedFailed
	KindInvalidRecord
	KindInvalidTransition
	KindNotFound
	KindNotComplete
)

var kindNames = map[Kind]string{
	KindUnknown:               "Unknown",
	KindGeometryNotReady:      "GeometryNotReady",
	KindEmptyInput:            "EmptyInput",
	KindMissingSignerInfo:     "MissingSignerInfo",
	KindFieldPageOutOfRange:   "FieldPageOutOfRange",
	KindSourceDocumentInvalid: "SourceDocumentInvalid",
	KindImageEmbedFailed:      "ImageEmbedFailed",
	KindInvalidRecord:         "InvalidRecord",
	KindInvalidTransition:     "InvalidTransition",
	KindNotFound:              "NotFound",
	KindNotComplete:           "NotComplete",
}

// String returns the kind name used in logs and HTTP error bodies.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Sentinels for errors.Is. They carry only a kind.
var (
	ErrGeometryNotReady      = &Error{Kind: KindGeometryNotReady}
	ErrEmptyInput            = &Error{Kind: KindEmptyInput}
	ErrMissingSignerInfo     = &Error{Kind: KindMissingSignerInfo}
	ErrFieldPageOutOfRange   = &Error{Kind: KindFieldPageOutOfRange}
	ErrSourceDocumentInvalid = &Error{Kind: KindSourceDocumentInvalid}
	ErrImageEmbedFailed      = &Error{Kind: KindImageEmbedFailed}
	ErrInvalidRecord         = &Error{Kind: KindInvalidRecord}
	ErrInvalidTransition     = &Error{Kind: KindInvalidTransition}
	ErrNotFound              = &Error{Kind: KindNotFound}
	ErrNotComplete           = &Error{Kind: KindNotComplete}
)

// Error is a classified pipeline error.
type Error struct {
	Kind    Kind
	Message string
	// FieldID names the signature field involved, if any.
	FieldID string
	Err     error
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind around a cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// WithField returns a copy of e naming the field it concerns.
func (e *Error) WithField(id string) *Error {
	c := *e
	c.FieldID = id
	return &c
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.FieldID != "" {
		msg += " (field " + e.FieldID + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
