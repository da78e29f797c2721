package annotation

import (
	"errors"
	"fmt"
	"strings"
)

// MalformedError reports a required field that is missing or not a valid
// integer, or a document that is not well-formed XML.
type MalformedError struct {
	// Path is the file the record came from, when known.
	Path string

	// Index is the zero-based object (or detection line) the field belongs
	// to, or -1 for document-level fields such as size.
	Index int

	// Field is the slash-separated element path, e.g. "bndbox/xmin".
	Field string

	// Value is the offending text, empty when the field was absent.
	Value string

	Err error
}

func (e *MalformedError) Error() string {
	var b strings.Builder
	b.WriteString("malformed annotation")
	if e.Path != "" {
		fmt.Fprintf(&b, " %s", e.Path)
	}
	if e.Index >= 0 {
		fmt.Fprintf(&b, ": object %d", e.Index)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": %s", e.Field)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, " %q", e.Value)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// ErrMissingField is the cause recorded for absent fields.
var ErrMissingField = errors.New("field is missing")
