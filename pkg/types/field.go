package types

import (
	"errors"
	"io"

	"minidb/pkg/primitives"
)

// ErrMalformed reports bytes that cannot be parsed back into a field. It
// indicates a corrupt page and is never recoverable.
var ErrMalformed = errors.New("malformed field data")

// Field is a single value inside a tuple. Implementations serialise to a
// fixed number of bytes determined by their Type.
type Field interface {
	// Serialize writes exactly Type().Size() bytes to w.
	Serialize(w io.Writer) error

	// Compare applies op between this field and other.
	Compare(op Predicate, other Field) (bool, error)

	// Type returns the type of this field.
	Type() Type

	// Equals reports whether other holds the same value.
	Equals(other Field) bool

	// Hash returns a hash code for this field's value.
	Hash() primitives.HashCode

	String() string
}
