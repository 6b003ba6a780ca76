package types

import (
	"encoding/binary"
	"io"
	"strings"

	"github.com/spaolacci/murmur3"

	"minidb/pkg/primitives"
)

// StringField is a fixed-width string field. Values longer than
// StringMaxSize are truncated at construction.
type StringField struct {
	Value string
}

func NewStringField(value string) *StringField {
	if len(value) > StringMaxSize {
		value = value[:StringMaxSize]
	}
	return &StringField{Value: value}
}

// Compare applies op between this field and other. String comparisons are
// lexicographic; Like is a substring match.
func (f *StringField) Compare(op Predicate, other Field) (bool, error) {
	o, ok := other.(*StringField)
	if !ok {
		return false, nil
	}

	cmp := strings.Compare(f.Value, o.Value)
	switch op {
	case Equals:
		return cmp == 0, nil
	case NotEqual:
		return cmp != 0, nil
	case LessThan:
		return cmp < 0, nil
	case LessThanOrEqual:
		return cmp <= 0, nil
	case GreaterThan:
		return cmp > 0, nil
	case GreaterThanOrEqual:
		return cmp >= 0, nil
	case Like:
		return strings.Contains(f.Value, o.Value), nil
	default:
		return false, nil
	}
}

// Serialize writes a 4-byte big-endian length followed by the string bytes
// padded with NUL up to StringMaxSize.
func (f *StringField) Serialize(w io.Writer) error {
	length := min(len(f.Value), StringMaxSize)

	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(length))
	if _, err := w.Write(buf); err != nil {
		return err
	}

	if _, err := w.Write([]byte(f.Value[:length])); err != nil {
		return err
	}

	padding := make([]byte, StringMaxSize-length)
	_, err := w.Write(padding)
	return err
}

func (f *StringField) Type() Type {
	return StringType
}

func (f *StringField) Equals(other Field) bool {
	o, ok := other.(*StringField)
	if !ok {
		return false
	}
	return f.Value == o.Value
}

func (f *StringField) Hash() primitives.HashCode {
	return primitives.HashCode(murmur3.Sum32([]byte(f.Value)))
}

func (f *StringField) String() string {
	return f.Value
}
