package types

import (
	"encoding/binary"
	"io"
	"strconv"

	"github.com/spaolacci/murmur3"

	"minidb/pkg/primitives"
)

// IntField is a 32-bit signed integer field.
type IntField struct {
	Value int32
}

func NewIntField(value int32) *IntField {
	return &IntField{Value: value}
}

// Serialize writes the value as 4 bytes in network byte order.
func (f *IntField) Serialize(w io.Writer) error {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(f.Value))
	_, err := w.Write(buf)
	return err
}

// Compare applies op between this field and other. Comparing against a field
// of a different type is false for every operator.
func (f *IntField) Compare(op Predicate, other Field) (bool, error) {
	o, ok := other.(*IntField)
	if !ok {
		return false, nil
	}

	switch op {
	case Equals:
		return f.Value == o.Value, nil
	case NotEqual:
		return f.Value != o.Value, nil
	case LessThan:
		return f.Value < o.Value, nil
	case LessThanOrEqual:
		return f.Value <= o.Value, nil
	case GreaterThan:
		return f.Value > o.Value, nil
	case GreaterThanOrEqual:
		return f.Value >= o.Value, nil
	default:
		return false, nil
	}
}

func (f *IntField) Type() Type {
	return IntType
}

func (f *IntField) Equals(other Field) bool {
	o, ok := other.(*IntField)
	if !ok {
		return false
	}
	return f.Value == o.Value
}

func (f *IntField) Hash() primitives.HashCode {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(f.Value))
	return primitives.HashCode(murmur3.Sum32(buf))
}

func (f *IntField) String() string {
	return strconv.FormatInt(int64(f.Value), 10)
}
