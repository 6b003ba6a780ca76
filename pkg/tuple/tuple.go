package tuple

import (
	"fmt"
	"io"
	"strings"

	"minidb/pkg/types"
)

// Tuple represents a row of data: a vector of exactly NumFields field values
// (initially unset) paired with its schema and, once stored, a RecordID.
type Tuple struct {
	TupleDesc *TupleDescription
	fields    []types.Field
	RecordID  *RecordID
}

// NewTuple creates a new tuple with the given schema and all fields unset.
func NewTuple(td *TupleDescription) *Tuple {
	return &Tuple{
		TupleDesc: td,
		fields:    make([]types.Field, td.NumFields()),
	}
}

// SetField assigns the ith field. The field's type must match the
// descriptor's type at that index.
func (t *Tuple) SetField(i int, field types.Field) error {
	if i < 0 || i >= len(t.fields) {
		return fmt.Errorf("field index %d out of bounds [0, %d)", i, len(t.fields))
	}

	expected, _ := t.TupleDesc.TypeAtIndex(i)
	if field.Type() != expected {
		return fmt.Errorf("field type mismatch at index %d: expected %v, got %v",
			i, expected, field.Type())
	}

	t.fields[i] = field
	return nil
}

// GetField returns the value of the ith field, which may be nil if unset.
func (t *Tuple) GetField(i int) (types.Field, error) {
	if i < 0 || i >= len(t.fields) {
		return nil, fmt.Errorf("field index %d out of bounds [0, %d)", i, len(t.fields))
	}
	return t.fields[i], nil
}

// Serialize writes all fields to w in order. Every field must be set; the
// written width is exactly TupleDesc.Size() bytes.
func (t *Tuple) Serialize(w io.Writer) error {
	for i, field := range t.fields {
		if field == nil {
			return fmt.Errorf("cannot serialize tuple: field %d is unset", i)
		}
		if err := field.Serialize(w); err != nil {
			return fmt.Errorf("serializing field %d: %w", i, err)
		}
	}
	return nil
}

// Parse reads one tuple with schema td from r. It is the inverse of
// Serialize and consumes exactly td.Size() bytes on success.
func Parse(r io.Reader, td *TupleDescription) (*Tuple, error) {
	t := NewTuple(td)
	for i := 0; i < td.NumFields(); i++ {
		fieldType, err := td.TypeAtIndex(i)
		if err != nil {
			return nil, err
		}
		field, err := types.ParseField(r, fieldType)
		if err != nil {
			return nil, err
		}
		if err := t.SetField(i, field); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Equals reports whether both tuples have equal descriptors, equal field
// values and equal record ids.
func (t *Tuple) Equals(other *Tuple) bool {
	if other == nil {
		return false
	}
	if !t.TupleDesc.Equals(other.TupleDesc) {
		return false
	}
	for i, field := range t.fields {
		otherField := other.fields[i]
		if field == nil || otherField == nil {
			if field != otherField {
				return false
			}
			continue
		}
		if !field.Equals(otherField) {
			return false
		}
	}
	if t.RecordID == nil || other.RecordID == nil {
		return t.RecordID == other.RecordID
	}
	return t.RecordID.Equals(other.RecordID)
}

// CombineTuples concatenates two tuples into one, as used by joins. The
// result has no RecordID.
func CombineTuples(t1, t2 *Tuple) (*Tuple, error) {
	if t1 == nil || t2 == nil {
		return nil, fmt.Errorf("cannot combine nil tuples")
	}

	combined := NewTuple(Combine(t1.TupleDesc, t2.TupleDesc))
	if err := t1.copyFieldsTo(combined, 0); err != nil {
		return nil, err
	}
	if err := t2.copyFieldsTo(combined, t1.TupleDesc.NumFields()); err != nil {
		return nil, err
	}
	return combined, nil
}

func (t *Tuple) copyFieldsTo(target *Tuple, startIndex int) error {
	for i := 0; i < t.TupleDesc.NumFields(); i++ {
		field, err := t.GetField(i)
		if err != nil {
			return err
		}
		if field != nil {
			if err := target.SetField(startIndex+i, field); err != nil {
				return err
			}
		}
	}
	return nil
}

// String returns a tab-separated representation of the field values.
func (t *Tuple) String() string {
	parts := make([]string, 0, len(t.fields))
	for _, field := range t.fields {
		if field != nil {
			parts = append(parts, field.String())
		} else {
			parts = append(parts, "null")
		}
	}
	return strings.Join(parts, "\t")
}
