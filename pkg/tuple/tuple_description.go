package tuple

import (
	"fmt"
	"strings"

	"minidb/pkg/types"
)

// TupleDescription describes the schema of a tuple: an ordered sequence of
// (type, optional name) items. Descriptions are immutable after construction.
type TupleDescription struct {
	Types      []types.Type
	FieldNames []string
}

// NewTupleDesc creates a new TupleDescription given field types and optional
// field names. If fieldNames is nil, every field is anonymous.
//
// Parameters:
//   - fieldTypes: slice of field types (must contain at least one element)
//   - fieldNames: optional field names (must match fieldTypes length if provided)
//
// Returns:
//   - *TupleDescription: newly created descriptor
//   - error: if fieldTypes is empty or the name count doesn't match
func NewTupleDesc(fieldTypes []types.Type, fieldNames []string) (*TupleDescription, error) {
	if len(fieldTypes) < 1 {
		return nil, fmt.Errorf("must provide at least one field type")
	}

	typesCopy := make([]types.Type, len(fieldTypes))
	copy(typesCopy, fieldTypes)

	var namesCopy []string
	if fieldNames != nil {
		if len(fieldNames) != len(fieldTypes) {
			return nil, fmt.Errorf("field names length (%d) must match field types length (%d)",
				len(fieldNames), len(fieldTypes))
		}
		namesCopy = make([]string, len(fieldNames))
		copy(namesCopy, fieldNames)
	}

	return &TupleDescription{
		Types:      typesCopy,
		FieldNames: namesCopy,
	}, nil
}

// NumFields returns the number of fields in this descriptor.
func (td *TupleDescription) NumFields() int {
	return len(td.Types)
}

// TypeAtIndex returns the type of the ith field.
func (td *TupleDescription) TypeAtIndex(i int) (types.Type, error) {
	if i < 0 || i >= len(td.Types) {
		return 0, fmt.Errorf("field index %d out of bounds [0, %d)", i, len(td.Types))
	}
	return td.Types[i], nil
}

// FieldName returns the name of the ith field, or the empty string when the
// field is anonymous.
func (td *TupleDescription) FieldName(i int) (string, error) {
	if i < 0 || i >= len(td.Types) {
		return "", fmt.Errorf("field index %d out of bounds [0, %d)", i, len(td.Types))
	}
	if td.FieldNames == nil {
		return "", nil
	}
	return td.FieldNames[i], nil
}

// Size returns the width in bytes of tuples with this schema: the sum of the
// serialised widths of all field types.
func (td *TupleDescription) Size() uint32 {
	var size uint32
	for _, fieldType := range td.Types {
		size += fieldType.Size()
	}
	return size
}

// FindFieldIndex returns the first index whose name equals fieldName.
// Anonymous fields never match a non-empty name.
func (td *TupleDescription) FindFieldIndex(fieldName string) (int, error) {
	for i := 0; i < td.NumFields(); i++ {
		name, _ := td.FieldName(i)
		if fieldName != "" && name == "" {
			continue
		}
		if name == fieldName {
			return i, nil
		}
	}
	return -1, fmt.Errorf("column %s not found", fieldName)
}

// Equals reports whether two descriptors carry the same field types in the
// same order. Field names are not compared.
func (td *TupleDescription) Equals(other *TupleDescription) bool {
	if other == nil {
		return false
	}
	if len(td.Types) != len(other.Types) {
		return false
	}
	for i, fieldType := range td.Types {
		if fieldType != other.Types[i] {
			return false
		}
	}
	return true
}

// String returns a string representation of this descriptor.
// Format: "Type1(name1),Type2(name2),..."
func (td *TupleDescription) String() string {
	parts := make([]string, 0, len(td.Types))
	for i, fieldType := range td.Types {
		name := "null"
		if td.FieldNames != nil && td.FieldNames[i] != "" {
			name = td.FieldNames[i]
		}
		parts = append(parts, fmt.Sprintf("%s(%s)", fieldType, name))
	}
	return strings.Join(parts, ",")
}

// Combine merges two descriptors into one holding all fields of td1 followed
// by all fields of td2, names carried through (anonymous fields stay
// anonymous). If either descriptor is nil the other is returned.
func Combine(td1, td2 *TupleDescription) *TupleDescription {
	if td1 == nil {
		return td2
	}
	if td2 == nil {
		return td1
	}

	newTypes := make([]types.Type, 0, len(td1.Types)+len(td2.Types))
	newTypes = append(newTypes, td1.Types...)
	newTypes = append(newTypes, td2.Types...)

	var newNames []string
	if td1.FieldNames != nil || td2.FieldNames != nil {
		newNames = make([]string, 0, len(newTypes))
		newNames = appendNames(newNames, td1)
		newNames = appendNames(newNames, td2)
	}

	combined, _ := NewTupleDesc(newTypes, newNames)
	return combined
}

func appendNames(names []string, td *TupleDescription) []string {
	if td.FieldNames != nil {
		return append(names, td.FieldNames...)
	}
	for range td.Types {
		names = append(names, "")
	}
	return names
}
