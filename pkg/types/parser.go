package types

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ParseField reads and parses one field of the given type from r. It is the
// inverse of Field.Serialize and always consumes exactly fieldType.Size()
// bytes on success.
func ParseField(r io.Reader, fieldType Type) (Field, error) {
	switch fieldType {
	case IntType:
		return parseIntField(r)
	case StringType:
		return parseStringField(r)
	default:
		return nil, fmt.Errorf("%w: unsupported field type %v", ErrMalformed, fieldType)
	}
}

func parseIntField(r io.Reader) (Field, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: reading int field: %v", ErrMalformed, err)
	}
	return NewIntField(int32(binary.BigEndian.Uint32(buf))), nil
}

func parseStringField(r io.Reader) (Field, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: reading string length: %v", ErrMalformed, err)
	}

	length := binary.BigEndian.Uint32(buf)
	if length > StringMaxSize {
		return nil, fmt.Errorf("%w: string length %d exceeds maximum %d", ErrMalformed, length, StringMaxSize)
	}

	payload := make([]byte, StringMaxSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: reading string payload: %v", ErrMalformed, err)
	}

	return NewStringField(string(payload[:length])), nil
}
