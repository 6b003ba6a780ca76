package types

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeSize(t *testing.T) {
	assert.Equal(t, uint32(4), IntType.Size())
	assert.Equal(t, uint32(4+StringMaxSize), StringType.Size())
}

func TestIntFieldCompare(t *testing.T) {
	tests := []struct {
		name string
		a    int32
		op   Predicate
		b    int32
		want bool
	}{
		{"equals true", 5, Equals, 5, true},
		{"equals false", 5, Equals, 6, false},
		{"not equal", 5, NotEqual, 6, true},
		{"less than", 5, LessThan, 6, true},
		{"less than false", 6, LessThan, 5, false},
		{"less or equal boundary", 5, LessThanOrEqual, 5, true},
		{"greater than", 7, GreaterThan, 5, true},
		{"greater or equal boundary", 5, GreaterThanOrEqual, 5, true},
		{"negative values", -3, LessThan, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewIntField(tt.a).Compare(tt.op, NewIntField(tt.b))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntFieldCompareWrongType(t *testing.T) {
	got, err := NewIntField(1).Compare(Equals, NewStringField("1"))
	require.NoError(t, err)
	assert.False(t, got)
}

func TestStringFieldCompare(t *testing.T) {
	tests := []struct {
		name string
		a    string
		op   Predicate
		b    string
		want bool
	}{
		{"equals", "abc", Equals, "abc", true},
		{"lexicographic less", "abc", LessThan, "abd", true},
		{"lexicographic greater", "b", GreaterThan, "a", true},
		{"like substring", "database", Like, "tab", true},
		{"like miss", "database", Like, "xyz", false},
		{"not equal", "a", NotEqual, "b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewStringField(tt.a).Compare(tt.op, NewStringField(tt.b))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntFieldSerializeParseRoundTrip(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 42, -2147483648, 2147483647} {
		var buf bytes.Buffer
		require.NoError(t, NewIntField(v).Serialize(&buf))
		require.Equal(t, int(IntType.Size()), buf.Len())

		parsed, err := ParseField(&buf, IntType)
		require.NoError(t, err)
		assert.True(t, NewIntField(v).Equals(parsed))
	}
}

func TestStringFieldSerializeParseRoundTrip(t *testing.T) {
	for _, v := range []string{"", "a", "hello world", "exactly"} {
		var buf bytes.Buffer
		require.NoError(t, NewStringField(v).Serialize(&buf))
		require.Equal(t, int(StringType.Size()), buf.Len())

		parsed, err := ParseField(&buf, StringType)
		require.NoError(t, err)
		assert.True(t, NewStringField(v).Equals(parsed))
	}
}

func TestStringFieldTruncation(t *testing.T) {
	long := make([]byte, StringMaxSize+10)
	for i := range long {
		long[i] = 'x'
	}
	f := NewStringField(string(long))
	assert.Len(t, f.Value, StringMaxSize)
}

func TestParseFieldMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		typ  Type
	}{
		{"truncated int", []byte{1, 2}, IntType},
		{"truncated string header", []byte{0, 0}, StringType},
		{"oversized string length", []byte{0xff, 0xff, 0xff, 0xff}, StringType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseField(bytes.NewReader(tt.data), tt.typ)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestFieldHashStable(t *testing.T) {
	assert.Equal(t, NewIntField(7).Hash(), NewIntField(7).Hash())
	assert.NotEqual(t, NewIntField(7).Hash(), NewIntField(8).Hash())
	assert.Equal(t, NewStringField("x").Hash(), NewStringField("x").Hash())
}
