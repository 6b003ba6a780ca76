package tuple

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minidb/pkg/types"
)

func mustTupleDesc(t *testing.T) *TupleDescription {
	t.Helper()
	td, err := NewTupleDesc(
		[]types.Type{types.IntType, types.StringType},
		[]string{"id", "name"},
	)
	require.NoError(t, err)
	return td
}

func TestSetGetField(t *testing.T) {
	td := mustTupleDesc(t)
	tup := NewTuple(td)

	require.NoError(t, tup.SetField(0, types.NewIntField(42)))
	require.NoError(t, tup.SetField(1, types.NewStringField("ada")))

	f, err := tup.GetField(0)
	require.NoError(t, err)
	assert.True(t, types.NewIntField(42).Equals(f))

	f, err = tup.GetField(1)
	require.NoError(t, err)
	assert.True(t, types.NewStringField("ada").Equals(f))
}

func TestSetFieldTypeMismatch(t *testing.T) {
	tup := NewTuple(mustTupleDesc(t))
	err := tup.SetField(0, types.NewStringField("not an int"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type mismatch")
}

func TestFieldIndexOutOfBounds(t *testing.T) {
	tup := NewTuple(mustTupleDesc(t))

	assert.Error(t, tup.SetField(-1, types.NewIntField(1)))
	assert.Error(t, tup.SetField(2, types.NewIntField(1)))

	_, err := tup.GetField(5)
	assert.Error(t, err)
}

func TestTupleSerializeParseRoundTrip(t *testing.T) {
	td := mustTupleDesc(t)
	tup := NewTuple(td)
	require.NoError(t, tup.SetField(0, types.NewIntField(7)))
	require.NoError(t, tup.SetField(1, types.NewStringField("grace")))

	var buf bytes.Buffer
	require.NoError(t, tup.Serialize(&buf))
	require.Equal(t, int(td.Size()), buf.Len())

	parsed, err := Parse(&buf, td)
	require.NoError(t, err)
	assert.True(t, tup.Equals(parsed))
}

func TestSerializeUnsetField(t *testing.T) {
	tup := NewTuple(mustTupleDesc(t))
	require.NoError(t, tup.SetField(0, types.NewIntField(1)))

	var buf bytes.Buffer
	assert.Error(t, tup.Serialize(&buf))
}

func TestTupleEquals(t *testing.T) {
	td := mustTupleDesc(t)

	build := func(id int32, name string) *Tuple {
		tup := NewTuple(td)
		require.NoError(t, tup.SetField(0, types.NewIntField(id)))
		require.NoError(t, tup.SetField(1, types.NewStringField(name)))
		return tup
	}

	a := build(1, "x")
	b := build(1, "x")
	c := build(2, "x")

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
	assert.False(t, a.Equals(nil))
}

func TestCombineTuples(t *testing.T) {
	td1, _ := NewTupleDesc([]types.Type{types.IntType}, []string{"a"})
	td2, _ := NewTupleDesc([]types.Type{types.IntType}, []string{"b"})

	t1 := NewTuple(td1)
	require.NoError(t, t1.SetField(0, types.NewIntField(1)))
	t2 := NewTuple(td2)
	require.NoError(t, t2.SetField(0, types.NewIntField(2)))

	combined, err := CombineTuples(t1, t2)
	require.NoError(t, err)
	assert.Equal(t, 2, combined.TupleDesc.NumFields())

	f, err := combined.GetField(1)
	require.NoError(t, err)
	assert.True(t, types.NewIntField(2).Equals(f))
	assert.Nil(t, combined.RecordID)
}
