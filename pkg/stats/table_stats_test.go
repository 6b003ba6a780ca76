package stats

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minidb/pkg/catalog"
	"minidb/pkg/concurrency/transaction"
	"minidb/pkg/log"
	"minidb/pkg/memory"
	"minidb/pkg/primitives"
	"minidb/pkg/storage/heap"
	"minidb/pkg/tuple"
	"minidb/pkg/types"
)

// newPopulatedTable builds a table with rows (i, "row-i") for i in 1..n,
// committed, behind a pool and catalog.
func newPopulatedTable(t *testing.T, n int) (*heap.HeapFile, *catalog.Catalog, *memory.BufferPool) {
	t.Helper()
	dir := t.TempDir()

	td, err := tuple.NewTupleDesc(
		[]types.Type{types.IntType, types.StringType},
		[]string{"id", "name"},
	)
	require.NoError(t, err)

	file, err := heap.NewHeapFile(primitives.Filepath(filepath.Join(dir, "t.dat")), td)
	require.NoError(t, err)

	wal, err := log.NewLogFile(filepath.Join(dir, "wal.log"))
	require.NoError(t, err)
	t.Cleanup(func() { wal.Close() })

	cat := catalog.NewCatalog()
	cat.AddTable(file, "t")
	pool := memory.NewBufferPool(memory.DefaultPages, cat, wal)

	tid := transaction.NewTransactionID()
	for i := 1; i <= n; i++ {
		tup := tuple.NewTuple(td)
		require.NoError(t, tup.SetField(0, types.NewIntField(int32(i))))
		require.NoError(t, tup.SetField(1, types.NewStringField(fmt.Sprintf("row-%d", i))))
		require.NoError(t, pool.InsertTuple(tid, file.GetID(), tup))
	}
	require.NoError(t, pool.TransactionComplete(tid, true))

	return file, cat, pool
}

func TestTableStatsCounts(t *testing.T) {
	file, _, pool := newPopulatedTable(t, 100)

	ts, err := NewTableStats(file, pool, IOCostPerPage)
	require.NoError(t, err)

	assert.Equal(t, 100, ts.TotalTuples())

	slots := slotsPerPage(t, file)
	wantPages := (100 + slots - 1) / slots
	assert.Equal(t, wantPages, ts.NumPages())
}

func slotsPerPage(t *testing.T, file *heap.HeapFile) int {
	t.Helper()
	hp, err := heap.NewEmptyHeapPage(heap.NewHeapPageID(file.GetID(), 0), file.GetTupleDesc())
	require.NoError(t, err)
	return hp.NumSlots()
}

func TestEstimateScanCost(t *testing.T) {
	file, _, pool := newPopulatedTable(t, 100)

	ts, err := NewTableStats(file, pool, IOCostPerPage)
	require.NoError(t, err)

	// numPages * ioCostPerPage * 2 under the nested-loop cost model.
	assert.InDelta(t, float64(ts.NumPages()*IOCostPerPage*2), ts.EstimateScanCost(), 1e-9)
}

func TestEstimateTableCardinality(t *testing.T) {
	file, _, pool := newPopulatedTable(t, 100)

	ts, err := NewTableStats(file, pool, IOCostPerPage)
	require.NoError(t, err)

	assert.Equal(t, 50, ts.EstimateTableCardinality(0.5))
	assert.Equal(t, 0, ts.EstimateTableCardinality(0))
	assert.Equal(t, 100, ts.EstimateTableCardinality(1))
	assert.Equal(t, 33, ts.EstimateTableCardinality(1.0/3.0), "cardinality rounds down")
}

func TestEstimateSelectivityIntColumn(t *testing.T) {
	file, _, pool := newPopulatedTable(t, 100)

	ts, err := NewTableStats(file, pool, IOCostPerPage)
	require.NoError(t, err)

	sel, err := ts.EstimateSelectivity(0, types.Equals, types.NewIntField(50))
	require.NoError(t, err)
	assert.InDelta(t, 0.01, sel, 0.005)

	sel, err = ts.EstimateSelectivity(0, types.GreaterThan, types.NewIntField(50))
	require.NoError(t, err)
	assert.InDelta(t, 0.50, sel, 0.02)
}

func TestEstimateSelectivityStringColumn(t *testing.T) {
	file, _, pool := newPopulatedTable(t, 100)

	ts, err := NewTableStats(file, pool, IOCostPerPage)
	require.NoError(t, err)

	sel, err := ts.EstimateSelectivity(1, types.Equals, types.NewStringField("row-1"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sel, 0.0)
	assert.LessOrEqual(t, sel, 1.0)
}

func TestEstimateSelectivityDispatchMismatch(t *testing.T) {
	file, _, pool := newPopulatedTable(t, 10)

	ts, err := NewTableStats(file, pool, IOCostPerPage)
	require.NoError(t, err)

	_, err = ts.EstimateSelectivity(1, types.Equals, types.NewIntField(1))
	assert.Error(t, err, "int constant against a string column")
}

func TestAvgSelectivityDispatch(t *testing.T) {
	file, _, pool := newPopulatedTable(t, 100)

	ts, err := NewTableStats(file, pool, IOCostPerPage)
	require.NoError(t, err)

	for _, field := range []int{0, 1} {
		avg, err := ts.AvgSelectivity(field, types.Equals)
		require.NoError(t, err)
		assert.Greater(t, avg, 0.0)
		assert.LessOrEqual(t, avg, 1.0)
	}
}

func TestStatsScanReleasesLocks(t *testing.T) {
	file, _, pool := newPopulatedTable(t, 10)

	_, err := NewTableStats(file, pool, IOCostPerPage)
	require.NoError(t, err)

	// The stats scan completed its transaction; a writer proceeds at once.
	tid := transaction.NewTransactionID()
	tup := tuple.NewTuple(file.GetTupleDesc())
	require.NoError(t, tup.SetField(0, types.NewIntField(11)))
	require.NoError(t, tup.SetField(1, types.NewStringField("row-11")))
	require.NoError(t, pool.InsertTuple(tid, file.GetID(), tup))
	require.NoError(t, pool.TransactionComplete(tid, true))
}

func TestRegistry(t *testing.T) {
	file, cat, pool := newPopulatedTable(t, 20)

	require.NoError(t, ComputeStatistics(cat, pool))

	ts, ok := GetTableStats("t")
	require.True(t, ok)
	assert.Equal(t, 20, ts.TotalTuples())

	// Re-registration replaces the entry.
	fresh, err := NewTableStats(file, pool, IOCostPerPage)
	require.NoError(t, err)
	SetTableStats("t", fresh)

	got, ok := GetTableStats("t")
	require.True(t, ok)
	assert.Same(t, fresh, got)
}
