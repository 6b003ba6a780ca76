package lock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minidb/pkg/concurrency/transaction"
	"minidb/pkg/primitives"
	"minidb/pkg/tuple"
)

// pageID is a minimal value-type PageID for exercising the table without
// pulling in the heap package.
type pageID struct {
	table primitives.TableID
	num   primitives.PageNumber
}

func (p pageID) TableID() primitives.TableID   { return p.table }
func (p pageID) PageNo() primitives.PageNumber { return p.num }
func (p pageID) HashCode() primitives.HashCode { return primitives.HashCode(uint32(p.table)<<8 | uint32(p.num)) }
func (p pageID) String() string                { return "test-page" }
func (p pageID) Equals(other tuple.PageID) bool {
	return other != nil && p.table == other.TableID() && p.num == other.PageNo()
}

func TestLockFreshPage(t *testing.T) {
	tests := []struct {
		name string
		perm primitives.Permissions
	}{
		{"shared", primitives.ReadOnly},
		{"exclusive", primitives.ReadWrite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := NewTable()
			tid := transaction.NewTransactionID()
			pid := pageID{1, 0}

			require.True(t, table.Lock(pid, tid, tt.perm))
			assert.True(t, table.HoldsLock(tid, pid))
			assert.True(t, table.IsPageLocked(pid))
		})
	}
}

func TestSharedHoldersCoexist(t *testing.T) {
	table := NewTable()
	pid := pageID{1, 0}
	a := transaction.NewTransactionID()
	b := transaction.NewTransactionID()

	require.True(t, table.Lock(pid, a, primitives.ReadOnly))
	require.True(t, table.Lock(pid, b, primitives.ReadOnly))

	assert.True(t, table.HoldsLock(a, pid))
	assert.True(t, table.HoldsLock(b, pid))
}

func TestExclusiveExcludesAll(t *testing.T) {
	table := NewTable()
	pid := pageID{1, 0}
	a := transaction.NewTransactionID()
	b := transaction.NewTransactionID()

	require.True(t, table.Lock(pid, a, primitives.ReadWrite))

	assert.False(t, table.Lock(pid, b, primitives.ReadOnly))
	assert.False(t, table.Lock(pid, b, primitives.ReadWrite))
	assert.False(t, table.HoldsLock(b, pid))
}

func TestSharedBlocksExclusiveFromOthers(t *testing.T) {
	table := NewTable()
	pid := pageID{1, 0}
	a := transaction.NewTransactionID()
	b := transaction.NewTransactionID()

	require.True(t, table.Lock(pid, a, primitives.ReadOnly))
	assert.False(t, table.Lock(pid, b, primitives.ReadWrite))
}

func TestReentrantSameMode(t *testing.T) {
	table := NewTable()
	pid := pageID{1, 0}
	tid := transaction.NewTransactionID()

	require.True(t, table.Lock(pid, tid, primitives.ReadOnly))
	require.True(t, table.Lock(pid, tid, primitives.ReadOnly))

	h, ok := table.HolderState(tid, pid)
	require.True(t, ok)
	assert.Equal(t, 2, h.Share)
	assert.Equal(t, 0, h.Exclusive)
}

func TestUpgradeSharedToExclusive(t *testing.T) {
	table := NewTable()
	pid := pageID{1, 0}
	tid := transaction.NewTransactionID()

	require.True(t, table.Lock(pid, tid, primitives.ReadOnly))
	require.True(t, table.Lock(pid, tid, primitives.ReadWrite), "sole holder upgrades immediately")

	h, ok := table.HolderState(tid, pid)
	require.True(t, ok)
	assert.Equal(t, 0, h.Share)
	assert.Equal(t, 1, h.Exclusive, "share count transfers into the exclusive counter")
}

func TestUpgradeRefusedWithOtherHolders(t *testing.T) {
	table := NewTable()
	pid := pageID{1, 0}
	a := transaction.NewTransactionID()
	b := transaction.NewTransactionID()

	require.True(t, table.Lock(pid, a, primitives.ReadOnly))
	require.True(t, table.Lock(pid, b, primitives.ReadOnly))

	assert.False(t, table.Lock(pid, a, primitives.ReadWrite))
}

func TestDowngradeExclusiveToShared(t *testing.T) {
	table := NewTable()
	pid := pageID{1, 0}
	tid := transaction.NewTransactionID()

	require.True(t, table.Lock(pid, tid, primitives.ReadWrite))
	require.True(t, table.Lock(pid, tid, primitives.ReadOnly))

	h, ok := table.HolderState(tid, pid)
	require.True(t, ok)
	assert.Equal(t, 1, h.Share)
	assert.Equal(t, 0, h.Exclusive)
}

func TestUnlockDecrementsThenRemoves(t *testing.T) {
	table := NewTable()
	pid := pageID{1, 0}
	tid := transaction.NewTransactionID()

	require.True(t, table.Lock(pid, tid, primitives.ReadOnly))
	require.True(t, table.Lock(pid, tid, primitives.ReadOnly))

	table.Unlock(pid, tid)
	assert.True(t, table.HoldsLock(tid, pid), "one re-entry remains")

	table.Unlock(pid, tid)
	assert.False(t, table.HoldsLock(tid, pid))
	assert.False(t, table.IsPageLocked(pid))
}

func TestReleasePageDropsWholeHolder(t *testing.T) {
	table := NewTable()
	pid := pageID{1, 0}
	tid := transaction.NewTransactionID()

	require.True(t, table.Lock(pid, tid, primitives.ReadOnly))
	require.True(t, table.Lock(pid, tid, primitives.ReadOnly))

	table.ReleasePage(tid, pid)
	assert.False(t, table.HoldsLock(tid, pid))
}

func TestReleaseAll(t *testing.T) {
	table := NewTable()
	tid := transaction.NewTransactionID()
	other := transaction.NewTransactionID()
	p0 := pageID{1, 0}
	p1 := pageID{1, 1}

	require.True(t, table.Lock(p0, tid, primitives.ReadWrite))
	require.True(t, table.Lock(p1, tid, primitives.ReadOnly))
	require.True(t, table.Lock(p1, other, primitives.ReadOnly))

	table.ReleaseAll(tid)

	assert.False(t, table.HoldsLock(tid, p0))
	assert.False(t, table.HoldsLock(tid, p1))
	assert.True(t, table.HoldsLock(other, p1), "other holders survive")
}

func TestExclusionInvariant(t *testing.T) {
	// At most one holder with Exclusive > 0, and when one exists it is
	// the only holder.
	table := NewTable()
	pid := pageID{1, 0}
	a := transaction.NewTransactionID()
	b := transaction.NewTransactionID()

	require.True(t, table.Lock(pid, a, primitives.ReadWrite))
	require.False(t, table.Lock(pid, b, primitives.ReadOnly))

	h, ok := table.HolderState(a, pid)
	require.True(t, ok)
	assert.Positive(t, h.Exclusive)
	_, otherExists := table.HolderState(b, pid)
	assert.False(t, otherExists)
}
