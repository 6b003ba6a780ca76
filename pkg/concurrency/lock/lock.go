// Package lock implements the page-level lock table the buffer pool owns.
//
// The table is pure state: Lock never blocks, it either installs or refuses
// a holder. Waiting (and the timeout that doubles as deadlock avoidance) is
// the caller's responsibility.
package lock

import (
	"github.com/sasha-s/go-deadlock"

	"minidb/pkg/concurrency/transaction"
	"minidb/pkg/primitives"
	"minidb/pkg/tuple"
)

// Holder records one transaction's grip on a page as a pair of re-entrancy
// counters. At most one of the two is non-zero outside of an upgrade or
// downgrade, which transfers the count atomically.
type Holder struct {
	Share     int
	Exclusive int
}

func newHolder(perm primitives.Permissions) *Holder {
	if perm == primitives.ReadWrite {
		return &Holder{Exclusive: 1}
	}
	return &Holder{Share: 1}
}

// reenter handles a repeat request by the holder. The same mode as held
// increments its counter; a different mode transfers the held count into
// the requested mode atomically: shared→exclusive is an upgrade,
// exclusive→shared a downgrade.
func (h *Holder) reenter(perm primitives.Permissions) {
	if perm == primitives.ReadWrite {
		if h.Exclusive > 0 {
			h.Exclusive++
		} else {
			h.Exclusive = h.Share
			h.Share = 0
		}
		return
	}
	if h.Exclusive > 0 {
		h.Share = h.Exclusive
		h.Exclusive = 0
	} else {
		h.Share++
	}
}

// Table is the per-page holder table. One mutex guards every mutation.
type Table struct {
	mutex   deadlock.Mutex
	holders map[tuple.PageID]map[*transaction.TransactionID]*Holder
}

// NewTable creates an empty lock table.
func NewTable() *Table {
	return &Table{
		holders: make(map[tuple.PageID]map[*transaction.TransactionID]*Holder),
	}
}

// Lock attempts to acquire perm on pid for tid without waiting. It returns
// true on success:
//
//  1. No holder on pid: install (tid, perm) with its counter at 1.
//  2. tid is the sole holder: re-enter, upgrading or downgrading as needed.
//  3. Read-only request and every holder is purely shared: join.
//  4. Otherwise: refuse.
func (t *Table) Lock(pid tuple.PageID, tid *transaction.TransactionID, perm primitives.Permissions) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	holders := t.holders[pid]
	if len(holders) == 0 {
		t.holders[pid] = map[*transaction.TransactionID]*Holder{tid: newHolder(perm)}
		return true
	}

	if h, ok := holders[tid]; ok && len(holders) == 1 {
		h.reenter(perm)
		return true
	}

	if perm == primitives.ReadOnly && allShared(holders) {
		holders[tid] = newHolder(primitives.ReadOnly)
		return true
	}

	return false
}

func allShared(holders map[*transaction.TransactionID]*Holder) bool {
	for _, h := range holders {
		if h.Exclusive > 0 {
			return false
		}
	}
	return true
}

// Unlock decrements the first non-zero of tid's share or exclusive counter
// on pid. When both reach zero the holder is removed, and when the page's
// holder map empties its entry is dropped.
func (t *Table) Unlock(pid tuple.PageID, tid *transaction.TransactionID) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	holders, ok := t.holders[pid]
	if !ok {
		return
	}
	h, ok := holders[tid]
	if !ok {
		return
	}

	if h.Share > 0 {
		h.Share--
	} else if h.Exclusive > 0 {
		h.Exclusive--
	}
	if h.Share == 0 && h.Exclusive == 0 {
		delete(holders, tid)
	}
	if len(holders) == 0 {
		delete(t.holders, pid)
	}
}

// ReleasePage drops tid's holder entry on pid entirely, regardless of
// counts. This backs the pool's unsafe release path.
func (t *Table) ReleasePage(tid *transaction.TransactionID, pid tuple.PageID) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.dropHolder(pid, tid)
}

// ReleaseAll removes tid from every page's holder set, as done when the
// transaction completes.
func (t *Table) ReleaseAll(tid *transaction.TransactionID) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	for pid := range t.holders {
		t.dropHolder(pid, tid)
	}
}

func (t *Table) dropHolder(pid tuple.PageID, tid *transaction.TransactionID) {
	holders, ok := t.holders[pid]
	if !ok {
		return
	}
	delete(holders, tid)
	if len(holders) == 0 {
		delete(t.holders, pid)
	}
}

// ReleaseAllForPage drops every holder of pid, as done when the page is
// discarded from the pool.
func (t *Table) ReleaseAllForPage(pid tuple.PageID) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	delete(t.holders, pid)
}

// HoldsLock reports whether tid currently holds any lock on pid.
func (t *Table) HoldsLock(tid *transaction.TransactionID, pid tuple.PageID) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	holders, ok := t.holders[pid]
	if !ok {
		return false
	}
	_, ok = holders[tid]
	return ok
}

// IsPageLocked reports whether pid has at least one holder.
func (t *Table) IsPageLocked(pid tuple.PageID) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return len(t.holders[pid]) > 0
}

// HolderState returns a copy of tid's counters on pid and whether a holder
// exists. Intended for introspection and tests.
func (t *Table) HolderState(tid *transaction.TransactionID, pid tuple.PageID) (Holder, bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	holders, ok := t.holders[pid]
	if !ok {
		return Holder{}, false
	}
	h, ok := holders[tid]
	if !ok {
		return Holder{}, false
	}
	return *h, true
}
