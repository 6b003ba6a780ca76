package heap

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"minidb/pkg/concurrency/transaction"
	"minidb/pkg/storage/page"
	"minidb/pkg/tuple"
)

var (
	// ErrPageFull reports an insert into a page with no empty slot.
	ErrPageFull = errors.New("no empty slot on page")

	// ErrNotOnPage reports a delete of a tuple the page does not hold.
	ErrNotOnPage = errors.New("tuple is not on this page")
)

// HeapPage is a single page of a heap file: a header bitmap followed by a
// fixed-width slot array, zero-padded up to the page size.
//
// Page layout:
//   - Header: ceil(numSlots/8) bytes; bit i of byte b maps to slot 8*b+i
//     (least-significant bit first). A set bit means the slot is occupied.
//   - Slot array: numSlots tuple images of exactly tupleWidth bytes each, in
//     slot order; unused slots are zero-filled.
//   - Padding: zero bytes up to the page size.
//
// The number of slots is floor(pageSize*8 / (tupleWidth*8 + 1)): each slot
// costs its tuple width in bits plus one header bit.
type HeapPage struct {
	pid      HeapPageID
	td       *tuple.TupleDescription
	numSlots int
	header   []byte
	tuples   []*tuple.Tuple
	oldData  []byte
	dirtier  *transaction.TransactionID
	mutex    sync.RWMutex
}

// NewHeapPage constructs a page by deserialising raw page data. Unused slots
// advance the byte stream by the tuple width and stay empty.
func NewHeapPage(pid HeapPageID, data []byte, td *tuple.TupleDescription) (*HeapPage, error) {
	if len(data) != page.Size() {
		return nil, fmt.Errorf("invalid page data size: expected %d, got %d", page.Size(), len(data))
	}

	hp := &HeapPage{
		pid: pid,
		td:  td,
	}
	hp.numSlots = numSlotsPerPage(td)
	hp.header = make([]byte, headerSize(hp.numSlots))
	hp.tuples = make([]*tuple.Tuple, hp.numSlots)

	if err := hp.parsePageData(data); err != nil {
		return nil, err
	}

	hp.oldData = make([]byte, len(data))
	copy(hp.oldData, data)
	return hp, nil
}

// NewEmptyHeapPage constructs a page with every slot free, as used when a
// heap file grows.
func NewEmptyHeapPage(pid HeapPageID, td *tuple.TupleDescription) (*HeapPage, error) {
	return NewHeapPage(pid, make([]byte, page.Size()), td)
}

func numSlotsPerPage(td *tuple.TupleDescription) int {
	tupleWidth := int(td.Size())
	return (page.Size() * 8) / (tupleWidth*8 + 1)
}

func headerSize(numSlots int) int {
	return (numSlots + 7) / 8
}

func (hp *HeapPage) parsePageData(data []byte) error {
	copy(hp.header, data[:len(hp.header)])

	tupleWidth := int(hp.td.Size())
	offset := len(hp.header)
	for i := 0; i < hp.numSlots; i++ {
		if !hp.isSlotUsed(i) {
			offset += tupleWidth
			continue
		}

		t, err := tuple.Parse(bytes.NewReader(data[offset:offset+tupleWidth]), hp.td)
		if err != nil {
			return fmt.Errorf("parsing tuple at slot %d of %v: %w", i, hp.pid, err)
		}
		t.RecordID = tuple.NewRecordID(hp.pid, i)
		hp.tuples[i] = t
		offset += tupleWidth
	}
	return nil
}

// GetID returns the id of this page.
func (hp *HeapPage) GetID() tuple.PageID {
	return hp.pid
}

// GetTupleDesc returns the schema of the tuples stored on this page.
func (hp *HeapPage) GetTupleDesc() *tuple.TupleDescription {
	return hp.td
}

// GetPageData serialises the page: header, then each slot (unused slots emit
// tuple-width zero bytes), then zero padding up to the page size. Feeding
// the result back through NewHeapPage reproduces an equivalent page.
func (hp *HeapPage) GetPageData() []byte {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.serialize()
}

func (hp *HeapPage) serialize() []byte {
	data := make([]byte, page.Size())
	copy(data, hp.header)

	tupleWidth := int(hp.td.Size())
	offset := len(hp.header)
	for i := 0; i < hp.numSlots; i++ {
		if hp.tuples[i] != nil {
			buf := bytes.NewBuffer(data[offset:offset])
			_ = hp.tuples[i].Serialize(buf)
		}
		offset += tupleWidth
	}
	return data
}

// InsertTuple places t into the lowest unused slot, sets its header bit and
// assigns t's RecordID. Fails with ErrPageFull when no slot is free.
func (hp *HeapPage) InsertTuple(t *tuple.Tuple) error {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	if !t.TupleDesc.Equals(hp.td) {
		return fmt.Errorf("tuple schema does not match page schema")
	}

	for i := 0; i < hp.numSlots; i++ {
		if hp.isSlotUsed(i) {
			continue
		}
		hp.setSlotUsed(i, true)
		hp.tuples[i] = t
		t.RecordID = tuple.NewRecordID(hp.pid, i)
		return nil
	}
	return fmt.Errorf("%w: %v", ErrPageFull, hp.pid)
}

// DeleteTuple removes t from the page. The tuple's RecordID must name this
// page and a used slot whose stored tuple equals t; otherwise the delete
// fails with ErrNotOnPage.
func (hp *HeapPage) DeleteTuple(t *tuple.Tuple) error {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	rid := t.RecordID
	if rid == nil || !rid.PageID.Equals(hp.pid) {
		return fmt.Errorf("%w: %v", ErrNotOnPage, hp.pid)
	}

	slot := rid.SlotNum
	if slot < 0 || slot >= hp.numSlots || !hp.isSlotUsed(slot) {
		return fmt.Errorf("%w: slot %d is not in use", ErrNotOnPage, slot)
	}
	if hp.tuples[slot] == nil || !hp.tuples[slot].Equals(t) {
		return fmt.Errorf("%w: stored tuple differs", ErrNotOnPage)
	}

	hp.setSlotUsed(slot, false)
	hp.tuples[slot] = nil
	t.RecordID = nil
	return nil
}

// GetNumEmptySlots returns the count of unoccupied slots on this page.
func (hp *HeapPage) GetNumEmptySlots() int {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	empty := 0
	for i := 0; i < hp.numSlots; i++ {
		if !hp.isSlotUsed(i) {
			empty++
		}
	}
	return empty
}

// NumSlots returns the total number of slots on this page.
func (hp *HeapPage) NumSlots() int {
	return hp.numSlots
}

// IsSlotUsed tests header bit i.
func (hp *HeapPage) IsSlotUsed(i int) bool {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.isSlotUsed(i)
}

func (hp *HeapPage) isSlotUsed(i int) bool {
	if i < 0 || i >= hp.numSlots {
		return false
	}
	return hp.header[i/8]&(1<<(i%8)) != 0
}

func (hp *HeapPage) setSlotUsed(i int, used bool) {
	if used {
		hp.header[i/8] |= 1 << (i % 8)
	} else {
		hp.header[i/8] &^= 1 << (i % 8)
	}
}

// MarkDirty sets or clears the dirtying transaction.
func (hp *HeapPage) MarkDirty(dirty bool, tid *transaction.TransactionID) {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	if dirty {
		hp.dirtier = tid
	} else {
		hp.dirtier = nil
	}
}

// IsDirty returns the transaction that last dirtied this page, or nil.
func (hp *HeapPage) IsDirty() *transaction.TransactionID {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.dirtier
}

// SetBeforeImage snapshots the current serialised contents for rollback.
func (hp *HeapPage) SetBeforeImage() {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()
	hp.oldData = hp.serialize()
}

// GetBeforeImage reconstructs the page as of the last SetBeforeImage call.
func (hp *HeapPage) GetBeforeImage() page.Page {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	before, err := NewHeapPage(hp.pid, hp.oldData, hp.td)
	if err != nil {
		return nil
	}
	return before
}

// Iterator returns an iterator over the occupied slots in slot-index order.
// Mutating the page while iterating is undefined.
func (hp *HeapPage) Iterator() *HeapPageIterator {
	return NewHeapPageIterator(hp)
}

// tuplesSnapshot returns the occupied tuples in slot order.
func (hp *HeapPage) tuplesSnapshot() []*tuple.Tuple {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	out := make([]*tuple.Tuple, 0, hp.numSlots)
	for _, t := range hp.tuples {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}
