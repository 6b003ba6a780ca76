package heap

import (
	"fmt"

	"minidb/pkg/tuple"
)

// HeapPageIterator iterates over the occupied slots of a single HeapPage in
// slot-index order.
type HeapPageIterator struct {
	page    *HeapPage
	tuples  []*tuple.Tuple
	current int
}

// NewHeapPageIterator creates an iterator for the given page.
func NewHeapPageIterator(page *HeapPage) *HeapPageIterator {
	return &HeapPageIterator{
		page:    page,
		current: -1,
	}
}

// Open snapshots the occupied slots and positions before the first tuple.
func (it *HeapPageIterator) Open() error {
	it.tuples = it.page.tuplesSnapshot()
	it.current = -1
	return nil
}

// HasNext reports whether more tuples remain.
func (it *HeapPageIterator) HasNext() (bool, error) {
	return it.current+1 < len(it.tuples), nil
}

// Next returns the next tuple.
func (it *HeapPageIterator) Next() (*tuple.Tuple, error) {
	hasNext, _ := it.HasNext()
	if !hasNext {
		return nil, fmt.Errorf("no more tuples on page %v", it.page.pid)
	}
	it.current++
	return it.tuples[it.current], nil
}

// Rewind resets the iterator to the start of the page.
func (it *HeapPageIterator) Rewind() error {
	return it.Open()
}

// Close releases the snapshot.
func (it *HeapPageIterator) Close() error {
	it.tuples = nil
	it.current = -1
	return nil
}
