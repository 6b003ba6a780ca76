package heap

import (
	"errors"
	"fmt"

	"minidb/pkg/concurrency/transaction"
	"minidb/pkg/primitives"
	"minidb/pkg/storage/page"
	"minidb/pkg/tuple"
)

// ErrIteratorClosed reports Next or HasNext on an iterator that is not open.
var ErrIteratorClosed = errors.New("iterator not opened")

// HeapFileIterator yields every tuple of a heap file in ascending
// (pageNumber, slot) order. Pages are retrieved through the buffer pool
// under the caller's transaction id with read-only permission, so the
// iterator holds no page pin of its own between Next calls.
type HeapFileIterator struct {
	file        *HeapFile
	tid         *transaction.TransactionID
	pool        page.Fetcher
	currentPage int
	pageIter    *HeapPageIterator
	isOpen      bool
}

// NewHeapFileIterator creates an iterator for the given heap file.
func NewHeapFileIterator(file *HeapFile, tid *transaction.TransactionID, pool page.Fetcher) *HeapFileIterator {
	return &HeapFileIterator{
		file:        file,
		tid:         tid,
		pool:        pool,
		currentPage: -1,
	}
}

// Open initialises the iterator and positions it before the first tuple.
func (it *HeapFileIterator) Open() error {
	it.currentPage = -1
	it.pageIter = nil
	it.isOpen = true
	return it.moveToNextPage()
}

// HasNext reports whether more tuples remain.
func (it *HeapFileIterator) HasNext() (bool, error) {
	if !it.isOpen {
		return false, ErrIteratorClosed
	}

	for {
		if it.pageIter == nil {
			return false, nil
		}
		hasNext, err := it.pageIter.HasNext()
		if err != nil {
			return false, err
		}
		if hasNext {
			return true, nil
		}
		if err := it.moveToNextPage(); err != nil {
			return false, err
		}
	}
}

// Next returns the next tuple.
func (it *HeapFileIterator) Next() (*tuple.Tuple, error) {
	if !it.isOpen {
		return nil, ErrIteratorClosed
	}

	hasNext, err := it.HasNext()
	if err != nil {
		return nil, err
	}
	if !hasNext {
		return nil, fmt.Errorf("no more tuples in table %d", it.file.GetID())
	}
	return it.pageIter.Next()
}

// Rewind is equivalent to Close followed by Open.
func (it *HeapFileIterator) Rewind() error {
	if err := it.Close(); err != nil {
		return err
	}
	return it.Open()
}

// Close releases iterator state; Next after Close fails until reopened.
func (it *HeapFileIterator) Close() error {
	if it.pageIter != nil {
		_ = it.pageIter.Close()
		it.pageIter = nil
	}
	it.isOpen = false
	return nil
}

// moveToNextPage advances to the next page, leaving pageIter nil when the
// file is exhausted.
func (it *HeapFileIterator) moveToNextPage() error {
	numPages, err := it.file.NumPages()
	if err != nil {
		return err
	}

	it.currentPage++
	if it.currentPage >= numPages {
		it.pageIter = nil
		return nil
	}

	pid := NewHeapPageID(it.file.GetID(), primitives.PageNumber(it.currentPage))
	pg, err := it.pool.GetPage(it.tid, pid, primitives.ReadOnly)
	if err != nil {
		return err
	}

	hp, ok := pg.(*HeapPage)
	if !ok {
		return fmt.Errorf("page %v is not a heap page", pid)
	}

	it.pageIter = hp.Iterator()
	return it.pageIter.Open()
}
