package page

import (
	"minidb/pkg/concurrency/transaction"
	"minidb/pkg/primitives"
	"minidb/pkg/tuple"
)

// Fetcher hands out pages under a transaction id with a requested
// permission. The buffer pool is the canonical implementation; file-level
// operations go through it so that locking, caching and dirty tracking see
// every access.
type Fetcher interface {
	GetPage(tid *transaction.TransactionID, pid tuple.PageID, perm primitives.Permissions) (Page, error)
}

// DbFile is a database file storing tuples page by page. It is the primary
// interface between the buffer pool and on-disk storage.
type DbFile interface {
	// ReadPage reads the page from disk, bypassing any cache. The returned
	// page is fresh and unshared.
	ReadPage(pid tuple.PageID) (Page, error)

	// WritePage forces the page to its offset in the file, growing the
	// file when the page lies at the current end.
	WritePage(p Page) error

	// PageFromData reconstructs a page of this file from a serialised
	// image, e.g. a before image taken from the log.
	PageFromData(pid tuple.PageID, data []byte) (Page, error)

	// InsertTuple adds t to the first page with a free slot, appending a
	// new page when the file is full. Pages are fetched through pool with
	// write permission. Returns every page modified by the operation.
	InsertTuple(tid *transaction.TransactionID, t *tuple.Tuple, pool Fetcher) ([]Page, error)

	// DeleteTuple removes t from the page named by its RecordID, fetched
	// through pool with write permission. Returns the modified page.
	DeleteTuple(tid *transaction.TransactionID, t *tuple.Tuple, pool Fetcher) (Page, error)

	// Iterator returns an iterator over all tuples in the file in
	// (pageNumber, slot) order. Pages are fetched through pool with
	// read-only permission under tid.
	Iterator(tid *transaction.TransactionID, pool Fetcher) DbFileIterator

	// GetID returns the table id of this file.
	GetID() primitives.TableID

	// GetTupleDesc returns the schema of the tuples stored in this file.
	GetTupleDesc() *tuple.TupleDescription

	// NumPages returns the number of whole pages currently in the file.
	NumPages() (int, error)
}

// DbFileIterator is an open/close-stateful iterator over the tuples of a
// DbFile. Rewind is equivalent to Close followed by Open.
type DbFileIterator interface {
	Open() error
	HasNext() (bool, error)
	Next() (*tuple.Tuple, error)
	Rewind() error
	Close() error
}
