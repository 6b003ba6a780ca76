package heap

import (
	"fmt"
	"os"

	"minidb/pkg/concurrency/transaction"
	"minidb/pkg/primitives"
	"minidb/pkg/storage/page"
	"minidb/pkg/tuple"
)

// HeapFile is a table's backing store: a single flat file holding heap pages
// laid out contiguously, page n at byte offset n*pageSize. The table id is
// derived from the hash of the canonical absolute path, so the same file
// always maps to the same id.
//
// Every call opens its own file handle; concurrent writes to the same offset
// are prevented by the exclusive page lock held by the caller, not by file
// level locking.
type HeapFile struct {
	path    primitives.Filepath
	td      *tuple.TupleDescription
	tableID primitives.TableID
}

// NewHeapFile creates a HeapFile backed by the file at path, creating the
// file when it does not exist.
func NewHeapFile(path primitives.Filepath, td *tuple.TupleDescription) (*HeapFile, error) {
	if path == "" {
		return nil, fmt.Errorf("heap file path cannot be empty")
	}

	f, err := os.OpenFile(path.String(), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open heap file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	return &HeapFile{
		path:    path.Canonical(),
		td:      td,
		tableID: path.Hash(),
	}, nil
}

// GetID returns the table id of this file.
func (hf *HeapFile) GetID() primitives.TableID {
	return hf.tableID
}

// GetTupleDesc returns the schema of the tuples stored in this file.
func (hf *HeapFile) GetTupleDesc() *tuple.TupleDescription {
	return hf.td
}

// Path returns the canonical path of the backing file.
func (hf *HeapFile) Path() primitives.Filepath {
	return hf.path
}

// NumPages returns floor(fileSize / pageSize).
func (hf *HeapFile) NumPages() (int, error) {
	info, err := os.Stat(hf.path.String())
	if err != nil {
		return 0, fmt.Errorf("failed to stat heap file %s: %w", hf.path, err)
	}
	return int(info.Size()) / page.Size(), nil
}

// ReadPage reads the page from disk, bypassing any cache: it opens the file
// read-only, seeks to pageNo*pageSize and reads exactly one page. The
// returned page is fresh and unshared.
func (hf *HeapFile) ReadPage(pid tuple.PageID) (page.Page, error) {
	hpid, err := hf.ownPageID(pid)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(hf.path.String())
	if err != nil {
		return nil, fmt.Errorf("failed to open heap file %s: %w", hf.path, err)
	}
	defer f.Close()

	data := make([]byte, page.Size())
	offset := int64(hpid.PageNo()) * int64(page.Size())
	if _, err := f.ReadAt(data, offset); err != nil {
		return nil, fmt.Errorf("failed to read page %v at offset %d: %w", hpid, offset, err)
	}

	return NewHeapPage(hpid, data, hf.td)
}

// WritePage forces the page to its offset, growing the file by one page
// when the offset is at or past the current end.
func (hf *HeapFile) WritePage(p page.Page) error {
	if p == nil {
		return fmt.Errorf("page cannot be nil")
	}
	hpid, err := hf.ownPageID(p.GetID())
	if err != nil {
		return err
	}

	f, err := os.OpenFile(hf.path.String(), os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open heap file %s: %w", hf.path, err)
	}
	defer f.Close()

	offset := int64(hpid.PageNo()) * int64(page.Size())
	if _, err := f.WriteAt(p.GetPageData(), offset); err != nil {
		return fmt.Errorf("failed to write page %v: %w", hpid, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync heap file %s: %w", hf.path, err)
	}
	return nil
}

// PageFromData reconstructs a page of this file from a serialised image.
func (hf *HeapFile) PageFromData(pid tuple.PageID, data []byte) (page.Page, error) {
	hpid, err := hf.ownPageID(pid)
	if err != nil {
		return nil, err
	}
	return NewHeapPage(hpid, data, hf.td)
}

// InsertTuple linear-scans the existing pages through the buffer pool with
// write permission and inserts into the first page with a free slot. When no
// page has capacity it allocates an empty page at index numPages, inserts
// into it and flush-appends it via WritePage, then fetches the grown page
// through the pool so the pool owns the resident copy.
func (hf *HeapFile) InsertTuple(tid *transaction.TransactionID, t *tuple.Tuple, pool page.Fetcher) ([]page.Page, error) {
	numPages, err := hf.NumPages()
	if err != nil {
		return nil, err
	}

	for i := 0; i < numPages; i++ {
		pid := NewHeapPageID(hf.tableID, primitives.PageNumber(i))
		pg, err := pool.GetPage(tid, pid, primitives.ReadWrite)
		if err != nil {
			return nil, err
		}

		hp, ok := pg.(*HeapPage)
		if !ok {
			return nil, fmt.Errorf("page %v is not a heap page", pid)
		}
		if hp.GetNumEmptySlots() == 0 {
			continue
		}
		if err := hp.InsertTuple(t); err != nil {
			return nil, err
		}
		return []page.Page{hp}, nil
	}

	// Every existing page is full: grow the file by one page.
	pid := NewHeapPageID(hf.tableID, primitives.PageNumber(numPages))
	fresh, err := NewEmptyHeapPage(pid, hf.td)
	if err != nil {
		return nil, err
	}
	if err := fresh.InsertTuple(t); err != nil {
		return nil, err
	}
	if err := hf.WritePage(fresh); err != nil {
		return nil, err
	}

	pg, err := pool.GetPage(tid, pid, primitives.ReadWrite)
	if err != nil {
		return nil, err
	}
	return []page.Page{pg}, nil
}

// DeleteTuple fetches the page named by t's RecordID through the buffer
// pool with write permission and delegates to the page-level delete.
func (hf *HeapFile) DeleteTuple(tid *transaction.TransactionID, t *tuple.Tuple, pool page.Fetcher) (page.Page, error) {
	if t == nil || t.RecordID == nil {
		return nil, fmt.Errorf("%w: tuple has no record id", ErrNotOnPage)
	}

	pg, err := pool.GetPage(tid, t.RecordID.PageID, primitives.ReadWrite)
	if err != nil {
		return nil, err
	}
	hp, ok := pg.(*HeapPage)
	if !ok {
		return nil, fmt.Errorf("page %v is not a heap page", t.RecordID.PageID)
	}
	if err := hp.DeleteTuple(t); err != nil {
		return nil, err
	}
	return hp, nil
}

// Iterator returns an iterator over all tuples of the file in ascending
// (pageNumber, slot) order, fetching pages through pool with read-only
// permission under tid.
func (hf *HeapFile) Iterator(tid *transaction.TransactionID, pool page.Fetcher) page.DbFileIterator {
	return NewHeapFileIterator(hf, tid, pool)
}

func (hf *HeapFile) ownPageID(pid tuple.PageID) (HeapPageID, error) {
	if pid == nil {
		return HeapPageID{}, fmt.Errorf("page id cannot be nil")
	}
	if pid.TableID() != hf.tableID {
		return HeapPageID{}, fmt.Errorf("page %v does not belong to table %d", pid, hf.tableID)
	}
	return NewHeapPageID(pid.TableID(), pid.PageNo()), nil
}
