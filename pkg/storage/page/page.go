package page

import (
	"minidb/pkg/concurrency/transaction"
	"minidb/pkg/tuple"
)

// DefaultPageSize is the number of bytes per page, including the header.
const DefaultPageSize = 4096

var pageSize = DefaultPageSize

// Size returns the current page size in bytes.
func Size() int {
	return pageSize
}

// SetSize overrides the page size. Only tests should call this, and only
// before any page has been constructed.
func SetSize(size int) {
	pageSize = size
}

// ResetSize restores the default page size.
func ResetSize() {
	pageSize = DefaultPageSize
}

// Page represents a page resident in the buffer pool. Pages may be dirty,
// indicating they were modified since last written to disk.
type Page interface {
	// GetID returns the id of this page.
	GetID() tuple.PageID

	// IsDirty returns the transaction that last dirtied this page, or nil
	// if the page is clean.
	IsDirty() *transaction.TransactionID

	// MarkDirty sets or clears the dirty state of this page.
	MarkDirty(dirty bool, tid *transaction.TransactionID)

	// GetPageData serialises the page contents for disk storage. The
	// returned slice is exactly Size() bytes.
	GetPageData() []byte

	// GetBeforeImage reconstructs the page as of the last SetBeforeImage
	// call. Used for rollback.
	GetBeforeImage() Page

	// SetBeforeImage snapshots the current contents as the before image.
	// Called when the page is loaded into the buffer pool and again after
	// the transaction that wrote it flushes it at commit.
	SetBeforeImage()
}
