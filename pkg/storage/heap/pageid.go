package heap

import (
	"encoding/binary"
	"fmt"

	"github.com/spaolacci/murmur3"

	"minidb/pkg/primitives"
	"minidb/pkg/tuple"
)

// HeapPageID identifies a heap page as a (table id, page number) pair. It is
// a value type so it can key maps directly; equality and hashing are
// structural.
type HeapPageID struct {
	table   primitives.TableID
	pageNum primitives.PageNumber
}

// NewHeapPageID creates a new heap page id.
func NewHeapPageID(table primitives.TableID, pageNum primitives.PageNumber) HeapPageID {
	return HeapPageID{table: table, pageNum: pageNum}
}

// TableID returns the table this page belongs to.
func (pid HeapPageID) TableID() primitives.TableID {
	return pid.table
}

// PageNo returns the page number within the table.
func (pid HeapPageID) PageNo() primitives.PageNumber {
	return pid.pageNum
}

// Equals reports whether other identifies the same page.
func (pid HeapPageID) Equals(other tuple.PageID) bool {
	if other == nil {
		return false
	}
	return pid.table == other.TableID() && pid.pageNum == other.PageNo()
}

// HashCode combines table id and page number into one hash value.
func (pid HeapPageID) HashCode() primitives.HashCode {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], uint32(pid.table))
	binary.BigEndian.PutUint32(buf[4:8], uint32(pid.pageNum))
	return primitives.HashCode(murmur3.Sum32(buf))
}

func (pid HeapPageID) String() string {
	return fmt.Sprintf("HeapPageID(table=%d, page=%d)", pid.table, pid.pageNum)
}
