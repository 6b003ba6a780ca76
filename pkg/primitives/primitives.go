package primitives

// TableID identifies a table. It is derived from the hash of the canonical
// absolute path of the table's backing file, so the same file always maps to
// the same id.
type TableID int32

// PageNumber is the zero-based index of a page within a table's file.
type PageNumber int32

// HashCode represents a hash value computed for fast comparisons or lookups,
// e.g. for fields or page ids.
type HashCode uint32

// Permissions represents the access level a transaction requests on a page.
type Permissions int

const (
	// ReadOnly grants shared access; any number of transactions may hold it
	// concurrently as long as nobody holds ReadWrite.
	ReadOnly Permissions = iota

	// ReadWrite grants exclusive access; it excludes every other holder.
	ReadWrite
)

// String returns a string representation of the permission level.
func (p Permissions) String() string {
	switch p {
	case ReadOnly:
		return "READ_ONLY"
	case ReadWrite:
		return "READ_WRITE"
	default:
		return "UNKNOWN"
	}
}
