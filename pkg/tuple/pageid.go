package tuple

import "minidb/pkg/primitives"

// PageID uniquely identifies a page within the database. Implementations
// must be comparable value types so page ids can key maps directly; equality
// and hashing are structural over (table id, page number).
type PageID interface {
	// TableID returns the table this page belongs to.
	TableID() primitives.TableID

	// PageNo returns the page number within the table.
	PageNo() primitives.PageNumber

	// Equals reports whether other identifies the same page.
	Equals(other PageID) bool

	// HashCode returns a hash code combining table id and page number.
	HashCode() primitives.HashCode

	String() string
}
