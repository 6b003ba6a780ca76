package primitives

import (
	"path/filepath"

	"github.com/spaolacci/murmur3"
)

// Filepath is a type-safe wrapper around the path of a database file.
type Filepath string

// Canonical returns the absolute, cleaned form of the path. When the path
// cannot be made absolute (e.g. the working directory is gone), the cleaned
// relative path is used instead so the id stays deterministic.
func (f Filepath) Canonical() Filepath {
	abs, err := filepath.Abs(string(f))
	if err != nil {
		return Filepath(filepath.Clean(string(f)))
	}
	return Filepath(abs)
}

// Hash generates the TableID for this path by hashing its canonical form
// with murmur3. The same file path always produces the same id.
func (f Filepath) Hash() TableID {
	return TableID(murmur3.Sum32([]byte(f.Canonical())))
}

// String converts the Filepath to a standard string.
func (f Filepath) String() string {
	return string(f)
}
