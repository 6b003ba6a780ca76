// Package catalog maps table names and ids to their backing files. The
// engine's SQL front end registers tables here; the buffer pool and the
// statistics collector look them up.
package catalog

import (
	"fmt"
	"sync"

	"minidb/pkg/primitives"
	"minidb/pkg/storage/page"
	"minidb/pkg/tuple"
)

// Catalog is the name→table registry. It lives for the process lifetime.
type Catalog struct {
	mutex  sync.RWMutex
	files  map[primitives.TableID]page.DbFile
	names  map[string]primitives.TableID
	byFile map[primitives.TableID]string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		files:  make(map[primitives.TableID]page.DbFile),
		names:  make(map[string]primitives.TableID),
		byFile: make(map[primitives.TableID]string),
	}
}

// AddTable registers file under name. Re-registering a name replaces the
// previous binding, matching the last-writer-wins behaviour of the engine's
// front end.
func (c *Catalog) AddTable(file page.DbFile, name string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	id := file.GetID()
	if old, ok := c.names[name]; ok {
		delete(c.files, old)
		delete(c.byFile, old)
	}
	c.files[id] = file
	c.names[name] = id
	c.byFile[id] = name
}

// GetDbFile returns the file backing the given table id.
func (c *Catalog) GetDbFile(id primitives.TableID) (page.DbFile, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	file, ok := c.files[id]
	if !ok {
		return nil, fmt.Errorf("table with id %d not found", id)
	}
	return file, nil
}

// GetTableID returns the id registered under name.
func (c *Catalog) GetTableID(name string) (primitives.TableID, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	id, ok := c.names[name]
	if !ok {
		return 0, fmt.Errorf("table %q not found", name)
	}
	return id, nil
}

// GetTableName returns the name the table id was registered under.
func (c *Catalog) GetTableName(id primitives.TableID) (string, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	name, ok := c.byFile[id]
	if !ok {
		return "", fmt.Errorf("table with id %d not found", id)
	}
	return name, nil
}

// GetTupleDesc returns the schema of the table with the given id.
func (c *Catalog) GetTupleDesc(id primitives.TableID) (*tuple.TupleDescription, error) {
	file, err := c.GetDbFile(id)
	if err != nil {
		return nil, err
	}
	return file.GetTupleDesc(), nil
}

// TableIDs returns the ids of every registered table.
func (c *Catalog) TableIDs() []primitives.TableID {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	ids := make([]primitives.TableID, 0, len(c.files))
	for id := range c.files {
		ids = append(ids, id)
	}
	return ids
}
