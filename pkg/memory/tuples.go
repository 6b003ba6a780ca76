package memory

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"minidb/pkg/concurrency/transaction"
	"minidb/pkg/primitives"
	"minidb/pkg/storage/page"
	"minidb/pkg/tuple"
)

// InsertTuple adds t to the given table on behalf of tid. The heap file
// scans and grows its pages through this pool, so every page it touches is
// already resident; the pool then records them as dirtied by tid.
func (p *BufferPool) InsertTuple(tid *transaction.TransactionID, tableID primitives.TableID, t *tuple.Tuple) error {
	file, err := p.tables.GetDbFile(tableID)
	if err != nil {
		return err
	}

	modified, err := file.InsertTuple(tid, t, p)
	if err != nil {
		return fmt.Errorf("failed to insert tuple into table %d: %w", tableID, err)
	}

	p.markDirty(tid, modified)
	return nil
}

// DeleteTuple removes t from its table on behalf of tid. The tuple must
// carry the RecordID assigned when it was inserted or scanned.
func (p *BufferPool) DeleteTuple(tid *transaction.TransactionID, t *tuple.Tuple) error {
	if t == nil || t.RecordID == nil {
		return fmt.Errorf("tuple has no record id")
	}

	file, err := p.tables.GetDbFile(t.RecordID.PageID.TableID())
	if err != nil {
		return err
	}

	modified, err := file.DeleteTuple(tid, t, p)
	if err != nil {
		return fmt.Errorf("failed to delete tuple: %w", err)
	}

	p.markDirty(tid, []page.Page{modified})
	return nil
}

// markDirty marks the pages dirty for tid and records them in the
// transaction's dirty set for flushing at commit.
func (p *BufferPool) markDirty(tid *transaction.TransactionID, pages []page.Page) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	set, ok := p.dirty[tid]
	if !ok {
		set = mapset.NewSet[tuple.PageID]()
		p.dirty[tid] = set
	}

	for _, pg := range pages {
		pg.MarkDirty(true, tid)
		set.Add(pg.GetID())
	}
}
