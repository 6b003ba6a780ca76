package memory

import (
	"fmt"

	"minidb/pkg/concurrency/transaction"
	"minidb/pkg/logging"
)

// TransactionComplete ends tid. On commit, every page the transaction
// dirtied is forced through the log and the heap files (force at commit),
// and a checkpoint marker is appended. On abort, the log's rollback
// restores before images and the transaction's dirty frames are discarded
// so the next read observes pre-transaction bytes. In both cases tid is
// removed from every page's holder set.
func (p *BufferPool) TransactionComplete(tid *transaction.TransactionID, commit bool) error {
	var err error
	if commit {
		err = p.commit(tid)
	} else {
		err = p.rollback(tid)
	}

	p.locks.ReleaseAll(tid)

	p.mutex.Lock()
	delete(p.dirty, tid)
	p.mutex.Unlock()

	return err
}

func (p *BufferPool) commit(tid *transaction.TransactionID) error {
	if err := p.FlushPages(tid); err != nil {
		// A failed commit flush leaves uncertain on-disk state; undo what
		// the log knows about and abort.
		logging.GetLogger().Error("commit flush failed, rolling back",
			"tid", tid.String(), "error", err)
		if rbErr := p.rollback(tid); rbErr != nil {
			return fmt.Errorf("%w: flush failed (%v) and rollback failed: %v",
				ErrTransactionAborted, err, rbErr)
		}
		return fmt.Errorf("%w: commit flush failed: %v", ErrTransactionAborted, err)
	}

	p.wal.Forget(tid)
	return p.wal.LogCheckpoint()
}

// rollback restores the before images the log holds for tid, then discards
// every frame the transaction dirtied. Under NO STEAL an aborted
// transaction's changes normally live only in memory, so discarding the
// frame is enough; logged images cover pages that reached disk before the
// transaction ended (through FlushAllPages, FlushPages or a commit attempt
// whose flush failed).
func (p *BufferPool) rollback(tid *transaction.TransactionID) error {
	images, err := p.wal.Rollback(tid)
	if err != nil {
		return fmt.Errorf("log rollback for %v failed: %w", tid, err)
	}

	for _, img := range images {
		file, err := p.tables.GetDbFile(img.PID.TableID())
		if err != nil {
			return err
		}
		pg, err := file.PageFromData(img.PID, img.Before)
		if err != nil {
			return fmt.Errorf("failed to rebuild before image of %v: %w", img.PID, err)
		}
		if err := file.WritePage(pg); err != nil {
			return fmt.Errorf("failed to restore before image of %v: %w", img.PID, err)
		}
		p.DiscardPage(img.PID)
	}

	p.mutex.Lock()
	if set, ok := p.dirty[tid]; ok {
		for _, pid := range set.ToSlice() {
			if pg, resident := p.frames[pid]; resident && pg.IsDirty() == tid {
				p.discardLocked(pid)
			}
		}
	}
	p.mutex.Unlock()

	return p.wal.LogCheckpoint()
}
