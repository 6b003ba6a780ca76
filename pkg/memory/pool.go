package memory

import (
	"errors"
	"fmt"
	"time"

	"github.com/sasha-s/go-deadlock"

	mapset "github.com/deckarep/golang-set/v2"

	"minidb/pkg/concurrency/lock"
	"minidb/pkg/concurrency/transaction"
	"minidb/pkg/log"
	"minidb/pkg/primitives"
	"minidb/pkg/storage/page"
	"minidb/pkg/tuple"
)

const (
	// DefaultPages is the default capacity of the buffer pool in pages.
	DefaultPages = 50

	// DefaultLockTimeout bounds the total wall-clock wait inside GetPage
	// for a page lock. Exceeding it aborts the requesting transaction,
	// which is the engine's deadlock-avoidance mechanism.
	DefaultLockTimeout = 3 * time.Second

	lockRetryInterval = 10 * time.Millisecond
)

var (
	// ErrCacheFull reports that every resident frame is dirty or held by an
	// active transaction, so nothing can be evicted under NO STEAL.
	ErrCacheFull = errors.New("buffer pool full: no clean frame to evict")

	// ErrTransactionAborted reports that a lock acquisition exceeded its
	// timeout; the caller must abort the transaction.
	ErrTransactionAborted = errors.New("transaction aborted")
)

// TableResolver resolves table ids to their backing files. The catalog is
// the canonical implementation.
type TableResolver interface {
	GetDbFile(id primitives.TableID) (page.DbFile, error)
}

// BufferPool caches pages read from disk and mediates every page access
// under transaction ids. It owns the lock table, decides eviction (NO
// STEAL: dirty pages are never evicted), and coordinates flushing, commit
// and rollback.
type BufferPool struct {
	capacity int
	mutex    deadlock.Mutex
	frames   map[tuple.PageID]page.Page
	order    []tuple.PageID
	locks    *lock.Table
	tables   TableResolver
	wal      *log.LogFile
	dirty    map[*transaction.TransactionID]mapset.Set[tuple.PageID]

	lockTimeout time.Duration
}

// NewBufferPool creates a pool caching up to capacity pages, resolving
// tables through tables and logging page images to wal.
func NewBufferPool(capacity int, tables TableResolver, wal *log.LogFile) *BufferPool {
	return &BufferPool{
		capacity:    capacity,
		frames:      make(map[tuple.PageID]page.Page, capacity),
		locks:       lock.NewTable(),
		tables:      tables,
		wal:         wal,
		dirty:       make(map[*transaction.TransactionID]mapset.Set[tuple.PageID]),
		lockTimeout: DefaultLockTimeout,
	}
}

// SetLockTimeout overrides the lock acquisition budget. main applies the
// configured timeout through it; tests use it to shorten the wait.
func (p *BufferPool) SetLockTimeout(d time.Duration) {
	p.lockTimeout = d
}

// GetPage retrieves the page with the requested permission on behalf of
// tid. The lock is acquired first, retrying until the timeout budget is
// exhausted; then the resident frame is returned, or the page is read from
// its heap file after evicting a clean frame when the pool is full. Freshly
// loaded pages get their before image snapshotted before anyone can modify
// them.
func (p *BufferPool) GetPage(tid *transaction.TransactionID, pid tuple.PageID, perm primitives.Permissions) (page.Page, error) {
	start := time.Now()
	for !p.locks.Lock(pid, tid, perm) {
		if time.Since(start) > p.lockTimeout {
			return nil, fmt.Errorf("%w: lock on %v not acquired within %v", ErrTransactionAborted, pid, p.lockTimeout)
		}
		time.Sleep(lockRetryInterval)
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if pg, ok := p.frames[pid]; ok {
		return pg, nil
	}

	if len(p.frames) >= p.capacity {
		if err := p.evictLocked(); err != nil {
			return nil, err
		}
	}

	file, err := p.tables.GetDbFile(pid.TableID())
	if err != nil {
		return nil, err
	}

	pg, err := file.ReadPage(pid)
	if err != nil {
		return nil, fmt.Errorf("failed to read page %v: %w", pid, err)
	}

	p.frames[pid] = pg
	p.order = append(p.order, pid)
	pg.SetBeforeImage()
	return pg, nil
}

// evictLocked removes the first clean, unheld frame in insertion order.
// Dirty frames are never evicted (NO STEAL); frames locked by an active
// transaction are skipped so their holders keep seeing the resident copy.
// Caller holds the pool mutex.
func (p *BufferPool) evictLocked() error {
	for i, pid := range p.order {
		pg, ok := p.frames[pid]
		if !ok {
			continue
		}
		if pg.IsDirty() != nil {
			continue
		}
		if p.locks.IsPageLocked(pid) {
			continue
		}

		delete(p.frames, pid)
		p.order = append(p.order[:i:i], p.order[i+1:]...)
		return nil
	}
	return ErrCacheFull
}

// UnsafeReleasePage drops tid's holder entry on pid. Calling this is risky:
// it breaks two-phase locking and may expose uncommitted state. It exists
// for advanced callers that know a page was only observed, never used.
func (p *BufferPool) UnsafeReleasePage(tid *transaction.TransactionID, pid tuple.PageID) {
	p.locks.ReleasePage(tid, pid)
}

// HoldsLock reports whether tid holds any lock on pid.
func (p *BufferPool) HoldsLock(tid *transaction.TransactionID, pid tuple.PageID) bool {
	return p.locks.HoldsLock(tid, pid)
}

// NumFrames returns the number of resident frames.
func (p *BufferPool) NumFrames() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.frames)
}

// IsResident reports whether pid is currently cached.
func (p *BufferPool) IsResident(pid tuple.PageID) bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	_, ok := p.frames[pid]
	return ok
}

// DiscardPage removes pid from the resident frames and drops every holder
// for it. The recovery path uses this so a rolled-back page is re-read from
// disk instead of served stale from the cache.
func (p *BufferPool) DiscardPage(pid tuple.PageID) {
	p.mutex.Lock()
	p.discardLocked(pid)
	p.mutex.Unlock()

	p.locks.ReleaseAllForPage(pid)
}

func (p *BufferPool) discardLocked(pid tuple.PageID) {
	if _, ok := p.frames[pid]; !ok {
		return
	}
	delete(p.frames, pid)
	for i, other := range p.order {
		if other.Equals(pid) {
			p.order = append(p.order[:i:i], p.order[i+1:]...)
			break
		}
	}
}

// FlushAllPages flushes every dirty resident page through flushPageLocked.
func (p *BufferPool) FlushAllPages() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, pid := range append([]tuple.PageID(nil), p.order...) {
		if err := p.flushPageLocked(pid); err != nil {
			return err
		}
	}
	return nil
}

// FlushPages flushes every resident page dirtied by tid and resets each
// page's before image to its just-flushed contents.
func (p *BufferPool) FlushPages(tid *transaction.TransactionID) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.flushPagesLocked(tid)
}

func (p *BufferPool) flushPagesLocked(tid *transaction.TransactionID) error {
	set, ok := p.dirty[tid]
	if !ok {
		return nil
	}

	for _, pid := range set.ToSlice() {
		pg, resident := p.frames[pid]
		if !resident {
			continue
		}
		if err := p.flushPageLocked(pid); err != nil {
			return err
		}
		pg.SetBeforeImage()
	}
	return nil
}

// flushPageLocked writes one dirty page: the (tid, before, after) record is
// appended and the log forced before the page reaches the heap file. Clean
// and non-resident pages are a no-op. Caller holds the pool mutex.
func (p *BufferPool) flushPageLocked(pid tuple.PageID) error {
	pg, ok := p.frames[pid]
	if !ok {
		return nil
	}
	tid := pg.IsDirty()
	if tid == nil {
		return nil
	}

	file, err := p.tables.GetDbFile(pid.TableID())
	if err != nil {
		return err
	}

	before := pg.GetBeforeImage()
	if before == nil {
		return fmt.Errorf("page %v has no before image", pid)
	}

	if err := p.wal.LogWrite(tid, pid, before.GetPageData(), pg.GetPageData()); err != nil {
		return fmt.Errorf("failed to log write for page %v: %w", pid, err)
	}
	if err := p.wal.Force(); err != nil {
		return fmt.Errorf("failed to force log: %w", err)
	}

	if err := file.WritePage(pg); err != nil {
		return fmt.Errorf("failed to write page %v: %w", pid, err)
	}
	pg.MarkDirty(false, nil)
	return nil
}
