// Package log implements the engine's append-only image log. Each write
// record carries a transaction id and the byte-exact before and after images
// of one page; checkpoint markers delimit quiescent points. The log is
// forced to durable storage before the corresponding page is written.
package log

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/sasha-s/go-deadlock"

	"minidb/pkg/concurrency/transaction"
	"minidb/pkg/tuple"
)

const (
	recordUpdate     byte = 1
	recordCheckpoint byte = 2
)

// PageImage pairs a page id with the serialised contents the page held
// before a transaction modified it.
type PageImage struct {
	PID    tuple.PageID
	Before []byte
}

type updateRecord struct {
	pid          tuple.PageID
	beforeOffset int64
	imageLen     int
}

// LogFile is the write-ahead image log. A single mutex serialises appends;
// Force makes everything appended so far durable.
type LogFile struct {
	mutex   deadlock.Mutex
	file    *os.File
	path    string
	offset  int64
	records map[*transaction.TransactionID][]updateRecord
}

// NewLogFile opens (or creates) the log file at path and positions appends
// at its end.
func NewLogFile(path string) (*LogFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat log file %s: %w", path, err)
	}

	return &LogFile{
		file:    f,
		path:    path,
		offset:  info.Size(),
		records: make(map[*transaction.TransactionID][]updateRecord),
	}, nil
}

// LogWrite appends a write record: transaction id, page id, before image,
// after image. The two images must have the same length; a length mismatch
// is rejected.
//
// Record layout: [type:1][tid:8][tableID:4][pageNo:4][imageLen:4][before][after]
func (lf *LogFile) LogWrite(tid *transaction.TransactionID, pid tuple.PageID, before, after []byte) error {
	if len(before) != len(after) {
		return fmt.Errorf("before image (%d bytes) and after image (%d bytes) differ in length",
			len(before), len(after))
	}

	lf.mutex.Lock()
	defer lf.mutex.Unlock()

	header := make([]byte, 21)
	header[0] = recordUpdate
	binary.BigEndian.PutUint64(header[1:9], tid.ID())
	binary.BigEndian.PutUint32(header[9:13], uint32(pid.TableID()))
	binary.BigEndian.PutUint32(header[13:17], uint32(pid.PageNo()))
	binary.BigEndian.PutUint32(header[17:21], uint32(len(before)))

	if err := lf.append(header); err != nil {
		return err
	}
	beforeOffset := lf.offset
	if err := lf.append(before); err != nil {
		return err
	}
	if err := lf.append(after); err != nil {
		return err
	}

	lf.records[tid] = append(lf.records[tid], updateRecord{
		pid:          pid,
		beforeOffset: beforeOffset,
		imageLen:     len(before),
	})
	return nil
}

// LogCheckpoint appends a checkpoint marker and forces the log.
func (lf *LogFile) LogCheckpoint() error {
	lf.mutex.Lock()
	defer lf.mutex.Unlock()

	if err := lf.append([]byte{recordCheckpoint}); err != nil {
		return err
	}
	return lf.file.Sync()
}

// Force makes every record appended so far durable. It must complete before
// the corresponding page write reaches the heap file.
func (lf *LogFile) Force() error {
	lf.mutex.Lock()
	defer lf.mutex.Unlock()
	return lf.file.Sync()
}

// Rollback returns the before images logged for tid, most recent first, and
// forgets the transaction's records. The caller restores the images and
// discards the affected frames.
func (lf *LogFile) Rollback(tid *transaction.TransactionID) ([]PageImage, error) {
	lf.mutex.Lock()
	defer lf.mutex.Unlock()

	recs := lf.records[tid]
	images := make([]PageImage, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- {
		rec := recs[i]
		img := make([]byte, rec.imageLen)
		if _, err := lf.file.ReadAt(img, rec.beforeOffset); err != nil {
			return nil, fmt.Errorf("failed to read before image at offset %d: %w", rec.beforeOffset, err)
		}
		images = append(images, PageImage{PID: rec.pid, Before: img})
	}

	delete(lf.records, tid)
	return images, nil
}

// Forget drops tid's record index, as done after a successful commit.
func (lf *LogFile) Forget(tid *transaction.TransactionID) {
	lf.mutex.Lock()
	defer lf.mutex.Unlock()
	delete(lf.records, tid)
}

// Size returns the current log length in bytes.
func (lf *LogFile) Size() int64 {
	lf.mutex.Lock()
	defer lf.mutex.Unlock()
	return lf.offset
}

// Close forces and closes the log file.
func (lf *LogFile) Close() error {
	lf.mutex.Lock()
	defer lf.mutex.Unlock()

	if err := lf.file.Sync(); err != nil {
		return err
	}
	return lf.file.Close()
}

func (lf *LogFile) append(data []byte) error {
	n, err := lf.file.WriteAt(data, lf.offset)
	if err != nil {
		return fmt.Errorf("failed to append to log %s: %w", lf.path, err)
	}
	lf.offset += int64(n)
	return nil
}
