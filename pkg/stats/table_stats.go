package stats

import (
	"fmt"
	"math"

	"minidb/pkg/concurrency/transaction"
	"minidb/pkg/storage/page"
	"minidb/pkg/tuple"
	"minidb/pkg/types"
)

const (
	// NumHistBins is the number of buckets per column histogram.
	NumHistBins = 100

	// IOCostPerPage is the default cost of reading one page from disk,
	// relative to a unit CPU operation.
	IOCostPerPage = 1000
)

// Pool is the slice of the buffer pool the statistics collector needs: page
// access for the scans and transaction completion to release the scan's
// locks.
type Pool interface {
	page.Fetcher
	TransactionComplete(tid *transaction.TransactionID, commit bool) error
}

// TableStats holds per-table statistics: tuple and page counts plus one
// histogram per column. It is built by two sequential scans of the table:
// the first finds the tuple count and per-column min/max (strings go
// straight into their histograms, whose domain is fixed), the second feeds
// the integer histograms now that their bounds are known.
type TableStats struct {
	numPages      int
	numTuples     int
	ioCostPerPage int
	td            *tuple.TupleDescription
	intHists      map[int]*IntHistogram
	strHists      map[int]*StringHistogram
}

// NewTableStats scans file through pool and computes its statistics.
func NewTableStats(file page.DbFile, pool Pool, ioCostPerPage int) (*TableStats, error) {
	numPages, err := file.NumPages()
	if err != nil {
		return nil, err
	}

	ts := &TableStats{
		numPages:      numPages,
		ioCostPerPage: ioCostPerPage,
		td:            file.GetTupleDesc(),
		intHists:      make(map[int]*IntHistogram),
		strHists:      make(map[int]*StringHistogram),
	}

	tid := transaction.NewTransactionID()
	defer pool.TransactionComplete(tid, true)

	it := file.Iterator(tid, pool)
	if err := it.Open(); err != nil {
		return nil, err
	}
	defer it.Close()

	minVals := make(map[int]int64)
	maxVals := make(map[int]int64)
	if err := ts.firstPass(it, minVals, maxVals); err != nil {
		return nil, err
	}

	for i := 0; i < ts.td.NumFields(); i++ {
		fieldType, _ := ts.td.TypeAtIndex(i)
		if fieldType != types.IntType {
			continue
		}
		lo, ok := minVals[i]
		if !ok {
			lo, maxVals[i] = 0, 0
		}
		ts.intHists[i] = NewIntHistogram(NumHistBins, lo, maxVals[i])
	}

	if err := it.Rewind(); err != nil {
		return nil, err
	}
	if err := ts.secondPass(it); err != nil {
		return nil, err
	}

	return ts, nil
}

// firstPass counts tuples, tracks integer min/max and fills the string
// histograms, whose domain does not depend on the data.
func (ts *TableStats) firstPass(it page.DbFileIterator, minVals, maxVals map[int]int64) error {
	for {
		hasNext, err := it.HasNext()
		if err != nil {
			return err
		}
		if !hasNext {
			return nil
		}

		t, err := it.Next()
		if err != nil {
			return err
		}
		ts.numTuples++

		for i := 0; i < ts.td.NumFields(); i++ {
			field, err := t.GetField(i)
			if err != nil {
				return err
			}

			switch f := field.(type) {
			case *types.IntField:
				v := int64(f.Value)
				if cur, ok := minVals[i]; !ok || v < cur {
					minVals[i] = v
				}
				if cur, ok := maxVals[i]; !ok || v > cur {
					maxVals[i] = v
				}
			case *types.StringField:
				hist, ok := ts.strHists[i]
				if !ok {
					hist = NewStringHistogram(NumHistBins)
					ts.strHists[i] = hist
				}
				hist.AddValue(f.Value)
			}
		}
	}
}

// secondPass feeds the integer histograms constructed with the min/max
// found by the first pass.
func (ts *TableStats) secondPass(it page.DbFileIterator) error {
	for {
		hasNext, err := it.HasNext()
		if err != nil {
			return err
		}
		if !hasNext {
			return nil
		}

		t, err := it.Next()
		if err != nil {
			return err
		}

		for i, hist := range ts.intHists {
			field, err := t.GetField(i)
			if err != nil {
				return err
			}
			f, ok := field.(*types.IntField)
			if !ok {
				return fmt.Errorf("field %d: expected int field, got %v", i, field.Type())
			}
			hist.AddValue(int64(f.Value))
		}
	}
}

// EstimateScanCost estimates the cost of sequentially scanning the whole
// table, assuming pages are read one at a time with no caching. The factor
// of 2 reflects the nested-loop cost model the planner applies.
func (ts *TableStats) EstimateScanCost() float64 {
	return float64(ts.numPages) * float64(ts.ioCostPerPage) * 2
}

// EstimateTableCardinality returns the number of tuples a scan with the
// given predicate selectivity is expected to produce.
func (ts *TableStats) EstimateTableCardinality(selectivity float64) int {
	return int(math.Floor(float64(ts.numTuples) * selectivity))
}

// EstimateSelectivity predicts the selectivity of "field op constant" by
// dispatching to the field's histogram.
func (ts *TableStats) EstimateSelectivity(field int, op types.Predicate, constant types.Field) (float64, error) {
	switch c := constant.(type) {
	case *types.IntField:
		hist, ok := ts.intHists[field]
		if !ok {
			return 0, fmt.Errorf("no integer histogram for field %d", field)
		}
		return hist.EstimateSelectivity(op, int64(c.Value)), nil
	case *types.StringField:
		hist, ok := ts.strHists[field]
		if !ok {
			return 0, fmt.Errorf("no string histogram for field %d", field)
		}
		return hist.EstimateSelectivity(op, c.Value), nil
	default:
		return 0, fmt.Errorf("unsupported constant type %T", constant)
	}
}

// AvgSelectivity returns the expected selectivity of op on the field when
// the comparison constant is unknown.
func (ts *TableStats) AvgSelectivity(field int, op types.Predicate) (float64, error) {
	fieldType, err := ts.td.TypeAtIndex(field)
	if err != nil {
		return 0, err
	}
	if fieldType == types.IntType {
		if hist, ok := ts.intHists[field]; ok {
			return hist.AvgSelectivity(), nil
		}
		return 0, fmt.Errorf("no integer histogram for field %d", field)
	}
	if hist, ok := ts.strHists[field]; ok {
		return hist.AvgSelectivity(), nil
	}
	return 0, fmt.Errorf("no string histogram for field %d", field)
}

// TotalTuples returns the number of tuples in the table at scan time.
func (ts *TableStats) TotalTuples() int {
	return ts.numTuples
}

// NumPages returns the number of pages in the table at scan time.
func (ts *TableStats) NumPages() int {
	return ts.numPages
}
