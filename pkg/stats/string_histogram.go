package stats

import (
	"encoding/binary"
	"math"

	"minidb/pkg/types"
)

// StringHistogram summarises a string column by reducing each key to a
// 4-byte integer code and delegating to an IntHistogram over the full int32
// domain.
type StringHistogram struct {
	hist *IntHistogram
}

// NewStringHistogram creates a string histogram with nBuckets buckets.
func NewStringHistogram(nBuckets int) *StringHistogram {
	return &StringHistogram{
		hist: NewIntHistogram(nBuckets, math.MinInt32, math.MaxInt32),
	}
}

// code maps s to the big-endian int32 value of its first four bytes,
// NUL-padded when shorter. Codes of keys sharing a four-byte prefix
// collide, which is the intended coarsening.
func code(s string) int64 {
	var buf [4]byte
	copy(buf[:], s)
	return int64(int32(binary.BigEndian.Uint32(buf[:])))
}

// AddValue records one observation.
func (h *StringHistogram) AddValue(s string) {
	h.hist.AddValue(code(s))
}

// EstimateSelectivity predicts the fraction of recorded keys satisfying
// "key op s".
func (h *StringHistogram) EstimateSelectivity(op types.Predicate, s string) float64 {
	return h.hist.EstimateSelectivity(op, code(s))
}

// AvgSelectivity returns the mean equality selectivity of the underlying
// histogram.
func (h *StringHistogram) AvgSelectivity() float64 {
	return h.hist.AvgSelectivity()
}

// NumTuples returns the number of recorded observations.
func (h *StringHistogram) NumTuples() int64 {
	return h.hist.NumTuples()
}
