package transaction

import (
	"fmt"
	"sync/atomic"
)

var counter atomic.Uint64

// TransactionID is an opaque identifier tagging all operations belonging to
// one transaction. Ids are immutable and unique for the process lifetime;
// identity is pointer identity, so a TransactionID can key maps directly.
type TransactionID struct {
	id uint64
}

// NewTransactionID allocates a fresh transaction id.
func NewTransactionID() *TransactionID {
	return &TransactionID{id: counter.Add(1)}
}

// ID returns the numeric value of this transaction id.
func (t *TransactionID) ID() uint64 {
	return t.id
}

func (t *TransactionID) String() string {
	return fmt.Sprintf("tx-%d", t.id)
}
