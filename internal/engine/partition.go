package engine

import (
	"sync"

	"github.com/loyalty-ledger/internal/domain/ledger"
)

// partitionLocks serializes engine operations per (customer, program)
// partition. Operations on different partitions proceed in parallel.
// Lock structs are tiny and reused across the life of the process.
type partitionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPartitionLocks() *partitionLocks {
	return &partitionLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

// acquire locks the partition and returns the release function.
func (p *partitionLocks) acquire(part ledger.Partition) func() {
	key := part.Key()

	p.mu.Lock()
	l, ok := p.locks[key]
	if !ok {
		l = &sync.Mutex{}
		p.locks[key] = l
	}
	p.mu.Unlock()

	l.Lock()
	return l.Unlock
}
