// Package counter keeps the last observed value of cumulative counters between
// polls and turns consecutive samples into throughput rates.
package counter

import (
	"sync"
	"time"
)

// Sample is one observation of an interface's cumulative byte counters.
type Sample struct {
	Key        string
	RxBytes    uint64
	TxBytes    uint64
	ObservedAt time.Time
}

// Store maps a counter key (network interface name) to its most recent sample.
// Entries live for the lifetime of the process; vanished interfaces are never
// read again so they are not evicted.
type Store struct {
	mu      sync.Mutex
	samples map[string]Sample
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{samples: make(map[string]Sample)}
}

// RecordAndSwap stores the new counters for key and returns the sample it
// replaced. ok is false on the first observation of key.
func (s *Store) RecordAndSwap(key string, rxBytes, txBytes uint64, now time.Time) (prior Sample, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior, ok = s.samples[key]
	s.samples[key] = Sample{
		Key:        key,
		RxBytes:    rxBytes,
		TxBytes:    txBytes,
		ObservedAt: now,
	}
	return prior, ok
}
