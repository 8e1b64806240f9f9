package services

import "sync"

// BusyTracker counts in-flight mutations per trip.
type BusyTracker struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewBusyTracker() *BusyTracker {
	return &BusyTracker{counts: make(map[string]int)}
}

// Begin marks one mutation of tripID as started. The returned func ends it
// and is safe to call more than once.
func (b *BusyTracker) Begin(tripID string) (done func()) {
	b.mu.Lock()
	b.counts[tripID]++
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.counts[tripID] <= 1 {
				delete(b.counts, tripID)
				return
			}
			b.counts[tripID]--
		})
	}
}

// InFlight returns the number of running mutations of tripID.
func (b *BusyTracker) InFlight(tripID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[tripID]
}

// Busy reports whether any mutation of tripID is running.
func (b *BusyTracker) Busy(tripID string) bool {
	return b.InFlight(tripID) > 0
}
