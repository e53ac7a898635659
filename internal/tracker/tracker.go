// Package tracker is the process-wide registry of redirected regions.
//
// Every region the allocation engine produces is recorded here with its true
// reserved length. Release requests consult the registry first: a hit
// overrides whatever length the caller supplies, because the caller-visible
// length may not match what was actually reserved.
package tracker

import "sync"

// Region records one live huge-page-backed allocation.
type Region struct {
	Addr   uintptr
	Length int
}

// Tracker maps region base addresses to their reserved lengths.
//
// All operations are atomic under a single mutex: a lookup racing an insert
// or removal of the same address observes exactly one consistent outcome.
// Entries are inserted once and removed once, never mutated in place.
type Tracker struct {
	mu      sync.Mutex
	regions map[uintptr]int
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{regions: make(map[uintptr]int)}
}

// Record inserts a region. The address must not already be present; fresh
// reservations guarantee that, since the kernel never hands out a live base
// address twice.
func (t *Tracker) Record(addr uintptr, length int) {
	t.mu.Lock()
	t.regions[addr] = length
	t.mu.Unlock()
}

// Take removes the region at addr and returns its recorded length. A miss
// leaves the registry unchanged. Matching is by exact base address only;
// adjacent or overlapping regions never false-match.
func (t *Tracker) Take(addr uintptr) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	length, ok := t.regions[addr]
	if ok {
		delete(t.regions, addr)
	}
	return length, ok
}

// Drain removes and returns every remaining region. Used at process detach.
func (t *Tracker) Drain() []Region {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Region, 0, len(t.regions))
	for addr, length := range t.regions {
		out = append(out, Region{Addr: addr, Length: length})
	}
	clear(t.regions)
	return out
}

// Len returns the number of live regions.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.regions)
}

// Bytes returns the total reserved bytes across live regions.
func (t *Tracker) Bytes() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var n int64
	for _, length := range t.regions {
		n += int64(length)
	}
	return n
}
