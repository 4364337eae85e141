// Package store implements the bounded circular command store: a
// fixed-capacity ring of variable-length byte entries with FIFO eviction,
// linear-offset lookup, and command-index addressing.
package store

import (
	"sync"

	"github.com/bsaravanan-aesd/aesdsocket/internal/acerr"
)

// Capacity is the fixed number of entries the ring retains.
const Capacity = 10

// Entry is an immutable committed packet. The zero value is never a valid
// entry: Len() > 0 always holds for an entry actually stored in the ring.
type Entry struct {
	data []byte
}

// Len returns the entry's byte length.
func (e Entry) Len() int { return len(e.data) }

// Bytes returns the entry's bytes. Callers must not mutate the returned
// slice; it is shared with the ring slot.
func (e Entry) Bytes() []byte { return e.data }

func newEntry(p []byte) Entry {
	owned := make([]byte, len(p))
	copy(owned, p)
	return Entry{data: owned}
}

// Ring is a fixed-capacity FIFO of Entry values. The zero value is an
// empty ring ready for use; NewRing returns one.
type Ring struct {
	mu       sync.Mutex
	slots    [Capacity]Entry
	in, out  int
	full     bool
}

// NewRing returns an empty ring.
func NewRing() *Ring {
	return &Ring{}
}

// Append takes ownership of a copy of p and stores it as the newest entry.
// If the ring is full, the oldest entry is evicted and its bytes released
// before the slot is reused. p must have length > 0; the reassembler is
// responsible for never committing a zero-length packet.
func (r *Ring) Append(p []byte) {
	if len(p) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.slots[r.in] = newEntry(p)
	r.in = (r.in + 1) % Capacity
	if r.full {
		r.out = (r.out + 1) % Capacity
	}
	if r.in == r.out {
		r.full = true
	}
}

// validCount returns the number of live entries. Caller must hold mu.
func (r *Ring) validCount() int {
	if r.full {
		return Capacity
	}
	return (r.in - r.out + Capacity) % Capacity
}

// TotalSize returns the sum of all valid entries' lengths.
func (r *Ring) TotalSize() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalSizeLocked()
}

func (r *Ring) totalSizeLocked() int64 {
	var total int64
	n := r.validCount()
	for i := 0; i < n; i++ {
		idx := (r.out + i) % Capacity
		total += int64(r.slots[idx].Len())
	}
	return total
}

// FindForOffset walks valid entries from the oldest, accumulating lengths,
// and returns the entry containing linear offset off plus the residual
// byte offset within it. ok is false if off is at or past the total size
// (EOF) or the ring is empty.
func (r *Ring) FindForOffset(off int64) (entry Entry, residual int64, ok bool) {
	if off < 0 {
		return Entry{}, 0, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.validCount()
	remaining := off
	for i := 0; i < n; i++ {
		idx := (r.out + i) % Capacity
		e := r.slots[idx]
		l := int64(e.Len())
		if remaining < l {
			return e, remaining, true
		}
		remaining -= l
	}
	return Entry{}, 0, false
}

// AbsoluteOffset sums the lengths of the first cmdIndex valid entries and
// adds byteOffset, validating that cmdIndex is in range and byteOffset
// falls strictly within that entry.
func (r *Ring) AbsoluteOffset(cmdIndex, byteOffset uint32) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.validCount()
	if int(cmdIndex) >= n {
		return 0, acerr.New("store.AbsoluteOffset", acerr.KindInvalid, "command index out of range")
	}

	var accumulated int64
	for i := 0; i < n; i++ {
		idx := (r.out + i) % Capacity
		e := r.slots[idx]
		if e.Len() == 0 {
			return 0, acerr.New("store.AbsoluteOffset", acerr.KindInvalid, "degenerate entry")
		}
		if i == int(cmdIndex) {
			if int64(byteOffset) >= int64(e.Len()) {
				return 0, acerr.New("store.AbsoluteOffset", acerr.KindInvalid, "byte offset out of range")
			}
			return accumulated + int64(byteOffset), nil
		}
		accumulated += int64(e.Len())
	}
	// unreachable given the bounds check above
	return 0, acerr.New("store.AbsoluteOffset", acerr.KindInvalid, "command index out of range")
}

// Iterate visits every valid entry in FIFO order.
func (r *Ring) Iterate(visit func(Entry)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.validCount()
	for i := 0; i < n; i++ {
		idx := (r.out + i) % Capacity
		visit(r.slots[idx])
	}
}

// Snapshot returns the concatenation of all valid entries' bytes, in FIFO
// order, as a single owned copy.
func (r *Ring) Snapshot() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]byte, 0, r.totalSizeLocked())
	n := r.validCount()
	for i := 0; i < n; i++ {
		idx := (r.out + i) % Capacity
		out = append(out, r.slots[idx].data...)
	}
	return out
}
