package services

import "sync"

// Fence orders concurrent loads: each load takes a sequence number when it
// starts, and its result is applied only if no later load has been applied
// already. Out-of-order completions are discarded instead of overwriting
// newer state.
type Fence struct {
	mu      sync.Mutex
	issued  uint64
	applied uint64
}

// Begin returns the sequence number of a new load.
func (f *Fence) Begin() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued++
	return f.issued
}

// Apply runs fn under the fence lock if seq is newer than every applied
// sequence, and reports whether it ran.
func (f *Fence) Apply(seq uint64, fn func()) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if seq <= f.applied {
		return false
	}
	f.applied = seq
	fn()
	return true
}

// Issued returns the last sequence handed out by Begin.
func (f *Fence) Issued() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issued
}

// Applied returns the last applied sequence, 0 before the first load.
func (f *Fence) Applied() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applied
}
