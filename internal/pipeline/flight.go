package pipeline

import "sync/atomic"

// flight is the single-flight busy flag. Only tryAcquire and release change it.
type flight struct {
	busy     atomic.Bool
	onChange func(busy bool)
}

// tryAcquire sets busy if it was clear and reports whether it did.
func (f *flight) tryAcquire() bool {
	if !f.busy.CompareAndSwap(false, true) {
		return false
	}
	if f.onChange != nil {
		f.onChange(true)
	}
	return true
}

// release clears busy. The observer runs before the flag is cleared so that
// it never sees a new acquisition ahead of this release.
func (f *flight) release() {
	if !f.busy.Load() {
		return
	}
	if f.onChange != nil {
		f.onChange(false)
	}
	f.busy.Store(false)
}

func (f *flight) active() bool {
	return f.busy.Load()
}
