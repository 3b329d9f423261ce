package session

import "sync"

// maxOutstandingBytes bounds the sender's unacknowledged send window
// (spec.md §4.5: "pause when unacked > 4 MiB, resume on ack").
const maxOutstandingBytes = 4 << 20

// creditWindow is a simple condition-variable-based byte semaphore.
// No ecosystem semaphore package appears anywhere in the retrieved
// pack, and the teacher itself never needs backpressure this shaped
// (BDLS consensus messages are tiny compared to file chunks) — a
// sync.Cond is the direct stdlib idiom for a wait-until-room-available
// gate and needs no more than this.
type creditWindow struct {
	mu          sync.Mutex
	cond        *sync.Cond
	outstanding uint64
	closed      bool
}

func newCreditWindow() *creditWindow {
	w := &creditWindow{}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// acquire blocks until there is room for n more outstanding bytes,
// then reserves it. Returns false if the window was closed while
// waiting (session tearing down).
func (w *creditWindow) acquire(n uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for !w.closed && w.outstanding+n > maxOutstandingBytes {
		w.cond.Wait()
	}
	if w.closed {
		return false
	}
	w.outstanding += n
	return true
}

// release frees n previously-acquired bytes, typically on receipt of
// a Progress packet acting as the per-chunk credit-release signal.
func (w *creditWindow) release(n uint64) {
	w.mu.Lock()
	if n > w.outstanding {
		w.outstanding = 0
	} else {
		w.outstanding -= n
	}
	w.mu.Unlock()
	w.cond.Broadcast()
}

// close unblocks any waiting acquire call, used on session teardown.
func (w *creditWindow) close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.cond.Broadcast()
}
