package session

import "sync"

// faultSignal lets a background reader task hand a fatal error to the
// pipeline task without a race: the pipeline checks Done()/Err() at
// its own suspension points (spec.md §5 "Suspension points").
type faultSignal struct {
	once sync.Once
	ch   chan struct{}
	err  error
}

func newFaultSignal() *faultSignal {
	return &faultSignal{ch: make(chan struct{})}
}

func (f *faultSignal) set(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.ch)
	})
}

func (f *faultSignal) Done() <-chan struct{} { return f.ch }

func (f *faultSignal) Err() error {
	select {
	case <-f.ch:
		return f.err
	default:
		return nil
	}
}
