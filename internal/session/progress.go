package session

// ProgressFunc is the user-facing progress hook (spec.md §9
// "Event-driven UI coupling"): the session invokes it synchronously
// after each chunk sent or received. UI adaptation lives outside the
// core.
type ProgressFunc func(fileIndex int, bytesDone, bytesTotal uint64)

func noopProgress(int, uint64, uint64) {}
