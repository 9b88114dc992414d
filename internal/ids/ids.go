// Package ids allocates the two integer id spaces used throughout sessiond:
// non-negative session ids (standing in for the OS pids the original
// design forked) and negative handler ids (naming an HTTP exchange's
// ephemeral reply channel).
package ids

import "sync/atomic"

// SessionAllocator hands out unique, never-reused, monotonically increasing
// session ids, starting at 1. Session id 0 is reserved for the root/
// template worker and is never returned by Next.
type SessionAllocator struct {
	counter atomic.Int64
}

// Next returns the next session id.
func (a *SessionAllocator) Next() int64 {
	return a.counter.Add(1)
}

// HandlerAllocator hands out unique negative handler ids, starting at -1.
type HandlerAllocator struct {
	counter atomic.Int64
}

// Next returns the next handler id.
func (a *HandlerAllocator) Next() int64 {
	return -a.counter.Add(1)
}
