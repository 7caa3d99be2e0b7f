package client

import "sync"

// OnProgressFunc observes one downloaded chunk of a stream. bytesRemaining is
// relative to the stream's total size when known, -1 otherwise.
type OnProgressFunc func(s *Stream, chunk []byte, bytesRemaining int64)

// OnCompleteFunc observes a finished download. path is empty for writer-based
// downloads.
type OnCompleteFunc func(s *Stream, path string)

// callbackCell is the state shared by reference across every Stream in one
// session. Registering a callback after streams are built must be visible to
// all of them, so the cell is mutated under a lock and never replaced.
type callbackCell struct {
	mu         sync.RWMutex
	onProgress OnProgressFunc
	onComplete OnCompleteFunc
}

func (c *callbackCell) setOnProgress(fn OnProgressFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onProgress = fn
}

func (c *callbackCell) setOnComplete(fn OnCompleteFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onComplete = fn
}

func (c *callbackCell) emitProgress(s *Stream, chunk []byte, bytesRemaining int64) {
	c.mu.RLock()
	fn := c.onProgress
	c.mu.RUnlock()
	if fn != nil {
		fn(s, chunk, bytesRemaining)
	}
}

func (c *callbackCell) emitComplete(s *Stream, path string) {
	c.mu.RLock()
	fn := c.onComplete
	c.mu.RUnlock()
	if fn != nil {
		fn(s, path)
	}
}
