// Package pipeline provides the fixed-graph concurrency fabric that
// wires stages together: cooperative pause, cooperative exit, and
// bounded lossy-on-teardown queues.
package pipeline

import "sync"

// WorkerController is the process-wide coordination point between the
// supervisor and every stage. check_pause blocks the caller while a
// pause is in effect, implemented by a single-permit semaphore taken
// on pause and released on resume; stages acquire-and-immediately-
// release it on every loop iteration. is_exit_requested is a
// non-blocking read of a sentinel.
type WorkerController struct {
	mu        sync.Mutex
	paused    bool
	permit    chan struct{}
	exitSet   bool
}

// NewWorkerController returns a controller with pause released and
// exit cleared.
func NewWorkerController() *WorkerController {
	c := &WorkerController{permit: make(chan struct{}, 1)}
	c.permit <- struct{}{}
	return c
}

// CheckPause blocks the caller for as long as a pause is in effect.
func (c *WorkerController) CheckPause() {
	<-c.permit
	c.permit <- struct{}{}
}

// RequestPause takes the single permit, blocking every subsequent
// CheckPause call until RequestResume is called.
func (c *WorkerController) RequestPause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return
	}
	c.paused = true
	<-c.permit
}

// RequestResume releases the permit, unblocking any stage parked in
// CheckPause.
func (c *WorkerController) RequestResume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return
	}
	c.paused = false
	c.permit <- struct{}{}
}

// IsExitRequested is a non-blocking read of the exit sentinel.
func (c *WorkerController) IsExitRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitSet
}

// RequestExit sets the exit sentinel.
func (c *WorkerController) RequestExit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exitSet = true
}

// ClearExit clears the exit sentinel, allowing the controller to be
// reused across a subsequent run.
func (c *WorkerController) ClearExit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exitSet = false
}
