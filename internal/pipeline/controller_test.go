package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkerController_CheckPauseBlocksUntilResume(t *testing.T) {
	c := NewWorkerController()
	c.RequestPause()

	unblocked := make(chan struct{})
	go func() {
		c.CheckPause()
		close(unblocked)
	}()

	select {
	case <-unblocked:
		t.Fatal("CheckPause returned while paused")
	case <-time.After(50 * time.Millisecond):
	}

	c.RequestResume()

	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("CheckPause did not unblock after resume")
	}
}

func TestWorkerController_CheckPauseDoesNotBlockWhenNotPaused(t *testing.T) {
	c := NewWorkerController()

	done := make(chan struct{})
	go func() {
		c.CheckPause()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("CheckPause blocked with no pause in effect")
	}
}

func TestWorkerController_ExitSentinel(t *testing.T) {
	c := NewWorkerController()
	assert.False(t, c.IsExitRequested())

	c.RequestExit()
	assert.True(t, c.IsExitRequested())

	c.ClearExit()
	assert.False(t, c.IsExitRequested())
}

func TestWorkerController_DoublePauseAndResumeAreIdempotent(t *testing.T) {
	c := NewWorkerController()
	c.RequestPause()
	c.RequestPause() // must not deadlock by taking an already-empty permit

	done := make(chan struct{})
	go func() {
		c.CheckPause()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("CheckPause returned while still paused")
	case <-time.After(20 * time.Millisecond):
	}

	c.RequestResume()
	c.RequestResume() // must not deadlock by releasing twice

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("CheckPause did not unblock after resume")
	}
}
