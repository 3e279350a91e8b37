package pipeline

import (
	"context"
	"log"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Stage is one unit of pipeline work: a long-running loop that
// cooperates with the WorkerController and returns when it observes
// exit.
type Stage func(ctx context.Context) error

// Supervisor owns the WorkerController, runs every registered stage
// concurrently, and orchestrates shutdown. It has no per-stage work of
// its own: it waits for a termination signal and drives teardown.
type Supervisor struct {
	RunID      string
	Controller *WorkerController
	Logger     *log.Logger

	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	drainFn []func()
}

// NewSupervisor returns a Supervisor with a fresh run ID and a
// controller whose pause is released and exit is cleared.
func NewSupervisor(logger *log.Logger) *Supervisor {
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	group, gctx := errgroup.WithContext(ctx)
	return &Supervisor{
		RunID:      uuid.NewString(),
		Controller: NewWorkerController(),
		Logger:     logger,
		group:      group,
		ctx:        gctx,
		cancel:     cancel,
	}
}

// Go registers a stage to run concurrently with every other
// registered stage.
func (s *Supervisor) Go(name string, stage Stage) {
	s.group.Go(func() error {
		s.Logger.Printf("pipeline[%s]: stage %q started", s.RunID, name)
		err := stage(s.ctx)
		if err != nil {
			s.Logger.Printf("pipeline[%s]: stage %q exited with error: %v", s.RunID, name, err)
		} else {
			s.Logger.Printf("pipeline[%s]: stage %q exited cleanly", s.RunID, name)
		}
		return err
	})
}

// RegisterQueue adds a teardown hook run during shutdown, after the
// controller's exit sentinel is set: it should push sentinel values
// into an inter-stage queue and drain them, the way Queue.FillAndDrain
// does, so any stage parked on that queue's blocking Get or Put
// observes the exit sentinel on its next loop iteration instead of
// blocking forever. Hooks run in registration order.
func (s *Supervisor) RegisterQueue(drain func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainFn = append(s.drainFn, drain)
}

// Wait blocks until every stage has returned. As soon as the
// supervisor's context is cancelled (SIGINT or a stage error), it sets
// the controller's exit sentinel and runs every registered queue
// teardown hook so stages parked on a blocking queue call unblock and
// observe the exit request on their next loop iteration.
func (s *Supervisor) Wait() error {
	go func() {
		<-s.ctx.Done()
		s.Controller.RequestExit()

		s.mu.Lock()
		hooks := append([]func(){}, s.drainFn...)
		s.mu.Unlock()
		for _, drain := range hooks {
			drain()
		}
	}()
	return s.group.Wait()
}

// Shutdown cancels the supervisor's context directly, for callers that
// need to stop the pipeline without waiting on a signal (e.g. the
// flight-interface bridge's MANUAL-mode kill switch).
func (s *Supervisor) Shutdown() {
	s.cancel()
}
