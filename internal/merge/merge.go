// Package merge batches LiDAR detections against the slower odometry
// stream, emitting one DetectionsAndOdometry per fresh odometry tick.
package merge

import (
	"time"

	"github.com/uwarg/obstacle-avoidance-core/internal/domain"
	"github.com/uwarg/obstacle-avoidance-core/internal/timeutil"
)

// Controller is the subset of the pipeline fabric's WorkerController
// a stage needs to cooperate with pause/exit.
type Controller interface {
	CheckPause()
	IsExitRequested() bool
}

// Merger accumulates detections until a fresh odometry sample arrives.
type Merger struct {
	Detections <-chan domain.LidarDetection
	Odometry   <-chan domain.OdometryAndWaypoint
	Output     chan<- domain.DetectionsAndOdometry
	Delay      time.Duration

	clock timeutil.Clock
}

// New returns a Merger using the real wall clock.
func New(detections <-chan domain.LidarDetection, odometry <-chan domain.OdometryAndWaypoint, output chan<- domain.DetectionsAndOdometry, delay time.Duration) *Merger {
	return NewWithClock(detections, odometry, output, delay, timeutil.RealClock{})
}

// NewWithClock returns a Merger driven by clock, for deterministic
// empty-poll testing.
func NewWithClock(detections <-chan domain.LidarDetection, odometry <-chan domain.OdometryAndWaypoint, output chan<- domain.DetectionsAndOdometry, delay time.Duration, clock timeutil.Clock) *Merger {
	return &Merger{Detections: detections, Odometry: odometry, Output: output, Delay: delay, clock: clock}
}

// Run drives the merge loop until the controller requests exit. It
// never blocks on a full output queue longer than the stage's own
// send; the supervisor's fill-and-drain unblocks a stuck send during
// shutdown.
func (m *Merger) Run(ctrl Controller) {
	var buffer []domain.LidarDetection

	for !ctrl.IsExitRequested() {
		ctrl.CheckPause()

		gotDetection := m.drainDetections(&buffer)
		odo, gotOdometry := m.pollOdometry()

		if !gotDetection && !gotOdometry && len(buffer) == 0 {
			m.clock.Sleep(m.Delay)
			continue
		}

		if gotOdometry && len(buffer) > 0 {
			batch := domain.DetectionsAndOdometry{Detections: buffer, Odometry: odo}
			m.Output <- batch
			buffer = nil
		}
	}
}

// drainDetections pulls every detection currently queued into buffer
// without blocking, reporting whether any were read.
func (m *Merger) drainDetections(buffer *[]domain.LidarDetection) bool {
	got := false
	for {
		select {
		case d, ok := <-m.Detections:
			if !ok {
				return got
			}
			*buffer = append(*buffer, d)
			got = true
		default:
			return got
		}
	}
}

func (m *Merger) pollOdometry() (domain.OdometryAndWaypoint, bool) {
	select {
	case o, ok := <-m.Odometry:
		return o, ok
	default:
		return domain.OdometryAndWaypoint{}, false
	}
}
