// Package oscillation segments a continuous stream of LiDAR detections
// into oscillations — one monotonic sweep of the steerable head in one
// direction, bounded by a single direction reversal. A full
// back-and-forth of the head yields two oscillations.
package oscillation

import "github.com/uwarg/obstacle-avoidance-core/internal/domain"

type direction int

const (
	directionNone direction = iota
	directionUp
	directionDown
)

// Segmenter holds the running buffer, last-seen angle, and current
// sweep direction needed to detect reversals.
type Segmenter struct {
	buffer    []domain.LidarDetection
	lastAngle float64
	haveLast  bool
	dir       direction
}

// New returns an empty Segmenter.
func New() *Segmenter {
	return &Segmenter{}
}

// Push feeds one detection into the segmenter. It returns a completed
// oscillation and true when d's angle reverses the current sweep
// direction; otherwise it returns the zero value and false, having
// appended d to the running buffer.
//
// Readings received before the first reversal are emitted as the
// first oscillation when the reversal finally occurs — a known
// startup condition.
func (s *Segmenter) Push(d domain.LidarDetection) (domain.LidarOscillation, bool) {
	if !s.haveLast {
		s.lastAngle = d.Angle
		s.haveLast = true
		s.buffer = append(s.buffer, d)
		return domain.LidarOscillation{}, false
	}

	if s.dir == directionNone {
		if d.Angle > s.lastAngle {
			s.dir = directionUp
		} else if d.Angle < s.lastAngle {
			s.dir = directionDown
		}
		s.buffer = append(s.buffer, d)
		s.lastAngle = d.Angle
		return domain.LidarOscillation{}, false
	}

	reversed := (s.dir == directionDown && d.Angle > s.lastAngle) ||
		(s.dir == directionUp && d.Angle < s.lastAngle)

	if reversed {
		osc, err := domain.NewLidarOscillation(s.buffer)
		newDir := directionUp
		if s.dir == directionUp {
			newDir = directionDown
		}
		s.buffer = []domain.LidarDetection{d}
		s.dir = newDir
		s.lastAngle = d.Angle
		if err != nil {
			// Empty buffer cannot happen here (buffer always has
			// at least the seed reading), but guard defensively
			// against emitting a zero-value oscillation.
			return domain.LidarOscillation{}, false
		}
		return osc, true
	}

	s.buffer = append(s.buffer, d)
	s.lastAngle = d.Angle
	return domain.LidarOscillation{}, false
}
