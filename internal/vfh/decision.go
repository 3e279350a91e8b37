package vfh

import (
	"math"

	"github.com/uwarg/obstacle-avoidance-core/internal/domain"
)

// DecisionConfig parameterizes Decision.Run.
type DecisionConfig struct {
	DensityThreshold    float64
	MinConsecSectors    int
	WideValleyThreshold float64 // degrees
}

// Decision selects a steering command from a polar obstacle-density
// histogram and the current odometry.
type Decision struct {
	cfg DecisionConfig
}

// NewDecision returns a Decision parameterized by cfg.
func NewDecision(cfg DecisionConfig) *Decision {
	return &Decision{cfg: cfg}
}

// valley is a maximal run of consecutive sectors below the density
// threshold.
type valley struct {
	start, end int // sector indices, inclusive
}

func (v valley) centre(sectors []domain.SectorObstacleDensity) float64 {
	lo := sectors[v.start].AngleStart
	hi := sectors[v.end].AngleEnd
	return (lo + hi) / 2
}

// Run implements the four-step valley-selection algorithm: compute the
// target angle toward the next waypoint, scan for candidate valleys,
// apply the wide-valley pre-check in AUTO mode, then pick the valley
// nearest the target or fall back to Reverse on total blockage.
func (d *Decision) Run(density domain.PolarObstacleDensity, odo domain.OdometryAndWaypoint) domain.SteeringCommand {
	sectors := density.Sectors
	if len(sectors) == 0 {
		return domain.SteeringReverse
	}

	targetAngle := targetAngleDegrees(odo)
	valleys := candidateValleys(sectors, d.cfg.DensityThreshold, d.cfg.MinConsecSectors)

	if len(valleys) == 0 {
		return domain.SteeringReverse
	}

	if odo.FlightMode == domain.FlightModeAuto {
		half := d.cfg.WideValleyThreshold / 2
		for _, v := range valleys {
			if sectors[v.start].AngleStart <= -half && sectors[v.end].AngleEnd >= half {
				return domain.SteeringNoChange
			}
		}
	}

	best := valleys[0]
	bestDelta := math.Abs(best.centre(sectors) - targetAngle)
	for _, v := range valleys[1:] {
		delta := math.Abs(v.centre(sectors) - targetAngle)
		if delta < bestDelta {
			best, bestDelta = v, delta
		}
	}
	return domain.NewSteeringAngle(best.centre(sectors))
}

// targetAngleDegrees computes the bearing from the current local
// position to the next waypoint, in degrees, measured the same way as
// the histogram's angle axis (0 = straight ahead / north).
func targetAngleDegrees(odo domain.OdometryAndWaypoint) float64 {
	dNorth := odo.NextWaypoint.North - odo.LocalPosition.North
	dEast := odo.NextWaypoint.East - odo.LocalPosition.East
	return math.Atan2(dEast, dNorth) * 180 / math.Pi
}

// candidateValleys scans sectors in order, accumulating maximal runs
// below threshold and dropping runs shorter than minConsec.
func candidateValleys(sectors []domain.SectorObstacleDensity, threshold float64, minConsec int) []valley {
	var valleys []valley
	runStart := -1
	for i, s := range sectors {
		if s.Density < threshold {
			if runStart == -1 {
				runStart = i
			}
			continue
		}
		if runStart != -1 {
			if i-runStart >= minConsec {
				valleys = append(valleys, valley{start: runStart, end: i - 1})
			}
			runStart = -1
		}
	}
	if runStart != -1 && len(sectors)-runStart >= minConsec {
		valleys = append(valleys, valley{start: runStart, end: len(sectors) - 1})
	}
	return valleys
}
