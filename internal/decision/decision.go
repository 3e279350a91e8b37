// Package decision implements the simple proximity decision engine: a
// command-latched state machine issuing STOP/RESUME commands based on
// the most recent merged detection batches and the autopilot's
// observed flight mode.
package decision

import (
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/uwarg/obstacle-avoidance-core/internal/domain"
	"github.com/uwarg/obstacle-avoidance-core/internal/timeutil"
)

// Config parameterizes Engine.
type Config struct {
	ProximityLimit float64 // metres
	MaxHistory     int
	CommandTimeout time.Duration
}

// Engine holds the latched command state and bounded batch history.
type Engine struct {
	cfg   Config
	clock timeutil.Clock

	history         []domain.DetectionsAndOdometry
	commandRequested bool
	lastCommandSent domain.FlightMode
	commandSentAt   time.Time
}

// New returns an Engine using the real wall clock.
func New(cfg Config) *Engine {
	return NewWithClock(cfg, timeutil.RealClock{})
}

// NewWithClock returns an Engine driven by clock, for deterministic
// timeout testing.
func NewWithClock(cfg Config, clock timeutil.Clock) *Engine {
	return &Engine{cfg: cfg, clock: clock}
}

// Push feeds one merged batch into the engine and returns the command
// to issue, if any.
func (e *Engine) Push(batch domain.DetectionsAndOdometry) (domain.DecisionCommand, bool) {
	e.appendHistory(batch)

	if e.commandRequested && batch.Odometry.FlightMode == e.lastCommandSent {
		e.commandRequested = false
	}

	if e.commandRequested {
		if e.clock.Since(e.commandSentAt) > e.cfg.CommandTimeout {
			e.commandSentAt = e.clock.Now()
			return e.commandFor(e.lastCommandSent), true
		}
		return domain.DecisionCommand{}, false
	}

	return e.evaluateHistory(batch.Odometry.FlightMode)
}

func (e *Engine) appendHistory(batch domain.DetectionsAndOdometry) {
	e.history = append(e.history, batch)
	if e.cfg.MaxHistory > 0 && len(e.history) > e.cfg.MaxHistory {
		e.history = e.history[len(e.history)-e.cfg.MaxHistory:]
	}
}

// evaluateHistory scans history oldest-to-newest for a proximity edge
// and latches a new command when one is found.
func (e *Engine) evaluateHistory(currentMode domain.FlightMode) (domain.DecisionCommand, bool) {
	for _, batch := range e.history {
		switch currentMode {
		case domain.FlightModeStopped:
			if !e.anyWithinLimit(batch.Detections) {
				e.latch(domain.FlightModeMoving)
				return e.commandFor(domain.FlightModeMoving), true
			}
		case domain.FlightModeMoving:
			if e.anyWithinLimit(batch.Detections) {
				e.latch(domain.FlightModeStopped)
				return e.commandFor(domain.FlightModeStopped), true
			}
		}
	}
	return domain.DecisionCommand{}, false
}

func (e *Engine) latch(mode domain.FlightMode) {
	e.commandRequested = true
	e.lastCommandSent = mode
	e.commandSentAt = e.clock.Now()
	e.history = nil
}

// anyWithinLimit reports whether the closest detection in batch is
// within the proximity limit.
func (e *Engine) anyWithinLimit(detections []domain.LidarDetection) bool {
	if len(detections) == 0 {
		return false
	}
	distances := make([]float64, len(detections))
	for i, d := range detections {
		distances[i] = d.Distance
	}
	return floats.Min(distances) < e.cfg.ProximityLimit
}

func (e *Engine) commandFor(mode domain.FlightMode) domain.DecisionCommand {
	if mode == domain.FlightModeMoving {
		return domain.DecisionCommand{Kind: domain.ResumeMission}
	}
	return domain.DecisionCommand{Kind: domain.StopMissionAndHalt}
}
