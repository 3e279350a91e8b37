// Package flightlink bridges the autopilot link with the pipeline:
// converting coordinate frames and gating command dispatch until the
// drone has neared the first mission waypoint.
package flightlink

import (
	"context"
	"time"

	"github.com/uwarg/obstacle-avoidance-core/internal/domain"
)

// AutopilotLink is a narrow interface in front of the real autopilot
// connection, letting tests substitute a fake without touching the
// bridge's own logic.
type AutopilotLink interface {
	// GetHomeLocation blocks up to timeout waiting for the autopilot
	// to report its home location.
	GetHomeLocation(ctx context.Context, timeout time.Duration) (GlobalPosition, error)
	// GetOdometry returns the current global position and orientation.
	GetOdometry(ctx context.Context) (GlobalPosition, domain.Orientation, error)
	// GetFlightMode returns the autopilot's current mode string.
	GetFlightMode(ctx context.Context) (string, error)
	// GetNextWaypoint returns the next mission waypoint in geodetic
	// coordinates.
	GetNextWaypoint(ctx context.Context) (GlobalPosition, error)
	// SetFlightMode requests a mode change.
	SetFlightMode(ctx context.Context, mode string) error
	// SetYaw commands a relative heading change in degrees, used to
	// steer along a VFH-selected valley.
	SetYaw(ctx context.Context, angleDegrees float64) error
}

// Config parameterizes Bridge.
type Config struct {
	WorkerPeriod                    time.Duration
	HomeLocationTimeout              time.Duration
	FirstWaypointDistanceTolerance  float64 // metres
}

// Bridge owns the autopilot link for the lifetime of the pipeline. It
// is constructed once (opening the link, fetching home location and
// the first waypoint) and then ticked repeatedly.
type Bridge struct {
	link AutopilotLink
	cfg  Config

	home                  GlobalPosition
	firstWaypointLocal    domain.PositionLocal
	toleranceSquared      float64
	armed                 bool
}

// Open opens the bridge: fetches home location and the first mission
// waypoint and converts it to local NED, ready for Tick. A failure here
// means the flight-interface stage never starts its loop.
func Open(ctx context.Context, link AutopilotLink, cfg Config) (*Bridge, error) {
	home, err := link.GetHomeLocation(ctx, cfg.HomeLocationTimeout)
	if err != nil {
		return nil, err
	}

	waypoint, err := link.GetNextWaypoint(ctx)
	if err != nil {
		return nil, err
	}

	tolerance := cfg.FirstWaypointDistanceTolerance
	return &Bridge{
		link:               link,
		cfg:                cfg,
		home:               home,
		firstWaypointLocal: globalToLocal(waypoint, home),
		toleranceSquared:   tolerance * tolerance,
	}, nil
}

// TickResult is everything one Tick produces: the odometry sample to
// forward downstream, and whether the pilot has taken manual control
// (requiring pipeline exit).
type TickResult struct {
	Odometry    domain.OdometryAndWaypoint
	ManualKill  bool
}

// Tick performs one flight-interface cycle: refresh odometry and
// flight mode, convert to local NED, and check the arming guard.
// Command dispatch is a separate step (DispatchCommand/DispatchSteering
// below) since it depends on a command pulled from a decision queue.
func (b *Bridge) Tick(ctx context.Context, now time.Time) (TickResult, error) {
	global, orientation, err := b.link.GetOdometry(ctx)
	if err != nil {
		return TickResult{}, err
	}

	local := globalToLocal(global, b.home)

	modeStr, err := b.link.GetFlightMode(ctx)
	if err != nil {
		return TickResult{}, err
	}
	mode := domain.ParseFlightMode(modeStr)

	if !b.armed && local.DistanceSquaredTo(b.firstWaypointLocal) <= b.toleranceSquared {
		b.armed = true
	}

	odo := domain.OdometryAndWaypoint{
		LocalPosition: local,
		Orientation:   orientation,
		FlightMode:    mode,
		NextWaypoint:  b.firstWaypointLocal,
		Timestamp:     float64(now.Unix()) + float64(now.Nanosecond())/1e9,
	}

	return TickResult{Odometry: odo, ManualKill: mode == domain.FlightModeManual}, nil
}

// Armed reports whether the command-dispatch guard has latched open.
func (b *Bridge) Armed() bool {
	return b.armed
}

// DispatchCommand translates and sends a DecisionCommand to the
// autopilot, gated on the arming guard. It is a no-op, returning
// (false, nil), when the guard has not yet armed.
func (b *Bridge) DispatchCommand(ctx context.Context, cmd domain.DecisionCommand) (bool, error) {
	if !b.armed {
		return false, nil
	}

	var mode string
	switch cmd.Kind {
	case domain.StopMissionAndHalt:
		mode = "LOITER"
	case domain.ResumeMission:
		mode = "AUTO"
	}

	if err := b.link.SetFlightMode(ctx, mode); err != nil {
		return false, err
	}
	return true, nil
}

// DispatchSteering translates and sends a VFH SteeringCommand to the
// autopilot, gated on the same arming guard as DispatchCommand. Reverse
// and NoChange are not forwarded: no autopilot call is made for them
// and (false, nil) is returned. The flight-interface stage does not
// turn a Reverse into a mode change either, so a Reverse has no effect
// on the autopilot.
func (b *Bridge) DispatchSteering(ctx context.Context, cmd domain.SteeringCommand) (bool, error) {
	if !b.armed {
		return false, nil
	}

	angle, ok := cmd.IsAngle()
	if !ok {
		return false, nil
	}

	if err := b.link.SetYaw(ctx, angle); err != nil {
		return false, err
	}
	return true, nil
}
