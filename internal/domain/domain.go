// Package domain holds the value types that flow between pipeline
// stages: LiDAR detections, odometry samples, obstacle-density
// histograms, and the commands the decision stages emit. Every type
// here is produced at one stage boundary and consumed at the next;
// once a value is handed to a queue it is owned by exactly one
// consumer.
package domain

import (
	"fmt"
	"math"
)

// LidarDetection is one ranged-and-angled reading from the steerable
// LiDAR head. Distance is metres, angle is degrees from the sensor's
// forward axis.
type LidarDetection struct {
	Distance float64
	Angle    float64
}

// NewLidarDetection validates a reading against the sensor's physical
// envelope and returns an error instead of a detection outside it.
func NewLidarDetection(distance, angle float64) (LidarDetection, error) {
	if distance < 0 || distance > 50 {
		return LidarDetection{}, fmt.Errorf("domain: distance %.3f out of range [0,50]", distance)
	}
	if angle < -170 || angle > 170 {
		return LidarDetection{}, fmt.Errorf("domain: angle %.3f out of range [-170,170]", angle)
	}
	return LidarDetection{Distance: distance, Angle: angle}, nil
}

// DetectionPoint is the Cartesian projection of a detection into the
// drone's instantaneous body frame.
type DetectionPoint struct {
	X, Y float64
}

// ToPoint projects a detection into the body frame.
func (d LidarDetection) ToPoint() DetectionPoint {
	rad := d.Angle * math.Pi / 180
	return DetectionPoint{
		X: d.Distance * math.Cos(rad),
		Y: d.Distance * math.Sin(rad),
	}
}

// LidarOscillation is one monotonic sweep of the steerable head,
// bounded by a single direction reversal.
type LidarOscillation struct {
	Readings          []LidarDetection
	MinAngle, MaxAngle float64
}

// NewLidarOscillation computes MinAngle/MaxAngle from readings.
// readings must be non-empty.
func NewLidarOscillation(readings []LidarDetection) (LidarOscillation, error) {
	if len(readings) == 0 {
		return LidarOscillation{}, fmt.Errorf("domain: oscillation requires at least one reading")
	}
	minA, maxA := readings[0].Angle, readings[0].Angle
	for _, r := range readings[1:] {
		if r.Angle < minA {
			minA = r.Angle
		}
		if r.Angle > maxA {
			maxA = r.Angle
		}
	}
	return LidarOscillation{Readings: readings, MinAngle: minA, MaxAngle: maxA}, nil
}

// PositionLocal is a NED-frame position relative to home, in metres.
type PositionLocal struct {
	North, East, Down float64
}

// DistanceSquaredTo returns the squared Euclidean distance to other,
// used for comparing against a tolerance without a sqrt.
func (p PositionLocal) DistanceSquaredTo(other PositionLocal) float64 {
	dn := other.North - p.North
	de := other.East - p.East
	dd := other.Down - p.Down
	return dn*dn + de*de + dd*dd
}

// Orientation holds drone attitude in radians.
type Orientation struct {
	Roll, Pitch, Yaw float64
}

// FlightMode is the autopilot mode, parsed once at the telemetry
// boundary and carried as a tagged value from then on (never as a raw
// string).
type FlightMode int

const (
	FlightModeUnknown FlightMode = iota
	FlightModeStopped
	FlightModeMoving
	FlightModeManual
	FlightModeAuto
	FlightModeLoiter
	FlightModeGuided
	FlightModeRTL
)

func (m FlightMode) String() string {
	switch m {
	case FlightModeStopped:
		return "STOPPED"
	case FlightModeMoving:
		return "MOVING"
	case FlightModeManual:
		return "MANUAL"
	case FlightModeAuto:
		return "AUTO"
	case FlightModeLoiter:
		return "LOITER"
	case FlightModeGuided:
		return "GUIDED"
	case FlightModeRTL:
		return "RTL"
	default:
		return "UNKNOWN"
	}
}

// ParseFlightMode maps an autopilot-reported mode string into the
// tagged FlightMode. Unrecognised strings map to FlightModeUnknown
// rather than erroring, since an unmapped mode should not halt the
// telemetry tick.
func ParseFlightMode(s string) FlightMode {
	switch s {
	case "STOPPED":
		return FlightModeStopped
	case "MOVING":
		return FlightModeMoving
	case "MANUAL":
		return FlightModeManual
	case "AUTO":
		return FlightModeAuto
	case "LOITER":
		return FlightModeLoiter
	case "GUIDED":
		return FlightModeGuided
	case "RTL":
		return FlightModeRTL
	default:
		return FlightModeUnknown
	}
}

// OdometryAndWaypoint bundles a drone telemetry sample with the next
// mission waypoint and the wall-clock time it was produced.
type OdometryAndWaypoint struct {
	LocalPosition PositionLocal
	Orientation   Orientation
	FlightMode    FlightMode
	NextWaypoint  PositionLocal
	Timestamp     float64 // seconds, wall-clock
}

// DetectionsAndOdometry is the merge stage's output unit: every
// detection accumulated since the previous batch, paired with the
// freshest odometry observed.
type DetectionsAndOdometry struct {
	Detections []LidarDetection
	Odometry   OdometryAndWaypoint
}

// SectorObstacleDensity is one angular bucket of a polar histogram.
type SectorObstacleDensity struct {
	AngleStart, AngleEnd float64
	Density              float64
}

// PolarObstacleDensity is a full histogram: contiguous sectors
// partitioning [start_angle, end_angle].
type PolarObstacleDensity struct {
	Sectors []SectorObstacleDensity
}

// DecisionKind tags a DecisionCommand.
type DecisionKind int

const (
	StopMissionAndHalt DecisionKind = iota
	ResumeMission
)

func (k DecisionKind) String() string {
	if k == StopMissionAndHalt {
		return "STOP_MISSION_AND_HALT"
	}
	return "RESUME_MISSION"
}

// DecisionCommand is an immutable command issued to the autopilot by
// the proximity decision engine.
type DecisionCommand struct {
	Kind DecisionKind
}

// SteeringCommand is the VFH decision's output: either a concrete
// heading, a total-blockage reverse escape, or an indication that no
// steering correction is needed.
type SteeringCommand struct {
	kind  steeringKind
	angle float64
}

type steeringKind int

const (
	steeringNoChange steeringKind = iota
	steeringReverse
	steeringAngle
)

// NewSteeringAngle builds a SteeringCommand carrying a heading in
// degrees.
func NewSteeringAngle(angleDegrees float64) SteeringCommand {
	return SteeringCommand{kind: steeringAngle, angle: angleDegrees}
}

// SteeringReverse is the total-blockage escape command.
var SteeringReverse = SteeringCommand{kind: steeringReverse}

// SteeringNoChange indicates the autopilot's current heading is clear.
var SteeringNoChange = SteeringCommand{kind: steeringNoChange}

// IsAngle reports whether the command carries a heading, returning it
// when true.
func (s SteeringCommand) IsAngle() (float64, bool) {
	return s.angle, s.kind == steeringAngle
}

// IsReverse reports whether this is the total-blockage escape command.
func (s SteeringCommand) IsReverse() bool {
	return s.kind == steeringReverse
}

// IsNoChange reports whether this indicates no steering change.
func (s SteeringCommand) IsNoChange() bool {
	return s.kind == steeringNoChange
}

func (s SteeringCommand) String() string {
	switch s.kind {
	case steeringAngle:
		return fmt.Sprintf("Angle(%.2f)", s.angle)
	case steeringReverse:
		return "Reverse"
	default:
		return "NoChange"
	}
}
