package main

import (
	"context"
	"fmt"
	"time"

	"github.com/uwarg/obstacle-avoidance-core/internal/config"
	"github.com/uwarg/obstacle-avoidance-core/internal/domain"
	"github.com/uwarg/obstacle-avoidance-core/internal/flightlink"
)

// unwiredAutopilotLink satisfies flightlink.AutopilotLink without a
// real autopilot connection. Connecting to a real autopilot is out of
// scope for this module; every method here returns an error so a
// misconfigured deployment fails fast at flightlink.Open rather than
// silently reporting a stale position.
//
// TODO: replace with a real MAVLink TCP client once that collaborator
// is in scope; flightlink.AutopilotLink is the integration point.
type unwiredAutopilotLink struct {
	address string
}

func newAutopilotLink(cfg *config.Config) flightlink.AutopilotLink {
	return &unwiredAutopilotLink{address: cfg.FlightInterface.Address}
}

func (l *unwiredAutopilotLink) GetHomeLocation(ctx context.Context, timeout time.Duration) (flightlink.GlobalPosition, error) {
	return flightlink.GlobalPosition{}, fmt.Errorf("autopilot link %q not wired: no home location", l.address)
}

func (l *unwiredAutopilotLink) GetOdometry(ctx context.Context) (flightlink.GlobalPosition, domain.Orientation, error) {
	return flightlink.GlobalPosition{}, domain.Orientation{}, fmt.Errorf("autopilot link %q not wired: no odometry", l.address)
}

func (l *unwiredAutopilotLink) GetFlightMode(ctx context.Context) (string, error) {
	return "", fmt.Errorf("autopilot link %q not wired: no flight mode", l.address)
}

func (l *unwiredAutopilotLink) GetNextWaypoint(ctx context.Context) (flightlink.GlobalPosition, error) {
	return flightlink.GlobalPosition{}, fmt.Errorf("autopilot link %q not wired: no mission waypoint", l.address)
}

func (l *unwiredAutopilotLink) SetFlightMode(ctx context.Context, mode string) error {
	return fmt.Errorf("autopilot link %q not wired: cannot set mode %q", l.address, mode)
}

func (l *unwiredAutopilotLink) SetYaw(ctx context.Context, angleDegrees float64) error {
	return fmt.Errorf("autopilot link %q not wired: cannot set yaw %.1f", l.address, angleDegrees)
}
