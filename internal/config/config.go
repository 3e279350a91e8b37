// Package config loads config.yaml, the obstacle-avoidance core's only
// external configuration surface.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const maxConfigFileSize = 1 * 1024 * 1024 // 1MB

// Mode selects the top-level pipeline topology. Parsed once at load
// time: the string never crosses a stage boundary after this.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeSimple
	ModeVFH
)

func parseMode(s string) (Mode, error) {
	switch s {
	case "simple":
		return ModeSimple, nil
	case "normal":
		return ModeVFH, nil
	default:
		return ModeUnknown, fmt.Errorf("config: unrecognised obstacle_avoidance_mode %q", s)
	}
}

// FlightInterfaceConfig configures the autopilot link and bridge tick.
type FlightInterfaceConfig struct {
	Address                        string  `yaml:"address"`
	Timeout                        float64 `yaml:"timeout"`
	WorkerPeriod                   float64 `yaml:"worker_period"`
	FirstWaypointDistanceTolerance float64 `yaml:"first_waypoint_distance_tolerance"`
}

// DetectionConfig configures the LiDAR serial port and scan extents.
type DetectionConfig struct {
	SerialPortName     string  `yaml:"serial_port_name"`
	SerialPortBaudrate int     `yaml:"serial_port_baudrate"`
	PortTimeout        float64 `yaml:"port_timeout"`
	UpdateRate         int     `yaml:"update_rate"`
	LowAngle           float64 `yaml:"low_angle"`
	HighAngle          float64 `yaml:"high_angle"`
	RotateSpeed        int     `yaml:"rotate_speed"`
}

// DataMergeConfig configures the merge stage's empty-poll sleep.
type DataMergeConfig struct {
	Delay float64 `yaml:"delay"`
}

// DecisionConfig configures the simple proximity decision engine.
type DecisionConfig struct {
	ObjectProximityLimit float64 `yaml:"object_proximity_limit"`
	MaxHistory           int     `yaml:"max_history"`
	CommandTimeout       float64 `yaml:"command_timeout"`
}

// Config is the fully parsed contents of config.yaml.
type Config struct {
	QueueMaxSize          int     `yaml:"queue_max_size"`
	ObstacleAvoidanceMode string  `yaml:"obstacle_avoidance_mode"`
	FlightInterface       FlightInterfaceConfig `yaml:"flight_interface"`
	Detection             DetectionConfig       `yaml:"detection"`
	DataMerge             DataMergeConfig       `yaml:"data_merge"`
	Decision              DecisionConfig        `yaml:"decision"`

	SectorWidth        float64 `yaml:"sector_width"`
	MaxVectorMagnitude float64 `yaml:"max_vector_magnitude"`
	LinearDecayRate    float64 `yaml:"linear_decay_rate"`
	ConfidenceValue    float64 `yaml:"confidence_value"`
	StartAngle         float64 `yaml:"start_angle"`
	EndAngle           float64 `yaml:"end_angle"`

	DensityThreshold    float64 `yaml:"density_threshold"`
	MinConsecSectors    int     `yaml:"min_consec_sectors"`
	WideValleyThreshold float64 `yaml:"wide_valley_threshold"`

	mode Mode
}

// Mode returns the parsed obstacle_avoidance_mode.
func (c *Config) Mode() Mode {
	return c.mode
}

// Load reads and parses path: a missing file, an oversized file, a
// parse error, or an unrecognised mode all return a non-nil error so
// the caller can exit with a non-zero status.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("config: failed to stat %q: %w", cleanPath, err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config: %q is too large: %d bytes (max %d)", cleanPath, info.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %q: %w", cleanPath, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %q: %w", cleanPath, err)
	}

	cfg.applyDefaults()

	mode, err := parseMode(cfg.ObstacleAvoidanceMode)
	if err != nil {
		return nil, err
	}
	cfg.mode = mode

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.QueueMaxSize <= 0 {
		c.QueueMaxSize = 10
	}
	if c.SectorWidth <= 0 {
		c.SectorWidth = 2.0
	}
	if c.StartAngle == 0 && c.EndAngle == 0 {
		c.StartAngle, c.EndAngle = -90.0, 90.0
	}
	if c.MaxVectorMagnitude == 0 {
		c.MaxVectorMagnitude = 1.0
	}
	if c.LinearDecayRate == 0 {
		c.LinearDecayRate = 0.1
	}
	if c.ConfidenceValue == 0 {
		c.ConfidenceValue = 0.9
	}
}

// Validate checks fields that must hold regardless of defaulting:
// required strings present, detection.update_rate in [1,12], and
// decision.command_timeout positive.
func (c *Config) Validate() error {
	if c.FlightInterface.Address == "" {
		return fmt.Errorf("config: flight_interface.address is required")
	}
	if c.Detection.SerialPortName == "" {
		return fmt.Errorf("config: detection.serial_port_name is required")
	}
	if c.Detection.UpdateRate < 1 || c.Detection.UpdateRate > 12 {
		return fmt.Errorf("config: detection.update_rate must be in [1,12], got %d", c.Detection.UpdateRate)
	}
	if c.Decision.CommandTimeout <= 0 {
		return fmt.Errorf("config: decision.command_timeout must be positive")
	}
	return nil
}

// WorkerPeriodDuration converts the flight-interface worker period
// into a time.Duration.
func (c *Config) WorkerPeriodDuration() time.Duration {
	return time.Duration(c.FlightInterface.WorkerPeriod * float64(time.Second))
}

// CommandTimeoutDuration converts decision.command_timeout into a
// time.Duration.
func (c *Config) CommandTimeoutDuration() time.Duration {
	return time.Duration(c.Decision.CommandTimeout * float64(time.Second))
}

// MergeDelayDuration converts data_merge.delay into a time.Duration.
func (c *Config) MergeDelayDuration() time.Duration {
	return time.Duration(c.DataMerge.Delay * float64(time.Second))
}

// PortTimeoutDuration converts detection.port_timeout into a
// time.Duration.
func (c *Config) PortTimeoutDuration() time.Duration {
	return time.Duration(c.Detection.PortTimeout * float64(time.Second))
}
