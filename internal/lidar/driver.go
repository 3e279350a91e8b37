package lidar

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"math"
	"time"

	"go.bug.st/serial"

	"github.com/uwarg/obstacle-avoidance-core/internal/domain"
)

// SerialPorter is the minimal interface the driver needs from a
// serial port, narrow enough to be satisfied by a mock in tests.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// Config is the SF45/B's operating configuration, sourced from
// config.yaml's detection.* keys.
type Config struct {
	PortName     string
	BaudRate     int
	PortTimeout  time.Duration
	UpdateRate   int     // 1..12
	LowAngle     float64 // -170..-5 degrees
	HighAngle    float64 // 5..170 degrees
	RotateSpeed  int     // 5..2000, 5 is fastest
	Logger       *log.Logger
}

func (c Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

// Driver owns the serial port handle for the lifetime of the
// pipeline; it is the only stage permitted to touch it (§5 shared
// resource policy).
type Driver struct {
	port   SerialPorter
	cfg    Config
	parser *packetParser
	logger *log.Logger
}

// Open opens the named serial port and returns a Driver. It does not
// run the initial configuration sequence; call Init for that.
func Open(cfg Config) (*Driver, error) {
	mode := &serial.Mode{BaudRate: cfg.BaudRate}
	port, err := serial.Open(cfg.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("lidar: open %s: %w", cfg.PortName, err)
	}
	return newDriver(port, cfg), nil
}

// newDriver wraps an already-open port, used directly in tests with a
// mock SerialPorter.
func newDriver(port SerialPorter, cfg Config) *Driver {
	return &Driver{
		port:   port,
		cfg:    cfg,
		parser: newPacketParser(),
		logger: cfg.logger(),
	}
}

// Close releases the serial port.
func (d *Driver) Close() error {
	return d.port.Close()
}

const defaultRetries = 4

// executeCommand sends a request packet and waits up to timeout per
// attempt for a response packet with a matching command byte,
// retrying the full write+read cycle up to retries times. Returns a
// soft failure (ok=false) rather than an error after retries are
// exhausted — callers decide whether to log-and-continue or abort
// setup.
func (d *Driver) executeCommand(command byte, write bool, data []byte, timeout time.Duration) (packet []byte, ok bool) {
	req := buildPacket(command, write, data)

	for attempt := 0; attempt < defaultRetries; attempt++ {
		if _, err := d.port.Write(req); err != nil {
			d.logger.Printf("lidar: write failed on attempt %d: %v", attempt, err)
			continue
		}

		resp, found := d.readUntil(command, timeout)
		if found {
			return resp, true
		}
	}
	return nil, false
}

// readUntil feeds bytes from the port into the parser until a packet
// with the given command byte completes, or timeout elapses.
func (d *Driver) readUntil(command byte, timeout time.Duration) ([]byte, bool) {
	d.parser.reset()
	deadline := time.Now().Add(timeout)
	buf := make([]byte, 1)

	for time.Now().Before(deadline) {
		n, err := d.port.Read(buf)
		if err != nil || n == 0 {
			continue
		}
		packet, complete := d.parser.feed(buf[0])
		if complete && parsedCommand(packet) == command {
			return packet, true
		}
	}
	return nil, false
}

// Init runs the manufacturer-specified configuration sequence: update
// rate, default distance output (first-return), low/high scan angle,
// rotation speed, a second idempotent distance-output re-arm, and
// finally enables streaming. Any step that exhausts its retries causes
// Init to return an error; the caller then does not start its
// streaming loop.
func (d *Driver) Init() error {
	if err := validateUpdateRate(d.cfg.UpdateRate); err != nil {
		return err
	}
	if err := validateLowAngle(d.cfg.LowAngle); err != nil {
		return err
	}
	if err := validateHighAngle(d.cfg.HighAngle); err != nil {
		return err
	}
	if err := validateRotationSpeed(d.cfg.RotateSpeed); err != nil {
		return err
	}

	steps := []struct {
		name string
		run  func() bool
	}{
		{"set_update_rate", func() bool {
			_, ok := d.executeCommand(cmdUpdateRate, true, []byte{byte(d.cfg.UpdateRate)}, d.cfg.PortTimeout)
			return ok
		}},
		{"set_default_distance_output", func() bool {
			_, ok := d.executeCommand(cmdDistanceOutput, true, distanceOutputPayload(false), d.cfg.PortTimeout)
			return ok
		}},
		{"set_low_angle", func() bool {
			_, ok := d.executeCommand(cmdLowAngle, true, encodeFloat32(d.cfg.LowAngle), d.cfg.PortTimeout)
			return ok
		}},
		{"set_high_angle", func() bool {
			_, ok := d.executeCommand(cmdHighAngle, true, encodeFloat32(d.cfg.HighAngle), d.cfg.PortTimeout)
			return ok
		}},
		{"set_speed", func() bool {
			_, ok := d.executeCommand(cmdRotationSpeed, true, encodeUint16LE(d.cfg.RotateSpeed), d.cfg.PortTimeout)
			return ok
		}},
		{"set_default_distance_output (re-arm)", func() bool {
			_, ok := d.executeCommand(cmdDistanceOutput, true, distanceOutputPayload(false), d.cfg.PortTimeout)
			return ok
		}},
		{"set_distance_stream_enable", func() bool {
			_, ok := d.executeCommand(cmdStream, true, streamPayload(true), d.cfg.PortTimeout)
			return ok
		}},
	}

	for _, step := range steps {
		if !step.run() {
			return fmt.Errorf("lidar: setup command %q failed after %d retries", step.name, defaultRetries)
		}
	}
	return nil
}

// Identify reads back product name, firmware version, and serial
// number from the sensor and logs them. Failures are logged, not
// returned, since identification never gates the init sequence.
func (d *Driver) Identify() {
	if resp, ok := d.executeCommand(cmdProductName, false, nil, d.cfg.PortTimeout); ok {
		d.logger.Printf("lidar: product %q", decodeString16(resp))
	} else {
		d.logger.Printf("lidar: product query failed")
	}
	if resp, ok := d.executeCommand(cmdFirmwareVersion, false, nil, d.cfg.PortTimeout); ok && len(resp) >= 7 {
		d.logger.Printf("lidar: firmware %d.%d.%d", resp[6], resp[5], resp[4])
	} else {
		d.logger.Printf("lidar: firmware query failed")
	}
	if resp, ok := d.executeCommand(cmdSerialNumber, false, nil, d.cfg.PortTimeout); ok {
		d.logger.Printf("lidar: serial %q", decodeString16(resp))
	} else {
		d.logger.Printf("lidar: serial query failed")
	}
}

// Stream reads distance packets until ctx is cancelled, emitting a
// validated domain.LidarDetection on out for every in-range reading.
// Malformed or out-of-range readings are silently discarded — the
// scan is lossy by design.
func (d *Driver) Stream(ctx context.Context, out chan<- domain.LidarDetection) error {
	buf := make([]byte, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := d.port.Read(buf)
		if err != nil || n == 0 {
			continue
		}

		packet, complete := d.parser.feed(buf[0])
		if !complete || parsedCommand(packet) != cmdDistance {
			continue
		}

		detection, ok := decodeDistancePacket(packet)
		if !ok {
			continue
		}

		select {
		case out <- detection:
		case <-ctx.Done():
			return nil
		}
	}
}

// decodeDistancePacket extracts a LidarDetection from a DISTANCE (44)
// packet's payload. Distance is payload[0..1] centimetres (discard
// if <0 or >50 m); angle is payload[2..3] hundredths of a degree with
// the raw 16-bit field sign-extended above 32000 (discard if outside
// [-170,170] degrees).
func decodeDistancePacket(packet []byte) (domain.LidarDetection, bool) {
	if len(packet) < 8 {
		return domain.LidarDetection{}, false
	}
	payload := packet[4:]

	rawDistance := int(payload[0]) | int(payload[1])<<8
	distance := float64(rawDistance) / 100.0

	rawAngle := int(payload[2]) | int(payload[3])<<8
	if rawAngle > 32000 {
		rawAngle -= 65535
	}
	angle := float64(rawAngle) / 100.0

	detection, err := domain.NewLidarDetection(distance, angle)
	if err != nil {
		return domain.LidarDetection{}, false
	}
	return detection, true
}

func encodeFloat32(v float64) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
	return buf
}

func encodeUint16LE(v int) []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, uint16(v))
	return buf
}

func decodeString16(packet []byte) string {
	end := 4
	for i := 0; i < 16 && 4+i < len(packet); i++ {
		if packet[4+i] == 0 {
			break
		}
		end = 4 + i + 1
	}
	if end > len(packet) {
		end = len(packet)
	}
	return string(packet[4:end])
}
