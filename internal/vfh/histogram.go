// Package vfh implements the Vector Field Histogram method: building a
// polar obstacle-density histogram from one LiDAR oscillation, then
// selecting an obstacle-free valley to steer toward.
package vfh

import (
	"math"

	"github.com/uwarg/obstacle-avoidance-core/internal/domain"
)

// Default fallback values applied when a HistogramConfig field is
// outside its valid range.
const (
	defaultSectorWidth  = 2.0
	defaultStartAngle   = -90.0
	defaultEndAngle     = 90.0
	defaultMaxMagnitude = 1.0
	defaultDecayRate    = 0.1
	defaultConfidence   = 0.9
)

// HistogramConfig parameterizes Histogram.Build.
type HistogramConfig struct {
	SectorWidth        float64 // degrees, >0
	StartAngle         float64 // degrees
	EndAngle           float64 // degrees, > StartAngle
	MaxVectorMagnitude float64 // in [0,1]
	LinearDecayRate    float64 // in [0,1]
	ConfidenceValue    float64 // in [0,1]
}

// normalized applies the defaulting rules for invalid config values.
func (c HistogramConfig) normalized() HistogramConfig {
	out := c
	if out.SectorWidth <= 0 {
		out.SectorWidth = defaultSectorWidth
	}
	if out.MaxVectorMagnitude < 0 || out.MaxVectorMagnitude > 1 {
		out.MaxVectorMagnitude = defaultMaxMagnitude
	}
	if out.LinearDecayRate < 0 || out.LinearDecayRate > 1 {
		out.LinearDecayRate = defaultDecayRate
	}
	if out.ConfidenceValue < 0 || out.ConfidenceValue > 1 {
		out.ConfidenceValue = defaultConfidence
	}
	if out.StartAngle >= out.EndAngle {
		out.StartAngle = defaultStartAngle
		out.EndAngle = defaultEndAngle
	}
	return out
}

func (c HistogramConfig) numSectors() int {
	return int((c.EndAngle - c.StartAngle) / c.SectorWidth)
}

// Histogram builds a PolarObstacleDensity from one LidarOscillation.
type Histogram struct {
	cfg HistogramConfig
	n   int
}

// NewHistogram normalizes cfg and precomputes the sector count.
func NewHistogram(cfg HistogramConfig) *Histogram {
	cfg = cfg.normalized()
	return &Histogram{cfg: cfg, n: cfg.numSectors()}
}

// Build accumulates every in-range reading of osc into its sector and
// returns the resulting contiguous, N-sector histogram.
func (h *Histogram) Build(osc domain.LidarOscillation) domain.PolarObstacleDensity {
	densities := make([]float64, h.n)

	for _, reading := range osc.Readings {
		if reading.Angle < h.cfg.StartAngle || reading.Angle > h.cfg.EndAngle {
			continue
		}
		idx := clampIndex(int((reading.Angle-h.cfg.StartAngle)/h.cfg.SectorWidth), h.n)

		distanceFactor := h.cfg.MaxVectorMagnitude - h.cfg.LinearDecayRate*reading.Distance
		magnitude := h.cfg.ConfidenceValue * h.cfg.ConfidenceValue * distanceFactor
		densities[idx] += math.Max(0, magnitude)
	}

	sectors := make([]domain.SectorObstacleDensity, h.n)
	for i, density := range densities {
		angleStart := h.cfg.StartAngle + float64(i)*h.cfg.SectorWidth
		sectors[i] = domain.SectorObstacleDensity{
			AngleStart: angleStart,
			AngleEnd:   angleStart + h.cfg.SectorWidth,
			Density:    density,
		}
	}

	return domain.PolarObstacleDensity{Sectors: sectors}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
