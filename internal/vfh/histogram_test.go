package vfh

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/uwarg/obstacle-avoidance-core/internal/domain"
)

func TestHistogram_Build_SingleReadingLandsInExpectedSector(t *testing.T) {
	h := NewHistogram(HistogramConfig{
		SectorWidth:        10,
		StartAngle:         -20,
		EndAngle:           20,
		MaxVectorMagnitude: 1,
		LinearDecayRate:    0.1,
		ConfidenceValue:    1,
	})

	osc := domain.LidarOscillation{
		Readings: []domain.LidarDetection{{Distance: 5, Angle: 3}},
	}

	got := h.Build(osc)
	want := domain.PolarObstacleDensity{
		Sectors: []domain.SectorObstacleDensity{
			{AngleStart: -20, AngleEnd: -10, Density: 0},
			{AngleStart: -10, AngleEnd: 0, Density: 0},
			{AngleStart: 0, AngleEnd: 10, Density: 0.5},
			{AngleStart: 10, AngleEnd: 20, Density: 0},
		},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Build() mismatch (-want +got):\n%s", diff)
	}
}

func TestHistogram_Build_OutOfRangeReadingsAreDropped(t *testing.T) {
	h := NewHistogram(HistogramConfig{
		SectorWidth:        10,
		StartAngle:         -20,
		EndAngle:           20,
		MaxVectorMagnitude: 1,
		LinearDecayRate:    0.1,
		ConfidenceValue:    1,
	})

	osc := domain.LidarOscillation{
		Readings: []domain.LidarDetection{
			{Distance: 5, Angle: -45},
			{Distance: 5, Angle: 45},
		},
	}

	got := h.Build(osc)
	want := domain.PolarObstacleDensity{
		Sectors: []domain.SectorObstacleDensity{
			{AngleStart: -20, AngleEnd: -10, Density: 0},
			{AngleStart: -10, AngleEnd: 0, Density: 0},
			{AngleStart: 0, AngleEnd: 10, Density: 0},
			{AngleStart: 10, AngleEnd: 20, Density: 0},
		},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Build() mismatch (-want +got):\n%s", diff)
	}
}

func TestHistogram_Build_InvalidConfigFallsBackToDefaults(t *testing.T) {
	h := NewHistogram(HistogramConfig{SectorWidth: -1, MaxVectorMagnitude: 5})

	if h.cfg.SectorWidth != defaultSectorWidth {
		t.Errorf("SectorWidth = %v, want default %v", h.cfg.SectorWidth, defaultSectorWidth)
	}
	if h.cfg.MaxVectorMagnitude != defaultMaxMagnitude {
		t.Errorf("MaxVectorMagnitude = %v, want default %v", h.cfg.MaxVectorMagnitude, defaultMaxMagnitude)
	}
	if h.cfg.StartAngle != defaultStartAngle || h.cfg.EndAngle != defaultEndAngle {
		t.Errorf("StartAngle/EndAngle = %v/%v, want defaults %v/%v", h.cfg.StartAngle, h.cfg.EndAngle, defaultStartAngle, defaultEndAngle)
	}
}
