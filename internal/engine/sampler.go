package engine

import (
	"math/rand"
	"time"

	"github.com/canarystack/canary-engine/internal/models"
)

const (
	// historyCapacity bounds the metric history; the oldest sample is
	// evicted once the cap is reached.
	historyCapacity = 30
	// warmupSamples seeds each monitoring session before live ticking.
	warmupSamples = 10
	// anomalyThresholdTick is the live tick index at which sample shape
	// switches from baseline to anomalous and the evaluator fires.
	anomalyThresholdTick = 3

	baselineLatencyMs   = 120.0
	baselineErrorRate   = 0.004
	baselineDriftRegion = 0.021

	anomalyLatencyBaseMs   = 340.0
	anomalyErrorRateBase   = 0.021
	anomalyDriftRegionBase = 0.14
)

// MetricSampler generates one synthetic canary telemetry sample per tick.
// Branch selection by tick index is the contract; the noise is not.
type MetricSampler struct {
	rng *rand.Rand
	now func() time.Time
}

// NewMetricSampler creates a sampler seeded from the supplied source. A zero
// seed falls back to the current time.
func NewMetricSampler(seed int64) *MetricSampler {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &MetricSampler{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

// Sample produces the telemetry for the given live tick index. Ticks at or
// past the anomaly threshold are anomaly shaped.
func (s *MetricSampler) Sample(tick int) models.MetricSample {
	sample := models.MetricSample{
		Timestamp: s.now().UTC(),
		TickIndex: tick,
	}

	if tick >= anomalyThresholdTick {
		sample.LatencyMs = anomalyLatencyBaseMs + s.uniform(0, 10)
		sample.ErrorRate = anomalyErrorRateBase + s.uniform(0, 0.005)
		sample.DriftUserRegion = anomalyDriftRegionBase + s.uniform(0, 0.02)
		return sample
	}

	sample.LatencyMs = baselineLatencyMs + s.uniform(-5, 5)
	sample.ErrorRate = baselineErrorRate + s.uniform(-0.001, 0.001)
	sample.DriftUserRegion = baselineDriftRegion + s.uniform(0, 0.005)
	return sample
}

// Warmup produces the baseline-only seed window for a fresh monitoring
// session. Warm-up samples carry negative tick indices so live ticks start
// at zero and the per-session index stays monotonic.
func (s *MetricSampler) Warmup(n int) []models.MetricSample {
	base := s.now().UTC().Add(-time.Duration(n) * time.Second)
	out := make([]models.MetricSample, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.MetricSample{
			Timestamp:       base.Add(time.Duration(i) * time.Second),
			TickIndex:       i - n,
			LatencyMs:       baselineLatencyMs + s.uniform(-5, 5),
			ErrorRate:       baselineErrorRate + s.uniform(-0.001, 0.001),
			DriftUserRegion: baselineDriftRegion + s.uniform(0, 0.005),
		})
	}
	return out
}

func (s *MetricSampler) uniform(min, max float64) float64 {
	return min + s.rng.Float64()*(max-min)
}
