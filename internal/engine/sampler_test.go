package engine

import "testing"

func TestSampleBranchSelection(t *testing.T) {
	sampler := NewMetricSampler(7)

	for tick := 0; tick < anomalyThresholdTick; tick++ {
		sample := sampler.Sample(tick)
		if sample.LatencyMs < baselineLatencyMs-5 || sample.LatencyMs >= baselineLatencyMs+5 {
			t.Fatalf("tick %d: baseline latency out of range: %f", tick, sample.LatencyMs)
		}
		if sample.ErrorRate >= anomalyErrorRateBase {
			t.Fatalf("tick %d: baseline error rate anomaly-shaped: %f", tick, sample.ErrorRate)
		}
	}

	for tick := anomalyThresholdTick; tick < anomalyThresholdTick+5; tick++ {
		sample := sampler.Sample(tick)
		if sample.LatencyMs < anomalyLatencyBaseMs || sample.LatencyMs >= anomalyLatencyBaseMs+10 {
			t.Fatalf("tick %d: anomaly latency out of range: %f", tick, sample.LatencyMs)
		}
		if sample.ErrorRate < anomalyErrorRateBase {
			t.Fatalf("tick %d: anomaly error rate below base: %f", tick, sample.ErrorRate)
		}
		if sample.DriftUserRegion < anomalyDriftRegionBase {
			t.Fatalf("tick %d: anomaly drift below base: %f", tick, sample.DriftUserRegion)
		}
	}
}

func TestSampleCarriesTickIndex(t *testing.T) {
	sampler := NewMetricSampler(7)
	for tick := 0; tick < 6; tick++ {
		if got := sampler.Sample(tick).TickIndex; got != tick {
			t.Fatalf("expected tick index %d, got %d", tick, got)
		}
	}
}

func TestWarmupIsBaselineOnly(t *testing.T) {
	sampler := NewMetricSampler(7)
	window := sampler.Warmup(warmupSamples)

	if len(window) != warmupSamples {
		t.Fatalf("expected %d warm-up samples, got %d", warmupSamples, len(window))
	}
	for i, sample := range window {
		if sample.TickIndex != i-warmupSamples {
			t.Fatalf("warm-up sample %d: expected tick index %d, got %d", i, i-warmupSamples, sample.TickIndex)
		}
		if sample.LatencyMs >= anomalyLatencyBaseMs {
			t.Fatalf("warm-up sample %d is anomaly shaped: %f", i, sample.LatencyMs)
		}
	}
	for i := 1; i < len(window); i++ {
		if !window[i].Timestamp.After(window[i-1].Timestamp) {
			t.Fatalf("warm-up timestamps not increasing at %d", i)
		}
	}
}
