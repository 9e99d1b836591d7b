package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/canarystack/canary-engine/internal/models"
)

func TestAdvisorySequenceShape(t *testing.T) {
	advisor := NewAdvisor(500*time.Millisecond, 1500*time.Millisecond, 3*time.Second)
	sample := models.MetricSample{
		TickIndex:       3,
		LatencyMs:       345,
		ErrorRate:       0.023,
		DriftUserRegion: 0.15,
	}

	seq := advisor.Sequence(sample)
	if len(seq) != 3 {
		t.Fatalf("expected 3 advisories, got %d", len(seq))
	}

	if seq[0].Kind != models.MessageAlert {
		t.Fatalf("expected alert first, got %s", seq[0].Kind)
	}
	if seq[0].Offset != 500*time.Millisecond {
		t.Fatalf("unexpected alert offset %v", seq[0].Offset)
	}

	// The second message quantifies the deviation from baseline.
	if !strings.Contains(seq[1].Text, "188%") {
		t.Fatalf("expected latency delta in detail message, got %q", seq[1].Text)
	}
	if !strings.Contains(seq[1].Text, "345ms") {
		t.Fatalf("expected observed latency in detail message, got %q", seq[1].Text)
	}

	if seq[2].Kind != models.MessageRecommendation {
		t.Fatalf("expected recommendation last, got %s", seq[2].Kind)
	}
	if !strings.Contains(seq[2].Text, models.BaselineModel.Version) {
		t.Fatalf("recommendation must name the rollback target, got %q", seq[2].Text)
	}
	if seq[2].Metadata["confidence"] != "83" {
		t.Fatalf("expected confidence metadata 83, got %q", seq[2].Metadata["confidence"])
	}
	if seq[2].Metadata["risk"] != riskHigh {
		t.Fatalf("expected high risk metadata, got %q", seq[2].Metadata["risk"])
	}
	if seq[0].Offset >= seq[1].Offset || seq[1].Offset >= seq[2].Offset {
		t.Fatalf("advisory offsets not increasing: %v %v %v", seq[0].Offset, seq[1].Offset, seq[2].Offset)
	}
}

func TestTimeoutFraming(t *testing.T) {
	advisor := NewAdvisor(time.Millisecond, time.Millisecond, time.Millisecond)
	text := advisor.TimeoutText()
	if !strings.HasPrefix(text, "Timeout:") {
		t.Fatalf("timeout framing must lead with the elapsed window, got %q", text)
	}
	if !strings.Contains(text, models.BaselineModel.Version) {
		t.Fatalf("timeout framing must name the rollback target, got %q", text)
	}
}
