package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestExpvarRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	ctx := context.Background()

	rec.Observe(ctx, "create_room", true, 10*time.Millisecond)
	rec.Observe(ctx, "create_room", true, 5*time.Millisecond)
	rec.Observe(ctx, "create_room", false, time.Millisecond)
	rec.Observe(ctx, "", true, time.Second) // ignored

	snap := rec.Snapshot()
	if got := snap.Results["create_room"]["success"]; got != 2 {
		t.Errorf("expected 2 successes, got %d", got)
	}
	if got := snap.Results["create_room"]["error"]; got != 1 {
		t.Errorf("expected 1 error, got %d", got)
	}
	if got := snap.DurationsMS["create_room"]; got != 16 {
		t.Errorf("expected 16ms total, got %v", got)
	}
	if len(snap.Results) != 1 {
		t.Errorf("empty operation must not be recorded: %+v", snap.Results)
	}
}

func TestPrometheusRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusMetricsRecorder(reg)
	ctx := context.Background()

	rec.Observe(ctx, "create_bill", true, 2*time.Millisecond)
	rec.Observe(ctx, "create_bill", false, 3*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var sawCounter, sawHistogram bool
	for _, mf := range families {
		switch mf.GetName() {
		case "rentledger_operations_total":
			sawCounter = true
			var total float64
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue()
			}
			if total != 2 {
				t.Errorf("expected 2 operations counted, got %v", total)
			}
		case "rentledger_operation_duration_seconds":
			sawHistogram = true
		}
	}
	if !sawCounter || !sawHistogram {
		t.Errorf("missing metric families: counter=%v histogram=%v", sawCounter, sawHistogram)
	}
}
