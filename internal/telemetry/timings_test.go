package telemetry

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRecordAggregates(t *testing.T) {
	timings := NewTimings()

	timings.Record("load study.bundle", 20*time.Millisecond)
	timings.Record("load study.bundle", 40*time.Millisecond)
	timings.Record("load study.bundle", 30*time.Millisecond)

	metric := timings.Get("load study.bundle")
	if metric == nil {
		t.Fatalf("metric missing")
	}
	if metric.Count != 3 {
		t.Errorf("count = %d", metric.Count)
	}
	if metric.Min != 20*time.Millisecond || metric.Max != 40*time.Millisecond {
		t.Errorf("min/max = %v/%v", metric.Min, metric.Max)
	}
	if metric.Average() != 30*time.Millisecond {
		t.Errorf("average = %v", metric.Average())
	}
	if metric.Last != 30*time.Millisecond {
		t.Errorf("last = %v", metric.Last)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	timings := NewTimings()
	timings.Record("op", time.Millisecond)

	first := timings.Get("op")
	first.Count = 99

	if timings.Get("op").Count != 1 {
		t.Errorf("mutation through the returned copy leaked into the collector")
	}
	if timings.Get("missing") != nil {
		t.Errorf("expected nil for unknown operation")
	}
}

func TestJSONRendersAllMetrics(t *testing.T) {
	timings := NewTimings()
	timings.Record("load study.bundle", 25*time.Millisecond)
	timings.Record("decode study.bundle", 5*time.Millisecond)

	data, err := timings.JSON()
	if err != nil {
		t.Fatalf("json: %v", err)
	}

	var out map[string]map[string]int64
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("metrics = %v", out)
	}
	if out["load study.bundle"]["count"] != 1 {
		t.Errorf("count = %d", out["load study.bundle"]["count"])
	}
	if out["load study.bundle"]["avg_ns"] != int64(25*time.Millisecond) {
		t.Errorf("avg = %d", out["load study.bundle"]["avg_ns"])
	}
}

func TestReportEmpty(t *testing.T) {
	if got := NewTimings().Report(); got != "no timings recorded" {
		t.Errorf("report = %q", got)
	}
}
