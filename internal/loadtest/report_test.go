package loadtest

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCollectorAndReport(t *testing.T) {
	c := newCollector()
	c.record(scenarioStep, 10*time.Millisecond, "ok", true)
	c.record(scenarioStep, 20*time.Millisecond, "failed", false)
	c.record("create", 15*time.Millisecond, "2xx", true)
	c.record("create", 5*time.Millisecond, "5xx", false)

	r := c.buildReport(ModeCRUD, time.Now(), 2*time.Second)
	if r.TotalScenarios != 2 || r.FailedScenarios != 1 || r.SuccessScenarios != 1 {
		t.Fatalf("unexpected report totals: %+v", r)
	}
	if r.ErrorRate != 0.5 {
		t.Fatalf("unexpected error rate: %f", r.ErrorRate)
	}
	if r.RPS != 1 {
		t.Fatalf("expected rps 1, got %f", r.RPS)
	}
	if _, ok := r.Steps[scenarioStep]; ok {
		t.Fatalf("scenario must not be reported as a step")
	}

	create, ok := r.Steps["create"]
	if !ok {
		t.Fatalf("expected create stats in report")
	}
	if create.Calls != 2 || create.Codes["2xx"] != 1 || create.Codes["5xx"] != 1 {
		t.Fatalf("unexpected create stats: %+v", create)
	}
	if create.LatencyMs.Min != 5 || create.LatencyMs.Max != 15 {
		t.Fatalf("unexpected create latency: %+v", create.LatencyMs)
	}
}

func TestUtilityFunctions(t *testing.T) {
	if got := ratio(1, 4); got != 0.25 {
		t.Fatalf("ratio mismatch: %f", got)
	}
	if got := ratio(1, 0); got != 0 {
		t.Fatalf("ratio with zero total must be 0, got %f", got)
	}

	values := []float64{10, 20, 30, 40}
	summary := buildLatencySummary(values)
	if summary.P50 != 25 || summary.Avg != 25 || summary.Max != 40 || summary.Min != 10 {
		t.Fatalf("unexpected latency summary: %+v", summary)
	}
	if p := percentile(values, 100); p != 40 {
		t.Fatalf("unexpected percentile: %f", p)
	}
	if p := percentile([]float64{7}, 99); p != 7 {
		t.Fatalf("single value percentile must be the value, got %f", p)
	}
	if s := buildLatencySummary(nil); s != (LatencySummary{}) {
		t.Fatalf("empty summary expected, got %+v", s)
	}

	if got := statusClass(201); got != "2xx" {
		t.Fatalf("unexpected status class: %s", got)
	}
	if got := statusClass(503); got != "5xx" {
		t.Fatalf("unexpected status class: %s", got)
	}
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")

	sample := Report{Mode: ModeReadHeavy, TotalScenarios: 2, SuccessScenarios: 2}
	if err := WriteJSON(path, sample); err != nil {
		t.Fatalf("WriteJSON error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}

	var decoded Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if decoded.Mode != ModeReadHeavy || decoded.TotalScenarios != 2 {
		t.Fatalf("unexpected decoded report: %+v", decoded)
	}

	if err := WriteJSON("../escape.json", sample); err == nil {
		t.Fatalf("expected error for path outside current directory")
	}
	if err := WriteJSON(".", sample); err == nil {
		t.Fatalf("expected error for directory path")
	}
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	Print(&buf, Report{
		Mode:           ModeCRUD,
		TotalScenarios: 3,
		Steps: map[string]StepReport{
			"update": {Calls: 3},
			"create": {Calls: 3},
		},
	})

	out := buf.String()
	if !strings.Contains(out, "mode=crud") {
		t.Fatalf("mode missing in output: %s", out)
	}
	if strings.Index(out, "create:") > strings.Index(out, "update:") {
		t.Fatalf("steps must be printed in sorted order: %s", out)
	}
}
