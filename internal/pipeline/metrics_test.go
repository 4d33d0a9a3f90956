package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ironsheep/mass-tools/internal/detection"
)

func TestMetrics_Observe(t *testing.T) {
	m := NewMetrics()

	m.Observe(Result{UID: "a", Success: true, Duration: 20 * time.Millisecond, Masks: []MaskOutcome{
		{Status: MaskApplied, Region: &detection.Region{Width: 10, Height: 10, Area: 400}},
		{Status: MaskNoRegion, Detail: "empty"},
	}})
	m.Observe(Result{UID: "b", Error: "boom"})

	if got := testutil.ToFloat64(m.cases.WithLabelValues("success")); got != 1 {
		t.Errorf("success cases: got %v", got)
	}
	if got := testutil.ToFloat64(m.cases.WithLabelValues("failure")); got != 1 {
		t.Errorf("failure cases: got %v", got)
	}
	if got := testutil.ToFloat64(m.masks.WithLabelValues(string(MaskApplied))); got != 1 {
		t.Errorf("applied masks: got %v", got)
	}
	if n := testutil.CollectAndCount(m.regionArea); n != 1 {
		t.Errorf("region histogram series: got %d", n)
	}
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.Observe(Result{UID: "a", Success: true})

	path := filepath.Join(t.TempDir(), "mass_tools.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `mass_tools_cases_total{outcome="success"} 1`) {
		t.Errorf("textfile missing case counter:\n%s", data)
	}
}
