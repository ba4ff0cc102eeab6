package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// gathered returns the summed value of every sample of a metric family matching the labels
func gathered(t *testing.T, r *Recorder, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := r.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return total
}

func TestRecorderCountsPublishes(t *testing.T) {
	rec := NewRecorder()
	rec.RecordPublish(5*time.Millisecond, nil)
	rec.RecordPublish(8*time.Millisecond, nil)
	rec.RecordPublish(time.Millisecond, errors.New("boom"))

	if got := gathered(t, rec, "courtside_store_writes_total", map[string]string{"result": "ok"}); got != 2 {
		t.Fatalf("expected 2 ok writes, got %v", got)
	}
	if got := gathered(t, rec, "courtside_store_writes_total", map[string]string{"result": "error"}); got != 1 {
		t.Fatalf("expected 1 failed write, got %v", got)
	}
	if got := gathered(t, rec, "courtside_store_write_duration_seconds", nil); got != 3 {
		t.Fatalf("expected 3 latency samples, got %v", got)
	}
}

func TestRecorderTracksConnections(t *testing.T) {
	rec := NewRecorder()
	rec.ConnectionOpened("spectator")
	rec.ConnectionOpened("spectator")
	rec.ConnectionOpened("tablet")
	rec.ConnectionClosed("spectator")

	if got := gathered(t, rec, "courtside_viewer_connections", map[string]string{"role": "spectator"}); got != 1 {
		t.Fatalf("expected 1 spectator, got %v", got)
	}
	if got := gathered(t, rec, "courtside_viewer_connections", map[string]string{"role": "tablet"}); got != 1 {
		t.Fatalf("expected 1 tablet, got %v", got)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *Recorder
	rec.RecordPublish(time.Millisecond, nil)
	rec.RecordTick()
	rec.RecordCommand("points", nil)
	rec.RecordFeedback("horn", nil)
	rec.RecordFeedbackDropped("horn")
	rec.ConnectionOpened("host")
	rec.ConnectionClosed("host")
	rec.SessionOpened()
	rec.SessionClosed()
	if rec.Registry() != nil {
		t.Fatalf("nil recorder should have no registry")
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	rec := NewRecorder()
	rec.RecordTick()
	rec.RecordCommand("toggle_clock", nil)

	w := httptest.NewRecorder()
	rec.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	body := w.Body.String()
	for _, want := range []string{"courtside_clock_ticks_total 1", `courtside_commands_total{kind="toggle_clock",result="ok"} 1`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output", want)
		}
	}
}
