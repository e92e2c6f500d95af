package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounterAndGauge(t *testing.T) {
	r := New()
	c := r.Counter("requests_total", "Total requests")
	c.Inc()
	c.Add(4)
	if c.Value() != 5 {
		t.Errorf("expected 5, got %d", c.Value())
	}

	g := r.Gauge("active", "Active requests")
	g.Set(3)
	g.Inc()
	g.Dec()
	if g.Value() != 3 {
		t.Errorf("expected 3, got %d", g.Value())
	}

	if r.Counter("requests_total", "") != c {
		t.Error("same name must return the same counter")
	}
}

func TestWithLabels(t *testing.T) {
	name := WithLabels("errors_total", "stage", "embed")
	if name != `errors_total{stage="embed"}` {
		t.Errorf("unexpected labelled name %s", name)
	}
	if WithLabels("plain") != "plain" {
		t.Error("no labels must leave the name unchanged")
	}
	if WithLabels("odd", "k") != "odd" {
		t.Error("odd label pairs must be ignored")
	}
}

func TestRender(t *testing.T) {
	r := New()
	r.Counter("docs_total", "Documents processed").Add(7)
	r.Counter(WithLabels("errors_total", "stage", "embed"), "Errors by stage").Inc()
	r.Gauge("active", "").Set(2)

	h := r.Histogram("latency_seconds", "Latency", []float64{0.1, 1})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(5)

	out := r.Render()
	for _, want := range []string{
		"# TYPE docs_total counter",
		"docs_total 7",
		`errors_total{stage="embed"} 1`,
		"active 2",
		"# TYPE latency_seconds histogram",
		`latency_seconds_bucket{le="0.1"} 1`,
		`latency_seconds_bucket{le="1"} 2`,
		`latency_seconds_bucket{le="+Inf"} 3`,
		"latency_seconds_count 3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render output missing %q\n%s", want, out)
		}
	}
}

func TestHandler(t *testing.T) {
	r := New()
	r.Counter("hits_total", "").Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "hits_total 1") {
		t.Errorf("metrics body missing counter: %s", rec.Body.String())
	}
}
