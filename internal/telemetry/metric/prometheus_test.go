package metric

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/yndnr/tokentables/internal/core/service"
)

var _ service.Metrics = (*Registry)(nil)

// gather returns the families of r keyed by name.
func gather(t *testing.T, r *Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

// value returns the value of the sample of family name carrying label, or
// the first sample when label is empty.
func value(t *testing.T, families map[string]*dto.MetricFamily, name, label string) float64 {
	t.Helper()
	f, ok := families[name]
	if !ok {
		t.Fatalf("metric %s not gathered", name)
	}
	for _, m := range f.GetMetric() {
		if label != "" {
			found := false
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					found = true
				}
			}
			if !found {
				continue
			}
		}
		switch {
		case m.Counter != nil:
			return m.GetCounter().GetValue()
		case m.Gauge != nil:
			return m.GetGauge().GetValue()
		case m.Histogram != nil:
			return float64(m.GetHistogram().GetSampleCount())
		}
	}
	t.Fatalf("metric %s{%s} not found", name, label)
	return 0
}

func TestRegistry_Events(t *testing.T) {
	r := NewRegistry()

	r.SessionAdded()
	r.SessionAdded()
	r.SessionDestroyed(service.ReasonExpired)
	r.TokenAdded()
	r.TokenDestroyed(service.ReasonSession)
	r.TokenOrphaned()
	r.TokenTransferred()
	r.StorageError("set_key_value")
	r.SweepCompleted(3*time.Millisecond, 2, 5)

	families := gather(t, r)

	tests := []struct {
		name  string
		label string
		want  float64
	}{
		{"tokentables_sessions_added_total", "", 2},
		{"tokentables_sessions_destroyed_total", "expired", 1},
		{"tokentables_tokens_added_total", "", 1},
		{"tokentables_tokens_destroyed_total", "session", 1},
		{"tokentables_tokens_orphaned_total", "", 1},
		{"tokentables_tokens_transferred_total", "", 1},
		{"tokentables_storage_errors_total", "set_key_value", 1},
		{"tokentables_sweep_duration_seconds", "", 1},
		{"tokentables_sweep_expired_total", "session", 2},
		{"tokentables_sweep_expired_total", "token", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.label, func(t *testing.T) {
			if got := value(t, families, tt.name, tt.label); got != tt.want {
				t.Errorf("%s{%s} = %v, want %v", tt.name, tt.label, got, tt.want)
			}
		})
	}
}

func TestRegistry_WithTokenTables(t *testing.T) {
	r := NewRegistry()
	tables := service.New(nil, nil, service.WithMetrics(r))

	// A nil DB is never touched by a sweep over empty tables.
	tables.DecrementTimers(t.Context())

	if got := value(t, gather(t, r), "tokentables_sweep_duration_seconds", ""); got != 1 {
		t.Errorf("sweeps observed = %v, want 1", got)
	}
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.SessionAdded()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	for _, want := range []string{"tokentables_sessions_added_total 1", "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("response missing %q", want)
		}
	}
}

func TestCollector(t *testing.T) {
	r := NewRegistry()
	sizes := TableSizes{Sessions: 3, Tokens: 7, Transferable: 2, Orphans: 1}
	var storageErr error

	c := NewCollector(
		func() TableSizes { return sizes },
		func() (int64, int64, error) { return 42, -1, storageErr },
	)
	if err := c.Register(r); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	families := gather(t, r)
	if got := value(t, families, "tokentables_table_entries", "tokens"); got != 7 {
		t.Errorf("table_entries{tokens} = %v, want 7", got)
	}
	if got := value(t, families, "tokentables_storage_keys", ""); got != 42 {
		t.Errorf("storage_keys = %v, want 42", got)
	}
	if _, ok := families["tokentables_storage_size_bytes"]; ok {
		t.Error("unknown size should not be exported")
	}
	if got := value(t, families, "tokentables_storage_up", ""); got != 1 {
		t.Errorf("storage_up = %v, want 1", got)
	}

	storageErr = errors.New("down")
	families = gather(t, r)
	if got := value(t, families, "tokentables_storage_up", ""); got != 0 {
		t.Errorf("storage_up = %v, want 0", got)
	}
}
