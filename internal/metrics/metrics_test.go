package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserve(t *testing.T) {
	m := New()

	m.ObserveStatement("insert_stores", 0.01, nil)
	m.ObserveStatement("insert_stores", 0.02, errors.New("boom"))
	m.ObserveQuery("get_customers", nil)
	m.ObserveConnect(errors.New("refused"))
	m.ObserveConnect(nil)
	m.ObserveRows(7, 2)

	if got := testutil.ToFloat64(m.Statements.WithLabelValues("insert_stores", "ok")); got != 1 {
		t.Errorf("statements ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Statements.WithLabelValues("insert_stores", "error")); got != 1 {
		t.Errorf("statements error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Queries.WithLabelValues("get_customers", "ok")); got != 1 {
		t.Errorf("queries ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ConnectAttempts.WithLabelValues("error")); got != 1 {
		t.Errorf("connect errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RowsStaged); got != 7 {
		t.Errorf("rows staged = %v, want 7", got)
	}
	if got := testutil.ToFloat64(m.RowsSkipped); got != 2 {
		t.Errorf("rows skipped = %v, want 2", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveStatement("k", 1, nil)
	m.ObserveQuery("k", nil)
	m.ObserveConnect(nil)
	m.ObserveRows(1, 1)
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRows(3, 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "transactions_rows_staged_total 3") {
		t.Errorf("exposition missing rows_staged_total:\n%s", body)
	}
}

func TestRegistry_CollectorsRegistered(t *testing.T) {
	m := New()
	m.ObserveQuery("get_customers", nil)

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"transactions_report_queries_total",
		"transactions_rows_staged_total",
		"go_goroutines",
	} {
		if !names[want] {
			t.Errorf("registry missing %s", want)
		}
	}
}
