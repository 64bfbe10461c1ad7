package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()

	m.MatchCreated()
	m.MatchCreated()
	m.MatchConflict()
	m.Notification(Sent)
	m.Notification(Dropped)
	m.Notification(Dropped)
	m.Claimed()
	m.MatchCancelled()
	m.Swept(3, 1, 0)
	m.JobRun("sweep", 0.2, nil)
	m.JobRun("sweep", 0.1, errors.New("boom"))

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"matches", testutil.ToFloat64(m.matches), 2},
		{"conflicts", testutil.ToFloat64(m.conflicts), 1},
		{"sent", testutil.ToFloat64(m.notifications.WithLabelValues(Sent)), 1},
		{"dropped", testutil.ToFloat64(m.notifications.WithLabelValues(Dropped)), 2},
		{"claims", testutil.ToFloat64(m.claims), 1},
		{"cancels", testutil.ToFloat64(m.cancels), 1},
		{"archived", testutil.ToFloat64(m.swept.WithLabelValues(Archived)), 3},
		{"skipped", testutil.ToFloat64(m.swept.WithLabelValues(Skipped)), 1},
		{"job ok", testutil.ToFloat64(m.jobRuns.WithLabelValues("sweep", "ok")), 1},
		{"job error", testutil.ToFloat64(m.jobRuns.WithLabelValues("sweep", "error")), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: expected %v, got %v", c.name, c.want, c.got)
		}
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.MatchCreated()
	m.Notification(Failed)
	m.Swept(1, 2, 3)
	m.JobRun("sweep", 1, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Errorf("expected 404 from nil metrics, got %d", rec.Code)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.MatchCreated()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "najdeno_matches_created_total 1") {
		t.Errorf("expected match counter in exposition, got:\n%s", body)
	}
}
