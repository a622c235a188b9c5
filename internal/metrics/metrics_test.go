package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/raaihank/loggov/internal/config"
	"github.com/raaihank/loggov/internal/governance"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	return NewCollector(&config.MetricsConfig{Namespace: "test"}, prometheus.NewRegistry())
}

func TestCollector_ObserveResult(t *testing.T) {
	c := newTestCollector(t)
	cfg := governance.DefaultConfig()

	for _, p := range []governance.Payload{
		governance.String("a@b.io and c@d.io"),
		governance.String("clean"),
		governance.Fields{"ssn": governance.String("123-45-6789")},
	} {
		res, err := cfg.Apply(p)
		if err != nil {
			t.Fatal(err)
		}
		c.ObserveResult(res, time.Millisecond)
	}

	if got := testutil.ToFloat64(c.payloadsTotal.WithLabelValues("redacted")); got != 2 {
		t.Errorf("Expected 2 redacted, got %v", got)
	}
	if got := testutil.ToFloat64(c.payloadsTotal.WithLabelValues("passed")); got != 1 {
		t.Errorf("Expected 1 passed, got %v", got)
	}
	if got := testutil.ToFloat64(c.ruleMatchesTotal.WithLabelValues(governance.RuleEmail)); got != 2 {
		t.Errorf("Expected 2 email matches, got %v", got)
	}
	if got := testutil.ToFloat64(c.ruleMatchesTotal.WithLabelValues(governance.RuleSSN)); got != 1 {
		t.Errorf("Expected 1 ssn match, got %v", got)
	}
	if got := testutil.CollectAndCount(c.applyDuration); got != 1 {
		t.Errorf("Expected 1 histogram, got %d", got)
	}
}

func TestCollector_ObserveViolation(t *testing.T) {
	c := newTestCollector(t)

	c.ObserveViolation(governance.ValidationResult{MissingFields: []string{"Email", "Amount"}})
	c.ObserveViolation(governance.ValidationResult{MissingFields: []string{"Email"}})

	if got := testutil.ToFloat64(c.violationsTotal.WithLabelValues("Email")); got != 2 {
		t.Errorf("Expected 2 Email violations, got %v", got)
	}
	if got := testutil.ToFloat64(c.violationsTotal.WithLabelValues("Amount")); got != 1 {
		t.Errorf("Expected 1 Amount violation, got %v", got)
	}
}

func TestCollector_RecordReload(t *testing.T) {
	c := newTestCollector(t)
	cfg := governance.DefaultConfig()

	c.RecordReload(cfg, nil)
	c.RecordReload(cfg, errors.New("bad document"))

	if got := testutil.ToFloat64(c.reloadsTotal.WithLabelValues(ReloadSuccess)); got != 1 {
		t.Errorf("Expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(c.reloadsTotal.WithLabelValues(ReloadFailure)); got != 1 {
		t.Errorf("Expected 1 failure, got %v", got)
	}
	if got := testutil.ToFloat64(c.activeRules); got != float64(len(cfg.Rules())) {
		t.Errorf("Expected %d active rules, got %v", len(cfg.Rules()), got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector(&config.MetricsConfig{}, nil)
	c.SetActiveRules(3)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "loggov_active_rules 3") {
		t.Errorf("Expected active rules gauge in output:\n%s", rec.Body.String())
	}
}

func TestCollector_ImplementsObserver(t *testing.T) {
	var _ governance.Observer = newTestCollector(t)
}
