package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := New(registry)

	if m.BalanceReads == nil || m.WithdrawalRequests == nil || m.HTTPRequests == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	m.BalanceReads.WithLabelValues("live").Inc()
	m.WithdrawalRequests.WithLabelValues("TOTAL", "approved").Inc()

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}

	if got := testutil.ToFloat64(m.BalanceReads.WithLabelValues("live")); got != 1 {
		t.Fatalf("expected 1 live balance read, got %v", got)
	}
}

func TestNewAllowsIndependentRegistries(t *testing.T) {
	// Registering twice on the same registry would panic.
	_ = New(prometheus.NewRegistry())
	_ = New(prometheus.NewRegistry())
}
