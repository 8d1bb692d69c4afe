package test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mdubois44/chargeplan/app"
	"github.com/mdubois44/chargeplan/core/factory"
	"github.com/mdubois44/chargeplan/test/util"
)

// TestPrometheusMetricsFlow runs the full pipeline with the Prometheus sink
// configured and checks that run, fetch and generation metrics come out the
// other end.
func TestPrometheusMetricsFlow(t *testing.T) {
	cfg := shortSearchConfig(t)
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "prometheus"}}

	svc, err := app.New(cfg, app.NewFileSource(writeDepotFile(t)))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	defer svc.Close()
	svc.SetSave(false)

	res, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Converged {
		t.Fatal("expected a converged run")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}))
	ts := httptest.NewServer(mux)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), util.MetricTimeout)
	defer cancel()
	for _, substr := range []string{
		`optimization_runs_total{converged="true",scenario="depot"}`,
		`scenario_fetches_total{cache_hit="false",source="file"}`,
		`search_generations_total{scenario="depot"} 5`,
		`pareto_front_size{scenario="depot"}`,
		`best_schedule_cost{scenario="depot"}`,
	} {
		if err := util.WaitForMetric(ctx, ts.URL+"/metrics", substr); err != nil {
			t.Errorf("metric wait: %v", err)
		}
	}
}
