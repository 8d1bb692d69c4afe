package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/mdubois44/chargeplan/core/metrics"
)

func captureServer(t *testing.T, bodies *[]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		*bodies = append(*bodies, strings.TrimSpace(string(data)))
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestInfluxSinkRecordRun(t *testing.T) {
	var bodies []string
	srv := captureServer(t, &bodies)

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	now := time.Now()
	hv := 0.415
	sp := 0.071
	ev := coremetrics.RunEvent{
		RunID:          "r1",
		Scenario:       "synthetic_5v",
		NVehicles:      5,
		Horizon:        24,
		SolutionsFound: 18,
		Converged:      true,
		BestCost:       12.345,
		Hypervolume:    &hv,
		Spacing:        &sp,
		ElapsedSeconds: 42.5,
		Evaluations:    150100,
		Time:           now,
	}
	if err := sink.RecordRun(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}

	p := write.NewPointWithMeasurement("optimization_run").
		AddTag("scenario", "synthetic_5v").
		AddTag("converged", "true").
		AddTag("run_id", "r1").
		AddField("best_cost", 12.345).
		AddField("solutions", 18).
		AddField("n_vehicles", 5).
		AddField("horizon", 24).
		AddField("elapsed_s", 42.5).
		AddField("evaluations", 150100)
	p.AddField("hypervolume", 0.415)
	p.AddField("spacing", 0.071)
	p.SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if len(bodies) != 1 || bodies[0] != expected {
		t.Errorf("unexpected bodies: %#v", bodies)
	}
}

func TestInfluxSinkRecordGeneration(t *testing.T) {
	var bodies []string
	srv := captureServer(t, &bodies)

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	now := time.Now()
	ev := coremetrics.GenerationEvent{
		Scenario:    "caltech_2020-01-01",
		Generation:  7,
		FrontSize:   9,
		BestCost:    3.25,
		Evaluations: 800,
		Time:        now,
	}
	if err := sink.RecordGeneration(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}

	p := write.NewPointWithMeasurement("search_progress").
		AddTag("scenario", "caltech_2020-01-01").
		AddField("generation", 7).
		AddField("front_size", 9).
		AddField("best_cost", 3.25).
		AddField("evaluations", 800).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if len(bodies) != 1 || bodies[0] != expected {
		t.Errorf("unexpected bodies: %#v", bodies)
	}
}

func TestInfluxSinkRecordSchedule(t *testing.T) {
	var bodies []string
	srv := captureServer(t, &bodies)

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	now := time.Now()
	ev := coremetrics.ScheduleEvent{
		RunID:    "r1",
		Scenario: "synthetic_2v",
		Energies: []coremetrics.VehicleEnergy{
			{VehicleID: "v0", ChargedKWh: 10.5, DischargedKWh: 1.5},
			{VehicleID: "v1", ChargedKWh: 6, DischargedKWh: 0},
		},
		Time: now,
	}
	if err := sink.RecordSchedule(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}

	p := write.NewPointWithMeasurement("vehicle_energy").
		AddTag("scenario", "synthetic_2v").
		AddTag("vehicle_id", "v0").
		AddTag("run_id", "r1").
		AddField("charged_kwh", 10.5).
		AddField("discharged_kwh", 1.5).
		AddField("net_kwh", 9.0).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if len(bodies) != 2 || bodies[0] != expected {
		t.Errorf("unexpected bodies: %#v", bodies)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
