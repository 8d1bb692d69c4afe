package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/mdubois44/chargeplan/core/metrics"
	"github.com/mdubois44/chargeplan/infra/logger"
)

// InfluxSink writes optimization KPIs to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and returns a
// NopSink if the health check fails, so a missing database never blocks runs.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordRun writes the run summary as one point.
func (s *InfluxSink) RecordRun(ev coremetrics.RunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("optimization_run").
		AddTag("scenario", ev.Scenario).
		AddTag("converged", strconv.FormatBool(ev.Converged)).
		AddTag("run_id", ev.RunID).
		AddField("best_cost", round3(ev.BestCost)).
		AddField("solutions", ev.SolutionsFound).
		AddField("n_vehicles", ev.NVehicles).
		AddField("horizon", ev.Horizon).
		AddField("elapsed_s", round3(ev.ElapsedSeconds)).
		AddField("evaluations", ev.Evaluations)
	if ev.Hypervolume != nil {
		p.AddField("hypervolume", round3(*ev.Hypervolume))
	}
	if ev.Spacing != nil {
		p.AddField("spacing", round3(*ev.Spacing))
	}
	p.SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordGeneration writes one progress point per generation.
func (s *InfluxSink) RecordGeneration(ev coremetrics.GenerationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("search_progress").
		AddTag("scenario", ev.Scenario).
		AddField("generation", ev.Generation).
		AddField("front_size", ev.FrontSize).
		AddField("best_cost", round3(ev.BestCost)).
		AddField("evaluations", ev.Evaluations).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordFetch persists one scenario acquisition.
func (s *InfluxSink) RecordFetch(ev coremetrics.FetchEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("scenario_fetch").
		AddTag("source", ev.Source).
		AddTag("cache_hit", strconv.FormatBool(ev.CacheHit)).
		AddTag("scenario", ev.Scenario).
		AddField("sessions", ev.Sessions).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSchedule writes one point per vehicle with its planned energy flows.
func (s *InfluxSink) RecordSchedule(ev coremetrics.ScheduleEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, e := range ev.Energies {
		p := write.NewPointWithMeasurement("vehicle_energy").
			AddTag("scenario", ev.Scenario).
			AddTag("vehicle_id", e.VehicleID).
			AddTag("run_id", ev.RunID).
			AddField("charged_kwh", round3(e.ChargedKWh)).
			AddField("discharged_kwh", round3(e.DischargedKWh)).
			AddField("net_kwh", round3(e.ChargedKWh-e.DischargedKWh)).
			SetTime(ev.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
