package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/mdubois44/chargeplan/core/metrics"
	"github.com/mdubois44/chargeplan/core/metrics/energy"
)

// EnergySink tracks the planned energy flows per vehicle as environmental
// KPIs. Schedules accumulate in the ledger and the latest totals are exposed
// as Prometheus gauges.
type EnergySink struct {
	store      energy.Store
	factor     float64
	charged    *prometheus.GaugeVec
	discharged *prometheus.GaugeVec
	co2        *prometheus.GaugeVec
}

// NewEnergySink creates a sink with Prometheus gauges registered on reg.
// The factor converts discharged kWh to grams of CO2 avoided.
func NewEnergySink(store energy.Store, factor float64, reg prometheus.Registerer) (*EnergySink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &EnergySink{
		store:  store,
		factor: factor,
		charged: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vehicle_planned_charged_kwh",
			Help: "Planned energy drawn from the grid per vehicle",
		}, []string{"scenario", "vehicle_id"}),
		discharged: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vehicle_planned_discharged_kwh",
			Help: "Planned energy fed back to the grid per vehicle",
		}, []string{"scenario", "vehicle_id"}),
		co2: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vehicle_co2_avoided_grams",
			Help: "CO2 avoided through planned V2G discharge per vehicle",
		}, []string{"scenario", "vehicle_id"}),
	}

	var err error
	if s.charged, err = register(reg, s.charged); err != nil {
		return nil, err
	}
	if s.discharged, err = register(reg, s.discharged); err != nil {
		return nil, err
	}
	if s.co2, err = register(reg, s.co2); err != nil {
		return nil, err
	}
	return s, nil
}

// RecordRun is a no-op; the sink only cares about schedule breakdowns.
func (s *EnergySink) RecordRun(coremetrics.RunEvent) error { return nil }

// RecordSchedule adds the breakdown to the ledger and refreshes the gauges.
func (s *EnergySink) RecordSchedule(ev coremetrics.ScheduleEvent) error {
	for _, e := range ev.Energies {
		rec := energy.Record{
			Scenario:      ev.Scenario,
			VehicleID:     e.VehicleID,
			ChargedKWh:    e.ChargedKWh,
			DischargedKWh: e.DischargedKWh,
		}
		if err := s.store.Add(rec); err != nil {
			return err
		}
	}
	records, err := s.store.Query(ev.Scenario)
	if err != nil {
		return err
	}
	for _, r := range records {
		s.charged.WithLabelValues(r.Scenario, r.VehicleID).Set(r.ChargedKWh)
		s.discharged.WithLabelValues(r.Scenario, r.VehicleID).Set(r.DischargedKWh)
		s.co2.WithLabelValues(r.Scenario, r.VehicleID).Set(r.CO2AvoidedGrams(s.factor))
	}
	return nil
}
