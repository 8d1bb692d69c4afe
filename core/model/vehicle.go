package model

import (
	"fmt"
	"math"
)

// HoursPerDay fixes the hour-of-day range for arrival and departure fields.
// Planning horizons shorter than a day are handled by the evaluator, which
// clips departure indices to the horizon.
const HoursPerDay = 24

// Vehicle represents an electric vehicle plugged in at the site for part of
// the planning horizon.
type Vehicle struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id,omitempty"`
	BatteryKWh float64 `json:"battery_capacity"` // total battery capacity in kWh
	SoCInitial float64 `json:"soc_initial"`      // state of charge at arrival, fraction of capacity
	SoCTarget  float64 `json:"soc_target"`       // requested state of charge at departure
	Arrival    int     `json:"arrival_hour"`     // hour of day the vehicle plugs in
	Departure  int     `json:"departure_hour"`   // hour of day the vehicle unplugs
	PowerMinKW float64 `json:"power_min_kw"`     // lower power bound, negative when V2G discharge is allowed
	PowerMaxKW float64 `json:"power_max_kw"`     // upper charging power bound
}

// Validate checks that the vehicle configuration is sound. SoC values must be
// fractions, hours must fall inside the day and the power bounds must allow
// charging.
func (v Vehicle) Validate() error {
	if v.BatteryKWh <= 0 {
		return &ValidationError{Field: "battery_capacity", Reason: fmt.Sprintf("must be positive, got %g", v.BatteryKWh)}
	}
	if v.SoCInitial < 0 || v.SoCInitial > 1 {
		return &ValidationError{Field: "soc_initial", Reason: fmt.Sprintf("must be between 0 and 1, got %g", v.SoCInitial)}
	}
	if v.SoCTarget < 0 || v.SoCTarget > 1 {
		return &ValidationError{Field: "soc_target", Reason: fmt.Sprintf("must be between 0 and 1, got %g", v.SoCTarget)}
	}
	if v.Arrival < 0 || v.Arrival >= HoursPerDay {
		return &ValidationError{Field: "arrival_hour", Reason: fmt.Sprintf("must be in [0,%d), got %d", HoursPerDay, v.Arrival)}
	}
	if v.Departure < 0 || v.Departure >= HoursPerDay {
		return &ValidationError{Field: "departure_hour", Reason: fmt.Sprintf("must be in [0,%d), got %d", HoursPerDay, v.Departure)}
	}
	if v.PowerMaxKW <= 0 {
		return &ValidationError{Field: "power_max_kw", Reason: fmt.Sprintf("must be positive, got %g", v.PowerMaxKW)}
	}
	if v.PowerMinKW > 0 {
		return &ValidationError{Field: "power_min_kw", Reason: fmt.Sprintf("must be zero or negative, got %g", v.PowerMinKW)}
	}
	return nil
}

// AvailableAt reports whether the vehicle is plugged in at the given hour.
// A stay with departure after arrival covers [arrival, departure) on the same
// day; departure at or before arrival means the stay wraps past midnight.
func (v Vehicle) AvailableAt(hour int) bool {
	if v.Departure > v.Arrival {
		return hour >= v.Arrival && hour < v.Departure
	}
	return hour >= v.Arrival || hour < v.Departure
}

// EnergyNeededKWh returns the energy required to move the battery from the
// initial to the target state of charge. Negative when the vehicle arrives
// above target.
func (v Vehicle) EnergyNeededKWh() float64 {
	return (v.SoCTarget - v.SoCInitial) * v.BatteryKWh
}

// HoursAvailable counts the hours the vehicle is plugged in, handling the
// midnight wrap.
func (v Vehicle) HoursAvailable() int {
	if v.Departure > v.Arrival {
		return v.Departure - v.Arrival
	}
	return (HoursPerDay - v.Arrival) + v.Departure
}

// MinAveragePowerKW returns the average charging power required to reach the
// target within the plug-in window. +Inf when the window is empty.
func (v Vehicle) MinAveragePowerKW() float64 {
	hours := v.HoursAvailable()
	if hours == 0 {
		return math.Inf(1)
	}
	return v.EnergyNeededKWh() / float64(hours)
}
