package model

import "fmt"

// Scenario is the immutable description of one optimization run: the fleet,
// the hourly price curve and the site power cap over a discrete horizon.
type Scenario struct {
	Name           string    `json:"name"`
	Vehicles       []Vehicle `json:"vehicles"`
	PriceProfile   []float64 `json:"price_profile"`
	SiteMaxPowerKW float64   `json:"site_max_power"`
	Horizon        int       `json:"time_horizon"`
}

// NewScenario builds a validated scenario. Construction is the only place
// validation runs, so downstream consumers can treat the value as sound.
func NewScenario(name string, vehicles []Vehicle, prices []float64, siteMaxPowerKW float64, horizon int) (*Scenario, error) {
	s := &Scenario{
		Name:           name,
		Vehicles:       vehicles,
		PriceProfile:   prices,
		SiteMaxPowerKW: siteMaxPowerKW,
		Horizon:        horizon,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate applies the structural checks: a non-empty fleet, a price profile
// matching the horizon exactly, a positive site cap and per-vehicle sanity.
func (s *Scenario) Validate() error {
	if s.Horizon <= 0 {
		return &ValidationError{Field: "time_horizon", Reason: fmt.Sprintf("must be positive, got %d", s.Horizon)}
	}
	if len(s.Vehicles) == 0 {
		return &ValidationError{Field: "vehicles", Reason: "scenario must have at least one vehicle"}
	}
	if len(s.PriceProfile) != s.Horizon {
		return &ValidationError{
			Field:  "price_profile",
			Reason: fmt.Sprintf("length %d must match time horizon %d", len(s.PriceProfile), s.Horizon),
		}
	}
	if s.SiteMaxPowerKW <= 0 {
		return &ValidationError{Field: "site_max_power", Reason: fmt.Sprintf("must be positive, got %g", s.SiteMaxPowerKW)}
	}
	for i, v := range s.Vehicles {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("vehicle %d: %w", i, err)
		}
	}
	return nil
}

// NVehicles returns the fleet size.
func (s *Scenario) NVehicles() int { return len(s.Vehicles) }

// NVars returns the decision-vector length, one power value per vehicle and
// hour.
func (s *Scenario) NVars() int { return len(s.Vehicles) * s.Horizon }

// AvailabilityMask returns the vehicle x hour presence matrix.
func (s *Scenario) AvailabilityMask() [][]bool {
	mask := make([][]bool, len(s.Vehicles))
	for i, v := range s.Vehicles {
		row := make([]bool, s.Horizon)
		for h := 0; h < s.Horizon; h++ {
			row[h] = v.AvailableAt(h)
		}
		mask[i] = row
	}
	return mask
}

// InitialSoC returns the per-vehicle state of charge at arrival.
func (s *Scenario) InitialSoC() []float64 {
	out := make([]float64, len(s.Vehicles))
	for i, v := range s.Vehicles {
		out[i] = v.SoCInitial
	}
	return out
}

// TargetSoC returns the per-vehicle requested state of charge at departure.
func (s *Scenario) TargetSoC() []float64 {
	out := make([]float64, len(s.Vehicles))
	for i, v := range s.Vehicles {
		out[i] = v.SoCTarget
	}
	return out
}

// DepartureHours returns the per-vehicle departure hour.
func (s *Scenario) DepartureHours() []int {
	out := make([]int, len(s.Vehicles))
	for i, v := range s.Vehicles {
		out[i] = v.Departure
	}
	return out
}

// BatteryCapacities returns the per-vehicle battery capacity in kWh.
func (s *Scenario) BatteryCapacities() []float64 {
	out := make([]float64, len(s.Vehicles))
	for i, v := range s.Vehicles {
		out[i] = v.BatteryKWh
	}
	return out
}

// TotalEnergyDemandKWh sums the energy every vehicle needs to reach its
// target.
func (s *Scenario) TotalEnergyDemandKWh() float64 {
	var total float64
	for _, v := range s.Vehicles {
		total += v.EnergyNeededKWh()
	}
	return total
}

// PowerBounds returns the global decision-variable box: the loosest lower and
// upper power bound across the fleet.
func (s *Scenario) PowerBounds() (lo, hi float64) {
	for i, v := range s.Vehicles {
		if i == 0 || v.PowerMinKW < lo {
			lo = v.PowerMinKW
		}
		if i == 0 || v.PowerMaxKW > hi {
			hi = v.PowerMaxKW
		}
	}
	return lo, hi
}

// Feasible reports whether every vehicle can, on average power alone, reach
// its target within its plug-in window. The site cap is deliberately not
// considered here; cap conflicts across vehicles surface as constraint
// violations at evaluation time instead.
func (s *Scenario) Feasible() bool {
	for _, v := range s.Vehicles {
		if v.MinAveragePowerKW() > v.PowerMaxKW {
			return false
		}
	}
	return true
}
