package energy

// Record aggregates the planned energy flows for one vehicle in one scenario.
type Record struct {
	Scenario      string
	VehicleID     string
	ChargedKWh    float64 // energy drawn from the grid
	DischargedKWh float64 // energy fed back to the grid
}

// NetKWh returns the net energy delivered to the vehicle.
func (r Record) NetKWh() float64 {
	return r.ChargedKWh - r.DischargedKWh
}

// CO2AvoidedGrams estimates the emissions displaced by feeding energy back,
// using a grid emission factor in grams per kWh.
func (r Record) CO2AvoidedGrams(factor float64) float64 {
	return r.DischargedKWh * factor
}

// V2GShare returns the fraction of charged energy that was fed back.
func (r Record) V2GShare() float64 {
	if r.ChargedKWh == 0 {
		if r.DischargedKWh == 0 {
			return 0
		}
		return 1
	}
	return r.DischargedKWh / r.ChargedKWh
}
