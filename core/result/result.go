package result

import (
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/mdubois44/chargeplan/core/optimize"
	"github.com/mdubois44/chargeplan/core/pareto"
	"github.com/mdubois44/chargeplan/core/problem"
)

// Metadata describes the search that produced a result.
type Metadata struct {
	Algorithm   string `json:"algorithm"`
	PopSize     int    `json:"pop_size"`
	Generations int    `json:"generations"`
	Evaluations int    `json:"evaluations"`
	Seed        int64  `json:"seed"`
	Workers     int    `json:"workers"`
}

// Result is the assembled outcome of one optimization run: the representative
// schedule, the full Pareto front and its quality metrics. The representative
// is the cheapest solution on the front.
type Result struct {
	RunID        string
	ScenarioName string
	NVehicles    int
	Horizon      int
	DTHours      float64

	Schedule   *mat.Dense // representative schedule, vehicles x hours; nil when the search failed
	FinalSoC   []float64  // per-vehicle SoC at departure under the representative schedule
	Objectives problem.Objectives

	Front   []optimize.Solution
	Metrics pareto.Metrics

	ElapsedSeconds float64
	Converged      bool
	Timestamp      time.Time
	Meta           Metadata
}

// Assemble builds a Result from a finished search. The representative
// solution is re-evaluated so the stored schedule carries the availability
// mask. An empty front yields a non-converged result, not an error.
func Assemble(prob *problem.Problem, out optimize.Outcome, metrics pareto.Metrics, elapsed time.Duration, meta Metadata) (*Result, error) {
	r := &Result{
		RunID:          uuid.NewString(),
		ScenarioName:   prob.ScenarioName(),
		NVehicles:      prob.NVehicles(),
		Horizon:        prob.Horizon(),
		DTHours:        prob.DTHours(),
		Front:          out.Solutions,
		Metrics:        metrics,
		ElapsedSeconds: elapsed.Seconds(),
		Converged:      len(out.Solutions) > 0,
		Timestamp:      time.Now().UTC(),
		Meta:           meta,
	}
	if !r.Converged {
		return r, nil
	}

	best := 0
	for i, sol := range out.Solutions {
		if sol.Objectives.Cost < out.Solutions[best].Objectives.Cost {
			best = i
		}
	}
	ev, err := prob.Evaluate(out.Solutions[best].X)
	if err != nil {
		return nil, err
	}
	r.Schedule = ev.Power
	r.FinalSoC = ev.FinalSoC
	r.Objectives = ev.Objectives
	return r, nil
}

// VehicleSchedule returns a copy of one vehicle's hourly power profile.
func (r *Result) VehicleSchedule(i int) []float64 {
	if r.Schedule == nil {
		return nil
	}
	return mat.Row(nil, i, r.Schedule)
}

// HourlyTotals returns the summed site power per hour, signed.
func (r *Result) HourlyTotals() []float64 {
	totals := make([]float64, r.Horizon)
	if r.Schedule == nil {
		return totals
	}
	for t := 0; t < r.Horizon; t++ {
		for i := 0; i < r.NVehicles; i++ {
			totals[t] += r.Schedule.At(i, t)
		}
	}
	return totals
}

// EnergyPerVehicleKWh returns the net energy delivered to each vehicle.
func (r *Result) EnergyPerVehicleKWh() []float64 {
	energy := make([]float64, r.NVehicles)
	if r.Schedule == nil {
		return energy
	}
	for i := 0; i < r.NVehicles; i++ {
		var sum float64
		for t := 0; t < r.Horizon; t++ {
			sum += r.Schedule.At(i, t)
		}
		energy[i] = sum * r.DTHours
	}
	return energy
}

// TotalEnergyKWh returns the net energy moved across the whole fleet.
func (r *Result) TotalEnergyKWh() float64 {
	var total float64
	for _, e := range r.EnergyPerVehicleKWh() {
		total += e
	}
	return total
}

// AvgPowerPerVehicleKW returns the mean of the per-vehicle summed power.
func (r *Result) AvgPowerPerVehicleKW() float64 {
	if r.Schedule == nil || r.NVehicles == 0 {
		return 0
	}
	var total float64
	for i := 0; i < r.NVehicles; i++ {
		for t := 0; t < r.Horizon; t++ {
			total += r.Schedule.At(i, t)
		}
	}
	return total / float64(r.NVehicles)
}

// PeakHour returns the hour with the highest signed site load. Ties resolve
// to the earliest hour.
func (r *Result) PeakHour() int {
	totals := r.HourlyTotals()
	peak := 0
	for t, v := range totals {
		if v > totals[peak] {
			peak = t
		}
	}
	return peak
}
