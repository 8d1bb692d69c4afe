package problem

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/mdubois44/chargeplan/core/model"
)

// ErrDimensionMismatch reports a decision vector whose length does not equal
// vehicles x horizon.
var ErrDimensionMismatch = errors.New("decision vector length does not match scenario dimensions")

// Params tunes the battery dynamics simulation.
type Params struct {
	DTHours float64 // duration of one time step in hours
}

// DefaultParams returns the standard one-hour step.
func DefaultParams() Params { return Params{DTHours: 1.0} }

// Objectives holds the three minimized quantities for one schedule.
type Objectives struct {
	Cost            float64 // signed energy cost; V2G discharge can push it below zero
	Dissatisfaction float64 // summed SoC shortfall at departure
	PeakPowerKW     float64 // worst absolute site power over the horizon
}

// Vector returns the objectives as a slice in (cost, dissatisfaction, peak)
// order, the layout the Pareto metrics operate on.
func (o Objectives) Vector() []float64 {
	return []float64{o.Cost, o.Dissatisfaction, o.PeakPowerKW}
}

// Constraints holds the two violation magnitudes. Zero means feasible.
type Constraints struct {
	SoCViolation     float64 // total SoC excursion below 0 and above 1 over all vehicles and hours
	PowerViolationKW float64 // worst single-hour overage above the site cap
}

// Total returns the aggregate violation used for feasibility ordering.
func (c Constraints) Total() float64 { return c.SoCViolation + c.PowerViolationKW }

// Feasible reports whether the aggregate violation is within tol.
func (c Constraints) Feasible(tol float64) bool { return c.Total() <= tol }

// Evaluation is the full output of one evaluator call. Every field is freshly
// allocated; callers may retain or mutate it freely.
type Evaluation struct {
	Objectives  Objectives
	Constraints Constraints
	Power       *mat.Dense // masked power matrix, vehicles x hours
	FinalSoC    []float64  // per-vehicle SoC at the clipped departure hour
}

// Problem evaluates candidate charging schedules against one scenario. The
// constructor precomputes every view the hot path needs so Evaluate touches
// only immutable state and is safe to call from concurrent workers.
type Problem struct {
	nVehicles int
	horizon   int
	dt        float64

	mask      [][]bool
	socInit   []float64
	socTarget []float64
	caps      []float64
	depIdx    []int // departure hour clipped to horizon-1
	prices    []float64
	siteMaxKW float64
	loKW      float64
	hiKW      float64

	scenarioName string
}

// New builds a Problem for the scenario. The scenario is revalidated so a
// hand-built value cannot smuggle inconsistent dimensions into the hot path.
func New(s *model.Scenario, p Params) (*Problem, error) {
	if s == nil {
		return nil, errors.New("nil scenario")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if p.DTHours <= 0 {
		p.DTHours = DefaultParams().DTHours
	}

	depIdx := make([]int, s.NVehicles())
	for i, dep := range s.DepartureHours() {
		if dep > s.Horizon-1 {
			dep = s.Horizon - 1
		}
		depIdx[i] = dep
	}
	lo, hi := s.PowerBounds()

	return &Problem{
		nVehicles:    s.NVehicles(),
		horizon:      s.Horizon,
		dt:           p.DTHours,
		mask:         s.AvailabilityMask(),
		socInit:      s.InitialSoC(),
		socTarget:    s.TargetSoC(),
		caps:         s.BatteryCapacities(),
		depIdx:       depIdx,
		prices:       s.PriceProfile,
		siteMaxKW:    s.SiteMaxPowerKW,
		loKW:         lo,
		hiKW:         hi,
		scenarioName: s.Name,
	}, nil
}

// NVars returns the expected decision-vector length.
func (p *Problem) NVars() int { return p.nVehicles * p.horizon }

// NVehicles returns the fleet size.
func (p *Problem) NVehicles() int { return p.nVehicles }

// Horizon returns the number of time steps.
func (p *Problem) Horizon() int { return p.horizon }

// DTHours returns the step duration.
func (p *Problem) DTHours() float64 { return p.dt }

// ScenarioName returns the name of the underlying scenario.
func (p *Problem) ScenarioName() string { return p.scenarioName }

// Bounds returns the global decision-variable box shared by all entries.
func (p *Problem) Bounds() (lo, hi float64) { return p.loKW, p.hiKW }

// Evaluate maps one flat decision vector to objectives and constraint
// violations. The vector is interpreted row-major as power per vehicle and
// hour; entries outside a vehicle's plug-in window are zeroed after decoding.
func (p *Problem) Evaluate(x []float64) (Evaluation, error) {
	if len(x) != p.NVars() {
		return Evaluation{}, fmt.Errorf("%w: got %d, want %d (%d vehicles x %d hours)",
			ErrDimensionMismatch, len(x), p.NVars(), p.nVehicles, p.horizon)
	}

	buf := make([]float64, len(x))
	copy(buf, x)
	power := mat.NewDense(p.nVehicles, p.horizon, buf)

	totals := make([]float64, p.horizon)
	finalSoC := make([]float64, p.nVehicles)
	var socViolation float64

	for i := 0; i < p.nVehicles; i++ {
		row := power.RawRowView(i)
		maskRow := p.mask[i]
		soc := p.socInit[i]
		for t := 0; t < p.horizon; t++ {
			if !maskRow[t] {
				row[t] = 0
			}
			totals[t] += row[t]

			soc += row[t] * p.dt / p.caps[i]
			if soc < 0 {
				socViolation += -soc
			} else if soc > 1 {
				socViolation += soc - 1
			}
			if t == p.depIdx[i] {
				finalSoC[i] = soc
			}
		}
	}

	var cost, peak, powerViolation float64
	for t, total := range totals {
		cost += total * p.prices[t] * p.dt
		abs := math.Abs(total)
		if abs > peak {
			peak = abs
		}
		if over := abs - p.siteMaxKW; over > powerViolation {
			powerViolation = over
		}
	}

	var dissatisfaction float64
	for i, soc := range finalSoC {
		if short := p.socTarget[i] - soc; short > 0 {
			dissatisfaction += short
		}
	}

	return Evaluation{
		Objectives: Objectives{
			Cost:            cost,
			Dissatisfaction: dissatisfaction,
			PeakPowerKW:     peak,
		},
		Constraints: Constraints{
			SoCViolation:     socViolation,
			PowerViolationKW: powerViolation,
		},
		Power:    power,
		FinalSoC: finalSoC,
	}, nil
}
