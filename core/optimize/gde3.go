package optimize

import (
	"context"
	"math"
	"math/rand"
	"runtime"
	"sync"

	"github.com/mdubois44/chargeplan/core/logger"
	"github.com/mdubois44/chargeplan/core/pareto"
	"github.com/mdubois44/chargeplan/core/problem"
	"github.com/mdubois44/chargeplan/internal/eventbus"
)

// Config holds the GDE3 search parameters.
type Config struct {
	PopSize     int     `json:"pop_size"`
	Generations int     `json:"generations"`
	CR          float64 `json:"cr"`      // crossover rate
	F           float64 `json:"f"`       // differential weight
	Seed        int64   `json:"seed"`    // RNG seed; same seed, same trajectory
	Workers     int     `json:"workers"` // parallel evaluators, 0 means GOMAXPROCS
}

func (c Config) withDefaults() Config {
	if c.PopSize <= 0 {
		c.PopSize = 100
	} else if c.PopSize < 4 {
		c.PopSize = 4 // DE/rand/1 draws three distinct partners
	}
	if c.Generations <= 0 {
		c.Generations = 250
	}
	if c.CR <= 0 {
		c.CR = 0.9
	}
	if c.F <= 0 {
		c.F = 0.5
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	return c
}

// GenerationEvent reports search progress after one generation.
type GenerationEvent struct {
	Generation  int     `json:"generation"`
	Total       int     `json:"total"`
	FrontSize   int     `json:"front_size"`
	BestCost    float64 `json:"best_cost"`
	Evaluations int     `json:"evaluations"`
}

// Solution is one member of the final non-dominated set.
type Solution struct {
	X           []float64
	Objectives  problem.Objectives
	Constraints problem.Constraints
}

// Outcome is the result of one search run. An empty Solutions slice is a
// valid outcome of a failed search, not an error.
type Outcome struct {
	Solutions   []Solution
	Generations int
	Evaluations int
}

// GDE3 is a generalized differential evolution search for the three-objective
// charging problem. Trial vectors come from DE/rand/1/bin; survival follows
// feasibility rules, then non-dominated sorting with crowding-distance
// truncation keeps the population bounded.
type GDE3 struct {
	cfg Config
	log logger.Logger
	bus *eventbus.TypedBus[GenerationEvent]
}

// New creates a GDE3 search. A nil bus disables progress events.
func New(cfg Config, log logger.Logger, bus *eventbus.TypedBus[GenerationEvent]) *GDE3 {
	return &GDE3{cfg: cfg.withDefaults(), log: log, bus: bus}
}

// Config returns the effective settings after defaulting.
func (g *GDE3) Config() Config { return g.cfg }

type individual struct {
	x      []float64
	obj    problem.Objectives
	con    problem.Constraints
	objVec []float64
}

func (ind *individual) feasible() bool { return ind.con.Feasible(0) }

// Run searches until the generation budget is spent or ctx is cancelled.
// Cancellation is honored between generations; the outcome then carries the
// front found so far alongside ctx's error.
func (g *GDE3) Run(ctx context.Context, prob *problem.Problem) (Outcome, error) {
	cfg := g.cfg
	rng := rand.New(rand.NewSource(cfg.Seed))
	lo, hi := prob.Bounds()
	nVars := prob.NVars()

	g.log.Infof("starting GDE3: pop=%d gens=%d CR=%.2f F=%.2f seed=%d workers=%d vars=%d",
		cfg.PopSize, cfg.Generations, cfg.CR, cfg.F, cfg.Seed, cfg.Workers, nVars)

	pop := make([]*individual, cfg.PopSize)
	for i := range pop {
		x := make([]float64, nVars)
		for j := range x {
			x[j] = lo + rng.Float64()*(hi-lo)
		}
		pop[i] = &individual{x: x}
	}
	if err := g.evaluateAll(prob, pop); err != nil {
		return Outcome{}, err
	}
	evaluations := len(pop)

	gen := 0
	for ; gen < cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			g.log.Warnf("search cancelled at generation %d/%d", gen, cfg.Generations)
			return g.finish(pop, gen, evaluations), err
		}

		// All randomness is drawn sequentially here so parallel evaluation
		// cannot perturb the trajectory.
		trials := make([]*individual, len(pop))
		for i := range pop {
			trials[i] = &individual{x: g.mutate(rng, pop, i, lo, hi)}
		}
		if err := g.evaluateAll(prob, trials); err != nil {
			return Outcome{}, err
		}
		evaluations += len(trials)

		pop = survival(pop, trials)
		if len(pop) > cfg.PopSize {
			pop = truncate(pop, cfg.PopSize)
		}

		if g.bus != nil {
			g.bus.Publish(g.progress(pop, gen+1, evaluations))
		}
	}

	out := g.finish(pop, gen, evaluations)
	g.log.Infof("GDE3 finished: %d generations, %d evaluations, front size %d",
		out.Generations, out.Evaluations, len(out.Solutions))
	return out, nil
}

// mutate builds one DE/rand/1/bin trial vector clipped to the bound box.
func (g *GDE3) mutate(rng *rand.Rand, pop []*individual, i int, lo, hi float64) []float64 {
	r1 := pickOther(rng, len(pop), i, -1, -1)
	r2 := pickOther(rng, len(pop), i, r1, -1)
	r3 := pickOther(rng, len(pop), i, r1, r2)

	parent := pop[i].x
	trial := make([]float64, len(parent))
	jRand := rng.Intn(len(parent))
	for j := range trial {
		if j == jRand || rng.Float64() < g.cfg.CR {
			v := pop[r1].x[j] + g.cfg.F*(pop[r2].x[j]-pop[r3].x[j])
			if v < lo {
				v = lo
			} else if v > hi {
				v = hi
			}
			trial[j] = v
		} else {
			trial[j] = parent[j]
		}
	}
	return trial
}

func pickOther(rng *rand.Rand, n, a, b, c int) int {
	for {
		r := rng.Intn(n)
		if r != a && r != b && r != c {
			return r
		}
	}
}

// evaluateAll fills in objectives for every individual using a bounded worker
// pool. Results land in per-index slots, so scheduling order cannot change
// the outcome.
func (g *GDE3) evaluateAll(prob *problem.Problem, inds []*individual) error {
	workers := g.cfg.Workers
	if workers > len(inds) {
		workers = len(inds)
	}

	jobs := make(chan int, len(inds))
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				ev, err := prob.Evaluate(inds[i].x)
				if err != nil {
					errs <- err
					return
				}
				inds[i].obj = ev.Objectives
				inds[i].con = ev.Constraints
				inds[i].objVec = ev.Objectives.Vector()
			}
		}()
	}
	for i := range inds {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	close(errs)
	return <-errs
}

// survival applies the pairwise GDE3 rules: the winner replaces the parent,
// and a mutually non-dominating feasible pair keeps both.
func survival(pop, trials []*individual) []*individual {
	next := make([]*individual, 0, len(pop)+len(trials))
	var extra []*individual
	for i := range pop {
		parent, trial := pop[i], trials[i]
		switch {
		case beats(trial, parent):
			next = append(next, trial)
		case beats(parent, trial):
			next = append(next, parent)
		case parent.feasible() && trial.feasible():
			next = append(next, parent)
			extra = append(extra, trial)
		default:
			// Both infeasible with equal violation: keep the incumbent.
			next = append(next, parent)
		}
	}
	return append(next, extra...)
}

// beats implements constrained domination: feasible beats infeasible, lower
// violation beats higher, and between feasible individuals Pareto dominance
// decides.
func beats(a, b *individual) bool {
	af, bf := a.feasible(), b.feasible()
	switch {
	case af && !bf:
		return true
	case !af && bf:
		return false
	case !af && !bf:
		return a.con.Total() < b.con.Total()
	default:
		return pareto.Dominates(a.objVec, b.objVec)
	}
}

// finish extracts the feasible non-dominated set from the final population.
func (g *GDE3) finish(pop []*individual, generations, evaluations int) Outcome {
	var feas []*individual
	for _, ind := range pop {
		if ind.feasible() {
			feas = append(feas, ind)
		}
	}

	var solutions []Solution
	for i, ind := range feas {
		dominated := false
		for j, other := range feas {
			if j != i && pareto.Dominates(other.objVec, ind.objVec) {
				dominated = true
				break
			}
		}
		if dominated {
			continue
		}
		solutions = append(solutions, Solution{
			X:           ind.x,
			Objectives:  ind.obj,
			Constraints: ind.con,
		})
	}

	return Outcome{Solutions: solutions, Generations: generations, Evaluations: evaluations}
}

// progress summarizes the population for event subscribers.
func (g *GDE3) progress(pop []*individual, gen, evaluations int) GenerationEvent {
	front := pareto.NewFront()
	best := math.Inf(1)
	for _, ind := range pop {
		if !ind.feasible() {
			continue
		}
		front.Add(ind.objVec)
		if ind.obj.Cost < best {
			best = ind.obj.Cost
		}
	}
	if math.IsInf(best, 1) {
		best = 0
	}
	return GenerationEvent{
		Generation:  gen,
		Total:       g.cfg.Generations,
		FrontSize:   front.Len(),
		BestCost:    best,
		Evaluations: evaluations,
	}
}
