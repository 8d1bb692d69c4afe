package optimize

import (
	"math"
	"sort"
)

// truncate keeps the best n individuals. Whole fronts are taken in rank
// order; the last front that does not fit is broken on crowding distance,
// with index order as the tie break so runs stay reproducible.
func truncate(pop []*individual, n int) []*individual {
	next := make([]*individual, 0, n)
	for _, front := range nonDominatedSort(pop) {
		if len(next)+len(front) <= n {
			for _, idx := range front {
				next = append(next, pop[idx])
			}
			if len(next) == n {
				break
			}
			continue
		}

		dist := crowdingDistances(pop, front)
		order := make([]int, len(front))
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(a, b int) bool {
			if dist[order[a]] != dist[order[b]] {
				return dist[order[a]] > dist[order[b]]
			}
			return front[order[a]] < front[order[b]]
		})
		for _, k := range order[:n-len(next)] {
			next = append(next, pop[front[k]])
		}
		break
	}
	return next
}

// nonDominatedSort ranks the population into fronts of indices under
// constrained domination. Front 0 holds the individuals nothing beats.
func nonDominatedSort(pop []*individual) [][]int {
	n := len(pop)
	dominates := make([][]int, n)
	domCount := make([]int, n)
	var current []int
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if beats(pop[i], pop[j]) {
				dominates[i] = append(dominates[i], j)
			} else if beats(pop[j], pop[i]) {
				domCount[i]++
			}
		}
		if domCount[i] == 0 {
			current = append(current, i)
		}
	}

	var fronts [][]int
	for len(current) > 0 {
		fronts = append(fronts, current)
		var next []int
		for _, i := range current {
			for _, j := range dominates[i] {
				domCount[j]--
				if domCount[j] == 0 {
					next = append(next, j)
				}
			}
		}
		current = next
	}
	return fronts
}

// crowdingDistances measures how isolated each member of a front is in
// objective space. Boundary members get infinite distance so they always
// survive truncation.
func crowdingDistances(pop []*individual, front []int) []float64 {
	m := len(front)
	dist := make([]float64, m)
	if m <= 2 {
		for i := range dist {
			dist[i] = math.Inf(1)
		}
		return dist
	}

	nObj := len(pop[front[0]].objVec)
	order := make([]int, m)
	for k := 0; k < nObj; k++ {
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(a, b int) bool {
			va := pop[front[order[a]]].objVec[k]
			vb := pop[front[order[b]]].objVec[k]
			if va != vb {
				return va < vb
			}
			return front[order[a]] < front[order[b]]
		})

		lo := pop[front[order[0]]].objVec[k]
		hi := pop[front[order[m-1]]].objVec[k]
		dist[order[0]] = math.Inf(1)
		dist[order[m-1]] = math.Inf(1)
		if hi == lo {
			continue
		}
		for i := 1; i < m-1; i++ {
			gap := pop[front[order[i+1]]].objVec[k] - pop[front[order[i-1]]].objVec[k]
			dist[order[i]] += gap / (hi - lo)
		}
	}
	return dist
}
