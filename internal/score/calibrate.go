package score

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/regulomics/v2gscore/internal/genes"
)

// Calibrate computes empirical z-scores, empirical p-values and BH
// q-values for the scored genes against the full gene universe.
//
// Null population policy: every universe gene without a composite score
// enters the null with composite 0 (a sparse, zero-filled universe).
// Unscored genes are background only; they are never emitted as scored
// rows and are not part of the multiple-testing family.
//
// Empirical p uses a +1 pseudocount in numerator and denominator so no
// gene can reach exactly zero:
//
//	p = (1 + #{universe genes with score ≥ this gene}) / (1 + N_universe)
//
// The scored rows are updated in place and nothing else is mutated.
func Calibrate(scored []*GeneScore, universe *genes.Universe, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if universe.Size() == 0 {
		return fmt.Errorf("calibrate: empty gene universe")
	}

	composite := make(map[string]float64, len(scored))
	for _, gs := range scored {
		composite[gs.GeneID] = gs.Composite
	}

	population := make([]float64, 0, universe.Size())
	for _, g := range universe.All() {
		population = append(population, composite[g.ID])
	}

	mean, sd := stat.MeanStdDev(population, nil)
	if sd == 0 || math.IsNaN(sd) {
		return fmt.Errorf("calibrate: degenerate null (universe sd is zero over %d genes)", len(population))
	}

	sort.Float64s(population)
	n := float64(len(population))

	for _, gs := range scored {
		gs.EmpiricalZ = (gs.Composite - mean) / sd

		// Count of universe scores >= composite via binary search on the
		// ascending population.
		idx := sort.SearchFloat64s(population, gs.Composite)
		for idx > 0 && population[idx-1] >= gs.Composite {
			idx--
		}
		atLeast := len(population) - idx
		gs.EmpiricalP = (1 + float64(atLeast)) / (1 + n)
	}

	ps := make([]float64, len(scored))
	for i, gs := range scored {
		ps[i] = gs.EmpiricalP
	}
	for i, q := range BenjaminiHochberg(ps) {
		scored[i].QValue = q
	}

	logger.Info("empirical calibration complete",
		zap.Int("scored_genes", len(scored)),
		zap.Int("universe", universe.Size()),
		zap.Float64("null_mean", mean),
		zap.Float64("null_sd", sd))

	return nil
}

// BenjaminiHochberg returns FDR q-values for the given p-values, in the
// input order. Ranks are assigned over ascending p; q_i = p_i·N/rank_i
// with the monotonic enforcement pass from the largest rank down, and
// all q clamped to [0, 1].
func BenjaminiHochberg(ps []float64) []float64 {
	n := len(ps)
	if n == 0 {
		return nil
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return ps[order[a]] < ps[order[b]]
	})

	qs := make([]float64, n)
	minSoFar := 1.0
	for rank := n; rank >= 1; rank-- {
		idx := order[rank-1]
		q := ps[idx] * float64(n) / float64(rank)
		if q > minSoFar {
			q = minSoFar
		} else {
			minSoFar = q
		}
		qs[idx] = q
	}

	return qs
}
