package enrich

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/regulomics/v2gscore/internal/score"
)

// Result status values shared by all enrichment testers. Unavailable
// reference data produces a status row, never a silent omission.
const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"
)

// RankedGene is a gene positioned in the descending-composite ranking.
// Rank 1 is the highest-scoring gene; tied composites receive the mean
// of the ranks they span.
type RankedGene struct {
	GeneID string
	Score  float64
	Rank   float64
}

// PathwayResult is one row of the GSEA output table.
type PathwayResult struct {
	Pathway      string  `csv:"pathway"`
	NFound       int     `csv:"n_found"`
	MedianRank   float64 `csv:"median_rank"`
	UStatistic   float64 `csv:"u_statistic"`
	RankBiserial float64 `csv:"rank_biserial"`
	PValue       float64 `csv:"p_value"`
	QValue       float64 `csv:"q_value"`
	Status       string  `csv:"status"`
}

// RankGenes orders scored genes by composite descending and assigns
// mid-ranks to ties.
func RankGenes(scored []*score.GeneScore) []RankedGene {
	ranked := make([]RankedGene, 0, len(scored))
	for _, gs := range scored {
		ranked = append(ranked, RankedGene{GeneID: gs.GeneID, Score: gs.Composite})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].GeneID < ranked[j].GeneID
	})

	for i := 0; i < len(ranked); {
		j := i
		for j < len(ranked) && ranked[j].Score == ranked[i].Score {
			j++
		}
		mid := float64(i+1+j) / 2
		for k := i; k < j; k++ {
			ranked[k].Rank = mid
		}
		i = j
	}
	return ranked
}

// GSEA tests each pathway with a Mann-Whitney U test of pathway ranks
// against non-pathway ranks (lower rank = higher score, one-sided).
// Pathways with fewer than two genes present in the ranking get an
// unavailable status row. Q-values are BH-adjusted across the tested
// pathways only.
func GSEA(ranked []RankedGene, sets []PathwaySet, logger *zap.Logger) []PathwayResult {
	if logger == nil {
		logger = zap.NewNop()
	}

	inRanking := make(map[string]float64, len(ranked))
	for _, rg := range ranked {
		inRanking[rg.GeneID] = rg.Rank
	}

	results := make([]PathwayResult, 0, len(sets))
	for _, set := range sets {
		member := make(map[string]bool, len(set.Genes))
		for _, g := range set.Genes {
			member[g] = true
		}

		var pathway, rest []float64
		for _, rg := range ranked {
			if member[rg.GeneID] {
				pathway = append(pathway, rg.Rank)
			} else {
				rest = append(rest, rg.Rank)
			}
		}

		res := PathwayResult{Pathway: set.Name, NFound: len(pathway)}
		if len(pathway) < 2 || len(rest) == 0 {
			res.Status = StatusUnavailable
			res.MedianRank = math.NaN()
			res.UStatistic = math.NaN()
			res.RankBiserial = math.NaN()
			res.PValue = math.NaN()
			res.QValue = math.NaN()
			logger.Warn("pathway has too few scored genes for GSEA",
				zap.String("pathway", set.Name),
				zap.Int("n_found", len(pathway)))
			results = append(results, res)
			continue
		}

		u, p := mannWhitneyLess(pathway, rest)
		median, _ := stats.Median(pathway)

		res.Status = StatusOK
		res.MedianRank = median
		res.UStatistic = u
		res.RankBiserial = 1 - 2*u/(float64(len(pathway))*float64(len(rest)))
		res.PValue = p
		results = append(results, res)
	}

	adjustPathwayFDR(results)
	return results
}

func adjustPathwayFDR(results []PathwayResult) {
	var idx []int
	var ps []float64
	for i, r := range results {
		if r.Status == StatusOK {
			idx = append(idx, i)
			ps = append(ps, r.PValue)
		}
	}
	qs := score.BenjaminiHochberg(ps)
	for i, j := range idx {
		results[j].QValue = qs[i]
	}
}

// mannWhitneyLess computes the Mann-Whitney U statistic for x and the
// one-sided p-value under H1: x is stochastically smaller than y,
// using the normal approximation with tie correction and continuity
// correction.
func mannWhitneyLess(x, y []float64) (u, p float64) {
	n1, n2 := float64(len(x)), float64(len(y))
	combined := make([]float64, 0, len(x)+len(y))
	combined = append(combined, x...)
	combined = append(combined, y...)
	ranks, tieSum := midRanks(combined)

	var r1 float64
	for i := range x {
		r1 += ranks[i]
	}
	u = r1 - n1*(n1+1)/2

	n := n1 + n2
	mean := n1 * n2 / 2
	variance := n1 * n2 / 12 * ((n + 1) - tieSum/(n*(n-1)))
	if variance <= 0 {
		return u, 1
	}

	z := (u - mean + 0.5) / math.Sqrt(variance)
	return u, distuv.UnitNormal.CDF(z)
}

// midRanks assigns average ranks to the values of v in their original
// order and returns the tie correction term sum(t^3 - t) over tie
// groups.
func midRanks(v []float64) (ranks []float64, tieSum float64) {
	order := make([]int, len(v))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return v[order[a]] < v[order[b]] })

	ranks = make([]float64, len(v))
	for i := 0; i < len(order); {
		j := i
		for j < len(order) && v[order[j]] == v[order[i]] {
			j++
		}
		mid := float64(i+1+j) / 2
		for k := i; k < j; k++ {
			ranks[order[k]] = mid
		}
		if t := float64(j - i); t > 1 {
			tieSum += t*t*t - t
		}
		i = j
	}
	return ranks, tieSum
}
