package enrich

import (
	"math"
	"sort"

	fet "github.com/glycerine/golang-fisher-exact"
	"go.uber.org/zap"

	"github.com/regulomics/v2gscore/internal/score"
)

// DefaultTopN is the size of the high-scoring gene set used for
// reference overlap tests.
const DefaultTopN = 500

// OverlapResult is the outcome of testing |top-N ∩ reference| against
// what a random draw of N genes from the universe would produce.
type OverlapResult struct {
	Reference    string   `csv:"reference"`
	UniverseSize int      `csv:"universe_size"`
	TopN         int      `csv:"top_n"`
	ReferenceN   int      `csv:"reference_n"`
	Overlap      int      `csv:"overlap"`
	Expected     float64  `csv:"expected_overlap"`
	PValue       float64  `csv:"p_value"`
	Status       string   `csv:"status"`
	Genes        []string `csv:"-"`
}

// TopGenes returns the IDs of the n highest-composite scored genes,
// ties broken by gene ID.
func TopGenes(scored []*score.GeneScore, n int) []string {
	sorted := make([]*score.GeneScore, len(scored))
	copy(sorted, scored)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Composite != sorted[j].Composite {
			return sorted[i].Composite > sorted[j].Composite
		}
		return sorted[i].GeneID < sorted[j].GeneID
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = sorted[i].GeneID
	}
	return ids
}

// ReferenceOverlap tests whether the top gene set overlaps a reference
// gene list (rare-variant hits, Hi-C anchored genes) more than chance.
// The p-value is the hypergeometric upper tail
// P(X >= k) drawing topN genes from a universe of universeSize that
// contains the reference genes, obtained as the right-tailed Fisher
// exact p of the 2x2 membership table. An empty reference produces an
// unavailable status row.
func ReferenceOverlap(name string, topGenes, reference []string, universeSize int, logger *zap.Logger) OverlapResult {
	if logger == nil {
		logger = zap.NewNop()
	}

	res := OverlapResult{
		Reference:    name,
		UniverseSize: universeSize,
		TopN:         len(topGenes),
		ReferenceN:   len(reference),
	}
	if len(reference) == 0 || len(topGenes) == 0 || universeSize <= 0 {
		res.Status = StatusUnavailable
		res.Expected = math.NaN()
		res.PValue = math.NaN()
		logger.Warn("reference gene list unavailable", zap.String("reference", name))
		return res
	}

	refSet := make(map[string]bool, len(reference))
	for _, g := range reference {
		refSet[g] = true
	}
	for _, g := range topGenes {
		if refSet[g] {
			res.Overlap++
			res.Genes = append(res.Genes, g)
		}
	}
	sort.Strings(res.Genes)

	k := res.Overlap
	a := k
	b := len(topGenes) - k
	c := len(reference) - k
	d := universeSize - len(topGenes) - len(reference) + k
	if c < 0 {
		c = 0
	}
	if d < 0 {
		d = 0
	}

	_, _, rightp, _ := fet.FisherExactTest(a, b, c, d)
	res.Expected = float64(len(topGenes)) * float64(len(reference)) / float64(universeSize)
	res.PValue = rightp
	res.Status = StatusOK
	return res
}

// PrioritizedOverlap compares two prioritized gene lists of possibly
// different sizes against the same universe with a two-sided Fisher
// exact test, the comparison used for published GWAS prioritization
// lists rather than rare-variant hit sets.
func PrioritizedOverlap(name string, ours, theirs []string, universeSize int, logger *zap.Logger) OverlapResult {
	res := ReferenceOverlap(name, ours, theirs, universeSize, logger)
	if res.Status != StatusOK {
		return res
	}

	k := res.Overlap
	a := k
	b := len(ours) - k
	c := len(theirs) - k
	d := universeSize - len(ours) - len(theirs) + k
	if d < 0 {
		d = 0
	}
	_, _, _, twop := fet.FisherExactTest(a, b, c, d)
	res.PValue = twop
	return res
}
