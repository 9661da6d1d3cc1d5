package enrich

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulomics/v2gscore/internal/score"
)

func rankedFixture(n int) []RankedGene {
	scored := make([]*score.GeneScore, n)
	for i := range scored {
		scored[i] = &score.GeneScore{
			GeneID:    fmt.Sprintf("G%03d", i),
			Composite: float64(n - i), // G000 highest
		}
	}
	return RankGenes(scored)
}

func TestRankGenes_MidRanksForTies(t *testing.T) {
	ranked := RankGenes([]*score.GeneScore{
		{GeneID: "A", Composite: 3},
		{GeneID: "B", Composite: 2},
		{GeneID: "C", Composite: 2},
		{GeneID: "D", Composite: 1},
	})

	require.Len(t, ranked, 4)
	assert.Equal(t, "A", ranked[0].GeneID)
	assert.Equal(t, 1.0, ranked[0].Rank)
	assert.Equal(t, 2.5, ranked[1].Rank)
	assert.Equal(t, 2.5, ranked[2].Rank)
	assert.Equal(t, 4.0, ranked[3].Rank)
}

func TestGSEA_TopPathwayEnriched(t *testing.T) {
	ranked := rankedFixture(100)

	sets := []PathwaySet{
		{Name: "top", Genes: []string{"G000", "G001", "G002", "G003", "G004"}},
		{Name: "spread", Genes: []string{"G010", "G030", "G050", "G070", "G090"}},
	}

	results := GSEA(ranked, sets, nil)
	require.Len(t, results, 2)

	top := results[0]
	assert.Equal(t, "top", top.Pathway)
	assert.Equal(t, StatusOK, top.Status)
	assert.Equal(t, 5, top.NFound)
	assert.Equal(t, 3.0, top.MedianRank)
	assert.Less(t, top.PValue, 0.001)
	// All five genes ahead of every non-member: U = 0, maximal effect.
	assert.Equal(t, 0.0, top.UStatistic)
	assert.InDelta(t, 1.0, top.RankBiserial, 1e-12)

	spread := results[1]
	assert.Equal(t, StatusOK, spread.Status)
	assert.Greater(t, spread.PValue, 0.05)

	// BH preserves ordering and never shrinks p.
	assert.GreaterOrEqual(t, top.QValue, top.PValue)
	assert.LessOrEqual(t, top.QValue, spread.QValue)
}

func TestGSEA_TooFewGenesUnavailable(t *testing.T) {
	ranked := rankedFixture(10)

	results := GSEA(ranked, []PathwaySet{
		{Name: "absent", Genes: []string{"NOT_A_GENE"}},
	}, nil)

	require.Len(t, results, 1)
	assert.Equal(t, StatusUnavailable, results[0].Status)
	assert.Equal(t, 0, results[0].NFound)
	assert.True(t, math.IsNaN(results[0].PValue))
	assert.True(t, math.IsNaN(results[0].QValue))
}

func TestMannWhitneyLess(t *testing.T) {
	// x clearly below y.
	u, p := mannWhitneyLess([]float64{1, 2, 3}, []float64{10, 11, 12, 13})
	assert.Equal(t, 0.0, u)
	assert.Less(t, p, 0.05)

	// Identical distributions: p near 0.5 or above.
	_, p = mannWhitneyLess([]float64{1, 3, 5, 7}, []float64{2, 4, 6, 8})
	assert.Greater(t, p, 0.3)

	// All values tied: zero variance, p = 1.
	_, p = mannWhitneyLess([]float64{5, 5}, []float64{5, 5, 5})
	assert.Equal(t, 1.0, p)
}

func TestMidRanks_TieCorrection(t *testing.T) {
	ranks, tieSum := midRanks([]float64{1, 2, 2, 3})
	assert.Equal(t, []float64{1, 2.5, 2.5, 4}, ranks)
	assert.Equal(t, 6.0, tieSum) // 2^3 - 2

	_, tieSum = midRanks([]float64{1, 2, 3})
	assert.Equal(t, 0.0, tieSum)
}

func TestReadPathwaySets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pathways.yaml")
	content := `
Glutamate_Ionotropic: [GRIN1, GRIN2A, GRIN2B]
Calcium_VoltageGated:
  - CACNA1C
  - CACNA1D
Empty_Set: []
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	sets, err := ReadPathwaySets(path)
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, "Calcium_VoltageGated", sets[0].Name)
	assert.Equal(t, []string{"CACNA1C", "CACNA1D"}, sets[0].Genes)
	assert.Equal(t, "Glutamate_Ionotropic", sets[1].Name)
}

func TestReadPathwaySets_MissingFile(t *testing.T) {
	_, err := ReadPathwaySets(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
