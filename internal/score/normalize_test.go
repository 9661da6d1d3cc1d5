package score

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/regulomics/v2gscore/internal/predict"
)

func TestNormalizeModalities_MeanZeroSDOne(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	set := predict.NewScoreSet()

	// Two modalities on different raw scales, with gaps.
	for i := 0; i < 200; i++ {
		variant := fmt.Sprintf("rs%d", i)
		set.Set(variant, "GENE_A", "DNase", rng.NormFloat64()*10+100)
		if i%3 != 0 {
			// RNA is absent for a third of the cells.
			set.Set(variant, "GENE_A", "RNA", rng.NormFloat64()*0.01-5)
		}
	}

	zset, report := NormalizeModalities(set, nil)

	for _, modality := range []string{"DNase", "RNA"} {
		var zs []float64
		for _, key := range zset.Keys() {
			if z, ok := zset.Get(key.Variant, key.Gene, modality); ok {
				zs = append(zs, z)
			}
		}
		require.NotEmpty(t, zs)

		mean, sd := stat.MeanStdDev(zs, nil)
		assert.InDelta(t, 0, mean, 1e-9, "modality %s", modality)
		assert.InDelta(t, 1, sd, 1e-9, "modality %s", modality)
	}

	require.Len(t, report, 2)
	for _, r := range report {
		assert.False(t, r.Degenerate)
	}

	// Present counts must match: missing stayed missing.
	var rnaCount int
	for _, key := range zset.Keys() {
		if _, ok := zset.Get(key.Variant, key.Gene, "RNA"); ok {
			rnaCount++
		}
	}
	assert.Less(t, rnaCount, 200)
}

func TestNormalizeModalities_DegenerateModalityExcluded(t *testing.T) {
	set := predict.NewScoreSet()
	set.Set("rs1", "GENE_A", "DNase", 1.0)
	set.Set("rs2", "GENE_A", "DNase", 2.0)
	// CAGE has zero variance.
	set.Set("rs1", "GENE_A", "CAGE", 5.0)
	set.Set("rs2", "GENE_A", "CAGE", 5.0)
	// H3K27ac has a single value.
	set.Set("rs1", "GENE_A", "H3K27ac", 3.0)

	zset, report := NormalizeModalities(set, nil)

	byName := make(map[string]ModalityStats)
	for _, r := range report {
		byName[r.Modality] = r
	}

	assert.False(t, byName["DNase"].Degenerate)
	assert.True(t, byName["CAGE"].Degenerate)
	assert.True(t, byName["H3K27ac"].Degenerate)

	// Degenerate modalities do not appear in the z matrix at all.
	_, ok := zset.Get("rs1", "GENE_A", "CAGE")
	assert.False(t, ok)
	_, ok = zset.Get("rs1", "GENE_A", "H3K27ac")
	assert.False(t, ok)
	_, ok = zset.Get("rs1", "GENE_A", "DNase")
	assert.True(t, ok)
}

func TestNormalizeModalities_InputUntouched(t *testing.T) {
	set := predict.NewScoreSet()
	set.Set("rs1", "GENE_A", "DNase", 10)
	set.Set("rs2", "GENE_A", "DNase", 20)

	NormalizeModalities(set, nil)

	v, ok := set.Get("rs1", "GENE_A", "DNase")
	require.True(t, ok)
	assert.Equal(t, 10.0, v)
}
