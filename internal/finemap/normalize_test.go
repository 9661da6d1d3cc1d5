package finemap

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLoci_SumsToOne(t *testing.T) {
	tests := []struct {
		name string
		pps  []float64
		want []float64
	}{
		{
			name: "overlapping credible sets sum above one",
			pps:  []float64{0.6, 0.6},
			want: []float64{0.5, 0.5},
		},
		{
			name: "incomplete credible set sums below one",
			pps:  []float64{0.3, 0.3},
			want: []float64{0.5, 0.5},
		},
		{
			name: "already normalized is a no-op",
			pps:  []float64{0.5, 0.5},
			want: []float64{0.5, 0.5},
		},
		{
			name: "rank preserved under downscaling",
			pps:  []float64{0.9, 0.3},
			want: []float64{0.75, 0.25},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var variants []*Variant
			for i, pp := range tt.pps {
				variants = append(variants, &Variant{
					ID:      fmt.Sprintf("rs%d", i),
					Chrom:   "1",
					Pos:     int64(1000 + i),
					LocusID: "locus1",
					PP:      pp,
				})
			}

			loci := NormalizeLoci(variants, nil)
			require.Len(t, loci, 1)
			require.False(t, loci[0].Excluded)

			var sum float64
			for i, v := range loci[0].Variants {
				assert.InDelta(t, tt.want[i], v.PPNorm, 1e-12)
				sum += v.PPNorm
			}
			assert.InDelta(t, 1.0, sum, PPSumTolerance)
		})
	}
}

func TestNormalizeLoci_ThreeLocusScenario(t *testing.T) {
	// Loci with raw sums 1.2, 0.6 and 1.0; every pair normalizes to {0.5, 0.5}.
	var variants []*Variant
	for i, pp := range []float64{0.6, 0.3, 0.5} {
		locus := fmt.Sprintf("locus%d", i+1)
		for j := 0; j < 2; j++ {
			variants = append(variants, &Variant{
				ID:      fmt.Sprintf("rs%d_%d", i, j),
				Chrom:   "2",
				Pos:     int64(10000*i + j),
				LocusID: locus,
				PP:      pp,
			})
		}
	}

	loci := NormalizeLoci(variants, nil)
	require.Len(t, loci, 3)

	for _, locus := range loci {
		require.Len(t, locus.Variants, 2)
		for _, v := range locus.Variants {
			assert.InDelta(t, 0.5, v.PPNorm, 1e-12, "locus %s", locus.ID)
		}
	}
}

func TestNormalizeLoci_RandomPPProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 100; trial++ {
		nLoci := 1 + rng.Intn(10)
		var variants []*Variant

		for l := 0; l < nLoci; l++ {
			nVars := 1 + rng.Intn(20)
			// Scale pushes raw sums both below and above 1.
			scale := 0.1 + rng.Float64()*2.0
			for v := 0; v < nVars; v++ {
				variants = append(variants, &Variant{
					ID:      fmt.Sprintf("t%d_l%d_v%d", trial, l, v),
					Chrom:   "1",
					Pos:     int64(l*1000000 + v),
					LocusID: fmt.Sprintf("t%d_l%d", trial, l),
					PP:      rng.Float64() * scale,
				})
			}
		}

		loci := NormalizeLoci(variants, nil)
		require.Len(t, loci, nLoci)

		for _, locus := range loci {
			if locus.Excluded {
				continue
			}
			var sum float64
			for _, v := range locus.Variants {
				sum += v.PPNorm
			}
			assert.InDelta(t, 1.0, sum, PPSumTolerance,
				"locus %s raw sum %f", locus.ID, locus.RawSum)
		}
	}
}

func TestNormalizeLoci_ZeroSumLocusExcluded(t *testing.T) {
	variants := []*Variant{
		{ID: "rs1", Chrom: "1", Pos: 100, LocusID: "bad", PP: 0},
		{ID: "rs2", Chrom: "1", Pos: 200, LocusID: "bad", PP: 0},
		{ID: "rs3", Chrom: "1", Pos: 300, LocusID: "good", PP: 0.8},
	}

	loci := NormalizeLoci(variants, nil)
	require.Len(t, loci, 2)

	for _, locus := range loci {
		switch locus.ID {
		case "bad":
			assert.True(t, locus.Excluded)
			for _, v := range locus.Variants {
				assert.Equal(t, StatusZeroSumLocus, v.Status)
				assert.Zero(t, v.PPNorm)
			}
		case "good":
			assert.False(t, locus.Excluded)
			assert.Equal(t, StatusOK, locus.Variants[0].Status)
			assert.InDelta(t, 1.0, locus.Variants[0].PPNorm, 1e-12)
		}
	}
}

func TestExtractLeads(t *testing.T) {
	stats := []SummaryStat{
		{ID: "rs1", Chrom: "1", Pos: 1000000, P: 1e-10},
		{ID: "rs2", Chrom: "1", Pos: 1100000, P: 1e-9}, // within 500kb of rs1
		{ID: "rs3", Chrom: "1", Pos: 2000000, P: 1e-12},
		{ID: "rs4", Chrom: "2", Pos: 1000000, P: 1e-8},
		{ID: "rs5", Chrom: "2", Pos: 1000001, P: 0.5}, // not significant
	}

	leads := ExtractLeads(stats, 5e-8, 500000)
	require.Len(t, leads, 3)

	ids := make([]string, len(leads))
	for i, v := range leads {
		ids[i] = v.ID
		assert.Equal(t, 1.0, v.PP)
		assert.Equal(t, 1.0, v.PPNorm)
		assert.NotEmpty(t, v.LocusID)
	}
	assert.ElementsMatch(t, []string{"rs1", "rs3", "rs4"}, ids)
}

func TestExtractLeads_KeepsLowestP(t *testing.T) {
	stats := []SummaryStat{
		{ID: "weak", Chrom: "3", Pos: 500000, P: 1e-9},
		{ID: "strong", Chrom: "3", Pos: 600000, P: 1e-20},
	}

	leads := ExtractLeads(stats, 5e-8, 500000)
	require.Len(t, leads, 1)
	assert.Equal(t, "strong", leads[0].ID)
}

func TestVariantKey(t *testing.T) {
	v := &Variant{ID: "rs42", Chrom: "chr7", Pos: 123}
	assert.Equal(t, "rs42", v.Key())

	v.ID = ""
	assert.Equal(t, "7:123", v.Key())
}
