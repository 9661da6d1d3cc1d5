package finemap

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// PPSumTolerance is the allowed deviation of a normalized locus PP sum from 1.
const PPSumTolerance = 1e-9

// NormalizeLoci groups variants by locus and divides each variant's
// posterior probability by the locus-wise sum, so that probabilities
// within each locus sum to 1. Overlapping credible sets routinely
// produce raw sums above 1; scaling preserves relative rank.
//
// A locus whose raw PP sum is zero cannot be normalized. Its variants
// are flagged with StatusZeroSumLocus and the locus is marked Excluded
// rather than silently divided.
func NormalizeLoci(variants []*Variant, logger *zap.Logger) []*Locus {
	if logger == nil {
		logger = zap.NewNop()
	}

	byLocus := make(map[string][]*Variant)
	for _, v := range variants {
		byLocus[v.LocusID] = append(byLocus[v.LocusID], v)
	}

	ids := make([]string, 0, len(byLocus))
	for id := range byLocus {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	loci := make([]*Locus, 0, len(ids))
	for _, id := range ids {
		members := byLocus[id]
		sort.Slice(members, func(i, j int) bool {
			if members[i].Chrom != members[j].Chrom {
				return members[i].Chrom < members[j].Chrom
			}
			return members[i].Pos < members[j].Pos
		})

		var sum float64
		for _, v := range members {
			sum += v.PP
		}

		locus := &Locus{ID: id, Variants: members, RawSum: sum}

		if sum <= 0 {
			locus.Excluded = true
			for _, v := range members {
				v.PPNorm = 0
				v.Status = StatusZeroSumLocus
			}
			logger.Warn("locus has zero posterior probability mass, excluding",
				zap.String("locus", id),
				zap.Int("variants", len(members)))
		} else {
			for _, v := range members {
				v.PPNorm = v.PP / sum
				v.Status = StatusOK
			}
		}

		loci = append(loci, locus)
	}

	return loci
}

// ExtractLeads filters genome-wide significant variants from summary
// statistics and prunes them into distance-based independent loci: per
// chromosome, variants are visited in ascending p-value order and a
// variant is kept only if no already-kept variant lies within windowBP.
// Each lead becomes a single-variant locus with PP 1.
//
// This is an approximation of LD pruning, matching the upstream
// preparation step; precise pruning requires a reference panel.
func ExtractLeads(stats []SummaryStat, pThreshold float64, windowBP int64) []*Variant {
	significant := make([]SummaryStat, 0, len(stats))
	for _, s := range stats {
		if s.P < pThreshold {
			significant = append(significant, s)
		}
	}

	byChrom := make(map[string][]SummaryStat)
	for _, s := range significant {
		byChrom[s.Chrom] = append(byChrom[s.Chrom], s)
	}

	chroms := make([]string, 0, len(byChrom))
	for c := range byChrom {
		chroms = append(chroms, c)
	}
	sort.Strings(chroms)

	var leads []*Variant
	for _, chrom := range chroms {
		members := byChrom[chrom]
		sort.Slice(members, func(i, j int) bool {
			if members[i].P != members[j].P {
				return members[i].P < members[j].P
			}
			return members[i].Pos < members[j].Pos
		})

		var kept []int64
		for _, s := range members {
			independent := true
			for _, pos := range kept {
				if abs64(s.Pos-pos) < windowBP {
					independent = false
					break
				}
			}
			if !independent {
				continue
			}
			kept = append(kept, s.Pos)
			leads = append(leads, &Variant{
				ID:      s.ID,
				Chrom:   s.Chrom,
				Pos:     s.Pos,
				LocusID: fmt.Sprintf("%s:%d", s.Chrom, s.Pos),
				PP:      1,
				PPNorm:  1,
				Status:  StatusOK,
			})
		}
	}

	sort.Slice(leads, func(i, j int) bool {
		if leads[i].Chrom != leads[j].Chrom {
			return leads[i].Chrom < leads[j].Chrom
		}
		return leads[i].Pos < leads[j].Pos
	})

	return leads
}

func abs64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
