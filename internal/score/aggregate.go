package score

import (
	"sort"

	"go.uber.org/zap"

	"github.com/regulomics/v2gscore/internal/predict"
	"github.com/regulomics/v2gscore/internal/v2g"
)

// Aggregate computes posterior-weighted gene scores over the deduplicated
// edge union. For gene g and modality m:
//
//	score(g,m) = Σ_v z(v,g,m)·PPnorm(v) / Σ_v PPnorm(v)
//
// where both sums run over the variants of g with a present value in m:
// missing values are excluded and the weight mass is renormalized over
// present variants, never imputed as zero.
//
// Composite is the arithmetic mean over the modalities with at least one
// value for the gene. Zero-padding the absent modalities would bias the
// composite of partially annotated genes downward, so it is never done.
//
// Genes with no present value in any modality are reported but excluded
// from the returned scored set.
func Aggregate(edges []*v2g.Edge, zset *predict.ScoreSet, logger *zap.Logger) []*GeneScore {
	if logger == nil {
		logger = zap.NewNop()
	}

	byGene := v2g.EdgesByGene(edges)

	geneIDs := make([]string, 0, len(byGene))
	for id := range byGene {
		geneIDs = append(geneIDs, id)
	}
	sort.Strings(geneIDs)

	modalities := zset.Modalities()

	var scored []*GeneScore
	noData := 0

	for _, geneID := range geneIDs {
		geneEdges := byGene[geneID]

		gs := &GeneScore{
			GeneID:    geneID,
			Modality:  make(map[string]float64),
			NVariants: len(geneEdges),
			Status:    StatusOK,
		}
		for _, e := range geneEdges {
			gs.Sources |= e.Source
		}

		for _, modality := range modalities {
			var num, denom float64
			for _, e := range geneEdges {
				z, ok := zset.Get(e.Variant.Key(), geneID, modality)
				if !ok {
					continue
				}
				w := e.Variant.PPNorm
				num += z * w
				denom += w
			}
			if denom > 0 {
				gs.Modality[modality] = num / denom
			}
		}

		if len(gs.Modality) == 0 {
			noData++
			continue
		}

		var sum float64
		for _, v := range gs.Modality {
			sum += v
		}
		gs.Composite = sum / float64(len(gs.Modality))

		scored = append(scored, gs)
	}

	logger.Info("gene aggregation complete",
		zap.Int("genes_scored", len(scored)),
		zap.Int("genes_without_data", noData))

	return scored
}
