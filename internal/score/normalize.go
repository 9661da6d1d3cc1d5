package score

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/regulomics/v2gscore/internal/predict"
)

// ModalityStats reports the standardization parameters of one modality.
type ModalityStats struct {
	Modality   string
	Mean       float64
	SD         float64
	N          int
	Degenerate bool
}

// NormalizeModalities z-score-standardizes each modality across all
// present values of the score matrix: z = (raw − μ_m) / σ_m. Missing
// cells stay missing. A modality with zero variance (or fewer than two
// values) cannot be standardized; it is reported as degenerate and
// excluded from the output rather than propagating NaN.
//
// The input set is not modified; a new set holding z-scores is returned.
func NormalizeModalities(set *predict.ScoreSet, logger *zap.Logger) (*predict.ScoreSet, []ModalityStats) {
	if logger == nil {
		logger = zap.NewNop()
	}

	keys := set.Keys()
	zset := predict.NewScoreSet()
	var report []ModalityStats

	for _, modality := range set.Modalities() {
		var values []float64
		for _, key := range keys {
			if raw, ok := set.Get(key.Variant, key.Gene, modality); ok {
				values = append(values, raw)
			}
		}

		mean, sd := stat.MeanStdDev(values, nil)
		stats := ModalityStats{Modality: modality, Mean: mean, SD: sd, N: len(values)}

		if len(values) < 2 || sd == 0 || math.IsNaN(sd) {
			stats.Degenerate = true
			report = append(report, stats)
			logger.Warn("degenerate modality, excluding from standardization",
				zap.String("modality", modality),
				zap.Int("values", len(values)),
				zap.Float64("sd", sd))
			continue
		}
		report = append(report, stats)

		for _, key := range keys {
			if raw, ok := set.Get(key.Variant, key.Gene, modality); ok {
				zset.Set(key.Variant, key.Gene, modality, (raw-mean)/sd)
			}
		}
	}

	return zset, report
}
