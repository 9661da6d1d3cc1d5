package enrich

import (
	"fmt"
	"math"
	"os"

	fet "github.com/glycerine/golang-fisher-exact"
	"github.com/gocarina/gocsv"
	"go.uber.org/zap"
)

// EQTLRecord is one variant-gene association from an external eQTL
// study, matched to predictions on (variant, gene). Slope carries the
// eQTL effect direction.
type EQTLRecord struct {
	VariantKey string  `csv:"SNP"`
	GeneID     string  `csv:"GENE"`
	Slope      float64 `csv:"SLOPE"`
}

// PairEffect is a predicted signed regulatory effect for one
// variant-gene pair.
type PairEffect struct {
	VariantKey string
	GeneID     string
	Effect     float64
}

// EQTLResult is the concordance summary between predicted effect
// directions and eQTL slopes.
type EQTLResult struct {
	NPairs          int     `csv:"n_pairs"`
	Concordant      int     `csv:"concordant"`
	Discordant      int     `csv:"discordant"`
	ConcordanceRate float64 `csv:"concordance_rate"`
	OddsRatio       float64 `csv:"odds_ratio"`
	PValue          float64 `csv:"p_value"`
	Status          string  `csv:"status"`
}

// ReadEQTLTable parses an SNP/GENE/SLOPE table.
func ReadEQTLTable(path string) ([]EQTLRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open eqtl table: %w", err)
	}
	defer f.Close()

	var records []EQTLRecord
	if err := gocsv.UnmarshalFile(f, &records); err != nil {
		return nil, fmt.Errorf("parse eqtl table %s: %w", path, err)
	}
	return records, nil
}

// EQTLConcordance crosses predicted effect direction against eQTL
// slope direction for the variant-gene pairs present in both sets and
// tests the association with a two-sided Fisher exact test on the
// 2x2 direction table. Pairs with a zero effect or slope carry no
// direction and are skipped. No matched pairs means the reference is
// unavailable, not that concordance is zero.
func EQTLConcordance(effects []PairEffect, records []EQTLRecord, logger *zap.Logger) EQTLResult {
	if logger == nil {
		logger = zap.NewNop()
	}

	type pair struct{ variant, gene string }
	slopes := make(map[pair]float64, len(records))
	for _, r := range records {
		slopes[pair{r.VariantKey, r.GeneID}] = r.Slope
	}

	// direction table: [our up/down][eqtl up/down]
	var table [2][2]int
	for _, e := range effects {
		slope, ok := slopes[pair{e.VariantKey, e.GeneID}]
		if !ok || e.Effect == 0 || slope == 0 {
			continue
		}
		i, j := 0, 0
		if e.Effect < 0 {
			i = 1
		}
		if slope < 0 {
			j = 1
		}
		table[i][j]++
	}

	concordant := table[0][0] + table[1][1]
	discordant := table[0][1] + table[1][0]
	res := EQTLResult{
		NPairs:     concordant + discordant,
		Concordant: concordant,
		Discordant: discordant,
	}
	if res.NPairs == 0 {
		res.Status = StatusUnavailable
		res.ConcordanceRate = math.NaN()
		res.OddsRatio = math.NaN()
		res.PValue = math.NaN()
		logger.Warn("no variant-gene pairs matched the eQTL reference")
		return res
	}

	res.ConcordanceRate = float64(concordant) / float64(res.NPairs)
	a, b, c, d := table[0][0], table[0][1], table[1][0], table[1][1]
	_, _, _, twop := fet.FisherExactTest(a, b, c, d)
	res.PValue = twop
	if b > 0 && c > 0 {
		res.OddsRatio = (float64(a) * float64(d)) / (float64(b) * float64(c))
	} else {
		res.OddsRatio = math.Inf(1)
	}
	res.Status = StatusOK
	return res
}
