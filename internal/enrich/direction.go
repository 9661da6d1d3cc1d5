package enrich

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// DirectionThreshold separates meaningful up or down regulatory
// effects from neutral ones on the signed composite scale.
const DirectionThreshold = 0.1

// DirectionResult summarizes whether predicted regulatory effects are
// biased toward loss (down) or gain (up) of expression.
type DirectionResult struct {
	NGenes     int     `csv:"n_genes"`
	NUp        int     `csv:"n_up"`
	NDown      int     `csv:"n_down"`
	NNeutral   int     `csv:"n_neutral"`
	MeanEffect float64 `csv:"mean_effect"`
	SignTestP  float64 `csv:"sign_test_p"`
	MeanTestP  float64 `csv:"mean_test_p"`
	Status     string  `csv:"status"`
}

// Directionality runs a two-sided binomial sign test on the up/down
// counts past the ±DirectionThreshold and a one-sample z test of the
// mean signed effect against zero. Neutral genes count toward the mean
// test but not the sign test.
func Directionality(signed []float64, logger *zap.Logger) DirectionResult {
	if logger == nil {
		logger = zap.NewNop()
	}

	res := DirectionResult{NGenes: len(signed)}
	for _, s := range signed {
		switch {
		case s > DirectionThreshold:
			res.NUp++
		case s < -DirectionThreshold:
			res.NDown++
		default:
			res.NNeutral++
		}
	}

	if len(signed) < 2 {
		res.Status = StatusUnavailable
		res.MeanEffect = math.NaN()
		res.SignTestP = math.NaN()
		res.MeanTestP = math.NaN()
		logger.Warn("too few signed scores for directionality analysis",
			zap.Int("n", len(signed)))
		return res
	}

	mean, sd := stat.MeanStdDev(signed, nil)
	res.MeanEffect = mean

	directional := res.NUp + res.NDown
	if directional > 0 {
		res.SignTestP = binomialTwoSided(res.NDown, directional, 0.5)
	} else {
		res.SignTestP = math.NaN()
	}

	if sd > 0 {
		z := mean / (sd / math.Sqrt(float64(len(signed))))
		res.MeanTestP = 2 * distuv.UnitNormal.Survival(math.Abs(z))
	} else {
		res.MeanTestP = math.NaN()
	}

	res.Status = StatusOK
	return res
}

// binomialTwoSided is the exact two-sided binomial test p-value:
// the total probability of outcomes no more likely than the observed
// count under Binomial(n, p).
func binomialTwoSided(k, n int, p float64) float64 {
	bin := distuv.Binomial{N: float64(n), P: p}
	observed := bin.Prob(float64(k))

	var total float64
	const relTol = 1 + 1e-7
	for i := 0; i <= n; i++ {
		if pr := bin.Prob(float64(i)); pr <= observed*relTol {
			total += pr
		}
	}
	if total > 1 {
		total = 1
	}
	return total
}
