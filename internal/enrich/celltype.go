package enrich

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	fet "github.com/glycerine/golang-fisher-exact"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/regulomics/v2gscore/internal/finemap"
)

// DefaultGenomeSize is the approximate mappable human genome size used
// as the denominator of the peak footprint fraction.
const DefaultGenomeSize = 2.8e9

// Peak is one open-chromatin interval, half-open coordinates not
// assumed: a variant at pos overlaps when Start <= pos <= End.
type Peak struct {
	Chrom string
	Start int64
	End   int64
}

// PeakSet is one cell type's peak collection. An empty set marks the
// reference data as unavailable for that cell type.
type PeakSet struct {
	CellType string
	Peaks    []Peak
}

// CellTypeResult is one row of the cell-type enrichment table.
type CellTypeResult struct {
	CellType        string  `csv:"cell_type"`
	NPeaks          int     `csv:"n_peaks"`
	FootprintBP     int64   `csv:"footprint_bp"`
	VariantsInPeaks int     `csv:"variants_in_peaks"`
	NVariants       int     `csv:"n_variants"`
	ExpectedHits    float64 `csv:"expected_hits"`
	Enrichment      float64 `csv:"enrichment"`
	BinomialP       float64 `csv:"binomial_p"`
	OddsVsControl   float64 `csv:"or_vs_control"`
	PVsControl      float64 `csv:"p_vs_control"`
	Status          string  `csv:"status"`
}

// ReadPeaks parses a BED-like peak file, plain three-column BED or the
// tab-separated CHR/START/END layout with a header line. Gzip input is
// detected by extension.
func ReadPeaks(path string) ([]Peak, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open peaks: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open peaks %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	var peaks []Peak
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("peaks %s line %d: expected at least 3 columns, got %d", path, lineno, len(fields))
		}
		start, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			if lineno == 1 {
				continue // header line
			}
			return nil, fmt.Errorf("peaks %s line %d: bad start %q", path, lineno, fields[1])
		}
		end, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("peaks %s line %d: bad end %q", path, lineno, fields[2])
		}
		peaks = append(peaks, Peak{Chrom: finemap.NormalizeChrom(fields[0]), Start: start, End: end})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read peaks %s: %w", path, err)
	}
	return peaks, nil
}

// peakIndex holds per-chromosome merged intervals sorted by start.
type peakIndex struct {
	byChr     map[string][]Peak
	footprint int64
}

func indexPeaks(peaks []Peak) *peakIndex {
	byChr := make(map[string][]Peak)
	for _, p := range peaks {
		byChr[p.Chrom] = append(byChr[p.Chrom], p)
	}

	idx := &peakIndex{byChr: make(map[string][]Peak, len(byChr))}
	for chrom, list := range byChr {
		sort.Slice(list, func(i, j int) bool { return list[i].Start < list[j].Start })
		merged := list[:0]
		for _, p := range list {
			if n := len(merged); n > 0 && p.Start <= merged[n-1].End {
				if p.End > merged[n-1].End {
					merged[n-1].End = p.End
				}
				continue
			}
			merged = append(merged, p)
		}
		idx.byChr[chrom] = merged
		for _, p := range merged {
			idx.footprint += p.End - p.Start + 1
		}
	}
	return idx
}

func (idx *peakIndex) contains(chrom string, pos int64) bool {
	list := idx.byChr[chrom]
	i := sort.Search(len(list), func(i int) bool { return list[i].End >= pos })
	return i < len(list) && list[i].Start <= pos
}

// CellTypeEnrichment counts, per cell type, how many variants fall
// inside open-chromatin peaks and tests the count two ways: a
// footprint-adjusted binomial test against the hit rate expected from
// the cell type's total peak coverage, and Fisher's exact against the
// designated control cell type. The binomial expectation scales with
// each cell type's footprint, so broad-chromatin cell types are not
// rewarded for covering more of the genome.
func CellTypeEnrichment(variants []*finemap.Variant, sets []PeakSet, control string, genomeSize float64, logger *zap.Logger) []CellTypeResult {
	if logger == nil {
		logger = zap.NewNop()
	}
	if genomeSize <= 0 {
		genomeSize = DefaultGenomeSize
	}

	n := len(variants)
	results := make([]CellTypeResult, 0, len(sets))
	hitCounts := make(map[string]int, len(sets))

	for _, set := range sets {
		res := CellTypeResult{CellType: set.CellType, NVariants: n}
		if len(set.Peaks) == 0 || n == 0 {
			res.Status = StatusUnavailable
			res.ExpectedHits = math.NaN()
			res.Enrichment = math.NaN()
			res.BinomialP = math.NaN()
			res.OddsVsControl = math.NaN()
			res.PVsControl = math.NaN()
			logger.Warn("cell type has no peak data",
				zap.String("cell_type", set.CellType))
			results = append(results, res)
			continue
		}

		idx := indexPeaks(set.Peaks)
		hits := 0
		for _, v := range variants {
			if idx.contains(v.NormalizeChrom(), v.Pos) {
				hits++
			}
		}
		hitCounts[set.CellType] = hits

		frac := float64(idx.footprint) / genomeSize
		expected := float64(n) * frac

		res.NPeaks = len(set.Peaks)
		res.FootprintBP = idx.footprint
		res.VariantsInPeaks = hits
		res.ExpectedHits = expected
		if expected > 0 {
			res.Enrichment = float64(hits) / expected
		} else {
			res.Enrichment = math.NaN()
		}
		res.BinomialP = binomialUpperTail(hits, n, frac)
		res.OddsVsControl = math.NaN()
		res.PVsControl = math.NaN()
		res.Status = StatusOK
		results = append(results, res)
	}

	controlHits, haveControl := hitCounts[control]
	if !haveControl {
		logger.Warn("control cell type missing, skipping Fisher comparison",
			zap.String("control", control))
		return results
	}

	for i := range results {
		r := &results[i]
		if r.Status != StatusOK || r.CellType == control {
			continue
		}
		a, b := r.VariantsInPeaks, n-r.VariantsInPeaks
		c, d := controlHits, n-controlHits
		_, _, _, twop := fet.FisherExactTest(a, b, c, d)
		r.PVsControl = twop
		if b > 0 && c > 0 {
			r.OddsVsControl = (float64(a) * float64(d)) / (float64(b) * float64(c))
		} else {
			r.OddsVsControl = math.Inf(1)
		}
	}
	return results
}

// binomialUpperTail is P(X >= k) for X ~ Binomial(n, p).
func binomialUpperTail(k, n int, p float64) float64 {
	if k <= 0 {
		return 1
	}
	bin := distuv.Binomial{N: float64(n), P: p}
	return bin.Survival(float64(k) - 1)
}
