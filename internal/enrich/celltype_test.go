package enrich

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulomics/v2gscore/internal/finemap"
)

func variantsAt(positions ...int64) []*finemap.Variant {
	vs := make([]*finemap.Variant, len(positions))
	for i, pos := range positions {
		vs[i] = &finemap.Variant{ID: fmt.Sprintf("rs%d", i), Chrom: "1", Pos: pos}
	}
	return vs
}

func TestIndexPeaks_MergesOverlaps(t *testing.T) {
	idx := indexPeaks([]Peak{
		{Chrom: "1", Start: 100, End: 200},
		{Chrom: "1", Start: 150, End: 300},
		{Chrom: "1", Start: 500, End: 600},
		{Chrom: "2", Start: 100, End: 200},
	})

	// chr1: [100,300] + [500,600], chr2: [100,200]
	assert.Equal(t, int64(201+101+101), idx.footprint)
	assert.True(t, idx.contains("1", 250))
	assert.True(t, idx.contains("1", 500))
	assert.False(t, idx.contains("1", 400))
	assert.False(t, idx.contains("3", 150))
}

func TestCellTypeEnrichment(t *testing.T) {
	variants := variantsAt(100, 200, 300, 400, 1_000_000, 2_000_000, 3_000_000, 4_000_000, 5_000_000, 6_000_000)

	sets := []PeakSet{
		// Tight peaks catching 4 of 10 variants.
		{CellType: "Glutamatergic", Peaks: []Peak{{Chrom: "1", Start: 50, End: 450}}},
		// Control with a huge footprint catching 1.
		{CellType: "iPSC", Peaks: []Peak{{Chrom: "1", Start: 900_000, End: 1_100_000}}},
	}

	results := CellTypeEnrichment(variants, sets, "iPSC", DefaultGenomeSize, nil)
	require.Len(t, results, 2)

	glut := results[0]
	assert.Equal(t, StatusOK, glut.Status)
	assert.Equal(t, 4, glut.VariantsInPeaks)
	assert.Equal(t, int64(401), glut.FootprintBP)
	// A 401 bp footprint catching 4 of 10 variants is wildly past chance.
	assert.Less(t, glut.BinomialP, 1e-10)
	assert.Greater(t, glut.Enrichment, 1000.0)
	// Fisher vs control is populated for the non-control row.
	assert.False(t, math.IsNaN(glut.PVsControl))
	assert.Greater(t, glut.OddsVsControl, 1.0)

	ipsc := results[1]
	assert.Equal(t, StatusOK, ipsc.Status)
	assert.Equal(t, 1, ipsc.VariantsInPeaks)
	assert.True(t, math.IsNaN(ipsc.PVsControl), "control row is not tested against itself")
}

func TestCellTypeEnrichment_MissingPeaksUnavailable(t *testing.T) {
	variants := variantsAt(100, 200)
	sets := []PeakSet{
		{CellType: "GABAergic"},
		{CellType: "iPSC", Peaks: []Peak{{Chrom: "1", Start: 1, End: 1000}}},
	}

	results := CellTypeEnrichment(variants, sets, "iPSC", 0, nil)
	require.Len(t, results, 2)
	assert.Equal(t, StatusUnavailable, results[0].Status)
	assert.True(t, math.IsNaN(results[0].BinomialP))
	assert.Equal(t, StatusOK, results[1].Status)
}

func TestBinomialUpperTail(t *testing.T) {
	assert.Equal(t, 1.0, binomialUpperTail(0, 10, 0.5))
	// P(X >= 10 | n=10, p=0.5) = 1/1024.
	assert.InDelta(t, 1.0/1024.0, binomialUpperTail(10, 10, 0.5), 1e-9)
	// Upper tail shrinks as the observed count grows.
	assert.Greater(t, binomialUpperTail(3, 10, 0.1), binomialUpperTail(5, 10, 0.1))
}

func TestReadPeaks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peaks.txt")
	content := "CHR\tSTART\tEND\nchr1\t100\t200\n2\t300\t400\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	peaks, err := ReadPeaks(path)
	require.NoError(t, err)
	require.Len(t, peaks, 2)
	assert.Equal(t, Peak{Chrom: "1", Start: 100, End: 200}, peaks[0])
	assert.Equal(t, Peak{Chrom: "2", Start: 300, End: 400}, peaks[1])
}

func TestReadPeaks_BadRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peaks.bed")
	require.NoError(t, os.WriteFile(path, []byte("chr1\t100\n"), 0o644))

	_, err := ReadPeaks(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected at least 3 columns")
}
