package finemap

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTable = `SNP,CHR,BP,LOCUS,PIP
rs1,1,1000,locus1,0.6
rs2,1,2000,locus1,0.6
rs3,chr2,5000,locus2,0.9
`

func writeTestFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestReadTable(t *testing.T) {
	path := writeTestFile(t, "finemap.csv", []byte(testTable))

	variants, err := ReadTable(path)
	require.NoError(t, err)
	require.Len(t, variants, 3)

	assert.Equal(t, "rs1", variants[0].ID)
	assert.Equal(t, int64(1000), variants[0].Pos)
	assert.Equal(t, "locus1", variants[0].LocusID)
	assert.InDelta(t, 0.6, variants[0].PP, 1e-12)
	assert.Equal(t, StatusOK, variants[0].Status)

	assert.Equal(t, "2", variants[2].NormalizeChrom())
}

func TestReadTable_Gzipped(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(testTable))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	path := writeTestFile(t, "finemap.csv.gz", buf.Bytes())

	variants, err := ReadTable(path)
	require.NoError(t, err)
	assert.Len(t, variants, 3)
}

func TestReadTable_MissingLocus(t *testing.T) {
	path := writeTestFile(t, "bad.csv", []byte("SNP,CHR,BP,LOCUS,PIP\nrs1,1,1000,,0.5\n"))

	_, err := ReadTable(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no locus id")
}

func TestReadTable_MissingFile(t *testing.T) {
	_, err := ReadTable(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
}

func TestReadSummaryStats(t *testing.T) {
	data := "SNP\tCHR\tBP\tA1\tA2\tP\nrs1\t1\t1000\tA\tG\t1e-10\nrs2\t2\t2000\tC\tT\t0.5\n"
	path := writeTestFile(t, "sumstats.tsv", []byte(data))

	stats, err := ReadSummaryStats(path)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "rs1", stats[0].ID)
	assert.InDelta(t, 1e-10, stats[0].P, 1e-22)
}
