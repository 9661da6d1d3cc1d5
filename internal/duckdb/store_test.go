package duckdb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulomics/v2gscore/internal/predict"
)

func TestStore_WriteAndLoadScores(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	set := predict.NewScoreSet()
	set.Set("rs1", "GENE_A", "DNase", 0.5)
	set.Set("rs1", "GENE_A", "RNA", -1.5)
	set.Set("rs2", "GENE_B", "CAGE", 2.0)

	require.NoError(t, s.WriteScores(set))

	loaded, err := s.LoadScores()
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())

	v, ok := loaded.Get("rs1", "GENE_A", "RNA")
	require.True(t, ok)
	assert.InDelta(t, -1.5, v, 1e-12)

	scored, err := s.ScoredVariants()
	require.NoError(t, err)
	assert.True(t, scored["rs1"])
	assert.True(t, scored["rs2"])
	assert.False(t, scored["rs3"])
}

func TestStore_WriteScoresIsAppendOnly(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	first := predict.NewScoreSet()
	first.Set("rs1", "GENE_A", "DNase", 0.5)
	require.NoError(t, s.WriteScores(first))

	// A second write with a different value for a cached cell must not
	// overwrite it, only add new cells.
	second := predict.NewScoreSet()
	second.Set("rs1", "GENE_A", "DNase", 99.0)
	second.Set("rs1", "GENE_A", "CAGE", 1.0)
	require.NoError(t, s.WriteScores(second))

	loaded, err := s.LoadScores()
	require.NoError(t, err)

	v, ok := loaded.Get("rs1", "GENE_A", "DNase")
	require.True(t, ok)
	assert.InDelta(t, 0.5, v, 1e-12)

	_, ok = loaded.Get("rs1", "GENE_A", "CAGE")
	assert.True(t, ok)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "scores.duckdb")

	s, err := Open(path)
	require.NoError(t, err)

	set := predict.NewScoreSet()
	set.Set("rs1", "GENE_A", "H3K27ac", 0.25)
	require.NoError(t, s.WriteScores(set))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.LoadScores()
	require.NoError(t, err)
	_, ok := loaded.Get("rs1", "GENE_A", "H3K27ac")
	assert.True(t, ok)
}
