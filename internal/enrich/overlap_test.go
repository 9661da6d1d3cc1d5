package enrich

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulomics/v2gscore/internal/score"
)

func TestTopGenes(t *testing.T) {
	scored := []*score.GeneScore{
		{GeneID: "LOW", Composite: 0.1},
		{GeneID: "HIGH", Composite: 3.0},
		{GeneID: "MID", Composite: 1.0},
	}

	assert.Equal(t, []string{"HIGH", "MID"}, TopGenes(scored, 2))
	assert.Equal(t, []string{"HIGH", "MID", "LOW"}, TopGenes(scored, 10))
}

func TestReferenceOverlap_Disjoint(t *testing.T) {
	top := []string{"A", "B", "C"}
	ref := []string{"X", "Y", "Z"}

	res := ReferenceOverlap("rare_variant_hits", top, ref, 20000, nil)
	require.Equal(t, StatusOK, res.Status)
	assert.Equal(t, 0, res.Overlap)
	// Zero overlap can never beat chance: upper tail includes every table.
	assert.InDelta(t, 1.0, res.PValue, 1e-6)
}

func TestReferenceOverlap_StrongOverlap(t *testing.T) {
	var top, ref []string
	for i := 0; i < 50; i++ {
		top = append(top, fmt.Sprintf("G%03d", i))
	}
	for i := 0; i < 30; i++ {
		ref = append(ref, fmt.Sprintf("G%03d", i))
	}

	res := ReferenceOverlap("schema", top, ref, 20000, nil)
	require.Equal(t, StatusOK, res.Status)
	assert.Equal(t, 30, res.Overlap)
	assert.Less(t, res.PValue, 1e-10)
	assert.Greater(t, res.Overlap, 0)
	assert.Less(t, res.Expected, 1.0)
	assert.Len(t, res.Genes, 30)
}

func TestReferenceOverlap_EmptyReferenceUnavailable(t *testing.T) {
	res := ReferenceOverlap("schema", []string{"A"}, nil, 20000, nil)
	assert.Equal(t, StatusUnavailable, res.Status)
	assert.True(t, math.IsNaN(res.PValue))
}

func TestPrioritizedOverlap(t *testing.T) {
	ours := []string{"A", "B", "C", "D"}
	theirs := []string{"C", "D", "E"}

	res := PrioritizedOverlap("pgc3", ours, theirs, 100, nil)
	require.Equal(t, StatusOK, res.Status)
	assert.Equal(t, 2, res.Overlap)
	assert.Greater(t, res.PValue, 0.0)
	assert.LessOrEqual(t, res.PValue, 1.0)
}
