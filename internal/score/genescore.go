// Package score implements the gene-level scoring arithmetic: modality
// z-score standardization, posterior-weighted aggregation to genes, and
// calibration against the empirical null.
package score

import "github.com/regulomics/v2gscore/internal/v2g"

// Gene score row statuses.
const (
	StatusOK = "ok"
	// StatusNoData marks a gene that has edges but no prediction value in
	// any modality. Such genes are not part of the scored set.
	StatusNoData = "no_data"
)

// GeneScore is one row of the gene-level score table. Rows are derived
// once per pipeline run and immutable afterward.
type GeneScore struct {
	GeneID string

	// Modality holds the posterior-weighted z-score per modality.
	// Modalities without any present value for this gene are absent,
	// never zero-filled.
	Modality map[string]float64

	// Composite is the arithmetic mean of the present modality scores.
	Composite float64

	// Sources is the union of edge source flags over this gene's variants.
	Sources v2g.Source

	// NVariants counts distinct variants connected to this gene after
	// (variant, gene) deduplication.
	NVariants int

	EmpiricalZ float64
	EmpiricalP float64
	QValue     float64

	Status string
}

// HasModality reports whether the gene has a score in the given modality.
func (g *GeneScore) HasModality(name string) bool {
	_, ok := g.Modality[name]
	return ok
}
