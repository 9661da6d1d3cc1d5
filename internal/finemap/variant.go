// Package finemap provides fine-mapping table parsing and per-locus
// posterior probability normalization.
package finemap

import "fmt"

// Row status values recorded in the status column of downstream tables.
const (
	StatusOK           = "ok"
	StatusZeroSumLocus = "zero_sum_locus"
)

// Variant represents a single fine-mapped variant.
type Variant struct {
	ID      string  `csv:"SNP"`
	Chrom   string  `csv:"CHR"`
	Pos     int64   `csv:"BP"`
	LocusID string  `csv:"LOCUS"`
	PP      float64 `csv:"PIP"`
	PPNorm  float64 `csv:"-"`
	Status  string  `csv:"-"`
}

// NormalizeChrom returns a chromosome name without the "chr" prefix.
func NormalizeChrom(chrom string) string {
	if len(chrom) > 3 && chrom[:3] == "chr" {
		return chrom[3:]
	}
	return chrom
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func (v *Variant) NormalizeChrom() string {
	return NormalizeChrom(v.Chrom)
}

// Key returns a stable identifier for the variant, falling back to
// chrom:pos when the input table carries no SNP id.
func (v *Variant) Key() string {
	if v.ID != "" {
		return v.ID
	}
	return fmt.Sprintf("%s:%d", v.NormalizeChrom(), v.Pos)
}

// Locus is a credible set of variants sharing one normalization scope.
type Locus struct {
	ID       string
	Variants []*Variant
	RawSum   float64
	Excluded bool
}
