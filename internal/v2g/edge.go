// Package v2g maps fine-mapped variants to candidate target genes through
// a linear genomic-distance window and chromatin-loop anchor overlap.
package v2g

import (
	"github.com/regulomics/v2gscore/internal/finemap"
	"github.com/regulomics/v2gscore/internal/genes"
)

// Source identifies which mapping mechanism produced an edge. An edge
// reached through both mechanisms carries both bits.
type Source int

const (
	SourceLinear Source = 1 << iota
	SourceHiC
)

// String returns the source tag used in output tables.
func (s Source) String() string {
	switch {
	case s&SourceLinear != 0 && s&SourceHiC != 0:
		return "both"
	case s&SourceHiC != 0:
		return "hic"
	case s&SourceLinear != 0:
		return "linear"
	default:
		return "none"
	}
}

// ParseSource is the inverse of Source.String.
func ParseSource(s string) Source {
	switch s {
	case "both":
		return SourceLinear | SourceHiC
	case "hic":
		return SourceHiC
	case "linear":
		return SourceLinear
	default:
		return 0
	}
}

// Edge is a single variant-gene connection. Edges are deduplicated by
// (variant, gene): a pair reached through both mechanisms, or through
// several loops, is represented exactly once.
type Edge struct {
	Variant  *finemap.Variant
	Gene     *genes.Gene
	Source   Source
	Distance int64 // |pos-TSS| for linear edges, anchor center distance for hic-only edges
}
