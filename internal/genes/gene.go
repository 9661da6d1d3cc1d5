// Package genes provides the gene annotation table and the gene universe
// used for variant-to-gene mapping and empirical-null calibration.
package genes

import (
	"sort"
	"strings"
)

// Gene is a single annotated gene, anchored at its transcription start site.
type Gene struct {
	ID    string `csv:"GENE"`
	Chrom string `csv:"CHR"`
	TSS   int64  `csv:"TSS"`
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func (g *Gene) NormalizeChrom() string {
	return strings.TrimPrefix(g.Chrom, "chr")
}

// Universe is the full background population of genes. It supports
// TSS range queries via a per-chromosome sorted index built once at
// construction and never modified afterward.
type Universe struct {
	genes []*Gene
	byID  map[string]*Gene
	byChr map[string][]*Gene // sorted by TSS
}

// NewUniverse builds a universe from a gene list. Duplicate gene ids
// keep the first occurrence.
func NewUniverse(list []*Gene) *Universe {
	u := &Universe{
		byID:  make(map[string]*Gene, len(list)),
		byChr: make(map[string][]*Gene),
	}

	for _, g := range list {
		if _, dup := u.byID[g.ID]; dup {
			continue
		}
		u.byID[g.ID] = g
		u.genes = append(u.genes, g)
		chrom := g.NormalizeChrom()
		u.byChr[chrom] = append(u.byChr[chrom], g)
	}

	for chrom := range u.byChr {
		sort.Slice(u.byChr[chrom], func(i, j int) bool {
			return u.byChr[chrom][i].TSS < u.byChr[chrom][j].TSS
		})
	}

	return u
}

// Size returns the number of genes in the universe.
func (u *Universe) Size() int {
	return len(u.genes)
}

// All returns every gene, in input order.
func (u *Universe) All() []*Gene {
	return u.genes
}

// Lookup returns the gene with the given id, or nil.
func (u *Universe) Lookup(id string) *Gene {
	return u.byID[id]
}

// GenesInRange returns all genes on chrom whose TSS lies in [start, end].
// The chromosome name may carry a "chr" prefix.
func (u *Universe) GenesInRange(chrom string, start, end int64) []*Gene {
	sorted := u.byChr[strings.TrimPrefix(chrom, "chr")]
	if len(sorted) == 0 || end < start {
		return nil
	}

	lo := sort.Search(len(sorted), func(i int) bool {
		return sorted[i].TSS >= start
	})

	var result []*Gene
	for i := lo; i < len(sorted) && sorted[i].TSS <= end; i++ {
		result = append(result, sorted[i])
	}
	return result
}
