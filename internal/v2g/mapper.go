package v2g

import (
	"sort"

	"go.uber.org/zap"

	"github.com/regulomics/v2gscore/internal/finemap"
	"github.com/regulomics/v2gscore/internal/genes"
)

// DefaultHalfWindow is the linear-window half-width in bases: 256 kb on
// each side of the variant, matching the prediction model's scoring window.
const DefaultHalfWindow = 262144

// Mapper assigns candidate target genes to variants. Mapping is a pure
// function of the coordinate tables: no randomness, order-independent
// output sorted by (variant, gene).
type Mapper struct {
	universe   *genes.Universe
	loops      *LoopIndex
	halfWindow int64
	logger     *zap.Logger
}

// NewMapper creates a mapper over the given gene universe. The loop index
// may be nil, in which case only linear-window edges are produced.
func NewMapper(universe *genes.Universe, loops *LoopIndex) *Mapper {
	return &Mapper{
		universe:   universe,
		loops:      loops,
		halfWindow: DefaultHalfWindow,
		logger:     zap.NewNop(),
	}
}

// SetHalfWindow overrides the linear-window half-width.
func (m *Mapper) SetHalfWindow(w int64) {
	m.halfWindow = w
}

// SetLogger sets the logger for mapping diagnostics.
func (m *Mapper) SetLogger(l *zap.Logger) {
	m.logger = l
}

// MapVariants maps every variant to its candidate genes through both
// mechanisms and returns the deduplicated edge union. A (variant, gene)
// pair reached through both routes, or through several loops, yields a
// single edge with merged source flags.
func (m *Mapper) MapVariants(variants []*finemap.Variant) []*Edge {
	type edgeKey struct {
		variant string
		gene    string
	}
	seen := make(map[edgeKey]*Edge)
	var edges []*Edge

	// Linear edges are added before loop edges for each variant, so the
	// first-seen distance is the TSS distance whenever both routes
	// connect the pair.
	add := func(v *finemap.Variant, g *genes.Gene, source Source, distance int64) {
		key := edgeKey{variant: v.Key(), gene: g.ID}
		if e, ok := seen[key]; ok {
			e.Source |= source
			return
		}
		e := &Edge{Variant: v, Gene: g, Source: source, Distance: distance}
		seen[key] = e
		edges = append(edges, e)
	}

	for _, v := range variants {
		chrom := v.NormalizeChrom()

		// Linear genomic-distance window around the variant.
		for _, g := range m.universe.GenesInRange(chrom, v.Pos-m.halfWindow, v.Pos+m.halfWindow) {
			d := v.Pos - g.TSS
			if d < 0 {
				d = -d
			}
			add(v, g, SourceLinear, d)
		}

		// Chromatin-loop anchor overlap: genes whose TSS falls inside the
		// opposite anchor of any loop containing the variant.
		if m.loops != nil {
			for _, hit := range m.loops.AnchorsContaining(chrom, v.Pos) {
				targets := m.universe.GenesInRange(hit.otherChrom, hit.otherStart, hit.otherEnd)
				for _, g := range targets {
					add(v, g, SourceHiC, hit.loop.AnchorDistance())
				}
			}
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Variant.Key() != edges[j].Variant.Key() {
			return edges[i].Variant.Key() < edges[j].Variant.Key()
		}
		return edges[i].Gene.ID < edges[j].Gene.ID
	})

	m.logger.Info("variant-to-gene mapping complete",
		zap.Int("variants", len(variants)),
		zap.Int("edges", len(edges)))

	return edges
}

// EdgesByGene groups edges by target gene id.
func EdgesByGene(edges []*Edge) map[string][]*Edge {
	byGene := make(map[string][]*Edge)
	for _, e := range edges {
		byGene[e.Gene.ID] = append(byGene[e.Gene.ID], e)
	}
	return byGene
}
