package v2g

import "sort"

// anchorHit is one loop anchor containing a queried position, together
// with the opposite anchor of the same loop.
type anchorHit struct {
	loop *Loop
	// otherChrom/otherStart/otherEnd describe the opposite anchor.
	otherChrom string
	otherStart int64
	otherEnd   int64
}

// anchorTree provides O(log n + k) stabbing queries over loop anchors on
// one chromosome using a sorted-slice approach with a running-max array.
// Anchors are loaded once and never modified after build.
type anchorTree struct {
	intervals []anchorInterval
	maxEnd    []int64 // maxEnd[i] = max(end) for intervals[:i+1]
}

type anchorInterval struct {
	start int64
	end   int64
	hit   anchorHit
}

func buildAnchorTree(intervals []anchorInterval) *anchorTree {
	if len(intervals) == 0 {
		return &anchorTree{}
	}

	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].start < intervals[j].start
	})

	maxEnd := make([]int64, len(intervals))
	maxEnd[0] = intervals[0].end
	for i := 1; i < len(intervals); i++ {
		maxEnd[i] = intervals[i].end
		if maxEnd[i-1] > maxEnd[i] {
			maxEnd[i] = maxEnd[i-1]
		}
	}

	return &anchorTree{intervals: intervals, maxEnd: maxEnd}
}

// stab returns all anchors whose [start, end] range contains pos.
func (t *anchorTree) stab(pos int64) []anchorHit {
	if len(t.intervals) == 0 {
		return nil
	}

	var result []anchorHit

	// Binary search: find the first interval with start > pos; all
	// candidates lie left of that boundary.
	hi := sort.Search(len(t.intervals), func(i int) bool {
		return t.intervals[i].start > pos
	})

	for i := hi - 1; i >= 0; i-- {
		// maxEnd[i] < pos means no interval in [0, i] can contain pos.
		if t.maxEnd[i] < pos {
			break
		}
		if t.intervals[i].end >= pos {
			result = append(result, t.intervals[i].hit)
		}
	}

	return result
}

// LoopIndex answers "which loop anchors contain this position" per
// chromosome. Both anchors of every loop are indexed, so overlap is
// symmetric in A1/A2.
type LoopIndex struct {
	trees map[string]*anchorTree
}

// NewLoopIndex builds an index over both anchors of every loop.
func NewLoopIndex(loops []*Loop) *LoopIndex {
	byChrom := make(map[string][]anchorInterval)

	for _, l := range loops {
		c1 := normChrom(l.Chrom1)
		c2 := normChrom(l.Chrom2)

		byChrom[c1] = append(byChrom[c1], anchorInterval{
			start: l.Start1,
			end:   l.End1,
			hit: anchorHit{
				loop:       l,
				otherChrom: c2,
				otherStart: l.Start2,
				otherEnd:   l.End2,
			},
		})
		byChrom[c2] = append(byChrom[c2], anchorInterval{
			start: l.Start2,
			end:   l.End2,
			hit: anchorHit{
				loop:       l,
				otherChrom: c1,
				otherStart: l.Start1,
				otherEnd:   l.End1,
			},
		})
	}

	idx := &LoopIndex{trees: make(map[string]*anchorTree, len(byChrom))}
	for chrom, intervals := range byChrom {
		idx.trees[chrom] = buildAnchorTree(intervals)
	}
	return idx
}

// AnchorsContaining returns every anchor on chrom containing pos. The
// chromosome name may carry a "chr" prefix.
func (idx *LoopIndex) AnchorsContaining(chrom string, pos int64) []anchorHit {
	tree := idx.trees[normChrom(chrom)]
	if tree == nil {
		return nil
	}
	return tree.stab(pos)
}
