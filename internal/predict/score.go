// Package predict provides the regulatory-effect prediction table: parsing
// across historical schemas, the score matrix with explicit missing values,
// and the client for the external prediction API.
package predict

import "sort"

// CanonicalModalities is the default modality set of the prediction model,
// in reporting order. Input tables are matched by modality name, never by
// column position.
var CanonicalModalities = []string{"DNase", "H3K27ac", "H3K4me1", "H3K4me3", "CAGE", "RNA"}

var canonicalRank = func() map[string]int {
	m := make(map[string]int, len(CanonicalModalities))
	for i, name := range CanonicalModalities {
		m[name] = i
	}
	return m
}()

// Key identifies one variant-gene cell of the score matrix.
type Key struct {
	Variant string
	Gene    string
}

// ScoreSet holds raw regulatory-effect scores per (variant, gene, modality).
// Absent cells are explicit: a missing value is reported as not present,
// never as zero.
type ScoreSet struct {
	scores     map[Key]map[string]float64
	modalities map[string]bool
}

// NewScoreSet creates an empty score set.
func NewScoreSet() *ScoreSet {
	return &ScoreSet{
		scores:     make(map[Key]map[string]float64),
		modalities: make(map[string]bool),
	}
}

// Set records a raw score.
func (s *ScoreSet) Set(variant, gene, modality string, raw float64) {
	key := Key{Variant: variant, Gene: gene}
	cell := s.scores[key]
	if cell == nil {
		cell = make(map[string]float64)
		s.scores[key] = cell
	}
	cell[modality] = raw
	s.modalities[modality] = true
}

// Get returns the raw score for a cell and whether it is present.
func (s *ScoreSet) Get(variant, gene, modality string) (float64, bool) {
	v, ok := s.scores[Key{Variant: variant, Gene: gene}][modality]
	return v, ok
}

// Has reports whether any modality is present for the (variant, gene) pair.
func (s *ScoreSet) Has(variant, gene string) bool {
	return len(s.scores[Key{Variant: variant, Gene: gene}]) > 0
}

// Len returns the number of (variant, gene) cells with at least one value.
func (s *ScoreSet) Len() int {
	return len(s.scores)
}

// Modalities returns every modality seen in the set, canonical modalities
// first in canonical order, then any others alphabetically.
func (s *ScoreSet) Modalities() []string {
	names := make([]string, 0, len(s.modalities))
	for name := range s.modalities {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, iok := canonicalRank[names[i]]
		rj, jok := canonicalRank[names[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		case jok:
			return false
		default:
			return names[i] < names[j]
		}
	})
	return names
}

// Keys returns all (variant, gene) cells sorted by variant then gene.
func (s *ScoreSet) Keys() []Key {
	keys := make([]Key, 0, len(s.scores))
	for k := range s.scores {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Variant != keys[j].Variant {
			return keys[i].Variant < keys[j].Variant
		}
		return keys[i].Gene < keys[j].Gene
	})
	return keys
}
