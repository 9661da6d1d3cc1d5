package enrich

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// PathwaySet is a named gene set to test for enrichment among
// high-scoring genes.
type PathwaySet struct {
	Name  string
	Genes []string
}

// ReadPathwaySets loads pathway gene sets from a YAML file mapping
// pathway names to gene symbol lists:
//
//	Calcium_VoltageGated: [CACNA1A, CACNA1B, CACNA1C]
//	Glutamate_Ionotropic: [GRIN1, GRIN2A, GRIN2B]
//
// Sets are returned sorted by name so downstream results are
// deterministic regardless of map iteration order.
func ReadPathwaySets(path string) ([]PathwaySet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pathway sets: %w", err)
	}

	var byName map[string][]string
	if err := yaml.Unmarshal(raw, &byName); err != nil {
		return nil, fmt.Errorf("parse pathway sets %s: %w", path, err)
	}

	sets := make([]PathwaySet, 0, len(byName))
	for name, genes := range byName {
		if len(genes) == 0 {
			continue
		}
		sets = append(sets, PathwaySet{Name: name, Genes: genes})
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].Name < sets[j].Name })
	return sets, nil
}
