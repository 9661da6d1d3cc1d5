package genes

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
)

// ReadTable reads a gene annotation table (CSV) with columns GENE, CHR, TSS
// and returns the gene universe.
func ReadTable(path string) (*Universe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gene annotation table: %w", err)
	}
	defer f.Close()

	var list []*Gene
	if err := gocsv.UnmarshalFile(f, &list); err != nil {
		return nil, fmt.Errorf("parse gene annotation table %s: %w", path, err)
	}

	for _, g := range list {
		if g.ID == "" {
			return nil, fmt.Errorf("gene annotation table %s: row with empty gene id", path)
		}
	}

	return NewUniverse(list), nil
}
