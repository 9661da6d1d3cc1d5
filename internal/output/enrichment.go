package output

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/regulomics/v2gscore/internal/enrich"
)

// WritePathwayResults writes the GSEA result table as CSV.
func WritePathwayResults(path string, results []enrich.PathwayResult) error {
	return writeCSV(path, &results)
}

// WriteCellTypeResults writes the cell-type enrichment table as CSV.
func WriteCellTypeResults(path string, results []enrich.CellTypeResult) error {
	return writeCSV(path, &results)
}

// WriteOverlapResults writes reference overlap results as CSV.
func WriteOverlapResults(path string, results []enrich.OverlapResult) error {
	return writeCSV(path, &results)
}

// WriteEQTLResult writes the single-row eQTL concordance summary.
func WriteEQTLResult(path string, result enrich.EQTLResult) error {
	rows := []enrich.EQTLResult{result}
	return writeCSV(path, &rows)
}

// WriteDirectionResult writes the single-row directionality summary.
func WriteDirectionResult(path string, result enrich.DirectionResult) error {
	rows := []enrich.DirectionResult{result}
	return writeCSV(path, &rows)
}

func writeCSV(path string, rows interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(rows, f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
