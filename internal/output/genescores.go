// Package output provides result table writers.
package output

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/regulomics/v2gscore/internal/score"
	"github.com/regulomics/v2gscore/internal/v2g"
)

// GeneScoreWriter writes the calibrated gene score table in
// tab-delimited format, one row per scored gene with a named column
// per modality. Missing modality values are written as empty cells,
// never as zero.
type GeneScoreWriter struct {
	w          *bufio.Writer
	modalities []string
}

// NewGeneScoreWriter creates a writer emitting the given modality
// columns in order.
func NewGeneScoreWriter(w io.Writer, modalities []string) *GeneScoreWriter {
	return &GeneScoreWriter{
		w:          bufio.NewWriter(w),
		modalities: modalities,
	}
}

// WriteHeader writes the header line.
func (gw *GeneScoreWriter) WriteHeader() error {
	columns := []string{"GENE"}
	for _, m := range gw.modalities {
		columns = append(columns, "score_"+m)
	}
	columns = append(columns,
		"composite",
		"empirical_z",
		"empirical_p",
		"q_value",
		"sources",
		"n_variants",
		"status",
	)
	_, err := gw.w.WriteString(strings.Join(columns, "\t") + "\n")
	return err
}

// Write writes a single gene score row.
func (gw *GeneScoreWriter) Write(gs *score.GeneScore) error {
	values := []string{gs.GeneID}
	for _, m := range gw.modalities {
		if v, ok := gs.Modality[m]; ok {
			values = append(values, formatFloat(v))
		} else {
			values = append(values, "")
		}
	}
	values = append(values,
		formatFloat(gs.Composite),
		formatFloat(gs.EmpiricalZ),
		formatFloat(gs.EmpiricalP),
		formatFloat(gs.QValue),
		gs.Sources.String(),
		strconv.Itoa(gs.NVariants),
		gs.Status,
	)

	_, err := gw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// WriteAll writes the header and all rows sorted by descending
// composite, ties broken by gene id.
func (gw *GeneScoreWriter) WriteAll(scored []*score.GeneScore) error {
	sorted := make([]*score.GeneScore, len(scored))
	copy(sorted, scored)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Composite != sorted[j].Composite {
			return sorted[i].Composite > sorted[j].Composite
		}
		return sorted[i].GeneID < sorted[j].GeneID
	})

	if err := gw.WriteHeader(); err != nil {
		return err
	}
	for _, gs := range sorted {
		if err := gw.Write(gs); err != nil {
			return fmt.Errorf("write gene %s: %w", gs.GeneID, err)
		}
	}
	return gw.Flush()
}

// Flush flushes any buffered data to the underlying writer.
func (gw *GeneScoreWriter) Flush() error {
	return gw.w.Flush()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// ReadGeneScores reads a gene score table written by GeneScoreWriter,
// so the enrichment stage can run from a persisted table without
// redoing the scoring stage.
func ReadGeneScores(path string) ([]*score.GeneScore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gene scores: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read gene scores %s: %w", path, err)
		}
		return nil, fmt.Errorf("gene scores %s: empty file", path)
	}

	header := strings.Split(scanner.Text(), "\t")
	col := make(map[string]int, len(header))
	var modalities []string
	for i, name := range header {
		col[name] = i
		if m, ok := strings.CutPrefix(name, "score_"); ok {
			modalities = append(modalities, m)
		}
	}
	for _, required := range []string{"GENE", "composite", "status"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("gene scores %s: missing column %s", path, required)
		}
	}

	var scored []*score.GeneScore
	lineno := 1
	for scanner.Scan() {
		lineno++
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) != len(header) {
			return nil, fmt.Errorf("gene scores %s line %d: %d fields, header has %d", path, lineno, len(fields), len(header))
		}

		gs := &score.GeneScore{
			GeneID:   fields[col["GENE"]],
			Modality: make(map[string]float64, len(modalities)),
			Status:   fields[col["status"]],
		}
		for _, m := range modalities {
			cell := fields[col["score_"+m]]
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("gene scores %s line %d: bad score_%s %q", path, lineno, m, cell)
			}
			gs.Modality[m] = v
		}

		floats := map[string]*float64{
			"composite":   &gs.Composite,
			"empirical_z": &gs.EmpiricalZ,
			"empirical_p": &gs.EmpiricalP,
			"q_value":     &gs.QValue,
		}
		for name, dst := range floats {
			i, ok := col[name]
			if !ok || fields[i] == "" {
				*dst = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, fmt.Errorf("gene scores %s line %d: bad %s %q", path, lineno, name, fields[i])
			}
			*dst = v
		}
		if i, ok := col["sources"]; ok {
			gs.Sources = v2g.ParseSource(fields[i])
		}
		if i, ok := col["n_variants"]; ok && fields[i] != "" {
			n, err := strconv.Atoi(fields[i])
			if err != nil {
				return nil, fmt.Errorf("gene scores %s line %d: bad n_variants %q", path, lineno, fields[i])
			}
			gs.NVariants = n
		}
		scored = append(scored, gs)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read gene scores %s: %w", path, err)
	}
	return scored, nil
}
