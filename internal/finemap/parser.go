package finemap

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"
)

// ReadTable reads a fine-mapping table (CSV, optionally gzipped) with
// columns SNP, CHR, BP, LOCUS, PIP.
func ReadTable(path string) ([]*Variant, error) {
	r, closeFn, err := openMaybeGzip(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var variants []*Variant
	if err := gocsv.Unmarshal(r, &variants); err != nil {
		return nil, fmt.Errorf("parse fine-mapping table %s: %w", path, err)
	}

	for _, v := range variants {
		if v.LocusID == "" {
			return nil, fmt.Errorf("fine-mapping table %s: variant %s has no locus id", path, v.Key())
		}
		v.Status = StatusOK
	}

	return variants, nil
}

// SummaryStat is one row of a GWAS summary statistics file.
type SummaryStat struct {
	ID    string  `csv:"SNP"`
	Chrom string  `csv:"CHR"`
	Pos   int64   `csv:"BP"`
	P     float64 `csv:"P"`
}

// ReadSummaryStats reads tab-separated GWAS summary statistics
// (optionally gzipped) with at least SNP, CHR, BP and P columns.
func ReadSummaryStats(path string) ([]SummaryStat, error) {
	r, closeFn, err := openMaybeGzip(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1

	var stats []SummaryStat
	if err := gocsv.UnmarshalCSV(cr, &stats); err != nil {
		return nil, fmt.Errorf("parse summary statistics %s: %w", path, err)
	}
	return stats, nil
}

// openMaybeGzip opens a file and transparently wraps gzipped content,
// detected by the gzip magic bytes rather than the file extension.
func openMaybeGzip(path string) (io.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}

	buf := make([]byte, 2)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		f.Close()
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("seek %s: %w", path, err)
	}

	if n == 2 && buf[0] == 0x1f && buf[1] == 0x8b {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("create gzip reader for %s: %w", path, err)
		}
		return gz, func() error {
			gz.Close()
			return f.Close()
		}, nil
	}

	return f, f.Close, nil
}
