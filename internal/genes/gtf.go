package genes

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadGTF builds a gene universe from a GENCODE GTF file, as an
// alternative to the GENE,CHR,TSS table. Only "gene" features are
// read; the TSS is the feature start on the forward strand and the
// feature end on the reverse strand. When proteinCodingOnly is set,
// genes with another gene_type are dropped.
func ReadGTF(path string, proteinCodingOnly bool) (*Universe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open GTF file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var list []*Gene
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 9 || fields[2] != "gene" {
			continue
		}

		start, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			continue // skip malformed lines
		}
		end, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			continue
		}

		attrs := parseGTFAttributes(fields[8])
		if proteinCodingOnly && attrs["gene_type"] != "protein_coding" {
			continue
		}

		name := attrs["gene_name"]
		if name == "" {
			name = stripVersion(attrs["gene_id"])
		}
		if name == "" {
			continue
		}

		tss := start
		if fields[6] == "-" {
			tss = end
		}

		list = append(list, &Gene{
			ID:    name,
			Chrom: strings.TrimPrefix(fields[0], "chr"),
			TSS:   tss,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GTF %s: %w", path, err)
	}

	return NewUniverse(list), nil
}

// parseGTFAttributes parses the key "value"; attribute column.
func parseGTFAttributes(attrStr string) map[string]string {
	attrs := make(map[string]string)

	for _, part := range strings.Split(attrStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		idx := strings.Index(part, " ")
		if idx == -1 {
			continue
		}

		key := part[:idx]
		value := strings.Trim(strings.TrimSpace(part[idx+1:]), "\"")
		attrs[key] = value
	}

	return attrs
}

// stripVersion removes the version suffix from an Ensembl ID.
// e.g., "ENSG00000157764.14" -> "ENSG00000157764"
func stripVersion(id string) string {
	if idx := strings.LastIndex(id, "."); idx != -1 {
		return id[:idx]
	}
	return id
}
