package predict

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Schema identifies one of the accepted prediction-table layouts. The
// canonical layout is wide, one row per (variant, gene), with one
// score_<modality> column per modality. Two historical layouts are
// tolerated explicitly; anything else is rejected with the offending
// header, never guessed at.
type Schema int

const (
	SchemaUnknown Schema = iota
	// SchemaCanonical: SNP,GENE,score_DNase,score_H3K27ac,...
	SchemaCanonical
	// SchemaLegacyBare: SNP,GENE with bare modality column names (DNase,...).
	SchemaLegacyBare
	// SchemaLong: SNP,GENE,MODALITY,SCORE, one row per cell.
	SchemaLong
)

func (s Schema) String() string {
	switch s {
	case SchemaCanonical:
		return "canonical"
	case SchemaLegacyBare:
		return "legacy-bare"
	case SchemaLong:
		return "long"
	default:
		return "unknown"
	}
}

// legacyAliases maps retired modality spellings to canonical names.
var legacyAliases = map[string]string{
	"rna_seq": "RNA",
	"dnase1":  "DNase",
}

// missingTokens are cell values treated as explicit missing data.
var missingTokens = map[string]bool{
	"": true, "na": true, "nan": true, "none": true, ".": true,
}

// normalizeModality resolves a column name to a modality name: the
// score_ prefix is stripped, canonical names are matched case-insensitively,
// and legacy aliases are rewritten. Unrecognized names are kept as-is so
// extra modalities pass through by name.
func normalizeModality(col string) string {
	name := strings.TrimPrefix(strings.TrimPrefix(col, "score_"), "Score_")
	low := strings.ToLower(name)
	if alias, ok := legacyAliases[low]; ok {
		return alias
	}
	for _, canonical := range CanonicalModalities {
		if strings.EqualFold(name, canonical) {
			return canonical
		}
	}
	return name
}

func isVariantColumn(col string) bool {
	switch strings.ToLower(col) {
	case "snp", "variant", "variant_id":
		return true
	}
	return false
}

func isGeneColumn(col string) bool {
	switch strings.ToLower(col) {
	case "gene", "gene_id", "target_gene":
		return true
	}
	return false
}

// DetectSchema classifies a header into one of the accepted layouts.
func DetectSchema(header []string) Schema {
	var hasVariant, hasGene, hasModality, hasScore, hasPrefixed, hasBare bool

	for _, col := range header {
		switch {
		case isVariantColumn(col):
			hasVariant = true
		case isGeneColumn(col):
			hasGene = true
		case strings.EqualFold(col, "modality"):
			hasModality = true
		case strings.EqualFold(col, "score"):
			hasScore = true
		case strings.HasPrefix(strings.ToLower(col), "score_"):
			hasPrefixed = true
		default:
			norm := normalizeModality(col)
			for _, canonical := range CanonicalModalities {
				if norm == canonical {
					hasBare = true
				}
			}
		}
	}

	if !hasVariant || !hasGene {
		return SchemaUnknown
	}
	switch {
	case hasModality && hasScore:
		return SchemaLong
	case hasPrefixed:
		return SchemaCanonical
	case hasBare:
		return SchemaLegacyBare
	default:
		return SchemaUnknown
	}
}

// ReadTable reads a prediction table in any accepted schema into a score
// set. Missing cells stay missing.
func ReadTable(path string) (*ScoreSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open prediction table: %w", err)
	}
	defer f.Close()

	return readTable(f, path)
}

func readTable(r io.Reader, name string) (*ScoreSet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read prediction table header %s: %w", name, err)
	}

	schema := DetectSchema(header)
	if schema == SchemaUnknown {
		return nil, fmt.Errorf("prediction table %s: unrecognized header %q", name, strings.Join(header, ","))
	}

	variantIdx, geneIdx := -1, -1
	modalityIdx, scoreIdx := -1, -1
	modalityCols := make(map[int]string)

	for i, col := range header {
		switch {
		case isVariantColumn(col):
			variantIdx = i
		case isGeneColumn(col):
			geneIdx = i
		case strings.EqualFold(col, "modality"):
			modalityIdx = i
		case strings.EqualFold(col, "score"):
			scoreIdx = i
		default:
			if schema == SchemaLong {
				continue
			}
			if schema == SchemaCanonical && !strings.HasPrefix(strings.ToLower(col), "score_") {
				continue
			}
			modalityCols[i] = normalizeModality(col)
		}
	}

	set := NewScoreSet()
	lineNo := 1

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read prediction table %s: %w", name, err)
		}
		lineNo++

		if variantIdx >= len(record) || geneIdx >= len(record) {
			return nil, fmt.Errorf("prediction table %s line %d: too few fields", name, lineNo)
		}
		variant := record[variantIdx]
		gene := record[geneIdx]
		if variant == "" || gene == "" {
			return nil, fmt.Errorf("prediction table %s line %d: empty variant or gene id", name, lineNo)
		}

		if schema == SchemaLong {
			if modalityIdx >= len(record) || scoreIdx >= len(record) {
				return nil, fmt.Errorf("prediction table %s line %d: too few fields", name, lineNo)
			}
			raw, present, err := parseCell(record[scoreIdx])
			if err != nil {
				return nil, fmt.Errorf("prediction table %s line %d: %w", name, lineNo, err)
			}
			if present {
				set.Set(variant, gene, normalizeModality(record[modalityIdx]), raw)
			}
			continue
		}

		for idx, modality := range modalityCols {
			if idx >= len(record) {
				continue
			}
			raw, present, err := parseCell(record[idx])
			if err != nil {
				return nil, fmt.Errorf("prediction table %s line %d: %w", name, lineNo, err)
			}
			if present {
				set.Set(variant, gene, modality, raw)
			}
		}
	}

	return set, nil
}

// parseCell parses one score cell. The bool reports presence: missing
// tokens are not values.
func parseCell(s string) (float64, bool, error) {
	if missingTokens[strings.ToLower(strings.TrimSpace(s))] {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false, fmt.Errorf("bad score value %q", s)
	}
	return v, true, nil
}

// WriteTable writes a score set in the canonical wide schema. Absent
// cells are written as empty fields.
func WriteTable(w io.Writer, set *ScoreSet) error {
	cw := csv.NewWriter(w)

	modalities := set.Modalities()
	header := []string{"SNP", "GENE"}
	for _, m := range modalities {
		header = append(header, "score_"+m)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write prediction table header: %w", err)
	}

	for _, key := range set.Keys() {
		record := []string{key.Variant, key.Gene}
		for _, m := range modalities {
			if raw, ok := set.Get(key.Variant, key.Gene, m); ok {
				record = append(record, strconv.FormatFloat(raw, 'g', -1, 64))
			} else {
				record = append(record, "")
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write prediction table row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
