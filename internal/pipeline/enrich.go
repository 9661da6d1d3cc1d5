package pipeline

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/regulomics/v2gscore/internal/enrich"
	"github.com/regulomics/v2gscore/internal/output"
	"github.com/regulomics/v2gscore/internal/predict"
	"github.com/regulomics/v2gscore/internal/score"
)

// EnrichConfig configures the enrichment stage. Every reference input
// is optional: a missing one produces a result row with an unavailable
// status instead of skipping the tester silently.
type EnrichConfig struct {
	GeneScoresPath string // calibrated gene score table from the scoring stage
	GenesPath      string // gene universe, sets the overlap test background

	PathwaysPath string // YAML pathway gene sets

	FinemapPath     string            // variants for the cell-type tester
	PeakFiles       map[string]string // cell type -> peak file
	ControlCellType string
	GenomeSize      float64

	ReferenceLists map[string]string // overlap test name -> gene list file
	TopN           int

	ScoresPath string // raw prediction table for eQTL directions
	EQTLPath   string

	OutputDir string
}

// RunEnrich runs every configured enrichment tester against the
// calibrated gene table and writes one result file per tester under
// the output directory.
func RunEnrich(cfg EnrichConfig, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	scored, err := output.ReadGeneScores(cfg.GeneScoresPath)
	if err != nil {
		return err
	}
	universe, err := loadUniverse(cfg.GenesPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	logger.Info("enrichment stage starting",
		zap.Int("scored_genes", len(scored)),
		zap.Int("universe", universe.Size()))

	if cfg.PathwaysPath != "" {
		sets, err := enrich.ReadPathwaySets(cfg.PathwaysPath)
		if err != nil {
			return err
		}
		results := enrich.GSEA(enrich.RankGenes(scored), sets, logger)
		if err := output.WritePathwayResults(filepath.Join(cfg.OutputDir, "gsea_results.csv"), results); err != nil {
			return err
		}
		logger.Info("pathway GSEA done", zap.Int("pathways", len(results)))
	}

	if len(cfg.PeakFiles) > 0 {
		if err := runCellType(cfg, logger); err != nil {
			return err
		}
	}

	if len(cfg.ReferenceLists) > 0 {
		if err := runOverlaps(cfg, scored, universe.Size(), logger); err != nil {
			return err
		}
	}

	if cfg.EQTLPath != "" {
		if err := runEQTL(cfg, logger); err != nil {
			return err
		}
	}

	var signed []float64
	for _, gs := range scored {
		if !math.IsNaN(gs.Composite) {
			signed = append(signed, gs.Composite)
		}
	}
	direction := enrich.Directionality(signed, logger)
	if err := output.WriteDirectionResult(filepath.Join(cfg.OutputDir, "directionality.csv"), direction); err != nil {
		return err
	}
	logger.Info("directionality done",
		zap.Int("n_up", direction.NUp),
		zap.Int("n_down", direction.NDown))
	return nil
}

func runCellType(cfg EnrichConfig, logger *zap.Logger) error {
	variants, err := loadVariants(cfg.FinemapPath, "", 0, 0, logger)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(cfg.PeakFiles))
	for name := range cfg.PeakFiles {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]enrich.PeakSet, 0, len(names))
	for _, name := range names {
		peaks, err := enrich.ReadPeaks(cfg.PeakFiles[name])
		if err != nil {
			// Unavailable reference data is a status row, not an abort.
			logger.Warn("peak file unreadable",
				zap.String("cell_type", name),
				zap.Error(err))
			sets = append(sets, enrich.PeakSet{CellType: name})
			continue
		}
		sets = append(sets, enrich.PeakSet{CellType: name, Peaks: peaks})
	}

	results := enrich.CellTypeEnrichment(variants, sets, cfg.ControlCellType, cfg.GenomeSize, logger)
	if err := output.WriteCellTypeResults(filepath.Join(cfg.OutputDir, "celltype_enrichment.csv"), results); err != nil {
		return err
	}
	logger.Info("cell-type enrichment done", zap.Int("cell_types", len(results)))
	return nil
}

func runOverlaps(cfg EnrichConfig, scored []*score.GeneScore, universeSize int, logger *zap.Logger) error {
	topN := cfg.TopN
	if topN <= 0 {
		topN = enrich.DefaultTopN
	}
	top := enrich.TopGenes(scored, topN)

	names := make([]string, 0, len(cfg.ReferenceLists))
	for name := range cfg.ReferenceLists {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]enrich.OverlapResult, 0, len(names))
	for _, name := range names {
		reference, err := readGeneList(cfg.ReferenceLists[name])
		if err != nil {
			logger.Warn("reference gene list unreadable",
				zap.String("reference", name),
				zap.Error(err))
			reference = nil
		}
		results = append(results, enrich.ReferenceOverlap(name, top, reference, universeSize, logger))
	}

	if err := output.WriteOverlapResults(filepath.Join(cfg.OutputDir, "reference_overlap.csv"), results); err != nil {
		return err
	}
	logger.Info("reference overlap done", zap.Int("references", len(results)))
	return nil
}

func runEQTL(cfg EnrichConfig, logger *zap.Logger) error {
	records, err := enrich.ReadEQTLTable(cfg.EQTLPath)
	if err != nil {
		return err
	}

	var effects []enrich.PairEffect
	if cfg.ScoresPath != "" {
		set, err := predict.ReadTable(cfg.ScoresPath)
		if err != nil {
			return err
		}
		effects = pairEffects(set)
	}

	result := enrich.EQTLConcordance(effects, records, logger)
	if err := output.WriteEQTLResult(filepath.Join(cfg.OutputDir, "eqtl_concordance.csv"), result); err != nil {
		return err
	}
	logger.Info("eQTL concordance done",
		zap.Int("pairs", result.NPairs),
		zap.String("status", result.Status))
	return nil
}

// pairEffects reduces each variant-gene prediction to a single signed
// effect, the mean of the raw modality values present for the pair.
func pairEffects(set *predict.ScoreSet) []enrich.PairEffect {
	modalities := set.Modalities()
	effects := make([]enrich.PairEffect, 0, set.Len())
	for _, key := range set.Keys() {
		var sum float64
		n := 0
		for _, m := range modalities {
			if v, ok := set.Get(key.Variant, key.Gene, m); ok {
				sum += v
				n++
			}
		}
		if n == 0 {
			continue
		}
		effects = append(effects, enrich.PairEffect{
			VariantKey: key.Variant,
			GeneID:     key.Gene,
			Effect:     sum / float64(n),
		})
	}
	return effects
}

// readGeneList reads one gene symbol per line, tolerating a GENE
// header and comment lines.
func readGeneList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gene list: %w", err)
	}
	defer f.Close()

	var list []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.EqualFold(line, "GENE") {
			continue
		}
		list = append(list, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read gene list %s: %w", path, err)
	}
	return list, nil
}
