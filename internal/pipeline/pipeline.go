// Package pipeline wires the scoring stages together: fine-mapping
// normalization, variant-to-gene mapping, prediction lookup, modality
// normalization, aggregation, calibration, and the enrichment testers.
// Each stage runs from persisted tables so a failed or skipped stage
// can be redone by rerunning it.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/regulomics/v2gscore/internal/duckdb"
	"github.com/regulomics/v2gscore/internal/finemap"
	"github.com/regulomics/v2gscore/internal/genes"
	"github.com/regulomics/v2gscore/internal/output"
	"github.com/regulomics/v2gscore/internal/predict"
	"github.com/regulomics/v2gscore/internal/score"
	"github.com/regulomics/v2gscore/internal/v2g"
)

// DefaultLeadPThreshold is the genome-wide significance threshold used
// when extracting lead variants from summary statistics.
const DefaultLeadPThreshold = 5e-8

// DefaultLeadWindowBP is the pruning distance between lead variants.
const DefaultLeadWindowBP = 500_000

// ScoreConfig configures the scoring stage.
type ScoreConfig struct {
	// Exactly one of FinemapPath or SummaryStatsPath must be set.
	FinemapPath      string
	SummaryStatsPath string
	PThreshold       float64
	LeadWindowBP     int64

	GenesPath  string
	LoopsPath  string // optional BEDPE chromatin loops
	HalfWindow int64

	ScoresPath string // prediction table (canonical or legacy layout)
	CachePath  string // optional DuckDB prediction cache

	OutputPath string // gene score table destination
}

// RunScore executes the scoring stage end to end and writes the
// calibrated gene score table.
func RunScore(cfg ScoreConfig, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	variants, err := loadVariants(cfg.FinemapPath, cfg.SummaryStatsPath, cfg.PThreshold, cfg.LeadWindowBP, logger)
	if err != nil {
		return err
	}

	universe, err := loadUniverse(cfg.GenesPath)
	if err != nil {
		return err
	}
	logger.Info("loaded gene universe", zap.Int("genes", universe.Size()))

	var loopIdx *v2g.LoopIndex
	if cfg.LoopsPath != "" {
		loops, err := v2g.ReadBEDPE(cfg.LoopsPath)
		if err != nil {
			return err
		}
		loopIdx = v2g.NewLoopIndex(loops)
		logger.Info("loaded chromatin loops", zap.Int("loops", len(loops)))
	}

	mapper := v2g.NewMapper(universe, loopIdx)
	if cfg.HalfWindow > 0 {
		mapper.SetHalfWindow(cfg.HalfWindow)
	}
	mapper.SetLogger(logger)
	edges := mapper.MapVariants(variants)
	logger.Info("mapped variants to genes", zap.Int("edges", len(edges)))

	set, err := loadScores(cfg.ScoresPath, cfg.CachePath, logger)
	if err != nil {
		return err
	}

	zset, stats := score.NormalizeModalities(set, logger)
	for _, st := range stats {
		if st.Degenerate {
			logger.Warn("modality excluded from scoring",
				zap.String("modality", st.Modality),
				zap.Float64("sd", st.SD),
				zap.Int("n", st.N))
		}
	}

	scored := score.Aggregate(edges, zset, logger)
	if err := score.Calibrate(scored, universe, logger); err != nil {
		return err
	}

	if err := ensureDir(cfg.OutputPath); err != nil {
		return err
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return fmt.Errorf("create gene score table: %w", err)
	}
	defer f.Close()
	if err := output.NewGeneScoreWriter(f, zset.Modalities()).WriteAll(scored); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	logger.Info("wrote gene score table",
		zap.String("path", cfg.OutputPath),
		zap.Int("genes", len(scored)))
	return nil
}

// PredictConfig configures the prediction fetch stage.
type PredictConfig struct {
	FinemapPath      string
	SummaryStatsPath string
	PThreshold       float64
	LeadWindowBP     int64

	BaseURL string
	APIKey  string

	CachePath  string // DuckDB prediction cache
	ScoresPath string // canonical prediction table destination
}

// RunPredict fetches regulatory predictions for variants missing from
// the cache, appends them, and rewrites the canonical prediction
// table from the full cache contents.
func RunPredict(cfg PredictConfig, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	variants, err := loadVariants(cfg.FinemapPath, cfg.SummaryStatsPath, cfg.PThreshold, cfg.LeadWindowBP, logger)
	if err != nil {
		return err
	}

	store, err := duckdb.Open(cfg.CachePath)
	if err != nil {
		return err
	}
	defer store.Close()

	cached, err := store.ScoredVariants()
	if err != nil {
		return err
	}
	var todo []*finemap.Variant
	for _, v := range variants {
		if !cached[v.Key()] {
			todo = append(todo, v)
		}
	}
	logger.Info("prediction cache checked",
		zap.Int("variants", len(variants)),
		zap.Int("cached", len(variants)-len(todo)),
		zap.Int("to_fetch", len(todo)))

	if len(todo) > 0 {
		client := predict.NewClient(cfg.BaseURL, cfg.APIKey)
		client.SetLogger(logger)
		fetched := predict.NewScoreSet()
		if err := client.ScoreVariants(todo, fetched); err != nil {
			return err
		}
		if err := store.WriteScores(fetched); err != nil {
			return err
		}
	}

	all, err := store.LoadScores()
	if err != nil {
		return err
	}
	if err := ensureDir(cfg.ScoresPath); err != nil {
		return err
	}
	f, err := os.Create(cfg.ScoresPath)
	if err != nil {
		return fmt.Errorf("create prediction table: %w", err)
	}
	defer f.Close()
	if err := predict.WriteTable(f, all); err != nil {
		return err
	}
	return f.Close()
}

func loadVariants(finemapPath, statsPath string, pThreshold float64, windowBP int64, logger *zap.Logger) ([]*finemap.Variant, error) {
	switch {
	case finemapPath != "":
		variants, err := finemap.ReadTable(finemapPath)
		if err != nil {
			return nil, err
		}
		loci := finemap.NormalizeLoci(variants, logger)

		var kept []*finemap.Variant
		excluded := 0
		for _, locus := range loci {
			if locus.Excluded {
				excluded++
				continue
			}
			kept = append(kept, locus.Variants...)
		}
		logger.Info("normalized fine-mapping loci",
			zap.Int("loci", len(loci)),
			zap.Int("excluded_loci", excluded),
			zap.Int("variants", len(kept)))
		return kept, nil

	case statsPath != "":
		stats, err := finemap.ReadSummaryStats(statsPath)
		if err != nil {
			return nil, err
		}
		if pThreshold <= 0 {
			pThreshold = DefaultLeadPThreshold
		}
		if windowBP <= 0 {
			windowBP = DefaultLeadWindowBP
		}
		leads := finemap.ExtractLeads(stats, pThreshold, windowBP)
		logger.Info("extracted lead variants",
			zap.Int("rows", len(stats)),
			zap.Int("leads", len(leads)),
			zap.Float64("p_threshold", pThreshold))
		return leads, nil

	default:
		return nil, fmt.Errorf("no variant input: provide a fine-mapping table or summary statistics")
	}
}

// loadScores reads the prediction table, the DuckDB cache, or both
// merged, table values winning on conflicts.
func loadScores(scoresPath, cachePath string, logger *zap.Logger) (*predict.ScoreSet, error) {
	if scoresPath == "" && cachePath == "" {
		return nil, fmt.Errorf("no prediction input: provide a score table or a cache")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	set := predict.NewScoreSet()
	if cachePath != "" {
		store, err := duckdb.Open(cachePath)
		if err != nil {
			return nil, err
		}
		cached, err := store.LoadScores()
		store.Close()
		if err != nil {
			return nil, err
		}
		mergeScores(set, cached)
		logger.Info("loaded cached predictions", zap.Int("pairs", cached.Len()))
	}
	if scoresPath != "" {
		fromTable, err := predict.ReadTable(scoresPath)
		if err != nil {
			return nil, err
		}
		mergeScores(set, fromTable)
		logger.Info("loaded prediction table",
			zap.String("path", scoresPath),
			zap.Int("pairs", fromTable.Len()))
	}
	return set, nil
}

func mergeScores(dst, src *predict.ScoreSet) {
	for _, key := range src.Keys() {
		for _, m := range src.Modalities() {
			if v, ok := src.Get(key.Variant, key.Gene, m); ok {
				dst.Set(key.Variant, key.Gene, m, v)
			}
		}
	}
}

// loadUniverse reads the gene universe from a GENE,CHR,TSS table or,
// for .gtf/.gtf.gz inputs, from a GENCODE annotation restricted to
// protein-coding genes.
func loadUniverse(path string) (*genes.Universe, error) {
	low := strings.ToLower(path)
	if strings.HasSuffix(low, ".gtf") || strings.HasSuffix(low, ".gtf.gz") {
		return genes.ReadGTF(path, true)
	}
	return genes.ReadTable(path)
}

// ensureDir creates the directory for the given output path.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
