package main

import (
	"github.com/spf13/cobra"

	"github.com/regulomics/v2gscore/internal/pipeline"
	"github.com/regulomics/v2gscore/internal/v2g"
)

func newScoreCmd() *cobra.Command {
	var cfg pipeline.ScoreConfig

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute calibrated gene regulatory scores",
		Long: `Normalize fine-mapping posterior probabilities per locus, map variants
to candidate target genes through the linear window and chromatin loops,
aggregate z-scored prediction values into per-gene composite scores, and
calibrate them against the gene universe.`,
		Example: `  v2gscore score --finemap credible_sets.csv --genes gene_universe.csv \
      --scores predictions.csv --output gene_scores.tsv

  # From GWAS summary statistics instead of a fine-mapping table
  v2gscore score --summary-stats gwas.tsv --genes gene_universe.csv \
      --scores predictions.csv --output gene_scores.tsv

  # With chromatin loops and the DuckDB prediction cache
  v2gscore score --finemap credible_sets.csv --genes gene_universe.csv \
      --loops adultbrain_hic.bedpe --cache predictions.duckdb \
      --output gene_scores.tsv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pipeline.RunScore(cfg, logger)
		},
	}

	cmd.Flags().StringVar(&cfg.FinemapPath, "finemap", "", "fine-mapping table (SNP,CHR,BP,LOCUS,PIP)")
	cmd.Flags().StringVar(&cfg.SummaryStatsPath, "summary-stats", "", "GWAS summary statistics (tab-separated, SNP/CHR/BP/P)")
	cmd.Flags().Float64Var(&cfg.PThreshold, "p-threshold", pipeline.DefaultLeadPThreshold, "lead variant p-value threshold")
	cmd.Flags().Int64Var(&cfg.LeadWindowBP, "lead-window", pipeline.DefaultLeadWindowBP, "lead variant pruning distance in bp")
	cmd.Flags().StringVar(&cfg.GenesPath, "genes", "", "gene universe table (GENE,CHR,TSS) or GENCODE GTF")
	cmd.Flags().StringVar(&cfg.LoopsPath, "loops", "", "chromatin loops in BEDPE format")
	cmd.Flags().Int64Var(&cfg.HalfWindow, "half-window", v2g.DefaultHalfWindow, "linear mapping half-window in bp")
	cmd.Flags().StringVar(&cfg.ScoresPath, "scores", "", "prediction score table")
	cmd.Flags().StringVar(&cfg.CachePath, "cache", "", "DuckDB prediction cache")
	cmd.Flags().StringVarP(&cfg.OutputPath, "output", "o", "gene_scores.tsv", "gene score table destination")

	cmd.MarkFlagRequired("genes")

	return cmd
}
