package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/regulomics/v2gscore/internal/enrich"
	"github.com/regulomics/v2gscore/internal/pipeline"
)

func newEnrichCmd() *cobra.Command {
	var cfg pipeline.EnrichConfig
	var peakFlags, referenceFlags []string

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Run enrichment testers against a calibrated gene table",
		Long: `Test the calibrated gene scores against external reference data:
pathway GSEA, cell-type open-chromatin enrichment, reference gene list
overlap, eQTL direction concordance, and effect directionality.

Peak files and reference lists are given as name=path pairs. Reference
data that is missing or unreadable produces a result row with an
"unavailable" status instead of aborting the run.`,
		Example: `  v2gscore enrich --gene-scores gene_scores.tsv --genes gene_universe.csv \
      --pathways pathways.yaml \
      --peaks Glutamatergic=iN_Glut.txt --peaks iPSC=iPSC.txt \
      --control-cell-type iPSC \
      --reference schema=schema_genes.txt \
      --finemap credible_sets.csv --output-dir results/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg.PeakFiles, err = parsePairs(peakFlags, "peaks")
			if err != nil {
				return err
			}
			cfg.ReferenceLists, err = parsePairs(referenceFlags, "reference")
			if err != nil {
				return err
			}
			if len(cfg.PeakFiles) > 0 && cfg.FinemapPath == "" {
				return fmt.Errorf("--peaks requires --finemap for variant positions")
			}
			return pipeline.RunEnrich(cfg, logger)
		},
	}

	cmd.Flags().StringVar(&cfg.GeneScoresPath, "gene-scores", "", "calibrated gene score table from the score stage")
	cmd.Flags().StringVar(&cfg.GenesPath, "genes", "", "gene universe table (GENE,CHR,TSS) or GENCODE GTF")
	cmd.Flags().StringVar(&cfg.PathwaysPath, "pathways", "", "pathway gene sets (YAML)")
	cmd.Flags().StringVar(&cfg.FinemapPath, "finemap", "", "fine-mapping table, needed for the cell-type tester")
	cmd.Flags().StringArrayVar(&peakFlags, "peaks", nil, "cell-type peak file as name=path (repeatable)")
	cmd.Flags().StringVar(&cfg.ControlCellType, "control-cell-type", "iPSC", "control cell type for the Fisher comparison")
	cmd.Flags().Float64Var(&cfg.GenomeSize, "genome-size", enrich.DefaultGenomeSize, "mappable genome size in bp")
	cmd.Flags().StringArrayVar(&referenceFlags, "reference", nil, "reference gene list as name=path (repeatable)")
	cmd.Flags().IntVar(&cfg.TopN, "top-n", enrich.DefaultTopN, "top gene set size for overlap tests")
	cmd.Flags().StringVar(&cfg.ScoresPath, "scores", "", "raw prediction table, needed for eQTL concordance")
	cmd.Flags().StringVar(&cfg.EQTLPath, "eqtl", "", "eQTL reference table (SNP,GENE,SLOPE)")
	cmd.Flags().StringVarP(&cfg.OutputDir, "output-dir", "o", "results", "directory for result tables")

	cmd.MarkFlagRequired("gene-scores")
	cmd.MarkFlagRequired("genes")

	return cmd
}

func parsePairs(flags []string, name string) (map[string]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	pairs := make(map[string]string, len(flags))
	for _, f := range flags {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("--%s %q: expected name=path", name, f)
		}
		pairs[key] = value
	}
	return pairs, nil
}
