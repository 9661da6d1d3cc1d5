package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/regulomics/v2gscore/internal/pipeline"
)

func newPredictCmd() *cobra.Command {
	var cfg pipeline.PredictConfig

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Fetch regulatory predictions from the prediction API",
		Long: `Query the regulatory-prediction API for variants missing from the local
DuckDB cache, append the responses to the cache, and rewrite the
canonical prediction table from the full cache contents.

The API key is read from --api-key, the api_key config entry, or the
V2GSCORE_API_KEY environment variable.`,
		Example: `  v2gscore predict --finemap credible_sets.csv \
      --cache predictions.duckdb --scores predictions.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.APIKey == "" {
				cfg.APIKey = viper.GetString("api_key")
			}
			if cfg.APIKey == "" {
				return fmt.Errorf("no API key: set --api-key, the api_key config entry, or V2GSCORE_API_KEY")
			}
			if cfg.BaseURL == "" {
				cfg.BaseURL = viper.GetString("api_url")
			}
			if cfg.BaseURL == "" {
				return fmt.Errorf("no API URL: set --api-url or the api_url config entry")
			}
			return pipeline.RunPredict(cfg, logger)
		},
	}

	cmd.Flags().StringVar(&cfg.FinemapPath, "finemap", "", "fine-mapping table (SNP,CHR,BP,LOCUS,PIP)")
	cmd.Flags().StringVar(&cfg.SummaryStatsPath, "summary-stats", "", "GWAS summary statistics (tab-separated, SNP/CHR/BP/P)")
	cmd.Flags().Float64Var(&cfg.PThreshold, "p-threshold", pipeline.DefaultLeadPThreshold, "lead variant p-value threshold")
	cmd.Flags().Int64Var(&cfg.LeadWindowBP, "lead-window", pipeline.DefaultLeadWindowBP, "lead variant pruning distance in bp")
	cmd.Flags().StringVar(&cfg.BaseURL, "api-url", "", "prediction API base URL")
	cmd.Flags().StringVar(&cfg.APIKey, "api-key", "", "prediction API key")
	cmd.Flags().StringVar(&cfg.CachePath, "cache", "predictions.duckdb", "DuckDB prediction cache")
	cmd.Flags().StringVar(&cfg.ScoresPath, "scores", "predictions.csv", "canonical prediction table destination")

	return cmd
}
