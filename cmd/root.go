// Package cmd implements the cardiorisk command line.
package cmd

import (
	"cardiorisk/config"
	"cardiorisk/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:          "cardiorisk",
	Short:        "Cardiac risk scoring service",
	Long:         "cardiorisk scores heart disease risk from 13 clinical measurements, using a trained model when one is available and a rule-based heuristic otherwise.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "config.yaml", "Path to YAML config file (CARDIORISK_* env vars override it)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(artifactsCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the file named by --config and builds the logger for it.
func loadConfig(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(cfg.Log), nil
}

// overrideArtifacts applies --model and --scaler when given.
func overrideArtifacts(cmd *cobra.Command, cfg *config.Config) {
	if p, _ := cmd.Flags().GetString("model"); p != "" {
		cfg.ML.ModelPath = p
	}
	if p, _ := cmd.Flags().GetString("scaler"); p != "" {
		cfg.ML.ScalerPath = p
	}
}

func addArtifactFlags(cmd *cobra.Command) {
	cmd.Flags().String("model", "", "Classifier artifact path (overrides ml.model_path)")
	cmd.Flags().String("scaler", "", "Scaler artifact path (overrides ml.scaler_path)")
}
