package cmd

import (
	"fmt"
	"io"

	"cardiorisk/engine"
	"cardiorisk/ml"
	"github.com/spf13/cobra"
)

var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "Check that the configured model artifacts load",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()
		overrideArtifacts(cmd, cfg)

		artifacts := engine.LoadArtifacts(cfg.ML.ModelPath, cfg.ML.ScalerPath, logger)
		eng, err := engine.New(artifacts, engine.WithLogger(logger))
		if err != nil {
			return err
		}
		printArtifacts(cmd.OutOrStdout(), eng)
		return nil
	},
}

func init() {
	addArtifactFlags(artifactsCmd)
}

func printArtifacts(w io.Writer, eng *engine.Engine) {
	state := eng.Artifacts()
	fmt.Fprintf(w, "Schema:  %s (%d features)\n", ml.SchemaVersion, ml.FeatureCount)
	fmt.Fprintf(w, "Mode:    %s\n", eng.Mode())
	for _, a := range []struct {
		label  string
		status engine.ArtifactStatus
	}{{"Model", state.Model}, {"Scaler", state.Scaler}} {
		if a.status.Loaded {
			fmt.Fprintf(w, "%-8s %s: loaded\n", a.label+":", a.status.Path)
			continue
		}
		fmt.Fprintf(w, "%-8s %s: %s\n", a.label+":", a.status.Path, a.status.Error())
	}
}
