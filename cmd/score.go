package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"cardiorisk/engine"
	"cardiorisk/ml"
	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score one patient from a JSON file",
	Long:  "Score one patient offline. The input is a JSON object with the 13 clinical fields; other keys are ignored. Use --input - to read stdin.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()
		overrideArtifacts(cmd, cfg)

		input, _ := cmd.Flags().GetString("input")
		payload, err := readInput(cmd, input)
		if err != nil {
			return err
		}
		fields, err := parseFields(payload)
		if err != nil {
			return err
		}

		artifacts := engine.LoadArtifacts(cfg.ML.ModelPath, cfg.ML.ScalerPath, logger)
		eng, err := engine.New(artifacts, engine.WithLogger(logger))
		if err != nil {
			return err
		}
		result, err := eng.Assess(fields)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		printResult(cmd.OutOrStdout(), eng.Mode(), result)
		return nil
	},
}

func init() {
	scoreCmd.Flags().StringP("input", "i", "-", "Patient JSON file, or - for stdin")
	scoreCmd.Flags().Bool("json", false, "Print the result as JSON")
	addArtifactFlags(scoreCmd)
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" || path == "" {
		return io.ReadAll(cmd.InOrStdin())
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return payload, nil
}

// parseFields extracts the clinical fields from a JSON object. Values that
// are not numbers are reported as schema errors.
func parseFields(payload []byte) (ml.Fields, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}

	fields := make(ml.Fields, ml.FeatureCount)
	var problems []ml.FieldError
	for _, name := range ml.FeatureNames() {
		value, ok := raw[name]
		if !ok {
			continue
		}
		var f float64
		if err := json.Unmarshal(value, &f); err != nil {
			problems = append(problems, ml.FieldError{Field: name, Reason: "must be a number"})
			continue
		}
		fields[name] = f
	}
	if len(problems) > 0 {
		return nil, &ml.SchemaError{Fields: problems}
	}
	return fields, nil
}

func printResult(w io.Writer, mode engine.Mode, r engine.Result) {
	fmt.Fprintf(w, "Risk level:   %s\n", r.Tier)
	fmt.Fprintf(w, "Probability:  %.2f%%\n", r.RiskPercent)
	fmt.Fprintf(w, "Prediction:   %d\n", r.Prediction)
	fmt.Fprintf(w, "Confidence:   %.4f\n", r.Confidence)
	fmt.Fprintf(w, "Provenance:   %s (%s)\n", r.Provenance, mode)
	if r.ModelName != "" {
		fmt.Fprintf(w, "Model:        %s\n", r.ModelName)
	}
}
