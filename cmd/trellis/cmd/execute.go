package cmd

import (
	"encoding/json"
	"io"
	"os"

	"github.com/Ramsey-B/trellis/pkg/mapping"
	"github.com/Ramsey-B/trellis/pkg/registry"
	"github.com/Ramsey-B/trellis/pkg/transform"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var executeCmd = &cobra.Command{
	Use:   "execute",
	Short: "Run a mapping document against a JSON input without a database",
	Long: `Run an exported mapping document against a JSON input file and print the
target instance. An input array is mapped item by item.`,
	RunE: runExecute,
}

func init() {
	rootCmd.AddCommand(executeCmd)

	executeCmd.Flags().String("mapping", "", "exported mapping document")
	executeCmd.Flags().String("input", "-", "source data, - reads stdin")
	executeCmd.Flags().Bool("indent", true, "indent the output")
	_ = executeCmd.MarkFlagRequired("mapping")
}

func runExecute(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, zapLogger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = zapLogger.Sync() }()

	mappingPath, _ := cmd.Flags().GetString("mapping")
	inputPath, _ := cmd.Flags().GetString("input")
	indent, _ := cmd.Flags().GetBool("indent")

	raw, err := os.ReadFile(mappingPath)
	if err != nil {
		return errors.Wrap(err, "failed to read mapping document")
	}
	doc, err := registry.DecodeDocument(raw)
	if err != nil {
		return err
	}

	data, err := readInput(cmd, inputPath)
	if err != nil {
		return err
	}
	var source any
	if err := json.Unmarshal(data, &source); err != nil {
		return errors.Wrap(err, "input is not valid JSON")
	}

	executor := mapping.NewExecutor(logger, transform.NewEvaluator(logger))
	if err := executor.Validate(doc); err != nil {
		return err
	}
	plan, err := mapping.Compile(doc)
	if err != nil {
		return err
	}

	var output any
	if items, ok := source.([]any); ok {
		results := make([]map[string]any, 0, len(items))
		for _, item := range items {
			result, err := executor.Execute(cmd.Context(), plan, item)
			if err != nil {
				return err
			}
			results = append(results, result)
		}
		output = results
	} else {
		output, err = executor.Execute(cmd.Context(), plan, source)
		if err != nil {
			return err
		}
	}

	return writeJSON(cmd.OutOrStdout(), output, indent)
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return data, errors.Wrap(err, "failed to read stdin")
	}
	data, err := os.ReadFile(path)
	return data, errors.Wrap(err, "failed to read input")
}

func writeJSON(w io.Writer, value any, indent bool) error {
	encoder := json.NewEncoder(w)
	if indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(value)
}
