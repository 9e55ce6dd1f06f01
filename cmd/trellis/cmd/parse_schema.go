package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Ramsey-B/trellis/pkg/schema"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var parseSchemaCmd = &cobra.Command{
	Use:   "parse-schema",
	Short: "Print the field tree of a JSON or YAML schema",
	RunE:  runParseSchema,
}

func init() {
	rootCmd.AddCommand(parseSchemaCmd)

	parseSchemaCmd.Flags().String("schema", "", "JSON or YAML schema file")
	parseSchemaCmd.Flags().String("name", "", "schema name (default file name)")
	parseSchemaCmd.Flags().StringSlice("model", nil, "schema files that $ref may resolve by name")
	_ = parseSchemaCmd.MarkFlagRequired("schema")
}

func runParseSchema(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("schema")
	name, _ := cmd.Flags().GetString("name")
	models, _ := cmd.Flags().GetStringSlice("model")

	parser := schema.NewParser()
	for _, model := range models {
		doc, err := os.ReadFile(model)
		if err != nil {
			return errors.Wrapf(err, "failed to read model %s", model)
		}
		if err := parser.RegisterModel(baseName(model), doc); err != nil {
			return err
		}
	}

	doc, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read schema")
	}
	if name == "" {
		name = baseName(path)
	}

	parsed, err := parser.Parse(doc, name)
	if err != nil {
		return err
	}

	return writeJSON(cmd.OutOrStdout(), parsed, true)
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
