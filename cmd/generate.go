package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ga4gh-tools/svcreg/internal/domain/submission"
	"github.com/ga4gh-tools/svcreg/internal/fsutil"
	"github.com/ga4gh-tools/svcreg/internal/infrastructure/spreadsheet"
	"github.com/ga4gh-tools/svcreg/internal/log"
)

var (
	genInput     string
	genSheet     string
	genMapping   string
	genOutput    string
	genDropEmpty bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Build registry submission JSON from a spreadsheet",
	Long: `Read a spreadsheet of service entries (Excel, CSV, or TSV) and a YAML
mapping config, and write the registry submission records as JSON.

The mapping config binds spreadsheet columns to JSON fields using
dot-paths, declares constants, and lists passthrough columns carried
into each record's x-extra object.

Examples:
  # Generate from the registry form export
  svcreg generate --input services.xlsx --mapping mapping.yaml

  # A specific worksheet, dropping rows with no mapped values
  svcreg generate -i services.xlsx --sheet Submissions -m mapping.yaml --drop-empty`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&genInput, "input", "i", "",
		"spreadsheet file (.xlsx, .csv, or .tsv)")
	generateCmd.Flags().StringVar(&genSheet, "sheet", "",
		"worksheet name for Excel inputs (default: first sheet)")
	generateCmd.Flags().StringVarP(&genMapping, "mapping", "m", "",
		"YAML mapping config file")
	generateCmd.Flags().StringVarP(&genOutput, "output", "o", "",
		"output JSON file (overrides config)")
	generateCmd.Flags().BoolVar(&genDropEmpty, "drop-empty", false,
		"drop rows that map no non-constant values")

	_ = generateCmd.MarkFlagRequired("input")
	_ = generateCmd.MarkFlagRequired("mapping")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cleanup, err := initLogging()
	if err != nil {
		return err
	}
	defer cleanup()

	provider, err := newTracing()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	defer func() { _ = provider.Shutdown(ctx) }()

	_, span := provider.Tracer().Start(ctx, "generate")
	defer span.End()

	output := genOutput
	if output == "" {
		output = cfg.Generate.Output
	}

	mcfg, err := submission.LoadConfig(genMapping)
	if err != nil {
		return fmt.Errorf("loading mapping config: %w", err)
	}

	table, err := spreadsheet.LoadTable(genInput, genSheet)
	if err != nil {
		return fmt.Errorf("loading spreadsheet: %w", err)
	}
	log.Info(log.CatGenerate, "loaded spreadsheet", "path", genInput, "rows", len(table.Rows))

	records, err := submission.BuildRecords(table, mcfg, genDropEmpty)
	if err != nil {
		return fmt.Errorf("building records: %w", err)
	}

	var doc any = records
	if mcfg.ArrayName != "" {
		doc = map[string]any{mcfg.ArrayName: records}
	}

	if err := fsutil.WriteAtomic(output, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(doc)
	}); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}

	log.Info(log.CatGenerate, "submission JSON written", "path", output, "records", len(records))
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d records to %s\n", len(records), output)
	return nil
}
