package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/licitarag/internal/extractor"
	"github.com/xxxsen/licitarag/internal/tableio"
)

// newExtractCmd runs one municipality strategy over an already converted
// markdown file. It needs no config, AI provider or uploader.
func newExtractCmd() *cobra.Command {
	var (
		municipio string
		input     string
		format    string
		output    string
		catRange  int
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "extract the item table of a converted edital",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" || output == "" {
				return fmt.Errorf("--input and --output are required")
			}
			raw, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			d := extractor.NewDispatcher(extractor.Config{MorrinhosCategoryRange: catRange})
			table, err := d.Dispatch(municipio, string(raw))
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			switch strings.ToLower(format) {
			case "csv":
				err = tableio.WriteCSV(&buf, table)
			case "xlsx":
				err = tableio.WriteExcel(&buf, table)
			default:
				return fmt.Errorf("unsupported format %q", format)
			}
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			logutil.GetLogger(context.Background()).Info("table written",
				zap.String("municipio", municipio),
				zap.Int("rows", table.Len()),
				zap.String("output", output),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&municipio, "municipio", "", "municipality of the edital")
	cmd.Flags().StringVar(&input, "input", "", "markdown file produced by the converter")
	cmd.Flags().StringVar(&format, "format", "csv", "csv or xlsx")
	cmd.Flags().StringVar(&output, "output", "", "output file")
	cmd.Flags().IntVar(&catRange, "morrinhos-category-range", 0, "item code range of a morrinhos category")
	return cmd
}
