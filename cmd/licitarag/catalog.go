package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/licitarag/internal/filestore"
	"github.com/xxxsen/licitarag/internal/matcher"
)

func newCatalogCmd() *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "manage the product catalog used for matching",
	}

	var (
		configPath  string
		namesPath   string
		concurrency int
	)
	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "embed a product name list and store it as the matching catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if namesPath == "" {
				return fmt.Errorf("--names is required")
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(namesPath)
			if err != nil {
				return fmt.Errorf("read names: %w", err)
			}
			names := matcher.ParseNames(raw)
			if len(names) == 0 {
				return fmt.Errorf("no product names in %s", namesPath)
			}
			store, err := filestore.New(cfg.FileStore)
			if err != nil {
				return fmt.Errorf("init file store: %w", err)
			}
			manager, err := buildAI(cfg)
			if err != nil {
				return err
			}
			ctx := context.Background()
			matrix, err := matcher.BuildCatalog(ctx, manager, names, concurrency)
			if err != nil {
				return err
			}
			if err := matcher.SaveCatalog(ctx, store, cfg.Matcher.CatalogNamesKey, cfg.Matcher.CatalogEmbeddingsKey, names, matrix); err != nil {
				return err
			}
			logutil.GetLogger(ctx).Info("catalog built",
				zap.Int("products", len(names)),
				zap.String("names_key", cfg.Matcher.CatalogNamesKey),
				zap.String("embeddings_key", cfg.Matcher.CatalogEmbeddingsKey),
			)
			return nil
		},
	}
	buildCmd.Flags().StringVar(&configPath, "config", "", "path to config.json or config.yaml")
	buildCmd.Flags().StringVar(&namesPath, "names", "", "text file with one product name per line")
	buildCmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel embedding requests")
	catalogCmd.AddCommand(buildCmd)
	return catalogCmd
}
