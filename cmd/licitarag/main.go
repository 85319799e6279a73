package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/licitarag/internal/ai"
	"github.com/xxxsen/licitarag/internal/chunker"
	"github.com/xxxsen/licitarag/internal/config"
	"github.com/xxxsen/licitarag/internal/db"
	"github.com/xxxsen/licitarag/internal/embedcache"
	"github.com/xxxsen/licitarag/internal/extractor"
	"github.com/xxxsen/licitarag/internal/filestore"
	"github.com/xxxsen/licitarag/internal/handler"
	"github.com/xxxsen/licitarag/internal/job"
	"github.com/xxxsen/licitarag/internal/matcher"
	"github.com/xxxsen/licitarag/internal/metadata"
	"github.com/xxxsen/licitarag/internal/middleware"
	"github.com/xxxsen/licitarag/internal/rag"
	"github.com/xxxsen/licitarag/internal/repo"
	"github.com/xxxsen/licitarag/internal/schedule"
	"github.com/xxxsen/licitarag/internal/service"
	"github.com/xxxsen/licitarag/internal/uploader"
)

const chatRateLimit = 2 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:   "licitarag",
		Short: "bidding document extraction and question answering",
	}
	rootCmd.AddCommand(newRunCmd(), newExtractCmd(), newCatalogCmd())

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func newRunCmd() *cobra.Command {
	var configPath string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run licitarag server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			var sqlDB *sql.DB
			if cfg.Database.Enabled() {
				sqlDB, err = db.Open(cfg.Database)
				if err != nil {
					return fmt.Errorf("open db: %w", err)
				}
				defer sqlDB.Close()
				if err := db.ApplyMigrations(sqlDB); err != nil {
					return fmt.Errorf("migrations: %w", err)
				}
			}
			return runServer(cfg, sqlDB)
		},
	}
	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json or config.yaml")
	return runCmd
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
	return cfg, nil
}

// buildAI creates one completer and one embedder per configured provider and
// groups them so a failing provider falls through to the next.
func buildAI(cfg *config.Config) (*ai.Manager, error) {
	completers := make([]ai.CompleterEntry, 0, len(cfg.AI.Providers))
	embedders := make([]ai.EmbedderEntry, 0, len(cfg.AI.Providers))
	for _, p := range cfg.AI.Providers {
		provider, err := ai.NewProvider(p.Type, p.Data)
		if err != nil {
			return nil, fmt.Errorf("init ai provider %s: %w", p.Name, err)
		}
		completers = append(completers, ai.CompleterEntry{Name: p.Name, Completer: ai.NewCompleter(provider, cfg.AI.ChatModel)})
		embedders = append(embedders, ai.EmbedderEntry{Name: p.Name, Embedder: ai.NewEmbedder(provider, cfg.AI.EmbedModel)})
	}
	return ai.NewManager(ai.NewGroupCompleter(completers), ai.NewGroupEmbedder(embedders), ai.ManagerConfig{
		Timeout:           time.Duration(cfg.AI.Timeout) * time.Second,
		RequestsPerSecond: cfg.AI.RequestsPerSecond,
		Burst:             cfg.AI.Burst,
	}), nil
}

func runServer(cfg *config.Config, sqlDB *sql.DB) error {
	log := logutil.GetLogger(context.Background())
	log.Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.Bool("database", sqlDB != nil),
		zap.String("file_store", cfg.FileStore.Type),
	)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}
	manager, err := buildAI(cfg)
	if err != nil {
		return err
	}

	var embedder ai.IEmbedder = manager
	var docRepo *repo.DocumentRepo
	var cacheRepo *repo.EmbeddingCacheRepo
	if sqlDB != nil {
		docRepo = repo.NewDocumentRepo(sqlDB)
		cacheRepo = repo.NewEmbeddingCacheRepo(sqlDB)
		embedder = embedcache.WrapDBCacheToEmbedder(embedder, cacheRepo)
	}
	embedder = embedcache.WrapLruCacheToEmbedder(embedder, cfg.RAG.QueryCacheSize, time.Duration(cfg.RAG.QueryCacheTTL)*time.Second)

	ch := chunker.New(chunker.Config{
		ChunkSize:            cfg.RAG.ChunkSize,
		ChunkOverlap:         cfg.RAG.ChunkOverlap,
		FallbackChunkSize:    cfg.RAG.FallbackChunkSize,
		FallbackChunkOverlap: cfg.RAG.FallbackChunkOverlap,
	})
	engine := rag.NewEngine(ch, embedder, manager, rag.NewDocumentStore(), store, rag.Options{
		Concurrency:      cfg.RAG.Concurrency,
		MaxContextTokens: cfg.RAG.MaxContextTokens,
		RestoreOnMiss:    cfg.RAG.RestoreOnMiss,
	})

	holder := matcher.NewHolder(nil)
	catalog, err := matcher.LoadCatalog(context.Background(), store, cfg.Matcher.CatalogNamesKey, cfg.Matcher.CatalogEmbeddingsKey)
	if err != nil {
		log.Warn("product catalog not loaded, matching disabled", zap.Error(err))
	} else {
		holder.Set(catalog)
		log.Info("product catalog loaded", zap.Int("products", catalog.Len()))
	}

	dispatcher := extractor.NewDispatcher(extractor.Config{MorrinhosCategoryRange: cfg.Extractor.MorrinhosCategoryRange})
	fallback, err := extractor.NewFallbackChain(dispatcher, cfg.Extractor.FallbackOrder, extractor.RequireRows)
	if err != nil {
		return err
	}
	meta := metadata.New(manager)
	signer := service.NewFileSigner(cfg.Files.TokenSecret, time.Duration(cfg.Files.TokenTTLHours)*time.Hour, "/api/v1/files")

	processDeps := service.ProcessDeps{
		Uploader:   uploader.New(cfg.Uploader.URL, time.Duration(cfg.Uploader.Timeout)*time.Second),
		Metadata:   meta,
		Engine:     engine,
		Dispatcher: dispatcher,
		Fallback:   fallback,
		Files:      store,
		Matcher:    matcher.New(embedder, holder, cfg.Matcher.OutputColumn),
		Threshold:  cfg.Matcher.Threshold,
		Signer:     signer,
	}
	if docRepo != nil {
		processDeps.Documents = docRepo
	}
	processService := service.NewProcessService(processDeps)
	chatService := service.NewChatService(engine, meta, cfg.RAG.TopK, cfg.RAG.MaxTokens)

	deps := handler.RouterDeps{
		Process:       handler.NewProcessHandler(processService, handler.DefaultMaxUploadBytes),
		Chat:          handler.NewChatHandler(chatService),
		Documents:     handler.NewDocumentHandler(processService),
		Files:         handler.NewFileHandler(service.NewFileService(store, signer)),
		ChatRateLimit: chatRateLimit,
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	webEngine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if cacheRepo != nil {
		if err := scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(cacheRepo, cfg.Schedule.EmbeddingCacheMaxAgeDays), cfg.Schedule.EmbeddingCacheCleanupCron); err != nil {
			return fmt.Errorf("schedule cache cleanup: %w", err)
		}
	}
	if cfg.Matcher.ReloadCron != "" {
		reload := job.NewCatalogReloadJob(store, holder, cfg.Matcher.CatalogNamesKey, cfg.Matcher.CatalogEmbeddingsKey)
		if err := scheduler.AddJob(reload, cfg.Matcher.ReloadCron); err != nil {
			return fmt.Errorf("schedule catalog reload: %w", err)
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	log.Info("http server listening", zap.String("addr", addr))
	go func() {
		if err := webEngine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	if hits, misses, ok := embedcache.LruStats(embedder); ok {
		log.Info("query embedding cache", zap.Uint64("hits", hits), zap.Uint64("misses", misses))
	}
	log.Info("server stopping...")
	return nil
}
