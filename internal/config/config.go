package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
	"gopkg.in/yaml.v3"
)

const (
	EnvAIAPIKey          = "LICITARAG_AI_API_KEY"
	EnvFileTokenSecret   = "LICITARAG_FILE_TOKEN_SECRET"
	EnvDatabaseDSN       = "LICITARAG_DB_DSN"
	defaultUploaderURL   = "http://localhost:8000/main/pdf/upload"
	defaultOutputColumn  = "Produto_base_db"
	defaultCatalogNames  = "catalog_names.txt"
	defaultCatalogMatrix = "catalog_embeddings.gob"
)

type Config struct {
	Port        int              `json:"port"`
	LogConfig   logger.LogConfig `json:"log_config"`
	FileStore   FileStoreConfig  `json:"file_store"`
	Database    DatabaseConfig   `json:"database"`
	CORSOrigins []string         `json:"cors_origins"`
	AI          AIConfig         `json:"ai"`
	RAG         RAGConfig        `json:"rag"`
	Matcher     MatcherConfig    `json:"matcher"`
	Extractor   ExtractorConfig  `json:"extractor"`
	Uploader    UploaderConfig   `json:"uploader"`
	Files       FilesConfig      `json:"files"`
	Schedule    ScheduleConfig   `json:"schedule"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// DatabaseConfig is optional. Without a DSN or host the service runs with no
// document records and no persistent embedding cache.
type DatabaseConfig struct {
	DSN          string `json:"dsn"`
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Password     string `json:"password"`
	DBName       string `json:"dbname"`
	SSLMode      string `json:"sslmode"`
	MaxOpenConns int    `json:"max_open_conns"`
}

func (d DatabaseConfig) Enabled() bool {
	return d.DSN != "" || d.Host != ""
}

type AIProviderConfig struct {
	Name string      `json:"name"`
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type AIConfig struct {
	Providers         []AIProviderConfig `json:"providers"`
	ChatModel         string             `json:"chat_model"`
	EmbedModel        string             `json:"embed_model"`
	Timeout           int                `json:"timeout"`
	RequestsPerSecond float64            `json:"requests_per_second"`
	Burst             int                `json:"burst"`
}

type RAGConfig struct {
	ChunkSize            int  `json:"chunk_size"`
	ChunkOverlap         int  `json:"chunk_overlap"`
	FallbackChunkSize    int  `json:"fallback_chunk_size"`
	FallbackChunkOverlap int  `json:"fallback_chunk_overlap"`
	Concurrency          int  `json:"concurrency"`
	TopK                 int  `json:"top_k"`
	MaxTokens            int  `json:"max_tokens"`
	MaxContextTokens     int  `json:"max_context_tokens"`
	QueryCacheSize       int  `json:"query_cache_size"`
	QueryCacheTTL        int  `json:"query_cache_ttl"`
	RestoreOnMiss        bool `json:"restore_on_miss"`
}

type MatcherConfig struct {
	Threshold            float64 `json:"threshold"`
	OutputColumn         string  `json:"output_column"`
	CatalogNamesKey      string  `json:"catalog_names_key"`
	CatalogEmbeddingsKey string  `json:"catalog_embeddings_key"`
	ReloadCron           string  `json:"reload_cron"`
}

type ExtractorConfig struct {
	MorrinhosCategoryRange int      `json:"morrinhos_category_range"`
	FallbackOrder          []string `json:"fallback_order"`
}

type UploaderConfig struct {
	URL     string `json:"url"`
	Timeout int    `json:"timeout"`
}

type FilesConfig struct {
	TokenSecret   string `json:"token_secret"`
	TokenTTLHours int    `json:"token_ttl_hours"`
}

type ScheduleConfig struct {
	EmbeddingCacheCleanupCron string `json:"embedding_cache_cleanup_cron"`
	EmbeddingCacheMaxAgeDays  int    `json:"embedding_cache_max_age_days"`
}

// Load reads a JSON or YAML config. A .env file next to the working
// directory is loaded first; secrets in the environment override the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	cfg, err := Parse(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	applyEnv(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Parse decodes raw config bytes. YAML goes through a generic map and then
// the JSON tags, so both formats share one set of keys.
func Parse(raw []byte, ext string) (*Config, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var generic interface{}
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			return nil, fmt.Errorf("decode yaml config: %w", err)
		}
		data, err := json.Marshal(generic)
		if err != nil {
			return nil, fmt.Errorf("convert yaml config: %w", err)
		}
		raw = data
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvAIAPIKey)); v != "" {
		for i := range cfg.AI.Providers {
			data, ok := cfg.AI.Providers[i].Data.(map[string]interface{})
			if !ok {
				data = map[string]interface{}{}
			}
			if s, _ := data["api_key"].(string); s == "" {
				data["api_key"] = v
			}
			cfg.AI.Providers[i].Data = data
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvFileTokenSecret)); v != "" {
		cfg.Files.TokenSecret = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDatabaseDSN)); v != "" {
		cfg.Database.DSN = v
	}
}

func (c *Config) validate() error {
	if c.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if c.FileStore.Type == "" {
		return fmt.Errorf("file_store.type is required")
	}
	if len(c.AI.Providers) == 0 {
		return fmt.Errorf("ai.providers requires at least one provider")
	}
	for i, p := range c.AI.Providers {
		if strings.TrimSpace(p.Type) == "" {
			return fmt.Errorf("ai.providers[%d].type is required", i)
		}
	}
	if c.Files.TokenSecret == "" {
		return fmt.Errorf("files.token_secret is required")
	}
	if c.Matcher.Threshold < -1 || c.Matcher.Threshold > 1 {
		return fmt.Errorf("matcher.threshold must be within [-1, 1]")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	for i := range c.AI.Providers {
		if c.AI.Providers[i].Name == "" {
			c.AI.Providers[i].Name = c.AI.Providers[i].Type
		}
	}
	if c.AI.ChatModel == "" {
		c.AI.ChatModel = "gpt-4o"
	}
	if c.AI.EmbedModel == "" {
		c.AI.EmbedModel = "text-embedding-3-large"
	}
	if c.AI.Timeout <= 0 {
		c.AI.Timeout = 60
	}
	if c.RAG.ChunkSize <= 0 {
		c.RAG.ChunkSize = 1024
	}
	if c.RAG.ChunkOverlap <= 0 {
		c.RAG.ChunkOverlap = 200
	}
	if c.RAG.FallbackChunkSize <= 0 {
		c.RAG.FallbackChunkSize = 512
	}
	if c.RAG.FallbackChunkOverlap <= 0 {
		c.RAG.FallbackChunkOverlap = 60
	}
	if c.RAG.Concurrency <= 0 {
		c.RAG.Concurrency = 10
	}
	if c.RAG.TopK <= 0 {
		c.RAG.TopK = 1
	}
	if c.RAG.MaxTokens <= 0 {
		c.RAG.MaxTokens = 500
	}
	if c.RAG.QueryCacheSize <= 0 {
		c.RAG.QueryCacheSize = 1024
	}
	if c.RAG.QueryCacheTTL <= 0 {
		c.RAG.QueryCacheTTL = 3600
	}
	if c.Matcher.Threshold == 0 {
		c.Matcher.Threshold = 0.5
	}
	if c.Matcher.OutputColumn == "" {
		c.Matcher.OutputColumn = defaultOutputColumn
	}
	if c.Matcher.CatalogNamesKey == "" {
		c.Matcher.CatalogNamesKey = defaultCatalogNames
	}
	if c.Matcher.CatalogEmbeddingsKey == "" {
		c.Matcher.CatalogEmbeddingsKey = defaultCatalogMatrix
	}
	if c.Extractor.MorrinhosCategoryRange <= 0 {
		c.Extractor.MorrinhosCategoryRange = 10000
	}
	if c.Uploader.URL == "" {
		c.Uploader.URL = defaultUploaderURL
	}
	if c.Uploader.Timeout <= 0 {
		c.Uploader.Timeout = 120
	}
	if c.Files.TokenTTLHours <= 0 {
		c.Files.TokenTTLHours = 24
	}
	if c.Schedule.EmbeddingCacheMaxAgeDays <= 0 {
		c.Schedule.EmbeddingCacheMaxAgeDays = 30
	}
	if c.Schedule.EmbeddingCacheCleanupCron == "" {
		c.Schedule.EmbeddingCacheCleanupCron = "0 3 * * *"
	}
}
