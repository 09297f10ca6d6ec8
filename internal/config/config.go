package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int               `json:"port"`
	JWTSecret     string            `json:"jwt_secret"`
	JWTTTLHours   int               `json:"jwt_ttl_hours"`
	CORSAllowlist []string          `json:"cors_allowlist"`
	LogConfig     logger.LogConfig  `json:"log_config"`
	Database      DatabaseConfig    `json:"database"`
	VectorIndex   VectorIndexConfig `json:"vector_index"`
	TextStorePath string            `json:"text_store_path"`
	CorpusStore   CorpusStoreConfig `json:"corpus_store"`
	AI            AIConfig          `json:"ai"`
	Chat          ChatConfig        `json:"chat"`
	ReconcileCron string            `json:"reconcile_cron"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

// VectorIndexConfig selects the similarity-search backend. Data is decoded
// by the chosen backend itself (pgvector: dsn/table; redis: addr/index).
type VectorIndexConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type CorpusStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type AIConfig struct {
	Provider            string      `json:"provider"`
	Data                interface{} `json:"data"`
	FallbackProvider    string      `json:"fallback_provider"`
	FallbackData        interface{} `json:"fallback_data"`
	GenerationModel     string      `json:"generation_model"`
	ClassificationModel string      `json:"classification_model"`
	EmbeddingModel      string      `json:"embedding_model"`
	EmbeddingDim        int         `json:"embedding_dim"`
	TimeoutSeconds      int         `json:"timeout_seconds"`
	EmbedCacheSize      int         `json:"embed_cache_size"`
	EmbedCacheTTLHours  int         `json:"embed_cache_ttl_hours"`
}

// ChatConfig carries the pipeline knobs, including the conservative-default
// policy for ambiguous classifier output. Both defaults are policy, not a
// hard-coded assumption: flipping them is a config change.
type ChatConfig struct {
	ContextWindow    int   `json:"context_window"`
	RetrievalTopK    int   `json:"retrieval_top_k"`
	RateLimitSeconds int   `json:"rate_limit_seconds"`
	DefaultLegal     *bool `json:"default_legal"`
	DefaultDependent *bool `json:"default_dependent"`
}

func (c ChatConfig) AssumeLegal() bool {
	return c.DefaultLegal == nil || *c.DefaultLegal
}

func (c ChatConfig) AssumeDependent() bool {
	return c.DefaultDependent == nil || *c.DefaultDependent
}

// Load reads the JSON config at path. ${VAR} references are expanded
// from the environment so secrets can stay out of the file itself.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal([]byte(os.ExpandEnv(string(raw))), &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.VectorIndex.Type == "" {
		cfg.VectorIndex.Type = "pgvector"
	}
	if cfg.TextStorePath == "" {
		return nil, fmt.Errorf("text_store_path is required")
	}
	if cfg.CorpusStore.Type == "" {
		cfg.CorpusStore.Type = "local"
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.GenerationModel == "" {
		return nil, fmt.Errorf("ai.generation_model is required")
	}
	if cfg.AI.ClassificationModel == "" {
		cfg.AI.ClassificationModel = cfg.AI.GenerationModel
	}
	if cfg.AI.EmbeddingModel == "" {
		return nil, fmt.Errorf("ai.embedding_model is required")
	}
	if cfg.AI.EmbeddingDim <= 0 {
		return nil, fmt.Errorf("ai.embedding_dim is required")
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = 30
	}
	if cfg.AI.EmbedCacheSize == 0 {
		cfg.AI.EmbedCacheSize = 10000
	}
	if cfg.AI.EmbedCacheTTLHours == 0 {
		cfg.AI.EmbedCacheTTLHours = 2
	}
	if cfg.Chat.ContextWindow == 0 {
		cfg.Chat.ContextWindow = 5
	}
	if cfg.Chat.RetrievalTopK == 0 {
		cfg.Chat.RetrievalTopK = 5
	}
	if cfg.Chat.RateLimitSeconds == 0 {
		cfg.Chat.RateLimitSeconds = 2
	}
	return &cfg, nil
}
