package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the quizgen API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Cache      CacheConfig      `yaml:"cache"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	DSN              string `yaml:"dsn"`
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
}

// CacheConfig holds the embedding cache (Redis) settings.
// When Addrs is empty the cache is disabled.
type CacheConfig struct {
	Addrs    []string `yaml:"addrs"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	TTLHours int      `yaml:"ttl_hours"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// GenerationConfig holds the completion provider settings.
// APIKey/BaseURL/Provider fall back to the embedding provider when empty.
type GenerationConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// IngestConfig holds chunking and embedding fan-out settings.
type IngestConfig struct {
	ChunkSize      int `yaml:"chunk_size"`
	ChunkOverlap   int `yaml:"chunk_overlap"`
	EmbedParallel  int `yaml:"embed_parallelism"`
	MaxUploadBytes int `yaml:"max_upload_bytes"`
}

// RetrievalConfig holds the adaptive retriever settings.
type RetrievalConfig struct {
	MinChunks     int       `yaml:"min_chunks"`
	Thresholds    []float64 `yaml:"thresholds"`
	MaxResults    int       `yaml:"max_results"`
	FallbackLimit int       `yaml:"fallback_limit"`
	FallbackScore float64   `yaml:"fallback_score"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Quiz generation holds the response open for the completion call.
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = 24 * 7
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Generation.Provider == "" {
		c.Generation.Provider = c.Embedding.Provider
	}
	if c.Generation.APIKey == "" {
		c.Generation.APIKey = c.Embedding.APIKey
	}
	if c.Generation.BaseURL == "" {
		c.Generation.BaseURL = c.Embedding.BaseURL
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "gpt-4-turbo-preview"
	}
	if c.Ingest.ChunkSize <= 0 {
		c.Ingest.ChunkSize = 1000
		c.Ingest.ChunkOverlap = 200
	}
	if c.Ingest.ChunkOverlap < 0 {
		c.Ingest.ChunkOverlap = 0
	}
	if c.Ingest.EmbedParallel <= 0 {
		c.Ingest.EmbedParallel = 4
	}
	if c.Ingest.MaxUploadBytes <= 0 {
		c.Ingest.MaxUploadBytes = 32 << 20
	}
	if c.Retrieval.MinChunks <= 0 {
		c.Retrieval.MinChunks = 2
	}
	if len(c.Retrieval.Thresholds) == 0 {
		c.Retrieval.Thresholds = []float64{0.5, 0.4, 0.3, 0.2}
	}
	if c.Retrieval.MaxResults <= 0 {
		c.Retrieval.MaxResults = 20
	}
	if c.Retrieval.FallbackLimit <= 0 {
		c.Retrieval.FallbackLimit = 10
	}
	if c.Retrieval.FallbackScore <= 0 {
		c.Retrieval.FallbackScore = 0.7
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding.api_key is required")
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf(
			"ingest.chunk_overlap must be smaller than ingest.chunk_size, got %d >= %d",
			c.Ingest.ChunkOverlap, c.Ingest.ChunkSize,
		)
	}
	for i := 1; i < len(c.Retrieval.Thresholds); i++ {
		if c.Retrieval.Thresholds[i] >= c.Retrieval.Thresholds[i-1] {
			return fmt.Errorf("retrieval.thresholds must be strictly descending")
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
