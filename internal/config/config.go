package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	LLM         LLMConfig         `mapstructure:"llm"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding"`
	VectorStore VectorStoreConfig `mapstructure:"vector_store"`
	Weather     WeatherConfig     `mapstructure:"weather"`
	Search      SearchConfig      `mapstructure:"search"`
	Workflow    WorkflowConfig    `mapstructure:"workflow"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Security    SecurityConfig    `mapstructure:"security"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	MiddlewareTimeout time.Duration `mapstructure:"middleware_timeout"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig selects the meeting store. Driver is one of sqlite, postgres or mysql.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int    `mapstructure:"max_conns"`
}

// ConnectionString returns the driver specific DSN. An explicit DSN always wins.
func (c DatabaseConfig) ConnectionString() string {
	if c.DSN != "" {
		return c.DSN
	}
	switch c.Driver {
	case "postgres":
		return fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", c.User, c.Password, c.Host, c.Port, c.Database)
	default:
		return c.Path
	}
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	ToolTTL  time.Duration `mapstructure:"tool_ttl"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LLMConfig configures the gateway. Priority lists provider names in fallback order.
type LLMConfig struct {
	Priority  []string        `mapstructure:"priority"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Ollama    OllamaConfig    `mapstructure:"ollama"`
	DeepSeek  DeepSeekConfig  `mapstructure:"deepseek"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OllamaConfig struct {
	Host         string `mapstructure:"host"`
	DefaultModel string `mapstructure:"default_model"`
}

type DeepSeekConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// EmbeddingConfig selects the embedding backend: ollama, openai or hash.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Dimensions int    `mapstructure:"dimensions"`
}

type VectorStoreConfig struct {
	PersistDir   string `mapstructure:"persist_dir"`
	Compress     bool   `mapstructure:"compress"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
}

type WeatherConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	DefaultCity string        `mapstructure:"default_city"`
}

type SearchConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxResults int           `mapstructure:"max_results"`
	Region     string        `mapstructure:"region"`
}

type WorkflowConfig struct {
	MaxToolIterations int `mapstructure:"max_tool_iterations"`
}

type StorageConfig struct {
	UploadsDir      string        `mapstructure:"uploads_dir"`
	PersistentDir   string        `mapstructure:"persistent_dir"`
	MaxUploadMB     int64         `mapstructure:"max_upload_mb"`
	CleanupMaxAge   time.Duration `mapstructure:"cleanup_max_age"`
	AllowedFileExts []string      `mapstructure:"allowed_file_exts"`
}

type SecurityConfig struct {
	MaxRows      int             `mapstructure:"max_rows"`
	QueryTimeout time.Duration   `mapstructure:"query_timeout"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set config file path
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.middleware_timeout", "170s")
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost:3000", "http://127.0.0.1:3000",
		"http://localhost:7860", "http://127.0.0.1:7860",
	})

	// Database
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./meeting_database.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "agent")
	v.SetDefault("database.database", "meetings")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 10)

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.tool_ttl", "10m")

	// LLM
	v.SetDefault("llm.priority", []string{"openai", "gemini", "ollama", "anthropic", "deepseek"})
	v.SetDefault("llm.openai.model", "gpt-3.5-turbo")
	v.SetDefault("llm.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.gemini.model", "gemma-3-12b-it")
	v.SetDefault("llm.ollama.host", "http://localhost:11434")
	v.SetDefault("llm.ollama.default_model", "qwen3:0.6b")

	// Embedding
	v.SetDefault("embedding.provider", "ollama")
	v.SetDefault("embedding.model", "nomic-embed-text")
	v.SetDefault("embedding.base_url", "http://localhost:11434/api")
	v.SetDefault("embedding.dimensions", 384)

	// Vector store
	v.SetDefault("vector_store.persist_dir", "./chroma_db")
	v.SetDefault("vector_store.chunk_size", 500)
	v.SetDefault("vector_store.chunk_overlap", 50)

	// Tools
	v.SetDefault("weather.base_url", "http://api.openweathermap.org/data/2.5")
	v.SetDefault("weather.timeout", "10s")
	v.SetDefault("weather.default_city", "Chennai")
	v.SetDefault("search.base_url", "https://html.duckduckgo.com/html/")
	v.SetDefault("search.timeout", "10s")
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.region", "wt-wt")

	// Workflow
	v.SetDefault("workflow.max_tool_iterations", 10)

	// Storage
	v.SetDefault("storage.uploads_dir", "./uploads")
	v.SetDefault("storage.persistent_dir", "./persistent_docs")
	v.SetDefault("storage.max_upload_mb", 10)
	v.SetDefault("storage.cleanup_max_age", "24h")
	v.SetDefault("storage.allowed_file_exts", []string{".pdf", ".txt", ".md", ".docx"})

	// Security
	v.SetDefault("security.max_rows", 1000)
	v.SetDefault("security.query_timeout", "30s")
	v.SetDefault("security.rate_limit.requests_per_minute", 60)
	v.SetDefault("security.rate_limit.burst", 10)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Metrics
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

func bindEnvVars(v *viper.Viper) {
	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.dsn", "DATABASE_DSN")
	v.BindEnv("database.password", "DATABASE_PASSWORD")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// LLM API Keys
	v.BindEnv("llm.openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("llm.openai.model", "OPENAI_MODEL")
	v.BindEnv("llm.openai.base_url", "OPENAI_BASE_URL")
	v.BindEnv("llm.anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("llm.deepseek.api_key", "DEEPSEEK_API_KEY")
	v.BindEnv("llm.gemini.api_key", "GOOGLE_API_KEY", "GEMINI_API_KEY")
	v.BindEnv("llm.ollama.host", "OLLAMA_BASE_URL", "OLLAMA_HOST")
	v.BindEnv("llm.ollama.default_model", "OLLAMA_MODEL")

	// Embeddings
	v.BindEnv("embedding.provider", "EMBEDDING_PROVIDER")
	v.BindEnv("embedding.api_key", "OPENAI_API_KEY")

	// Tools
	v.BindEnv("weather.api_key", "OPENWEATHERMAP_API_KEY")
}
