package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sibikrish3000/cr-agent/internal/agent"
	"github.com/Sibikrish3000/cr-agent/internal/api"
	"github.com/Sibikrish3000/cr-agent/internal/api/handler"
	customMiddleware "github.com/Sibikrish3000/cr-agent/internal/api/middleware"
	"github.com/Sibikrish3000/cr-agent/internal/config"
	"github.com/Sibikrish3000/cr-agent/internal/llm"
	"github.com/Sibikrish3000/cr-agent/internal/llm/anthropic"
	"github.com/Sibikrish3000/cr-agent/internal/llm/deepseek"
	"github.com/Sibikrish3000/cr-agent/internal/llm/gemini"
	"github.com/Sibikrish3000/cr-agent/internal/llm/ollama"
	"github.com/Sibikrish3000/cr-agent/internal/llm/openai"
	"github.com/Sibikrish3000/cr-agent/internal/mcp"
	mcpMySQL "github.com/Sibikrish3000/cr-agent/internal/mcp/mysql"
	mcpPostgres "github.com/Sibikrish3000/cr-agent/internal/mcp/postgres"
	mcpSQLite "github.com/Sibikrish3000/cr-agent/internal/mcp/sqlite"
	"github.com/Sibikrish3000/cr-agent/internal/metrics"
	"github.com/Sibikrish3000/cr-agent/internal/repository/redis"
	"github.com/Sibikrish3000/cr-agent/internal/repository/sqldb"
	"github.com/Sibikrish3000/cr-agent/internal/service"
	"github.com/Sibikrish3000/cr-agent/internal/tools"
	"github.com/Sibikrish3000/cr-agent/internal/vectorstore"
	"github.com/Sibikrish3000/cr-agent/internal/workflow"
)

func main() {
	// Load .env file - try multiple locations
	envPaths := []string{".env", "../.env", "../../.env"}
	envLoaded := false
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			fmt.Printf("Loaded .env from: %s\n", p)
			envLoaded = true
			break
		}
	}
	if !envLoaded {
		fmt.Println("Warning: .env file not found in any standard location")
	}

	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Msg("Starting multi-agent API server")

	ctx := context.Background()

	// Initialize database
	db, err := sqldb.NewDB(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := sqldb.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	// Initialize Redis (optional)
	var (
		toolCache tools.Cache
		flusher   handler.CacheFlusher
		limiter   customMiddleware.Limiter
	)
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()

		cache := redis.NewToolCache(redisClient, cfg.Redis.ToolTTL)
		toolCache, flusher = cache, cache
		limiter = redis.NewRateLimiter(
			redisClient,
			cfg.Security.RateLimit.RequestsPerMinute,
			cfg.Security.RateLimit.Burst,
		)
		log.Info().Str("addr", cfg.Redis.Addr()).Msg("Redis cache and rate limiter enabled")
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// Initialize LLM Router with providers
	llmRouter := newLLMRouter(cfg.LLM)
	if _, err := llmRouter.Active(); err != nil {
		log.Fatal().Err(err).Msg("No usable LLM provider")
	}
	if m != nil {
		llmRouter.SetObserver(m.ObserveLLMCall)
	}

	// Vector store
	embed, err := vectorstore.NewEmbeddingFunc(cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create embedding function")
	}
	vectors := tools.NewVectorTools(vectorstore.NewManager(cfg.VectorStore, embed))

	// Tools
	weather := tools.NewWeatherClient(cfg.Weather, toolCache)
	if !weather.Configured() {
		log.Warn().Msg("OPENWEATHERMAP_API_KEY not set, weather tools will report errors")
	}
	search := tools.NewWebSearcher(cfg.Search, toolCache)
	meetingTools := tools.NewMeetingTools(sqldb.NewMeetingRepository(db), weather)
	registry := tools.NewDefaultRegistry(tools.Dependencies{
		Weather:  weather,
		Search:   search,
		Vector:   vectors,
		Meetings: meetingTools,
	})

	// Agents
	mcpRouter := mcp.NewRouter()
	mcpRouter.RegisterAdapter("sqlite", mcpSQLite.NewAdapter)
	mcpRouter.RegisterAdapter("postgres", mcpPostgres.NewAdapter)
	mcpRouter.RegisterAdapter("mysql", mcpMySQL.NewAdapter)
	defer mcpRouter.CloseAll()

	var scores agent.ScoreObserver
	if m != nil {
		scores = m
		registry.SetObserver(m)
	}

	engine := workflow.NewEngine(
		agent.NewRouter(llmRouter),
		registry,
		cfg.Workflow.MaxToolIterations,
		agent.NewWeatherAgent(llmRouter, registry),
		agent.NewDocumentAgent(llmRouter, vectors, search, scores),
		agent.NewMeetingAgent(llmRouter, weather, meetingTools),
		agent.NewSQLAgent(llmRouter, mcpRouter, agent.SQLOptions{
			DatabaseType: string(db.Dialect),
			Connection:   connectionConfig(cfg.Database),
			MaxRows:      cfg.Security.MaxRows,
			Timeout:      cfg.Security.QueryTimeout,
		}),
	)
	if m != nil {
		engine.SetObserver(m)
	}

	// Storage
	storage, err := service.NewStorageService(cfg.Storage, cfg.VectorStore.PersistDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	if _, err := storage.CleanupUploads(cfg.Storage.CleanupMaxAge); err != nil {
		log.Warn().Err(err).Msg("Startup cleanup failed")
	}

	deps := api.Dependencies{
		Chat:      service.NewChatService(engine, cfg.Storage.UploadsDir, cfg.Storage.PersistentDir),
		Storage:   storage,
		DB:        db,
		Providers: llmRouter,
		Cache:     flusher,
		Limiter:   limiter,
	}
	if m != nil {
		deps.Metrics = m.Handler()
	}

	// Initialize router
	router := api.NewRouter(cfg, deps)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// newLLMRouter registers every provider; the router skips unconfigured ones.
func newLLMRouter(cfg config.LLMConfig) *llm.Router {
	router := llm.NewRouter(cfg.Priority)
	log.Info().Strs("priority", cfg.Priority).Msg("Initializing LLM providers")

	router.RegisterProvider(openai.NewProvider(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL))
	router.RegisterProvider(gemini.NewProvider(cfg.Gemini))
	router.RegisterProvider(ollama.NewProvider(cfg.Ollama.Host, cfg.Ollama.DefaultModel))
	router.RegisterProvider(anthropic.NewProvider(cfg.Anthropic.APIKey, cfg.Anthropic.Model))
	router.RegisterProvider(deepseek.NewProvider(cfg.DeepSeek.APIKey, cfg.DeepSeek.Model))

	for _, info := range router.GetProvidersInfo() {
		log.Info().Str("provider", info.Name).Bool("configured", info.Configured).Msg("LLM provider registered")
	}
	return router
}

func connectionConfig(cfg config.DatabaseConfig) mcp.ConnectionConfig {
	return mcp.ConnectionConfig{
		DSN:      cfg.DSN,
		Path:     cfg.Path,
		Host:     cfg.Host,
		Port:     cfg.Port,
		Database: cfg.Database,
		Username: cfg.User,
		Password: cfg.Password,
		SSLMode:  cfg.SSLMode,
	}
}
