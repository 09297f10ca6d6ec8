package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/nyayasathi/kanun/internal/ai"
	"github.com/nyayasathi/kanun/internal/config"
	"github.com/nyayasathi/kanun/internal/db"
	"github.com/nyayasathi/kanun/internal/embedcache"
	"github.com/nyayasathi/kanun/internal/handler"
	"github.com/nyayasathi/kanun/internal/ingest"
	"github.com/nyayasathi/kanun/internal/job"
	"github.com/nyayasathi/kanun/internal/middleware"
	"github.com/nyayasathi/kanun/internal/repo"
	"github.com/nyayasathi/kanun/internal/retrieval"
	"github.com/nyayasathi/kanun/internal/schedule"
	"github.com/nyayasathi/kanun/internal/service"
	"github.com/nyayasathi/kanun/internal/textstore"
	"github.com/nyayasathi/kanun/internal/vectorindex"
)

var configPath string

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "kanun",
		Short: "kanun legal assistance backend",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run kanun server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	rootCmd.AddCommand(runCmd, newIngestCmd(), newVerifyCmd())

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig() (*config.Config, error) {
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

type aiStack struct {
	generator  ai.IGenerator
	classifier ai.IGenerator
	embedder   ai.IEmbedder
}

// buildAIStack wires the configured provider, an optional fallback
// provider for generation, and the LRU-cached embedder.
func buildAIStack(cfg *config.Config) (*aiStack, error) {
	provider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return nil, fmt.Errorf("init ai provider: %w", err)
	}
	providers := []ai.IProvider{provider}
	if cfg.AI.FallbackProvider != "" {
		fallback, err := ai.NewProvider(cfg.AI.FallbackProvider, cfg.AI.FallbackData)
		if err != nil {
			return nil, fmt.Errorf("init fallback ai provider: %w", err)
		}
		providers = append(providers, fallback)
	}

	group := func(model string) ai.IGenerator {
		entries := make([]ai.GeneratorEntry, 0, len(providers))
		for _, p := range providers {
			entries = append(entries, ai.GeneratorEntry{
				Name:      p.Name(),
				Generator: ai.NewGenerator(p, model),
			})
		}
		if len(entries) == 1 {
			return entries[0].Generator
		}
		return ai.NewGroupGenerator(entries)
	}

	embedder := embedcache.WrapLruCacheToEmbedder(
		ai.NewEmbedder(provider, cfg.AI.EmbeddingModel),
		cfg.AI.EmbedCacheSize,
		time.Duration(cfg.AI.EmbedCacheTTLHours)*time.Hour,
	)
	return &aiStack{
		generator:  group(cfg.AI.GenerationModel),
		classifier: group(cfg.AI.ClassificationModel),
		embedder:   embedder,
	}, nil
}

func buildIngestor(cfg *config.Config, stack *aiStack) (*ingest.Ingestor, *textstore.Store, vectorindex.Index, error) {
	texts, err := textstore.New(cfg.TextStorePath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open text store: %w", err)
	}
	index, err := vectorindex.New(cfg.VectorIndex.Type, cfg.VectorIndex.Data, cfg.AI.EmbeddingDim)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init vector index: %w", err)
	}
	return ingest.New(stack.embedder, index, texts), texts, index, nil
}

func runServer(cfg *config.Config) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("vector_index", cfg.VectorIndex.Type),
		zap.String("text_store", cfg.TextStorePath),
	)

	database, err := db.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	stack, err := buildAIStack(cfg)
	if err != nil {
		return err
	}
	ingestor, texts, index, err := buildIngestor(cfg, stack)
	if err != nil {
		return err
	}
	defer index.Close()

	userRepo := repo.NewUserRepo(database)
	conversationRepo := repo.NewConversationRepo(database)
	messageRepo := repo.NewMessageRepo(database)

	timeout := time.Duration(cfg.AI.TimeoutSeconds) * time.Second
	analyzer := ai.NewContextAnalyzer(stack.classifier, timeout, cfg.Chat.AssumeLegal(), cfg.Chat.AssumeDependent())
	retriever := retrieval.New(index, texts)
	ragService := service.NewRAGService(stack.embedder, retriever, stack.generator, cfg.Chat.RetrievalTopK, timeout)
	contextService := service.NewContextService(conversationRepo, messageRepo)
	chatService := service.NewChatService(analyzer, ragService, contextService, conversationRepo, messageRepo, cfg.Chat.ContextWindow)
	authService := service.NewAuthService(userRepo, []byte(cfg.JWTSecret), time.Hour*time.Duration(cfg.JWTTTLHours))
	conversationService := service.NewConversationService(conversationRepo, messageRepo)

	deps := handler.RouterDeps{
		Auth:          handler.NewAuthHandler(authService),
		Chat:          handler.NewChatHandler(chatService, ragService),
		Conversations: handler.NewConversationHandler(conversationService),
		JWTSecret:     []byte(cfg.JWTSecret),
		ChatRateLimit: time.Duration(cfg.Chat.RateLimitSeconds) * time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	var scheduler *schedule.CronScheduler
	if cfg.ReconcileCron != "" {
		scheduler = schedule.NewCronScheduler()
		if err := scheduler.AddJob(cfg.ReconcileCron, job.NewStoreReconcileJob(ingestor)); err != nil {
			return fmt.Errorf("schedule reconcile: %w", err)
		}
		scheduler.Start()
	}

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	if scheduler != nil {
		scheduler.Stop()
	}
	return nil
}
