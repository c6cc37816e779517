package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/AmityBot/internal/api/handlers"
	"github.com/markdave123-py/AmityBot/internal/config"
	"github.com/markdave123-py/AmityBot/internal/core"
	"github.com/markdave123-py/AmityBot/internal/core/crm"
	db "github.com/markdave123-py/AmityBot/internal/core/database"
	"github.com/markdave123-py/AmityBot/internal/core/events"
	"github.com/markdave123-py/AmityBot/internal/core/index"
	"github.com/markdave123-py/AmityBot/internal/core/ingestion_engine"
	"github.com/markdave123-py/AmityBot/internal/core/llm"
	"github.com/markdave123-py/AmityBot/internal/core/metrics"
	objectclient "github.com/markdave123-py/AmityBot/internal/core/object-client"
	"github.com/markdave123-py/AmityBot/internal/core/rag"
	"github.com/markdave123-py/AmityBot/internal/core/session"
	"github.com/markdave123-py/AmityBot/internal/services"
)

const (
	startupTimeout  = 2 * time.Minute
	shutdownTimeout = 15 * time.Second
	tokenTTL        = 24 * time.Hour
)

// App owns every long-lived component of the service.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	Index        *index.Gateway
	Ingestor     *ingestion_engine.DocumentIngestor
	Orchestrator *rag.Orchestrator
	Metrics      *metrics.Metrics
	Server       *Server

	events  *events.Client
	closers []func() error
}

func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	appCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	a := &App{cfg: cfg, logger: logger, Metrics: metrics.New()}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	embedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the embedder, %w", err)
	}
	a.closers = append(a.closers, embedder.Close)

	generator, err := llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel, llm.GenerationSettings{
		Temperature:     cfg.GenTemperature,
		MaxOutputTokens: cfg.GenMaxTokens,
		TopP:            cfg.GenTopP,
		Timeout:         cfg.LLMTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the llm, %w", err)
	}
	a.closers = append(a.closers, generator.Close)

	var dbClient *db.DatabaseClient
	if cfg.IndexBackend == "pgvector" || cfg.LeadBackend == "postgres" {
		dbClient, err = db.NewDatabaseClient(appCtx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, dbClient.Close)
	}

	var store core.VectorStore
	switch cfg.IndexBackend {
	case "pgvector":
		store = dbClient
	default:
		disk, err := index.OpenDiskStore(cfg.IndexDir)
		if err != nil {
			return nil, fmt.Errorf("open index: %w", err)
		}
		store = disk
	}
	a.Index = index.NewGateway(embedder, store, cfg.EmbedBatchSize, logger)
	logger.Info("index ready", "backend", cfg.IndexBackend)

	var leads core.LeadStore = crm.NewMemoryStore(crm.SeedLeads())
	if cfg.LeadBackend == "postgres" {
		leads = dbClient
	}

	var sessions core.SessionStore = session.NewMemoryStore()
	if cfg.SessionBackend == "redis" {
		rs := session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SessionTTL)
		if err := rs.Ping(appCtx); err != nil {
			_ = rs.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		a.closers = append(a.closers, rs.Close)
		sessions = rs
		logger.Info("redis session store connected", "addr", cfg.RedisAddr)
	}

	var publisher core.EventPublisher
	if cfg.NatsURL != "" {
		ec, err := events.NewClient(appCtx, cfg.NatsURL, cfg.NatsToken, logger)
		if err != nil {
			return nil, err
		}
		a.events = ec
		publisher = ec
	} else {
		logger.Warn("NATS not configured, reindex events disabled")
	}

	normalizer := ingestion_engine.NewNormalizer(ingestion_engine.NewDocconvExtractor(false))
	a.Ingestor = ingestion_engine.NewDocumentIngestor(&ingestion_engine.IngestConfig{
		DataDir:          cfg.DataDir,
		ChunkSize:        cfg.ChunkSize,
		ChunkOverlap:     cfg.ChunkOverlap,
		MinContentLength: cfg.MinContentLength,
		Workers:          cfg.IngestWorkers,
	}, normalizer, a.Index, publisher, a.Metrics, logger)

	a.Orchestrator = rag.NewOrchestrator(a.Index, leads, generator, sessions, a.Metrics, logger)

	uploadDeps := services.UploadDeps{
		Supported:  ingestion_engine.IsSupported,
		Normalizer: normalizer,
		Sidecar:    ingestion_engine.WriteSidecar,
		Trigger:    a.Ingestor,
		Logger:     logger,
	}
	if cfg.ArchiveEnabled() {
		s3c, err := objectclient.NewS3Client(appCtx, objectclient.S3Config{
			AccessKey: cfg.AwsAccessKey,
			SecretKey: cfg.AwsSecretKey,
			Region:    cfg.AwsRegion,
		}, logger)
		if err != nil {
			return nil, err
		}
		uploadDeps.Archive = objectclient.NewArchive(s3c, cfg.BucketName)
	}
	uploads := services.NewUploadService(cfg.DataDir, uploadDeps)

	users, err := services.NewUserService(services.DefaultUsers())
	if err != nil {
		return nil, err
	}
	secret := cfg.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		logger.Warn("JWT_SECRET not set, sessions will not survive a restart")
	}
	tokens, err := services.NewTokenService(secret, tokenTTL)
	if err != nil {
		return nil, err
	}

	a.Server = NewServer(cfg, Deps{
		Orchestrator: a.Orchestrator,
		Leads:        leads,
		Uploads:      uploads,
		Reindexer:    a.Ingestor,
		Users:        users,
		Tokens:       tokens,
		Metrics:      a.Metrics,
		Checks: map[string]handlers.Check{
			"index": func(ctx context.Context) error {
				_, err := a.Index.Count(ctx)
				return err
			},
			"llm": func(ctx context.Context) error {
				_, err := generator.Generate(ctx, "", "Ping.")
				return err
			},
		},
		Logger: logger,
	})

	ok = true
	return a, nil
}

// Run serves HTTP until ctx is done. The rebuild worker and the initial
// index build run in the background so questions are answered meanwhile.
func (a *App) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() { errc <- a.Server.Start() }()

	if err := a.startBackground(ctx); err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = a.Server.Shutdown(shutdownCtx)
		return err
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.Server.Shutdown(shutdownCtx)
}

// startBackground starts the rebuild worker, queues a first build when no
// index exists and subscribes to reindex requests.
func (a *App) startBackground(ctx context.Context) error {
	a.Ingestor.Start(ctx)
	if _, err := a.Ingestor.ScheduleInitialBuild(ctx); err != nil {
		a.logger.Error("index inspection failed, serving without knowledge base", "error", err)
	}

	if a.events != nil {
		err := a.events.Subscribe(events.SubjectReindexRequested, func(subject string, _ []byte) {
			a.Ingestor.Enqueue("event:" + subject)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *App) Close() {
	if a.events != nil {
		a.events.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
