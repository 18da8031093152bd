package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	_ "github.com/lib/pq"

	"NewsFlow/internal/config"
	"NewsFlow/internal/infrastructure/extractor"
	"NewsFlow/internal/infrastructure/feed"
	"NewsFlow/internal/infrastructure/llm"
	"NewsFlow/internal/infrastructure/scheduler"
	"NewsFlow/internal/infrastructure/secrets"
	"NewsFlow/internal/infrastructure/servicetable"
	"NewsFlow/internal/infrastructure/storage"
	"NewsFlow/internal/infrastructure/telegram"
	"NewsFlow/internal/ports"
	"NewsFlow/internal/usecase"
)

// Application wires configuration to the pipeline and its trigger.
type Application struct {
	cfg          config.Config
	logger       *slog.Logger
	orchestrator *usecase.Orchestrator
	db           *sql.DB
}

// New resolves secrets, connects collaborators, and builds a runnable
// application instance.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Application, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var secretStore ports.SecretStore
	if cfg.Secrets.OpenAIKeyParam != "" || cfg.Secrets.DatabaseDSNParam != "" {
		secretStore = secrets.NewSSMStore(ssm.NewFromConfig(awsCfg))
	}

	apiKey, err := secrets.Resolve(ctx, secretStore, cfg.Secrets.OpenAIKeyParam, cfg.Transform.APIKey)
	if err != nil {
		return nil, fmt.Errorf("resolve transform api key: %w", err)
	}
	cfg.Transform.APIKey = apiKey

	dsn, err := secrets.Resolve(ctx, secretStore, cfg.Secrets.DatabaseDSNParam, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("resolve database dsn: %w", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open destination database: %w", err)
	}

	transformer, err := llm.New(cfg.Transform, logger.With("component", "transform"))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	processor := usecase.NewProcessor(usecase.ProcessorDeps{
		Extractor:   extractor.NewPageExtractor(nil, logger.With("component", "extractor")),
		Transformer: transformer,
		Writer:      storage.NewPostgresWriter(db),
		Logger:      logger.With("component", "processor"),
	}, usecase.ProcessorOptions{
		FetchRetries:     cfg.Pipeline.FetchRetries,
		TransformRetries: cfg.Pipeline.TransformRetries,
		RetryBackoff:     cfg.Pipeline.RetryBackoffDuration(),
	})

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	orchestrator := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Source:    feed.NewRSSSource(cfg.Feed.URL, nil, logger.With("component", "feed")),
		Table:     servicetable.NewDynamoTable(dynamodb.NewFromConfig(awsCfg), cfg.AWS.ServicesTable),
		Writer:    storage.NewPostgresWriter(db),
		Processor: processor,
		Notifier:  notifier,
		Logger:    logger.With("component", "orchestrator"),
	}, usecase.OrchestratorOptions{
		WindowDays:     cfg.Feed.WindowDays,
		MaxConcurrency: cfg.Pipeline.MaxConcurrency,
		RunTimeout:     cfg.Pipeline.RunTimeoutDuration(),
	})

	return &Application{cfg: cfg, logger: logger, orchestrator: orchestrator, db: db}, nil
}

// Run performs a single run, or blocks driving recurring runs when the
// scheduler is enabled.
func (a *Application) Run(ctx context.Context) error {
	defer a.db.Close()

	if !a.cfg.Scheduler.Enabled {
		_, err := a.orchestrator.Run(ctx)
		return err
	}

	driver := scheduler.NewTickerScheduler(a.cfg.Scheduler.IntervalDuration())
	runs := usecase.NewRunScheduler(driver, a.orchestrator, a.logger.With("component", "scheduler"))
	if err := runs.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()
	return runs.Stop(context.Background())
}
