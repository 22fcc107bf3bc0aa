package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"benefits-backend/internal/analysis"
	googleauth "benefits-backend/internal/auth"
	"benefits-backend/internal/decisions"
	"benefits-backend/internal/documents"
	"benefits-backend/internal/ocr"
	"benefits-backend/internal/pipeline"
	"benefits-backend/internal/queue"
	"benefits-backend/internal/services/health"
	sharedauth "benefits-backend/internal/shared/auth"
	"benefits-backend/internal/shared/config"
	"benefits-backend/internal/shared/server"
	"benefits-backend/internal/shared/storage/db"
	"benefits-backend/internal/shared/storage/object"
	localstore "benefits-backend/internal/shared/storage/object/local"
	s3store "benefits-backend/internal/shared/storage/object/s3"
	"benefits-backend/internal/shared/telemetry"
	"benefits-backend/internal/workflow"
)

const tokenTTL = 24 * time.Hour

// App holds shared dependencies wired from configuration.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client
	Signer *sharedauth.Signer

	DocumentsRepo documents.Repo
	DecisionsRepo decisions.Repo

	DocumentsService *documents.Service
	WorkflowService  *workflow.Service
	Processor        *pipeline.Processor

	DocumentsHandler *documents.Handler
	WorkflowHandler  *workflow.Handler
	GoogleAuth       *googleauth.GoogleService
}

// Build prepares shared dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
		Signer: sharedauth.NewSigner(cfg.JWTSecret, tokenTTL),
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           app.Config,
		Signer:           app.Signer,
		DocumentsHandler: app.DocumentsHandler,
		WorkflowHandler:  app.WorkflowHandler,
		GoogleAuth:       app.GoogleAuth,
		Health:           health.NewService(),
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Info("bootstrap: DATABASE_URL empty; using in-memory repositories", nil)
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap: database connect failed; using in-memory repositories", map[string]any{
				"error": err.Error(),
			})
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.QueueURL) == "" {
		if isDevLike(cfg.Env) {
			return queue.NewMemoryClient(), nil
		}
		return nil, fmt.Errorf("BB_SQS_QUEUE_URL is required")
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.QueueURL)
}

func buildServices(app *App) error {
	var docRepo documents.Repo
	var decisionRepo decisions.Repo
	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		decisionRepo = &decisions.PGRepo{DB: app.DB}
	} else {
		docRepo = documents.NewMemoryRepo()
		decisionRepo = decisions.NewMemoryRepo()
	}

	docSvc := &documents.Service{
		Store: app.Store,
		Repo:  docRepo,
	}
	workflowSvc := &workflow.Service{
		Docs:      docRepo,
		Decisions: decisionRepo,
		Queue:     app.Queue,
	}

	analyzer, decider, err := buildAnalysis(app.Config)
	if err != nil {
		return err
	}
	app.Processor = &pipeline.Processor{
		Docs:      docRepo,
		Decisions: decisionRepo,
		Store:     app.Store,
		Engine:    ocr.NewTextEngine(),
		Analyzer:  analyzer,
		Decider:   decider,
	}

	app.DocumentsRepo = docRepo
	app.DecisionsRepo = decisionRepo
	app.DocumentsService = docSvc
	app.WorkflowService = workflowSvc
	app.DocumentsHandler = documents.NewHandler(docSvc)
	app.WorkflowHandler = workflow.NewHandler(workflowSvc)
	app.GoogleAuth = googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		app.Signer,
	)
	return nil
}

func buildAnalysis(cfg config.Config) (analysis.Analyzer, analysis.Decider, error) {
	decider := analysis.NewRuleDecider()
	if cfg.LLMProvider == "openai" && strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		client, err := analysis.NewOpenAIAnalyzer(cfg.OpenAIAPIKey, cfg.LLMModel)
		if err != nil {
			return nil, nil, err
		}
		return client, decider, nil
	}
	return analysis.NewRuleAnalyzer(), decider, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
