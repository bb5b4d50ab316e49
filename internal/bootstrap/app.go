package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resume-screener/internal/analyses"
	"resume-screener/internal/archive"
	"resume-screener/internal/extract"
	"resume-screener/internal/llm"
	"resume-screener/internal/llm/ollama"
	"resume-screener/internal/llm/openai"
	"resume-screener/internal/ocr"
	"resume-screener/internal/queue"
	"resume-screener/internal/shared/config"
	"resume-screener/internal/shared/server"
	"resume-screener/internal/shared/storage/db"
	"resume-screener/internal/shared/storage/object"
	localstore "resume-screener/internal/shared/storage/object/local"
	s3store "resume-screener/internal/shared/storage/object/s3"
	"resume-screener/internal/shared/telemetry"
)

// App holds shared dependencies for the API, the worker and the CLI.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	DB              *sql.DB
	Store           object.ObjectStore
	Queue           queue.Client
	Analyzer        *analyses.Analyzer
	ScreeningsRepo  analyses.Repo
	Screenings      *analyses.ScreeningService
	AnalysisHandler *analyses.Handler
}

// Build prepares every dependency and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
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

	analyzer, err := BuildAnalyzer(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		DB:       sqlDB,
		Store:    store,
		Queue:    queueClient,
		Analyzer: analyzer,
	}

	if sqlDB != nil {
		app.ScreeningsRepo = &analyses.PGRepo{DB: sqlDB}
	} else {
		app.ScreeningsRepo = analyses.NewMemoryRepo()
	}
	app.Screenings = &analyses.ScreeningService{
		Repo:          app.ScreeningsRepo,
		Store:         store,
		Queue:         queueClient,
		Analyzer:      app.Analyzer,
		GlobalTimeout: cfg.GlobalTimeout(),
	}
	app.AnalysisHandler = analyses.NewHandler(app.Analyzer, app.Screenings, Limits(cfg))
	if app.AnalysisHandler == nil {
		return nil, errors.New("failed to initialize handlers")
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		AnalysisHandler: app.AnalysisHandler,
		Ready:           app.ready,
	})

	return app, nil
}

// BuildAnalyzer wires the extraction and model pipeline from cfg. It needs
// no database, store or queue.
func BuildAnalyzer(cfg config.Config) (*analyses.Analyzer, error) {
	engine := ocr.New(ocr.Options{
		Timeout:       cfg.OCRTimeout(),
		Language:      cfg.OCR.Language,
		TesseractPath: cfg.OCR.TesseractPath,
		PdftoppmPath:  cfg.OCR.PdftoppmPath,
		DPI:           cfg.OCR.DPI,
	}, nil)
	extractor := extract.New(engine, extract.Options{
		ScannedDensityThreshold: cfg.ScannedPDFDensity,
		MaxDocumentBytes:        cfg.Zip.MaxEntryBytes,
	})

	completer, err := buildCompleter(cfg)
	if err != nil {
		return nil, err
	}
	parsers := analyses.ModelParsers{Client: llm.NewClient(completer, cfg.ModelTimeout())}

	return analyses.NewAnalyzer(analyses.AnalyzerDeps{
		Collector: &extract.Collector{
			Extractor: extractor,
			Archive: archive.Options{
				MaxItems:      cfg.Zip.MaxItems,
				MaxDepth:      cfg.Zip.MaxDepth,
				MaxEntryBytes: cfg.Zip.MaxEntryBytes,
			},
			MaxTextLength: cfg.Files.MaxResumeTextLength,
		},
		Jobs:    parsers,
		Resumes: parsers,
		Matcher: parsers,
		Gate:    analyses.NewGate(cfg.Model.MaxConcurrency),
		Thresholds: analyses.Thresholds{
			StrongYes: cfg.Scoring.StrongYesThreshold,
			Yes:       cfg.Scoring.YesThreshold,
			Maybe:     cfg.Scoring.MaybeThreshold,
		},
		MaxTotalCandidates: cfg.Files.MaxTotalCandidates,
	}), nil
}

func buildCompleter(cfg config.Config) (llm.Completer, error) {
	if cfg.Model.Provider == "openai" {
		return openai.NewClient(openai.Options{
			BaseURL:             cfg.Model.BaseURL,
			APIKey:              cfg.Model.APIKey,
			Model:               cfg.Model.Name,
			NoTemperatureModels: cfg.Model.NoTemperatureModels,
		})
	}
	return ollama.New(ollama.Options{
		BaseURL: cfg.Model.BaseURL,
		Model:   cfg.Model.Name,
		Breaker: ollama.BreakerSettings{
			Enabled:      cfg.Model.BreakerEnabled,
			MinRequests:  cfg.Model.BreakerMinRequests,
			FailureRatio: cfg.Model.BreakerFailureRatio,
			OpenTimeout:  time.Duration(cfg.Model.BreakerOpenSeconds) * time.Second,
		},
	}), nil
}

// Limits maps the file limits in cfg onto the HTTP handler.
func Limits(cfg config.Config) analyses.Limits {
	return analyses.Limits{
		MaxFileCount:        cfg.Files.MaxFileCount,
		MaxFileSizeBytes:    cfg.Files.MaxFileSizeBytes,
		MaxTotalSizeBytes:   cfg.Files.MaxTotalSizeBytes,
		AllowedExtensions:   cfg.Files.AllowedExtensions,
		MaxResumeTextLength: cfg.Files.MaxResumeTextLength,
		GlobalTimeout:       cfg.GlobalTimeout(),
	}
}

func (a *App) ready() error {
	if a.DB == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.DB.PingContext(ctx); err != nil {
		return errors.New("database unreachable")
	}
	return nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Info("bootstrap.memory_repo", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultLambdaOptions()))
	} else {
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	}
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repo", map[string]any{"reason": "database unavailable", "error": err})
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// buildQueue returns nil without a queue URL; screenings then run in process.
func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.SQSQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
