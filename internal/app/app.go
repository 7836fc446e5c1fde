package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ProblemScout/internal/analysis"
	"ProblemScout/internal/config"
	"ProblemScout/internal/domain"
	"ProblemScout/internal/export"
	"ProblemScout/internal/httpapi"
	"ProblemScout/internal/infrastructure/feed"
	"ProblemScout/internal/infrastructure/llm"
	"ProblemScout/internal/infrastructure/scheduler"
	"ProblemScout/internal/infrastructure/storage"
	"ProblemScout/internal/infrastructure/telegram"
	"ProblemScout/internal/logging"
	"ProblemScout/internal/ports"
	"ProblemScout/internal/scanner"
	"ProblemScout/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	db   *sql.DB
	repo *storage.SQLRepository

	Problems  *usecase.Problems
	Experts   *usecase.Experts
	Insights  *usecase.Insights
	Ingestion *usecase.Ingestion
	scheduler *usecase.Scheduler
}

// New opens storage, builds the analyzer and assembles every use case.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	dialect, err := storage.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(ctx, dialect, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	repo := storage.NewSQLRepository(db, dialect)

	analyzer, err := llm.New(ctx, cfg.Analyzer)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("build analyzer: %w", err)
	}
	if analyzer == nil {
		baseLogger.Warn("no analyzer configured, using local fallbacks")
	}

	registry := scanner.NewRegistry(
		feed.NewRedditScanner(nil, feed.RedditOptions{
			UserAgent:         cfg.Ingestion.UserAgent,
			RequestsPerSecond: cfg.Ingestion.RequestsPerSecond,
			PostLimit:         cfg.Ingestion.PostLimit,
			Logger:            baseLogger.With("component", "reddit"),
		}),
		feed.NewBoardScanner(nil, cfg.Ingestion.UserAgent),
	)
	source := feed.NewStrategySource(registry, cfg.Sites, cfg.Ingestion, baseLogger.With("component", "source"))

	var notifier ports.Notifier
	if tg := telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID); tg.Configured() {
		notifier = tg
	}

	deps := usecase.Deps{
		Problems:      repo,
		Votes:         repo,
		Experts:       repo,
		Source:        source,
		Notifier:      notifier,
		Classifier:    analysis.NewClassifier(analyzer, cfg.Analysis, baseLogger.With("component", "classifier")),
		Similarity:    analysis.NewSimilarityDetector(analyzer, cfg.Analysis, baseLogger.With("component", "similarity")),
		Clusters:      analysis.NewClusterEngine(analyzer, cfg.Analysis, baseLogger.With("component", "clusters")),
		Matcher:       analysis.NewMatchScorer(cfg.Analysis),
		Analysis:      cfg.Analysis,
		MinTextLength: cfg.Submission.MinTextLength,
		Concurrency:   cfg.Ingestion.Concurrency,
		Logger:        baseLogger,
	}

	application := &Application{
		cfg:       cfg,
		logger:    baseLogger,
		db:        db,
		repo:      repo,
		Problems:  usecase.NewProblems(deps),
		Experts:   usecase.NewExperts(deps),
		Insights:  usecase.NewInsights(deps),
		Ingestion: usecase.NewIngestion(deps),
	}

	if cfg.Scheduler.Enabled {
		driver := scheduler.NewTickerScheduler(cfg.Scheduler.Interval, cfg.Scheduler.Location())
		application.scheduler = usecase.NewScheduler(driver, application.Ingestion, application.Insights, baseLogger)
	}

	return application, nil
}

// Migrate creates the schema when missing.
func (a *Application) Migrate(ctx context.Context) error {
	return a.repo.Migrate(ctx)
}

// Serve runs the HTTP API and the optional scheduler until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.Migrate(ctx); err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(httpapi.Services{
		Problems:  a.Problems,
		Experts:   a.Experts,
		Insights:  a.Insights,
		Ingestion: a.Ingestion,
	}, a.logger.With("component", "http"))

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		a.logger.Info("scheduler started", "interval", a.cfg.Scheduler.Interval)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.scheduler != nil {
		if err := a.scheduler.Stop(shutdownCtx); err != nil {
			a.logger.Warn("scheduler stop failed", "err", err)
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return serveErr
}

// Ingest runs one ingestion pass and publishes a digest when asked to.
func (a *Application) Ingest(ctx context.Context, digest bool) (usecase.Report, error) {
	if err := a.Migrate(ctx); err != nil {
		return usecase.Report{}, err
	}
	report, err := a.Ingestion.Run(ctx)
	if err != nil {
		return report, err
	}
	if digest && report.Created > 0 {
		if err := a.Insights.PublishDigest(ctx); err != nil {
			return report, fmt.Errorf("publish digest: %w", err)
		}
	}
	return report, nil
}

// Export writes problems or clusters to w.
func (a *Application) Export(ctx context.Context, w io.Writer, what string, format export.Format) error {
	switch what {
	case "problems":
		problems, err := a.Problems.List(ctx, domain.ProblemFilter{Limit: usecase.MaxListLimit})
		if err != nil {
			return err
		}
		return export.WriteProblems(w, format, problems)
	case "clusters":
		clusters, err := a.Insights.Clusters(ctx)
		if err != nil {
			return err
		}
		return export.WriteClusters(w, format, clusters)
	default:
		return &domain.ValidationError{Field: "dataset", Reason: fmt.Sprintf("unknown dataset %q, want problems or clusters", what)}
	}
}

// Close releases the database handle.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
