package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"ContractAuditor/internal/config"
	"ContractAuditor/internal/domain"
	"ContractAuditor/internal/extract"
	"ContractAuditor/internal/httpapi"
	"ContractAuditor/internal/infrastructure/llm"
	"ContractAuditor/internal/infrastructure/parser"
	"ContractAuditor/internal/infrastructure/storage"
	"ContractAuditor/internal/logging"
	"ContractAuditor/internal/metrics"
	"ContractAuditor/internal/ports"
	"ContractAuditor/internal/ranking"
	"ContractAuditor/internal/statute"
	"ContractAuditor/internal/usecase"
	"ContractAuditor/internal/validation"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *sql.DB
	metrics  *metrics.Metrics
	statutes *statute.Repository
	pipeline *usecase.Pipeline
}

// New builds the application. A configured database is opened and migrated
// so the statute cache can share parsed articles between processes.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	m := metrics.New()

	registry := parser.NewRegistry(baseLogger.With("component", "parser"))
	extractor := extract.NewExtractor(registry, baseLogger.With("component", "extract"))

	var (
		db    *sql.DB
		store ports.ArticleStore
	)
	if cfg.Database.DSN != "" {
		var err error
		db, err = storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open article store: %w", err)
		}
		articleStore := storage.NewArticleStore(db, cfg.Database.Driver)
		if err := articleStore.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate article store: %w", err)
		}
		store = articleStore
	}

	statutes := statute.NewRepository(statute.RepositoryDeps{
		Sources:   cfg.Statutes.Sources,
		DefaultID: cfg.Statutes.Default,
		Pages:     parser.NewPDFDecoder(baseLogger.With("component", "statute.pdf")),
		Cache:     statute.NewCache(store, baseLogger.With("component", "statute.cache")),
		Metrics:   m,
		Logger:    baseLogger.With("component", "statute"),
	})

	ranker := ranking.NewRanker(statutes, ranking.Options{
		Topics:   topics(cfg.Ranking.Topics),
		MinScore: cfg.Ranking.MinScore,
		Limit:    cfg.Ranking.Limit,
	}, baseLogger.With("component", "ranking"))

	validator := validation.NewValidator(validation.Rules{
		FoundationThreshold: decimal.NewFromFloat(cfg.Analysis.FoundationThreshold),
	}, baseLogger.With("component", "validation"))

	var (
		analyzer  ports.Analyzer
		assistant ports.Assistant
	)
	if client := llm.NewClient(cfg.LLM, baseLogger.With("component", "llm")); client.Configured() {
		analyzer, assistant = client, client
	} else {
		baseLogger.Warn("llm api key is not set; reports will carry an api_error issue")
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Extractor:  extractor,
		Ranker:     ranker,
		Validator:  validator,
		Comparator: validator,
		Analyzer:   analyzer,
		Assistant:  assistant,
		Limits: usecase.Limits{
			ContractRunes:       cfg.Analysis.ContractBudget,
			NoticeRunes:         cfg.Analysis.NoticeBudget,
			ContextArticles:     cfg.Analysis.ContextArticles,
			ContextContentRunes: cfg.Analysis.ContextContentRunes,
			AnalyzerTimeout:     cfg.LLM.Timeout,
		},
		Metrics: m,
		Logger:  baseLogger.With("component", "pipeline"),
	})

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		db:       db,
		metrics:  m,
		statutes: statutes,
		pipeline: pipeline,
	}, nil
}

// Analyze runs one contract analysis. An empty statute id selects the default.
func (a *Application) Analyze(ctx context.Context, contractPath, noticePath, statuteID string) (*domain.Report, error) {
	if statuteID == "" {
		statuteID = a.cfg.Statutes.Default
	}
	return a.pipeline.Analyze(ctx, usecase.Request{
		ContractPath: contractPath,
		NoticePath:   noticePath,
		StatuteID:    statuteID,
	})
}

// Statutes exposes the article repository for lookups.
func (a *Application) Statutes() *statute.Repository {
	return a.statutes
}

// DefaultStatute names the statute used when none is requested.
func (a *Application) DefaultStatute() string {
	return a.cfg.Statutes.Default
}

// Serve runs the HTTP API until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	server := httpapi.NewServer(httpapi.ServerDeps{
		Analyzer:       a.pipeline,
		Statutes:       a.statutes,
		UploadDir:      a.cfg.HTTP.UploadDir,
		MaxUploadBytes: a.cfg.HTTP.MaxUploadBytes,
		DefaultStatute: a.cfg.Statutes.Default,
		Metrics:        a.metrics,
		Logger:         a.logger.With("component", "http"),
	})
	return server.ListenAndServe(ctx, a.cfg.HTTP.Addr)
}

// Close releases the article store connection, if any.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func topics(rows []config.TopicConfig) []ranking.Topic {
	if len(rows) == 0 {
		return nil
	}
	out := make([]ranking.Topic, 0, len(rows))
	for _, row := range rows {
		out = append(out, ranking.Topic{
			Name:             row.Name,
			Weight:           row.Weight,
			Keywords:         row.Keywords,
			PriorityArticles: row.PriorityArticles,
		})
	}
	return out
}
