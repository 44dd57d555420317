package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/KoTeHok22/locus/internal/config"
	"github.com/KoTeHok22/locus/internal/core/ports"
	"github.com/KoTeHok22/locus/internal/core/usecase"
	"github.com/KoTeHok22/locus/internal/infrastructure/extractor"
	"github.com/KoTeHok22/locus/internal/infrastructure/geocode/nominatim"
	"github.com/KoTeHok22/locus/internal/infrastructure/queue/nats"
	"github.com/KoTeHok22/locus/internal/infrastructure/recognizer/qwen"
	"github.com/KoTeHok22/locus/internal/infrastructure/repository/postgres"
	"github.com/KoTeHok22/locus/internal/infrastructure/resilience"
	"github.com/KoTeHok22/locus/internal/infrastructure/storage/localfs"
	"github.com/KoTeHok22/locus/internal/infrastructure/templates"
)

type App struct {
	Config config.Config

	Queue ports.MessageQueue
	Users ports.UserDirectory

	ProjectsUC    ports.ProjectLifecycle
	ChecklistsUC  ports.ChecklistEngine
	ApprovalsUC   ports.ApprovalWorkflow
	LedgerUC      ports.MaterialLedger
	RecognitionUC ports.RecognitionFrontend
	ProcessUC     ports.DocumentProcessor
	Poller        *usecase.RecognitionPoller

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	projectRepo := postgres.NewProjectRepository(db)
	checklistRepo := postgres.NewChecklistRepository(db)
	ledgerRepo := postgres.NewLedgerRepository(db)
	documentRepo := postgres.NewDocumentRepository(db)
	userRepo := postgres.NewUserRepository(db)

	catalog, err := templates.Load(cfg.TemplatesPath)
	if err != nil {
		return nil, fmt.Errorf("load checklist templates: %w", err)
	}
	if err := templates.Seed(ctx, checklistRepo, catalog); err != nil {
		return nil, fmt.Errorf("seed checklist templates: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	geocoder := nominatim.New(cfg.GeocoderURL, cfg.GeocoderUserAgent, executor)
	recognizer := qwen.New(cfg.OCRURL, cfg.OCRAPIKey, cfg.OCRModel, executor)
	textExtractor := extractor.New(storage)

	projectsUC := usecase.NewProjectUseCase(projectRepo, checklistRepo, userRepo, geocoder)
	checklistsUC := usecase.NewChecklistUseCase(checklistRepo, projectRepo)
	approvalsUC := usecase.NewApprovalUseCase(checklistRepo, projectRepo)
	ledgerUC := usecase.NewLedgerUseCase(ledgerRepo, projectRepo, cfg.MaterialEpsilon)
	recognitionUC := usecase.NewRecognitionUseCase(documentRepo, projectRepo, storage, queue, geocoder)
	processUC := usecase.NewProcessDocumentUseCase(documentRepo, textExtractor, recognizer)
	poller := usecase.NewRecognitionPoller(documentRepo,
		time.Duration(cfg.RecognitionPollIntervalMS)*time.Millisecond,
		cfg.RecognitionPollAttempts)

	return &App{
		Config: cfg,
		Queue:  queue,
		Users:  userRepo,

		ProjectsUC:    projectsUC,
		ChecklistsUC:  checklistsUC,
		ApprovalsUC:   approvalsUC,
		LedgerUC:      ledgerUC,
		RecognitionUC: recognitionUC,
		ProcessUC:     processUC,
		Poller:        poller,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
