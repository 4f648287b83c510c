package container

import (
	"fmt"
	"log/slog"

	"aurorai/config"
	app "aurorai/internal/application"
	"aurorai/internal/domain/port"
	"aurorai/internal/infrastructure/asset"
	"aurorai/internal/infrastructure/inference"
	"aurorai/internal/infrastructure/knowledge"
	"aurorai/internal/infrastructure/report"
	"aurorai/internal/infrastructure/storage"
	"aurorai/internal/infrastructure/vision"
)

type Container struct {
	SessionService *app.SessionService
	ReportService  *app.ReportService
	Knowledge      port.HazardKnowledgeBase
	Assets         port.AssetResolver
	Logger         *slog.Logger
}

// New собирает зависимости приложения по конфигурации.
func New(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	kb, err := knowledge.Default()
	if err != nil {
		return nil, fmt.Errorf("load hazard table: %w", err)
	}

	client, err := inference.NewClient(cfg.InferenceURL, cfg.InferenceTimeout, logger.With("component", "inference"))
	if err != nil {
		return nil, fmt.Errorf("create inference client: %w", err)
	}

	// адреса кадров приходят относительно сервиса инференса
	resolver, err := asset.NewResolver(cfg.InferenceURL, cfg.InferenceTimeout, cfg.MaxAssetBytes, cfg.AssetCacheSize, logger.With("component", "asset"))
	if err != nil {
		return nil, fmt.Errorf("create asset resolver: %w", err)
	}

	sessions := storage.NewMemorySessionRepository(cfg.ConfidenceThreshold)
	compiler := report.NewCompiler(resolver, kb, cfg.LogoURL, logger.With("component", "report"))

	return &Container{
		SessionService: app.NewSessionService(sessions, client, vision.NewPreviewer(), cfg.VideoIntervalSeconds, logger.With("component", "session")),
		ReportService:  app.NewReportService(sessions, compiler, cfg.ReportDir, logger.With("component", "export")),
		Knowledge:      kb,
		Assets:         resolver,
		Logger:         logger,
	}, nil
}
