package app

import (
	"context"
	"fmt"

	"taxinference/internal/export"
	"taxinference/internal/gateway/config"
	"taxinference/internal/gateway/handler/rpc"
	"taxinference/internal/gateway/server"
	"taxinference/internal/gateway/usecase/chat"
	"taxinference/internal/llmclient"
	"taxinference/internal/session"
)

type App struct {
	server *server.Server
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Dependencies
	store, err := newArtifactStore(cfg.Export)
	if err != nil {
		return nil, fmt.Errorf("init artifact store: %w", err)
	}
	exportSvc, err := export.NewService(store)
	if err != nil {
		return nil, fmt.Errorf("init export service: %w", err)
	}
	llm, err := llmclient.NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	sessions := session.NewManager()
	dispatcher := &chat.Dispatcher{
		LLM:      llm,
		Exporter: exportSvc,
		Timeout:  cfg.LLM.Timeout,
	}

	sessionHandler := rpc.NewSessionHandler(sessions)
	chatHandler := rpc.NewChatHandler(sessions, dispatcher)
	exportHandler := rpc.NewExportHandler(sessions, exportSvc, store)
	eventsHandler := rpc.NewEventsHandler(sessions)

	// Routing & Server
	mux := server.NewMux(sessionHandler, chatHandler, exportHandler, eventsHandler)
	srv := server.New(cfg.Port, mux)

	return &App{
		server: srv,
	}, nil
}

func newArtifactStore(cfg config.ExportConfig) (export.ArtifactStore, error) {
	switch cfg.Mode {
	case config.ExportModeDir:
		return export.NewDirStore(cfg.Dir)
	case config.ExportModeS3:
		return export.NewS3Store(export.S3Config{
			Endpoint:  cfg.Endpoint,
			Region:    cfg.Region,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			UseSSL:    cfg.UseSSL,
		})
	default:
		return export.NewMemoryStore(), nil
	}
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}
