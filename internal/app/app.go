package app

import (
	"context"
	"fmt"

	"github.com/parlo-ai/parlo/internal/common"
	"github.com/parlo-ai/parlo/internal/handlers"
	"github.com/parlo-ai/parlo/internal/interfaces"
	"github.com/parlo-ai/parlo/internal/services/accounts"
	"github.com/parlo-ai/parlo/internal/services/agents"
	"github.com/parlo-ai/parlo/internal/services/integrations"
	"github.com/parlo-ai/parlo/internal/services/llm"
	"github.com/parlo-ai/parlo/internal/services/mailer"
	"github.com/parlo-ai/parlo/internal/services/maps"
	"github.com/parlo-ai/parlo/internal/services/oauth"
	"github.com/parlo-ai/parlo/internal/services/tools"
	"github.com/parlo-ai/parlo/internal/services/vault"
	"github.com/parlo-ai/parlo/internal/services/voice"
	"github.com/parlo-ai/parlo/internal/storage"
	"github.com/ternarybob/arbor"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Services
	VaultService        *vault.Service
	AccountsService     *accounts.Service
	OAuthService        *oauth.Service
	IntegrationsService *integrations.Service
	MapsService         interfaces.MapsService
	VoiceClient         *voice.Client
	MailerService       *mailer.Service
	SummaryFormatter    interfaces.SummaryFormatter
	ToolsService        *tools.Service
	AgentsService       *agents.Service

	// HTTP handlers
	APIHandler         *handlers.APIHandler
	AccountHandler     *handlers.AccountHandler
	IntegrationHandler *handlers.IntegrationHandler
	OAuthHandler       *handlers.OAuthHandler
	MapsHandler        *handlers.MapsHandler
	AgentHandler       *handlers.AgentHandler
	CallHandler        *handlers.CallHandler
	WebhookHandler     *handlers.WebhookHandler
	FileHandler        *handlers.FileHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := storage.NewStorageManager(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager

	if err := app.initServices(); err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	return app, nil
}

func (a *App) initServices() error {
	kvStorage := a.StorageManager.KeyValueStorage()

	vlt, err := vault.NewService(&a.Config.Vault, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault: %w", err)
	}
	a.VaultService = vlt

	a.AccountsService = accounts.NewService(
		a.StorageManager.UserStorage(),
		a.StorageManager.SessionStorage(),
		&a.Config.Sessions,
		a.Logger,
	)

	a.OAuthService = oauth.NewService(
		&a.Config.OAuth,
		a.StorageManager.IntegrationStorage(),
		a.VaultService,
		a.Logger,
	)
	a.IntegrationsService = integrations.NewService(
		a.StorageManager.IntegrationStorage(),
		a.VaultService,
		a.Logger,
	)

	a.MapsService = maps.NewService(&a.Config.Maps, kvStorage, a.Logger)
	a.VoiceClient = voice.NewClient(&a.Config.Voice, a.Logger)
	a.MailerService = mailer.NewService(&a.Config.Mail, kvStorage, a.Logger)

	// Summaries degrade to raw transcripts when no provider is usable
	formatter, err := llm.NewSummaryFormatter(a.Config, kvStorage, a.Logger)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Summary formatter unavailable, falling back to raw transcripts")
	} else {
		a.SummaryFormatter = formatter
	}

	var resultMailer interfaces.Mailer
	if a.MailerService.IsConfigured(context.Background()) {
		resultMailer = a.MailerService
	}

	a.ToolsService = tools.NewService(
		a.MapsService,
		a.OAuthService,
		a.StorageManager.AgentStorage(),
		a.StorageManager.UserStorage(),
		resultMailer,
		&a.Config.Automation,
		a.Logger,
	)

	a.AgentsService = agents.NewService(
		a.StorageManager,
		a.VoiceClient,
		a.SummaryFormatter,
		resultMailer,
		&a.Config.Server,
		a.Logger,
	)

	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler()
	a.AccountHandler = handlers.NewAccountHandler(a.AccountsService, a.Logger)
	a.IntegrationHandler = handlers.NewIntegrationHandler(
		a.IntegrationsService,
		a.OAuthService,
		a.StorageManager.IntegrationStorage(),
		a.Logger,
	)
	a.OAuthHandler = handlers.NewOAuthHandler(a.OAuthService, &a.Config.OAuth, a.Logger)
	a.MapsHandler = handlers.NewMapsHandler(a.MapsService, a.Logger)
	a.AgentHandler = handlers.NewAgentHandler(a.AgentsService, a.Logger)
	a.CallHandler = handlers.NewCallHandler(a.AgentsService, a.Logger)
	a.WebhookHandler = handlers.NewWebhookHandler(
		a.AgentsService,
		a.ToolsService,
		a.VoiceClient,
		a.Config.Server.BaseURL+"/api/voice/webhook",
		a.Logger,
	)
	a.FileHandler = handlers.NewFileHandler(a.VoiceClient, a.Logger)
}

// Start brings up background work: the session sweeper and, when the
// platform is configured, server tool registration.
func (a *App) Start(ctx context.Context) error {
	if err := a.AccountsService.StartSweeper(); err != nil {
		return err
	}

	if a.Config.Voice.APIKey != "" {
		go a.registerTools(ctx)
	}

	return nil
}

// registerTools ensures the platform knows about the server tools and
// hands their ids to the agents service for new assistants
func (a *App) registerTools(ctx context.Context) {
	serverURL := a.Config.Server.BaseURL + "/api/voice/webhook"

	ids, err := tools.EnsureTools(ctx, a.VoiceClient, serverURL, a.Logger)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to register platform tools")
		return
	}

	list := make([]string, 0, len(ids))
	for _, id := range ids {
		list = append(list, id)
	}
	a.AgentsService.SetToolIDs(list)

	a.Logger.Info().Int("count", len(list)).Msg("Platform tools registered")
}

// Close shuts down background work and storage
func (a *App) Close() error {
	a.AccountsService.Stop()

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}
	return nil
}
