// Package app builds the service dependency graph shared by the server and the operator CLI.
package app

import (
	"context"
	"fmt"
	"log"

	accountdomain "github.com/Alok-Gaur/mail-management-agent/internal/account/domain"
	accountrepo "github.com/Alok-Gaur/mail-management-agent/internal/account/repository"
	accountusecase "github.com/Alok-Gaur/mail-management-agent/internal/account/usecase"
	enrichdomain "github.com/Alok-Gaur/mail-management-agent/internal/enrichment/domain"
	enrichrepo "github.com/Alok-Gaur/mail-management-agent/internal/enrichment/repository"
	enrichusecase "github.com/Alok-Gaur/mail-management-agent/internal/enrichment/usecase"
	historydomain "github.com/Alok-Gaur/mail-management-agent/internal/history/domain"
	historyrepo "github.com/Alok-Gaur/mail-management-agent/internal/history/repository"
	ingestusecase "github.com/Alok-Gaur/mail-management-agent/internal/ingest/usecase"
	mailusecase "github.com/Alok-Gaur/mail-management-agent/internal/mail/usecase"
	"github.com/Alok-Gaur/mail-management-agent/internal/notification"
	watchusecase "github.com/Alok-Gaur/mail-management-agent/internal/watch/usecase"
	"github.com/Alok-Gaur/mail-management-agent/pkg/ai"
	"github.com/Alok-Gaur/mail-management-agent/pkg/chroma"
	"github.com/Alok-Gaur/mail-management-agent/pkg/config"
	"github.com/Alok-Gaur/mail-management-agent/pkg/database"
	"github.com/Alok-Gaur/mail-management-agent/pkg/fcm"
	"github.com/Alok-Gaur/mail-management-agent/pkg/gmail"

	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Policy config.Policy
	DB     *gorm.DB

	Accounts  accountrepo.AccountRepository
	FCMTokens accountrepo.FCMTokenRepository
	History   historyrepo.HistoryRepository

	Credentials    *accountusecase.Credentials
	Directory      *accountusecase.Directory
	OperatorTokens *accountusecase.OperatorTokens

	Gmail        *gmail.Service
	Decoder      *mailusecase.Decoder
	AISettings   *ai.RuntimeSettings
	Pipeline     *enrichusecase.Pipeline
	Orchestrator *ingestusecase.Orchestrator
	Worker       *ingestusecase.BatchWorker
	Watch        *watchusecase.WatchUsecase

	chroma *chroma.ChromaClient
}

// Models lists every table the service owns.
func Models() []interface{} {
	return []interface{}{
		&accountdomain.Account{},
		&accountdomain.Settings{},
		&accountdomain.Label{},
		&accountdomain.FCMToken{},
		&historydomain.HistoryRecord{},
		&enrichdomain.FinanceRecord{},
		&enrichdomain.ReplyDraft{},
		&enrichdomain.CalendarEvent{},
	}
}

// New loads the policy file, opens the database and builds the graph.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return nil, err
	}

	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		return nil, err
	}
	return Build(ctx, cfg, policy, db)
}

// Build migrates db and wires every component. The search index and push
// notifications are optional and stay off when unconfigured.
func Build(ctx context.Context, cfg *config.Config, policy config.Policy, db *gorm.DB) (*App, error) {
	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	a := &App{
		Config:         cfg,
		Policy:         policy,
		DB:             db,
		Accounts:       accountrepo.NewAccountRepository(db),
		FCMTokens:      accountrepo.NewFCMTokenRepository(db),
		History:        historyrepo.NewHistoryRepository(db),
		OperatorTokens: accountusecase.NewOperatorTokens(cfg.SecretKey),
		Gmail:          gmail.NewService(gmail.WithRateLimit(cfg.GmailRatePerSecond, cfg.GmailBurst)),
		Decoder:        mailusecase.NewDecoder(),
		AISettings:     ai.NewRuntimeSettings(cfg.OllamaBaseURL, cfg.OllamaModel),
	}
	a.Credentials = accountusecase.NewCredentials(a.Accounts, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.TokenEncryptionKey)
	a.Directory = accountusecase.NewDirectory(a.Accounts, a.Credentials, policy)

	generator, err := ai.NewTextGenerator(ai.Config{
		Provider:         ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:     cfg.GeminiApiKey,
		AgentURL:         cfg.AgentURL,
		AgentModel:       cfg.AgentModel,
		GetOllamaBaseURL: a.AISettings.OllamaBaseURL,
		GetOllamaModel:   a.AISettings.OllamaModel,
		Timeout:          cfg.AITimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AI service: %w", err)
	}
	log.Printf("[App] AI service initialized with provider: %s", cfg.AIProvider)

	actions := mailusecase.NewMailboxActions(a.Credentials, a.Gmail)
	deps := enrichusecase.Deps{
		Generator: generator,
		Labeler:   actions,
		Drafter:   actions,
		Finance:   enrichrepo.NewGormFinanceRepository(db),
		Drafts:    enrichrepo.NewGormDraftRepository(db),
		Events:    enrichrepo.NewGormEventRepository(db),
	}
	if cfg.ChromaURL != "" || cfg.ChromaAPIKey != "" {
		client, err := chroma.NewChromaClient(cfg)
		if err != nil {
			log.Printf("[WARN] Search index disabled: %v", err)
		} else {
			a.chroma = client
			deps.Index = client
		}
	}
	a.Pipeline = enrichusecase.NewPipeline(deps, policy.StageTimeout)

	a.Orchestrator = ingestusecase.NewOrchestrator(
		a.Directory,
		a.History,
		mailusecase.NewResolver(a.Credentials, a.Gmail),
		mailusecase.NewNormalizer(a.Credentials, a.Gmail),
		a.Pipeline,
		policy,
	)
	a.Worker = ingestusecase.NewBatchWorker(a.Orchestrator, policy.WorkerCount, policy.QueueSize)
	a.Orchestrator.UseWorker(a.Worker)

	if cfg.FirebaseCredentials != "" {
		fcmClient, err := fcm.NewClient(ctx, cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[WARN] Failed to initialize FCM client (push notifications disabled): %v", err)
		} else {
			a.Orchestrator.AddObserver(notification.NewPushNotifier(a.FCMTokens, fcmClient))
		}
	}

	a.Watch = watchusecase.NewWatchUsecase(a.Accounts, a.Credentials, a.Gmail, cfg.TopicResourceName())
	return a, nil
}

// NewSubscriber builds the Pub/Sub pull subscriber for the mailbox topic.
func (a *App) NewSubscriber(ctx context.Context) (*notification.Subscriber, error) {
	if a.Config.GoogleProjectID == "" {
		return nil, fmt.Errorf("GOOGLE_PROJECT_ID is required for the pubsub subscriber")
	}
	return notification.NewSubscriber(ctx,
		a.Config.GoogleProjectID,
		a.Config.TopicShortName(),
		a.Config.GoogleCredentials,
		a.Decoder,
		a.Orchestrator,
		a.Policy.WorkerCount,
	)
}

// Close releases the search index connection.
func (a *App) Close() error {
	if a.chroma != nil {
		return a.chroma.Close()
	}
	return nil
}
