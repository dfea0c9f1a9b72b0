package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/mc3-grc/user-lifecycle-service/internal/api"
	httptransport "github.com/mc3-grc/user-lifecycle-service/internal/api/http"
	"github.com/mc3-grc/user-lifecycle-service/internal/api/http/handlers"
	"github.com/mc3-grc/user-lifecycle-service/internal/auth"
	"github.com/mc3-grc/user-lifecycle-service/internal/config"
	"github.com/mc3-grc/user-lifecycle-service/internal/events"
	"github.com/mc3-grc/user-lifecycle-service/internal/identity"
	"github.com/mc3-grc/user-lifecycle-service/internal/locator"
	"github.com/mc3-grc/user-lifecycle-service/internal/notify"
	"github.com/mc3-grc/user-lifecycle-service/internal/observability"
	"github.com/mc3-grc/user-lifecycle-service/internal/service"
	"github.com/mc3-grc/user-lifecycle-service/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		logger.Fatal("failed to load aws config", zap.Error(err))
	}

	dynamoClient := dynamodb.NewFromConfig(awsCfg)
	ssmClient := ssm.NewFromConfig(awsCfg)
	cognitoClient := cognitoidentityprovider.NewFromConfig(awsCfg)

	tableLocator := locator.New(ssmClient, dynamoClient, cfg.AWS.TableParamPrefix, logger)
	statusStore := store.NewStatusStore(dynamoClient, tableLocator, cfg.Tables.UserStatus, logger)
	auditStore := store.NewAuditStore(dynamoClient, tableLocator, cfg.Tables.AuditLog, logger)
	settingsStore := store.NewSettingsStore(dynamoClient, tableLocator, cfg.Tables.SystemSettings, logger)

	provider := identity.NewCognitoProvider(cognitoClient, cfg.AWS.UserPoolID)

	var mailer notify.Mailer
	if cfg.Email.Provider == "smtp" {
		mailer = notify.NewSMTPMailer(cfg.Email, logger)
	} else {
		mailer = notify.NewSESMailer(ses.NewFromConfig(awsCfg), cfg.Email.Sender, logger)
	}
	renderer, err := notify.NewRenderer(cfg.Email.LogoURL)
	if err != nil {
		logger.Fatal("failed to parse email templates", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, mailer, renderer, logger)
	notifications.RegisterHandlers()

	lifecycle := service.NewLifecycleService(service.LifecycleDependencies{
		Provider:   provider,
		StatusRepo: statusStore,
		AuditRepo:  auditStore,
		Dispatcher: dispatcher,
		Groups:     cfg.Groups,
		Logger:     logger,
	})
	reader := service.NewReaderService(service.ReaderDependencies{
		Provider:    provider,
		StatusRepo:  statusStore,
		AuditRepo:   auditStore,
		PageSize:    cfg.AWS.ListUsersPageSize,
		Parallelism: cfg.AWS.ListLookupParallel,
		Logger:      logger,
	})
	settings := service.NewSettingsService(settingsStore, auditStore, logger)

	metrics := observability.NewMetrics()
	opDispatcher := api.NewDispatcher(lifecycle, reader, settings, metrics, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, tableLocator, cfg.Tables.UserStatus)
	adminHandler := handlers.NewAdminHandler(opDispatcher)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Admin:          adminHandler,
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
