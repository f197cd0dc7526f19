package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/blobstore"
	"social-publisher/infrastructure/cache"
	"social-publisher/infrastructure/clients/oauth"
	"social-publisher/infrastructure/clients/publisher"
	"social-publisher/infrastructure/configuration"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/persistence"
	"social-publisher/infrastructure/pubsub"
	"social-publisher/infrastructure/realtime"
	"social-publisher/infrastructure/servicebus"
	httpHandler "social-publisher/interfaces/http"
	"social-publisher/server"
	"social-publisher/usecase"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	if err := run(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	cfg := configuration.C
	lg := logger.GetLogger()

	psqlDb, err := persistence.NewPostgreSQLDB()
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer psqlDb.Close()
	if err := persistence.Migrate(psqlDb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	connections, credentialDb, err := initiateCredentialStore(ctx, psqlDb)
	if err != nil {
		return err
	}
	jobs := persistence.NewScheduledJobRepository(psqlDb)
	attempts := persistence.NewPublishAttemptRepository(psqlDb)

	contentDb, err := persistence.NewContentDB()
	if err != nil {
		return fmt.Errorf("connect content catalog: %w", err)
	}
	contents := persistence.NewContentRepository(contentDb)

	redisClient, err := cache.NewCache(ctx)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()
	nonces := cache.NewNonceStore(redisClient, cfg.RedisClient.NonceTTL)

	var archive repository.IAttemptArchive
	if mongoClient, err := persistence.NewMongoDb(ctx); err != nil {
		lg.WithField("error", err).Warn("MongoDB not available - continuing without attempt archive")
	} else {
		defer mongoClient.Disconnect(context.Background())
		archive = persistence.NewAttemptArchive(mongoClient, cfg.Database.Mongo.Name)
		lg.Info("MongoDB connected successfully")
	}

	bus := realtime.NewBus(initiateSinks(ctx)...)
	g.Go(func() error { return bus.Run(ctx) })

	exchangers := initiateExchangers(cfg)
	blobs := blobstore.NewHTTPStore(cfg.BlobStore, nil)
	opts := publisher.Options{RequestsPerSecond: cfg.Publish.RequestsPerSecond, Burst: cfg.Publish.Burst}
	publishers := publisher.NewRegistry(
		publisher.NewVideoPublisher(cfg.Platforms.Video, blobs, cfg.Publish.VideoUploadAttempts, opts),
		publisher.NewPagePublisher(cfg.Platforms.Graph, blobs, opts),
		publisher.NewPhotoPublisher(cfg.Platforms.Graph, cfg.Publish.PhotoPollInterval, cfg.Publish.PhotoMaxPolls, opts),
	)

	resolver := usecase.NewCredentialResolver(connections, exchangers, bus, cfg.OAuth.RefreshSkew, cfg.OAuth.ExtendWindow)
	connectionUC := usecase.NewConnectionUsecase(connections, exchangers, nonces, bus, cfg.App.SecretKey, cfg.OAuth.StateTTL)
	scheduleUC := usecase.NewScheduleUsecase(jobs, attempts, contents, bus)
	statusUC := usecase.NewStatusUsecase(connections, jobs, attempts, cfg.OAuth.ExtendWindow)
	runner := usecase.NewJobRunner(jobs, attempts, archive, contents, blobs, resolver, publishers, bus, usecase.RunnerConfig{
		BatchSize:      cfg.Scheduler.BatchSize,
		Concurrency:    cfg.Scheduler.Concurrency,
		PublishTimeout: cfg.Publish.Timeout,
	})

	checks := map[string]httpHandler.Pinger{"postgres": psqlDb, "redis": cache.Pinger{Client: redisClient}}
	if credentialDb != psqlDb {
		checks["mssql"] = credentialDb
	}
	router := server.InitiateRouter(server.Handlers{
		Connection: httpHandler.NewConnectionHandler(connectionUC, cfg.App.ConnectionsURL),
		Job:        httpHandler.NewJobHandler(scheduleUC, statusUC),
		Status:     httpHandler.NewStatusHandler(statusUC, bus),
		Runner:     httpHandler.NewRunnerHandler(runner),
		Health:     httpHandler.NewHealthHandler(checks),
	}, server.RouterConfig{
		AllowedOrigins: cfg.App.AllowedOrigins,
		SecretKey:      cfg.App.SecretKey,
		CronSecret:     cfg.Scheduler.CronSecret,
	})

	if cfg.Scheduler.Enabled {
		lg.WithField("interval", cfg.Scheduler.Interval.String()).Info("In-process scheduler enabled")
		g.Go(func() error { return runner.RunEvery(ctx, cfg.Scheduler.Interval) })
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	lg.WithFields(logrus.Fields{"port": cfg.App.Port, "tls": cfg.App.TLSEnabled}).Info("Starting application")
	g.Go(func() error {
		var err error
		if cfg.App.TLSEnabled && cfg.App.TLSCertFile != "" && cfg.App.TLSKeyFile != "" {
			err = httpServer.ListenAndServeTLS(cfg.App.TLSCertFile, cfg.App.TLSKeyFile)
		} else {
			if cfg.App.TLSEnabled {
				lg.Error("TLS enabled but cert or key path empty; falling back to HTTP")
			}
			err = httpServer.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		lg.Info("Application shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// initiateCredentialStore returns the connection repository and the database backing it.
func initiateCredentialStore(ctx context.Context, psqlDb *sql.DB) (repository.IConnection, *sql.DB, error) {
	if configuration.C.Database.CredentialStore != "mssql" {
		return persistence.NewConnectionRepository(psqlDb), psqlDb, nil
	}
	mssqlDb, err := persistence.NewMSSQLDB(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("connect mssql credential store: %w", err)
	}
	if err := persistence.EnsureConnectionSchemaMSSQL(mssqlDb); err != nil {
		return nil, nil, fmt.Errorf("ensure mssql credential schema: %w", err)
	}
	logger.GetLogger().Info("Using SQL Server credential store")
	return persistence.NewConnectionRepositoryMSSQL(mssqlDb), mssqlDb, nil
}

func initiateSinks(ctx context.Context) []repository.IEventSink {
	var sinks []repository.IEventSink
	lg := logger.GetLogger()

	if topic := configuration.C.Pubsub.Topic; topic != "" {
		client, err := pubsub.NewClient(ctx, configuration.C.Pubsub.ProjectID)
		if err != nil {
			lg.WithField("error", err).Warn("PubSub not available - events stay in process")
		} else {
			sinks = append(sinks, pubsub.NewEventSink(client, topic))
		}
	}

	if ns := configuration.C.ServiceBus.Namespace; ns != "" {
		client, err := servicebus.NewClient(ns)
		if err == nil {
			var sink repository.IEventSink
			if sink, err = servicebus.NewEventSink(client, configuration.C.ServiceBus.Queue); err == nil {
				sinks = append(sinks, sink)
			}
		}
		if err != nil {
			lg.WithField("error", err).Warn("Azure Service Bus not available - events stay in process")
		}
	}
	return sinks
}

func initiateExchangers(cfg configuration.Config) oauth.Registry {
	clients := make(map[model.Platform]configuration.OAuthClient, 3)
	for _, p := range model.AllPlatforms() {
		client, err := configuration.OAuthClientFor(p)
		if err != nil {
			// Registered anyway so the connect flow reports exactly what is missing.
			logger.GetLogger().WithField("platform", p).WithField("error", err).Warn("Platform OAuth client incomplete")
		}
		clients[p] = client
	}
	timeout := cfg.OAuth.Timeout
	return oauth.NewRegistry(
		oauth.NewVideoExchanger(clients[model.PlatformVideo], cfg.Platforms.Video, timeout, nil),
		oauth.NewPageExchanger(clients[model.PlatformPage], cfg.Platforms.Graph, timeout, nil),
		oauth.NewPhotoExchanger(clients[model.PlatformPhoto], cfg.Platforms.Graph, timeout, nil),
	)
}
