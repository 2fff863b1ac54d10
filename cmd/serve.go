package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"wingo/application"
	"wingo/config"
	"wingo/database"
	"wingo/events"
	"wingo/infrastructure"
	"wingo/infrastructure/observability"
	"wingo/repository"
	"wingo/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the round scheduler",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return Run(ctx, config.Get())
	},
}

// Run wires the engine and blocks until ctx is cancelled
func Run(ctx context.Context, cfg *config.Config) error {
	log.WithFields(log.Fields{
		"environment": cfg.Environment,
		"intervals":   cfg.IntervalLabels(),
	}).Info("Starting wingo engine...")

	// Initialize metrics
	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metrics := observability.GetMetrics()

	// Initialize database connection
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// Initialize event publishing
	eventBus := events.NewBus()
	metrics.SubscribeToEvents(eventBus)

	var publisher events.Publisher = eventBus
	if cfg.NATSServers != "" {
		natsClient := infrastructure.NewNATSClient(cfg.NATSServers, "wingo-engine")
		if err := natsClient.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer natsClient.Close()

		mapper := infrastructure.NewEventSubjectMapper()
		if err := infrastructure.EnsureEventStream(natsClient, mapper); err != nil {
			return fmt.Errorf("failed to ensure event stream: %w", err)
		}
		natsPublisher := infrastructure.NewNATSEventPublisher(natsClient, mapper, eventBus, metrics, infrastructure.DefaultPublishQueueSize)
		defer func() {
			drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := natsPublisher.Close(drainCtx); err != nil {
				log.WithError(err).Warn("Event queue not fully drained")
			}
		}()
		publisher = natsPublisher
		log.WithField("servers", cfg.NATSServers).Info("Publishing events to NATS")
	} else {
		log.Info("NATS_SERVERS not set, events stay in-process")
	}

	// Initialize concurrency guard
	guard, closeGuard, err := newGuard(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeGuard()

	// Initialize services
	uowFactory := repository.NewUnitOfWorkFactory(db, publisher)
	roundRepo := repository.NewRoundRepository(db)

	demoUsers := service.NewDemoUserService(repository.NewDemoUserRepository(db), service.NewDemoUserCache())
	if err := demoUsers.Refresh(ctx); err != nil {
		log.WithError(err).Warn("Initial demo user refresh failed, continuing without demo users")
	}

	roundService := service.NewRoundService(uowFactory, roundRepo, cfg.Intervals, cfg.BettingCutoff)
	settlementService := service.NewSettlementService(
		uowFactory,
		roundRepo,
		demoUsers,
		service.NewRandomSource(),
		cfg.SingleBetThreshold,
		cfg.SettlementBatchSize,
	)

	scheduler := application.NewRoundScheduler(
		roundService,
		settlementService,
		demoUsers,
		guard,
		metrics,
		cfg.SchedulerTick,
		cfg.DemoRefreshInterval,
	)
	stopScheduler := scheduler.Start(ctx)

	log.Info("Wingo engine is running")
	<-ctx.Done()

	log.Info("Shutting down wingo engine...")
	stopScheduler()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.WithError(err).Error("Failed to shut down metrics")
	}

	log.Info("Shutdown completed")
	return nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.SetIsolationLevel(cfg.IsolationLevel); err != nil {
		db.Close()
		return nil, err
	}
	log.WithField("isolation", cfg.IsolationLevel).Debug("Database connection established")
	return db, nil
}

func newGuard(ctx context.Context, cfg *config.Config) (service.Guard, func(), error) {
	if cfg.GuardBackend != "redis" {
		log.Info("Using in-process scheduler guard")
		return service.NewLocalGuard(), func() {}, nil
	}

	client, err := infrastructure.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	closeClient := func() {
		if err := client.Close(); err != nil {
			log.WithError(err).Warn("Failed to close Redis client")
		}
	}
	log.WithField("ttl", cfg.GuardTTL).Info("Using Redis scheduler guard")
	return infrastructure.NewRedisGuard(client, cfg.GuardTTL), closeClient, nil
}
