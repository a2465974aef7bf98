package cmd

import (
	"context"
	"fmt"
	"time"

	"ironforged/bot"
	"ironforged/config"
	"ironforged/database"
	"ironforged/events"
	"ironforged/infrastructure"
	"ironforged/metrics"
	"ironforged/reconcile"
	"ironforged/repository"
	"ironforged/service"
	"ironforged/state"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	// Load configuration
	cfg := config.Get()
	configureLogging(cfg)

	log.Info("Starting Iron Forged bot...")

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully")

	// Initialize event bus
	eventBus := events.NewBus()

	// Metrics
	m := metrics.New()
	m.Subscribe(eventBus)
	if cfg.MetricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.WithError(err).Error("Metrics server stopped")
			}
		}()
	}

	// Optional NATS forwarding of committed events
	natsClient, err := connectNATS(ctx, cfg, eventBus, m)
	if err != nil {
		return err
	}
	if natsClient != nil {
		defer func() {
			log.Info("Draining NATS connection...")
			if err := natsClient.Close(); err != nil {
				log.WithError(err).Warn("Error closing NATS connection")
			}
		}()
	}

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Process-local state
	store := state.NewStore()
	if err := store.Load(cfg.StateFile, time.Now().UTC()); err != nil {
		log.WithError(err).Warn("Ignoring unreadable state file")
	}
	defer func() {
		log.Info("Saving state...")
		if err := store.Save(cfg.StateFile); err != nil {
			log.WithError(err).Error("Failed to save state")
		}
	}()

	// Initialize services
	log.Info("Initializing services...")
	memberService := service.NewMemberService(uowFactory, cfg.ReactivationResetAfter)
	ingotService := service.NewIngotService(uowFactory)
	services := bot.Services{
		Members: memberService,
		Ingots:  ingotService,
		Raffle:  service.NewRaffleService(uowFactory),
		Gamble:  service.NewGambleService(ingotService, store, cfg.OfferTTL),
		Payroll: service.NewPayrollService(memberService, ingotService),
	}
	log.Info("Services initialized successfully")

	// Initialize Discord bot
	log.Info("Initializing Discord bot...")
	discordBot, err := bot.New(bot.Config{
		Token:           cfg.DiscordToken,
		GuildID:         cfg.GuildID,
		ReportChannelID: cfg.ReportChannelID,
		AdminRoleName:   cfg.AdminRoleName,
		OfferTTL:        cfg.OfferTTL,
		PayrollAmount:   cfg.PayrollAmount,
		PayrollInterval: cfg.PayrollInterval,
		StateFile:       cfg.StateFile,
	}, services, store)
	if err != nil {
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}

	// Member reconciliation
	ledger := reconcile.NewCorrectiveActions(cfg.CorrectiveActionTTL)
	emitter := newEmitter(cfg, memberService, discordBot.GuildRoles(), discordBot.Notifier(), ledger)
	emitter.SetObserver(m)

	if err := discordBot.Start(ctx, emitter, ledger); err != nil {
		return fmt.Errorf("failed to start Discord bot: %w", err)
	}
	log.Info("Discord bot initialized successfully")

	// Wait for context cancellation
	log.WithField("environment", cfg.Environment).Info("Bot is running")
	<-ctx.Done()

	// Cleanup resources
	log.Info("Shutting down bot...")
	if err := discordBot.Close(); err != nil {
		log.WithError(err).Error("Error closing Discord bot")
	}

	return nil
}

// newEmitter registers the reconciliation handlers
func newEmitter(cfg *config.Config, members reconcile.MemberService, guild reconcile.GuildRoles, notifier reconcile.Notifier, ledger *reconcile.CorrectiveActions) *reconcile.Emitter {
	emitter := reconcile.NewEmitter(ledger, notifier)
	emitter.Register(reconcile.NewAddMemberRole(members, guild, ledger, cfg.MemberRoleName))
	emitter.Register(reconcile.NewRemoveMemberRole(members, cfg.MemberRoleName))
	emitter.Register(reconcile.NewUpdateMemberRank(members, cfg.MemberRoleName))
	emitter.Register(reconcile.NewUpdateMemberRole(members, cfg.MemberRoleName))
	emitter.Register(reconcile.NewNicknameChange(members, guild, ledger, cfg.MemberRoleName))
	return emitter
}

// connectNATS returns nil when forwarding is disabled
func connectNATS(ctx context.Context, cfg *config.Config, bus *events.Bus, m *metrics.Metrics) (*infrastructure.NATSClient, error) {
	if cfg.NATSServers == "" {
		log.Info("NATS_SERVERS not set, event forwarding disabled")
		return nil, nil
	}

	log.Info("Connecting to NATS...")
	client := infrastructure.NewNATSClient(cfg.NATSServers)
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	if err := client.EnsureEventStream(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ensure event stream: %w", err)
	}

	publisher := infrastructure.NewNATSEventPublisher(client)
	publisher.OnPublished = m.EventForwarded
	publisher.Forward(bus)
	log.Info("Forwarding events to NATS")

	return client, nil
}

func configureLogging(cfg *config.Config) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	level := log.InfoLevel
	if cfg.IsDevelopment() {
		level = log.DebugLevel
	}
	if cfg.LogLevel != "" {
		parsed, err := log.ParseLevel(cfg.LogLevel)
		if err != nil {
			log.WithField("logLevel", cfg.LogLevel).Warn("Unknown LOG_LEVEL, keeping default")
		} else {
			level = parsed
		}
	}
	log.SetLevel(level)
}
