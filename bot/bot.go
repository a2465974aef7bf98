package bot

import (
	"context"
	"fmt"
	"time"

	"ironforged/bot/features/gamble"
	"ironforged/bot/features/ingots"
	"ironforged/bot/features/raffle"
	"ironforged/reconcile"
	"ironforged/service"
	"ironforged/state"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Config holds bot configuration
type Config struct {
	Token           string
	GuildID         string
	ReportChannelID string
	AdminRoleName   string

	OfferTTL        time.Duration
	PayrollAmount   int64
	PayrollInterval time.Duration
	StateFile       string
}

// Services are the domain services the bot drives
type Services struct {
	Members service.MemberService
	Ingots  service.IngotService
	Raffle  service.RaffleService
	Gamble  service.GambleService
	Payroll service.PayrollService
}

type Bot struct {
	config   Config
	session  *discordgo.Session
	services Services
	store    *state.Store

	roles    *roleManager
	notifier *channelNotifier
	emitter  *reconcile.Emitter
	ledger   *reconcile.CorrectiveActions
	updates  *updateQueue

	ingots *ingots.Feature
	raffle *raffle.Feature
	gamble *gamble.Feature
	routes map[string]commandHandler

	stopWorkers func()
}

// New prepares the session and the guild adapters. Nothing talks to
// Discord until Start.
func New(config Config, services Services, store *state.Store) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers
	dg.StateEnabled = true
	dg.State.TrackMembers = true
	dg.State.TrackRoles = true
	// Handlers run on the gateway goroutine so member updates are queued in
	// arrival order. Anything slow is moved off it with async.
	dg.SyncEvents = true

	bot := &Bot{
		config:   config,
		session:  dg,
		services: services,
		store:    store,
		roles:    newRoleManager(dg, config.GuildID),
		notifier: &channelNotifier{api: dg},
		ingots:   ingots.New(services.Members, services.Ingots),
		raffle:   raffle.New(services.Raffle, services.Ingots, store),
		gamble:   gamble.New(dg, services.Gamble, config.OfferTTL),
	}
	bot.routes = bot.buildRoutes()
	bot.updates = newUpdateQueue(bot.dispatchUpdate)

	return bot, nil
}

// GuildRoles is the guild adapter the reconciliation handlers act through
func (b *Bot) GuildRoles() reconcile.GuildRoles {
	return b.roles
}

// Notifier posts reconciliation reports to channels
func (b *Bot) Notifier() reconcile.Notifier {
	return b.notifier
}

// Start connects to Discord, registers commands and starts the workers.
// Member updates are dispatched to emitter.
func (b *Bot) Start(ctx context.Context, emitter *reconcile.Emitter, ledger *reconcile.CorrectiveActions) error {
	b.emitter = emitter
	b.ledger = ledger

	// Register slash command handlers
	b.session.AddHandler(async(b.handleCommands))

	// Register component interaction handlers
	b.session.AddHandler(async(b.handleComponents))

	// Member reconciliation. The handler only enqueues, so it stays synchronous.
	b.session.AddHandler(b.handleMemberUpdate)
	b.session.AddHandler(async(b.handleReady))
	b.session.AddHandler(func(s *discordgo.Session, e *discordgo.GuildRoleCreate) { b.invalidateRoles(e.GuildID) })
	b.session.AddHandler(func(s *discordgo.Session, e *discordgo.GuildRoleUpdate) { b.invalidateRoles(e.GuildID) })
	b.session.AddHandler(func(s *discordgo.Session, e *discordgo.GuildRoleDelete) { b.invalidateRoles(e.GuildID) })

	// Open websocket connection
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	// Register slash commands with Discord
	if err := b.registerCommands(); err != nil {
		b.session.Close()
		return fmt.Errorf("error registering commands: %w", err)
	}

	b.stopWorkers = startWorkers(ctx, b.workers())
	return nil
}

// Close stops the workers, disconnects and waits for queued member updates
func (b *Bot) Close() error {
	if b.stopWorkers != nil {
		b.stopWorkers()
	}
	err := b.session.Close()
	b.updates.wait()
	return err
}

// async runs h on its own goroutine. The session dispatches events
// synchronously, and Ready is delivered while Open still holds the session
// lock, so handlers that block or call back into the session go through here.
func async[T any](h func(*discordgo.Session, T)) func(*discordgo.Session, T) {
	return func(s *discordgo.Session, event T) {
		go h(s, event)
	}
}

// handleReady fills the member cache so updates arrive with a before state
func (b *Bot) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	log.WithField("user", r.User.Username).Info("Connected to Discord")
	if err := s.RequestGuildMembers(b.config.GuildID, "", 0, "", false); err != nil {
		log.WithError(err).Error("Failed to request guild members")
	}
}

func (b *Bot) handleComponents(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	if gamble.IsGambleCustomID(i.MessageComponentData().CustomID) {
		b.gamble.HandleInteraction(s, i)
	}
}

func (b *Bot) invalidateRoles(guildID string) {
	if guildID == b.config.GuildID {
		b.roles.Invalidate()
	}
}
