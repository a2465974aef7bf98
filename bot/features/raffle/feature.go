package raffle

import (
	"context"
	"fmt"
	"sync"

	"ironforged/bot/common"
	"ironforged/service"
	"ironforged/state"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Feature runs raffle rounds. The open/closed switch and ticket price live
// in the process state store; tickets live in the database.
type Feature struct {
	raffleService service.RaffleService
	ingotService  service.IngotService
	store         *state.Store

	// round is held shared by purchases and exclusively by start and end, so
	// a ticket is either in the draw or bought in a round that is still open
	round sync.RWMutex
}

func New(raffleService service.RaffleService, ingotService service.IngotService, store *state.Store) *Feature {
	return &Feature{
		raffleService: raffleService,
		ingotService:  ingotService,
		store:         store,
	}
}

// HandleBuyTicket serves /buy_ticket quantity
func (f *Feature) HandleBuyTicket(s *discordgo.Session, i *discordgo.InteractionCreate) {
	discordID, botErr := common.InteractionDiscordID(i)
	if botErr != nil {
		common.RespondWithBotError(s, i, botErr)
		return
	}

	quantity := common.NewOptions(i.ApplicationCommandData().Options).Int("quantity", 1)
	message, botErr := f.buy(context.Background(), discordID, quantity)
	if botErr != nil {
		common.RespondWithBotError(s, i, botErr)
		return
	}
	common.Respond(s, i, message, false)
}

// HandleCommand routes /raffle subcommands
func (f *Feature) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return
	}

	discordID, botErr := common.InteractionDiscordID(i)
	if botErr != nil {
		common.RespondWithBotError(s, i, botErr)
		return
	}

	ctx := context.Background()
	sub := options[0]
	var message string

	switch sub.Name {
	case "start":
		message, botErr = f.start(ctx, common.NewOptions(sub.Options).Int("price", 0))
	case "end":
		message, botErr = f.end(ctx, discordID)
	case "status":
		message, botErr = f.status(ctx, discordID)
	default:
		return
	}

	if botErr != nil {
		common.RespondWithBotError(s, i, botErr)
		return
	}
	common.Respond(s, i, message, false)
}

func (f *Feature) buy(ctx context.Context, discordID int64, quantity int64) (string, *common.BotError) {
	f.round.RLock()
	defer f.round.RUnlock()

	open, price := f.store.Raffle()
	if !open {
		return "", common.NewBotError("There is no raffle running right now", "Ticket purchase without raffle", nil)
	}

	result, err := f.raffleService.TryBuyTicket(ctx, discordID, price, quantity)
	if err != nil {
		return "", common.NewBotError("Unable to buy tickets. Please try again.", "Error buying raffle tickets", err)
	}
	return common.FormatIngotResult(result), nil
}

func (f *Feature) start(ctx context.Context, price int64) (string, *common.BotError) {
	if price <= 0 {
		return "", common.NewBotError("Ticket price must be a positive number", "Invalid raffle price", nil)
	}

	f.round.Lock()
	defer f.round.Unlock()

	if open, _ := f.store.Raffle(); open {
		return "", common.NewBotError("A raffle is already running", "Raffle already open", nil)
	}
	leftover, err := f.raffleService.TotalTickets(ctx)
	if err != nil {
		return "", common.NewBotError("Unable to start the raffle. Please try again.", "Error counting raffle tickets", err)
	}
	if leftover > 0 {
		return "", common.NewBotError(
			fmt.Sprintf("%d tickets from the last raffle were never cleared. Run `/raffle end` to clear them first.", leftover),
			"Raffle start with leftover tickets", nil)
	}
	if !f.store.OpenRaffle(price) {
		return "", common.NewBotError("A raffle is already running", "Raffle already open", nil)
	}
	f.store.ResetJackpot()

	log.WithField("ticketPrice", price).Info("Raffle started")
	return fmt.Sprintf("🎟️ The raffle is open! Tickets cost **%s ingots** each. Use `/buy_ticket` to join.",
		common.FormatIngots(price)), nil
}

// end closes the round, pays half the pot to a ticket-weighted winner and
// clears every ticket. The prize is paid by the house, not by actorID.
func (f *Feature) end(ctx context.Context, actorID int64) (string, *common.BotError) {
	f.round.Lock()
	defer f.round.Unlock()

	price, ok := f.store.CloseRaffle()
	if !ok {
		return f.clearLeftovers(ctx)
	}

	draw, err := f.raffleService.PickWinner(ctx)
	if err != nil {
		f.store.OpenRaffle(price)
		return "", common.NewBotError("Unable to draw a winner. The raffle is still open.", "Error picking raffle winner", err)
	}
	if draw == nil {
		return "The raffle has ended, but nobody bought a ticket.", nil
	}

	prize := Prize(draw.TotalTickets, price)
	result, err := f.ingotService.TryAddIngots(ctx, draw.Winner.DiscordID, prize, nil, "Raffle winnings")
	if err != nil || !result.Status {
		f.store.OpenRaffle(price)
		return "", common.NewBotError("Unable to pay the winner. The raffle is still open.", "Error paying raffle winner", err)
	}

	message := fmt.Sprintf("🎉 %s won the raffle with %d of %d tickets and takes home **%s ingots**!",
		common.Mention(draw.Winner.DiscordID), draw.WinnerTickets, draw.TotalTickets, common.FormatIngots(prize))

	if err := f.raffleService.DeleteAllTickets(ctx); err != nil {
		log.WithError(err).Error("Raffle winner paid but tickets were not cleared")
		message += "\n⚠️ The tickets could not be cleared. A new raffle cannot start until they are."
	}

	log.WithFields(log.Fields{
		"winner":       draw.Winner.DiscordID,
		"prize":        prize,
		"totalTickets": draw.TotalTickets,
		"endedBy":      actorID,
	}).Info("Raffle ended")

	return message, nil
}

// clearLeftovers removes tickets left behind by a round whose winner was
// paid but whose tickets could not be deleted. Callers hold round.
func (f *Feature) clearLeftovers(ctx context.Context) (string, *common.BotError) {
	leftover, err := f.raffleService.TotalTickets(ctx)
	if err != nil {
		return "", common.NewBotError("Unable to load the raffle. Please try again.", "Error counting raffle tickets", err)
	}
	if leftover == 0 {
		return "", common.NewBotError("There is no raffle running right now", "Raffle end without raffle", nil)
	}
	if err := f.raffleService.DeleteAllTickets(ctx); err != nil {
		return "", common.NewBotError("Unable to clear the old tickets. Please try again.", "Error clearing leftover raffle tickets", err)
	}

	log.WithField("tickets", leftover).Info("Cleared leftover raffle tickets")
	return fmt.Sprintf("🧹 Cleared %d leftover tickets from the last raffle.", leftover), nil
}

func (f *Feature) status(ctx context.Context, discordID int64) (string, *common.BotError) {
	open, price := f.store.Raffle()
	if !open {
		return "There is no raffle running right now.", nil
	}

	total, err := f.raffleService.TotalTickets(ctx)
	if err != nil {
		return "", common.NewBotError("Unable to load the raffle. Please try again.", "Error counting raffle tickets", err)
	}
	owned, err := f.raffleService.GetTickets(ctx, discordID)
	if err != nil {
		return "", common.NewBotError("Unable to load your tickets. Please try again.", "Error loading raffle tickets", err)
	}

	return fmt.Sprintf("🎟️ Tickets cost **%s ingots**. %d sold so far, you hold %d. Current prize: **%s ingots**.",
		common.FormatIngots(price), total, owned, common.FormatIngots(Prize(total, price))), nil
}

// Prize is half of what was spent on tickets, rounded down
func Prize(totalTickets, ticketPrice int64) int64 {
	return totalTickets * ticketPrice / 2
}
