package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

var minAmount = float64(1)

// commandDefinitions lists every slash command the bot owns
func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "ingots",
			Description: "Check an ingot balance",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "player",
					Description: "Player to look up (defaults to you)",
					Required:    false,
				},
			},
		},
		{
			Name:        "add_remove_ingots",
			Description: "Add or remove ingots from a player (leadership only)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "player",
					Description: "Player to adjust",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Positive to add, negative to remove",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "reason",
					Description: "Why the balance changes",
					Required:    true,
				},
			},
		},
		{
			Name:        "changelog",
			Description: "Show a player's recent changes (leadership only)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "player",
					Description: "Player to inspect",
					Required:    true,
				},
			},
		},
		{
			Name:        "buy_ticket",
			Description: "Buy tickets for the running raffle",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "quantity",
					Description: "Number of tickets",
					Required:    true,
					MinValue:    &minAmount,
				},
			},
		},
		{
			Name:        "raffle",
			Description: "Run the clan raffle",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "start",
					Description: "Open a raffle round (leadership only)",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "price",
							Description: "Ticket price in ingots",
							Required:    true,
							MinValue:    &minAmount,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "end",
					Description: "Draw a winner and close the round (leadership only)",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "status",
					Description: "Show the running round",
				},
			},
		},
		{
			Name:        "double_or_nothing",
			Description: "Bet ingots on a coin flip",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Ingots to bet",
					Required:    true,
					MinValue:    &minAmount,
				},
			},
		},
	}
}

// registerCommands replaces the guild's command set with ours
func (b *Bot) registerCommands() error {
	_, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, b.config.GuildID, commandDefinitions())
	if err != nil {
		return fmt.Errorf("cannot register commands: %w", err)
	}
	return nil
}

// buildRoutes wires command names to handlers with their middleware
func (b *Bot) buildRoutes() map[string]commandHandler {
	leadership := requireRole(b.config.AdminRoleName, b.roles)

	return map[string]commandHandler{
		"ingots":            chain(b.ingots.HandleBalance, logCommand),
		"add_remove_ingots": chain(b.ingots.HandleAdjust, logCommand, leadership),
		"changelog":         chain(b.ingots.HandleChangelog, logCommand, leadership),
		"buy_ticket":        chain(b.raffle.HandleBuyTicket, logCommand),
		"raffle":            chain(b.guardRaffle(b.raffle.HandleCommand, leadership), logCommand),
		"double_or_nothing": chain(b.gamble.HandleCommand, logCommand),
	}
}

// guardRaffle applies the leadership check to every subcommand but status
func (b *Bot) guardRaffle(next commandHandler, leadership middleware) commandHandler {
	guarded := leadership(next)
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		options := i.ApplicationCommandData().Options
		if len(options) > 0 && options[0].Name == "status" {
			next(s, i)
			return
		}
		guarded(s, i)
	}
}

func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	if handler, ok := b.routes[i.ApplicationCommandData().Name]; ok {
		handler(s, i)
	}
}
