package ingots

import (
	"context"
	"fmt"
	"strings"

	"ironforged/bot/common"
	"ironforged/models"
	"ironforged/service"

	"github.com/bwmarrin/discordgo"
)

const changelogPageSize = 10

// Feature serves the balance and ledger adjustment commands
type Feature struct {
	memberService service.MemberService
	ingotService  service.IngotService
}

func New(memberService service.MemberService, ingotService service.IngotService) *Feature {
	return &Feature{
		memberService: memberService,
		ingotService:  ingotService,
	}
}

// HandleBalance serves /ingots [player]
func (f *Feature) HandleBalance(s *discordgo.Session, i *discordgo.InteractionCreate) {
	callerID, botErr := common.InteractionDiscordID(i)
	if botErr != nil {
		common.RespondWithBotError(s, i, botErr)
		return
	}

	player := common.NewOptions(i.ApplicationCommandData().Options).String("player", "")
	message, botErr := f.balance(context.Background(), callerID, player)
	if botErr != nil {
		common.RespondWithBotError(s, i, botErr)
		return
	}
	common.Respond(s, i, message, false)
}

// HandleAdjust serves /add_remove_ingots player amount reason
func (f *Feature) HandleAdjust(s *discordgo.Session, i *discordgo.InteractionCreate) {
	actorID, botErr := common.InteractionDiscordID(i)
	if botErr != nil {
		common.RespondWithBotError(s, i, botErr)
		return
	}

	opts := common.NewOptions(i.ApplicationCommandData().Options)
	message, botErr := f.adjust(context.Background(), actorID,
		opts.String("player", ""), opts.Int("amount", 0), opts.String("reason", ""))
	if botErr != nil {
		common.RespondWithBotError(s, i, botErr)
		return
	}
	common.Respond(s, i, message, false)
}

// HandleChangelog serves /changelog player
func (f *Feature) HandleChangelog(s *discordgo.Session, i *discordgo.InteractionCreate) {
	player := common.NewOptions(i.ApplicationCommandData().Options).String("player", "")
	message, botErr := f.changelog(context.Background(), player)
	if botErr != nil {
		common.RespondWithBotError(s, i, botErr)
		return
	}
	common.Respond(s, i, message, true)
}

func (f *Feature) changelog(ctx context.Context, player string) (string, *common.BotError) {
	member, botErr := f.lookup(ctx, player)
	if botErr != nil {
		return "", botErr
	}

	entries, err := f.memberService.GetChangelog(ctx, member.ID, changelogPageSize)
	if err != nil {
		return "", common.NewBotError("Unable to load the changelog. Please try again.", "Error loading changelog", err)
	}
	if len(entries) == 0 {
		return fmt.Sprintf("No changes recorded for **%s**", member.Nickname), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Latest changes for **%s**\n", member.Nickname)
	for _, entry := range entries {
		fmt.Fprintf(&b, "%s `%s` %s → %s", common.FormatDiscordTimestamp(entry.Timestamp, "d"),
			entry.ChangeType, orDash(entry.PreviousValue), orDash(entry.NewValue))
		if entry.Comment != "" {
			fmt.Fprintf(&b, " (%s)", entry.Comment)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

// balance looks up player's balance, or the caller's when player is empty
func (f *Feature) balance(ctx context.Context, callerID int64, player string) (string, *common.BotError) {
	targetID := callerID
	name := "You"

	if player = strings.TrimSpace(player); player != "" {
		member, botErr := f.lookup(ctx, player)
		if botErr != nil {
			return "", botErr
		}
		targetID = member.DiscordID
		name = member.Nickname
	}

	result, err := f.ingotService.GetBalance(ctx, targetID)
	if err != nil {
		return "", common.NewBotError("Unable to retrieve balance. Please try again.", "Error getting balance", err)
	}
	if !result.Status {
		return "", common.NewBotError(result.Message, "Balance requested for unknown member", nil)
	}

	if name == "You" {
		return fmt.Sprintf("You have **%s ingots**", common.FormatIngots(result.NewTotal)), nil
	}
	return fmt.Sprintf("**%s** has **%s ingots**", name, common.FormatIngots(result.NewTotal)), nil
}

// adjust credits a positive amount or debits a negative one
func (f *Feature) adjust(ctx context.Context, actorID int64, player string, amount int64, reason string) (string, *common.BotError) {
	if amount == 0 {
		return "", common.NewBotError("Amount must not be zero", "Zero ingot adjustment", nil)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", common.NewBotError("A reason is required", "Ingot adjustment without reason", nil)
	}

	member, botErr := f.lookup(ctx, player)
	if botErr != nil {
		return "", botErr
	}

	var result *models.IngotResult
	var err error
	if amount > 0 {
		result, err = f.ingotService.TryAddIngots(ctx, member.DiscordID, amount, &actorID, reason)
	} else {
		result, err = f.ingotService.TryRemoveIngots(ctx, member.DiscordID, amount, &actorID, reason)
	}
	if err != nil {
		return "", common.NewBotError("Unable to update ingots. Please try again.", "Error adjusting ingots", err)
	}

	return common.FormatIngotResult(result), nil
}

func (f *Feature) lookup(ctx context.Context, nickname string) (*models.Member, *common.BotError) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, common.NewBotError("A player name is required", "Missing player option", nil)
	}

	member, err := f.memberService.GetMemberByNickname(ctx, nickname)
	if err != nil {
		return nil, common.NewBotError("Unable to find that player. Please try again.", "Error looking up member", err)
	}
	if member == nil {
		return nil, common.NewBotError(fmt.Sprintf("**%s** is not a clan member", nickname), "Unknown player", nil)
	}
	return member, nil
}
