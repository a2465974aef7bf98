package gamble

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"ironforged/bot/common"
	"ironforged/service"
	"ironforged/state"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	acceptPrefix  = "gamble_accept_"
	declinePrefix = "gamble_decline_"
)

// Feature serves /double_or_nothing and its Accept/Decline buttons
type Feature struct {
	session       *discordgo.Session
	gambleService service.GambleService
	offerTTL      time.Duration

	mu      sync.Mutex
	pending map[uuid.UUID]*discordgo.Interaction // offer id -> interaction holding the buttons
}

func New(session *discordgo.Session, gambleService service.GambleService, offerTTL time.Duration) *Feature {
	return &Feature{
		session:       session,
		gambleService: gambleService,
		offerTTL:      offerTTL,
		pending:       make(map[uuid.UUID]*discordgo.Interaction),
	}
}

// HandleCommand serves /double_or_nothing amount
func (f *Feature) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	discordID, botErr := common.InteractionDiscordID(i)
	if botErr != nil {
		common.RespondWithBotError(s, i, botErr)
		return
	}

	amount := common.NewOptions(i.ApplicationCommandData().Options).Int("amount", 0)
	offer, result, err := f.gambleService.Offer(context.Background(), discordID, amount)
	if err != nil {
		common.RespondWithBotError(s, i, common.NewBotError("Unable to start the game. Please try again.", "Error creating offer", err))
		return
	}
	if offer == nil {
		common.RespondWithError(s, i, result.Message)
		return
	}

	content := fmt.Sprintf("%s, double or nothing on **%s ingots**? This offer expires %s.",
		common.Mention(discordID), common.FormatIngots(offer.Amount), common.FormatDiscordTimestamp(offer.ExpiresAt, "R"))
	if err := common.RespondWithComponents(s, i, content, OfferComponents(offer.ID)); err != nil {
		log.WithError(err).Error("Error sending double or nothing offer")
		f.gambleService.Decline(context.Background(), offer.ID, discordID)
		return
	}

	f.track(offer.ID, i.Interaction)
	time.AfterFunc(time.Until(offer.ExpiresAt)+time.Second, f.Sweep)
}

// HandleInteraction resolves Accept/Decline clicks
func (f *Feature) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	action, offerID, ok := ParseCustomID(i.MessageComponentData().CustomID)
	if !ok {
		return
	}

	discordID, botErr := common.InteractionDiscordID(i)
	if botErr != nil {
		common.RespondWithBotError(s, i, botErr)
		return
	}

	content, resolved, botErr := f.resolve(context.Background(), action, offerID, discordID)
	if botErr != nil {
		common.RespondWithBotError(s, i, botErr)
		return
	}
	if !resolved {
		common.RespondWithError(s, i, content)
		return
	}

	f.forget(offerID)
	if err := common.UpdateMessage(s, i, content, []discordgo.MessageComponent{}); err != nil {
		log.WithError(err).Error("Error updating double or nothing message")
	}
}

// resolve settles a click. resolved is false when the click lost: the
// offer was someone else's, already played or expired.
func (f *Feature) resolve(ctx context.Context, action string, offerID uuid.UUID, discordID int64) (content string, resolved bool, botErr *common.BotError) {
	switch action {
	case "accept":
		outcome, err := f.gambleService.Accept(ctx, offerID, discordID)
		if err != nil {
			return "", false, common.NewBotError("Unable to settle the game. Please try again.", "Error accepting offer", err)
		}
		if !outcome.Result.Status {
			return outcome.Result.Message, false, nil
		}
		content := common.FormatGambleResult(outcome.Won, outcome.Amount, outcome.Result.NewTotal)
		if outcome.Jackpot {
			content = "💰 **JACKPOT!** Your stake was paid out once more.\n" + content
		}
		return content, true, nil

	case "decline":
		if !f.gambleService.Decline(ctx, offerID, discordID) {
			return "This offer is not yours or has already ended", false, nil
		}
		return "🐔 Offer declined. Your ingots are safe.", true, nil
	}
	return "", false, common.NewBotError("Unknown action", "Unknown double or nothing action "+action, nil)
}

// Sweep expires overdue offers and disables their buttons. Both the
// per-offer timer and the background worker call it; an offer is only ever
// returned to one of them.
func (f *Feature) Sweep() {
	for _, offer := range f.gambleService.ExpireOffers(context.Background()) {
		f.expire(offer)
	}
}

func (f *Feature) expire(offer *state.Offer) {
	interaction := f.forget(offer.ID)
	if interaction == nil || f.session == nil {
		return
	}

	content := fmt.Sprintf("⌛ %s's double or nothing on **%s ingots** expired.",
		common.Mention(offer.DiscordID), common.FormatIngots(offer.Amount))
	components := []discordgo.MessageComponent{}
	if _, err := f.session.InteractionResponseEdit(interaction, &discordgo.WebhookEdit{
		Content:    &content,
		Components: &components,
	}); err != nil {
		log.WithField("offerID", offer.ID).WithError(err).Warn("Failed to mark offer expired")
	}
}

func (f *Feature) track(offerID uuid.UUID, interaction *discordgo.Interaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[offerID] = interaction
}

func (f *Feature) forget(offerID uuid.UUID) *discordgo.Interaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	interaction := f.pending[offerID]
	delete(f.pending, offerID)
	return interaction
}

// OfferComponents builds the Accept/Decline buttons for an offer
func OfferComponents(offerID uuid.UUID) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "🎲 Accept",
					Style:    discordgo.SuccessButton,
					CustomID: acceptPrefix + offerID.String(),
				},
				discordgo.Button{
					Label:    "Decline",
					Style:    discordgo.SecondaryButton,
					CustomID: declinePrefix + offerID.String(),
				},
			},
		},
	}
}

// IsGambleCustomID reports whether a component belongs to this feature
func IsGambleCustomID(customID string) bool {
	return strings.HasPrefix(customID, acceptPrefix) || strings.HasPrefix(customID, declinePrefix)
}

// ParseCustomID splits a button id into its action and offer id
func ParseCustomID(customID string) (action string, offerID uuid.UUID, ok bool) {
	var raw string
	switch {
	case strings.HasPrefix(customID, acceptPrefix):
		action, raw = "accept", strings.TrimPrefix(customID, acceptPrefix)
	case strings.HasPrefix(customID, declinePrefix):
		action, raw = "decline", strings.TrimPrefix(customID, declinePrefix)
	default:
		return "", uuid.Nil, false
	}

	offerID, err := uuid.Parse(raw)
	if err != nil {
		return "", uuid.Nil, false
	}
	return action, offerID, true
}
