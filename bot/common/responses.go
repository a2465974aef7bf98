package common

import (
	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// DeferResponse sends a deferred response to give more time for processing
func DeferResponse(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool) error {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}

	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: flags,
		},
	})
}

// Respond sends a plain text interaction response
func Respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{
		Content: content,
	}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		log.WithError(err).Error("Error responding to interaction")
	}
}

// RespondWithComponents sends a text response carrying buttons
func RespondWithComponents(s *discordgo.Session, i *discordgo.InteractionCreate, content string, components []discordgo.MessageComponent) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: components,
		},
	})
}

// RespondWithError sends an ephemeral error message
func RespondWithError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	Respond(s, i, "❌ "+message, true)
}

// RespondWithBotError logs the internal side of err and shows the user the public side
func RespondWithBotError(s *discordgo.Session, i *discordgo.InteractionCreate, err *BotError) {
	log.WithFields(log.Fields{
		"command": commandName(i),
		"userID":  UserID(i),
	}).WithError(err.Err).Error(err.LogMessage)
	RespondWithError(s, i, err.UserMessage)
}

// FollowUp sends a follow-up message after a deferred response
func FollowUp(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	params := &discordgo.WebhookParams{
		Content: content,
	}
	if ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}

	if _, err := s.FollowupMessageCreate(i.Interaction, false, params); err != nil {
		log.WithError(err).Error("Error sending follow-up message")
	}
}

// UpdateMessage replaces the content and components of the message a
// component interaction came from
func UpdateMessage(s *discordgo.Session, i *discordgo.InteractionCreate, content string, components []discordgo.MessageComponent) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: components,
		},
	})
}

// DisableComponents returns a copy of components with every button disabled
func DisableComponents(components []discordgo.MessageComponent) []discordgo.MessageComponent {
	disabled := make([]discordgo.MessageComponent, len(components))

	for i, component := range components {
		row, ok := component.(discordgo.ActionsRow)
		if !ok {
			if ptr, isPtr := component.(*discordgo.ActionsRow); isPtr {
				row, ok = *ptr, true
			}
		}
		if !ok {
			disabled[i] = component
			continue
		}

		newRow := discordgo.ActionsRow{Components: make([]discordgo.MessageComponent, len(row.Components))}
		for j, comp := range row.Components {
			switch c := comp.(type) {
			case discordgo.Button:
				c.Disabled = true
				newRow.Components[j] = c
			case *discordgo.Button:
				button := *c
				button.Disabled = true
				newRow.Components[j] = button
			default:
				newRow.Components[j] = comp
			}
		}
		disabled[i] = newRow
	}

	return disabled
}

func commandName(i *discordgo.InteractionCreate) string {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		return i.ApplicationCommandData().Name
	case discordgo.InteractionMessageComponent:
		return i.MessageComponentData().CustomID
	}
	return ""
}
