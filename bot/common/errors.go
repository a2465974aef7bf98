package common

import (
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// BotError separates what the user is told from what gets logged
type BotError struct {
	UserMessage string
	LogMessage  string
	Err         error
}

func (e *BotError) Error() string {
	if e.Err != nil {
		return e.LogMessage + ": " + e.Err.Error()
	}
	return e.LogMessage
}

func (e *BotError) Unwrap() error {
	return e.Err
}

// NewBotError builds a BotError
func NewBotError(userMessage, logMessage string, err error) *BotError {
	return &BotError{UserMessage: userMessage, LogMessage: logMessage, Err: err}
}

// UserID returns the id of the user who triggered the interaction
func UserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// ParseDiscordID converts a Discord snowflake string to int64
func ParseDiscordID(id string) (int64, error) {
	return strconv.ParseInt(id, 10, 64)
}

// InteractionDiscordID is UserID parsed to int64
func InteractionDiscordID(i *discordgo.InteractionCreate) (int64, *BotError) {
	id, err := ParseDiscordID(UserID(i))
	if err != nil {
		return 0, NewBotError("Unable to process request. Please try again.", "Error parsing Discord ID", err)
	}
	return id, nil
}
