package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ironforged/models"
)

// FormatIngots formats an ingot amount with thousand separators
func FormatIngots(amount int64) string {
	str := strconv.FormatInt(amount, 10)

	sign := ""
	if strings.HasPrefix(str, "-") {
		sign, str = "-", str[1:]
	}

	n := len(str)
	if n <= 3 {
		return sign + str
	}

	var result strings.Builder
	result.WriteString(sign)
	for i, digit := range str {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}

	return result.String()
}

// FormatIngotResult renders a ledger result for the member who asked
func FormatIngotResult(result *models.IngotResult) string {
	if !result.Status {
		return "❌ " + result.Message
	}
	return fmt.Sprintf("✅ %s. New balance: **%s ingots**", result.Message, FormatIngots(result.NewTotal))
}

// FormatGambleResult formats the outcome of a double-or-nothing round
func FormatGambleResult(won bool, amount, newBalance int64) string {
	if won {
		return fmt.Sprintf("🎉 **Doubled!** You won **%s ingots**. New balance: **%s ingots**",
			FormatIngots(amount), FormatIngots(newBalance))
	}
	return fmt.Sprintf("💀 **Nothing.** You lost **%s ingots**. New balance: **%s ingots**",
		FormatIngots(amount), FormatIngots(newBalance))
}

// FormatDiscordTimestamp formats a time as a Discord timestamp that displays in user's local timezone
// Format types: "t" = short time, "T" = long time, "d" = short date, "D" = long date,
// "f" = short date/time, "F" = long date/time, "R" = relative time
func FormatDiscordTimestamp(t time.Time, format string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), format)
}

// Mention formats a user mention
func Mention(discordID int64) string {
	return fmt.Sprintf("<@%d>", discordID)
}
