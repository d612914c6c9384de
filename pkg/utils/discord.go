package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"rollcall/internal/models"
)

// FormatUserMention formats a user ID as a Discord mention
func FormatUserMention(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}

// FormatChannelMention formats a channel ID as a Discord channel mention
func FormatChannelMention(channelID string) string {
	return fmt.Sprintf("<#%s>", channelID)
}

// PlayerNames joins player names with commas, or returns "None" for an
// empty list.
func PlayerNames(players []models.Player) string {
	if len(players) == 0 {
		return "None"
	}
	names := make([]string, 0, len(players))
	for _, p := range players {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}

// PlayerMentions mentions every player, space separated.
func PlayerMentions(players []models.Player) string {
	mentions := make([]string, 0, len(players))
	for _, p := range players {
		mentions = append(mentions, FormatUserMention(p.ID))
	}
	return strings.Join(mentions, " ")
}

// TruncateString truncates a string to max runes and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string([]rune(s)[:maxLen])
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}
