package watcher

import (
	"github.com/blockedby/reactdl/internal/telegram"
)

// HasSelfReaction reports whether the observing account reacted to the
// message with the target emoji.
//
// Presence of the emoji on the message is not enough: the entry must be
// affirmatively flagged as chosen by us. Entries without that flag (other
// people's reactions) never match, and an empty snapshot never matches.
func HasSelfReaction(entries []telegram.ReactionEntry, targetEmoji string) bool {
	target := NormalizeEmoji(targetEmoji)
	if target == "" {
		return false
	}

	for _, entry := range entries {
		if NormalizeEmoji(entry.Emoji) == target && entry.Chosen {
			return true
		}
	}
	return false
}
