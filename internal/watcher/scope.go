package watcher

import (
	"strconv"
	"strings"
)

// channelIDPrefix is the bot-api style marker prepended to channel ids.
// Config entries may use either "-1001234567890" or the bare "1234567890".
const channelIDPrefix = "-100"

// ChatScope decides whether a chat is covered by the monitored-chats
// allow-list. An empty allow-list means every chat is in scope.
type ChatScope struct {
	entries []string
}

// NewChatScope creates a scope filter from config entries
// ("@username" or numeric id forms).
func NewChatScope(entries []string) *ChatScope {
	cleaned := make([]string, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e != "" {
			cleaned = append(cleaned, e)
		}
	}
	return &ChatScope{entries: cleaned}
}

// Empty reports whether the scope monitors everything.
func (s *ChatScope) Empty() bool {
	return len(s.entries) == 0
}

// InScope reports whether the chat matches the allow-list.
func (s *ChatScope) InScope(chatID int64, username string) bool {
	if len(s.entries) == 0 {
		return true
	}

	for _, entry := range s.entries {
		if matchesEntry(entry, chatID, username) {
			return true
		}
	}
	return false
}

func matchesEntry(entry string, chatID int64, username string) bool {
	if strings.HasPrefix(entry, "@") {
		return username != "" && strings.EqualFold(strings.TrimPrefix(entry, "@"), username)
	}

	// numeric entry: both the entry and the chat id are tried in raw and
	// de-prefixed forms, since channel ids appear in both conventions
	entryID, err := strconv.ParseInt(entry, 10, 64)
	if err != nil {
		// non-numeric entry without @: treat as a username anyway
		return username != "" && strings.EqualFold(entry, username)
	}

	for _, e := range idForms(entryID) {
		for _, c := range idForms(chatID) {
			if e == c {
				return true
			}
		}
	}
	return false
}

// idForms returns the id itself plus its de-prefixed form when the id
// carries the -100 channel marker.
func idForms(id int64) []int64 {
	forms := []int64{id}
	str := strconv.FormatInt(id, 10)
	if strings.HasPrefix(str, channelIDPrefix) && len(str) > len(channelIDPrefix) {
		if stripped, err := strconv.ParseInt(str[len(channelIDPrefix):], 10, 64); err == nil {
			forms = append(forms, stripped)
		}
	}
	return forms
}
