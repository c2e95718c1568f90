package telegram

import (
	"time"

	"github.com/gotd/td/tg"
)

// MediaKind classifies the payload attached to a message.
type MediaKind int

// Media kinds.
const (
	KindUnsupported MediaKind = iota
	KindDocument
	KindPhoto
)

// String returns a short name for logging.
func (k MediaKind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindPhoto:
		return "photo"
	default:
		return "unsupported"
	}
}

// Media describes a message payload in a shape the rest of the app can
// consume without inspecting raw tg objects. The raw references stay
// unexported and are only used by Client.Download to build the file
// location.
type Media struct {
	Kind     MediaKind
	Filename string // explicit file_name attribute, empty if absent
	Size     int64  // declared size, 0 for photos (unknown upfront)
	MimeType string

	document *tg.Document
	photo    *tg.Photo
}

// ReactionEntry is one reaction row on a message.
// Chosen is true only when the update affirmatively flagged the reaction
// as placed by the observing account; a bare emoji presence stays false.
type ReactionEntry struct {
	Emoji  string
	Count  int
	Chosen bool
}

// ChatRef identifies the chat an update originated from.
type ChatRef struct {
	ID       int64
	Username string // without @, empty if unknown
	Title    string
}

// Message represents a parsed telegram message.
type Message struct {
	ID        int
	ChatID    int64
	Text      string
	Date      time.Time
	GroupedID int64 // album id, 0 when the message is not part of an album
	Media     *Media
	Reactions []ReactionEntry
}

// ReactionEvent is emitted when the reaction state of a message changes.
type ReactionEvent struct {
	Chat    ChatRef
	MsgID   int
	Entries []ReactionEntry
}

// MessageEvent is emitted for an incoming text message.
type MessageEvent struct {
	Chat  ChatRef
	MsgID int
	Text  string
}
