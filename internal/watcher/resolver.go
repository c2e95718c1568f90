package watcher

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/blockedby/reactdl/internal/telegram"
)

// filenameTimestampLayout gives second-granularity names for synthesized
// filenames. Collisions within the same second are accepted; the
// exists-check in the dispatcher catches them.
const filenameTimestampLayout = "20060102_150405"

// Descriptor is a stable description of a downloadable payload,
// derived once per resolved message.
type Descriptor struct {
	Kind     telegram.MediaKind
	Filename string // candidate name, not yet sanitized
	Size     int64  // expected size in bytes, 0 = unknown
	MsgID    int
	AlbumID  int64 // 0 when not part of an album
}

// MessageFetcher is the subset of the telegram client the resolver needs
// for album reassembly.
type MessageFetcher interface {
	GetMessageRange(ctx context.Context, chatID int64, minID, maxID int) ([]telegram.Message, error)
}

// Resolver turns fetched messages into media descriptors.
type Resolver struct {
	fetcher MessageFetcher
	window  int // album search radius in message ids

	now func() time.Time
}

// NewResolver creates a resolver with the given album search window.
func NewResolver(fetcher MessageFetcher, albumWindow int) *Resolver {
	if albumWindow <= 0 {
		albumWindow = 50
	}
	return &Resolver{
		fetcher: fetcher,
		window:  albumWindow,
		now:     time.Now,
	}
}

// Resolve extracts a media descriptor from a message.
// Returns false when the message carries no usable media.
func (r *Resolver) Resolve(msg *telegram.Message) (Descriptor, bool) {
	if msg == nil || msg.Media == nil {
		return Descriptor{}, false
	}

	desc := Descriptor{
		Kind:    msg.Media.Kind,
		MsgID:   msg.ID,
		AlbumID: msg.GroupedID,
	}

	switch msg.Media.Kind {
	case telegram.KindDocument:
		desc.Size = msg.Media.Size
		desc.Filename = msg.Media.Filename
		if desc.Filename == "" {
			desc.Filename = r.synthesizeDocumentName(msg.Media.MimeType)
		}
		return desc, true

	case telegram.KindPhoto:
		// exact photo size is unknown before the transfer
		desc.Filename = fmt.Sprintf("telegram_photo_%s.jpg", r.now().Format(filenameTimestampLayout))
		return desc, true

	default:
		return Descriptor{}, false
	}
}

// synthesizeDocumentName builds a fallback name from the declared mime type.
func (r *Resolver) synthesizeDocumentName(mimeType string) string {
	ext := "bin"
	if idx := strings.LastIndex(mimeType, "/"); idx >= 0 && idx+1 < len(mimeType) {
		ext = mimeType[idx+1:]
	}
	return fmt.Sprintf("telegram_file_%s.%s", r.now().Format(filenameTimestampLayout), ext)
}

// ResolveAlbum returns all messages sharing the anchor's album id within
// the search window, sorted ascending by message id. The window is a
// bounded heuristic: members further than `window` ids from the anchor
// are missed, which is the accepted cost of not scanning whole chats.
//
// When the anchor is not part of an album, the anchor alone is returned.
func (r *Resolver) ResolveAlbum(ctx context.Context, anchor *telegram.Message) ([]telegram.Message, error) {
	if anchor == nil {
		return nil, fmt.Errorf("nil anchor message")
	}
	if anchor.GroupedID == 0 {
		return []telegram.Message{*anchor}, nil
	}

	minID := anchor.ID - r.window
	maxID := anchor.ID + r.window
	messages, err := r.fetcher.GetMessageRange(ctx, anchor.ChatID, minID, maxID)
	if err != nil {
		return nil, fmt.Errorf("scan album window [%d, %d]: %w", minID, maxID, err)
	}

	var members []telegram.Message
	for _, msg := range messages {
		if msg.GroupedID == anchor.GroupedID {
			members = append(members, msg)
		}
	}
	if len(members) == 0 {
		// range fetch may race with deletions; fall back to the anchor
		members = []telegram.Message{*anchor}
	}

	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}
