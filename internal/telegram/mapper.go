package telegram

import (
	"time"

	"github.com/gotd/td/tg"
)

// parseMessage converts a raw telegram message into our Message type.
// Returns nil for service messages and other non-message classes.
func parseMessage(msg tg.MessageClass) *Message {
	m, ok := msg.(*tg.Message)
	if !ok {
		return nil
	}

	out := &Message{
		ID:     m.ID,
		ChatID: peerID(m.PeerID),
		Text:   m.Message,
		Date:   time.Unix(int64(m.Date), 0),
	}

	if groupedID, ok := m.GetGroupedID(); ok {
		out.GroupedID = groupedID
	}

	if media, ok := m.GetMedia(); ok {
		out.Media = parseMedia(media)
	}

	if reactions, ok := m.GetReactions(); ok {
		out.Reactions = parseReactions(reactions)
	}

	return out
}

// parseMedia maps the raw media class onto the Media variant.
// Unknown media classes map to KindUnsupported so callers can skip them
// without ever touching tg types.
func parseMedia(media tg.MessageMediaClass) *Media {
	switch typed := media.(type) {
	case *tg.MessageMediaDocument:
		doc, ok := typed.GetDocument()
		if !ok {
			return &Media{Kind: KindUnsupported}
		}
		document, ok := doc.(*tg.Document)
		if !ok {
			return &Media{Kind: KindUnsupported}
		}

		out := &Media{
			Kind:     KindDocument,
			Size:     document.Size,
			MimeType: document.MimeType,
			document: document,
		}
		for _, attr := range document.Attributes {
			if filename, ok := attr.(*tg.DocumentAttributeFilename); ok {
				out.Filename = filename.FileName
				break
			}
		}
		return out

	case *tg.MessageMediaPhoto:
		p, ok := typed.GetPhoto()
		if !ok {
			return &Media{Kind: KindUnsupported}
		}
		photo, ok := p.(*tg.Photo)
		if !ok {
			return &Media{Kind: KindUnsupported}
		}

		return &Media{
			Kind:  KindPhoto,
			photo: photo,
		}

	default:
		return &Media{Kind: KindUnsupported}
	}
}

// parseReactions maps reaction rows. Custom (premium) emoji reactions have
// no emoticon and are skipped: the marker emoji is always a plain one.
func parseReactions(reactions tg.MessageReactions) []ReactionEntry {
	out := make([]ReactionEntry, 0, len(reactions.Results))
	for _, result := range reactions.Results {
		emoji, ok := result.Reaction.(*tg.ReactionEmoji)
		if !ok {
			continue
		}

		entry := ReactionEntry{
			Emoji: emoji.Emoticon,
			Count: result.Count,
		}
		if _, chosen := result.GetChosenOrder(); chosen {
			entry.Chosen = true
		}
		out = append(out, entry)
	}
	return out
}

// peerID extracts the bare chat identifier from a peer class.
func peerID(peer tg.PeerClass) int64 {
	switch typed := peer.(type) {
	case *tg.PeerChannel:
		return typed.ChannelID
	case *tg.PeerChat:
		return typed.ChatID
	case *tg.PeerUser:
		return typed.UserID
	default:
		return 0
	}
}
