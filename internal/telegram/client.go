// Package telegram provides the Telegram MTProto client boundary.
// Everything past this package works with the types from types.go and
// never inspects raw tg objects.
package telegram

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"github.com/blockedby/reactdl/internal/logger"
	"github.com/celestix/gotgproto"
	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/tg"
)

// telegram limits message-id lookups to 100 per request
const fetchBatchLimit = 100

// Client wraps the gotgproto client and provides high-level telegram
// operations for the watcher: chat resolution, message fetch by id,
// ranged fetch for albums, media transfer and message sending.
type Client struct {
	manager     *Manager
	rateLimiter *RateLimiter
	log         *logger.Logger
}

// NewClient creates a new telegram client wrapper using the Manager.
func NewClient(manager *Manager) *Client {
	return &Client{
		manager:     manager,
		rateLimiter: DefaultRateLimiter(),
		log:         logger.Get(),
	}
}

// Close stops the client via the manager.
func (c *Client) Close() {
	if c.manager != nil {
		c.manager.Stop()
	}
}

// GetStatus returns the current status of the telegram client.
func (c *Client) GetStatus() Status {
	return c.manager.GetStatus()
}

// getProto returns the current protocol client if available.
func (c *Client) getProto() (*gotgproto.Client, error) {
	proto := c.manager.GetClient()
	if proto == nil {
		return nil, fmt.Errorf("telegram client not authorized")
	}
	return proto, nil
}

// API returns the raw tg.Client for direct API calls.
func (c *Client) API() (*tg.Client, error) {
	proto, err := c.getProto()
	if err != nil {
		return nil, err
	}
	return proto.API(), nil
}

// ResolveChat resolves a chat reference to a ChatRef.
// ref is either "@username" (or bare username) or a numeric chat id that
// the client has already seen.
func (c *Client) ResolveChat(ctx context.Context, ref string) (*ChatRef, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("empty chat reference")
	}

	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return c.resolveByID(id)
	}

	return c.resolveUsername(ctx, strings.TrimPrefix(ref, "@"))
}

// resolveByID looks the peer up in the session peer storage. Private
// link ids arrive without the -100 channel marker, so both forms are
// tried before giving up.
func (c *Client) resolveByID(id int64) (*ChatRef, error) {
	if _, err := c.inputPeer(id); err == nil {
		return &ChatRef{ID: id}, nil
	}

	if id > 0 {
		marked, convErr := strconv.ParseInt("-100"+strconv.FormatInt(id, 10), 10, 64)
		if convErr == nil {
			if _, err := c.inputPeer(marked); err == nil {
				return &ChatRef{ID: marked}, nil
			}
		}
	}

	return nil, fmt.Errorf("unknown peer %d", id)
}

// resolveUsername resolves a public username via the API.
func (c *Client) resolveUsername(ctx context.Context, username string) (*ChatRef, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	api, err := c.API()
	if err != nil {
		return nil, err
	}

	resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
		Username: username,
	})
	if err != nil {
		c.noteFloodWait(err)
		return nil, fmt.Errorf("resolve username %s: %w", username, err)
	}

	for _, chat := range resolved.Chats {
		if ch, ok := chat.(*tg.Channel); ok {
			return &ChatRef{ID: ch.ID, Username: username, Title: ch.Title}, nil
		}
		if ch, ok := chat.(*tg.Chat); ok {
			return &ChatRef{ID: ch.ID, Title: ch.Title}, nil
		}
	}
	for _, user := range resolved.Users {
		if u, ok := user.(*tg.User); ok {
			title, _ := u.GetFirstName()
			return &ChatRef{ID: u.ID, Username: username, Title: title}, nil
		}
	}

	return nil, fmt.Errorf("chat not found: %s", username)
}

// GetMessage fetches a single message by id from a chat.
func (c *Client) GetMessage(ctx context.Context, chatID int64, msgID int) (*Message, error) {
	messages, err := c.getMessagesByIDs(ctx, chatID, []int{msgID})
	if err != nil {
		return nil, err
	}
	for i := range messages {
		if messages[i].ID == msgID {
			return &messages[i], nil
		}
	}
	return nil, fmt.Errorf("message %d not found in chat %d", msgID, chatID)
}

// GetMessageRange fetches all messages with ids in [minID, maxID] from a
// chat, sorted ascending by id. Missing ids are silently skipped.
func (c *Client) GetMessageRange(ctx context.Context, chatID int64, minID, maxID int) ([]Message, error) {
	if minID < 1 {
		minID = 1
	}
	if maxID < minID {
		return nil, fmt.Errorf("invalid message id range [%d, %d]", minID, maxID)
	}

	var out []Message
	for start := minID; start <= maxID; start += fetchBatchLimit {
		end := start + fetchBatchLimit - 1
		if end > maxID {
			end = maxID
		}

		ids := make([]int, 0, end-start+1)
		for id := start; id <= end; id++ {
			ids = append(ids, id)
		}

		batch, err := c.getMessagesByIDs(ctx, chatID, ids)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// getMessagesByIDs fetches specific message ids from a chat, routing
// through channels.getMessages for channels and messages.getMessages
// for everything else.
func (c *Client) getMessagesByIDs(ctx context.Context, chatID int64, ids []int) ([]Message, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	api, err := c.API()
	if err != nil {
		return nil, err
	}

	peer, err := c.inputPeer(chatID)
	if err != nil {
		return nil, err
	}

	inputIDs := make([]tg.InputMessageClass, 0, len(ids))
	for _, id := range ids {
		inputIDs = append(inputIDs, &tg.InputMessageID{ID: id})
	}

	var result tg.MessagesMessagesClass
	if channel, ok := peer.(*tg.InputPeerChannel); ok {
		result, err = api.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
			Channel: &tg.InputChannel{
				ChannelID:  channel.ChannelID,
				AccessHash: channel.AccessHash,
			},
			ID: inputIDs,
		})
	} else {
		result, err = api.MessagesGetMessages(ctx, inputIDs)
	}
	if err != nil {
		c.noteFloodWait(err)
		return nil, fmt.Errorf("get messages from chat %d: %w", chatID, err)
	}

	return extractMessages(result), nil
}

// SendMessage sends a plain text message to a chat reference.
func (c *Client) SendMessage(ctx context.Context, ref string, text string) error {
	chat, err := c.ResolveChat(ctx, ref)
	if err != nil {
		return fmt.Errorf("resolve notify target: %w", err)
	}

	peer, err := c.inputPeer(chat.ID)
	if err != nil {
		return err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	api, err := c.API()
	if err != nil {
		return err
	}

	_, err = api.MessagesSendMessage(ctx, &tg.MessagesSendMessageRequest{
		Peer:     peer,
		Message:  text,
		RandomID: rand.Int63(),
	})
	if err != nil {
		c.noteFloodWait(err)
		return fmt.Errorf("send message to %s: %w", ref, err)
	}
	return nil
}

// Download transfers the media payload to the destination path.
func (c *Client) Download(ctx context.Context, media *Media, dest string) error {
	if media == nil {
		return fmt.Errorf("nil media")
	}

	api, err := c.API()
	if err != nil {
		return err
	}

	location, err := fileLocation(media)
	if err != nil {
		return err
	}

	if _, err := downloader.NewDownloader().Download(api, location).ToPath(ctx, dest); err != nil {
		c.noteFloodWait(err)
		return fmt.Errorf("download to %s: %w", dest, err)
	}
	return nil
}

// fileLocation builds the input file location for a media payload.
func fileLocation(media *Media) (tg.InputFileLocationClass, error) {
	switch media.Kind {
	case KindDocument:
		if media.document == nil {
			return nil, fmt.Errorf("document media without raw reference")
		}
		return &tg.InputDocumentFileLocation{
			ID:            media.document.ID,
			AccessHash:    media.document.AccessHash,
			FileReference: media.document.FileReference,
		}, nil

	case KindPhoto:
		if media.photo == nil {
			return nil, fmt.Errorf("photo media without raw reference")
		}
		sizeType := largestPhotoSize(media.photo)
		if sizeType == "" {
			return nil, fmt.Errorf("photo without usable sizes")
		}
		return &tg.InputPhotoFileLocation{
			ID:            media.photo.ID,
			AccessHash:    media.photo.AccessHash,
			FileReference: media.photo.FileReference,
			ThumbSize:     sizeType,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported media kind %s", media.Kind)
	}
}

// largestPhotoSize picks the size type with the most bytes.
func largestPhotoSize(photo *tg.Photo) string {
	var (
		bestType string
		bestSize int
	)
	for _, size := range photo.Sizes {
		switch typed := size.(type) {
		case *tg.PhotoSize:
			if typed.Size > bestSize {
				bestSize = typed.Size
				bestType = typed.Type
			}
		case *tg.PhotoSizeProgressive:
			last := 0
			if len(typed.Sizes) > 0 {
				last = typed.Sizes[len(typed.Sizes)-1]
			}
			if last > bestSize {
				bestSize = last
				bestType = typed.Type
			}
		}
	}
	return bestType
}

// inputPeer resolves a chat id to an input peer via the session peer storage.
func (c *Client) inputPeer(chatID int64) (tg.InputPeerClass, error) {
	proto, err := c.getProto()
	if err != nil {
		return nil, err
	}

	peer := proto.PeerStorage.GetInputPeerById(chatID)
	if _, empty := peer.(*tg.InputPeerEmpty); empty || peer == nil {
		return nil, fmt.Errorf("unknown peer %d", chatID)
	}
	return peer, nil
}

// extractMessages converts a telegram message container to our Message type.
func extractMessages(messagesClass tg.MessagesMessagesClass) []Message {
	var raw []tg.MessageClass
	switch h := messagesClass.(type) {
	case *tg.MessagesChannelMessages:
		raw = h.Messages
	case *tg.MessagesMessages:
		raw = h.Messages
	case *tg.MessagesMessagesSlice:
		raw = h.Messages
	}

	var messages []Message
	for _, msg := range raw {
		if m := parseMessage(msg); m != nil {
			messages = append(messages, *m)
		}
	}
	return messages
}

// noteFloodWait parses a FLOOD_WAIT error and arms the rate limiter.
func (c *Client) noteFloodWait(err error) {
	if err == nil {
		return
	}

	str := err.Error()
	if !strings.Contains(str, "FLOOD_WAIT_") {
		return
	}

	// format is usually "rpc error code 420: FLOOD_WAIT_15"
	var seconds int
	parts := strings.Split(str, "FLOOD_WAIT_")
	if len(parts) > 1 {
		_, _ = fmt.Sscanf(strings.TrimSpace(parts[1]), "%d", &seconds)
	}
	if seconds > 0 {
		c.log.Warn().Int("wait_seconds", seconds).Msg("telegram: FLOOD_WAIT detected, pausing requests")
		c.rateLimiter.SetFloodWait(seconds)
	}
}
