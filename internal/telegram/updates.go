package telegram

import (
	"context"

	"github.com/celestix/gotgproto/ext"
	"github.com/celestix/gotgproto/dispatcher/handlers"
	"github.com/gotd/td/tg"
)

// UpdateHandler receives mapped stream events. Handlers run on the
// update dispatcher goroutine, so they must not block on long work.
type UpdateHandler interface {
	OnReaction(ctx context.Context, ev ReactionEvent)
	OnMessage(ctx context.Context, ev MessageEvent)
}

// Subscribe registers the handler for incoming updates.
// Must be called after the manager is initialized.
func (c *Client) Subscribe(handler UpdateHandler) error {
	proto, err := c.getProto()
	if err != nil {
		return err
	}

	proto.Dispatcher.AddHandler(handlers.NewAnyUpdate(func(ectx *ext.Context, u *ext.Update) error {
		c.routeUpdate(ectx, u, handler)
		return nil
	}))
	return nil
}

// routeUpdate demultiplexes raw updates into reaction and message events.
// Reaction state arrives either as a dedicated reactions update or inside
// an edit carrying the full message.
func (c *Client) routeUpdate(ctx context.Context, u *ext.Update, handler UpdateHandler) {
	switch typed := u.UpdateClass.(type) {
	case *tg.UpdateMessageReactions:
		handler.OnReaction(ctx, ReactionEvent{
			Chat:    c.chatRef(peerID(typed.Peer), u.Entities),
			MsgID:   typed.MsgID,
			Entries: parseReactions(typed.Reactions),
		})

	case *tg.UpdateEditMessage:
		c.routeEdit(ctx, typed.Message, u, handler)
	case *tg.UpdateEditChannelMessage:
		c.routeEdit(ctx, typed.Message, u, handler)

	case *tg.UpdateNewMessage:
		c.routeNew(ctx, typed.Message, u, handler)
	case *tg.UpdateNewChannelMessage:
		c.routeNew(ctx, typed.Message, u, handler)
	}
}

func (c *Client) routeEdit(ctx context.Context, raw tg.MessageClass, u *ext.Update, handler UpdateHandler) {
	msg := parseMessage(raw)
	if msg == nil || len(msg.Reactions) == 0 {
		return
	}

	handler.OnReaction(ctx, ReactionEvent{
		Chat:    c.chatRef(msg.ChatID, u.Entities),
		MsgID:   msg.ID,
		Entries: msg.Reactions,
	})
}

func (c *Client) routeNew(ctx context.Context, raw tg.MessageClass, u *ext.Update, handler UpdateHandler) {
	msg := parseMessage(raw)
	if msg == nil || msg.Text == "" {
		return
	}

	handler.OnMessage(ctx, MessageEvent{
		Chat:  c.chatRef(msg.ChatID, u.Entities),
		MsgID: msg.ID,
		Text:  msg.Text,
	})
}

// chatRef enriches a bare chat id with username and title when the
// update batch carried the entity.
func (c *Client) chatRef(id int64, entities *tg.Entities) ChatRef {
	ref := ChatRef{ID: id}
	if entities == nil {
		return ref
	}

	if ch, ok := entities.Channels[id]; ok && ch != nil {
		username, _ := ch.GetUsername()
		ref.Username = username
		ref.Title = ch.Title
		return ref
	}
	if chat, ok := entities.Chats[id]; ok && chat != nil {
		ref.Title = chat.Title
		return ref
	}
	if user, ok := entities.Users[id]; ok && user != nil {
		username, _ := user.GetUsername()
		firstName, _ := user.GetFirstName()
		ref.Username = username
		ref.Title = firstName
	}
	return ref
}
