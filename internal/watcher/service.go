package watcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/blockedby/reactdl/internal/config"
	"github.com/blockedby/reactdl/internal/logger"
	"github.com/blockedby/reactdl/internal/telegram"
)

// Telegram is the client surface the orchestrator needs.
type Telegram interface {
	GetMessage(ctx context.Context, chatID int64, msgID int) (*telegram.Message, error)
	GetMessageRange(ctx context.Context, chatID int64, minID, maxID int) ([]telegram.Message, error)
	ResolveChat(ctx context.Context, ref string) (*telegram.ChatRef, error)
}

// Service is the event intake: it receives stream events, decides which
// represent a new "download this" signal and turns them into dispatcher
// tasks. Transfer work always happens on task goroutines; the intake
// path itself only does matching, scoping and ledger claims.
type Service struct {
	tg       Telegram
	resolver *Resolver
	scope    *ChatScope
	disp     *Dispatcher
	cfg      config.WatcherConfig
	log      *logger.Logger

	// serializes the synchronous intake steps so check-then-claim is
	// atomic across events regardless of how the update dispatcher
	// schedules handler calls
	mu sync.Mutex
}

// NewService creates the intake service.
func NewService(tg Telegram, resolver *Resolver, disp *Dispatcher, cfg config.WatcherConfig, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Get()
	}
	return &Service{
		tg:       tg,
		resolver: resolver,
		scope:    NewChatScope(cfg.MonitoredChats),
		disp:     disp,
		cfg:      cfg,
		log:      log,
	}
}

// OnReaction handles a reaction-state update from the stream.
// Implements telegram.UpdateHandler.
func (s *Service) OnReaction(ctx context.Context, ev telegram.ReactionEvent) {
	if !HasSelfReaction(ev.Entries, s.cfg.ReactionEmoji) {
		return
	}
	if !s.scope.InScope(ev.Chat.ID, ev.Chat.Username) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := Key{ChatID: ev.Chat.ID, MsgID: ev.MsgID}
	if s.disp.Claimed(key) {
		// re-delivered update for a message we already handled
		return
	}

	s.log.Info().
		Str("key", key.String()).
		Str("chat", ev.Chat.Title).
		Msg("detected reaction marker")

	// fetch the authoritative message state before resolving media
	msg, err := s.tg.GetMessage(ctx, ev.Chat.ID, ev.MsgID)
	if err != nil {
		s.log.Error().Err(err).Str("key", key.String()).Msg("failed to fetch reacted message")
		return
	}

	if err := s.enqueueMessage(ctx, msg, ev.Chat, ""); err != nil {
		s.log.Error().Err(err).Str("key", key.String()).Msg("failed to enqueue downloads")
	}
}

// OnMessage handles an incoming text message: when link downloads are
// enabled and the message comes from the configured source chat, every
// t.me message link in it is resolved and dispatched independently.
// Implements telegram.UpdateHandler.
func (s *Service) OnMessage(ctx context.Context, ev telegram.MessageEvent) {
	if !s.cfg.LinkDownloads.Enabled {
		return
	}
	if !matchesEntry(s.cfg.LinkDownloads.SourceChat, ev.Chat.ID, ev.Chat.Username) {
		return
	}

	links := ExtractLinks(ev.Text)
	if len(links) == 0 {
		return
	}

	s.log.Info().Int("links", len(links)).Msg("processing message links")

	for _, link := range links {
		// one broken link must not stop the others
		if err := s.handleLink(ctx, link); err != nil {
			s.log.Error().Err(err).Str("url", link.URL).Msg("failed to process message link")
			s.notifyLinkFailure(ctx, link, err)
		}
	}
}

// handleLink resolves a single t.me link into the regular download path.
func (s *Service) handleLink(ctx context.Context, link MessageLink) error {
	chat, err := s.tg.ResolveChat(ctx, link.ChatRef)
	if err != nil {
		return fmt.Errorf("resolve chat %s: %w", link.ChatRef, err)
	}

	msg, err := s.tg.GetMessage(ctx, chat.ID, link.MsgID)
	if err != nil {
		return fmt.Errorf("fetch message %d: %w", link.MsgID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enqueueMessage(ctx, msg, *chat, link.URL)
}

// enqueueMessage resolves a fetched message (expanding albums) and spawns
// one claimed task per media item. Callers hold s.mu.
func (s *Service) enqueueMessage(ctx context.Context, msg *telegram.Message, chat telegram.ChatRef, sourceURL string) error {
	members, err := s.resolver.ResolveAlbum(ctx, msg)
	if err != nil {
		return fmt.Errorf("resolve album: %w", err)
	}

	spawned := 0
	for i := range members {
		member := &members[i]

		key := Key{ChatID: chat.ID, MsgID: member.ID}
		if !s.disp.Claim(key) {
			continue
		}

		desc, ok := s.resolver.Resolve(member)
		if !ok {
			// no usable media; the claim stays so re-deliveries are no-ops
			s.log.Debug().Str("key", key.String()).Msg("message carries no downloadable media")
			continue
		}

		s.disp.Spawn(ctx, Task{
			Key:       key,
			Desc:      desc,
			Media:     member.Media,
			ChatTitle: chat.Title,
			SourceURL: sourceURL,
		})
		spawned++
	}

	if spawned > 0 {
		s.log.Info().
			Int("tasks", spawned).
			Int("album_members", len(members)).
			Msg("download tasks spawned")
	}
	return nil
}

// notifyLinkFailure reports a failed link fetch through the dispatcher's
// notifier, keeping all operator messaging in one channel.
func (s *Service) notifyLinkFailure(ctx context.Context, link MessageLink, cause error) {
	if s.disp == nil || s.disp.notifier == nil {
		return
	}
	s.disp.notifier.Notify(ctx, fmt.Sprintf("❌ Could not fetch %s\n%v", link.URL, cause))
}
