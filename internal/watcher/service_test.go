package watcher

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/blockedby/reactdl/internal/config"
	"github.com/blockedby/reactdl/internal/telegram"
)

// fakeTg serves canned messages and chat resolutions.
type fakeTg struct {
	mu        sync.Mutex
	messages  map[string]*telegram.Message
	resolved  map[string]*telegram.ChatRef
	getCalls  int
	lastRef   string
	rangeMsgs []telegram.Message
}

func newFakeTg() *fakeTg {
	return &fakeTg{
		messages: map[string]*telegram.Message{},
		resolved: map[string]*telegram.ChatRef{},
	}
}

func (f *fakeTg) addMessage(msg telegram.Message) {
	f.messages[fmt.Sprintf("%d/%d", msg.ChatID, msg.ID)] = &msg
}

func (f *fakeTg) GetMessage(ctx context.Context, chatID int64, msgID int) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++

	msg, ok := f.messages[fmt.Sprintf("%d/%d", chatID, msgID)]
	if !ok {
		return nil, fmt.Errorf("message %d not found in chat %d", msgID, chatID)
	}
	return msg, nil
}

func (f *fakeTg) GetMessageRange(ctx context.Context, chatID int64, minID, maxID int) ([]telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []telegram.Message
	for _, m := range f.rangeMsgs {
		if m.ChatID == chatID && m.ID >= minID && m.ID <= maxID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeTg) ResolveChat(ctx context.Context, ref string) (*telegram.ChatRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRef = ref

	chat, ok := f.resolved[ref]
	if !ok {
		return nil, fmt.Errorf("chat not found: %s", ref)
	}
	return chat, nil
}

func docMedia(name string, size int64) *telegram.Media {
	return &telegram.Media{Kind: telegram.KindDocument, Filename: name, Size: size}
}

func newTestService(t *testing.T, tg *fakeTg, cfg config.WatcherConfig, transfer *fakeTransfer) (*Service, *Dispatcher) {
	t.Helper()

	if cfg.ReactionEmoji == "" {
		cfg.ReactionEmoji = "❤️"
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = t.TempDir()
	}

	disp := NewDispatcher(DispatcherOptions{
		Transfer:    transfer,
		DownloadDir: cfg.DownloadDir,
	})
	resolver := NewResolver(tg, 50)
	return NewService(tg, resolver, disp, cfg, nil), disp
}

func chosenHeart() []telegram.ReactionEntry {
	return []telegram.ReactionEntry{{Emoji: "❤️", Count: 1, Chosen: true}}
}

func TestService_OnReaction_SpawnsDownload(t *testing.T) {
	tg := newFakeTg()
	tg.addMessage(telegram.Message{ID: 10, ChatID: 1, Media: docMedia("movie.mkv", 64)})

	transfer := &fakeTransfer{writeSize: 64}
	svc, disp := newTestService(t, tg, config.WatcherConfig{}, transfer)

	svc.OnReaction(context.Background(), telegram.ReactionEvent{
		Chat:    telegram.ChatRef{ID: 1, Title: "test chat"},
		MsgID:   10,
		Entries: chosenHeart(),
	})
	disp.Wait()

	if transfer.callCount() != 1 {
		t.Errorf("transfer called %d times, want 1", transfer.callCount())
	}
	if stats := disp.Stats(); stats.Completed != 1 {
		t.Errorf("Completed = %d, want 1", stats.Completed)
	}
}

func TestService_OnReaction_DuplicateEventsSpawnOnce(t *testing.T) {
	tg := newFakeTg()
	tg.addMessage(telegram.Message{ID: 10, ChatID: 1, Media: docMedia("movie.mkv", 64)})

	transfer := &fakeTransfer{writeSize: 64}
	svc, disp := newTestService(t, tg, config.WatcherConfig{}, transfer)

	ev := telegram.ReactionEvent{
		Chat:    telegram.ChatRef{ID: 1},
		MsgID:   10,
		Entries: chosenHeart(),
	}
	svc.OnReaction(context.Background(), ev)
	svc.OnReaction(context.Background(), ev)
	disp.Wait()

	if transfer.callCount() != 1 {
		t.Errorf("transfer called %d times, want 1 for duplicate events", transfer.callCount())
	}
	if tg.getCalls != 1 {
		t.Errorf("message fetched %d times, want 1", tg.getCalls)
	}
}

func TestService_OnReaction_IgnoresNonMatching(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.WatcherConfig
		ev   telegram.ReactionEvent
	}{
		{
			name: "reaction not chosen by us",
			ev: telegram.ReactionEvent{
				Chat:    telegram.ChatRef{ID: 1},
				MsgID:   10,
				Entries: []telegram.ReactionEntry{{Emoji: "❤️", Count: 3, Chosen: false}},
			},
		},
		{
			name: "different emoji",
			ev: telegram.ReactionEvent{
				Chat:    telegram.ChatRef{ID: 1},
				MsgID:   10,
				Entries: []telegram.ReactionEntry{{Emoji: "👍", Count: 1, Chosen: true}},
			},
		},
		{
			name: "chat out of scope",
			cfg:  config.WatcherConfig{MonitoredChats: []string{"@allowed"}},
			ev: telegram.ReactionEvent{
				Chat:    telegram.ChatRef{ID: 1, Username: "other"},
				MsgID:   10,
				Entries: chosenHeart(),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tg := newFakeTg()
			tg.addMessage(telegram.Message{ID: 10, ChatID: 1, Media: docMedia("movie.mkv", 64)})

			transfer := &fakeTransfer{writeSize: 64}
			svc, disp := newTestService(t, tg, tt.cfg, transfer)

			svc.OnReaction(context.Background(), tt.ev)
			disp.Wait()

			if transfer.callCount() != 0 {
				t.Errorf("transfer called %d times, want 0", transfer.callCount())
			}
			if tg.getCalls != 0 {
				t.Errorf("message fetched %d times, want 0", tg.getCalls)
			}
		})
	}
}

func TestService_OnReaction_AlbumSpawnsAllMembers(t *testing.T) {
	tg := newFakeTg()
	tg.addMessage(telegram.Message{ID: 100, ChatID: 1, GroupedID: 7, Media: docMedia("part2.mkv", 10)})
	tg.rangeMsgs = []telegram.Message{
		{ID: 99, ChatID: 1, GroupedID: 7, Media: docMedia("part1.mkv", 10)},
		{ID: 100, ChatID: 1, GroupedID: 7, Media: docMedia("part2.mkv", 10)},
		{ID: 101, ChatID: 1, GroupedID: 7, Media: docMedia("part3.mkv", 10)},
		{ID: 102, ChatID: 1, GroupedID: 9, Media: docMedia("other.mkv", 10)},
	}

	transfer := &fakeTransfer{writeSize: 10}
	svc, disp := newTestService(t, tg, config.WatcherConfig{}, transfer)

	svc.OnReaction(context.Background(), telegram.ReactionEvent{
		Chat:    telegram.ChatRef{ID: 1},
		MsgID:   100,
		Entries: chosenHeart(),
	})
	disp.Wait()

	if transfer.callCount() != 3 {
		t.Errorf("transfer called %d times, want 3 album members", transfer.callCount())
	}
	if stats := disp.Stats(); stats.Completed != 3 {
		t.Errorf("Completed = %d, want 3", stats.Completed)
	}
}

func TestService_OnReaction_MessageWithoutMediaKeepsClaim(t *testing.T) {
	tg := newFakeTg()
	tg.addMessage(telegram.Message{ID: 10, ChatID: 1, Text: "no media here"})

	transfer := &fakeTransfer{writeSize: 10}
	svc, disp := newTestService(t, tg, config.WatcherConfig{}, transfer)

	ev := telegram.ReactionEvent{
		Chat:    telegram.ChatRef{ID: 1},
		MsgID:   10,
		Entries: chosenHeart(),
	}
	svc.OnReaction(context.Background(), ev)
	svc.OnReaction(context.Background(), ev)
	disp.Wait()

	if transfer.callCount() != 0 {
		t.Error("message without media must not be transferred")
	}
	// the claim stays so the re-delivered event skips the fetch
	if tg.getCalls != 1 {
		t.Errorf("message fetched %d times, want 1", tg.getCalls)
	}
}

func TestService_OnMessage_LinkTriggersDownload(t *testing.T) {
	tg := newFakeTg()
	tg.resolved["@channelname"] = &telegram.ChatRef{ID: 500, Username: "channelname", Title: "Channel"}
	tg.addMessage(telegram.Message{ID: 42, ChatID: 500, Media: docMedia("movie.mkv", 64)})

	cfg := config.WatcherConfig{
		LinkDownloads: config.LinkDownloadsConfig{Enabled: true, SourceChat: "@mybot"},
	}
	transfer := &fakeTransfer{writeSize: 64}
	svc, disp := newTestService(t, tg, cfg, transfer)

	svc.OnMessage(context.Background(), telegram.MessageEvent{
		Chat:  telegram.ChatRef{ID: 2, Username: "mybot"},
		MsgID: 1,
		Text:  "grab https://t.me/channelname/42 please",
	})
	disp.Wait()

	if tg.lastRef != "@channelname" {
		t.Errorf("resolved ref = %q, want @channelname", tg.lastRef)
	}
	if transfer.callCount() != 1 {
		t.Errorf("transfer called %d times, want 1", transfer.callCount())
	}
}

func TestService_OnMessage_Ignored(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.WatcherConfig
		ev   telegram.MessageEvent
	}{
		{
			name: "link downloads disabled",
			cfg:  config.WatcherConfig{},
			ev: telegram.MessageEvent{
				Chat: telegram.ChatRef{ID: 2, Username: "mybot"},
				Text: "https://t.me/channelname/42",
			},
		},
		{
			name: "message from the wrong chat",
			cfg: config.WatcherConfig{
				LinkDownloads: config.LinkDownloadsConfig{Enabled: true, SourceChat: "@mybot"},
			},
			ev: telegram.MessageEvent{
				Chat: telegram.ChatRef{ID: 3, Username: "stranger"},
				Text: "https://t.me/channelname/42",
			},
		},
		{
			name: "message without links",
			cfg: config.WatcherConfig{
				LinkDownloads: config.LinkDownloadsConfig{Enabled: true, SourceChat: "@mybot"},
			},
			ev: telegram.MessageEvent{
				Chat: telegram.ChatRef{ID: 2, Username: "mybot"},
				Text: "nothing to see",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tg := newFakeTg()
			transfer := &fakeTransfer{}
			svc, disp := newTestService(t, tg, tt.cfg, transfer)

			svc.OnMessage(context.Background(), tt.ev)
			disp.Wait()

			if transfer.callCount() != 0 {
				t.Errorf("transfer called %d times, want 0", transfer.callCount())
			}
		})
	}
}

func TestService_OnMessage_OneBrokenLinkDoesNotStopOthers(t *testing.T) {
	tg := newFakeTg()
	tg.resolved["@good"] = &telegram.ChatRef{ID: 500, Username: "good"}
	tg.addMessage(telegram.Message{ID: 7, ChatID: 500, Media: docMedia("movie.mkv", 64)})
	// "@missing" is not resolvable

	cfg := config.WatcherConfig{
		LinkDownloads: config.LinkDownloadsConfig{Enabled: true, SourceChat: "@mybot"},
	}
	transfer := &fakeTransfer{writeSize: 64}
	svc, disp := newTestService(t, tg, cfg, transfer)

	svc.OnMessage(context.Background(), telegram.MessageEvent{
		Chat: telegram.ChatRef{ID: 2, Username: "mybot"},
		Text: "https://t.me/missing/1 and https://t.me/good/7",
	})
	disp.Wait()

	if transfer.callCount() != 1 {
		t.Errorf("transfer called %d times, want 1 for the resolvable link", transfer.callCount())
	}
}
