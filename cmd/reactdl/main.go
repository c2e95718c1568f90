package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/blockedby/reactdl/internal/config"
	"github.com/blockedby/reactdl/internal/logger"
	"github.com/blockedby/reactdl/internal/notify"
	"github.com/blockedby/reactdl/internal/postimport"
	"github.com/blockedby/reactdl/internal/publisher"
	"github.com/blockedby/reactdl/internal/telegram"
	"github.com/blockedby/reactdl/internal/watcher"
	"github.com/blockedby/reactdl/internal/web"
	"github.com/nats-io/nats.go"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// 2. Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	log.Info().Msg("starting reaction download watcher")

	// 3. Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	// 4. Prepare the download directory
	if err := os.MkdirAll(cfg.Watcher.DownloadDir, 0755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Watcher.DownloadDir).Msg("failed to create download directory")
	}

	// 5. Initialize telegram client
	if cfg.TGApiID == 0 || cfg.TGApiHash == "" {
		log.Fatal().Msg("TG_API_ID and TG_API_HASH are required")
	}

	tgManager := telegram.NewManager(cfg)
	if err := tgManager.Init(); err != nil {
		log.Fatal().Err(err).Msg("telegram client init failed, run reactdl-auth first")
	}

	tgClient := telegram.NewClient(tgManager)
	defer tgClient.Close()

	// 6. Connect to NATS (optional)
	var pub watcher.EventPublisher
	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to nats, publishing disabled")
		} else {
			defer nc.Close()
			pub = publisher.NewNATSPublisher(nc)
		}
	}

	// 7. WebSocket hub for the live status feed
	hub := web.NewHub()
	go hub.Run()

	// 8. Wire the download pipeline
	notifier := notify.New(tgClient, cfg.Watcher.NotifyChat, log)

	var postImport watcher.PostImporter
	if cfg.Watcher.PostImport.Enabled {
		postImport = postimport.New(cfg.Watcher.PostImport.Endpoint, cfg.Watcher.PostImport.APIKey, log)
	}

	disp := watcher.NewDispatcher(watcher.DispatcherOptions{
		Transfer: tgClient,
		Filter: &watcher.FileFilter{
			MaxSize:    cfg.Watcher.MaxFileSizeBytes(),
			Extensions: cfg.Watcher.FileExtensions,
		},
		DownloadDir:   cfg.Watcher.DownloadDir,
		MaxConcurrent: cfg.Watcher.MaxConcurrent,
		Notifier:      notifier,
		PostImport:    postImport,
		Publisher:     pub,
		Broadcaster:   web.NewDownloadEventBridge(hub),
		Log:           log,
	})

	resolver := watcher.NewResolver(tgClient, cfg.Watcher.AlbumSearchWindow)
	svc := watcher.NewService(tgClient, resolver, disp, cfg.Watcher, log)

	if err := tgClient.Subscribe(svc); err != nil {
		log.Fatal().Err(err).Msg("failed to subscribe to updates")
	}
	log.Info().
		Str("emoji", cfg.Watcher.ReactionEmoji).
		Strs("chats", cfg.Watcher.MonitoredChats).
		Msg("watching for reactions")

	// 9. Start the status server
	handler := web.NewHandler(tgClient, disp, log)
	server := web.NewServer(strconv.Itoa(cfg.HTTPPort), hub, handler, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// 10. Wait for shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Stop(shutdownCtx)

	// let in-flight transfers notice the cancelled context
	done := make(chan struct{})
	go func() {
		disp.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn().Msg("downloads still in flight at shutdown deadline")
	}

	log.Info().Msg("shutdown complete")
}
