// Package config loads application configuration from environment variables
// and a YAML file for the watcher settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// telegram
	TGApiID      int
	TGApiHash    string
	TGSessionDir string

	// server
	HTTPPort int

	// nats (empty url disables publishing)
	NatsURL string

	// logging
	LogLevel string
	LogFile  string

	// watcher settings, loaded from the yaml file
	Watcher WatcherConfig
}

// WatcherConfig holds the reaction-watcher settings.
type WatcherConfig struct {
	// MonitoredChats is the allow-list of chats to watch.
	// Entries are either "@username" or a numeric chat id.
	// Empty list means all chats.
	MonitoredChats []string `yaml:"monitored_chats"`

	// DownloadDir is where media files are written.
	DownloadDir string `yaml:"download_dir"`

	// ReactionEmoji is the marker emoji that triggers a download.
	ReactionEmoji string `yaml:"reaction_emoji"`

	// FileExtensions is the allow-list of extensions (with dot, e.g. ".mkv").
	// Empty list means all extensions.
	FileExtensions []string `yaml:"file_extensions"`

	// MaxFileSizeMB limits download size. 0 means unlimited.
	MaxFileSizeMB int64 `yaml:"max_file_size_mb"`

	// MaxConcurrent limits simultaneous transfers.
	MaxConcurrent int `yaml:"max_concurrent"`

	// AlbumSearchWindow is the message-id scan radius when collecting
	// album members around an anchor message.
	AlbumSearchWindow int `yaml:"album_search_window"`

	// PostImport triggers a media library scan after video downloads.
	PostImport PostImportConfig `yaml:"post_import"`

	// NotifyChat receives success/failure notifications. Empty disables.
	NotifyChat string `yaml:"notify_chat"`

	// LinkDownloads enables downloading media referenced by t.me links
	// posted in a dedicated source chat.
	LinkDownloads LinkDownloadsConfig `yaml:"link_downloads"`
}

// PostImportConfig configures the library-scan trigger.
type PostImportConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
}

// LinkDownloadsConfig configures link-triggered downloads.
type LinkDownloadsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SourceChat string `yaml:"source_chat"`
}

// Load reads configuration from environment variables and the yaml file
// pointed to by REACTDL_CONFIG (default "config.yaml").
func Load() (*Config, error) {
	// a missing .env file is fine, env vars may come from the shell
	_ = godotenv.Load()

	cfg := &Config{
		TGApiID:      getEnvInt("TG_API_ID", 0),
		TGApiHash:    getEnv("TG_API_HASH", ""),
		TGSessionDir: getEnv("TG_SESSION_DIR", "./session"),
		HTTPPort:     getEnvInt("HTTP_PORT", 3200),
		NatsURL:      getEnv("NATS_URL", ""),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFile:      getEnv("LOG_FILE", ""),
	}

	path := getEnv("REACTDL_CONFIG", "config.yaml")
	watcher, err := loadWatcherConfig(path)
	if err != nil {
		return nil, err
	}
	cfg.Watcher = *watcher

	return cfg, nil
}

// loadWatcherConfig reads and validates the yaml watcher config.
func loadWatcherConfig(path string) (*WatcherConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	wc := &WatcherConfig{}
	if err := yaml.Unmarshal(data, wc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	wc.ApplyDefaults()
	if err := wc.Validate(); err != nil {
		return nil, fmt.Errorf("validate config file %s: %w", path, err)
	}

	return wc, nil
}

// ApplyDefaults fills unset optional fields and normalizes extensions.
func (wc *WatcherConfig) ApplyDefaults() {
	if wc.ReactionEmoji == "" {
		wc.ReactionEmoji = "❤️"
	}
	if wc.MaxConcurrent <= 0 {
		wc.MaxConcurrent = 2
	}
	if wc.AlbumSearchWindow <= 0 {
		wc.AlbumSearchWindow = 50
	}

	// normalize extension entries to lowercase with a leading dot
	for i, ext := range wc.FileExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		wc.FileExtensions[i] = ext
	}
}

// Validate checks required watcher settings.
func (wc *WatcherConfig) Validate() error {
	if wc.DownloadDir == "" {
		return fmt.Errorf("download_dir is required")
	}
	if wc.PostImport.Enabled && wc.PostImport.Endpoint == "" {
		return fmt.Errorf("post_import.endpoint is required when post_import is enabled")
	}
	if wc.LinkDownloads.Enabled && wc.LinkDownloads.SourceChat == "" {
		return fmt.Errorf("link_downloads.source_chat is required when link_downloads is enabled")
	}
	return nil
}

// MaxFileSizeBytes returns the size limit in bytes (0 = unlimited).
func (wc *WatcherConfig) MaxFileSizeBytes() int64 {
	return wc.MaxFileSizeMB * 1024 * 1024
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
