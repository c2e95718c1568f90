package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfigFile(t, "download_dir: /downloads\n")
	t.Setenv("REACTDL_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTPPort != 3200 {
		t.Errorf("HTTPPort = %d, want 3200", cfg.HTTPPort)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.Watcher.ReactionEmoji != "❤️" {
		t.Errorf("ReactionEmoji = %q, want the default heart", cfg.Watcher.ReactionEmoji)
	}
	if cfg.Watcher.MaxConcurrent != 2 {
		t.Errorf("MaxConcurrent = %d, want 2", cfg.Watcher.MaxConcurrent)
	}
	if cfg.Watcher.AlbumSearchWindow != 50 {
		t.Errorf("AlbumSearchWindow = %d, want 50", cfg.Watcher.AlbumSearchWindow)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfigFile(t, "download_dir: /downloads\n")
	t.Setenv("REACTDL_CONFIG", path)
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TG_API_ID", "12345")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want 8080", cfg.HTTPPort)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.TGApiID != 12345 {
		t.Errorf("TGApiID = %d, want 12345", cfg.TGApiID)
	}
}

func TestLoad_FullWatcherConfig(t *testing.T) {
	path := writeConfigFile(t, `
monitored_chats:
  - "@mychannel"
  - "-1001234567890"
download_dir: /downloads
reaction_emoji: "👍"
file_extensions: [MKV, ".mp4"]
max_file_size_mb: 2000
max_concurrent: 4
album_search_window: 30
notify_chat: "@me"
post_import:
  enabled: true
  endpoint: http://jellyfin:8096/Library/Media/Updated
  api_key: secret
link_downloads:
  enabled: true
  source_chat: "@mybot"
`)
	t.Setenv("REACTDL_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	wc := cfg.Watcher
	if len(wc.MonitoredChats) != 2 {
		t.Errorf("MonitoredChats = %v, want 2 entries", wc.MonitoredChats)
	}
	if wc.ReactionEmoji != "👍" {
		t.Errorf("ReactionEmoji = %q, want 👍", wc.ReactionEmoji)
	}
	// extensions are normalized to lowercase with a leading dot
	if len(wc.FileExtensions) != 2 || wc.FileExtensions[0] != ".mkv" || wc.FileExtensions[1] != ".mp4" {
		t.Errorf("FileExtensions = %v, want [.mkv .mp4]", wc.FileExtensions)
	}
	if wc.MaxFileSizeBytes() != 2000*1024*1024 {
		t.Errorf("MaxFileSizeBytes() = %d, want 2000 MB in bytes", wc.MaxFileSizeBytes())
	}
	if !wc.PostImport.Enabled || wc.PostImport.APIKey != "secret" {
		t.Errorf("PostImport = %+v, want enabled with api key", wc.PostImport)
	}
	if !wc.LinkDownloads.Enabled || wc.LinkDownloads.SourceChat != "@mybot" {
		t.Errorf("LinkDownloads = %+v, want enabled with source chat", wc.LinkDownloads)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing download dir",
			content: "reaction_emoji: \"❤️\"\n",
		},
		{
			name: "post import enabled without endpoint",
			content: `
download_dir: /downloads
post_import:
  enabled: true
`,
		},
		{
			name: "link downloads enabled without source chat",
			content: `
download_dir: /downloads
link_downloads:
  enabled: true
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.content)
			t.Setenv("REACTDL_CONFIG", path)

			if _, err := Load(); err == nil {
				t.Error("Load() expected validation error")
			}
		})
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("REACTDL_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	if _, err := Load(); err == nil {
		t.Error("Load() expected error for a missing config file")
	}
}
