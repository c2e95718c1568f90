package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/blockedby/reactdl/internal/logger"
	"github.com/blockedby/reactdl/internal/telegram"
	"github.com/blockedby/reactdl/internal/watcher"
)

// ClientStatus reports the state of the Telegram connection.
type ClientStatus interface {
	GetStatus() telegram.Status
}

// DownloadStatus reports dispatcher counters and recent outcomes.
type DownloadStatus interface {
	Stats() watcher.Stats
	Recent() []watcher.DownloadEvent
}

// Handler answers the status API requests.
type Handler struct {
	client    ClientStatus
	downloads DownloadStatus
	started   time.Time
	log       *logger.Logger
}

// NewHandler creates a handler over the given status sources.
func NewHandler(client ClientStatus, downloads DownloadStatus, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Get()
	}
	return &Handler{
		client:    client,
		downloads: downloads,
		started:   time.Now(),
		log:       log,
	}
}

// statusResponse is the /api/v1/status body.
type statusResponse struct {
	Telegram  string        `json:"telegram"`
	Uptime    string        `json:"uptime"`
	Downloads watcher.Stats `json:"downloads"`
}

// Health responds 200 while the process is alive.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status reports client state, uptime and download counters.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, statusResponse{
		Telegram:  string(h.client.GetStatus()),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Downloads: h.downloads.Stats(),
	})
}

// RecentDownloads returns the latest download outcomes, newest first.
func (h *Handler) RecentDownloads(w http.ResponseWriter, r *http.Request) {
	recent := h.downloads.Recent()
	if recent == nil {
		recent = []watcher.DownloadEvent{}
	}
	h.writeJSON(w, http.StatusOK, recent)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn().Err(err).Msg("failed to encode response")
	}
}
