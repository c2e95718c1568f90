package web

import (
	"encoding/json"

	"github.com/blockedby/reactdl/internal/watcher"
)

// WebSocket event types.
const (
	EventDownloadCompleted = "download.completed"
	EventDownloadFailed    = "download.failed"
)

// WSEvent represents a structured WebSocket message.
type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// DownloadEventBridge adapts the hub to watcher.Broadcaster.
type DownloadEventBridge struct {
	hub *Hub
}

// NewDownloadEventBridge wraps the hub for the dispatcher.
func NewDownloadEventBridge(hub *Hub) *DownloadEventBridge {
	return &DownloadEventBridge{hub: hub}
}

// BroadcastDownload pushes a download outcome to all connected clients.
func (b *DownloadEventBridge) BroadcastDownload(ev watcher.DownloadEvent) {
	evType := EventDownloadCompleted
	if ev.Status == watcher.StatusFailed {
		evType = EventDownloadFailed
	}

	data, err := json.Marshal(WSEvent{Type: evType, Payload: ev})
	if err != nil {
		return
	}
	b.hub.Broadcast(data)
}
