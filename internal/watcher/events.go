package watcher

import (
	"time"
)

// Download outcome states, also used as event types on the wire.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// DownloadEvent describes one finished download attempt. It is handed to
// the NATS publisher and the websocket hub, and kept in the recent ring.
type DownloadEvent struct {
	TaskID     string    `json:"task_id"`
	ChatID     int64     `json:"chat_id"`
	ChatTitle  string    `json:"chat_title,omitempty"`
	MsgID      int       `json:"msg_id"`
	File       string    `json:"file"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// Stats is a snapshot of dispatcher counters for the status API.
type Stats struct {
	Active    int   `json:"active"`
	Claimed   int   `json:"claimed"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Rejected  int64 `json:"rejected"`
}
