package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/blockedby/reactdl/internal/watcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNATS struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakeNATS) Publish(subject string, data []byte) error {
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return f.err
}

func TestNATSPublisher_PublishCompleted(t *testing.T) {
	nc := &fakeNATS{}
	p := &NATSPublisher{conn: nc}

	ev := watcher.DownloadEvent{
		TaskID: "task-1",
		ChatID: 100,
		File:   "movie.mkv",
		Size:   2048,
		Status: watcher.StatusCompleted,
	}
	require.NoError(t, p.PublishCompleted(context.Background(), ev))

	require.Len(t, nc.subjects, 1)
	assert.Equal(t, SubjectCompleted, nc.subjects[0])

	var decoded watcher.DownloadEvent
	require.NoError(t, json.Unmarshal(nc.payloads[0], &decoded))
	assert.Equal(t, ev.TaskID, decoded.TaskID)
	assert.Equal(t, ev.File, decoded.File)
	assert.Equal(t, ev.Status, decoded.Status)
}

func TestNATSPublisher_PublishFailed(t *testing.T) {
	nc := &fakeNATS{}
	p := &NATSPublisher{conn: nc}

	ev := watcher.DownloadEvent{
		TaskID: "task-2",
		Status: watcher.StatusFailed,
		Error:  "size mismatch",
	}
	require.NoError(t, p.PublishFailed(context.Background(), ev))

	require.Len(t, nc.subjects, 1)
	assert.Equal(t, SubjectFailed, nc.subjects[0])
}

func TestNATSPublisher_PublishError(t *testing.T) {
	nc := &fakeNATS{err: fmt.Errorf("connection closed")}
	p := &NATSPublisher{conn: nc}

	err := p.PublishCompleted(context.Background(), watcher.DownloadEvent{})
	assert.Error(t, err)
}
