package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/blockedby/reactdl/internal/logger"
	"github.com/blockedby/reactdl/internal/telegram"
	"github.com/google/uuid"
)

// videoContainerExts trigger the post-import hook after a download.
var videoContainerExts = map[string]bool{
	".mkv": true, ".mp4": true, ".avi": true, ".mov": true,
	".wmv": true, ".m4v": true, ".webm": true, ".ts": true,
	".flv": true, ".mpg": true, ".mpeg": true,
}

// recentRingSize bounds the in-memory history exposed by the status API.
const recentRingSize = 50

// Key is the dedup identity of one downloadable message.
type Key struct {
	ChatID int64
	MsgID  int
}

// String renders the key for logs.
func (k Key) String() string {
	return fmt.Sprintf("%d/%d", k.ChatID, k.MsgID)
}

// Task is one unit of download work submitted to the dispatcher.
type Task struct {
	ID        uuid.UUID
	Key       Key
	Desc      Descriptor
	Media     *telegram.Media
	ChatTitle string
	SourceURL string // set for link-triggered downloads, used in notifications
}

// Transfer performs the actual byte transfer of a media payload.
type Transfer interface {
	Download(ctx context.Context, media *telegram.Media, dest string) error
}

// Notifier delivers operator notifications. Implementations are
// fire-and-forget: failures are logged, never returned.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// PostImporter triggers the external media-library scan.
type PostImporter interface {
	TriggerScan(ctx context.Context, dir string) error
}

// EventPublisher publishes download lifecycle events.
type EventPublisher interface {
	PublishCompleted(ctx context.Context, ev DownloadEvent) error
	PublishFailed(ctx context.Context, ev DownloadEvent) error
}

// Broadcaster pushes download events to connected status clients.
type Broadcaster interface {
	BroadcastDownload(ev DownloadEvent)
}

// Dispatcher owns the bounded-concurrency execution of downloads, the
// dedup ledger and the per-item lifecycle. Claims are made by the intake
// path before a task is spawned; the dispatcher itself never re-checks.
type Dispatcher struct {
	transfer    Transfer
	filter      *FileFilter
	downloadDir string

	// optional collaborators, nil disables the corresponding side effect
	notifier    Notifier
	postImport  PostImporter
	publisher   EventPublisher
	broadcaster Broadcaster

	log *logger.Logger

	// slots is the concurrency permit pool; holding one slot is required
	// for the duration of a transfer
	slots chan struct{}

	mu      sync.Mutex
	claimed map[Key]struct{}
	active  int
	totals  Stats
	recent  []DownloadEvent

	wg sync.WaitGroup
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	Transfer      Transfer
	Filter        *FileFilter
	DownloadDir   string
	MaxConcurrent int
	Notifier      Notifier
	PostImport    PostImporter
	Publisher     EventPublisher
	Broadcaster   Broadcaster
	Log           *logger.Logger
}

// NewDispatcher creates a download dispatcher.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 2
	}
	if opts.Log == nil {
		opts.Log = logger.Get()
	}
	if opts.Filter == nil {
		opts.Filter = &FileFilter{}
	}

	return &Dispatcher{
		transfer:    opts.Transfer,
		filter:      opts.Filter,
		downloadDir: opts.DownloadDir,
		notifier:    opts.Notifier,
		postImport:  opts.PostImport,
		publisher:   opts.Publisher,
		broadcaster: opts.Broadcaster,
		log:         opts.Log,
		slots:       make(chan struct{}, opts.MaxConcurrent),
		claimed:     make(map[Key]struct{}),
	}
}

// Claim records the key in the dedup ledger before any task is spawned.
// Returns false when the key is already claimed (in progress or done).
// Entries are never removed: the same message cannot legitimately
// trigger a second distinct download within one process lifetime.
func (d *Dispatcher) Claim(key Key) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.claimed[key]; exists {
		return false
	}
	d.claimed[key] = struct{}{}
	return true
}

// Claimed reports whether the key is already in the dedup ledger.
func (d *Dispatcher) Claimed(key Key) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, exists := d.claimed[key]
	return exists
}

// Spawn starts the task on its own goroutine and returns immediately.
// The caller must have claimed the task's key first.
func (d *Dispatcher) Spawn(ctx context.Context, task Task) {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(ctx, task)
	}()
}

// Wait blocks until every spawned task has finished. Used in tests and
// during best-effort drain on shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Stats returns a snapshot of the dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.totals
	s.Active = d.active
	s.Claimed = len(d.claimed)
	return s
}

// Recent returns the most recent download outcomes, newest first.
func (d *Dispatcher) Recent() []DownloadEvent {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]DownloadEvent, len(d.recent))
	for i, ev := range d.recent {
		out[len(d.recent)-1-i] = ev
	}
	return out
}

// run drives the full per-item lifecycle. Any panic from unexpected
// client state is contained here and converted to a failed outcome.
func (d *Dispatcher) run(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().
				Str("task_id", task.ID.String()).
				Str("key", task.Key.String()).
				Interface("panic", r).
				Msg("download task panicked")
			d.finishFailed(ctx, task, fmt.Errorf("task panic: %v", r))
		}
	}()

	name := SanitizeFilename(task.Desc.Filename)
	if name == "" {
		return
	}

	if !d.filter.ShouldDownload(name, task.Desc.Size) {
		d.log.Debug().
			Str("file", name).
			Int64("size", task.Desc.Size).
			Msg("skipping file rejected by filter")
		d.mu.Lock()
		d.totals.Rejected++
		d.mu.Unlock()
		return
	}

	dest := filepath.Join(d.downloadDir, name)

	// an existing file with the expected size is a finished download from
	// a previous run; a smaller or larger one is a leftover partial
	if info, err := os.Stat(dest); err == nil {
		if task.Desc.Size == 0 || info.Size() == task.Desc.Size {
			d.log.Info().Str("file", name).Msg("file already exists, skipping transfer")
			d.finishCompleted(ctx, task, dest, name, info.Size(), false)
			return
		}

		d.log.Warn().
			Str("file", name).
			Int64("disk_size", info.Size()).
			Int64("expected_size", task.Desc.Size).
			Msg("removing incomplete file from previous run")
		if err := os.Remove(dest); err != nil {
			d.finishFailed(ctx, task, fmt.Errorf("remove incomplete file: %w", err))
			return
		}
	}

	// acquire a concurrency slot; this parks the task goroutine only,
	// the intake path has already returned
	select {
	case d.slots <- struct{}{}:
	case <-ctx.Done():
		return
	}

	d.mu.Lock()
	d.active++
	active := d.active
	d.mu.Unlock()

	defer func() {
		<-d.slots
		d.mu.Lock()
		d.active--
		d.mu.Unlock()
	}()

	d.log.Info().
		Str("task_id", task.ID.String()).
		Str("key", task.Key.String()).
		Str("file", name).
		Int64("size", task.Desc.Size).
		Int("active", active).
		Msg("downloading")

	if err := d.transfer.Download(ctx, task.Media, dest); err != nil {
		d.finishFailed(ctx, task, fmt.Errorf("transfer: %w", err))
		return
	}

	size, err := d.verify(dest, task.Desc.Size)
	if err != nil {
		// verification failures are not retried automatically; the file
		// stays on disk and the size check cleans it up on the next run
		d.finishFailed(ctx, task, err)
		return
	}

	d.finishCompleted(ctx, task, dest, name, size, true)
}

// verify compares the on-disk size with the expected size when known.
func (d *Dispatcher) verify(dest string, expected int64) (int64, error) {
	info, err := os.Stat(dest)
	if err != nil {
		return 0, fmt.Errorf("stat downloaded file: %w", err)
	}
	if expected > 0 && info.Size() != expected {
		return 0, fmt.Errorf("size mismatch: got %d bytes, expected %d", info.Size(), expected)
	}
	return info.Size(), nil
}

// finishCompleted records a success and drives the side effects:
// notification, post-import trigger and event publishing.
func (d *Dispatcher) finishCompleted(ctx context.Context, task Task, dest, name string, size int64, transferred bool) {
	ev := d.record(task, DownloadEvent{
		File:   name,
		Path:   dest,
		Size:   size,
		Status: StatusCompleted,
	})
	d.mu.Lock()
	d.totals.Completed++
	d.mu.Unlock()

	d.log.Info().
		Str("file", name).
		Int64("size", size).
		Bool("transferred", transferred).
		Msg("download completed")

	if d.notifier != nil {
		text := fmt.Sprintf("✅ Downloaded: %s (%.2f MB)", name, float64(size)/(1024*1024))
		if task.SourceURL != "" {
			text += "\nfrom " + task.SourceURL
		}
		d.notifier.Notify(ctx, text)
	}

	if transferred && d.postImport != nil && videoContainerExts[strings.ToLower(filepath.Ext(name))] {
		if err := d.postImport.TriggerScan(ctx, filepath.Dir(dest)); err != nil {
			d.log.Warn().Err(err).Str("file", name).Msg("post-import trigger failed")
		}
	}

	d.publish(ctx, ev)
}

// finishFailed records a failure, notifies and publishes it.
func (d *Dispatcher) finishFailed(ctx context.Context, task Task, cause error) {
	ev := d.record(task, DownloadEvent{
		File:   task.Desc.Filename,
		Status: StatusFailed,
		Error:  cause.Error(),
	})
	d.mu.Lock()
	d.totals.Failed++
	d.mu.Unlock()

	d.log.Error().
		Err(cause).
		Str("task_id", task.ID.String()).
		Str("key", task.Key.String()).
		Msg("download failed")

	if d.notifier != nil {
		text := fmt.Sprintf("❌ Download failed: %s\n%v", task.Desc.Filename, cause)
		if task.SourceURL != "" {
			text += "\nfrom " + task.SourceURL
		}
		d.notifier.Notify(ctx, text)
	}

	d.publish(ctx, ev)
}

// record fills the shared event fields and appends it to the recent ring.
func (d *Dispatcher) record(task Task, ev DownloadEvent) DownloadEvent {
	ev.TaskID = task.ID.String()
	ev.ChatID = task.Key.ChatID
	ev.ChatTitle = task.ChatTitle
	ev.MsgID = task.Key.MsgID
	ev.FinishedAt = time.Now()

	d.mu.Lock()
	d.recent = append(d.recent, ev)
	if len(d.recent) > recentRingSize {
		d.recent = d.recent[len(d.recent)-recentRingSize:]
	}
	d.mu.Unlock()

	return ev
}

// publish forwards the event to the optional publisher and broadcaster.
func (d *Dispatcher) publish(ctx context.Context, ev DownloadEvent) {
	if d.publisher != nil {
		var err error
		if ev.Status == StatusCompleted {
			err = d.publisher.PublishCompleted(ctx, ev)
		} else {
			err = d.publisher.PublishFailed(ctx, ev)
		}
		if err != nil {
			d.log.Warn().Err(err).Msg("failed to publish download event")
		}
	}

	if d.broadcaster != nil {
		d.broadcaster.BroadcastDownload(ev)
	}
}
