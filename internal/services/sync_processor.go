package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"rentdesk/internal/export"
	"rentdesk/internal/sheets"
	"rentdesk/internal/storage"
)

// RecordSource loads the current state of a record. *Service satisfies it.
type RecordSource interface {
	Record(ctx context.Context, resource, id string) (any, error)
}

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to check for pending items (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of items to process per poll cycle (default: 10)
	BatchSize int

	// MaxRetries is the maximum attempts before an item is marked failed (default: 3)
	MaxRetries int

	// CleanupInterval is how often to clean up completed items (default: 1h)
	CleanupInterval time.Duration

	// CleanupAge is how old completed items must be before cleanup (default: 24h)
	CleanupAge time.Duration
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval:    10 * time.Second,
		BatchSize:       10,
		MaxRetries:      3,
		CleanupInterval: 1 * time.Hour,
		CleanupAge:      24 * time.Hour,
	}
}

// SyncProcessor drains the sync_queue outbox into the spreadsheet mirror.
type SyncProcessor struct {
	storage *storage.SQLiteRepository
	records RecordSource
	mirror  sheets.RecordMirror
	config  SyncProcessorConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSyncProcessor creates a new sync processor
func NewSyncProcessor(
	storage *storage.SQLiteRepository,
	records RecordSource,
	mirror sheets.RecordMirror,
	config SyncProcessorConfig,
) *SyncProcessor {
	return &SyncProcessor{
		storage: storage,
		records: records,
		mirror:  mirror,
		config:  config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	// Reset any stale processing items from previous crashes
	if err := p.storage.ResetStaleProcessing(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to reset stale processing items", "error", err)
	}

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	cleanupTicker := time.NewTicker(p.config.CleanupInterval)
	defer cleanupTicker.Stop()

	// Process immediately on startup
	p.ProcessBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.ProcessBatch(ctx)
		case <-cleanupTicker.C:
			p.cleanupCompleted(ctx)
		}
	}
}

// ProcessBatch processes a single batch of pending items and returns how
// many it claimed.
func (p *SyncProcessor) ProcessBatch(ctx context.Context) int {
	items, err := p.storage.DequeueSyncBatch(ctx, int64(p.config.BatchSize))
	if err != nil {
		slog.ErrorContext(ctx, "Failed to dequeue sync batch", "error", err)
		return 0
	}
	if len(items) == 0 {
		return 0
	}

	slog.DebugContext(ctx, "Processing sync batch", "count", len(items))

	claimed := 0
	for _, item := range items {
		select {
		case <-p.stopCh:
			return claimed
		case <-ctx.Done():
			return claimed
		default:
		}
		if p.claimAndProcess(ctx, item) {
			claimed++
		}
	}
	return claimed
}

// ProcessItem handles one outbox row right away, as announced by a record
// event. Rows that are no longer pending are left alone.
func (p *SyncProcessor) ProcessItem(ctx context.Context, queueID int64) error {
	item, err := p.storage.GetSyncItem(ctx, queueID)
	if errors.Is(err, storage.ErrNotFound) {
		slog.DebugContext(ctx, "Sync item already cleaned up", "id", queueID)
		return nil
	}
	if err != nil {
		return err
	}
	if item.Status != storage.SyncPending {
		slog.DebugContext(ctx, "Sync item not pending, skipping",
			"id", queueID, "status", item.Status)
		return nil
	}
	p.claimAndProcess(ctx, item)
	return nil
}

// claimAndProcess marks item as processing, mirrors it and records the
// outcome. It returns false when another consumer claimed the item first.
func (p *SyncProcessor) claimAndProcess(ctx context.Context, item storage.SyncItem) bool {
	if err := p.storage.MarkSyncProcessing(ctx, item.ID); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.ErrorContext(ctx, "Failed to mark item as processing",
				"id", item.ID, "error", err)
		}
		return false
	}

	var processErr error
	switch item.Operation {
	case storage.SyncOpSync:
		processErr = p.processSyncItem(ctx, item)
	case storage.SyncOpDelete:
		processErr = p.processDeleteItem(ctx, item)
	default:
		processErr = fmt.Errorf("unknown operation: %s", item.Operation)
	}

	if processErr != nil {
		p.handleFailure(ctx, item, processErr)
	} else {
		p.handleSuccess(ctx, item)
	}
	return true
}

// processSyncItem writes the current state of a record to its mirror tab.
func (p *SyncProcessor) processSyncItem(ctx context.Context, item storage.SyncItem) error {
	fields, ok := export.MirrorFields(item.Resource)
	if !ok {
		slog.WarnContext(ctx, "Resource is not mirrored, skipping",
			"resource", item.Resource, "record_id", item.RecordID)
		return nil
	}

	record, err := p.records.Record(ctx, item.Resource, item.RecordID)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted after the change was queued; the delete item follows.
		slog.InfoContext(ctx, "Record no longer exists, skipping sync",
			"resource", item.Resource, "record_id", item.RecordID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s %s: %w", item.Resource, item.RecordID, err)
	}

	row, err := export.Row(record, fields)
	if err != nil {
		return fmt.Errorf("flatten %s %s: %w", item.Resource, item.RecordID, err)
	}

	ref, err := p.mirror.UpsertRecord(ctx, item.Resource, item.RecordID, export.Labels(fields), row)
	if err != nil {
		return fmt.Errorf("upsert to sheets: %w", err)
	}

	slog.InfoContext(ctx, "Synced record to Google Sheets",
		"resource", item.Resource,
		"record_id", item.RecordID,
		"sheets_ref", ref)
	return nil
}

func (p *SyncProcessor) processDeleteItem(ctx context.Context, item storage.SyncItem) error {
	if _, ok := export.MirrorFields(item.Resource); !ok {
		return nil
	}
	if err := p.mirror.DeleteRecord(ctx, item.Resource, item.RecordID); err != nil {
		return fmt.Errorf("delete from sheets: %w", err)
	}
	slog.InfoContext(ctx, "Deleted record from Google Sheets",
		"resource", item.Resource,
		"record_id", item.RecordID)
	return nil
}

func (p *SyncProcessor) handleSuccess(ctx context.Context, item storage.SyncItem) {
	if err := p.storage.MarkSyncComplete(ctx, item.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark sync complete",
			"id", item.ID, "error", err)
	}
}

// handleFailure puts the item back in the queue or, once MaxRetries attempts
// have been made, marks it failed.
func (p *SyncProcessor) handleFailure(ctx context.Context, item storage.SyncItem, processErr error) {
	slog.WarnContext(ctx, "Sync processing failed",
		"id", item.ID,
		"operation", item.Operation,
		"attempt", item.Attempts+1,
		"error", processErr)

	if item.Attempts+1 >= int64(p.config.MaxRetries) {
		if err := p.storage.MarkSyncFailed(ctx, item.ID, processErr.Error()); err != nil {
			slog.ErrorContext(ctx, "Failed to mark sync as failed",
				"id", item.ID, "error", err)
		}
		slog.ErrorContext(ctx, "Sync item failed permanently after max retries",
			"id", item.ID,
			"resource", item.Resource,
			"record_id", item.RecordID,
			"attempts", item.Attempts+1)
		return
	}

	if err := p.storage.IncrementSyncAttempt(ctx, item.ID, processErr.Error()); err != nil {
		slog.ErrorContext(ctx, "Failed to increment sync attempt",
			"id", item.ID, "error", err)
	}
}

func (p *SyncProcessor) cleanupCompleted(ctx context.Context) {
	cutoff := time.Now().Add(-p.config.CleanupAge)
	if err := p.storage.CleanupCompletedSyncs(ctx, cutoff); err != nil {
		slog.ErrorContext(ctx, "Failed to cleanup completed syncs", "error", err)
	}
}

// Stats returns current queue statistics
func (p *SyncProcessor) Stats(ctx context.Context) (storage.SyncQueueStats, error) {
	return p.storage.GetSyncQueueStats(ctx)
}

// RetryFailed resets all failed items for retry
func (p *SyncProcessor) RetryFailed(ctx context.Context) (int64, error) {
	return p.storage.RetryFailedSyncs(ctx)
}
