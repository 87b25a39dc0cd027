package worker

import (
	"context"
	"fmt"
	"log/slog"

	"rentdesk/internal/amqp"
	"rentdesk/internal/services"
)

// maxStartupBatches bounds the catch-up pass so a huge backlog does not
// delay consuming new events.
const maxStartupBatches = 100

// SyncWorker turns record events from AMQP into immediate outbox processing.
// The outbox poller inside the processor covers events that were never
// delivered.
type SyncWorker struct {
	processor *services.SyncProcessor
}

func NewSyncWorker(processor *services.SyncProcessor) *SyncWorker {
	return &SyncWorker{processor: processor}
}

// HandleRecordEvent processes the outbox row announced by a record event.
func (w *SyncWorker) HandleRecordEvent(ctx context.Context, ev *amqp.RecordEvent) error {
	slog.InfoContext(ctx, "Processing record event",
		"resource", ev.Resource,
		"record_id", ev.RecordID,
		"action", ev.Action,
		"queue_id", ev.QueueID)

	if ev.QueueID <= 0 {
		slog.WarnContext(ctx, "Record event without queue id, leaving it to the poller",
			"resource", ev.Resource, "record_id", ev.RecordID)
		return nil
	}
	if err := w.processor.ProcessItem(ctx, ev.QueueID); err != nil {
		return fmt.Errorf("process queue item %d: %w", ev.QueueID, err)
	}
	return nil
}

// StartupSyncCheck drains items queued while the worker was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	stats, err := w.processor.Stats(ctx)
	if err != nil {
		return fmt.Errorf("get queue stats: %w", err)
	}
	slog.InfoContext(ctx, "Startup sync check",
		"pending", stats.Pending,
		"failed", stats.Failed)

	total := 0
	for i := 0; i < maxStartupBatches; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := w.processor.ProcessBatch(ctx)
		if n == 0 {
			break
		}
		total += n
	}
	if total > 0 {
		slog.InfoContext(ctx, "Startup sync processed backlog", "items", total)
	}
	return nil
}
