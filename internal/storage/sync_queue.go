package storage

import (
	"context"
	"fmt"
	"time"
)

// Sync queue operations and statuses.
const (
	SyncOpSync   = "sync"
	SyncOpDelete = "delete"

	SyncPending    = "pending"
	SyncProcessing = "processing"
	SyncCompleted  = "completed"
	SyncFailed     = "failed"
)

// SyncItem is one outbox row: a record that changed and must be mirrored.
type SyncItem struct {
	ID        int64
	Resource  string
	RecordID  string
	Operation string
	Status    string
	Attempts  int64
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SyncQueueStats counts outbox rows by status.
type SyncQueueStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}

const syncColumns = `id, resource, record_id, operation, status, attempts, last_error, created_at, updated_at`

func scanSyncItem(s scanner) (SyncItem, error) {
	var it SyncItem
	var created, updated string
	err := s.Scan(&it.ID, &it.Resource, &it.RecordID, &it.Operation, &it.Status, &it.Attempts, &it.LastError,
		&created, &updated)
	it.CreatedAt, it.UpdatedAt = parseTime(created), parseTime(updated)
	return it, err
}

func now() string { return formatTime(time.Now()) }

// EnqueueSync adds an outbox row and returns its id.
func (r *SQLiteRepository) EnqueueSync(ctx context.Context, resource, recordID, operation string) (int64, error) {
	ts := now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_queue (resource, record_id, operation, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		resource, recordID, operation, SyncPending, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("enqueue sync: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("enqueue sync: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetSyncItem(ctx context.Context, id int64) (SyncItem, error) {
	return queryOne(ctx, r.db, "get sync item", scanSyncItem,
		`SELECT `+syncColumns+` FROM sync_queue WHERE id = ?`, id)
}

// DequeueSyncBatch returns up to limit pending rows, oldest first.
func (r *SQLiteRepository) DequeueSyncBatch(ctx context.Context, limit int64) ([]SyncItem, error) {
	return queryAll(ctx, r.db, "dequeue sync batch", scanSyncItem,
		`SELECT `+syncColumns+` FROM sync_queue WHERE status = ? ORDER BY id LIMIT ?`, SyncPending, limit)
}

// MarkSyncProcessing claims a pending row. It returns ErrNotFound when another
// consumer got there first.
func (r *SQLiteRepository) MarkSyncProcessing(ctx context.Context, id int64) error {
	return r.exec(ctx, "mark sync processing",
		`UPDATE sync_queue SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		SyncProcessing, now(), id, SyncPending)
}

func (r *SQLiteRepository) MarkSyncComplete(ctx context.Context, id int64) error {
	return r.exec(ctx, "mark sync complete",
		`UPDATE sync_queue SET status = ?, last_error = '', updated_at = ? WHERE id = ?`, SyncCompleted, now(), id)
}

// IncrementSyncAttempt records a failed attempt and puts the row back to pending.
func (r *SQLiteRepository) IncrementSyncAttempt(ctx context.Context, id int64, lastErr string) error {
	return r.exec(ctx, "increment sync attempt",
		`UPDATE sync_queue SET status = ?, attempts = attempts + 1, last_error = ?, updated_at = ? WHERE id = ?`,
		SyncPending, lastErr, now(), id)
}

func (r *SQLiteRepository) MarkSyncFailed(ctx context.Context, id int64, lastErr string) error {
	return r.exec(ctx, "mark sync failed",
		`UPDATE sync_queue SET status = ?, attempts = attempts + 1, last_error = ?, updated_at = ? WHERE id = ?`,
		SyncFailed, lastErr, now(), id)
}

// ResetStaleProcessing returns rows left in processing by a crashed worker to pending.
func (r *SQLiteRepository) ResetStaleProcessing(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE sync_queue SET status = ?, updated_at = ? WHERE status = ?`, SyncPending, now(), SyncProcessing); err != nil {
		return fmt.Errorf("reset stale processing: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CleanupCompletedSyncs(ctx context.Context, before time.Time) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM sync_queue WHERE status = ? AND updated_at < ?`, SyncCompleted, formatTime(before)); err != nil {
		return fmt.Errorf("cleanup completed syncs: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RetryFailedSyncs(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sync_queue SET status = ?, attempts = 0, updated_at = ? WHERE status = ?`, SyncPending, now(), SyncFailed)
	if err != nil {
		return 0, fmt.Errorf("retry failed syncs: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) GetSyncQueueStats(ctx context.Context) (SyncQueueStats, error) {
	var st SyncQueueStats
	err := r.db.QueryRowContext(ctx, `SELECT
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'processing' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)
		FROM sync_queue`).Scan(&st.Pending, &st.Processing, &st.Completed, &st.Failed)
	if err != nil {
		return st, fmt.Errorf("sync queue stats: %w", err)
	}
	return st, nil
}
