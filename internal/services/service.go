package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rentdesk/internal/amqp"
	"rentdesk/internal/core"
	"rentdesk/internal/storage"
)

var (
	// ErrForbidden is returned when the caller may not perform an operation.
	ErrForbidden = errors.New("operation not permitted")
	// ErrConflict is returned when a unique value is already taken.
	ErrConflict = errors.New("already exists")
	// ErrInUse is returned when a record cannot be deleted while others
	// still refer to it.
	ErrInUse = errors.New("still referenced")
)

// EventPublisher announces record changes. *amqp.Client satisfies it.
type EventPublisher interface {
	PublishRecordEvent(ctx context.Context, event *amqp.RecordEvent) error
}

// Service orchestrates record operations across SQLite, the sync outbox and AMQP.
type Service struct {
	storage   *storage.SQLiteRepository
	publisher EventPublisher
	now       func() time.Time
}

// New creates a service. publisher may be nil, in which case changes are
// only written to the outbox.
func New(storage *storage.SQLiteRepository, publisher EventPublisher) *Service {
	return &Service{
		storage:   storage,
		publisher: publisher,
		now:       time.Now,
	}
}

// Storage exposes the repository for health checks and the sync processor.
func (s *Service) Storage() *storage.SQLiteRepository { return s.storage }

// notify records a change in the outbox and publishes an event for it.
// Neither step fails the caller: the record itself is already saved.
func (s *Service) notify(ctx context.Context, resource, recordID, action string) {
	if !core.IsExportable(resource) {
		return
	}
	op := storage.SyncOpSync
	if action == amqp.ActionDeleted {
		op = storage.SyncOpDelete
	}
	queueID, err := s.storage.EnqueueSync(ctx, resource, recordID, op)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to enqueue sync",
			"resource", resource, "record_id", recordID, "error", err)
		return
	}

	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, outbox only",
			"resource", resource, "record_id", recordID)
		return
	}
	event := amqp.NewRecordEvent(queueID, resource, recordID, action)
	if err := s.publisher.PublishRecordEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish record event",
			"resource", resource, "record_id", recordID, "queue_id", queueID, "error", err)
	}
}

// mustExist turns a missing referenced record into a validation error.
func mustExist(err error, field, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return &core.ValidationError{Problems: []string{fmt.Sprintf("%s %q does not exist", field, id)}}
	}
	return err
}

// refuseIfReferenced fails with ErrInUse when any row points at id through
// one of refs.
func (s *Service) refuseIfReferenced(ctx context.Context, what, id string, refs ...storage.Reference) error {
	for _, ref := range refs {
		ids, err := s.storage.Referencing(ctx, ref, id)
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			return fmt.Errorf("%s %q is used by %d %s: %w", what, id, len(ids), ref.Table(), ErrInUse)
		}
	}
	return nil
}

// index maps records by id for populating references.
func index[T any](items []T, id func(T) string) map[string]T {
	out := make(map[string]T, len(items))
	for _, it := range items {
		out[id(it)] = it
	}
	return out
}

// populate fills ref from byID when the target is known.
func populate[T any](ref *core.Ref[T], byID map[string]T) {
	if doc, ok := byID[ref.ID]; ok {
		*ref = core.Populated(ref.ID, doc)
	}
}

// Close closes storage and the publisher when it can be closed.
func (s *Service) Close() error {
	var errs []error
	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	return errors.Join(errs...)
}
