// Package backend builds the outbound adapters the rentdesk binaries share:
// the spreadsheet mirror and the AMQP publisher and consumer.
package backend

import (
	"context"

	"rentdesk/internal/amqp"
	"rentdesk/internal/services"
	"rentdesk/internal/sheets"
)

// MirrorType selects where synced records are written.
type MirrorType string

const (
	SheetsMirror MirrorType = "sheets"
	MemoryMirror MirrorType = "memory"
)

func (t MirrorType) IsValid() bool {
	return t == SheetsMirror || t == MemoryMirror
}

// Factory creates the outbound adapters from a Config.
type Factory interface {
	CreateMirror(ctx context.Context, config Config) (sheets.RecordMirror, error)
	// CreatePublisher returns nil when publishing is off or the broker is
	// unreachable.
	CreatePublisher(config Config) services.EventPublisher
	// CreateConsumer returns nil under the same conditions.
	CreateConsumer(config Config) *amqp.Client
}
