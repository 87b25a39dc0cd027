package backend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentdesk/internal/amqp"
	"rentdesk/internal/config"
	"rentdesk/internal/log"
	gsheet "rentdesk/internal/sheets/google"
	"rentdesk/internal/sheets/memory"
)

func quietFactory() *DefaultFactory {
	return NewFactory(log.New(log.Config{Level: slog.LevelError, Output: io.Discard}))
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{AMQPURL: "amqp://x", AMQPExchange: "ex", AMQPQueue: "q"})
	require.NoError(t, err)
	assert.Equal(t, MemoryMirror, cfg.Mirror)
	assert.Equal(t, "q", cfg.AMQPQueue)

	cfg, err = FromAppConfig(&config.Config{GoogleSpreadsheetID: "sheet-1"})
	require.NoError(t, err)
	assert.Equal(t, SheetsMirror, cfg.Mirror)
	assert.True(t, cfg.Mirror.IsValid())
	assert.False(t, MirrorType("csv").IsValid())
}

func TestCreateMirror(t *testing.T) {
	ctx := context.Background()
	f := quietFactory()

	m, err := f.CreateMirror(ctx, Config{Mirror: MemoryMirror})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, m)

	_, err = f.CreateMirror(ctx, Config{Mirror: "csv"})
	assert.ErrorContains(t, err, "invalid mirror type")

	_, err = f.CreateMirror(ctx, Config{Mirror: SheetsMirror})
	assert.ErrorContains(t, err, "spreadsheet id")

	f.newSheets = func(context.Context) (*gsheet.Client, error) { return nil, errors.New("no credentials") }
	_, err = f.CreateMirror(ctx, Config{Mirror: SheetsMirror, SpreadsheetID: "sheet-1"})
	assert.ErrorContains(t, err, "no credentials")
}

func TestPublisherFallsBackToOutbox(t *testing.T) {
	f := quietFactory()
	dialed := 0
	f.newAMQP = func(string, string, string) (*amqp.Client, error) {
		dialed++
		return nil, errors.New("connection refused")
	}

	assert.Nil(t, f.CreatePublisher(Config{}))
	assert.Nil(t, f.CreateConsumer(Config{}))
	assert.Zero(t, dialed)

	cfg := Config{AMQPURL: "amqp://localhost:1/", AMQPExchange: "rentdesk", AMQPQueue: "sync_records"}
	// A nil interface, not a typed nil, so services skip publishing.
	assert.True(t, f.CreatePublisher(cfg) == nil)
	assert.Nil(t, f.CreateConsumer(cfg))
	assert.Equal(t, 2, dialed)
}
