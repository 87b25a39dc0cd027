package backend

import (
	"context"
	"fmt"

	"rentdesk/internal/amqp"
	"rentdesk/internal/log"
	"rentdesk/internal/services"
	"rentdesk/internal/sheets"
	gsheet "rentdesk/internal/sheets/google"
	"rentdesk/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger    *log.Logger
	newSheets func(context.Context) (*gsheet.Client, error)
	newAMQP   func(url, exchange, queue string) (*amqp.Client, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger:    logger,
		newSheets: gsheet.NewFromEnv,
		newAMQP:   amqp.NewClient,
	}
}

var _ Factory = (*DefaultFactory)(nil)

// CreateMirror implements Factory.CreateMirror
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (sheets.RecordMirror, error) {
	switch config.Mirror {
	case SheetsMirror:
		if config.SpreadsheetID == "" {
			return nil, fmt.Errorf("sheets mirror requires a spreadsheet id")
		}
		cli, err := f.newSheets(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Google Sheets mirror initialized", "spreadsheet_id", config.SpreadsheetID)
		return cli, nil
	case MemoryMirror:
		f.logger.Info("Google Sheets disabled, mirroring to memory")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("invalid mirror type: %q", config.Mirror)
	}
}

// CreatePublisher implements Factory.CreatePublisher. The outbox alone still
// reaches the worker's poller, so a broker failure is only a warning.
func (f *DefaultFactory) CreatePublisher(config Config) services.EventPublisher {
	if config.AMQPURL == "" {
		f.logger.Info("AMQP disabled, changes are only written to the outbox")
		return nil
	}
	client, err := f.newAMQP(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing with outbox only",
			log.FieldError, err, log.FieldComponent, log.ComponentAMQP)
		return nil
	}
	f.logger.Info("AMQP publisher initialized", "exchange", config.AMQPExchange)
	return client
}

// CreateConsumer implements Factory.CreateConsumer
func (f *DefaultFactory) CreateConsumer(config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := f.newAMQP(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, relying on outbox polling",
			log.FieldError, err, log.FieldComponent, log.ComponentAMQP)
		return nil
	}
	return client
}
