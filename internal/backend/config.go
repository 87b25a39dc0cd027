package backend

import (
	"fmt"

	"rentdesk/internal/config"
)

// Config is the part of the application config the factory needs.
type Config struct {
	Mirror        MirrorType
	SpreadsheetID string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// FromAppConfig picks the Sheets mirror when a spreadsheet is configured and
// the in-memory one otherwise.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	mirror := MemoryMirror
	if appConfig.GoogleSpreadsheetID != "" {
		mirror = SheetsMirror
	}
	return Config{
		Mirror:        mirror,
		SpreadsheetID: appConfig.GoogleSpreadsheetID,
		AMQPURL:       appConfig.AMQPURL,
		AMQPExchange:  appConfig.AMQPExchange,
		AMQPQueue:     appConfig.AMQPQueue,
	}, nil
}
