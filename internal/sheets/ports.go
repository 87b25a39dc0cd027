package sheets

import "context"

// Ports for outbound adapters.
type (
	// Row is one spreadsheet line. Cells are strings or numbers.
	Row []any

	// RecordMirror keeps one tab per resource with one row per record,
	// keyed by the record id in the first column.
	RecordMirror interface {
		// UpsertRecord writes header when the tab is empty, then updates the
		// row whose first cell is id or appends a new one.
		UpsertRecord(ctx context.Context, tab, id string, header []string, row Row) (rowRef string, err error)
		// DeleteRecord removes the row for id. A missing row is not an error.
		DeleteRecord(ctx context.Context, tab, id string) error
	}
)
