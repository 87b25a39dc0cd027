package export

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	// SheetName is the only sheet in every export.
	SheetName = "Sheet1"
	// ContentType is the MIME type of xlsx files.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_\-]+`)

// FileName turns an export name such as "Tenants_List" into a safe
// "<name>.xlsx".
func FileName(name string) string {
	name = strings.Trim(unsafeName.ReplaceAllString(strings.TrimSpace(name), "_"), "_")
	if name == "" {
		name = "export"
	}
	return name + ".xlsx"
}

// DefaultName is the export name used for a resource, e.g. "Contracts_List".
func DefaultName(resource string) string {
	words := strings.Split(resource, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, "_") + "_List"
}

// WriteXLSX writes records as a single-sheet workbook with a header row of
// field labels.
func WriteXLSX(w io.Writer, records []any, fields []Field) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]any, len(fields))
	for i, fl := range fields {
		header[i] = fl.Label
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, rec := range records {
		row, err := Row(rec, fields)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
