package google

import (
	"fmt"
	"strings"
)

// findRowByID returns the 1-based sheet row whose first cell equals id, or
// 0 when there is none. values is the A column as returned by the API.
func findRowByID(values [][]any, id string) int {
	id = strings.TrimSpace(id)
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1
		}
	}
	return 0
}

// columnLetter converts a 1-based column index to A1 notation (1 -> A, 27 -> AA).
func columnLetter(n int) string {
	if n < 1 {
		return ""
	}
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('A' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}

// quoteTab quotes a sheet title for use in A1 ranges.
func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

// rowRange is the A1 range covering width cells of a single row.
func rowRange(tab string, row, width int) string {
	return fmt.Sprintf("%s!A%d:%s%d", quoteTab(tab), row, columnLetter(max(width, 1)), row)
}

func headerValues(header []string) []any {
	out := make([]any, len(header))
	for i, h := range header {
		out[i] = h
	}
	return out
}
