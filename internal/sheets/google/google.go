package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	ports "rentdesk/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client mirrors records into a spreadsheet, one tab per resource.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string

	// tab title -> sheet id, filled lazily
	mu       sync.Mutex
	sheetIDs map[string]int64
}

var _ ports.RecordMirror = (*Client)(nil)

// NewFromEnv creates a Sheets client from service account credentials.
// Required: GOOGLE_SPREADSHEET_ID
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetIDs:      map[string]int64{},
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ensureTab returns the sheet id of tab, creating the tab when missing.
func (c *Client) ensureTab(ctx context.Context, tab string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.sheetIDs[tab]; ok {
		return id, nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			c.sheetIDs[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	if id, ok := c.sheetIDs[tab]; ok {
		return id, nil
	}

	resp, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("add tab %s: %w", tab, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil {
		return 0, fmt.Errorf("add tab %s: empty reply", tab)
	}
	id := resp.Replies[0].AddSheet.Properties.SheetId
	c.sheetIDs[tab] = id
	slog.InfoContext(ctx, "Created mirror tab", "tab", tab, "sheet_id", id)
	return id, nil
}

func (c *Client) readIDs(ctx context.Context, tab string) ([][]any, error) {
	rng := quoteTab(tab) + "!A:A"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) UpsertRecord(ctx context.Context, tab, id string, header []string, row ports.Row) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if _, err := c.ensureTab(ctx, tab); err != nil {
		return "", err
	}

	ids, err := c.readIDs(ctx, tab)
	if err != nil {
		return "", err
	}

	if len(ids) == 0 {
		vr := &gsheet.ValueRange{Values: [][]any{headerValues(header)}}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rowRange(tab, 1, len(header)), vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return "", fmt.Errorf("write header to %s: %w", tab, err)
		}
		ids = [][]any{{"_id"}}
	}

	target := findRowByID(ids, id)
	if target == 0 {
		target = len(ids) + 1
	}
	ref := rowRange(tab, target, len(row))
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, ref, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("write %s: %w", ref, err)
	}
	return ref, nil
}

func (c *Client) DeleteRecord(ctx context.Context, tab, id string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	sheetID, err := c.ensureTab(ctx, tab)
	if err != nil {
		return err
	}
	ids, err := c.readIDs(ctx, tab)
	if err != nil {
		return err
	}
	target := findRowByID(ids, id)
	if target <= 1 {
		// Missing, or the id matched the header
		return nil
	}

	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(target - 1),
					EndIndex:   int64(target),
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("delete row %d of %s: %w", target, tab, err)
	}
	return nil
}
