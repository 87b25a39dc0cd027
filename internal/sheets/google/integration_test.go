//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	ports "rentdesk/internal/sheets"
)

// Integration tests require a real spreadsheet shared with the service account.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_UpsertAndDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if os.Getenv("GOOGLE_SPREADSHEET_ID") == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := NewFromEnv(ctx)
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}

	tab := "integration_" + time.Now().Format("20060102")
	id := "it-" + time.Now().Format("150405.000")
	header := []string{"_id", "name", "amount"}

	ref, err := client.UpsertRecord(ctx, tab, id, header, ports.Row{id, "first", 10.5})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	again, err := client.UpsertRecord(ctx, tab, id, header, ports.Row{id, "second", 11})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if ref != again {
		t.Errorf("upsert should reuse the row: %s vs %s", ref, again)
	}

	if err := client.DeleteRecord(ctx, tab, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := client.DeleteRecord(ctx, tab, id); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
}
