package memory

import (
	"context"
	"testing"

	ports "rentdesk/internal/sheets"
)

func TestStoreUpsertAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	header := []string{"_id", "title"}

	ref, err := s.UpsertRecord(ctx, "apartments", "a1", header, ports.Row{"a1", "Block A"})
	if err != nil || ref != "mem:apartments:2" {
		t.Fatalf("unexpected upsert: ref=%q err=%v", ref, err)
	}
	ref, err = s.UpsertRecord(ctx, "apartments", "a2", header, ports.Row{"a2", "Block B"})
	if err != nil || ref != "mem:apartments:3" {
		t.Fatalf("unexpected upsert: ref=%q err=%v", ref, err)
	}

	// updating keeps the row position
	ref, err = s.UpsertRecord(ctx, "apartments", "a1", header, ports.Row{"a1", "Block A2"})
	if err != nil || ref != "mem:apartments:2" {
		t.Fatalf("unexpected update: ref=%q err=%v", ref, err)
	}

	rows := s.Rows("apartments")
	if len(rows) != 2 || rows[0][1] != "Block A2" || rows[1][1] != "Block B" {
		t.Fatalf("unexpected rows: %v", rows)
	}
	if h := s.Header("apartments"); len(h) != 2 || h[1] != "title" {
		t.Fatalf("unexpected header: %v", h)
	}

	if err := s.DeleteRecord(ctx, "apartments", "a1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteRecord(ctx, "apartments", "a1"); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
	if err := s.DeleteRecord(ctx, "unknown", "x"); err != nil {
		t.Fatalf("delete on unknown tab should be a no-op: %v", err)
	}
	rows = s.Rows("apartments")
	if len(rows) != 1 || rows[0][0] != "a2" {
		t.Fatalf("unexpected rows after delete: %v", rows)
	}
}

func TestStoreRejectsEmptyID(t *testing.T) {
	if _, err := New().UpsertRecord(context.Background(), "tenants", "", nil, nil); err == nil {
		t.Fatal("expected error for empty id")
	}
}
