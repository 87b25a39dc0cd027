package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"rentdesk/internal/amqp"
	"rentdesk/internal/core"
	"rentdesk/internal/services"
	"rentdesk/internal/sheets/memory"
	"rentdesk/internal/storage"
)

type capture struct{ events []*amqp.RecordEvent }

func (c *capture) PublishRecordEvent(_ context.Context, e *amqp.RecordEvent) error {
	c.events = append(c.events, e)
	return nil
}

func setup(t *testing.T) (*services.Service, *capture, *memory.Store, *SyncWorker) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "worker.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	pub := &capture{}
	svc := services.New(repo, pub)
	mirror := memory.New()
	cfg := services.DefaultSyncProcessorConfig()
	cfg.PollInterval = time.Hour
	w := NewSyncWorker(services.NewSyncProcessor(repo, svc, mirror, cfg))
	return svc, pub, mirror, w
}

func TestHandleRecordEvent(t *testing.T) {
	svc, pub, mirror, w := setup(t)
	ctx := context.Background()

	v, err := svc.CreateVehicle(ctx, core.Vehicle{Make: "Nissan", Model: "Almera", VehicleRegNum: "AS-1"})
	if err != nil {
		t.Fatalf("CreateVehicle: %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("got %d events, want 1", len(pub.events))
	}

	// round trip through the wire format like the consumer does
	body, _ := pub.events[0].ToJSON()
	ev, err := amqp.RecordEventFromJSON(body)
	if err != nil {
		t.Fatalf("RecordEventFromJSON: %v", err)
	}
	if err := w.HandleRecordEvent(ctx, ev); err != nil {
		t.Fatalf("HandleRecordEvent: %v", err)
	}

	rows := mirror.Rows(core.ResourceVehicles)
	if len(rows) != 1 || rows[0][0] != v.ID {
		t.Fatalf("mirror rows = %v, want one row for %s", rows, v.ID)
	}
}

func TestHandleRecordEvent_NoQueueID(t *testing.T) {
	_, _, mirror, w := setup(t)

	ev := amqp.NewRecordEvent(0, core.ResourceDrivers, "d-1", amqp.ActionCreated)
	if err := w.HandleRecordEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleRecordEvent: %v", err)
	}
	if rows := mirror.Rows(core.ResourceDrivers); len(rows) != 0 {
		t.Errorf("nothing should be mirrored, got %v", rows)
	}
}

func TestStartupSyncCheck(t *testing.T) {
	svc, _, mirror, w := setup(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		if _, err := svc.CreateApartment(ctx, core.Apartment{Title: "Unit", Location: "Accra"}); err != nil {
			t.Fatalf("CreateApartment: %v", err)
		}
	}

	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("StartupSyncCheck: %v", err)
	}
	if got := len(mirror.Rows(core.ResourceApartments)); got != 15 {
		t.Errorf("mirrored %d apartments, want 15", got)
	}
}
