package sync

import (
	"context"
	"testing"

	"tourdesk/internal/events"
	"tourdesk/internal/models"
)

func TestOutboxEnqueuesOnEntityChanged(t *testing.T) {
	db := newTestDB(t)
	bus := events.NewEventBus()
	RegisterOutbox(bus, db, nil)
	ctx := context.Background()

	err := bus.PublishJSON(events.EventEntityChanged, events.EntityChangedPayload{
		Model:    models.ModelRequest,
		Action:   models.ActionUpdate,
		RecordID: 5,
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	items, err := db.ClaimPendingSyncItems(ctx, 10)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one enqueued item, got %d", len(items))
	}
	if items[0].Model != models.ModelRequest || items[0].RecordID != 5 {
		t.Fatalf("unexpected item: %+v", items[0])
	}
}

func TestOutboxIgnoresUnknownModels(t *testing.T) {
	db := newTestDB(t)
	bus := events.NewEventBus()
	RegisterOutbox(bus, db, nil)

	// The enqueue rejects the payload; nothing lands in the queue.
	_ = bus.PublishJSON(events.EventEntityChanged, events.EntityChangedPayload{
		Model:    "supplier",
		Action:   models.ActionCreate,
		RecordID: 1,
	})

	stats, err := db.QueueStats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Pending != 0 {
		t.Fatalf("unknown model must not enqueue, pending %d", stats.Pending)
	}
}
