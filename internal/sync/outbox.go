package sync

import (
	"context"
	"encoding/json"

	"tourdesk/internal/database"
	"tourdesk/internal/events"
	"tourdesk/internal/models"

	"github.com/rs/zerolog"
)

// RegisterOutbox subscribes to entity-changed events and turns each one
// into a pending queue item. This is the seam the CRUD handlers use:
// they publish after committing their own write, and the bridge picks the
// item up on the next dispatcher pass.
func RegisterOutbox(bus *events.EventBus, db *database.DB, logger *zerolog.Logger) {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "sync-outbox").Logger()
	}

	bus.Subscribe(events.EventEntityChanged, func(event *events.Event) error {
		var payload events.EntityChangedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			base.Error().Err(err).Msg("decode entity changed event")
			return err
		}

		item := &models.SyncQueueItem{
			Model:    payload.Model,
			Action:   payload.Action,
			RecordID: payload.RecordID,
		}
		if err := db.EnqueueSyncItem(context.Background(), item); err != nil {
			base.Error().Err(err).
				Str("model", payload.Model).
				Str("action", payload.Action).
				Int64("record_id", payload.RecordID).
				Msg("enqueue sync item")
			return err
		}
		return nil
	})
}
