package sync

import (
	"context"
	"encoding/json"
	"time"

	"tourdesk/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DeadLetter mirrors terminally failed queue items into a redis list so
// external tooling can inspect or replay them. Purely additive: the item
// row in sqlite stays the source of truth.
type DeadLetter struct {
	client *redis.Client
	key    string
	logger zerolog.Logger
}

type deadLetterEntry struct {
	Item     models.SyncQueueItem `json:"item"`
	Error    string               `json:"error"`
	FailedAt time.Time            `json:"failed_at"`
}

func NewDeadLetter(client *redis.Client, key string, logger *zerolog.Logger) *DeadLetter {
	if client == nil {
		return nil
	}
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "sync-deadletter").Logger()
	}
	return &DeadLetter{client: client, key: key, logger: base}
}

// Push records one terminal failure. Errors are logged, never propagated:
// a redis outage must not fail the dispatcher pass.
func (d *DeadLetter) Push(ctx context.Context, item models.SyncQueueItem, errMsg string) {
	data, err := json.Marshal(deadLetterEntry{Item: item, Error: errMsg, FailedAt: time.Now()})
	if err != nil {
		d.logger.Error().Err(err).Int64("item_id", item.ID).Msg("encode dead letter")
		return
	}
	if err := d.client.LPush(ctx, d.key, data).Err(); err != nil {
		d.logger.Error().Err(err).Int64("item_id", item.ID).Msg("push dead letter")
	}
}
