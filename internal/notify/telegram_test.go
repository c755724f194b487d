package notify

import (
	"testing"

	"tourdesk/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestFormatTerminalFailure(t *testing.T) {
	item := models.SyncQueueItem{
		ID:       42,
		Model:    models.ModelCost,
		Action:   models.ActionUpdate,
		RecordID: 17,
		Retries:  4,
	}

	text := FormatTerminalFailure(item, "update row 9 in Costs: quota exceeded")
	assert.Contains(t, text, "cost_item #17")
	assert.Contains(t, text, "(update)")
	assert.Contains(t, text, "after 5 attempts")
	assert.Contains(t, text, "quota exceeded")
}
