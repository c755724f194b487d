package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]string{
		{StatusPending, StatusProcessing},
		{StatusProcessing, StatusCompleted},
		{StatusProcessing, StatusPending},
		{StatusProcessing, StatusFailed},
	}
	for _, tr := range allowed {
		assert.True(t, CanTransition(tr[0], tr[1]), "%s -> %s should be allowed", tr[0], tr[1])
	}

	denied := [][2]string{
		{StatusPending, StatusCompleted},
		{StatusPending, StatusFailed},
		{StatusCompleted, StatusPending},
		{StatusCompleted, StatusProcessing},
		{StatusFailed, StatusPending},
		{StatusFailed, StatusProcessing},
		{StatusProcessing, StatusProcessing},
	}
	for _, tr := range denied {
		assert.False(t, CanTransition(tr[0], tr[1]), "%s -> %s should be denied", tr[0], tr[1])
	}
}

func TestValidateTransition(t *testing.T) {
	assert.NoError(t, ValidateTransition(StatusPending, StatusProcessing))
	err := ValidateTransition(StatusCompleted, StatusPending)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "illegal sync queue transition")
}

func TestIsSyncedModel(t *testing.T) {
	assert.True(t, IsSyncedModel(ModelRequest))
	assert.True(t, IsSyncedModel(ModelCost))
	assert.True(t, IsSyncedModel(ModelRevenue))
	assert.False(t, IsSyncedModel("supplier"))
	assert.False(t, IsSyncedModel(""))
}

func TestIsSyncAction(t *testing.T) {
	assert.True(t, IsSyncAction(ActionCreate))
	assert.True(t, IsSyncAction(ActionUpdate))
	assert.True(t, IsSyncAction(ActionDelete))
	assert.False(t, IsSyncAction("merge"))
}
