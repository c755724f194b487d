package models

// Synced entity kinds. Closed set: the bridge refuses anything else.
const (
	ModelRequest = "request"
	ModelCost    = "cost_item"
	ModelRevenue = "revenue_item"
)

// Queue actions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Queue item statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Sync log outcomes.
const (
	LogSuccess = "success"
	LogFailed  = "failed"
)

// Request lifecycle statuses used by the back office.
const (
	RequestStatusNew       = "new"
	RequestStatusInWork    = "in_work"
	RequestStatusConfirmed = "confirmed"
	RequestStatusClosed    = "closed"
	RequestStatusCancelled = "cancelled"
)

// SyncedModels lists every entity kind the bridge knows how to push.
var SyncedModels = []string{ModelRequest, ModelCost, ModelRevenue}

// IsSyncedModel reports whether model belongs to the closed synced set.
func IsSyncedModel(model string) bool {
	for _, m := range SyncedModels {
		if m == model {
			return true
		}
	}
	return false
}

// IsSyncAction reports whether action is one of create/update/delete.
func IsSyncAction(action string) bool {
	return action == ActionCreate || action == ActionUpdate || action == ActionDelete
}
