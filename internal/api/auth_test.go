package api

import (
	"net/http/httptest"
	"testing"

	"tourdesk/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuthConfig() config.APIAuthConfig {
	return config.APIAuthConfig{
		HeaderAPIKey: "X-Api-Key",
		APIKeys: []config.APIClientKey{
			{Key: "admin-key", Name: "back-office"},
			{Key: "ops-key", Name: "ops", Permissions: []string{PermSyncRun}},
			{Key: "audit-key", Name: "audit", Permissions: []string{PermSyncAdmin}},
		},
	}
}

func TestAuthenticateAPIKey(t *testing.T) {
	auth := NewAuth(testAuthConfig(), "cron-secret")

	r := httptest.NewRequest("POST", "/api/v1/sync/run", nil)
	r.Header.Set("X-Api-Key", "ops-key")
	identity, err := auth.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, "ops", identity.Name)
	assert.True(t, identity.Allowed(PermSyncRun))
	assert.False(t, identity.Allowed(PermSyncAdmin))

	r.Header.Set("X-Api-Key", "stolen-key")
	_, err = auth.Authenticate(r)
	assert.ErrorIs(t, err, errUnauthenticated)
}

func TestAuthenticateBearerSecret(t *testing.T) {
	auth := NewAuth(testAuthConfig(), "cron-secret")

	r := httptest.NewRequest("POST", "/api/v1/sync/run", nil)
	r.Header.Set("Authorization", "Bearer cron-secret")
	identity, err := auth.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, "cron", identity.Name)
	// The scheduler can trigger runs but nothing else.
	assert.True(t, identity.Allowed(PermSyncRun))
	assert.False(t, identity.Allowed(PermSyncAdmin))

	// Wrong secrets fail regardless of length.
	for _, token := range []string{"cron", "cron-secret-but-longer", "x"} {
		r.Header.Set("Authorization", "Bearer "+token)
		_, err = auth.Authenticate(r)
		assert.ErrorIs(t, err, errUnauthenticated, "token %q", token)
	}
}

func TestAuthenticateRejectsMissingCredentials(t *testing.T) {
	auth := NewAuth(testAuthConfig(), "cron-secret")

	r := httptest.NewRequest("GET", "/api/v1/sync/status", nil)
	_, err := auth.Authenticate(r)
	assert.ErrorIs(t, err, errUnauthenticated)

	// An empty configured secret never matches any bearer token.
	noCron := NewAuth(testAuthConfig(), "")
	r.Header.Set("Authorization", "Bearer ")
	_, err = noCron.Authenticate(r)
	assert.ErrorIs(t, err, errUnauthenticated)
}

func TestIdentityAllowAllWhenNoPermissions(t *testing.T) {
	admin := &Identity{Name: "back-office"}
	assert.True(t, admin.Allowed(PermSyncRun))
	assert.True(t, admin.Allowed(PermSyncAdmin))

	limited := &Identity{Name: "ops", Permissions: []string{" sync:run "}}
	assert.True(t, limited.Allowed(PermSyncRun), "permissions are trimmed")
	assert.False(t, limited.Allowed(PermSyncAdmin))
}
