package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"tourdesk/internal/config"
)

const (
	// PermSyncRun allows triggering a write-back pass.
	PermSyncRun = "sync:run"
	// PermSyncAdmin allows detailed status, pull-sync and exports.
	PermSyncAdmin = "sync:admin"

	cronClientName = "cron"
)

var errUnauthenticated = errors.New("missing or invalid credentials")

// Identity is the authenticated caller of a sync endpoint.
type Identity struct {
	Name        string
	Permissions []string
}

// Allowed reports whether the identity holds a permission. An empty
// permission list means allow-all (an administrator key).
func (id *Identity) Allowed(perm string) bool {
	if len(id.Permissions) == 0 {
		return true
	}
	for _, p := range id.Permissions {
		if strings.TrimSpace(p) == perm {
			return true
		}
	}
	return false
}

// Auth resolves callers from either a configured API key header or the
// scheduler's bearer secret.
type Auth struct {
	cfg        config.APIAuthConfig
	cronSecret string

	clientsByAPIKey map[string]config.APIClientKey
}

func NewAuth(cfg config.APIAuthConfig, cronSecret string) *Auth {
	m := make(map[string]config.APIClientKey, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		m[k.Key] = k
	}
	return &Auth{cfg: cfg, cronSecret: cronSecret, clientsByAPIKey: m}
}

// Authenticate returns the caller's identity or errUnauthenticated.
// The bearer secret is compared in constant time so response timing does
// not leak how many leading bytes matched.
func (a *Auth) Authenticate(r *http.Request) (*Identity, error) {
	header := a.cfg.HeaderAPIKey
	if header == "" {
		header = "X-Api-Key"
	}

	if apiKey := strings.TrimSpace(r.Header.Get(header)); apiKey != "" {
		client, ok := a.clientsByAPIKey[apiKey]
		if !ok {
			return nil, errUnauthenticated
		}
		return &Identity{Name: client.Name, Permissions: client.Permissions}, nil
	}

	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if token, ok := strings.CutPrefix(authz, "Bearer "); ok {
		token = strings.TrimSpace(token)
		if a.cronSecret != "" &&
			subtle.ConstantTimeCompare([]byte(token), []byte(a.cronSecret)) == 1 {
			// The scheduler may only trigger runs, nothing else.
			return &Identity{Name: cronClientName, Permissions: []string{PermSyncRun}}, nil
		}
		return nil, errUnauthenticated
	}

	return nil, errUnauthenticated
}
