package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
database:
  path: data/tourdesk.db
google:
  spreadsheet_id: sheet-123
sync:
  cron_secret: ${TEST_CRON_SECRET}
`

func TestLoadExpandsEnvAndAppliesDefaults(t *testing.T) {
	t.Setenv("TEST_CRON_SECRET", "s3cret")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Sync.CronSecret)
	assert.Equal(t, "data/tourdesk.db", cfg.Database.Path)

	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "X-Api-Key", cfg.API.Auth.HeaderAPIKey)
	assert.Equal(t, 25, cfg.Sync.BatchSize)
	assert.Equal(t, 4, cfg.Sync.MaxBatches)
	assert.Equal(t, 5, cfg.Sync.MaxRetries)
	assert.Equal(t, 10*time.Minute, cfg.Sync.StuckTimeout())
	assert.Equal(t, 30, cfg.Sync.RetentionDays)
	assert.Equal(t, "sync:deadletter", cfg.Sync.DeadLetterKey)
	assert.Equal(t, "Requests", cfg.Google.RequestsSheet)
	assert.Equal(t, "Costs", cfg.Google.CostsSheet)
	assert.Equal(t, "Revenues", cfg.Google.RevenuesSheet)
	assert.Equal(t, float64(1), cfg.Google.WriteRPS)
	assert.Equal(t, "exports", cfg.Exports.Path)
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("TEST_CRON_SECRET", "s3cret")

	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing database path",
			yaml:    "google:\n  spreadsheet_id: s\nsync:\n  cron_secret: x\n",
			wantErr: "database path",
		},
		{
			name:    "missing cron secret",
			yaml:    "database:\n  path: d.db\ngoogle:\n  spreadsheet_id: s\n",
			wantErr: "cron secret",
		},
		{
			name:    "missing spreadsheet id",
			yaml:    "database:\n  path: d.db\nsync:\n  cron_secret: x\n",
			wantErr: "spreadsheet id",
		},
		{
			name: "telegram enabled without token",
			yaml: minimalConfig + `
telegram:
  enabled: true
`,
			wantErr: "telegram bot token",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestLoadExplicitValuesWin(t *testing.T) {
	t.Setenv("TEST_CRON_SECRET", "s3cret")

	cfg, err := Load(writeConfig(t, minimalConfig+`
api:
  port: 9000
  auth:
    api_keys:
      - key: k1
        name: back-office
      - key: k2
        name: ops
        permissions: [sync:run]
`))
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.API.Port)
	require.Len(t, cfg.API.Auth.APIKeys, 2)
	assert.Empty(t, cfg.API.Auth.APIKeys[0].Permissions)
	assert.Equal(t, []string{"sync:run"}, cfg.API.Auth.APIKeys[1].Permissions)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
