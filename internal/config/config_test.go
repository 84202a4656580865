package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const memoryYAML = `
server:
  port: 6000
store:
  type: memory
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(memoryYAML))
	require.NoError(t, err)

	assert.Equal(t, 6000, cfg.Server.Port)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "UTC", cfg.Server.Timezone)
	assert.Equal(t, 14, cfg.Availability.HorizonDays)
	assert.Equal(t, "09:00", cfg.Calendar.DeliveryTime)
	assert.Equal(t, "18:00", cfg.Calendar.ReturnTime)
	assert.Equal(t, "warning", cfg.Notify.Email.MinKind)
	assert.Equal(t, "0 5 0 * * *", cfg.Scheduler.ReconcileCapacity)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "camrent", cfg.Redis.KeyPrefix)
	assert.Equal(t, ":6000", cfg.GetServerAddress())
	assert.Equal(t, ":8080", cfg.GetHTTPAddress())
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("STORE_TYPE", "postgres")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USER", "camrent")
	t.Setenv("DB_NAME", "camrent")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STAFF_EMAILS", "a@camrent.test, b@camrent.test,")

	cfg, err := Parse([]byte(memoryYAML))
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Type)
	assert.Equal(t, "postgres://camrent:@db.internal:6543/camrent?sslmode=disable", cfg.GetDatabaseConnectionString())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"a@camrent.test", "b@camrent.test"}, cfg.Notify.Email.Recipients)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"postgres without host", "store:\n  type: postgres\n"},
		{"unknown store", "store:\n  type: sqlite\n"},
		{"bad timezone", "store:\n  type: memory\nserver:\n  timezone: Mars/Olympus\n"},
		{"port clash", "store:\n  type: memory\nserver:\n  port: 8080\n"},
		{"negative horizon", "store:\n  type: memory\navailability:\n  horizon_days: -1\n"},
		{"email without recipients", "store:\n  type: memory\nnotify:\n  email:\n    api_key: k\n    from_email: x@y.z\n"},
		{"bad kind", "store:\n  type: memory\nnotify:\n  push:\n    min_kind: loud\n"},
		{"not yaml", "store: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(memoryYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Type)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
