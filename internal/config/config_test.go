package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic/internal/schedule"
)

func TestParse_DefaultsAndEnv(t *testing.T) {
	t.Setenv("CLINIC_REDIS_PASSWORD", "s3cret")

	cfg, err := Parse([]byte(`
redis:
  address: "localhost:6379"
  password: "${CLINIC_REDIS_PASSWORD}"
availability:
  default_time_zone: "Europe/Moscow"
  default_buffer_minutes: 10
  cache_ttl_seconds: 60
`))
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Redis.Password)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data/clinic.db", cfg.Database.Path)
	assert.Equal(t, 730, cfg.Availability.MaxRangeDays)
	assert.Equal(t, 10, cfg.Availability.DefaultBufferMinutes)
	assert.Equal(t, time.Minute, cfg.CacheTTL())
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout())
	assert.Equal(t, 24*time.Hour, cfg.Backup.Interval())
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"bad port", "server:\n  port: 70000\n", "server.port"},
		{"bad zone", "availability:\n  default_time_zone: Nowhere/Land\n", "default_time_zone"},
		{"negative buffer", "availability:\n  default_buffer_minutes: -1\n", "default_buffer_minutes"},
		{"negative retention", "backup:\n  retention_days: -2\n", "retention_days"},
		{"broken yaml", "server: [", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_CreatesDatabaseDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	dbPath := filepath.Join(dir, "nested", "clinic.db")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  path: "+dbPath+"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, dbPath, cfg.Database.Path)
	assert.DirExists(t, filepath.Join(dir, "nested"))
}

func TestParseSeed(t *testing.T) {
	seed, err := ParseSeed([]byte(`
defaults:
  time_zone: "Europe/Berlin"
  buffer_minutes: 10
professionals:
  - id: "6f1c2a8e-3b7d-4c35-9a52-1f0e8d9b7a11"
    name: "Dr. Weber"
    rules:
      - day_of_week: 1
        intervals:
          - { start: "09:00", end: "12:00" }
          - { start: "13:00", end: "17:00" }
    exceptions:
      - start_date: "2025-08-01"
        end_date: "2025-08-07"
        reason: "Summer vacation"
        is_recurring: true
  - id: "0b9f7d44-52a1-4e0c-8d3e-2a6b5c4d3e21"
    time_zone: "UTC"
    buffer_minutes: 5
`))
	require.NoError(t, err)
	require.Len(t, seed.Professionals, 2)

	weber := seed.Professionals[0]
	assert.Equal(t, "Europe/Berlin", weber.TimeZone)
	require.NotNil(t, weber.BufferMinutes)
	assert.Equal(t, 10, *weber.BufferMinutes)
	require.Len(t, weber.Rules, 1)
	assert.Equal(t, time.Monday, weber.Rules[0].Day)
	assert.Equal(t, schedule.NewClock(13, 0), weber.Rules[0].Intervals[1].Start)
	require.Len(t, weber.Exceptions, 1)
	assert.Equal(t, civil.Date{Year: 2025, Month: time.August, Day: 1}, weber.Exceptions[0].Start)
	assert.True(t, weber.Exceptions[0].RecurringAnnually)

	doc, err := weber.Document()
	require.NoError(t, err)
	assert.Len(t, doc.Rules, 2)
	assert.Equal(t, schedule.Config{TimeZone: "Europe/Berlin", BufferMinutes: 10}, doc.Config)

	assert.Equal(t, "UTC", seed.Professionals[1].TimeZone)
	assert.NotNil(t, seed.Find("0b9f7d44-52a1-4e0c-8d3e-2a6b5c4d3e21"))
	assert.Nil(t, seed.Find("missing"))
}

func TestParseSeed_ExplicitZeroBuffer(t *testing.T) {
	seed, err := ParseSeed([]byte(`
defaults:
  buffer_minutes: 10
professionals:
  - id: "6f1c2a8e-3b7d-4c35-9a52-1f0e8d9b7a11"
    buffer_minutes: 0
  - id: "0b9f7d44-52a1-4e0c-8d3e-2a6b5c4d3e21"
`))
	require.NoError(t, err)
	require.Len(t, seed.Professionals, 2)

	assert.Equal(t, 0, seed.Professionals[0].Config().BufferMinutes)
	assert.Equal(t, 10, seed.Professionals[1].Config().BufferMinutes)
}

func TestParseSeed_StructuralErrors(t *testing.T) {
	_, err := ParseSeed([]byte("professionals:\n  - id: not-a-uuid\n"))
	assert.ErrorContains(t, err, "professionals[0]: invalid id")

	_, err = ParseSeed([]byte(`
professionals:
  - id: "6f1c2a8e-3b7d-4c35-9a52-1f0e8d9b7a11"
  - id: "6f1c2a8e-3b7d-4c35-9a52-1f0e8d9b7a11"
`))
	assert.ErrorContains(t, err, "professionals[1]: duplicate id")
}
