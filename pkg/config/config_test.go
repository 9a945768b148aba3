package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
search:
  departure_dates: ["2026-03-08", "2026-03-09"]
  return_dates: ["2026-03-15", "2026-03-16"]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "BUE", cfg.Search.Origin)
	assert.Equal(t, "FLN", cfg.Search.Destination)
	assert.Equal(t, 2, cfg.Search.Passengers)
	assert.Equal(t, "ARS", cfg.Search.Currency)
	assert.Len(t, cfg.Search.Pairs(), 4)
	assert.Equal(t, "BUE → FLN", cfg.Search.Route())

	assert.Equal(t, 600000.0, cfg.Thresholds.GreenMax)
	assert.Equal(t, 800000.0, cfg.Thresholds.YellowMax)
	assert.Equal(t, 1000000.0, cfg.Thresholds.CeilingMax)

	assert.Equal(t, 1500*time.Millisecond, cfg.Poller.Delay)
	assert.Equal(t, time.Hour, cfg.Alerts.Cooldown)
	assert.Equal(t, "@every 60m", cfg.Schedule.Prices)
	assert.Equal(t, "sqlite", cfg.History.Backend)
	assert.Equal(t, 500, cfg.History.Retention)
	assert.Equal(t, "https://flybondi.com/graphql", cfg.Source.URL)
	assert.Len(t, cfg.Flags.Endpoints, 3)
	assert.Equal(t, "farepull.anomalies", cfg.Kafka.Topics.Anomalies)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML+`
thresholds:
  green_max: 100
  yellow_max: 200
  ceiling_max: 300
poller:
  delay: 3s
flags:
  enabled: false
`))
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Poller.Delay)
	assert.False(t, cfg.Flags.Enabled)
	th := cfg.Thresholds.Model()
	assert.Equal(t, "100", th.GreenMax.String())
	assert.Equal(t, "300", th.CeilingMax.String())
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]string{
		"thresholds out of order": minimalYAML + "thresholds: {green_max: 900, yellow_max: 800, ceiling_max: 1000}\n",
		"no return after departure": `
search:
  departure_dates: ["2026-03-20"]
  return_dates: ["2026-03-15"]
`,
		"malformed date": `
search:
  departure_dates: ["2026-02-30"]
  return_dates: ["2026-03-15"]
`,
		"same origin and destination": minimalYAML + "  origin: FLN\n",
		"telegram token without chat":  minimalYAML + "telegram: {token: abc}\n",
		"kafka without brokers":        minimalYAML + "kafka: {enabled: true}\n",
		"clickhouse without host":      minimalYAML + "clickhouse: {enabled: true}\n",
		"unknown history backend":      minimalYAML + "history: {backend: postgres}\n",
		"zero passengers":              minimalYAML + "  passengers: 0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadWithEnv_Overrides(t *testing.T) {
	t.Setenv("FAREPULL_API_KEY", "secret")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("HISTORY_BACKEND", "Redis")
	t.Setenv("DEPARTURE_DATES", "2026-03-10")
	t.Setenv("RETURN_DATES", "2026-03-17,2026-03-18,2026-03-17")

	cfg, err := LoadWithEnv(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Source.APIKey)
	assert.Equal(t, "tok", cfg.Telegram.Token)
	assert.Equal(t, "42", cfg.Telegram.ChatID)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "redis", cfg.History.Backend)
	assert.Equal(t, []string{"2026-03-10"}, cfg.Search.DepartureDates)
	assert.Equal(t, []string{"2026-03-17", "2026-03-18"}, cfg.Search.ReturnDates)
	assert.Len(t, cfg.Search.Pairs(), 2)
}

func TestLoadWithEnv_BadDateList(t *testing.T) {
	t.Setenv("DEPARTURE_DATES", "2026-03-10,soon")

	_, err := LoadWithEnv(writeConfig(t, minimalYAML))
	assert.ErrorContains(t, err, "DEPARTURE_DATES")
}
