package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)
	return path
}

func TestLoader_Load(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	path := writeConfig(t, `region: zaporizka-oblast
queue: "4"
scan_interval: 600
timezone: Europe/Kyiv
merge_across_midnight: true
source:
  type: mqtt
  mqtt_topic: svitlo/zaporizka-oblast/4
mqtt:
  broker:
    host: broker.local
  qos: 0
home_assistant:
  url: ws://ha.local:8123/api/websocket
  token: secret
`)

	cfg, err := NewLoader(path, logger).Load()
	require.NoError(t, err)

	assert.Equal(t, "zaporizka-oblast", cfg.Region)
	assert.Equal(t, "4", cfg.Queue)
	assert.Equal(t, 600, cfg.ScanInterval)
	assert.Equal(t, "10m0s", cfg.PollInterval().String())
	assert.True(t, cfg.MergeAcrossMidnight)
	assert.Equal(t, SourceMQTT, cfg.Source.Type)
	assert.Equal(t, "broker.local", cfg.MQTT.Broker.Host)
	assert.Equal(t, 1883, cfg.MQTT.Broker.Port, "defaults survive partial sections")
	assert.Equal(t, 0, cfg.MQTT.QoS)
	require.NotNil(t, cfg.Location())
	assert.Equal(t, "Europe/Kyiv", cfg.Location().String())
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	cfg, err := NewLoader(filepath.Join(t.TempDir(), "absent.yaml"), logger).Load()
	require.NoError(t, err)

	assert.Equal(t, "kyiv", cfg.Region)
	assert.Equal(t, "1.1", cfg.Queue)
	assert.Equal(t, 900, cfg.ScanInterval)
	assert.Equal(t, DefaultTimezone, cfg.Timezone)
	assert.Equal(t, SourceFile, cfg.Source.Type)
	assert.Equal(t, 8081, cfg.API.Port)
}

func TestLoader_EnvironmentOverrides(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	path := writeConfig(t, "region: kyiv\nqueue: \"1.1\"\n")

	t.Setenv("SVITLO_REGION", "chernivetska-oblast")
	t.Setenv("SVITLO_QUEUE", "12")
	t.Setenv("SVITLO_SCAN_INTERVAL", "1800")
	t.Setenv("SVITLO_TIMEZONE", "UTC")
	t.Setenv("SVITLO_MERGE_ACROSS_MIDNIGHT", "true")
	t.Setenv("API_PORT", "9090")

	cfg, err := NewLoader(path, logger).Load()
	require.NoError(t, err)

	assert.Equal(t, "chernivetska-oblast", cfg.Region)
	assert.Equal(t, "12", cfg.Queue)
	assert.Equal(t, 1800, cfg.ScanInterval)
	assert.Equal(t, "UTC", cfg.Location().String())
	assert.True(t, cfg.MergeAcrossMidnight)
	assert.Equal(t, 9090, cfg.API.Port)
}

func TestLoader_Invalid(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	tests := []struct {
		name    string
		content string
	}{
		{"unknown region", "region: atlantis\n"},
		{"bad queue", "region: kyiv\nqueue: \"9.9\"\n"},
		{"short interval", "scan_interval: 10\n"},
		{"bad timezone", "timezone: Mars/Olympus\n"},
		{"unknown source", "source:\n  type: carrier-pigeon\n"},
		{"mqtt without topic", "source:\n  type: mqtt\nmqtt:\n  broker:\n    host: b\n"},
		{"mqtt without broker", "source:\n  type: mqtt\n  mqtt_topic: t\n"},
		{"ha without token", "home_assistant:\n  url: ws://ha\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(writeConfig(t, tt.content), logger).Load()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := NewLoader(writeConfig(t, "region: [unclosed\n"), logger).Load()
		assert.Error(t, err)
	})

	t.Run("non numeric env", func(t *testing.T) {
		t.Setenv("SVITLO_SCAN_INTERVAL", "often")
		_, err := NewLoader(writeConfig(t, ""), logger).Load()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestSave_RoundTrip(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	path := filepath.Join(t.TempDir(), "nested", DefaultFileName)

	cfg := Default()
	cfg.Region = "lvivska-oblast"
	cfg.Queue = "3.2"
	cfg.ScanInterval = 1800
	require.NoError(t, Save(path, cfg))

	loaded, err := NewLoader(path, logger).Load()
	require.NoError(t, err)
	assert.Equal(t, "lvivska-oblast", loaded.Region)
	assert.Equal(t, "3.2", loaded.Queue)
	assert.Equal(t, 1800, loaded.ScanInterval)
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SVITLO_TEST_VALUE=from-dotenv\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("SVITLO_TEST_VALUE") })

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "from-dotenv", os.Getenv("SVITLO_TEST_VALUE"))

	assert.Error(t, LoadEnv(filepath.Join(t.TempDir(), "missing.env")))
}
