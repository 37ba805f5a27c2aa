package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
	_ "time/tzdata"

	"svitlo/internal/region"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Source types understood by the coordinator.
const (
	SourceFile = "file"
	SourceMQTT = "mqtt"
)

const (
	// DefaultTimezone anchors slot indices to Ukrainian civil time.
	DefaultTimezone = "Europe/Kyiv"

	// DefaultFileName is the config file looked up in the config directory.
	DefaultFileName = "config.yaml"

	defaultAPIPort       = 8081
	defaultMQTTPort      = 1883
	defaultMQTTClientID  = "svitlo"
	minScanInterval      = 60
	defaultReconnectBase = 1
	defaultReconnectMax  = 60
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the service configuration (config.yaml).
type Config struct {
	Title  string `yaml:"title,omitempty"`
	Region string `yaml:"region"`
	Queue  string `yaml:"queue"`
	// ScanInterval is the polling interval in seconds.
	ScanInterval int    `yaml:"scan_interval"`
	Timezone     string `yaml:"timezone"`
	// MergeAcrossMidnight joins a run ending at midnight with the next
	// day's run starting at midnight in the calendar view.
	MergeAcrossMidnight bool `yaml:"merge_across_midnight"`

	Source        SourceConfig        `yaml:"source"`
	HomeAssistant HomeAssistantConfig `yaml:"home_assistant"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	API           APIConfig           `yaml:"api"`

	location *time.Location
}

// SourceConfig selects where schedule snapshots come from.
type SourceConfig struct {
	Type      string `yaml:"type"`
	Path      string `yaml:"path"`
	MQTTTopic string `yaml:"mqtt_topic"`
}

// HomeAssistantConfig is used for device registry label lookups. An empty
// URL disables them.
type HomeAssistantConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// MQTTConfig configures the broker connection of the MQTT source.
type MQTTConfig struct {
	Broker struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		ClientID string `yaml:"client_id"`
		TLS      bool   `yaml:"tls"`
	} `yaml:"broker"`
	Auth struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"auth"`
	QoS       int `yaml:"qos"`
	Reconnect struct {
		// Delays in seconds.
		InitialDelay int `yaml:"initial_delay"`
		MaxDelay     int `yaml:"max_delay"`
	} `yaml:"reconnect"`
}

// APIConfig configures the HTTP API.
type APIConfig struct {
	Port int `yaml:"port"`
}

// Location returns the resolved timezone anchor. It is only valid after
// Validate succeeded.
func (c *Config) Location() *time.Location {
	return c.location
}

// PollInterval returns ScanInterval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.ScanInterval) * time.Second
}

// Default returns a configuration with every default filled in.
func Default() *Config {
	cfg := &Config{
		Region:       "kyiv",
		Queue:        region.DefaultQueue,
		ScanInterval: region.IntervalSeconds(region.DefaultIntervalLabel),
		Timezone:     DefaultTimezone,
		Source:       SourceConfig{Type: SourceFile, Path: "schedule.json"},
		API:          APIConfig{Port: defaultAPIPort},
	}
	cfg.MQTT.Broker.Port = defaultMQTTPort
	cfg.MQTT.Broker.ClientID = defaultMQTTClientID
	cfg.MQTT.QoS = 1
	cfg.MQTT.Reconnect.InitialDelay = defaultReconnectBase
	cfg.MQTT.Reconnect.MaxDelay = defaultReconnectMax
	return cfg
}

// Validate checks the configuration and resolves the timezone anchor.
func (c *Config) Validate() error {
	if err := region.ValidateQueue(c.Region, c.Queue); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.ScanInterval < minScanInterval {
		return fmt.Errorf("%w: scan_interval must be at least %d seconds, got %d",
			ErrInvalidConfig, minScanInterval, c.ScanInterval)
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("%w: timezone %q: %w", ErrInvalidConfig, c.Timezone, err)
	}
	c.location = loc

	switch c.Source.Type {
	case SourceFile:
		if c.Source.Path == "" {
			return fmt.Errorf("%w: source.path is required for the file source", ErrInvalidConfig)
		}
	case SourceMQTT:
		if c.Source.MQTTTopic == "" {
			return fmt.Errorf("%w: source.mqtt_topic is required for the mqtt source", ErrInvalidConfig)
		}
		if c.MQTT.Broker.Host == "" {
			return fmt.Errorf("%w: mqtt.broker.host is required for the mqtt source", ErrInvalidConfig)
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			return fmt.Errorf("%w: mqtt.qos must be 0, 1 or 2", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown source type %q", ErrInvalidConfig, c.Source.Type)
	}

	if c.HomeAssistant.URL != "" && c.HomeAssistant.Token == "" {
		return fmt.Errorf("%w: home_assistant.token is required when url is set", ErrInvalidConfig)
	}

	return nil
}

// LoadEnv loads .env files into the process environment. A missing file is
// reported but is not fatal for callers that rely on the real environment.
func LoadEnv(files ...string) error {
	return godotenv.Load(files...)
}

// Loader reads the configuration file and applies environment overrides.
type Loader struct {
	path   string
	logger *zap.Logger
}

// NewLoader creates a loader for the given config file path.
func NewLoader(path string, logger *zap.Logger) *Loader {
	return &Loader{
		path:   path,
		logger: logger,
	}
}

// Load reads, overrides and validates the configuration. A missing file is
// not an error: defaults and environment variables are used instead.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(l.path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", l.path, err)
		}
		l.logger.Info("Config file loaded", zap.String("path", l.path))
	case errors.Is(err, os.ErrNotExist):
		l.logger.Warn("No config file found, using defaults and environment",
			zap.String("path", l.path))
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", l.path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l.logger.Info("Configuration ready",
		zap.String("region", cfg.Region),
		zap.String("queue", cfg.Queue),
		zap.Int("scan_interval", cfg.ScanInterval),
		zap.String("timezone", cfg.Timezone),
		zap.String("source", cfg.Source.Type))
	return cfg, nil
}

// Save writes cfg to path as YAML, creating parent directories.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config dir: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides file values with environment variables.
func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, key, v)
		}
		*dst = n
		return nil
	}

	setString("SVITLO_REGION", &cfg.Region)
	setString("SVITLO_QUEUE", &cfg.Queue)
	setString("SVITLO_TIMEZONE", &cfg.Timezone)
	setString("SVITLO_SOURCE", &cfg.Source.Type)
	setString("SVITLO_SOURCE_PATH", &cfg.Source.Path)
	setString("SVITLO_SOURCE_TOPIC", &cfg.Source.MQTTTopic)
	setString("HA_URL", &cfg.HomeAssistant.URL)
	setString("HA_TOKEN", &cfg.HomeAssistant.Token)
	setString("MQTT_BROKER", &cfg.MQTT.Broker.Host)
	setString("MQTT_USERNAME", &cfg.MQTT.Auth.Username)
	setString("MQTT_PASSWORD", &cfg.MQTT.Auth.Password)

	if v, ok := os.LookupEnv("SVITLO_MERGE_ACROSS_MIDNIGHT"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: SVITLO_MERGE_ACROSS_MIDNIGHT=%q is not a boolean", ErrInvalidConfig, v)
		}
		cfg.MergeAcrossMidnight = b
	}

	for key, dst := range map[string]*int{
		"SVITLO_SCAN_INTERVAL": &cfg.ScanInterval,
		"MQTT_PORT":            &cfg.MQTT.Broker.Port,
		"API_PORT":             &cfg.API.Port,
	} {
		if err := setInt(key, dst); err != nil {
			return err
		}
	}

	return nil
}
