package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for homedash.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	State     StateConfig     `yaml:"state"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Lights    LightsConfig    `yaml:"lights"`
	Climate   ClimateConfig   `yaml:"climate"`
	Poller    PollerConfig    `yaml:"poller"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Agent     AgentConfig     `yaml:"agent"`
	Security  SecurityConfig  `yaml:"security"`
	Audit     AuditConfig     `yaml:"audit"`
}

// DatabaseConfig contains SQLite database settings.
// Used when state.backend is "sqlite" or the audit log is enabled.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// State backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// StateConfig selects and configures the per-user state store backend.
type StateConfig struct {
	Backend   string      `yaml:"backend"`
	KeyPrefix string      `yaml:"key_prefix"`
	Redis     RedisConfig `yaml:"redis"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains settings for the dashboard push socket.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// LightsConfig contains settings for local network lights.
type LightsConfig struct {
	// Port is the TCP command port of the bulbs.
	Port int `yaml:"port"`

	DiscoveryTimeout time.Duration `yaml:"discovery_timeout"`
	ConnectTimeout   time.Duration `yaml:"connect_timeout"`
	CommandTimeout   time.Duration `yaml:"command_timeout"`

	// Effect is "smooth" or "sudden"; Duration applies to smooth transitions.
	Effect         string        `yaml:"effect"`
	EffectDuration time.Duration `yaml:"effect_duration"`

	// DiscoverOnStart runs a discovery pass before the first poll.
	DiscoverOnStart bool `yaml:"discover_on_start"`

	// RediscoverEvery re-runs discovery every N poll cycles. 0 disables.
	RediscoverEvery int `yaml:"rediscover_every"`

	// Devices are statically known lights, keyed by address.
	Devices []LightDeviceConfig `yaml:"devices"`
}

// LightDeviceConfig names a light and places it in a room.
type LightDeviceConfig struct {
	Addr string `yaml:"addr"`
	Name string `yaml:"name"`
	Room string `yaml:"room"`
	Icon string `yaml:"icon"`
}

// ClimateConfig contains settings for climate sensor ingestion.
type ClimateConfig struct {
	// SensorTopic is the MQTT subscription for sensor readings.
	SensorTopic string        `yaml:"sensor_topic"`
	StaleAfter  time.Duration `yaml:"stale_after"`
	ComfortLow  float64       `yaml:"comfort_low"`
	ComfortHigh float64       `yaml:"comfort_high"`
}

// PollerConfig contains background polling settings.
type PollerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`

	// Users always receive telemetry, in addition to users with stored documents.
	Users []string `yaml:"users"`
}

// DashboardConfig contains dashboard composition settings.
type DashboardConfig struct {
	DefaultUser string       `yaml:"default_user"`
	Labels      LabelsConfig `yaml:"labels"`
}

// LabelsConfig holds the display strings written into telemetry-owned tile fields.
type LabelsConfig struct {
	LightSubtitle   string `yaml:"light_subtitle"`
	ClimateSubtitle string `yaml:"climate_subtitle"`
	NoData          string `yaml:"no_data"`
}

// AgentConfig contains the external AI agent endpoint.
type AgentConfig struct {
	URL     string        `yaml:"url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Enabled bool   `yaml:"enabled"`
	Secret  string `yaml:"secret"`
	// AccessTokenTTL is in minutes.
	AccessTokenTTL int `yaml:"access_token_ttl"`
}

// AuditConfig controls the audit trail of state-changing API calls.
// Entries are written to the SQLite database.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values
//  2. YAML file values
//  3. Environment variables (HOMEDASH_SECTION_KEY)
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration with environment overrides applied.
// Used when no config file exists.
func Default() *Config {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	return cfg
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/homedash.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		State: StateConfig{
			Backend:   BackendMemory,
			KeyPrefix: "user_state:name:",
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "homedash",
			},
			QoS:         1,
			TopicPrefix: "homedash",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 90,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Lights: LightsConfig{
			Port:             55443,
			DiscoveryTimeout: 5 * time.Second,
			ConnectTimeout:   2 * time.Second,
			CommandTimeout:   5 * time.Second,
			Effect:           "smooth",
			EffectDuration:   300 * time.Millisecond,
			DiscoverOnStart:  true,
		},
		Climate: ClimateConfig{
			SensorTopic: "homedash/climate/+/state",
			StaleAfter:  10 * time.Minute,
			ComfortLow:  20,
			ComfortHigh: 24,
		},
		Poller: PollerConfig{
			Enabled:  true,
			Interval: 30 * time.Second,
		},
		Dashboard: DashboardConfig{
			Labels: LabelsConfig{
				LightSubtitle:   "%d of %d on",
				ClimateSubtitle: "average home %.1f°C",
				NoData:          "No data",
			},
		},
		Agent: AgentConfig{
			URL:     "http://localhost:8000",
			Model:   "gpt-4o",
			Timeout: 60 * time.Second,
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOMEDASH_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("HOMEDASH_STATE_BACKEND"); v != "" {
		cfg.State.Backend = v
	}
	if v := os.Getenv("HOMEDASH_REDIS_ADDR"); v != "" {
		cfg.State.Redis.Addr = v
	}
	if v := os.Getenv("HOMEDASH_REDIS_PASSWORD"); v != "" {
		cfg.State.Redis.Password = v
	}
	if v := os.Getenv("HOMEDASH_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.State.Redis.DB = n
		}
	}

	if v := os.Getenv("HOMEDASH_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HOMEDASH_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HOMEDASH_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("HOMEDASH_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("HOMEDASH_API_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = n
		}
	}

	if v := os.Getenv("HOMEDASH_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// AI_AGENT_URL is honoured for compatibility with existing deployments.
	if v := os.Getenv("AI_AGENT_URL"); v != "" {
		cfg.Agent.URL = v
	}
	if v := os.Getenv("HOMEDASH_AGENT_URL"); v != "" {
		cfg.Agent.URL = v
	}

	if v := os.Getenv("HOMEDASH_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}

	if v := os.Getenv("HOMEDASH_AUDIT_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Audit.Enabled = b
		}
	}
}

// Validate checks the configuration for errors.
// All problems are collected and reported together.
func (c *Config) Validate() error {
	var errs []string

	switch c.State.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Database.Path == "" {
			errs = append(errs, "database.path is required for the sqlite state backend")
		}
	case BackendRedis:
		if c.State.Redis.Addr == "" {
			errs = append(errs, "state.redis.addr is required for the redis state backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("state.backend must be memory, sqlite or redis (got %q)", c.State.Backend))
	}
	if c.Audit.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when audit is enabled")
	}
	if c.State.KeyPrefix == "" {
		errs = append(errs, "state.key_prefix is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Lights.Port < 1 || c.Lights.Port > 65535 {
		errs = append(errs, "lights.port must be between 1 and 65535")
	}
	if c.Lights.DiscoveryTimeout <= 0 {
		errs = append(errs, "lights.discovery_timeout must be positive")
	}
	if c.Lights.Effect != "smooth" && c.Lights.Effect != "sudden" {
		errs = append(errs, "lights.effect must be smooth or sudden")
	}
	for i, d := range c.Lights.Devices {
		if d.Addr == "" {
			errs = append(errs, fmt.Sprintf("lights.devices[%d].addr is required", i))
		}
	}

	if c.Climate.ComfortLow > c.Climate.ComfortHigh {
		errs = append(errs, "climate.comfort_low must not exceed climate.comfort_high")
	}

	if c.Poller.Interval <= 0 {
		errs = append(errs, "poller.interval must be positive")
	}

	if strings.Count(c.Dashboard.Labels.LightSubtitle, "%d") != 2 {
		errs = append(errs, "dashboard.labels.light_subtitle must contain two %d verbs")
	}

	if c.Agent.URL == "" {
		errs = append(errs, "agent.url is required")
	}

	const minJWTSecretLength = 32
	if c.Security.JWT.Enabled && len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters when jwt is enabled (set HOMEDASH_JWT_SECRET)")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
