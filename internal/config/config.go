package config

import "time"

// Config is the root configuration for a parkwatch instance.
type Config struct {
	Instance  InstanceConfig  `yaml:"instance"`
	API       APIConfig       `yaml:"api"`
	Stream    StreamConfig    `yaml:"stream"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Gate      GateConfig      `yaml:"gate"`
	Audit     AuditConfig     `yaml:"audit"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Poller    PollerConfig    `yaml:"poller"`
	Status    StatusConfig    `yaml:"status"`
}

// InstanceConfig identifies this client.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds request/response API settings.
type APIConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Token      string        `yaml:"token"` // Bearer token issued by the login flow
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// StreamConfig holds event-stream transport settings.
type StreamConfig struct {
	URL              string        `yaml:"url"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval"`
	PingTimeout      time.Duration `yaml:"ping_timeout"`
	BufferSize       int           `yaml:"buffer_size"`
}

// ReconnectConfig holds the reconnection backoff policy.
type ReconnectConfig struct {
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// GateConfig configures the gate terminal surface.
type GateConfig struct {
	ID string `yaml:"id"`
}

// AuditConfig configures the admin audit-log surface.
type AuditConfig struct {
	Capacity int `yaml:"capacity"`
}

// SnapshotConfig selects the durable offline snapshot backend.
type SnapshotConfig struct {
	Backend  string      `yaml:"backend"` // "file", "memory", "redis", "postgres"
	Dir      string      `yaml:"dir"`
	Redis    RedisConfig `yaml:"redis"`
	Postgres DBConfig    `yaml:"postgres"`
}

// RedisConfig holds a Redis connection for the redis snapshot backend.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// PollerConfig holds read-model refresh settings.
type PollerConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
}

// StatusConfig holds the status HTTP API settings.
type StatusConfig struct {
	Port int `yaml:"port"`
}
