package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: gate-terminal-1
api:
  base_url: https://parking.example.com/api/v1
stream:
  url: wss://parking.example.com/api/v1/ws
gate:
  id: gate_1
snapshot:
  backend: redis
  redis:
    addr: redis:6379
    db: 2
`
	path := writeTempFile(t, "config.yaml", yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "gate-terminal-1" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "gate-terminal-1")
	}
	if cfg.Stream.URL != "wss://parking.example.com/api/v1/ws" {
		t.Errorf("Stream.URL = %q", cfg.Stream.URL)
	}
	if cfg.Gate.ID != "gate_1" {
		t.Errorf("Gate.ID = %q, want %q", cfg.Gate.ID, "gate_1")
	}
	if cfg.Snapshot.Redis.DB != 2 {
		t.Errorf("Snapshot.Redis.DB = %d, want 2", cfg.Snapshot.Redis.DB)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_PARKING_TOKEN", "secret123")

	yaml := `
instance:
  id: admin-console
api:
  token: ${TEST_PARKING_TOKEN}
`
	path := writeTempFile(t, "config.yaml", yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.Token != "secret123" {
		t.Errorf("API.Token = %q, want %q", cfg.API.Token, "secret123")
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("PARKWATCH_TEST_ENVFILE=from-dotenv\n"), 0644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("PARKWATCH_TEST_ENVFILE") })

	if err := LoadEnvFile(envPath); err != nil {
		t.Fatalf("LoadEnvFile failed: %v", err)
	}
	if got := os.Getenv("PARKWATCH_TEST_ENVFILE"); got != "from-dotenv" {
		t.Errorf("PARKWATCH_TEST_ENVFILE = %q, want %q", got, "from-dotenv")
	}

	if err := LoadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("LoadEnvFile(missing) = %v, want nil", err)
	}
	if err := LoadEnvFile(""); err != nil {
		t.Errorf("LoadEnvFile(\"\") = %v, want nil", err)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: gate-terminal-1
`
	path := writeTempFile(t, "config.yaml", yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.API.BaseURL != DefaultAPIBaseURL {
		t.Errorf("API.BaseURL = %q, want default %q", cfg.API.BaseURL, DefaultAPIBaseURL)
	}
	if cfg.Stream.URL != DefaultStreamURL {
		t.Errorf("Stream.URL = %q, want default %q", cfg.Stream.URL, DefaultStreamURL)
	}
	if cfg.Reconnect.BaseDelay != time.Second {
		t.Errorf("Reconnect.BaseDelay = %v, want 1s", cfg.Reconnect.BaseDelay)
	}
	if cfg.Reconnect.MaxDelay != 30*time.Second {
		t.Errorf("Reconnect.MaxDelay = %v, want 30s", cfg.Reconnect.MaxDelay)
	}
	if cfg.Reconnect.MaxAttempts != 5 {
		t.Errorf("Reconnect.MaxAttempts = %d, want 5", cfg.Reconnect.MaxAttempts)
	}
	if cfg.Audit.Capacity != 50 {
		t.Errorf("Audit.Capacity = %d, want 50", cfg.Audit.Capacity)
	}
	if cfg.Snapshot.Backend != "file" {
		t.Errorf("Snapshot.Backend = %q, want file", cfg.Snapshot.Backend)
	}
	if cfg.Snapshot.Postgres.Port != DefaultDBPort {
		t.Errorf("Snapshot.Postgres.Port = %d, want default %d", cfg.Snapshot.Postgres.Port, DefaultDBPort)
	}
	if cfg.Status.Port != DefaultStatusPort {
		t.Errorf("Status.Port = %d, want default %d", cfg.Status.Port, DefaultStatusPort)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Config{Instance: InstanceConfig{ID: "test"}}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing instance id",
			mutate:  func(c *Config) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "stream url with http scheme",
			mutate:  func(c *Config) { c.Stream.URL = "http://localhost:3000/ws" },
			wantErr: `stream.url scheme "http" not supported`,
		},
		{
			name:    "max delay below base delay",
			mutate:  func(c *Config) { c.Reconnect.MaxDelay = 500 * time.Millisecond },
			wantErr: "reconnect.max_delay (500ms) cannot be less than base_delay (1s)",
		},
		{
			name:    "negative attempts",
			mutate:  func(c *Config) { c.Reconnect.MaxAttempts = -1 },
			wantErr: "reconnect.max_attempts must be >= 1",
		},
		{
			name:    "unknown snapshot backend",
			mutate:  func(c *Config) { c.Snapshot.Backend = "sqlite" },
			wantErr: `snapshot.backend "sqlite" is not one of file, memory, redis, postgres`,
		},
		{
			name:    "postgres backend missing host",
			mutate:  func(c *Config) { c.Snapshot.Backend = "postgres" },
			wantErr: "snapshot.postgres.host is required",
		},
		{
			name: "postgres min_conns exceeds max_conns",
			mutate: func(c *Config) {
				c.Snapshot.Backend = "postgres"
				c.Snapshot.Postgres = DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 2, MinConns: 5}
			},
			wantErr: "snapshot.postgres.min_conns (5) cannot exceed max_conns (2)",
		},
		{
			name:    "status port out of range",
			mutate:  func(c *Config) { c.Status.Port = 70000 },
			wantErr: "status.port must be between 1 and 65535, got 70000",
		},
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadAndValidate_ExampleConfig(t *testing.T) {
	cfg, err := LoadAndValidate(filepath.Join("..", "..", "configs", "parkwatch.example.yaml"))
	if err != nil {
		t.Fatalf("example config does not validate: %v", err)
	}
	if cfg.Gate.ID != "gate_1" {
		t.Errorf("Gate.ID = %q, want gate_1", cfg.Gate.ID)
	}
	if cfg.Snapshot.Backend != "file" {
		t.Errorf("Snapshot.Backend = %q, want file", cfg.Snapshot.Backend)
	}
	if cfg.Reconnect.MaxAttempts != 5 || cfg.Reconnect.BaseDelay != time.Second {
		t.Errorf("Reconnect = %+v", cfg.Reconnect)
	}
}
