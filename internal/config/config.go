package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendPostgrest = "postgrest"
	BackendSQLite    = "sqlite"
)

// Config holds server settings. Environment variables (TODOMCP_*) override
// defaults; file values override both.
type Config struct {
	Port           string `yaml:"port" json:"port"`
	AllowedOrigins string `yaml:"allowed_origins" json:"allowed_origins"` // comma-separated, "*" for any

	// Owner is the fixed identity every todo belongs to in this
	// single-user deployment.
	Owner string `yaml:"owner" json:"owner"`

	// Backend selects the persistence service: postgrest or sqlite.
	Backend string `yaml:"backend" json:"backend"`

	SupabaseURL        string `yaml:"supabase_url" json:"supabase_url"`
	SupabaseServiceKey string `yaml:"supabase_service_key" json:"supabase_service_key"`
	SQLitePath         string `yaml:"sqlite_path" json:"sqlite_path"`

	// Logging configuration
	LogLevel   string `yaml:"log_level" json:"log_level"`
	LogFile    string `yaml:"log_file" json:"log_file"`
	LogConsole bool   `yaml:"log_console" json:"log_console"`
}

// DefaultConfig returns default settings with env overrides applied.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	logPath := ""
	dbPath := "todos.db"
	if home != "" {
		logPath = filepath.Join(home, ".todomcp", "logs", "todomcp.log")
		dbPath = filepath.Join(home, ".todomcp", "todos.db")
	}

	return &Config{
		Port:               getEnv("TODOMCP_PORT", "8080"),
		AllowedOrigins:     getEnv("TODOMCP_ALLOWED_ORIGINS", "*"),
		Owner:              getEnv("TODOMCP_OWNER", "default-user"),
		Backend:            getEnv("TODOMCP_BACKEND", BackendPostgrest),
		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
		SQLitePath:         getEnv("TODOMCP_SQLITE_PATH", dbPath),
		LogLevel:           getEnv("TODOMCP_LOG_LEVEL", "INFO"),
		LogFile:            getEnv("TODOMCP_LOG_FILE", logPath),
		LogConsole:         getEnv("TODOMCP_LOG_CONSOLE", "false") == "true",
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// DefaultPath returns ~/.todomcp/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".todomcp", "config.yaml"), nil
}

// Load loads config from the given path, falling back to defaults when the
// file does not exist. An empty path means the default location.
func Load(path string) (*Config, error) {
	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the selected backend is usable.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendPostgrest:
		if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
			return fmt.Errorf("postgrest backend requires SUPABASE_URL and SUPABASE_SERVICE_KEY")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite backend requires a database path")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	return nil
}

// Save writes the config to the default location.
func (c *Config) Save() error {
	path, err := DefaultPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
