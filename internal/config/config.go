// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load layers a YAML file and VIVARAN_* environment variables on top.
// - Errors returned from Load wrap ErrLoadConfig or ErrInvalidConfig.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DatabasePath is the SQLite file backing the realtime database.
	// ":memory:" keeps everything in process.
	DatabasePath string `koanf:"database_path"`

	// StorageDir holds per-browser local storage files. Empty keeps them in memory.
	StorageDir string `koanf:"storage_dir"`

	// TokenSecret signs ID tokens. Empty means a random per-process secret.
	TokenSecret string `koanf:"token_secret"`

	// TokenTTLSeconds bounds how long a sign-in stays valid.
	TokenTTLSeconds int `koanf:"token_ttl_seconds"`

	// SessionIdleMinutes evicts browser sessions that have not been seen for this long.
	SessionIdleMinutes int `koanf:"session_idle_minutes"`

	// ChangeQueueSize bounds pending change notifications in the realtime database.
	ChangeQueueSize int `koanf:"change_queue_size"`

	// EnforceDashboardRoles makes each dashboard reachable only by its own role.
	EnforceDashboardRoles bool `koanf:"enforce_dashboard_roles"`

	// SecureCookies marks the session cookie Secure.
	SecureCookies bool `koanf:"secure_cookies"`

	// SeedFile optionally points at a YAML list of investors loaded on start.
	SeedFile string `koanf:"seed_file"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":8080",
		DatabasePath:       "vivaran.db",
		StorageDir:         "data/local-storage",
		TokenTTLSeconds:    3600,
		SessionIdleMinutes: 30,
		ChangeQueueSize:    1024,
	}
}
