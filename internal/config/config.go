package config

import "time"

// FeedConfig is the root configuration for a feed client instance.
type FeedConfig struct {
	Instance  InstanceConfig   `yaml:"instance"`
	API       APIConfig        `yaml:"api"`
	Feed      FeedSocketConfig `yaml:"feed"`
	Locales   LocalesConfig    `yaml:"locales"`
	Producers []ProducerConfig `yaml:"producers"`
	Recovery  RecoveryConfig   `yaml:"recovery"`
	Refresh   RefreshConfig    `yaml:"refresh"`
	Journal   JournalConfig    `yaml:"journal"`
	Database  DatabaseConfig   `yaml:"database"`
	Metrics   MetricsConfig    `yaml:"metrics"`
}

// InstanceConfig identifies this client instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds REST API settings.
type APIConfig struct {
	BaseURL     string        `yaml:"base_url"`
	AccessToken string        `yaml:"access_token"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
}

// FeedSocketConfig holds websocket feed settings.
type FeedSocketConfig struct {
	URL                string        `yaml:"url"`
	BufferSize         int           `yaml:"buffer_size"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	PingTimeout        time.Duration `yaml:"ping_timeout"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
}

// LocalesConfig holds the locale set served by the caches.
type LocalesConfig struct {
	// Default is the locale used when a caller does not specify one.
	Default string `yaml:"default"`

	// Preload is the locale set fetched eagerly by the description
	// refresh. Must include Default.
	Preload []string `yaml:"preload"`
}

// ProducerConfig declares one upstream producer to monitor.
type ProducerConfig struct {
	ID      int    `yaml:"id"`
	Name    string `yaml:"name"`
	Enabled bool   `yaml:"enabled"`
	Virtual bool   `yaml:"virtual"`

	// MaxInactivity must fall in [20s, 180s].
	MaxInactivity time.Duration `yaml:"max_inactivity"`

	// MaxRecoveryExecution must fall in [15m, 360m].
	MaxRecoveryExecution time.Duration `yaml:"max_recovery_execution"`
}

// RecoveryConfig holds recovery manager settings.
type RecoveryConfig struct {
	CheckInterval time.Duration `yaml:"check_interval"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	MaxAfterAge   time.Duration `yaml:"max_after_age"`
}

// RefreshConfig holds the market/variant description refresh schedule.
type RefreshConfig struct {
	Warmup time.Duration `yaml:"warmup"`
	Period time.Duration `yaml:"period"`
}

// JournalConfig holds odds journal settings. The journal is optional;
// when disabled no database connection is made.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// DatabaseConfig holds the Postgres connection for the odds journal.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
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

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
