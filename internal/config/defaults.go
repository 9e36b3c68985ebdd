package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultAPITimeout         = 30 * time.Second
	DefaultMaxRetries         = 3
	DefaultFeedBufferSize     = 4096
	DefaultWriteTimeout       = 10 * time.Second
	DefaultPingTimeout        = 90 * time.Second
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultLocale             = "en"
	DefaultMaxInactivity      = 20 * time.Second
	DefaultMaxRecoveryExec    = 6 * time.Hour
	DefaultCheckInterval      = 3 * time.Second
	DefaultRetryInterval      = 30 * time.Second
	DefaultMaxAfterAge        = 72 * time.Hour
	DefaultRefreshWarmup      = 5 * time.Second
	DefaultRefreshPeriod      = 6 * time.Hour
	DefaultBatchSize          = 1000
	DefaultFlushInterval      = 1 * time.Second
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultMetricsPort        = 9090
	DefaultMetricsPath        = "/metrics"
)

func (c *FeedConfig) applyDefaults() {
	// API defaults
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}

	// Feed defaults
	if c.Feed.BufferSize == 0 {
		c.Feed.BufferSize = DefaultFeedBufferSize
	}
	if c.Feed.WriteTimeout == 0 {
		c.Feed.WriteTimeout = DefaultWriteTimeout
	}
	if c.Feed.PingTimeout == 0 {
		c.Feed.PingTimeout = DefaultPingTimeout
	}
	if c.Feed.ReconnectBaseDelay == 0 {
		c.Feed.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Feed.ReconnectMaxDelay == 0 {
		c.Feed.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}

	// Locale defaults
	if c.Locales.Default == "" {
		c.Locales.Default = DefaultLocale
	}
	if len(c.Locales.Preload) == 0 {
		c.Locales.Preload = []string{c.Locales.Default}
	}

	// Producer defaults
	for i := range c.Producers {
		if c.Producers[i].MaxInactivity == 0 {
			c.Producers[i].MaxInactivity = DefaultMaxInactivity
		}
		if c.Producers[i].MaxRecoveryExecution == 0 {
			c.Producers[i].MaxRecoveryExecution = DefaultMaxRecoveryExec
		}
	}

	// Recovery defaults
	if c.Recovery.CheckInterval == 0 {
		c.Recovery.CheckInterval = DefaultCheckInterval
	}
	if c.Recovery.RetryInterval == 0 {
		c.Recovery.RetryInterval = DefaultRetryInterval
	}
	if c.Recovery.MaxAfterAge == 0 {
		c.Recovery.MaxAfterAge = DefaultMaxAfterAge
	}

	// Refresh defaults
	if c.Refresh.Warmup == 0 {
		c.Refresh.Warmup = DefaultRefreshWarmup
	}
	if c.Refresh.Period == 0 {
		c.Refresh.Period = DefaultRefreshPeriod
	}

	// Journal defaults
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultFlushInterval
	}
	if c.Journal.Enabled {
		applyDBDefaults(&c.Database.Postgres)
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
