package config

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Producer timing bounds enforced by the upstream feed contract.
const (
	MinInactivity      = 20 * time.Second
	MaxInactivity      = 180 * time.Second
	MinRecoveryExec    = 15 * time.Minute
	MaxRecoveryExecCap = 360 * time.Minute
)

// Validate checks that all required fields are set and values are valid.
func (c *FeedConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.API.AccessToken == "" {
		return errors.New("api.access_token is required")
	}
	if c.Feed.URL == "" {
		return errors.New("feed.url is required")
	}

	if !slices.Contains(c.Locales.Preload, c.Locales.Default) {
		return fmt.Errorf("locales.preload must include the default locale %q", c.Locales.Default)
	}

	if len(c.Producers) == 0 {
		return errors.New("at least one producer is required")
	}
	seen := make(map[int]struct{}, len(c.Producers))
	for i, p := range c.Producers {
		if p.ID <= 0 {
			return fmt.Errorf("producers[%d].id must be positive", i)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("producers[%d]: duplicate id %d", i, p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.Name == "" {
			return fmt.Errorf("producers[%d].name is required", i)
		}
		if p.MaxInactivity < MinInactivity || p.MaxInactivity > MaxInactivity {
			return fmt.Errorf("producers[%d].max_inactivity must be between %v and %v, got %v",
				i, MinInactivity, MaxInactivity, p.MaxInactivity)
		}
		if p.MaxRecoveryExecution < MinRecoveryExec || p.MaxRecoveryExecution > MaxRecoveryExecCap {
			return fmt.Errorf("producers[%d].max_recovery_execution must be between %v and %v, got %v",
				i, MinRecoveryExec, MaxRecoveryExecCap, p.MaxRecoveryExecution)
		}
	}

	if c.Refresh.Warmup >= c.Refresh.Period {
		return fmt.Errorf("refresh.warmup (%v) must be shorter than refresh.period (%v)",
			c.Refresh.Warmup, c.Refresh.Period)
	}

	if c.Journal.Enabled {
		if c.Journal.BatchSize < 1 {
			return errors.New("journal.batch_size must be >= 1")
		}
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
