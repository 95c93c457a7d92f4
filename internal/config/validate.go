package config

import (
	"fmt"
	"strings"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically. Any error
// here is fatal at startup.
func (c *Config) Validate() error {
	if err := c.Database.validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Cache.validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Dedup.validate(); err != nil {
		return fmt.Errorf("dedup: %w", err)
	}
	return nil
}

func (c *DatabaseConfig) validate() error {
	if c.MaxConns < 1 || c.MaxConns > 100 {
		return fmt.Errorf("max_conns must be in 1..100 (got %d)", c.MaxConns)
	}
	if c.MinConns < 0 || c.MinConns > c.MaxConns {
		return fmt.Errorf("min_conns must be in 0..max_conns (got %d)", c.MinConns)
	}
	if c.AcquireTimeout <= 0 {
		return fmt.Errorf("acquire_timeout must be positive (got %v)", c.AcquireTimeout)
	}
	if c.HealthCheckPeriod <= 0 {
		return fmt.Errorf("health_check_period must be positive (got %v)", c.HealthCheckPeriod)
	}
	return nil
}

func (c *CacheConfig) validate() error {
	switch strings.ToLower(c.Backend) {
	case "memory", "redis":
	default:
		return fmt.Errorf("backend must be memory or redis (got %q)", c.Backend)
	}
	if c.UserTTL <= 0 || c.RequestTTL <= 0 {
		return fmt.Errorf("ttls must be positive (got user=%v request=%v)", c.UserTTL, c.RequestTTL)
	}
	if c.MaxEntries < 1 {
		return fmt.Errorf("max_entries must be at least 1 (got %d)", c.MaxEntries)
	}
	return nil
}

func (c *DedupConfig) validate() error {
	if c.LinkThreshold <= 0 || c.LinkThreshold > 1 {
		return fmt.Errorf("link_threshold must be in (0,1] (got %v)", c.LinkThreshold)
	}
	if c.AutoConfirmThreshold <= 0 || c.AutoConfirmThreshold > 1 {
		return fmt.Errorf("auto_confirm_threshold must be in (0,1] (got %v)", c.AutoConfirmThreshold)
	}
	if c.LinkThreshold > c.AutoConfirmThreshold {
		return fmt.Errorf("link_threshold %v exceeds auto_confirm_threshold %v",
			c.LinkThreshold, c.AutoConfirmThreshold)
	}
	if c.MaxCandidates < 1 {
		return fmt.Errorf("max_candidates must be at least 1 (got %d)", c.MaxCandidates)
	}
	return nil
}
