package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Validate checks ranges and enumerations. Redis and worker settings are only
// checked when a Redis address is configured.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'text' or 'json', got %q", c.Log.Format)
	}

	// Wiki
	u, err := url.Parse(c.Wiki.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("wiki.api_url must be an absolute URL, got %q", c.Wiki.APIURL)
	}
	if c.Wiki.Timeout <= 0 {
		return errors.New("wiki.timeout must be positive")
	}

	// Selector
	if len(c.Selector.SeedCategories) == 0 {
		return errors.New("selector.seed_categories must contain at least one category")
	}
	if c.Selector.DescentDepth < 0 {
		return errors.New("selector.descent_depth must not be negative")
	}
	if c.Selector.SubcategoryLimit <= 0 || c.Selector.SubcategoryLimit > 500 {
		return fmt.Errorf("selector.subcategory_limit must be in [1,500], got %d", c.Selector.SubcategoryLimit)
	}
	if c.Selector.PageLimit <= 0 || c.Selector.PageLimit > 500 {
		return fmt.Errorf("selector.page_limit must be in [1,500], got %d", c.Selector.PageLimit)
	}
	if c.Selector.EmptyFilterPolicy != PolicyKeep && c.Selector.EmptyFilterPolicy != PolicyUnfiltered {
		return fmt.Errorf("selector.empty_filter_policy must be '%s' or '%s', got %q", PolicyKeep, PolicyUnfiltered, c.Selector.EmptyFilterPolicy)
	}

	// Fetcher
	if c.Fetcher.MaxRetries < 0 {
		return errors.New("fetcher.max_retries must not be negative")
	}
	if c.Fetcher.Backoff < 0 {
		return errors.New("fetcher.backoff must not be negative")
	}
	if c.Fetcher.BackoffStrategy != BackoffFixed && c.Fetcher.BackoffStrategy != BackoffExponential {
		return fmt.Errorf("fetcher.backoff_strategy must be '%s' or '%s', got %q", BackoffFixed, BackoffExponential, c.Fetcher.BackoffStrategy)
	}
	if c.Fetcher.FallbackTopic == "" {
		return errors.New("fetcher.fallback_topic is required")
	}

	// Database
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be 'sqlite' or 'postgres', got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}

	// Worker (only meaningful with Redis)
	if c.Redis.Address != "" {
		if c.Worker.Concurrency <= 0 {
			return errors.New("worker.concurrency must be a positive integer")
		}
		if len(c.Worker.Queues) == 0 {
			return errors.New("worker.queues must define at least one queue")
		}
		for name, priority := range c.Worker.Queues {
			if name == "" {
				return errors.New("worker.queues contains an empty queue name")
			}
			if priority <= 0 {
				return fmt.Errorf("worker.queues priority for queue '%s' must be positive", name)
			}
		}
	}
	if c.Worker.Schedule != "" {
		if _, err := cron.ParseStandard(c.Worker.Schedule); err != nil {
			return fmt.Errorf("worker.schedule %q is not a valid cron spec: %w", c.Worker.Schedule, err)
		}
	}

	return nil
}
