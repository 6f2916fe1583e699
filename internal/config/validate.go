package config

import (
	"fmt"
	"strings"
	"time"

	"countdown/internal/logging"
)

const (
	minTickInterval = 10 * time.Millisecond
	maxTickInterval = time.Minute
)

// Normalize fills empty values, trims lists and rejects invalid settings.
func Normalize(cfg Settings) (Settings, error) {
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendFile
	}
	switch cfg.Storage.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return cfg, fmt.Errorf("storage.backend must be one of file, sqlite, memory (got %q)", cfg.Storage.Backend)
	}
	if strings.TrimSpace(cfg.Storage.Path) == "" {
		cfg.Storage.Path = DefaultDataDir()
	}
	cfg.Storage.Path = ExpandHome(cfg.Storage.Path)

	if cfg.Scheduler.TickInterval == 0 {
		cfg.Scheduler.TickInterval = DefaultTickInterval
	}
	if cfg.Scheduler.TickInterval < minTickInterval || cfg.Scheduler.TickInterval > maxTickInterval {
		return cfg, fmt.Errorf("scheduler.tick_interval must be between %s and %s", minTickInterval, maxTickInterval)
	}

	seen := make(map[string]bool, len(cfg.Categories))
	categories := make([]string, 0, len(cfg.Categories))
	for _, c := range cfg.Categories {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		categories = append(categories, c)
	}
	if len(categories) == 0 {
		return cfg, fmt.Errorf("categories must name at least one category")
	}
	cfg.Categories = categories

	if _, _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return cfg, fmt.Errorf("log_level: %w", err)
	}
	if strings.TrimSpace(cfg.Web.Addr) == "" {
		cfg.Web.Addr = DefaultAddr
	}
	return cfg, nil
}
