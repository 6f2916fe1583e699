package repository

import (
	"context"
	"errors"
	"fmt"

	"countdown/internal/codec"
	"countdown/internal/domain"
	"countdown/internal/logging"
)

const (
	// TimersKey holds the timer collection document.
	TimersKey = "timers"
	// ThemeKey holds the theme preference.
	ThemeKey = "theme"
)

// TimerRepository implements domain.TimerRepository on top of a KV store.
// This is a secondary adapter.
type TimerRepository struct {
	kv   domain.KVStore
	seed []string
}

// NewTimerRepository creates a repository. seed lists the categories of a
// fresh collection; empty means domain.DefaultCategories.
func NewTimerRepository(kv domain.KVStore, seed []string) (*TimerRepository, error) {
	if kv == nil {
		return nil, errors.New("kv store is required")
	}
	return &TimerRepository{kv: kv, seed: append([]string(nil), seed...)}, nil
}

// Load reads the collection. Missing or unreadable data yields the default
// collection; it never returns an error.
func (r *TimerRepository) Load(ctx context.Context) domain.Collection {
	raw, found, err := r.kv.Get(ctx, TimersKey)
	if err != nil {
		logging.Warnf("repository: read timers: %v, using defaults", err)
		return domain.DefaultCollection(r.seed...)
	}
	if !found || raw == "" {
		return domain.DefaultCollection(r.seed...)
	}

	c, skipped, err := codec.DecodeCollection(raw)
	if err != nil {
		logging.Warnf("repository: corrupt timer data: %v, using defaults", err)
		return domain.DefaultCollection(r.seed...)
	}
	for _, e := range skipped {
		logging.Warnf("repository: dropping timer: %v", e)
	}
	return sanitize(c)
}

// Save writes the whole collection as one document.
func (r *TimerRepository) Save(ctx context.Context, c domain.Collection) error {
	raw, err := codec.EncodeCollection(c)
	if err != nil {
		return err
	}
	if err := r.kv.Set(ctx, TimersKey, raw); err != nil {
		return fmt.Errorf("save timers: %w", err)
	}
	return nil
}

// sanitize restores the collection invariants on data read from disk.
func sanitize(c domain.Collection) domain.Collection {
	seen := make(map[string]struct{}, len(c.Timers))
	timers := make([]domain.Timer, 0, len(c.Timers))
	for _, t := range c.Timers {
		if t.ID == "" {
			logging.Warnf("repository: dropping timer %q without id", t.Name)
			continue
		}
		if _, dup := seen[t.ID]; dup {
			logging.Warnf("repository: dropping duplicate timer id %s", t.ID)
			continue
		}
		seen[t.ID] = struct{}{}

		if t.Duration < 0 {
			t.Duration = 0
		}
		if t.RemainingDuration < 0 {
			t.RemainingDuration = 0
		}
		if t.RemainingDuration > t.Duration {
			t.RemainingDuration = t.Duration
		}
		if t.Status != domain.StatusCompleted && t.Duration > 0 && t.RemainingDuration == 0 {
			logging.Warnf("repository: timer %s ran out before completion was stored, completing", t.ID)
			t.Status = domain.StatusCompleted
		}
		if t.Status == domain.StatusCompleted {
			t.RemainingDuration = 0
			if t.CompletionTime == nil {
				ct := t.UpdatedAt
				t.CompletionTime = &ct
			}
		} else {
			t.CompletionTime = nil
		}
		timers = append(timers, t)
	}

	cats := make([]string, 0, len(c.Categories))
	known := make(map[string]struct{}, len(c.Categories))
	for _, name := range c.Categories {
		if _, dup := known[name]; dup || name == "" {
			continue
		}
		known[name] = struct{}{}
		cats = append(cats, name)
	}
	return domain.Collection{Timers: timers, Categories: cats}
}
