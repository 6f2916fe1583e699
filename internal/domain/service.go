package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// TimerDraft holds user input for a new timer before validation.
type TimerDraft struct {
	Name       string
	Category   string
	Duration   int
	MidTrigger int
}

// CategoryGroup is a view of the timers sharing one category.
type CategoryGroup struct {
	Name      string
	Timers    []Timer
	Duration  int
	Remaining int
	Running   int
	Completed int
}

// Progress returns the elapsed share of the group's total duration in [0, 1].
func (g CategoryGroup) Progress() float64 {
	if g.Duration <= 0 {
		return 0
	}
	return float64(g.Duration-g.Remaining) / float64(g.Duration)
}

// TimerService provides pure domain logic for timers.
// This service has no side effects and no dependencies on external concerns.
type TimerService struct{}

// NewTimerService creates a new timer service.
func NewTimerService() *TimerService {
	return &TimerService{}
}

// Validate checks a draft against the known categories.
func (s *TimerService) Validate(d TimerDraft, c Collection) error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrNameRequired
	}
	if d.Duration <= 0 {
		return ErrInvalidDuration
	}
	category := strings.TrimSpace(d.Category)
	if category == "" {
		return ErrCategoryRequired
	}
	if !c.HasCategory(category) {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if d.MidTrigger < 0 || d.MidTrigger > 99 {
		return ErrInvalidMidTrigger
	}
	return nil
}

// NewTimer validates the draft and builds a timer in Created status.
func (s *TimerService) NewTimer(id string, d TimerDraft, c Collection, now time.Time) (Timer, error) {
	if err := s.Validate(d, c); err != nil {
		return Timer{}, err
	}
	return Timer{
		ID:                id,
		Name:              strings.TrimSpace(d.Name),
		Category:          strings.TrimSpace(d.Category),
		Duration:          d.Duration,
		RemainingDuration: d.Duration,
		Status:            StatusCreated,
		MidTrigger:        d.MidTrigger,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Group buckets timers by category. Known categories come first in their
// stored order, followed by any labels only found on timers.
func (s *TimerService) Group(c Collection) []CategoryGroup {
	index := make(map[string]int, len(c.Categories))
	groups := make([]CategoryGroup, 0, len(c.Categories))
	for _, name := range c.Categories {
		if _, ok := index[name]; ok {
			continue
		}
		index[name] = len(groups)
		groups = append(groups, CategoryGroup{Name: name})
	}
	for _, t := range c.Timers {
		i, ok := index[t.Category]
		if !ok {
			i = len(groups)
			index[t.Category] = i
			groups = append(groups, CategoryGroup{Name: t.Category})
		}
		g := &groups[i]
		g.Timers = append(g.Timers, t.Clone())
		g.Duration += t.Duration
		g.Remaining += t.RemainingDuration
		switch t.Status {
		case StatusRunning:
			g.Running++
		case StatusCompleted:
			g.Completed++
		}
	}
	return groups
}

// InCategory returns the timers carrying the given category.
func (s *TimerService) InCategory(c Collection, category string) []Timer {
	var out []Timer
	for _, t := range c.Timers {
		if t.Category == category {
			out = append(out, t.Clone())
		}
	}
	return out
}

// History returns completed timers, most recent completion first.
func (s *TimerService) History(c Collection) []Timer {
	var out []Timer
	for _, t := range c.Timers {
		if t.Status == StatusCompleted {
			out = append(out, t.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return completedAt(out[i]).After(completedAt(out[j]))
	})
	return out
}

func completedAt(t Timer) time.Time {
	if t.CompletionTime == nil {
		return time.Time{}
	}
	return *t.CompletionTime
}
