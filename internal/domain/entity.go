package domain

import (
	"strings"
	"time"
)

// Timer represents a single countdown owned by the timer collection.
// This is a pure domain model with no dependencies on external concerns.
type Timer struct {
	ID                string
	Name              string
	Category          string
	Duration          int // seconds
	RemainingDuration int // seconds
	Status            Status
	MidTrigger        int // percent, 0 disables
	CompletionTime    *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Status represents a timer's lifecycle state.
type Status int

const (
	StatusCreated Status = iota
	StatusRunning
	StatusPaused
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "Created"
	case StatusRunning:
		return "Running"
	case StatusPaused:
		return "Paused"
	case StatusCompleted:
		return "Completed"
	default:
		return "unknown"
	}
}

// ParseStatus converts persisted text into a Status. Older documents used
// lowercase values and "started" for running timers.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "created", "":
		return StatusCreated, true
	case "running", "started":
		return StatusRunning, true
	case "paused":
		return StatusPaused, true
	case "completed":
		return StatusCompleted, true
	default:
		return StatusCreated, false
	}
}

// MidThreshold returns the remaining seconds at which the mid alert fires,
// or 0 when the timer has no mid alert.
func (t Timer) MidThreshold() int {
	if t.MidTrigger <= 0 {
		return 0
	}
	return (t.Duration*t.MidTrigger + 50) / 100
}

// Elapsed returns how many seconds of the countdown have passed.
func (t Timer) Elapsed() int {
	return t.Duration - t.RemainingDuration
}

// Clone returns a copy that shares no pointers with t.
func (t Timer) Clone() Timer {
	if t.CompletionTime != nil {
		ct := *t.CompletionTime
		t.CompletionTime = &ct
	}
	return t
}

// Collection is the root aggregate: every timer plus the known categories.
type Collection struct {
	Timers     []Timer
	Categories []string
}

// DefaultCategories seeds a fresh collection.
var DefaultCategories = []string{"Workout", "Study", "Break"}

// DefaultCollection returns an empty collection with the given seed categories,
// falling back to DefaultCategories.
func DefaultCollection(seed ...string) Collection {
	if len(seed) == 0 {
		seed = DefaultCategories
	}
	return Collection{
		Timers:     []Timer{},
		Categories: append([]string(nil), seed...),
	}
}

// Clone returns a deep copy of the collection.
func (c Collection) Clone() Collection {
	out := Collection{
		Timers:     make([]Timer, len(c.Timers)),
		Categories: append([]string{}, c.Categories...),
	}
	for i, t := range c.Timers {
		out.Timers[i] = t.Clone()
	}
	return out
}

// Find returns the timer with the given id.
func (c Collection) Find(id string) (Timer, bool) {
	for _, t := range c.Timers {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return Timer{}, false
}

// HasCategory reports whether name is a known category.
func (c Collection) HasCategory(name string) bool {
	for _, cat := range c.Categories {
		if cat == name {
			return true
		}
	}
	return false
}

// Theme is the stored appearance preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}
