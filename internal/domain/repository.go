package domain

import (
	"context"
	"time"
)

// KVStore is a secondary port for the raw durable key/value store.
// Values are opaque strings; a missing key reports found == false.
type KVStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
}

// TimerRepository is a secondary port that persists the whole timer collection.
// Load never fails: absent or corrupt data yields a default collection.
type TimerRepository interface {
	Load(ctx context.Context) Collection
	Save(ctx context.Context, c Collection) error
}

// ThemeRepository persists the appearance preference under its own key.
type ThemeRepository interface {
	Theme(ctx context.Context) Theme
	SetTheme(ctx context.Context, t Theme) error
}

// NoticeKind classifies a user-facing notification.
type NoticeKind string

const (
	NoticeInfo    NoticeKind = "info"
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notifier is a secondary port that shows a message to the user.
// Implementations are fire-and-forget.
type Notifier interface {
	Notify(kind NoticeKind, message string)
}

// AlertPlayer is a secondary port that plays the completion sound.
type AlertPlayer interface {
	PlayAlertSound()
}

// EventKind identifies a scheduler event.
type EventKind string

const (
	EventMidAlertReached EventKind = "MidAlertReached"
	EventTimerCompleted  EventKind = "TimerCompleted"
)

// TimerEvent is emitted by the scheduler when a trigger fires.
type TimerEvent struct {
	Kind  EventKind
	Timer Timer
	At    time.Time
}

// TimerListener receives scheduler events.
type TimerListener interface {
	HandleTimerEvent(ev TimerEvent)
}

// ListenerFunc adapts a function to TimerListener.
type ListenerFunc func(ev TimerEvent)

func (f ListenerFunc) HandleTimerEvent(ev TimerEvent) { f(ev) }
