package notify

import "countdown/internal/domain"

// Noop implements domain.Notifier and domain.AlertPlayer with no-op behavior.
// Useful for testing or headless environments.
type Noop struct{}

func (Noop) Notify(domain.NoticeKind, string) {}

func (Noop) PlayAlertSound() {}
