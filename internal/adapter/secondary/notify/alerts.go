// Package notify implements the notification and alert ports and the
// listener that turns scheduler events into user-facing alerts.
package notify

import (
	"fmt"

	"countdown/internal/domain"
)

// Alerts implements domain.TimerListener on top of a notifier and an
// alert player.
type Alerts struct {
	notifier domain.Notifier
	player   domain.AlertPlayer
}

// NewAlerts wires a listener. Nil ports are replaced with no-ops.
func NewAlerts(n domain.Notifier, p domain.AlertPlayer) *Alerts {
	if n == nil {
		n = Noop{}
	}
	if p == nil {
		p = Noop{}
	}
	return &Alerts{notifier: n, player: p}
}

func (a *Alerts) HandleTimerEvent(ev domain.TimerEvent) {
	switch ev.Kind {
	case domain.EventMidAlertReached:
		a.notifier.Notify(domain.NoticeInfo,
			fmt.Sprintf("%s is %d%% done (%s left)", ev.Timer.Name, 100-ev.Timer.MidTrigger, FormatSeconds(ev.Timer.RemainingDuration)))
	case domain.EventTimerCompleted:
		a.player.PlayAlertSound()
		a.notifier.Notify(domain.NoticeSuccess, fmt.Sprintf("%s completed", ev.Timer.Name))
	}
}

// FormatSeconds renders a second count as h:mm:ss or m:ss.
func FormatSeconds(total int) string {
	if total < 0 {
		total = 0
	}
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
