package notify

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"countdown/internal/domain"
	"countdown/internal/logging"
)

// Console prints notifications to a terminal writer.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Notify(kind domain.NoticeKind, message string) {
	logging.Debugf("notify %s: %s", kind, message)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintf(c.w, "[%s] %s\n", strings.ToUpper(string(kind)), message); err != nil {
		logging.Warnf("notify: console write: %v", err)
	}
}

// Bell implements domain.AlertPlayer by ringing the terminal bell.
type Bell struct {
	mu sync.Mutex
	w  io.Writer
}

func NewBell(w io.Writer) *Bell {
	return &Bell{w: w}
}

func (b *Bell) PlayAlertSound() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := io.WriteString(b.w, "\a"); err != nil {
		logging.Warnf("notify: bell: %v", err)
	}
}

// Multi fans a notification out to several notifiers.
type Multi []domain.Notifier

func (m Multi) Notify(kind domain.NoticeKind, message string) {
	for _, n := range m {
		n.Notify(kind, message)
	}
}
