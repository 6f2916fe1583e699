package notify

import (
	"errors"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"countdown/internal/domain"
	"countdown/internal/logging"
)

const telegramQueueSize = 32

// MessageSender is the part of tgbotapi.BotAPI used here.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram delivers notifications to one chat. Sends happen on a
// background worker so Notify never blocks the caller.
type Telegram struct {
	sender MessageSender
	chatID int64

	mu     sync.RWMutex
	closed bool
	queue  chan string
	wg     sync.WaitGroup
}

// NewTelegram authorizes the bot token and starts the sender.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, errors.New("telegram token and chat id are required")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	logging.Infof("notify: telegram authorized as @%s", api.Self.UserName)
	return NewTelegramWithSender(api, chatID), nil
}

// NewTelegramWithSender starts a notifier on an existing sender.
func NewTelegramWithSender(sender MessageSender, chatID int64) *Telegram {
	t := &Telegram{
		sender: sender,
		chatID: chatID,
		queue:  make(chan string, telegramQueueSize),
	}
	t.wg.Add(1)
	go t.run()
	return t
}

func (t *Telegram) Notify(kind domain.NoticeKind, message string) {
	text := prefix(kind) + message
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}
	select {
	case t.queue <- text:
	default:
		logging.Warnf("notify: telegram queue full, dropping %q", message)
	}
}

func (t *Telegram) run() {
	defer t.wg.Done()
	for text := range t.queue {
		if _, err := t.sender.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
			logging.Warnf("notify: telegram send: %v", err)
		}
	}
}

// Close flushes queued messages and stops the worker.
func (t *Telegram) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	close(t.queue)
	t.mu.Unlock()
	t.wg.Wait()
}

func prefix(kind domain.NoticeKind) string {
	switch kind {
	case domain.NoticeSuccess:
		return "✅ "
	case domain.NoticeError:
		return "❌ "
	default:
		return "⏱ "
	}
}
