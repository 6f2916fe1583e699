package notify

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"countdown/internal/domain"
)

type recorder struct {
	mu      sync.Mutex
	notices []string
	sounds  int
}

func (r *recorder) Notify(kind domain.NoticeKind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, string(kind)+": "+message)
}

func (r *recorder) PlayAlertSound() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sounds++
}

func TestAlertsMidAlert(t *testing.T) {
	rec := &recorder{}
	alerts := NewAlerts(rec, rec)

	alerts.HandleTimerEvent(domain.TimerEvent{
		Kind:  domain.EventMidAlertReached,
		Timer: domain.Timer{Name: "Plank", Duration: 120, RemainingDuration: 30, MidTrigger: 25},
	})

	assert.Equal(t, []string{"info: Plank is 75% done (0:30 left)"}, rec.notices)
	assert.Equal(t, 0, rec.sounds)
}

func TestAlertsCompletion(t *testing.T) {
	rec := &recorder{}
	alerts := NewAlerts(rec, rec)

	alerts.HandleTimerEvent(domain.TimerEvent{
		Kind:  domain.EventTimerCompleted,
		Timer: domain.Timer{Name: "Plank"},
	})

	assert.Equal(t, []string{"success: Plank completed"}, rec.notices)
	assert.Equal(t, 1, rec.sounds)
}

func TestAlertsWithNilPorts(t *testing.T) {
	alerts := NewAlerts(nil, nil)
	assert.NotPanics(t, func() {
		alerts.HandleTimerEvent(domain.TimerEvent{Kind: domain.EventTimerCompleted})
	})
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "0:00", FormatSeconds(-3))
	assert.Equal(t, "0:05", FormatSeconds(5))
	assert.Equal(t, "1:30", FormatSeconds(90))
	assert.Equal(t, "1:01:01", FormatSeconds(3661))
}

func TestConsoleAndBell(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf).Notify(domain.NoticeSuccess, "done")
	NewBell(&buf).PlayAlertSound()
	assert.Equal(t, "[SUCCESS] done\n\a", buf.String())
}

func TestMultiFansOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Multi{a, b}.Notify(domain.NoticeError, "boom")
	assert.Equal(t, []string{"error: boom"}, a.notices)
	assert.Equal(t, []string{"error: boom"}, b.notices)
}

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

func (f *fakeSender) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.sent...)
}

func TestTelegramDeliversToChat(t *testing.T) {
	sender := &fakeSender{}
	tg := NewTelegramWithSender(sender, 42)

	tg.Notify(domain.NoticeSuccess, "Plank completed")
	tg.Notify(domain.NoticeInfo, "Plank is 50% done")
	tg.Close()

	sent := sender.messages()
	require.Len(t, sent, 2)
	assert.Equal(t, int64(42), sent[0].ChatID)
	assert.Equal(t, "✅ Plank completed", sent[0].Text)
	assert.Contains(t, sent[1].Text, "50% done")
}

func TestTelegramSendErrorsAreSwallowed(t *testing.T) {
	sender := &fakeSender{err: errors.New("network down")}
	tg := NewTelegramWithSender(sender, 1)
	tg.Notify(domain.NoticeError, "x")
	tg.Close()
	assert.Len(t, sender.messages(), 1)
}

func TestTelegramNotifyAfterCloseIsDropped(t *testing.T) {
	sender := &fakeSender{}
	tg := NewTelegramWithSender(sender, 1)
	tg.Close()
	tg.Close()

	done := make(chan struct{})
	go func() {
		tg.Notify(domain.NoticeInfo, "late")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked after Close")
	}
	assert.Empty(t, sender.messages())
}

func TestNewTelegramRequiresCredentials(t *testing.T) {
	_, err := NewTelegram("", 0)
	assert.Error(t, err)
}
