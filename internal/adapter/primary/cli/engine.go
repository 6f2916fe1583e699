package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"countdown/internal/adapter/secondary/kv"
	"countdown/internal/adapter/secondary/notify"
	"countdown/internal/adapter/secondary/repository"
	"countdown/internal/config"
	"countdown/internal/core"
	"countdown/internal/domain"
	"countdown/internal/logging"
	"countdown/internal/usecase"
)

const (
	sqliteFileName  = "countdown.db"
	shutdownTimeout = 5 * time.Second
)

// engine is one running instance of the timer core with its adapters.
type engine struct {
	settings  config.Settings
	store     *core.Store
	scheduler *usecase.Scheduler
	timers    usecase.TimerUseCase
	closers   []func()
}

// sharedEngine is set while the interactive shell runs so that every
// command typed there drives the same countdowns.
var sharedEngine *engine

// withEngine runs fn against the shell's engine, or a fresh one that is
// shut down afterwards.
func withEngine(ctx context.Context, out io.Writer, fn func(*engine) error) error {
	if sharedEngine != nil {
		return fn(sharedEngine)
	}
	e, err := openEngine(ctx, out)
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(e)
}

func loadSettings() (config.Settings, error) {
	store, err := config.NewFileStore(cfgPath)
	if err != nil {
		return config.Settings{}, err
	}
	settings, err := store.Load()
	if err != nil {
		return config.Settings{}, err
	}
	if err := logging.SetLevelName(settings.LogLevel); err != nil {
		return config.Settings{}, err
	}
	return settings, nil
}

// openEngine loads settings, opens storage and starts the store and the
// scheduler. Alerts are written to out.
func openEngine(ctx context.Context, out io.Writer) (*engine, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	e := &engine{settings: settings}

	store, err := e.openKV()
	if err != nil {
		return nil, err
	}
	timerRepo, err := repository.NewTimerRepository(store, settings.Categories)
	if err != nil {
		e.Close()
		return nil, err
	}
	themeRepo, err := repository.NewThemeRepository(store)
	if err != nil {
		e.Close()
		return nil, err
	}

	e.store, err = core.NewStore(timerRepo, core.Options{Categories: settings.Categories})
	if err != nil {
		e.Close()
		return nil, err
	}
	e.store.Start(context.WithoutCancel(ctx))
	select {
	case <-e.store.Loaded():
	case <-ctx.Done():
		e.Close()
		return nil, ctx.Err()
	}

	e.scheduler = usecase.NewScheduler(e.store, usecase.SchedulerOptions{
		TickInterval: settings.Scheduler.TickInterval,
	})
	e.scheduler.AddListener(e.alerts(out))
	e.scheduler.Run()
	e.timers = usecase.NewTimerUseCase(e.store, e.scheduler, themeRepo)

	if settings.Scheduler.ResumeOnStart {
		for _, id := range e.store.Interrupted() {
			if err := e.timers.Resume(id); err != nil {
				logging.Warnf("resume %s: %v", id, err)
				continue
			}
			logging.Infof("resumed %s", id)
		}
	}
	return e, nil
}

func (e *engine) openKV() (domain.KVStore, error) {
	path := e.settings.Storage.Path
	switch e.settings.Storage.Backend {
	case config.BackendMemory:
		logging.Infof("storage: in-memory, nothing is persisted")
		return kv.NewMemoryStore(), nil
	case config.BackendSQLite:
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		db, err := kv.OpenSQLite(filepath.Join(path, sqliteFileName))
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, func() {
			if err := db.Close(); err != nil {
				logging.Warnf("storage: close sqlite: %v", err)
			}
		})
		logging.Infof("storage: sqlite %s", filepath.Join(path, sqliteFileName))
		return db, nil
	default:
		logging.Infof("storage: files under %s", path)
		return kv.NewFileStore(path)
	}
}

func (e *engine) alerts(out io.Writer) domain.TimerListener {
	notifiers := notify.Multi{notify.NewConsole(out)}
	if tg := e.settings.Notify.Telegram; tg.Enabled() {
		bot, err := notify.NewTelegram(tg.Token, tg.ChatID)
		if err != nil {
			logging.Warnf("telegram disabled: %v", err)
		} else {
			notifiers = append(notifiers, bot)
			e.closers = append(e.closers, bot.Close)
		}
	}
	var player domain.AlertPlayer = notify.Noop{}
	if e.settings.Notify.Bell {
		player = notify.NewBell(out)
	}
	return notify.NewAlerts(notifiers, player)
}

// Close stops the countdowns, persists the collection and releases storage.
func (e *engine) Close() {
	if e.scheduler != nil {
		e.scheduler.Stop()
	}
	if e.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := e.store.Close(ctx); err != nil {
			logging.Errorf("shutdown: %v", err)
		}
		cancel()
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}

// waitForCompletion blocks until every id completes or ctx ends. Timers
// still running at that point are paused.
func (e *engine) waitForCompletion(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	done := make(chan string, len(ids))
	e.scheduler.AddListener(domain.ListenerFunc(func(ev domain.TimerEvent) {
		if ev.Kind != domain.EventTimerCompleted || !want[ev.Timer.ID] {
			return
		}
		select {
		case done <- ev.Timer.ID:
		default:
		}
	}))

	pending := 0
	for _, id := range ids {
		if e.scheduler.IsRunning(id) {
			pending++
		}
	}
	for pending > 0 {
		select {
		case <-done:
			pending--
		case <-ctx.Done():
			for _, id := range ids {
				if e.scheduler.IsRunning(id) {
					if err := e.timers.Pause(id); err != nil {
						logging.Warnf("pause %s: %v", id, err)
					}
				}
			}
			return
		}
	}
}
