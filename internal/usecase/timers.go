package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"countdown/internal/core"
	"countdown/internal/domain"
)

// TimerUseCase is the primary port for timer operations.
// This represents the application's use cases.
type TimerUseCase interface {
	CreateTimer(draft domain.TimerDraft) (domain.Timer, error)
	AddCategory(name string) error
	Categories() []string

	Snapshot() domain.Collection
	Timers(filter TimerFilter) []domain.Timer
	Groups() []domain.CategoryGroup
	History() []domain.Timer

	Start(id string) error
	Pause(id string) error
	Resume(id string) error
	Reset(id string) error
	Delete(id string) error
	StartAll() error
	PauseAll() error
	StartCategory(name string) error
	PauseCategory(name string) error
	Running() []string

	Theme(ctx context.Context) domain.Theme
	SetTheme(ctx context.Context, theme domain.Theme) error
}

// TimerFilter narrows Timers. Zero values match everything.
type TimerFilter struct {
	Category string
	Status   *domain.Status
}

// Store is the part of core.Store the use cases read and drive.
type Store interface {
	StateStore
	State() domain.Collection
}

// timerInteractor implements TimerUseCase.
// It depends only on the domain layer, the store and secondary ports.
type timerInteractor struct {
	store     Store
	scheduler *Scheduler
	themes    domain.ThemeRepository
	service   *domain.TimerService
	newID     func() string
	now       func() time.Time
}

// NewTimerUseCase creates the timer use cases.
func NewTimerUseCase(store Store, scheduler *Scheduler, themes domain.ThemeRepository) TimerUseCase {
	return &timerInteractor{
		store:     store,
		scheduler: scheduler,
		themes:    themes,
		service:   domain.NewTimerService(),
		newID:     uuid.NewString,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateTimer validates the draft and adds a Created timer.
func (u *timerInteractor) CreateTimer(draft domain.TimerDraft) (domain.Timer, error) {
	t, err := u.service.NewTimer(u.newID(), draft, u.store.State(), u.now())
	if err != nil {
		return domain.Timer{}, err
	}
	u.store.Dispatch(core.AddTimer(t))
	return t, nil
}

func (u *timerInteractor) AddCategory(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ErrCategoryRequired
	}
	u.store.Dispatch(core.AddCategory(name))
	return nil
}

func (u *timerInteractor) Categories() []string {
	return u.store.State().Categories
}

func (u *timerInteractor) Snapshot() domain.Collection {
	return u.store.State()
}

func (u *timerInteractor) Timers(filter TimerFilter) []domain.Timer {
	var out []domain.Timer
	for _, t := range u.store.State().Timers {
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (u *timerInteractor) Groups() []domain.CategoryGroup {
	return u.service.Group(u.store.State())
}

func (u *timerInteractor) History() []domain.Timer {
	return u.service.History(u.store.State())
}

func (u *timerInteractor) lookup(id string) (domain.Timer, error) {
	t, ok := u.store.Timer(id)
	if !ok {
		return domain.Timer{}, fmt.Errorf("%w: %s", domain.ErrTimerNotFound, id)
	}
	return t, nil
}

func (u *timerInteractor) Start(id string) error {
	t, err := u.lookup(id)
	if err != nil {
		return err
	}
	return u.scheduler.Start(t)
}

func (u *timerInteractor) Pause(id string) error {
	t, err := u.lookup(id)
	if err != nil {
		return err
	}
	return u.scheduler.Pause(t)
}

func (u *timerInteractor) Resume(id string) error {
	t, err := u.lookup(id)
	if err != nil {
		return err
	}
	return u.scheduler.Resume(t)
}

func (u *timerInteractor) Reset(id string) error {
	t, err := u.lookup(id)
	if err != nil {
		return err
	}
	return u.scheduler.Reset(t)
}

func (u *timerInteractor) Delete(id string) error {
	return u.scheduler.Delete(id)
}

// StartAll starts every timer that is neither running nor completed.
func (u *timerInteractor) StartAll() error {
	return u.scheduler.StartAll(startable(u.store.State().Timers))
}

// PauseAll pauses every running timer.
func (u *timerInteractor) PauseAll() error {
	return u.scheduler.PauseAll(running(u.store.State().Timers))
}

func (u *timerInteractor) StartCategory(name string) error {
	return u.scheduler.StartAll(startable(u.service.InCategory(u.store.State(), name)))
}

func (u *timerInteractor) PauseCategory(name string) error {
	return u.scheduler.PauseAll(running(u.service.InCategory(u.store.State(), name)))
}

func (u *timerInteractor) Running() []string {
	return u.scheduler.Running()
}

func (u *timerInteractor) Theme(ctx context.Context) domain.Theme {
	return u.themes.Theme(ctx)
}

func (u *timerInteractor) SetTheme(ctx context.Context, theme domain.Theme) error {
	return u.themes.SetTheme(ctx, theme)
}

func startable(timers []domain.Timer) []domain.Timer {
	var out []domain.Timer
	for _, t := range timers {
		if t.Status == domain.StatusCreated || t.Status == domain.StatusPaused {
			out = append(out, t)
		}
	}
	return out
}

func running(timers []domain.Timer) []domain.Timer {
	var out []domain.Timer
	for _, t := range timers {
		if t.Status == domain.StatusRunning {
			out = append(out, t)
		}
	}
	return out
}
