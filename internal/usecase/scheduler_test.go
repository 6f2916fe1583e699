package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"countdown/internal/adapter/secondary/kv"
	"countdown/internal/adapter/secondary/repository"
	"countdown/internal/core"
	"countdown/internal/domain"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type eventLog struct {
	mu     sync.Mutex
	events []domain.TimerEvent
}

func (l *eventLog) HandleTimerEvent(ev domain.TimerEvent) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) count(kind domain.EventKind, id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.events {
		if ev.Kind == kind && ev.Timer.ID == id {
			n++
		}
	}
	return n
}

func newTestStore(t *testing.T) *core.Store {
	t.Helper()
	repo, err := repository.NewTimerRepository(kv.NewMemoryStore(), nil)
	require.NoError(t, err)
	store, err := core.NewStore(repo, core.Options{Now: func() time.Time { return t0 }})
	require.NoError(t, err)
	store.Start(context.Background())
	<-store.Loaded()
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

// newTestScheduler never starts cron; tests drive ticks by hand.
func newTestScheduler(t *testing.T) (*Scheduler, *core.Store, *eventLog) {
	t.Helper()
	store := newTestStore(t)
	s := NewScheduler(store, SchedulerOptions{
		TickInterval: time.Hour,
		Now:          func() time.Time { return t0 },
	})
	events := &eventLog{}
	s.AddListener(events)
	return s, store, events
}

func addTimer(t *testing.T, store *core.Store, id string, duration, mid int) domain.Timer {
	t.Helper()
	tm := domain.Timer{
		ID:                id,
		Name:              "timer " + id,
		Category:          "Workout",
		Duration:          duration,
		RemainingDuration: duration,
		Status:            domain.StatusCreated,
		MidTrigger:        mid,
		CreatedAt:         t0,
		UpdatedAt:         t0,
	}
	store.Dispatch(core.AddTimer(tm))
	got, ok := store.Timer(id)
	require.True(t, ok)
	return got
}

func proc(t *testing.T, s *Scheduler, id string) *process {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.procs[id]
	require.True(t, ok, "no process for %s", id)
	return p
}

func ticks(s *Scheduler, p *process, n int) {
	for i := 0; i < n; i++ {
		s.tick(p)
	}
}

func TestSchedulerCompletesAfterDurationTicks(t *testing.T) {
	s, store, events := newTestScheduler(t)
	tm := addTimer(t, store, "a", 3, 0)

	require.NoError(t, s.Start(tm))
	got, _ := store.Timer("a")
	assert.Equal(t, domain.StatusRunning, got.Status)

	p := proc(t, s, "a")
	ticks(s, p, 2)
	got, _ = store.Timer("a")
	assert.Equal(t, 1, got.RemainingDuration)
	assert.Equal(t, domain.StatusRunning, got.Status)

	s.tick(p)
	got, _ = store.Timer("a")
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, 0, got.RemainingDuration)
	require.NotNil(t, got.CompletionTime)
	assert.False(t, s.IsRunning("a"))
	assert.Equal(t, 1, events.count(domain.EventTimerCompleted, "a"))

	// a late tick after completion changes nothing
	s.tick(p)
	assert.Equal(t, 1, events.count(domain.EventTimerCompleted, "a"))
}

func TestSchedulerRemainingDecreasesByOne(t *testing.T) {
	s, store, _ := newTestScheduler(t)
	tm := addTimer(t, store, "a", 10, 0)
	require.NoError(t, s.Start(tm))
	p := proc(t, s, "a")

	prev := 10
	for i := 0; i < 9; i++ {
		s.tick(p)
		got, _ := store.Timer("a")
		assert.Equal(t, prev-1, got.RemainingDuration)
		prev = got.RemainingDuration
	}
}

func TestSchedulerMidAlertFiresOnceAtThreshold(t *testing.T) {
	s, store, events := newTestScheduler(t)
	tm := addTimer(t, store, "a", 100, 50)
	require.NoError(t, s.Start(tm))
	p := proc(t, s, "a")

	ticks(s, p, 49)
	assert.Equal(t, 0, events.count(domain.EventMidAlertReached, "a"))

	s.tick(p)
	assert.Equal(t, 1, events.count(domain.EventMidAlertReached, "a"))
	events.mu.Lock()
	assert.Equal(t, 50, events.events[0].Timer.RemainingDuration)
	events.mu.Unlock()

	ticks(s, p, 50)
	assert.Equal(t, 1, events.count(domain.EventMidAlertReached, "a"))
	assert.Equal(t, 1, events.count(domain.EventTimerCompleted, "a"))
}

func TestSchedulerNoMidAlertWhenDisabled(t *testing.T) {
	s, store, events := newTestScheduler(t)
	tm := addTimer(t, store, "a", 5, 0)
	require.NoError(t, s.Start(tm))
	ticks(s, proc(t, s, "a"), 5)

	assert.Equal(t, 0, events.count(domain.EventMidAlertReached, "a"))
	assert.Equal(t, 1, events.count(domain.EventTimerCompleted, "a"))
}

func TestSchedulerPauseAndResume(t *testing.T) {
	s, store, _ := newTestScheduler(t)
	tm := addTimer(t, store, "a", 10, 0)
	require.NoError(t, s.Start(tm))
	old := proc(t, s, "a")
	ticks(s, old, 4)

	require.NoError(t, s.Pause(tm))
	got, _ := store.Timer("a")
	assert.Equal(t, domain.StatusPaused, got.Status)
	assert.Equal(t, 6, got.RemainingDuration)
	assert.False(t, s.IsRunning("a"))

	// the halted process no longer ticks
	s.tick(old)
	got, _ = store.Timer("a")
	assert.Equal(t, 6, got.RemainingDuration)

	require.NoError(t, s.Resume(got))
	s.tick(proc(t, s, "a"))
	got, _ = store.Timer("a")
	assert.Equal(t, domain.StatusRunning, got.Status)
	assert.Equal(t, 5, got.RemainingDuration)
}

func TestSchedulerResetPausedTimer(t *testing.T) {
	s, store, _ := newTestScheduler(t)
	tm := addTimer(t, store, "a", 10, 0)
	require.NoError(t, s.Start(tm))
	ticks(s, proc(t, s, "a"), 3)
	require.NoError(t, s.Pause(tm))

	require.NoError(t, s.Reset(tm))
	got, _ := store.Timer("a")
	assert.Equal(t, domain.StatusCreated, got.Status)
	assert.Equal(t, 10, got.RemainingDuration)
	assert.Nil(t, got.CompletionTime)
}

func TestSchedulerResetRunningTimerStopsCountdown(t *testing.T) {
	s, store, _ := newTestScheduler(t)
	tm := addTimer(t, store, "a", 10, 0)
	require.NoError(t, s.Start(tm))
	p := proc(t, s, "a")
	ticks(s, p, 3)

	require.NoError(t, s.Reset(tm))
	assert.False(t, s.IsRunning("a"))
	s.tick(p)
	got, _ := store.Timer("a")
	assert.Equal(t, 10, got.RemainingDuration)
}

func TestSchedulerStartAllRegistersIndependentProcesses(t *testing.T) {
	s, store, _ := newTestScheduler(t)
	var timers []domain.Timer
	for _, id := range []string{"a", "b", "c"} {
		timers = append(timers, addTimer(t, store, id, 5, 0))
	}

	require.NoError(t, s.StartAll(timers))
	assert.Equal(t, []string{"a", "b", "c"}, s.Running())

	s.tick(proc(t, s, "b"))
	a, _ := store.Timer("a")
	b, _ := store.Timer("b")
	assert.Equal(t, 5, a.RemainingDuration)
	assert.Equal(t, 4, b.RemainingDuration)

	require.NoError(t, s.PauseAll(timers))
	assert.Empty(t, s.Running())
}

func TestSchedulerPauseOneLeavesOthersCounting(t *testing.T) {
	s, store, _ := newTestScheduler(t)
	var timers []domain.Timer
	for _, id := range []string{"a", "b", "c"} {
		timers = append(timers, addTimer(t, store, id, 10, 0))
	}
	require.NoError(t, s.StartAll(timers))
	pa, pb, pc := proc(t, s, "a"), proc(t, s, "b"), proc(t, s, "c")
	ticks(s, pa, 1)
	ticks(s, pb, 1)
	ticks(s, pc, 1)

	require.NoError(t, s.Pause(timers[1]))
	ticks(s, pa, 2)
	ticks(s, pb, 2)
	ticks(s, pc, 3)

	a, _ := store.Timer("a")
	b, _ := store.Timer("b")
	c, _ := store.Timer("c")
	assert.Equal(t, 7, a.RemainingDuration)
	assert.Equal(t, domain.StatusRunning, a.Status)
	assert.Equal(t, 9, b.RemainingDuration)
	assert.Equal(t, domain.StatusPaused, b.Status)
	assert.Equal(t, 6, c.RemainingDuration)
	assert.Equal(t, domain.StatusRunning, c.Status)
	assert.Equal(t, []string{"a", "c"}, s.Running())
}

func TestSchedulerStartAllJoinsFailures(t *testing.T) {
	s, store, _ := newTestScheduler(t)
	a := addTimer(t, store, "a", 5, 0)
	b := addTimer(t, store, "b", 5, 0)
	require.NoError(t, s.Start(a))

	err := s.StartAll([]domain.Timer{a, b})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAlreadyRunning)
	assert.True(t, s.IsRunning("b"))
}

func TestSchedulerStartErrors(t *testing.T) {
	s, store, _ := newTestScheduler(t)
	tm := addTimer(t, store, "a", 1, 0)

	require.NoError(t, s.Start(tm))
	assert.ErrorIs(t, s.Start(tm), domain.ErrAlreadyRunning)

	s.tick(proc(t, s, "a"))
	assert.ErrorIs(t, s.Start(tm), domain.ErrTimerCompleted)

	assert.ErrorIs(t, s.Start(domain.Timer{ID: "missing"}), domain.ErrTimerNotFound)
}

func TestSchedulerDeleteStopsCountdown(t *testing.T) {
	s, store, events := newTestScheduler(t)
	tm := addTimer(t, store, "a", 2, 0)
	require.NoError(t, s.Start(tm))
	p := proc(t, s, "a")

	require.NoError(t, s.Delete("a"))
	_, ok := store.Timer("a")
	assert.False(t, ok)
	assert.False(t, s.IsRunning("a"))

	ticks(s, p, 2)
	assert.Equal(t, 0, events.count(domain.EventTimerCompleted, "a"))
	assert.ErrorIs(t, s.Delete("a"), domain.ErrTimerNotFound)
}

func TestSchedulerFinalTickStoresOnlyCompletion(t *testing.T) {
	s, store, _ := newTestScheduler(t)
	tm := addTimer(t, store, "a", 3, 0)
	snapshots := store.Subscribe(16)

	require.NoError(t, s.Start(tm))
	ticks(s, proc(t, s, "a"), 3)

	var seen []domain.Timer
	for len(snapshots) > 0 {
		c := <-snapshots
		if got, ok := c.Find("a"); ok {
			seen = append(seen, got)
		}
	}
	require.NotEmpty(t, seen)
	for _, got := range seen {
		if got.RemainingDuration == 0 {
			assert.Equal(t, domain.StatusCompleted, got.Status)
		}
	}
	assert.Equal(t, domain.StatusCompleted, seen[len(seen)-1].Status)
}

func TestSchedulerConcurrentStartPauseStayConsistent(t *testing.T) {
	s, store, _ := newTestScheduler(t)
	tm := addTimer(t, store, "a", 100, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = s.Start(tm)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = s.Pause(tm)
			}
		}()
	}
	wg.Wait()

	got, _ := store.Timer("a")
	assert.Equal(t, got.Status == domain.StatusRunning, s.IsRunning("a"))
	assert.Contains(t, []domain.Status{domain.StatusRunning, domain.StatusPaused}, got.Status)
}

func TestSchedulerRunsOnCron(t *testing.T) {
	store := newTestStore(t)
	s := NewScheduler(store, SchedulerOptions{TickInterval: 10 * time.Millisecond})
	done := make(chan struct{})
	s.AddListener(domain.ListenerFunc(func(ev domain.TimerEvent) {
		if ev.Kind == domain.EventTimerCompleted {
			close(done)
		}
	}))
	s.Run()
	defer s.Stop()

	tm := addTimer(t, store, "a", 3, 0)
	require.NoError(t, s.Start(tm))

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("timer did not complete")
	}
	got, _ := store.Timer("a")
	assert.Equal(t, domain.StatusCompleted, got.Status)
}
