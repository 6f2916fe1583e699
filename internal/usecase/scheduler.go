package usecase

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"countdown/internal/core"
	"countdown/internal/domain"
	"countdown/internal/logging"
)

// DefaultTickInterval is one countdown step.
const DefaultTickInterval = time.Second

// StateStore is the part of core.Store the scheduler drives.
type StateStore interface {
	Dispatch(action core.Action)
	Timer(id string) (domain.Timer, bool)
}

// SchedulerOptions tunes a Scheduler.
type SchedulerOptions struct {
	TickInterval time.Duration
	Now          func() time.Time
}

// Scheduler owns one countdown process per running timer.
// All processes share a single cron instance as their tick source.
type Scheduler struct {
	store    StateStore
	cron     *cron.Cron
	interval time.Duration
	now      func() time.Time

	// ctl serializes Start, Pause, Reset and Delete so a status write and
	// the registry change it belongs to are never interleaved with another
	// control operation. Lock order: ctl, process.mu, mu, store.
	ctl sync.Mutex

	mu        sync.Mutex
	procs     map[string]*process
	listeners []domain.TimerListener
}

// process is the countdown for one timer id. remaining is the authoritative
// counter; ticks never read it back from the store.
type process struct {
	id    string
	entry cron.EntryID // guarded by Scheduler.mu

	mu        sync.Mutex
	remaining int
	stopped   bool
}

// fixedInterval fires every d after the previous run. cron.Every rounds to
// whole seconds, which is too coarse for tests.
type fixedInterval time.Duration

func (d fixedInterval) Next(t time.Time) time.Time {
	return t.Add(time.Duration(d))
}

// NewScheduler creates a scheduler dispatching into store.
func NewScheduler(store StateStore, opts SchedulerOptions) *Scheduler {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	logger := logging.CronLogger{}
	return &Scheduler{
		store:    store,
		cron:     cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger))),
		interval: opts.TickInterval,
		now:      opts.Now,
		procs:    make(map[string]*process),
	}
}

// AddListener registers a receiver for mid-alert and completion events.
func (s *Scheduler) AddListener(l domain.TimerListener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// Run starts the shared tick source.
func (s *Scheduler) Run() {
	s.cron.Start()
	logging.Infof("scheduler: ticking every %s", s.interval)
}

// Stop halts every countdown and the tick source. Timers keep their Running
// status; the store reconciles them on the next load.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	procs := make([]*process, 0, len(s.procs))
	for id, p := range s.procs {
		s.cron.Remove(p.entry)
		delete(s.procs, id)
		procs = append(procs, p)
	}
	s.mu.Unlock()

	for _, p := range procs {
		p.halt()
	}
	<-s.cron.Stop().Done()
	logging.Infof("scheduler: stopped (%d countdown(s) halted)", len(procs))
}

// Start begins the countdown for t.
func (s *Scheduler) Start(t domain.Timer) error {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.procs[t.ID]; ok {
		logging.Infof("scheduler: %s already running", t.ID)
		return fmt.Errorf("%w: %s", domain.ErrAlreadyRunning, t.ID)
	}
	cur, ok := s.store.Timer(t.ID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrTimerNotFound, t.ID)
	}
	if cur.Status == domain.StatusCompleted || cur.RemainingDuration <= 0 {
		return fmt.Errorf("%w: %s", domain.ErrTimerCompleted, t.ID)
	}

	p := &process{id: cur.ID, remaining: cur.RemainingDuration}
	s.procs[cur.ID] = p

	cur.Status = domain.StatusRunning
	cur.UpdatedAt = s.now()
	s.store.Dispatch(core.UpdateTimer(cur))

	p.entry = s.cron.Schedule(fixedInterval(s.interval), cron.FuncJob(func() { s.tick(p) }))
	logging.Debugf("scheduler: started %s (%ds left)", cur.ID, cur.RemainingDuration)
	return nil
}

// Resume continues a paused timer from its stored remaining time.
func (s *Scheduler) Resume(t domain.Timer) error {
	if cur, ok := s.store.Timer(t.ID); ok && cur.Status != domain.StatusPaused {
		logging.Debugf("scheduler: resuming %s from status %s", t.ID, cur.Status)
	}
	return s.Start(t)
}

// Pause stops the countdown for t and marks it Paused.
func (s *Scheduler) Pause(t domain.Timer) error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	if p := s.detach(t.ID); p != nil {
		p.halt()
	} else {
		logging.Debugf("scheduler: pause of %s without a countdown", t.ID)
	}

	cur, ok := s.store.Timer(t.ID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrTimerNotFound, t.ID)
	}
	if cur.Status == domain.StatusCompleted {
		return nil
	}
	cur.Status = domain.StatusPaused
	cur.UpdatedAt = s.now()
	s.store.Dispatch(core.UpdateTimer(cur))
	return nil
}

// Reset stops any countdown for t and restores its full duration.
func (s *Scheduler) Reset(t domain.Timer) error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	if p := s.detach(t.ID); p != nil {
		p.halt()
	}
	if _, ok := s.store.Timer(t.ID); !ok {
		return fmt.Errorf("%w: %s", domain.ErrTimerNotFound, t.ID)
	}
	s.store.Dispatch(core.ResetTimers(t.ID))
	return nil
}

// Delete stops any countdown for id and removes the timer.
func (s *Scheduler) Delete(id string) error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	if p := s.detach(id); p != nil {
		p.halt()
	}
	if _, ok := s.store.Timer(id); !ok {
		return fmt.Errorf("%w: %s", domain.ErrTimerNotFound, id)
	}
	s.store.Dispatch(core.DeleteTimer(id))
	return nil
}

// StartAll starts every timer independently; one failure does not stop the rest.
func (s *Scheduler) StartAll(timers []domain.Timer) error {
	var errs []error
	for _, t := range timers {
		if err := s.Start(t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PauseAll pauses every timer independently.
func (s *Scheduler) PauseAll(timers []domain.Timer) error {
	var errs []error
	for _, t := range timers {
		if err := s.Pause(t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// IsRunning reports whether a countdown exists for id.
func (s *Scheduler) IsRunning(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.procs[id]
	return ok
}

// Running returns the ids with an active countdown, sorted.
func (s *Scheduler) Running() []string {
	s.mu.Lock()
	ids := make([]string, 0, len(s.procs))
	for id := range s.procs {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// tick advances one process by a single step. Every effect of the step is
// derived from the same next value.
func (s *Scheduler) tick(p *process) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}

	cur, ok := s.store.Timer(p.id)
	if !ok {
		p.stopped = true
		s.unregister(p)
		p.mu.Unlock()
		logging.Warnf("scheduler: %s vanished, countdown stopped", p.id)
		return
	}

	next := p.remaining - 1
	if next < 0 {
		next = 0
	}
	p.remaining = next
	now := s.now()

	cur.RemainingDuration = next
	cur.Status = domain.StatusRunning
	cur.UpdatedAt = now
	// The final step is a single COMPLETE_TIMER so no persisted snapshot
	// ever holds a Running timer with nothing left.
	if next > 0 {
		s.store.Dispatch(core.UpdateTimer(cur))
	}

	var events []domain.TimerEvent
	if threshold := cur.MidThreshold(); threshold > 0 && next == threshold {
		events = append(events, domain.TimerEvent{Kind: domain.EventMidAlertReached, Timer: cur, At: now})
	}
	if next == 0 {
		p.stopped = true
		s.unregister(p)
		s.store.Dispatch(core.CompleteTimer(p.id))
		done, ok := s.store.Timer(p.id)
		if !ok {
			done = cur
		}
		events = append(events, domain.TimerEvent{Kind: domain.EventTimerCompleted, Timer: done, At: now})
	}
	p.mu.Unlock()

	s.emit(events)
}

// detach removes the registration for id and its cron entry.
func (s *Scheduler) detach(id string) *process {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.procs[id]
	if !ok {
		return nil
	}
	delete(s.procs, id)
	s.cron.Remove(p.entry)
	return p
}

// unregister is detach for a process that stops itself.
func (s *Scheduler) unregister(p *process) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.procs[p.id] == p {
		delete(s.procs, p.id)
	}
	s.cron.Remove(p.entry)
}

// halt waits for an in-flight tick and prevents any further one.
func (p *process) halt() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}

func (s *Scheduler) emit(events []domain.TimerEvent) {
	if len(events) == 0 {
		return
	}
	s.mu.Lock()
	listeners := append([]domain.TimerListener(nil), s.listeners...)
	s.mu.Unlock()

	for _, ev := range events {
		logging.Infof("scheduler: %s for %s", ev.Kind, ev.Timer.ID)
		for _, l := range listeners {
			l.HandleTimerEvent(ev)
		}
	}
}
