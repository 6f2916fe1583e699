package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"countdown/internal/domain"
	"countdown/internal/logging"
)

// saveTimeout bounds a single background persist.
const saveTimeout = 5 * time.Second

// Options tunes a Store.
type Options struct {
	// Categories seeds the state shown before the persisted data is loaded.
	Categories []string
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// Store coordinates the reducer with persistence.
// It owns the timer collection; every mutation goes through Dispatch.
type Store struct {
	repo domain.TimerRepository
	now  func() time.Time

	mu          sync.RWMutex
	state       domain.Collection
	subs        []chan domain.Collection
	interrupted []string

	saveMu  sync.Mutex
	pending *domain.Collection
	saveCh  chan struct{}

	startOnce sync.Once
	cancel    context.CancelFunc
	loaded    chan struct{}
	done      chan struct{}
}

// NewStore prepares a store around repo. Call Start to load persisted data.
func NewStore(repo domain.TimerRepository, opts Options) (*Store, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Store{
		repo:   repo,
		now:    now,
		state:  domain.DefaultCollection(opts.Categories...),
		saveCh: make(chan struct{}, 1),
		loaded: make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// Start loads the persisted collection in the background and launches the
// persistence loop until ctx is cancelled or Close is called.
func (s *Store) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, s.cancel = context.WithCancel(ctx)
		go s.load(ctx)
		go s.persistLoop(ctx)
	})
}

// Loaded is closed once the persisted collection has been applied.
func (s *Store) Loaded() <-chan struct{} {
	return s.loaded
}

func (s *Store) load(ctx context.Context) {
	defer close(s.loaded)

	// Shutdown must not turn a slow read into a default collection that
	// would then overwrite the stored one.
	c := s.repo.Load(context.WithoutCancel(ctx))
	s.Dispatch(LoadData(&c))

	// A timer persisted as Running has lost its countdown process.
	var interrupted []string
	for _, t := range s.State().Timers {
		if t.Status != domain.StatusRunning {
			continue
		}
		t.Status = domain.StatusPaused
		t.UpdatedAt = s.now()
		s.Dispatch(UpdateTimer(t))
		interrupted = append(interrupted, t.ID)
	}
	if len(interrupted) > 0 {
		logging.Warnf("store: %d timer(s) were running at last shutdown, paused", len(interrupted))
	}

	s.mu.Lock()
	s.interrupted = interrupted
	s.mu.Unlock()
	logging.Infof("store: loaded %d timer(s), %d categories", len(c.Timers), len(c.Categories))
}

// Interrupted returns the ids of timers that were running when the
// collection was last persisted. Valid after Loaded is closed.
func (s *Store) Interrupted() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.interrupted...)
}

// Dispatch applies action to the collection. Actions are applied one at a
// time in call order; persistence happens asynchronously.
func (s *Store) Dispatch(action Action) {
	s.mu.Lock()
	next, changed, err := Reduce(s.state, action, s.now())
	if err != nil {
		s.mu.Unlock()
		logging.Errorf("store: %v", err)
		return
	}
	if !changed {
		s.mu.Unlock()
		logging.Tracef("store: %s changed nothing", action.Type)
		return
	}
	s.state = next
	s.queueSave(next.Clone())
	s.emitLocked(next)
	s.mu.Unlock()
	logging.Tracef("store: applied %s", action.Type)
}

// State returns a deep copy of the current collection.
func (s *Store) State() domain.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Timer returns the current value of one timer.
func (s *Store) Timer(id string) (domain.Timer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Find(id)
}

// Subscribe registers an observer receiving every new collection.
// Slow observers miss snapshots rather than block dispatch.
func (s *Store) Subscribe(buffer int) <-chan domain.Collection {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan domain.Collection, buffer)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) emitLocked(c domain.Collection) {
	for _, ch := range s.subs {
		select {
		case ch <- c.Clone():
		default:
		}
	}
}

func (s *Store) queueSave(c domain.Collection) {
	s.saveMu.Lock()
	s.pending = &c
	s.saveMu.Unlock()
	select {
	case s.saveCh <- struct{}{}:
	default:
	}
}

func (s *Store) persistLoop(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.saveCh:
			s.flush()
		}
	}
}

// flush saves the latest pending snapshot, if any.
func (s *Store) flush() {
	s.saveMu.Lock()
	c := s.pending
	s.pending = nil
	s.saveMu.Unlock()
	if c == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := s.repo.Save(ctx, *c); err != nil {
		logging.Errorf("store: save failed, keeping in-memory state: %v", err)
	}
}

// Close stops the persistence loop and writes the current collection
// synchronously.
func (s *Store) Close(ctx context.Context) error {
	if s.cancel != nil {
		<-s.loaded
		s.cancel()
		<-s.done
	}
	s.saveMu.Lock()
	s.pending = nil
	s.saveMu.Unlock()

	if err := s.repo.Save(ctx, s.State()); err != nil {
		logging.Errorf("store: final save failed: %v", err)
		return err
	}
	return nil
}
