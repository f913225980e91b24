package sync

import (
	"context"
	"log"
	"os"
	gosync "sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskcheck/internal/model"
	"github.com/nhle/taskcheck/internal/store"
)

// Source is the part of the store the syncer subscribes to.
type Source interface {
	WatchCategories(ctx context.Context, fn func([]model.Category)) (store.UnsubscribeFunc, error)
	WatchTasks(ctx context.Context, fn func([]model.Task)) (store.UnsubscribeFunc, error)
	WatchCheckItems(ctx context.Context, fn func([]model.CheckItem)) (store.UnsubscribeFunc, error)
	WatchTaskChecks(ctx context.Context, fn func([]model.TaskCheck)) (store.UnsubscribeFunc, error)
}

// StateMsg is a tea.Msg carrying the latest state of a session.
type StateMsg struct {
	SessionID uint64
	State     model.Snapshot
}

// Syncer keeps an in-memory copy of the four tables up to date. Only one
// session is current at a time; starting a new one ends the previous one.
type Syncer struct {
	src    Source
	logger *log.Logger

	// setupMu serializes subscription setup across sessions.
	setupMu gosync.Mutex

	mu     gosync.Mutex
	seq    uint64
	active *Session
}

// New creates a Syncer reading from src. A nil logger logs to stderr.
func New(src Source, logger *log.Logger) *Syncer {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Syncer{src: src, logger: logger}
}

// Session is one run of live syncing, identified by a token minted in Start.
type Session struct {
	id     uint64
	syncer *Syncer
	cancel context.CancelFunc

	mu      gosync.Mutex
	state   model.Snapshot
	handles []store.UnsubscribeFunc
	stopped bool

	ready    chan struct{}
	done     chan struct{}
	updates  chan model.Snapshot
	stopOnce gosync.Once
}

// Start exposes initial as the current state right away and subscribes to
// every table in the background. Any previous session is stopped first.
func (s *Syncer) Start(ctx context.Context, initial model.Snapshot) *Session {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.seq++
	sess := &Session{
		id:      s.seq,
		syncer:  s,
		cancel:  cancel,
		state:   initial.Clone(),
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
		updates: make(chan model.Snapshot, 1),
	}
	prev := s.active
	s.active = sess
	s.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}

	go s.setup(ctx, sess)
	return sess
}

// Current returns the session started last, or nil once it has stopped.
func (s *Syncer) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Syncer) isCurrent(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil && s.active.id == id
}

func (s *Syncer) release(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == sess {
		s.active = nil
	}
}

// setup establishes one subscription per table. A failed subscription is
// logged and its collection keeps its last known rows.
func (s *Syncer) setup(ctx context.Context, sess *Session) {
	s.setupMu.Lock()
	defer s.setupMu.Unlock()
	defer close(sess.ready)

	steps := []struct {
		table store.Table
		watch func() (store.UnsubscribeFunc, error)
	}{
		{store.TableCategories, func() (store.UnsubscribeFunc, error) {
			return s.src.WatchCategories(ctx, func(rows []model.Category) {
				sess.apply(func(st *model.Snapshot) { st.Categories = rows })
			})
		}},
		{store.TableTasks, func() (store.UnsubscribeFunc, error) {
			return s.src.WatchTasks(ctx, func(rows []model.Task) {
				sess.apply(func(st *model.Snapshot) { st.Tasks = rows })
			})
		}},
		{store.TableCheckItems, func() (store.UnsubscribeFunc, error) {
			return s.src.WatchCheckItems(ctx, func(rows []model.CheckItem) {
				sess.apply(func(st *model.Snapshot) { st.CheckItems = rows })
			})
		}},
		{store.TableTaskChecks, func() (store.UnsubscribeFunc, error) {
			return s.src.WatchTaskChecks(ctx, func(rows []model.TaskCheck) {
				sess.apply(func(st *model.Snapshot) { st.TaskChecks = rows })
			})
		}},
	}

	for _, step := range steps {
		if !sess.alive() {
			return
		}
		unsub, err := step.watch()
		if err != nil {
			s.logger.Printf("session %d: subscribing to %s: %v", sess.id, step.table, err)
			continue
		}
		sess.adopt(unsub)
	}
}

// ID returns the session token.
func (sess *Session) ID() uint64 { return sess.id }

// State returns a copy of the current state.
func (sess *Session) State() model.Snapshot {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state.Clone()
}

// Ready is closed once subscription setup has finished, successfully or not.
func (sess *Session) Ready() <-chan struct{} { return sess.ready }

// Done is closed when the session stops.
func (sess *Session) Done() <-chan struct{} { return sess.done }

// Updates delivers the state after each change. Only the newest undelivered
// state is kept.
func (sess *Session) Updates() <-chan model.Snapshot { return sess.updates }

// WaitForUpdate returns a tea.Cmd that waits for the next state. It yields
// nil once the session has stopped.
func (sess *Session) WaitForUpdate() tea.Cmd {
	return func() tea.Msg {
		select {
		case st := <-sess.updates:
			return StateMsg{SessionID: sess.id, State: st}
		case <-sess.done:
			return nil
		}
	}
}

// Stop tears down every subscription the session holds. Subscriptions that
// finish establishing afterwards are torn down as soon as they arrive.
// Safe to call more than once.
func (sess *Session) Stop() {
	sess.stopOnce.Do(func() {
		sess.mu.Lock()
		sess.stopped = true
		handles := sess.handles
		sess.handles = nil
		sess.mu.Unlock()

		// Callbacks take sess.mu, so unsubscribing must happen unlocked.
		for _, unsub := range handles {
			unsub()
		}
		sess.cancel()
		sess.syncer.release(sess)
		close(sess.done)
	})
}

func (sess *Session) alive() bool {
	sess.mu.Lock()
	stopped := sess.stopped
	sess.mu.Unlock()
	return !stopped && sess.syncer.isCurrent(sess.id)
}

// adopt keeps a freshly established handle, or drops it right away when the
// session ended while it was being set up.
func (sess *Session) adopt(unsub store.UnsubscribeFunc) {
	sess.mu.Lock()
	if !sess.stopped {
		sess.handles = append(sess.handles, unsub)
		sess.mu.Unlock()
		return
	}
	sess.mu.Unlock()
	unsub()
}

// apply replaces one collection and publishes the result, provided the
// session is still the current one.
func (sess *Session) apply(mutate func(*model.Snapshot)) {
	if !sess.syncer.isCurrent(sess.id) {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.stopped {
		return
	}
	mutate(&sess.state)
	sess.publish(sess.state.Clone())
}

// publish replaces any pending update with st. Callers hold sess.mu.
func (sess *Session) publish(st model.Snapshot) {
	select {
	case <-sess.updates:
	default:
	}
	select {
	case sess.updates <- st:
	default:
	}
}
