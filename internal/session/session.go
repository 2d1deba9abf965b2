package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/emrgen/boxsync/internal/compress"
	"github.com/emrgen/boxsync/internal/dicom"
	"github.com/emrgen/boxsync/internal/model"
	"github.com/emrgen/boxsync/internal/service"
	"github.com/emrgen/boxsync/internal/transport"
	"github.com/sirupsen/logrus"
)

const DefaultWatchdogTimeout = 60 * time.Second

// Reverser restores identifiers removed from a dataset before it was sent.
type Reverser interface {
	Reverse(ctx context.Context, ds *dicom.Dataset) (*dicom.Dataset, error)
}

// Committer stores received datasets together with their ledger entry.
type Committer interface {
	CheckDataset(ds *dicom.Dataset, useExtendedContexts bool) error
	Receive(ctx context.Context, entry service.InboxEntry, ds *dicom.Dataset) (*model.Image, bool, error)
}

// Liveness records whether the peer answered the last attempt.
type Liveness interface {
	SetOnline(boxID uint, online bool)
}

type Config struct {
	// WatchdogTimeout bounds the time a session may spend outside Idle
	// without receiving a result.
	WatchdogTimeout     time.Duration
	UseExtendedContexts bool
}

type Options struct {
	Box      *model.Box
	Peer     transport.Peer
	Compress compress.Compress
	Codec    dicom.Codec
	Reverser Reverser
	Inbox    Committer
	Liveness Liveness
	Config   Config
}

// Session drains the outbox of one remote box, one unit at a time. All
// state is owned by a single run loop; peer and storage calls run on their
// own goroutines and report back to it as events.
type Session struct {
	box      *model.Box
	peer     transport.Peer
	compress compress.Compress
	codec    dicom.Codec
	reverser Reverser
	inbox    Committer
	liveness Liveness
	cfg      Config

	ticks  chan struct{}
	events chan event

	mu    sync.RWMutex
	state State

	// owned by the run loop
	seq      uint64
	unit     *transport.WorkUnit
	cancelOp context.CancelFunc
	opDone   chan struct{}
	watchdog *time.Timer

	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	done    chan struct{}
}

func New(opts Options) (*Session, error) {
	if opts.Box == nil || opts.Peer == nil || opts.Codec == nil || opts.Inbox == nil {
		return nil, errors.New("session needs a box, a peer, a codec and an inbox")
	}
	if opts.Compress == nil {
		opts.Compress = compress.NewNop()
	}
	if opts.Reverser == nil {
		opts.Reverser = passThrough{}
	}
	if opts.Liveness == nil {
		opts.Liveness = nopLiveness{}
	}
	if opts.Config.WatchdogTimeout <= 0 {
		opts.Config.WatchdogTimeout = DefaultWatchdogTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	watchdog := time.NewTimer(opts.Config.WatchdogTimeout)
	watchdog.Stop()

	return &Session{
		box:      opts.Box,
		peer:     opts.Peer,
		compress: opts.Compress,
		codec:    opts.Codec,
		reverser: opts.Reverser,
		inbox:    opts.Inbox,
		liveness: opts.Liveness,
		cfg:      opts.Config,
		ticks:    make(chan struct{}, 1),
		events:   make(chan event),
		watchdog: watchdog,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}, nil
}

// Start runs the session loop until Stop is called.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	logrus.Infof("starting session for box %s at %s", s.box.Name, s.box.BaseURL)
	go s.run()
}

// Stop aborts any outstanding call and waits for the loop to exit. A commit
// interrupted by Stop is rolled back as a whole.
func (s *Session) Stop() {
	s.cancel()

	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if started {
		<-s.done
	}
}

// Tick asks the session to start a cycle. It never blocks; a tick that
// arrives while a cycle is running is dropped.
func (s *Session) Tick() {
	select {
	case s.ticks <- struct{}{}:
	default:
	}
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) BoxID() uint {
	return s.box.ID
}

func (s *Session) run() {
	defer close(s.done)
	defer s.watchdog.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.abandon()
			if s.opDone != nil {
				<-s.opDone
			}
			logrus.Infof("stopped session for box %s", s.box.Name)
			return
		case <-s.ticks:
			s.dispatch(event{kind: evTick})
		case e := <-s.events:
			s.dispatch(e)
		case <-s.watchdog.C:
			s.dispatch(event{kind: evWatchdog, seq: s.seq, err: ErrWatchdogTimeout})
		}
	}
}

func (s *Session) dispatch(e event) {
	state := s.State()

	h, ok := transitions[state][e.kind]
	if !ok {
		logrus.Debugf("box %s: discarding %s in state %s", s.box.Name, e.kind, state)
		return
	}
	if e.kind != evTick && e.seq != s.seq {
		logrus.Debugf("box %s: discarding stale %s", s.box.Name, e.kind)
		return
	}

	h(s, e)
}

// enter moves the session to state and re-arms the watchdog for it.
func (s *Session) enter(state State) {
	s.mu.Lock()
	from := s.state
	s.state = state
	s.mu.Unlock()

	if from != state {
		logrus.Debugf("box %s: %s -> %s", s.box.Name, from, state)
	}

	if state == Idle {
		s.watchdog.Stop()
		return
	}
	s.watchdog.Reset(s.cfg.WatchdogTimeout)
}

// launch runs op on its own goroutine under a fresh sequence number and
// delivers its result to the loop.
func (s *Session) launch(op func(ctx context.Context) event) {
	if s.cancelOp != nil {
		s.cancelOp()
	}

	s.seq++
	seq := s.seq
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancelOp = cancel
	done := make(chan struct{})
	s.opDone = done

	go func() {
		e := op(ctx)
		close(done)
		e.seq = seq
		select {
		case s.events <- e:
		case <-s.ctx.Done():
		}
	}()
}

// busy reports whether the goroutine of the last launched call is still
// running, which is the case for an abandoned call that ignores cancellation.
func (s *Session) busy() bool {
	if s.opDone == nil {
		return false
	}
	select {
	case <-s.opDone:
		return false
	default:
		return true
	}
}

// abandon drops the in-flight cycle. Its result, if it ever arrives, no
// longer matches the sequence number and is discarded.
func (s *Session) abandon() {
	if s.cancelOp != nil {
		s.cancelOp()
		s.cancelOp = nil
	}
	s.seq++
	s.unit = nil
}

func (s *Session) idle(online bool) {
	s.abandon()
	s.enter(Idle)
	s.liveness.SetOnline(s.box.ID, online)
}

type passThrough struct{}

func (passThrough) Reverse(_ context.Context, ds *dicom.Dataset) (*dicom.Dataset, error) {
	return ds, nil
}

type nopLiveness struct{}

func (nopLiveness) SetOnline(uint, bool) {}
