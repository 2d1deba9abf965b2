package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/emrgen/boxsync/internal/compress"
	"github.com/emrgen/boxsync/internal/dicom"
	"github.com/emrgen/boxsync/internal/liveness"
	"github.com/emrgen/boxsync/internal/model"
	"github.com/emrgen/boxsync/internal/service"
	"github.com/emrgen/boxsync/internal/storage"
	"github.com/emrgen/boxsync/internal/store"
	"github.com/emrgen/boxsync/internal/tester"
	"github.com/emrgen/boxsync/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// fakePeer offers its queued units one per poll, in order.
type fakePeer struct {
	mu       sync.Mutex
	offers   []*transport.WorkUnit
	payloads map[int64][]byte
	pollErr  error
	// when set, FetchPayload waits for it to close or the call to be canceled
	fetchGate chan struct{}

	polls   int
	fetches int
	acks    []*transport.WorkUnit
	reports []string
}

func (p *fakePeer) PollForWork(ctx context.Context) (*transport.WorkUnit, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.polls++
	if p.pollErr != nil {
		return nil, p.pollErr
	}
	if len(p.offers) == 0 {
		return nil, nil
	}
	unit := *p.offers[0]
	p.offers = p.offers[1:]
	return &unit, nil
}

func (p *fakePeer) FetchPayload(ctx context.Context, unit *transport.WorkUnit) ([]byte, error) {
	p.mu.Lock()
	p.fetches++
	gate := p.fetchGate
	data := p.payloads[unit.ID]
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return data, nil
}

func (p *fakePeer) Acknowledge(ctx context.Context, unit *transport.WorkUnit) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.acks = append(p.acks, unit)
	return nil
}

func (p *fakePeer) ReportFailure(ctx context.Context, unit *transport.WorkUnit, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, message)
	return nil
}

func (p *fakePeer) counts() (polls, fetches, acks, reports int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls, p.fetches, len(p.acks), len(p.reports)
}

func (p *fakePeer) setPollErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pollErr = err
}

// fakeInbox counts commits without storing anything.
type fakeInbox struct {
	mu       sync.Mutex
	receives int
}

func (f *fakeInbox) CheckDataset(ds *dicom.Dataset, useExtendedContexts bool) error {
	return dicom.CheckDataset(ds, useExtendedContexts)
}

func (f *fakeInbox) Receive(ctx context.Context, entry service.InboxEntry, ds *dicom.Dataset) (*model.Image, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receives++
	return &model.Image{ID: uint(f.receives), SOPInstanceUID: ds.Get(dicom.SOPInstanceUID)}, true, nil
}

func (f *fakeInbox) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.receives
}

type reverserFunc func(ctx context.Context, ds *dicom.Dataset) (*dicom.Dataset, error)

func (f reverserFunc) Reverse(ctx context.Context, ds *dicom.Dataset) (*dicom.Dataset, error) {
	return f(ctx, ds)
}

func payload(t *testing.T, sop string) []byte {
	t.Helper()

	ds := dicom.NewDataset()
	ds.Set(dicom.PatientID, "p1")
	ds.Set(dicom.PatientName, "Doe^Jane")
	ds.Set(dicom.StudyInstanceUID, "1.1")
	ds.Set(dicom.SeriesInstanceUID, "1.1.1")
	ds.Set(dicom.SOPInstanceUID, sop)
	ds.Set(dicom.SOPClassUID, "1.2.840.10008.5.1.4.1.1.2")
	ds.Set(dicom.TransferSyntaxUID, dicom.ImplicitVRLittleEndian)

	data, err := dicom.NewJSONCodec().Encode(ds)
	require.NoError(t, err)
	data, err = compress.NewGZip().Encode(data)
	require.NoError(t, err)
	return data
}

func unitFor(id int64) *transport.WorkUnit {
	return &transport.WorkUnit{ID: id, TransactionID: 100, SequenceNumber: id, TotalImageCount: 2, ImageID: id}
}

func newSession(t *testing.T, peer transport.Peer, inbox Committer, tracker Liveness, reverser Reverser, watchdog time.Duration) *Session {
	t.Helper()

	s, err := New(Options{
		Box:      &model.Box{ID: 1, Name: "remote", BaseURL: "http://remote"},
		Peer:     peer,
		Compress: compress.NewGZip(),
		Codec:    dicom.NewJSONCodec(),
		Reverser: reverser,
		Inbox:    inbox,
		Liveness: tracker,
		Config:   Config{WatchdogTimeout: watchdog},
	})
	require.NoError(t, err)

	s.Start()
	t.Cleanup(s.Stop)
	return s
}

func online(tracker *liveness.Tracker, want bool) func() bool {
	return func() bool {
		got, known := tracker.Online(1)
		return known && got == want
	}
}

func TestSession_Liveness(t *testing.T) {
	peer := &fakePeer{pollErr: fmt.Errorf("%w: connection refused", transport.ErrRequest)}
	tracker := liveness.NewTracker()
	s := newSession(t, peer, &fakeInbox{}, tracker, nil, time.Second)

	s.Tick()
	assert.Eventually(t, online(tracker, false), waitFor, tick)
	assert.Eventually(t, func() bool { return s.State() == Idle }, waitFor, tick)

	peer.setPollErr(nil)
	s.Tick()
	assert.Eventually(t, online(tracker, true), waitFor, tick)
	assert.Eventually(t, func() bool { return s.State() == Idle }, waitFor, tick)
}

func TestSession_SingleInFlight(t *testing.T) {
	gate := make(chan struct{})
	peer := &fakePeer{
		offers:    []*transport.WorkUnit{unitFor(1)},
		payloads:  map[int64][]byte{1: payload(t, "1.1.1.1")},
		fetchGate: gate,
	}
	inbox := &fakeInbox{}
	s := newSession(t, peer, inbox, liveness.NewTracker(), nil, time.Second)

	s.Tick()
	require.Eventually(t, func() bool { return s.State() == Fetching }, waitFor, tick)

	for i := 0; i < 5; i++ {
		s.Tick()
	}
	time.Sleep(50 * time.Millisecond)

	polls, fetches, _, _ := peer.counts()
	assert.Equal(t, 1, polls)
	assert.Equal(t, 1, fetches)
	assert.Equal(t, Fetching, s.State())

	close(gate)
	require.Eventually(t, func() bool { return s.State() == Idle }, waitFor, tick)

	assert.Equal(t, 1, inbox.count())
	assert.Eventually(t, func() bool {
		_, _, acks, _ := peer.counts()
		return acks == 1
	}, waitFor, tick)

	// the ack is followed by a poll without waiting for a tick
	polls, _, _, _ = peer.counts()
	assert.Equal(t, 2, polls)

	s.Tick()
	assert.Eventually(t, func() bool {
		polls, _, _, _ := peer.counts()
		return polls == 3
	}, waitFor, tick)
}

func TestSession_DrainsOutbox(t *testing.T) {
	peer := &fakePeer{
		offers:   []*transport.WorkUnit{unitFor(1), unitFor(2)},
		payloads: map[int64][]byte{1: payload(t, "1.1.1.1"), 2: payload(t, "1.1.1.2")},
	}
	inbox := &fakeInbox{}
	s := newSession(t, peer, inbox, liveness.NewTracker(), nil, time.Second)

	s.Tick()
	assert.Eventually(t, func() bool {
		polls, _, acks, _ := peer.counts()
		return polls == 3 && acks == 2 && s.State() == Idle
	}, waitFor, tick)
	assert.Equal(t, 2, inbox.count())
}

func TestSession_Watchdog(t *testing.T) {
	peer := &fakePeer{
		offers:    []*transport.WorkUnit{unitFor(1)},
		payloads:  map[int64][]byte{1: payload(t, "1.1.1.1")},
		fetchGate: make(chan struct{}),
	}
	inbox := &fakeInbox{}
	tracker := liveness.NewTracker()
	s := newSession(t, peer, inbox, tracker, nil, 50*time.Millisecond)

	s.Tick()
	require.Eventually(t, func() bool { return s.State() == Fetching }, waitFor, tick)
	require.Eventually(t, func() bool { return s.State() == Idle }, waitFor, tick)

	assert.Eventually(t, online(tracker, false), waitFor, tick)
	assert.Equal(t, 0, inbox.count())
	_, _, acks, reports := peer.counts()
	assert.Zero(t, acks)
	assert.Zero(t, reports, "an abandoned unit is not reported")
}

func TestSession_NoCycleWhileAbandonedCommitRuns(t *testing.T) {
	peer := &fakePeer{
		offers:   []*transport.WorkUnit{unitFor(1)},
		payloads: map[int64][]byte{1: payload(t, "1.1.1.1")},
	}
	release := make(chan struct{})
	// ignores cancellation on purpose
	reverser := reverserFunc(func(_ context.Context, ds *dicom.Dataset) (*dicom.Dataset, error) {
		<-release
		return ds, nil
	})
	s := newSession(t, peer, &fakeInbox{}, liveness.NewTracker(), reverser, 50*time.Millisecond)

	s.Tick()
	require.Eventually(t, func() bool { return s.State() == Committing }, waitFor, tick)
	require.Eventually(t, func() bool { return s.State() == Idle }, waitFor, tick)

	assert.Never(t, func() bool {
		s.Tick()
		polls, _, _, _ := peer.counts()
		return polls > 1
	}, 200*time.Millisecond, 10*time.Millisecond)

	close(release)
	assert.Eventually(t, func() bool {
		s.Tick()
		polls, _, _, _ := peer.counts()
		return polls > 1
	}, waitFor, tick)
}

func TestSession_ParseFailureReported(t *testing.T) {
	peer := &fakePeer{
		offers:   []*transport.WorkUnit{unitFor(1)},
		payloads: map[int64][]byte{1: []byte("not a payload")},
	}
	inbox := &fakeInbox{}
	s := newSession(t, peer, inbox, liveness.NewTracker(), nil, time.Second)

	s.Tick()
	require.Eventually(t, func() bool {
		_, _, _, reports := peer.counts()
		return reports == 1
	}, waitFor, tick)
	assert.Eventually(t, func() bool { return s.State() == Idle }, waitFor, tick)

	assert.Equal(t, 0, inbox.count())
	_, _, acks, _ := peer.counts()
	assert.Zero(t, acks)
}

func TestSession_ReversalFailureReported(t *testing.T) {
	peer := &fakePeer{
		offers:   []*transport.WorkUnit{unitFor(1)},
		payloads: map[int64][]byte{1: payload(t, "1.1.1.1")},
	}
	inbox := &fakeInbox{}
	reverser := reverserFunc(func(context.Context, *dicom.Dataset) (*dicom.Dataset, error) {
		return nil, errors.New("key store unavailable")
	})
	s := newSession(t, peer, inbox, liveness.NewTracker(), reverser, time.Second)

	s.Tick()
	require.Eventually(t, func() bool {
		_, _, _, reports := peer.counts()
		return reports == 1
	}, waitFor, tick)

	peer.mu.Lock()
	message := peer.reports[0]
	peer.mu.Unlock()
	assert.Contains(t, message, "key store unavailable")
	assert.Equal(t, 0, inbox.count())
}

func TestSession_DuplicateOfferAbsorbed(t *testing.T) {
	db := store.NewGormStore(tester.Setup(t))
	files, err := storage.NewFileStore(tester.DataDir(t))
	require.NoError(t, err)
	hierarchy := service.NewHierarchyService(db, files, dicom.NewJSONCodec(), nil)
	inbox := service.NewInboxService(db, hierarchy, nil)

	// the ack of the first delivery was lost, so the unit is offered again
	peer := &fakePeer{
		offers:   []*transport.WorkUnit{unitFor(1), unitFor(1)},
		payloads: map[int64][]byte{1: payload(t, "1.1.1.1")},
	}
	s := newSession(t, peer, inbox, liveness.NewTracker(), nil, time.Second)

	s.Tick()
	require.Eventually(t, func() bool {
		polls, _, acks, _ := peer.counts()
		return polls == 3 && acks == 2 && s.State() == Idle
	}, waitFor, tick)

	ledger, err := inbox.GetTransaction(context.TODO(), 1, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ledger.ReceivedImageCount)

	paths, err := db.ListImageFilePaths(context.TODO())
	require.NoError(t, err)
	assert.Len(t, paths, 1)
}

func TestSession_Stop(t *testing.T) {
	peer := &fakePeer{
		offers:    []*transport.WorkUnit{unitFor(1)},
		payloads:  map[int64][]byte{1: payload(t, "1.1.1.1")},
		fetchGate: make(chan struct{}),
	}
	s := newSession(t, peer, &fakeInbox{}, liveness.NewTracker(), nil, time.Minute)

	s.Tick()
	require.Eventually(t, func() bool { return s.State() == Fetching }, waitFor, tick)

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(waitFor):
		t.Fatal("session did not stop")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Class
	}{
		{fmt.Errorf("%w: refused", transport.ErrRequest), ClassTransport},
		{fmt.Errorf("%w: bad json", dicom.ErrParse), ClassParse},
		{fmt.Errorf("%w: missing", dicom.ErrMalformedDataset), ClassMalformed},
		{fmt.Errorf("%w: sop class", dicom.ErrUnsupportedContext), ClassUnsupported},
		{fmt.Errorf("%w: no key", service.ErrReversal), ClassReversal},
		{fmt.Errorf("%w: disk full", service.ErrStorage), ClassStorage},
		{ErrWatchdogTimeout, ClassWatchdog},
		{context.Canceled, ClassCanceled},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.err), c.err.Error())
	}
	assert.True(t, ClassTransport.Retryable())
	assert.False(t, ClassParse.Retryable())
}
