package liveness

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const sinkTimeout = 5 * time.Second

// Sink receives status changes, e.g. to persist them.
type Sink interface {
	StoreStatus(ctx context.Context, boxID uint, online bool) error
}

// Tracker records the last known online status of each box. It keeps no
// history; the last write wins.
type Tracker struct {
	mu     sync.RWMutex
	status map[uint]bool
	sinks  []Sink
}

func NewTracker(sinks ...Sink) *Tracker {
	return &Tracker{
		status: make(map[uint]bool),
		sinks:  sinks,
	}
}

// SetOnline records the outcome of a poll attempt. Sinks are only written
// when the status changes.
func (t *Tracker) SetOnline(boxID uint, online bool) {
	t.mu.Lock()
	previous, known := t.status[boxID]
	t.status[boxID] = online
	t.mu.Unlock()

	if known && previous == online {
		return
	}

	if known {
		logrus.Infof("box %d is now %s", boxID, statusName(online))
	}

	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()
	for _, sink := range t.sinks {
		if err := sink.StoreStatus(ctx, boxID, online); err != nil {
			logrus.Errorf("failed to store status of box %d: %v", boxID, err)
		}
	}
}

// Online returns the status of a box and whether it has been observed.
func (t *Tracker) Online(boxID uint) (online bool, known bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	online, known = t.status[boxID]
	return online, known
}

func (t *Tracker) Snapshot() map[uint]bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snapshot := make(map[uint]bool, len(t.status))
	for id, online := range t.status {
		snapshot[id] = online
	}
	return snapshot
}

func statusName(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}

// BoxStatusStore is the persistence a StoreSink writes to.
type BoxStatusStore interface {
	UpdateBoxOnline(ctx context.Context, id uint, online bool) error
}

// StoreSink persists status on the box row.
type StoreSink struct {
	store BoxStatusStore
}

func NewStoreSink(store BoxStatusStore) *StoreSink {
	return &StoreSink{store: store}
}

func (s *StoreSink) StoreStatus(ctx context.Context, boxID uint, online bool) error {
	return s.store.UpdateBoxOnline(ctx, boxID, online)
}
