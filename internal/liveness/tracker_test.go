package liveness

import (
	"context"
	"sync"
	"testing"

	"github.com/emrgen/boxsync/internal/model"
	"github.com/emrgen/boxsync/internal/store"
	"github.com/emrgen/boxsync/internal/tester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	writes []bool
}

func (r *recordingSink) StoreStatus(_ context.Context, _ uint, online bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, online)
	return nil
}

func TestTracker_SetOnline(t *testing.T) {
	sink := &recordingSink{}
	tr := NewTracker(sink)

	_, known := tr.Online(1)
	assert.False(t, known)

	tr.SetOnline(1, false)
	tr.SetOnline(1, false)
	tr.SetOnline(1, true)
	tr.SetOnline(1, true)

	online, known := tr.Online(1)
	assert.True(t, known)
	assert.True(t, online)
	assert.Equal(t, []bool{false, true}, sink.writes)
	assert.Equal(t, map[uint]bool{1: true}, tr.Snapshot())
}

func TestTracker_Concurrent(t *testing.T) {
	tr := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr.SetOnline(uint(i%4), i%2 == 0)
		}(i)
	}
	wg.Wait()

	assert.Len(t, tr.Snapshot(), 4)
}

func TestStoreSink(t *testing.T) {
	s := store.NewGormStore(tester.Setup(t))
	box := &model.Box{Name: "remote", BaseURL: "http://remote"}
	require.NoError(t, s.CreateBox(context.TODO(), box))

	tr := NewTracker(NewStoreSink(s))
	tr.SetOnline(box.ID, true)

	got, err := s.GetBox(context.TODO(), box.ID)
	require.NoError(t, err)
	assert.True(t, got.Online)

	tr.SetOnline(box.ID, false)
	got, err = s.GetBox(context.TODO(), box.ID)
	require.NoError(t, err)
	assert.False(t, got.Online)
}
