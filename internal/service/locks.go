package service

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 256

// keyLocks serializes work per natural key without a global lock. Keys are
// hashed onto a fixed set of mutexes, so unrelated keys rarely contend.
type keyLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (k *keyLocks) lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &k.stripes[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}
