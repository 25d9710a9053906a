package usecase

import "sync"

// keyedMutex serializes operations per auction id. External transfers are
// never made while holding a key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*sync.Mutex{}}
}

// WithInstanceLock runs fn while holding the instance's key, so logic swaps
// serialize with in-flight bids and settlements.
func (l *LogicV1) WithInstanceLock(auctionId string, fn func() error) error {
	unlock := l.locks.lock(auctionId)
	defer unlock()
	return fn()
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
