// internal/services/lock_manager.go
package services

import (
	"sync"
	"time"
)

// LockManager hands out one mutex per session
type LockManager struct {
	sessionLocks map[string]*LockInfo
	globalLock   sync.Mutex
	lockTTL      time.Duration
	stop         chan struct{}
	stopOnce     sync.Once
}

// LockInfo wraps a session mutex with usage bookkeeping
type LockInfo struct {
	Mutex    *sync.Mutex
	LastUsed time.Time
	refs     int
}

// NewLockManager creates a lock manager that forgets locks idle longer than ttl
func NewLockManager(ttl time.Duration) *LockManager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	lm := &LockManager{
		sessionLocks: make(map[string]*LockInfo),
		lockTTL:      ttl,
		stop:         make(chan struct{}),
	}
	go lm.cleanupLoop(ttl / 2)
	return lm
}

// ExecuteWithSessionLock runs fn while holding the session's lock
func (lm *LockManager) ExecuteWithSessionLock(sessionID string, fn func() error) error {
	info := lm.acquire(sessionID)
	info.Mutex.Lock()
	defer func() {
		info.Mutex.Unlock()
		lm.release(sessionID, info)
	}()
	return fn()
}

// Forget drops the lock of a deleted session
func (lm *LockManager) Forget(sessionID string) {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	if info, ok := lm.sessionLocks[sessionID]; ok && info.refs == 0 {
		delete(lm.sessionLocks, sessionID)
	}
}

// Len returns the number of tracked locks
func (lm *LockManager) Len() int {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()
	return len(lm.sessionLocks)
}

// Stop ends the cleanup loop
func (lm *LockManager) Stop() {
	lm.stopOnce.Do(func() { close(lm.stop) })
}

func (lm *LockManager) acquire(sessionID string) *LockInfo {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	info, ok := lm.sessionLocks[sessionID]
	if !ok {
		info = &LockInfo{Mutex: &sync.Mutex{}}
		lm.sessionLocks[sessionID] = info
	}
	info.refs++
	info.LastUsed = time.Now()
	return info
}

func (lm *LockManager) release(sessionID string, info *LockInfo) {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	info.refs--
	info.LastUsed = time.Now()
}

func (lm *LockManager) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lm.cleanupUnusedLocks(time.Now())
		case <-lm.stop:
			return
		}
	}
}

// cleanupUnusedLocks never drops a lock that is currently referenced
func (lm *LockManager) cleanupUnusedLocks(now time.Time) int {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	removed := 0
	for sessionID, info := range lm.sessionLocks {
		if info.refs == 0 && now.Sub(info.LastUsed) > lm.lockTTL {
			delete(lm.sessionLocks, sessionID)
			removed++
		}
	}
	return removed
}
