package locking

import (
	"context"
	"sync"
	"time"

	"github.com/mcoot/stockgame/internal/model"
)

// DefaultTimeout is how long Acquire waits for a busy account
const DefaultTimeout = 5 * time.Second

// AccountLocks serializes mutations per player within one process.
// Different players never contend with each other.
type AccountLocks struct {
	timeout time.Duration

	mu    sync.Mutex
	locks map[model.PlayerID]*accountLock
}

type accountLock struct {
	sem  chan struct{} // capacity 1; holding the token means owning the account
	refs int           // goroutines holding or waiting on sem
}

// New creates an empty lock table. A non-positive timeout uses DefaultTimeout.
func New(timeout time.Duration) *AccountLocks {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &AccountLocks{
		timeout: timeout,
		locks:   make(map[model.PlayerID]*accountLock),
	}
}

// Acquire blocks until the player's lock is held and returns its release
// function. It fails with model.ErrAccountBusy after the timeout, or with
// the context's error if ctx ends first.
func (l *AccountLocks) Acquire(ctx context.Context, playerID model.PlayerID) (func(), error) {
	lock := l.ref(playerID)

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case lock.sem <- struct{}{}:
	case <-timer.C:
		l.unref(playerID)
		return nil, model.ErrAccountBusy
	case <-ctx.Done():
		l.unref(playerID)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lock.sem
			l.unref(playerID)
		})
	}, nil
}

// Len reports how many accounts currently have a holder or waiter
func (l *AccountLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *AccountLocks) ref(playerID model.PlayerID) *accountLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[playerID]
	if !ok {
		lock = &accountLock{sem: make(chan struct{}, 1)}
		l.locks[playerID] = lock
	}
	lock.refs++
	return lock
}

func (l *AccountLocks) unref(playerID model.PlayerID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock := l.locks[playerID]
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, playerID)
	}
}
