package service

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// WaitTimeout is the maximum time a watcher waits for a change
	WaitTimeout = 25 * time.Second

	// WaitChannelBuffer size for notification channels
	WaitChannelBuffer = 1
)

// WaitRegistry tracks watchers waiting for a game's history to change
type WaitRegistry struct {
	mu       sync.RWMutex
	waiters  map[string][]*waitRequest // gameID → watchers
	shutdown chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

type waitRequest struct {
	version int           // history length the watcher has seen
	notify  chan struct{} // buffered, closed on shutdown
	timer   *time.Timer
}

// NewWaitRegistry creates a new wait registry
func NewWaitRegistry() *WaitRegistry {
	return &WaitRegistry{
		waiters:  make(map[string][]*waitRequest),
		shutdown: make(chan struct{}),
	}
}

// RegisterWait returns a channel that fires when the history length of the
// game moves away from version, on timeout, or when the game is removed.
func (w *WaitRegistry) RegisterWait(ctx context.Context, gameID string, version int) <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()

	req := &waitRequest{
		version: version,
		notify:  make(chan struct{}, WaitChannelBuffer),
	}
	req.timer = time.AfterFunc(WaitTimeout, func() {
		signal(req)
	})
	w.waiters[gameID] = append(w.waiters[gameID], req)

	out := make(chan struct{})
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer close(out)
		select {
		case <-ctx.Done():
		case <-req.notify:
		case <-w.shutdown:
		}
		w.removeWaiter(gameID, req)
	}()

	return out
}

// NotifyGame wakes watchers whose known version differs from version
func (w *WaitRegistry) NotifyGame(gameID string, version int) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, req := range w.waiters[gameID] {
		if req.version != version {
			signal(req)
		}
	}
}

// RemoveGame wakes and drops every watcher of a deleted game
func (w *WaitRegistry) RemoveGame(gameID string) {
	w.mu.Lock()
	waitList := w.waiters[gameID]
	delete(w.waiters, gameID)
	w.mu.Unlock()

	for _, req := range waitList {
		signal(req)
	}
}

// Watchers is the number of pending watchers of a game.
func (w *WaitRegistry) Watchers(gameID string) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.waiters[gameID])
}

// Shutdown releases every watcher and waits for their goroutines
func (w *WaitRegistry) Shutdown(timeout time.Duration) error {
	w.once.Do(func() { close(w.shutdown) })

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("wait registry shutdown timed out after %s", timeout)
	}
}

// signal never blocks; a pending signal is enough.
func signal(req *waitRequest) {
	select {
	case req.notify <- struct{}{}:
	default:
	}
}

func (w *WaitRegistry) removeWaiter(gameID string, req *waitRequest) {
	req.timer.Stop()

	w.mu.Lock()
	defer w.mu.Unlock()

	waitList := w.waiters[gameID]
	for i, waiter := range waitList {
		if waiter == req {
			w.waiters[gameID] = append(waitList[:i], waitList[i+1:]...)
			break
		}
	}
	if len(w.waiters[gameID]) == 0 {
		delete(w.waiters, gameID)
	}
}
