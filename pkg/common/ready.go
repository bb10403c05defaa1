package common

import (
	"fmt"
	"sync"
	"time"

	"github.com/mazen160/go-random"
	"github.com/mbalug7/go-ad9854/pkg/hal"
)

// readyWaiter implements hal.ReadySignal over an active low input line.
type readyWaiter struct {
	line      hal.Line
	waitGroup map[string]chan error // holds channels that wait for falling edge
	mu        sync.Mutex            // map protection mutex
}

func newReadyWaiter(line hal.Line) *readyWaiter {
	return &readyWaiter{
		line:      line,
		waitGroup: make(map[string]chan error),
	}
}

// notifyReceivers wakes every pending WaitReady, called on a falling edge.
func (obj *readyWaiter) notifyReceivers() {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	for id, ch := range obj.waitGroup {
		ch <- nil
		close(ch)
		delete(obj.waitGroup, id)
	}
}

// Ready reports whether the line is asserted.
func (obj *readyWaiter) Ready() (bool, error) {
	if obj.line == nil {
		return false, fmt.Errorf("ready line is not requested")
	}
	val, err := obj.line.Value()
	if err != nil {
		return false, fmt.Errorf("failed to get DRDY line value: %w", err)
	}
	return val == hal.Low, nil
}

// WaitReady blocks until the line is asserted or timeout elapses.
func (obj *readyWaiter) WaitReady(timeout time.Duration) error {
	id, err := random.String(16)
	if err != nil {
		return fmt.Errorf("failed to generate random id: %w", err)
	}
	// register before sampling the line so an edge in between is not lost
	ch := make(chan error, 1)
	obj.mu.Lock()
	obj.waitGroup[id] = ch
	obj.mu.Unlock()
	defer obj.unregister(id)

	ready, err := obj.Ready()
	if err != nil {
		return err
	}
	if ready {
		return nil
	}

	select {
	case <-time.After(timeout):
		return fmt.Errorf("failed to wait for DRDY: %w", hal.ErrTimeout)
	case err := <-ch:
		return err
	}
}

func (obj *readyWaiter) unregister(id string) {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	delete(obj.waitGroup, id)
}

// pending returns the number of registered waiters.
func (obj *readyWaiter) pending() int {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	return len(obj.waitGroup)
}
