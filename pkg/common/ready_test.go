package common

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mbalug7/go-ad9854/pkg/hal"
	"github.com/stretchr/testify/require"
)

type testLine struct {
	mu    sync.Mutex
	level int
	err   error
}

func (l *testLine) SetValue(v int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = v
	return nil
}

func (l *testLine) Value() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level, l.err
}

func TestReadyWhenLineLow(t *testing.T) {
	line := &testLine{level: hal.Low}
	w := newReadyWaiter(line)

	ready, err := w.Ready()
	require.NoError(t, err)
	require.True(t, ready)

	require.NoError(t, w.WaitReady(10*time.Millisecond))
	require.Zero(t, w.pending())
}

func TestWaitReadyOnEdge(t *testing.T) {
	line := &testLine{level: hal.High}
	w := newReadyWaiter(line)

	done := make(chan error, 1)
	go func() {
		done <- w.WaitReady(time.Second)
	}()

	require.Eventually(t, func() bool { return w.pending() == 1 }, time.Second, time.Millisecond)
	_ = line.SetValue(hal.Low)
	w.notifyReceivers()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter not released")
	}
	require.Zero(t, w.pending())
}

func TestWaitReadyTimeout(t *testing.T) {
	w := newReadyWaiter(&testLine{level: hal.High})

	start := time.Now()
	err := w.WaitReady(20 * time.Millisecond)
	require.ErrorIs(t, err, hal.ErrTimeout)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	require.Zero(t, w.pending())
}

func TestReadyLineErrors(t *testing.T) {
	w := newReadyWaiter(nil)
	_, err := w.Ready()
	require.Error(t, err)

	boom := errors.New("boom")
	w = newReadyWaiter(&testLine{err: boom})
	err = w.WaitReady(time.Millisecond)
	require.ErrorIs(t, err, boom)
	require.Zero(t, w.pending())
}
