package ksync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalStateInitOnce(t *testing.T) {
	var g GlobalState[int]
	require.True(t, g.Init(42))
	require.False(t, g.Init(7))
	g.With(func(v int) { assert.Equal(t, 42, v) })
}

func TestWaitQueueWakeOne(t *testing.T) {
	var wq WaitQueue[int64]
	var wg sync.WaitGroup
	woken := make(chan int64, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		wq.Wait(context.Background(), 1)
		woken <- 1
	}()
	waitUntil(t, func() bool { return wq.Len() == 1 })
	assert.True(t, wq.WakeOne())
	wg.Wait()
	assert.Equal(t, int64(1), <-woken)
}

func TestMutexOwnershipViolation(t *testing.T) {
	var m Mutex
	m.Lock(1)
	err := m.Unlock(2)
	assert.Error(t, err)
	require.NoError(t, m.Unlock(1))
}

func TestSemaphoreBlocksUntilRelease(t *testing.T) {
	s := NewSemaphore(0)
	acquired := make(chan struct{})
	go func() {
		s.Acquire()
		close(acquired)
	}()
	select {
	case <-acquired:
		t.Fatal("acquired before release")
	case <-time.After(20 * time.Millisecond):
	}
	s.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("never acquired after release")
	}
}

func TestBarrierReleasesAllArrivals(t *testing.T) {
	b := NewBarrier(3)
	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		go func() {
			defer wg.Done()
			b.Wait()
		}()
	}
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("barrier never released")
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition never became true")
}
