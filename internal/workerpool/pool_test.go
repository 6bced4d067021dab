package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolExecutesTasks(t *testing.T) {
	pool := New(4, 16)
	defer pool.Shutdown()

	var count int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		ok := pool.Submit(func() {
			defer wg.Done()
			atomic.AddInt64(&count, 1)
		})
		if !ok {
			t.Fatal("Submit returned false on running pool")
		}
	}
	wg.Wait()

	if got := atomic.LoadInt64(&count); got != 20 {
		t.Errorf("executed %d tasks, want 20", got)
	}
}

func TestTrySubmitFullQueue(t *testing.T) {
	pool := New(1, 1)
	defer pool.Shutdown()

	block := make(chan struct{})
	// 占住唯一的 worker
	pool.Submit(func() { <-block })
	// 占满队列
	pool.Submit(func() {})

	// 等待 worker 取走第一个任务
	deadline := time.After(time.Second)
	for pool.QueueDepth() != 1 {
		select {
		case <-deadline:
			close(block)
			t.Fatal("worker did not pick up blocking task")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	pool.Submit(func() {}) // 重新占满队列

	if pool.TrySubmit(func() {}) {
		t.Error("TrySubmit succeeded on full queue")
	}
	close(block)
}

// 任务 panic 不得拖垮 worker
func TestPoolRecoversFromPanic(t *testing.T) {
	pool := New(1, 4)
	defer pool.Shutdown()

	pool.Submit(func() { panic("boom") })

	done := make(chan struct{})
	pool.Submit(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker dead after task panic")
	}
}

func TestSubmitAfterShutdown(t *testing.T) {
	pool := New(1, 1)
	pool.Shutdown()

	if pool.Submit(func() {}) {
		t.Error("Submit succeeded after shutdown")
	}
	if pool.TrySubmit(func() {}) {
		t.Error("TrySubmit succeeded after shutdown")
	}
}
