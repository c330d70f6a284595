package analyzer

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

func TestNewWorkerPool(t *testing.T) {
	pool := NewWorkerPool(4)
	if pool == nil {
		t.Fatal("Expected non-nil worker pool")
	}
	if pool.Workers() != 4 {
		t.Errorf("Expected 4 workers, got %d", pool.Workers())
	}
}

func TestNewWorkerPool_ZeroWorkers(t *testing.T) {
	pool := NewWorkerPool(0)
	if pool.Workers() != runtime.NumCPU() {
		t.Errorf("Expected %d workers, got %d", runtime.NumCPU(), pool.Workers())
	}
}

func TestWorkerPool_Submit(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Start()
	defer pool.Close()

	var counter int
	var mu sync.Mutex

	for i := 0; i < 5; i++ {
		pool.Submit(func() {
			mu.Lock()
			counter++
			mu.Unlock()
		})
	}

	pool.Wait()

	if counter != 5 {
		t.Errorf("Expected counter to be 5, got %d", counter)
	}
}

func TestWorkerPool_Concurrent(t *testing.T) {
	pool := NewWorkerPool(3)
	pool.Start()
	defer pool.Close()

	// More jobs than the queue holds, so Submit has to block
	const numJobs = 50
	results := make([]int, numJobs)

	for i := 0; i < numJobs; i++ {
		value := i
		pool.Submit(func() {
			results[value] = value * 2
		})
	}

	pool.Wait()

	for i, v := range results {
		if v != i*2 {
			t.Errorf("Expected results[%d] = %d, got %d", i, i*2, v)
		}
	}
}

func TestWorkerPool_StartOnce(t *testing.T) {
	pool := NewWorkerPool(2)

	// Start should be idempotent
	pool.Start()
	pool.Start()

	defer pool.Close()

	var executed atomic.Bool
	pool.Submit(func() {
		executed.Store(true)
	})

	pool.Wait()

	if !executed.Load() {
		t.Error("Expected job to be executed")
	}
}

func TestWorkerPool_CloseTwice(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Start()

	var executed atomic.Bool
	pool.Submit(func() {
		executed.Store(true)
	})

	pool.Wait()
	pool.Close()
	pool.Close() // Should not panic

	if !executed.Load() {
		t.Error("Expected job to be executed before close")
	}
}
