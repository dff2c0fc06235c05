package codecio

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPoolRun(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{NumWorkers: 4, GrainSize: 1})
	defer pool.Close()

	var count int64
	results := make([]int, 1000)
	err := pool.Run(len(results), func(i int) error {
		atomic.AddInt64(&count, 1)
		results[i] = i * 2
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if count != 1000 {
		t.Errorf("Run processed %d items, want 1000", count)
	}
	for i, v := range results {
		if v != i*2 {
			t.Fatalf("results[%d] = %d, want %d", i, v, i*2)
		}
	}
}

func TestWorkerPoolRunError(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{NumWorkers: 3, GrainSize: 1})
	defer pool.Close()

	want := errors.New("row failed")
	err := pool.Run(100, func(i int) error {
		if i == 50 {
			return want
		}
		return nil
	})
	if err != want {
		t.Errorf("Run() error = %v, want %v", err, want)
	}
}

func TestWorkerPoolSmallRunsSequentially(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{NumWorkers: 4, GrainSize: 16})
	defer pool.Close()

	var order []int
	err := pool.Run(8, func(i int) error {
		order = append(order, i)
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want sequential", order)
		}
	}
}

func TestRunOnNilExecutor(t *testing.T) {
	var order []int
	stop := errors.New("stop")
	err := runOn(nil, 10, func(i int) error {
		order = append(order, i)
		if i == 4 {
			return stop
		}
		return nil
	})
	if err != stop {
		t.Errorf("runOn() error = %v, want stop", err)
	}
	if len(order) != 5 {
		t.Errorf("runOn visited %v, want 0..4", order)
	}
}

func TestDefaultPoolConfig(t *testing.T) {
	pool := NewWorkerPool(DefaultPoolConfig())
	defer pool.Close()
	if pool.NumWorkers() < 1 {
		t.Errorf("NumWorkers() = %d, want >= 1", pool.NumWorkers())
	}
}

func TestWorkerPoolNestedRun(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{NumWorkers: 2, GrainSize: 1})
	defer pool.Close()

	var count atomic.Int64
	done := make(chan error, 1)
	go func() {
		done <- pool.Run(16, func(i int) error {
			return pool.Run(64, func(j int) error {
				count.Add(1)
				return nil
			})
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("nested Run did not finish")
	}
	if got := count.Load(); got != 16*64 {
		t.Errorf("nested Run processed %d items, want %d", got, 16*64)
	}
}

func TestNilWorkerPoolRunsSequentially(t *testing.T) {
	var pool *WorkerPool
	var exec Executor = pool

	var order []int
	err := runOn(exec, 5, func(i int) error {
		order = append(order, i)
		return nil
	})
	if err != nil {
		t.Fatalf("runOn() error = %v", err)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want sequential", order)
		}
	}
	if len(order) != 5 {
		t.Errorf("ran %d items, want 5", len(order))
	}
	if pool.NumWorkers() != 1 {
		t.Errorf("NumWorkers() = %d, want 1", pool.NumWorkers())
	}
	pool.Close()
}
