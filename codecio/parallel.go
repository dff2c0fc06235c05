package codecio

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Executor runs independent units of work. Run calls fn(i) for every i in
// [0, n) and returns one of the errors returned by fn, if any. A nil
// Executor passed to this package means sequential execution with
// identical results.
type Executor interface {
	Run(n int, fn func(i int) error) error
}

// PoolConfig configures a WorkerPool.
type PoolConfig struct {
	// NumWorkers is the number of worker goroutines. 0 means runtime.GOMAXPROCS(0).
	NumWorkers int

	// GrainSize is the minimum work items per worker before parallelization.
	// If n < GrainSize * NumWorkers, Run executes sequentially.
	GrainSize int
}

// DefaultPoolConfig returns the default pool configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		NumWorkers: 0,
		GrainSize:  16,
	}
}

// WorkerPool is an Executor backed by a fixed set of goroutines. It may be
// shared by concurrent callers as long as they touch disjoint data.
type WorkerPool struct {
	config   PoolConfig
	tasks    chan func()
	once     sync.Once
	workerWg sync.WaitGroup
}

// NewWorkerPool starts a pool. Close releases its goroutines.
func NewWorkerPool(config PoolConfig) *WorkerPool {
	if config.NumWorkers <= 0 {
		config.NumWorkers = runtime.GOMAXPROCS(0)
	}
	if config.GrainSize <= 0 {
		config.GrainSize = 1
	}
	p := &WorkerPool{
		config: config,
		tasks:  make(chan func(), config.NumWorkers*4),
	}
	p.workerWg.Add(config.NumWorkers)
	for i := 0; i < config.NumWorkers; i++ {
		go p.worker()
	}
	return p
}

func (p *WorkerPool) worker() {
	defer p.workerWg.Done()
	for task := range p.tasks {
		task()
	}
}

// NumWorkers returns the number of worker goroutines.
func (p *WorkerPool) NumWorkers() int {
	if p == nil {
		return 1
	}
	return p.config.NumWorkers
}

// Run splits [0, n) into one contiguous chunk per worker. A chunk stops at
// its first error; other chunks run to completion.
//
// The calling goroutine claims chunks too, and workers are only offered
// work when they are idle, so Run may be called from inside another Run on
// the same pool. A nil *WorkerPool runs sequentially.
func (p *WorkerPool) Run(n int, fn func(i int) error) error {
	if p == nil {
		return runSequential(n, fn)
	}
	numWorkers := p.config.NumWorkers
	if numWorkers == 1 || n < p.config.GrainSize*numWorkers {
		return runSequential(n, fn)
	}

	chunkSize := (n + numWorkers - 1) / numWorkers
	numChunks := (n + chunkSize - 1) / chunkSize

	var next atomic.Int64
	var pending sync.WaitGroup
	var errOnce sync.Once
	var firstErr error
	pending.Add(numChunks)

	claim := func() {
		for {
			chunk := int(next.Add(1)) - 1
			if chunk >= numChunks {
				return
			}
			start := chunk * chunkSize
			end := min(start+chunkSize, n)
			for i := start; i < end; i++ {
				if err := fn(i); err != nil {
					errOnce.Do(func() { firstErr = err })
					break
				}
			}
			pending.Done()
		}
	}

	// Helpers that find every chunk claimed return at once.
	for h := 1; h < numChunks; h++ {
		select {
		case p.tasks <- claim:
		default:
		}
	}
	claim()
	pending.Wait()
	return firstErr
}

// Close stops the workers after queued tasks finish. Run must not be called
// after Close.
func (p *WorkerPool) Close() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		close(p.tasks)
	})
	p.workerWg.Wait()
}

// runOn runs fn on exec, or sequentially when exec is nil. A typed nil
// *WorkerPool is handled by WorkerPool.Run.
func runOn(exec Executor, n int, fn func(i int) error) error {
	if exec == nil {
		return runSequential(n, fn)
	}
	return exec.Run(n, fn)
}

func runSequential(n int, fn func(i int) error) error {
	for i := 0; i < n; i++ {
		if err := fn(i); err != nil {
			return err
		}
	}
	return nil
}
