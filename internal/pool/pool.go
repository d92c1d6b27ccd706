// Package pool provides the bounded worker pools the executor dispatches
// async and stream tasks onto. A pool has a fixed number of workers and a
// bounded FIFO queue; submissions beyond both capacities are rejected
// immediately with gateway.ErrQueueFull so callers can surface a retryable
// error instead of blocking.
package pool

import (
	"sync"

	"switchboard/internal/gateway"
	"switchboard/pkg/logging"
)

// Task is one unit of work. Tasks are not cancellable once started; a task
// that needs a deadline must carry its own context.
type Task func()

// Status is a point-in-time snapshot of a pool's occupancy.
type Status struct {
	// Idle is the number of workers waiting for work.
	Idle int `json:"idle"`

	// Busy is the number of workers currently running a task.
	Busy int `json:"busy"`

	// Queued is the number of accepted tasks waiting for a worker.
	Queued int `json:"queued"`
}

// Pool is a fixed-size worker pool with a bounded queue.
//
// Accounting is exact: Submit accepts a task if and only if a worker is
// idle or the queue has room at the instant of the call, so a pool of size
// N with queue capacity Q accepts at most N+Q concurrent tasks and rejects
// the next one instead of buffering it.
type Pool struct {
	name     string
	size     int
	maxQueue int

	mu      sync.Mutex
	pending []Task
	idle    int
	busy    int
	running bool

	taskCh chan Task
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a stopped pool. name appears in log lines so the async and
// stream pools are distinguishable.
func New(name string, size, maxQueue int) *Pool {
	if size < 1 {
		size = 1
	}
	if maxQueue < 0 {
		maxQueue = 0
	}
	return &Pool{
		name:     name,
		size:     size,
		maxQueue: maxQueue,
	}
}

// Start launches the workers. Starting a running pool is a no-op.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}

	p.taskCh = make(chan Task, p.size)
	p.stopCh = make(chan struct{})
	p.idle = p.size
	p.busy = 0
	p.pending = nil
	p.running = true

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	logging.Info("Pool", "Pool %s started with %d workers, queue capacity %d", p.name, p.size, p.maxQueue)
}

// Stop rejects further submissions, waits for running tasks to finish and
// discards queued ones. Stopping a stopped pool is a no-op.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	dropped := len(p.pending)
	p.pending = nil
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	if dropped > 0 {
		logging.Warn("Pool", "Pool %s stopped, %d queued tasks discarded", p.name, dropped)
	} else {
		logging.Info("Pool", "Pool %s stopped", p.name)
	}
}

// Submit hands a task to the pool. It returns nil when the task was
// dispatched to an idle worker or queued, and gateway.ErrQueueFull when all
// workers are busy and the queue is at capacity. Submit never blocks.
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return gateway.ErrQueueFull
	}
	if p.idle > 0 {
		// taskCh has one buffer slot per worker, so with an idle worker
		// accounted this send cannot block.
		p.idle--
		p.busy++
		p.taskCh <- task
		return nil
	}
	if len(p.pending) < p.maxQueue {
		p.pending = append(p.pending, task)
		return nil
	}
	logging.Debug("Pool", "Pool %s rejecting task: %d busy, %d queued", p.name, p.busy, len(p.pending))
	return gateway.ErrQueueFull
}

// Status reports current occupancy.
func (p *Pool) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{Idle: p.idle, Busy: p.busy, Queued: len(p.pending)}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		select {
		case <-p.stopCh:
			return
		case task := <-p.taskCh:
			for task != nil {
				p.runTask(id, task)
				task = p.next()
			}
		}
	}
}

// next is called by a worker that just finished a task. It either pops the
// oldest queued task, keeping the worker busy, or returns the worker to the
// idle set.
func (p *Pool) next() Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) > 0 {
		task := p.pending[0]
		p.pending = p.pending[1:]
		return task
	}
	p.busy--
	p.idle++
	return nil
}

// runTask executes one task. A panicking task is logged and swallowed; the
// worker stays in service so one bad task cannot shrink the pool.
func (p *Pool) runTask(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Pool", nil, "Pool %s worker %d recovered from task panic: %v", p.name, id, r)
		}
	}()
	task()
}
