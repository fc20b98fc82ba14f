// Package workerpool implements the fixed worker pool from spec §4.6: N
// long-lived workers, each with its own FIFO queue and condition
// variable, fed by an atomic round-robin counter. Bounding the pool
// this way keeps memory and kernel-thread use flat under a connection
// flood, the tradeoff spec §4.6 calls out against a goroutine-per-
// connection design.
package workerpool

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Job is one unit of work dispatched to a worker.
type Job func()

type queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []Job
	closing bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *queue) push(j Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closing {
		return false
	}
	q.items = append(q.items, j)
	q.cond.Signal()
	return true
}

// pop blocks until an item is available or the queue is closing. It
// returns ok=false once closing and drained.
func (q *queue) pop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closing {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	j := q.items[0]
	q.items = q.items[1:]
	return j, true
}

func (q *queue) closeAndDrain() {
	q.mu.Lock()
	q.closing = true
	q.items = nil
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Pool is a fixed-size vector of worker queues, dispatched round-robin.
type Pool struct {
	logger  *zap.Logger
	queues  []*queue
	cursor  atomic.Uint64
	running atomic.Bool
	wg      sync.WaitGroup
}

// New builds a pool of n workers. Call Start to spawn them.
func New(n int, logger *zap.Logger) *Pool {
	p := &Pool{logger: logger, queues: make([]*queue, n)}
	for i := range p.queues {
		p.queues[i] = newQueue()
	}
	return p
}

// Start spawns the N worker goroutines.
func (p *Pool) Start() {
	p.running.Store(true)
	for i, q := range p.queues {
		p.wg.Add(1)
		go p.runWorker(i, q)
	}
}

func (p *Pool) runWorker(idx int, q *queue) {
	defer p.wg.Done()
	for {
		job, ok := q.pop()
		if !ok {
			return
		}
		p.runGuarded(idx, job)
	}
}

// runGuarded executes job inside a panic guard so one misbehaving
// connection never kills a worker (spec §4.6).
func (p *Pool) runGuarded(idx int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			if p.logger != nil {
				p.logger.Error("worker recovered from panic",
					zap.Int("worker", idx), zap.Any("panic", r))
			}
		}
	}()
	job()
}

// Submit pushes job to worker (cursor % N). It returns false if the pool
// has stopped accepting new work.
func (p *Pool) Submit(job Job) bool {
	if !p.running.Load() {
		return false
	}
	n := uint64(len(p.queues))
	idx := p.cursor.Add(1) % n
	return p.queues[idx].push(job)
}

// Stop clears the running flag, wakes every worker, and waits for them
// to drain and exit. Queued-but-not-yet-started items are discarded.
func (p *Pool) Stop() {
	p.running.Store(false)
	for _, q := range p.queues {
		q.closeAndDrain()
	}
	p.wg.Wait()
}
