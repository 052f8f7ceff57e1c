package audio

import (
	"log"
	"sync"
)

// HighWaterWarning is the pending depth at which a queue logs, once, that its
// consumer is falling behind. The queue itself is unbounded.
const HighWaterWarning = 256

// QueueStats is a snapshot of a queue's pool and traffic.
type QueueStats struct {
	Allocated int // frames ever allocated into the arena
	Free      int // frames waiting in the pool
	Pending   int // frames pushed but not yet taken by the consumer
	HighWater int // largest pending depth seen
	Pushed    uint64
	Released  uint64
}

// Queue hands audio frames from one producer to one consumer.
//
// Frames live in an arena owned by the queue and cycle through three places:
// the free pool, the pending FIFO and the consumer's hands. The producer never
// waits for the consumer: when the pool is empty a new frame is allocated.
//
// Locking: mu guards pending and is the lock of cond; freeMu guards the arena
// and the pool. The two are never held together.
type Queue struct {
	// --- Pending ---

	mu      sync.Mutex
	cond    *sync.Cond
	pending []*Frame
	killed  bool // no more pushes; wakes the consumer

	// --- Pool ---

	freeMu sync.Mutex
	arena  []*Frame
	free   []int // arena slots ready for reuse

	// --- Stats (under mu) ---

	name      string
	highWater int
	warned    bool
	pushed    uint64
	released  uint64
}

// NewQueue creates an empty queue. name prefixes its log messages.
func NewQueue(name string) *Queue {
	q := &Queue{name: name}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Acquire takes a frame from the pool, allocating one when the pool is empty.
func (q *Queue) Acquire() *Frame {
	q.freeMu.Lock()
	defer q.freeMu.Unlock()
	if n := len(q.free); n > 0 {
		slot := q.free[n-1]
		q.free = q.free[:n-1]
		return q.arena[slot]
	}
	f := &Frame{slot: len(q.arena)}
	q.arena = append(q.arena, f)
	return f
}

// Release returns a frame taken from this queue to the pool.
func (q *Queue) Release(f *Frame) {
	q.freeMu.Lock()
	if f == nil || f.slot < 0 || f.slot >= len(q.arena) || q.arena[f.slot] != f {
		q.freeMu.Unlock()
		return
	}
	q.free = append(q.free, f.slot)
	q.freeMu.Unlock()

	q.mu.Lock()
	q.released++
	q.mu.Unlock()
}

// Push appends f to the pending FIFO and wakes the consumer. After Kill the
// frame goes straight back to the pool and Push returns false.
func (q *Queue) Push(f *Frame) bool {
	q.mu.Lock()
	if q.killed {
		q.mu.Unlock()
		q.Release(f)
		return false
	}
	q.pending = append(q.pending, f)
	q.pushed++
	depth := len(q.pending)
	if depth > q.highWater {
		q.highWater = depth
	}
	warn := depth >= HighWaterWarning && !q.warned
	if warn {
		q.warned = true
	}
	q.cond.Signal()
	q.mu.Unlock()

	if warn {
		log.Printf("Warning: %s audio queue holds %d frames, consumer is falling behind", q.name, depth)
	}
	return true
}

// Submit copies src into a pooled frame and pushes it.
func (q *Queue) Submit(src *Frame) bool {
	f := q.Acquire()
	f.CopyFrom(src)
	return q.Push(f)
}

// Wait blocks until frames are pending or the queue is killed, then moves
// every pending frame into buf in FIFO order. killed is true once Kill was
// called; the batch returned with it is the last one.
func (q *Queue) Wait(buf []*Frame) (batch []*Frame, killed bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.pending) == 0 && !q.killed {
		q.cond.Wait()
	}
	batch = append(buf, q.pending...)
	clear(q.pending)
	q.pending = q.pending[:0]
	return batch, q.killed
}

// Kill refuses further pushes and wakes the consumer. Frames already pending
// are still handed out by Wait.
func (q *Queue) Kill() {
	q.mu.Lock()
	q.killed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	s := QueueStats{
		Pending:   len(q.pending),
		HighWater: q.highWater,
		Pushed:    q.pushed,
		Released:  q.released,
	}
	q.mu.Unlock()

	q.freeMu.Lock()
	s.Allocated = len(q.arena)
	s.Free = len(q.free)
	q.freeMu.Unlock()
	return s
}
