package audio

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// State is the lifecycle state of a Forwarder.
type State int32

const (
	StateDisabled State = iota
	StateStarting
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ErrRunning is returned by Start when the consumer is already running.
var ErrRunning = errors.New("audio forwarder already running")

// Sink receives forwarded frames on the consumer goroutine. The frame is
// reused once the call returns.
type Sink func(f *Frame) error

// Forwarder moves frames from a producer thread to a sink through a Queue
// serviced by one consumer goroutine.
type Forwarder struct {
	name  string
	sink  Sink
	state atomic.Int32
	queue atomic.Pointer[Queue]

	mu   sync.Mutex // serializes Start and Stop
	done chan struct{}
	err  error // written by the consumer before done is closed

	delivered atomic.Uint64
}

// NewForwarder creates a disabled forwarder. name prefixes log messages.
func NewForwarder(name string, sink Sink) *Forwarder {
	return &Forwarder{name: name, sink: sink}
}

func (f *Forwarder) State() State { return State(f.state.Load()) }

// Delivered is the number of frames handed to the sink so far.
func (f *Forwarder) Delivered() uint64 { return f.delivered.Load() }

// Start spawns the consumer goroutine.
func (f *Forwarder) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.State() {
	case StateStarting, StateRunning, StateDraining:
		return ErrRunning
	case StateStopped:
		// a consumer that died on its own still has to be collected
		if f.done != nil {
			<-f.done
			f.queue.Store(nil)
		}
	}

	f.state.Store(int32(StateStarting))
	q := NewQueue(f.name)
	f.err = nil
	f.done = make(chan struct{})
	f.queue.Store(q)
	go f.run(q, f.done)
	f.state.Store(int32(StateRunning))
	return nil
}

// Submit copies src into the queue. It is called on the producer thread and
// never blocks on the consumer. Frames submitted while not running are
// dropped and Submit returns false.
func (f *Forwarder) Submit(src *Frame) bool {
	if f.State() != StateRunning {
		return false
	}
	q := f.queue.Load()
	if q == nil {
		return false
	}
	return q.Submit(src)
}

// Stop kills the queue, lets the consumer deliver everything already
// pending, joins it and discards the queue. It returns the final queue
// statistics and ErrThreadTeardown if the consumer had exited abnormally.
// Sink errors and panics never stop the consumer; they are only logged.
func (f *Forwarder) Stop() (QueueStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	q := f.queue.Load()
	if q == nil || f.done == nil {
		return QueueStats{}, nil
	}
	if f.State() == StateRunning {
		f.state.Store(int32(StateDraining))
	}
	q.Kill()
	<-f.done

	stats := q.Stats()
	err := f.err
	f.err = nil
	f.done = nil
	f.queue.Store(nil)
	f.state.Store(int32(StateStopped))
	return stats, err
}

func (f *Forwarder) run(q *Queue, done chan struct{}) {
	var batch []*Frame
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			// sink panics are trapped by deliver, this is a fault in the queue itself
			log.Printf("%s audio consumer stopped after a panic: %v", f.name, r)
			q.Kill()
			// undelivered frames go back to the pool
			rest, _ := q.Wait(batch)
			for _, fr := range rest {
				if fr != nil {
					q.Release(fr)
				}
			}
			f.err = fmt.Errorf("%s: %w: %v", f.name, ErrThreadTeardown, r)
			f.state.Store(int32(StateStopped))
		}
	}()

	var lastErr string
	for {
		var killed bool
		batch, killed = q.Wait(batch[:0])
		for i := range batch {
			fr := batch[i]
			batch[i] = nil
			if err := f.deliver(q, fr); err != nil && err.Error() != lastErr {
				lastErr = err.Error()
				log.Printf("Warning: %s failed to forward audio: %v", f.name, err)
			}
		}
		if killed {
			return
		}
	}
}

// deliver hands one frame to the sink and returns it to the pool. A panicking
// sink is reported as an error so the consumer keeps running.
func (f *Forwarder) deliver(q *Queue, fr *Frame) (err error) {
	defer q.Release(fr)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while forwarding: %v", r)
		}
	}()
	f.delivered.Add(1)
	return f.sink(fr)
}
