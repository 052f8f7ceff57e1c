package audio

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu    sync.Mutex
	stamp []uint64
	gate  chan struct{}
}

func (r *recordingSink) sink(f *Frame) error {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	r.stamp = append(r.stamp, f.Timestamp)
	r.mu.Unlock()
	return nil
}

func (r *recordingSink) timestamps() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.stamp...)
}

func TestForwarderDeliversInOrder(t *testing.T) {
	rec := &recordingSink{}
	f := NewForwarder("test", rec.sink)
	if err := f.Start(); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 3; i++ {
		if !f.Submit(testFrame(0, uint64(i))) {
			t.Fatalf("submit %d refused", i)
		}
	}
	stats, err := f.Stop()
	if err != nil {
		t.Fatal(err)
	}
	got := rec.timestamps()
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("delivered %v, want [1 2 3]", got)
	}
	if stats.Free != stats.Allocated {
		t.Errorf("leaked frames: %+v", stats)
	}
	if f.State() != StateStopped {
		t.Errorf("state %v after stop", f.State())
	}
}

func TestForwarderDrainsBeforeStop(t *testing.T) {
	rec := &recordingSink{gate: make(chan struct{})}
	f := NewForwarder("test", rec.sink)
	if err := f.Start(); err != nil {
		t.Fatal(err)
	}
	const n = 50
	for i := 0; i < n; i++ {
		f.Submit(testFrame(0, uint64(i)))
	}

	done := make(chan struct{})
	var stats QueueStats
	go func() {
		stats, _ = f.Stop()
		close(done)
	}()
	// the consumer is held by the gate, so Stop can't have finished
	select {
	case <-done:
		t.Fatal("stop returned before the queue drained")
	case <-time.After(20 * time.Millisecond):
	}
	close(rec.gate)
	<-done

	if got := len(rec.timestamps()); got != n {
		t.Errorf("delivered %d of %d frames", got, n)
	}
	if f.Delivered() != n {
		t.Errorf("Delivered() = %d", f.Delivered())
	}
	if stats.Free != stats.Allocated || stats.Pending != 0 {
		t.Errorf("leaked frames: %+v", stats)
	}
}

func TestForwarderSubmitWhenStopped(t *testing.T) {
	f := NewForwarder("test", func(*Frame) error { return nil })
	if f.Submit(testFrame(0, 1)) {
		t.Error("disabled forwarder accepted a frame")
	}
	if _, err := f.Stop(); err != nil {
		t.Errorf("stop of a never started forwarder: %v", err)
	}
	if err := f.Start(); err != nil {
		t.Fatal(err)
	}
	if err := f.Start(); !errors.Is(err, ErrRunning) {
		t.Errorf("second start returned %v", err)
	}
	f.Stop()
	if f.Submit(testFrame(0, 1)) {
		t.Error("stopped forwarder accepted a frame")
	}
}

func TestForwarderSinkPanicKeepsRunning(t *testing.T) {
	rec := &recordingSink{}
	f := NewForwarder("test", func(fr *Frame) error {
		if fr.Timestamp == 1 {
			panic("boom")
		}
		return rec.sink(fr)
	})
	if err := f.Start(); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 4; i++ {
		if !f.Submit(testFrame(0, uint64(i))) {
			t.Fatalf("frame %d refused", i)
		}
	}

	deadline := time.Now().Add(time.Second)
	for f.Delivered() < 4 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if f.State() != StateRunning {
		t.Errorf("state %v after a sink panic, want running", f.State())
	}
	if !f.Submit(testFrame(0, 5)) {
		t.Error("frame refused after a sink panic")
	}

	stats, err := f.Stop()
	if err != nil {
		t.Fatalf("stop returned %v", err)
	}
	if stats.Free != stats.Allocated {
		t.Errorf("leaked frames: %+v", stats)
	}
	got := rec.timestamps()
	want := []uint64{2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("delivered %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("delivered %v, want %v", got, want)
		}
	}
}

func TestForwarderSinkErrorKeepsRunning(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	f := NewForwarder("test", func(*Frame) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return errors.New("output unavailable")
	})
	f.Start()
	for i := 0; i < 5; i++ {
		f.Submit(testFrame(0, uint64(i)))
	}
	if _, err := f.Stop(); err != nil {
		t.Fatal(err)
	}
	if calls != 5 {
		t.Errorf("sink called %d times, want 5", calls)
	}
}
