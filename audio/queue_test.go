package audio

import "testing"

func testFrame(v float32, ts uint64) *Frame {
	f := NewFrame(2, 4, 48000)
	for _, p := range f.Planes {
		for i := range p {
			p[i] = v
		}
	}
	f.Timestamp = ts
	return f
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue("test")
	for i := 1; i <= 3; i++ {
		if !q.Submit(testFrame(float32(i), uint64(i))) {
			t.Fatalf("submit %d refused", i)
		}
	}
	batch, killed := q.Wait(nil)
	if killed {
		t.Fatal("queue reported killed")
	}
	if len(batch) != 3 {
		t.Fatalf("got %d frames, want 3", len(batch))
	}
	for i, f := range batch {
		if f.Timestamp != uint64(i+1) {
			t.Errorf("frame %d has timestamp %d", i, f.Timestamp)
		}
		if f.Planes[1][3] != float32(i+1) {
			t.Errorf("frame %d has sample %v", i, f.Planes[1][3])
		}
		q.Release(f)
	}
	s := q.Stats()
	if s.Allocated != 3 || s.Free != 3 || s.Pending != 0 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestQueueReusesPool(t *testing.T) {
	q := NewQueue("test")
	for i := 0; i < 10; i++ {
		q.Submit(testFrame(0, uint64(i)))
		batch, _ := q.Wait(nil)
		for _, f := range batch {
			q.Release(f)
		}
	}
	if s := q.Stats(); s.Allocated != 1 {
		t.Errorf("allocated %d frames for a one-deep queue", s.Allocated)
	}
}

func TestQueueAllocatesWhenPoolEmpty(t *testing.T) {
	q := NewQueue("test")
	a := q.Acquire()
	b := q.Acquire()
	if a == b {
		t.Fatal("acquire returned the same frame twice")
	}
	q.Release(a)
	if c := q.Acquire(); c != a {
		t.Error("released frame was not reused")
	}
	if s := q.Stats(); s.Allocated != 2 {
		t.Errorf("allocated = %d, want 2", s.Allocated)
	}
}

func TestQueueKill(t *testing.T) {
	q := NewQueue("test")
	q.Submit(testFrame(1, 1))
	q.Kill()
	if q.Submit(testFrame(2, 2)) {
		t.Error("submit accepted after kill")
	}
	batch, killed := q.Wait(nil)
	if !killed {
		t.Error("killed not reported")
	}
	if len(batch) != 1 || batch[0].Timestamp != 1 {
		t.Fatalf("pending frame lost on kill: %v", batch)
	}
	q.Release(batch[0])
	if s := q.Stats(); s.Free != s.Allocated {
		t.Errorf("leaked frames: %+v", s)
	}
}

func TestQueueReleaseForeignFrame(t *testing.T) {
	q := NewQueue("test")
	q.Release(NewFrame(1, 1, 48000))
	q.Release(nil)
	if s := q.Stats(); s.Free != 0 {
		t.Errorf("foreign frame entered the pool: %+v", s)
	}
}

func TestFrameCopyFromReusesStorage(t *testing.T) {
	dst := NewFrame(2, 8, 44100)
	plane := dst.Planes[0]
	src := testFrame(0.5, 7)
	dst.CopyFrom(src)
	if dst.Frames != 4 || dst.Timestamp != 7 || dst.SampleRate != 48000 || dst.Layout != LayoutStereo {
		t.Errorf("metadata not copied: %+v", dst)
	}
	if &dst.Planes[0][0] != &plane[0] {
		t.Error("plane storage was reallocated")
	}
	src.Planes[0][0] = 9
	if dst.Planes[0][0] != 0.5 {
		t.Error("copy aliases the source")
	}
}

func TestDeinterleave(t *testing.T) {
	f := Deinterleave([]float32{1, 2, 3, 4, 5, 6}, 2, 48000, 10)
	if f.Frames != 3 || f.Layout != LayoutStereo {
		t.Fatalf("got %d frames layout %v", f.Frames, f.Layout)
	}
	if f.Planes[0][2] != 5 || f.Planes[1][0] != 2 {
		t.Errorf("planes %v", f.Planes)
	}
	got := f.Interleaved()
	for i, v := range []float32{1, 2, 3, 4, 5, 6} {
		if got[i] != v {
			t.Fatalf("interleaved %v", got)
		}
	}
}
