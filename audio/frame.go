package audio

import "errors"

// ErrThreadTeardown is returned when a consumer goroutine exits abnormally.
var ErrThreadTeardown = errors.New("audio consumer exited abnormally")

// MaxPlanes is the largest number of channel planes a frame carries.
const MaxPlanes = 8

// Layout is the speaker layout of a frame.
type Layout int

const (
	LayoutUnknown Layout = iota
	LayoutMono
	LayoutStereo
	Layout2Point1
	Layout4Point0
	Layout4Point1
	Layout5Point1
	Layout7Point1
)

// Channels is the number of planes the layout uses.
func (l Layout) Channels() int {
	switch l {
	case LayoutMono:
		return 1
	case LayoutStereo:
		return 2
	case Layout2Point1:
		return 3
	case Layout4Point0:
		return 4
	case Layout4Point1:
		return 5
	case Layout5Point1:
		return 6
	case Layout7Point1:
		return 8
	default:
		return 0
	}
}

// LayoutForChannels returns the layout for a channel count.
func LayoutForChannels(n int) Layout {
	for l := LayoutMono; l <= Layout7Point1; l++ {
		if l.Channels() == n {
			return l
		}
	}
	return LayoutUnknown
}

// Frame is a block of planar float audio.
type Frame struct {
	// Planes holds one slice of Frames samples per channel.
	Planes     [][]float32
	Frames     uint32
	Timestamp  uint64
	SampleRate uint32
	Layout     Layout

	// slot is the frame's index in its queue's arena, -1 when not pooled.
	slot int
}

// NewFrame allocates a frame with channels zeroed planes of frames samples.
func NewFrame(channels int, frames uint32, sampleRate uint32) *Frame {
	f := &Frame{Frames: frames, SampleRate: sampleRate, Layout: LayoutForChannels(channels), slot: -1}
	f.Planes = make([][]float32, channels)
	for i := range f.Planes {
		f.Planes[i] = make([]float32, frames)
	}
	return f
}

// CopyFrom copies the samples and metadata of src into f, reusing f's plane
// storage when it is large enough.
func (f *Frame) CopyFrom(src *Frame) {
	n := len(src.Planes)
	if n > MaxPlanes {
		n = MaxPlanes
	}
	if cap(f.Planes) < n {
		planes := make([][]float32, n)
		copy(planes, f.Planes)
		f.Planes = planes
	}
	f.Planes = f.Planes[:n]
	for i := 0; i < n; i++ {
		in := src.Planes[i]
		if len(in) > int(src.Frames) {
			in = in[:src.Frames]
		}
		if cap(f.Planes[i]) < len(in) {
			f.Planes[i] = make([]float32, len(in))
		}
		f.Planes[i] = f.Planes[i][:len(in)]
		copy(f.Planes[i], in)
	}
	f.Frames = src.Frames
	f.Timestamp = src.Timestamp
	f.SampleRate = src.SampleRate
	f.Layout = src.Layout
}

// Interleaved returns the samples interleaved channel by channel.
func (f *Frame) Interleaved() []float32 {
	ch := len(f.Planes)
	out := make([]float32, int(f.Frames)*ch)
	for c, plane := range f.Planes {
		for i := 0; i < int(f.Frames) && i < len(plane); i++ {
			out[i*ch+c] = plane[i]
		}
	}
	return out
}

// Deinterleave builds a frame from interleaved samples.
func Deinterleave(samples []float32, channels int, sampleRate uint32, timestamp uint64) *Frame {
	if channels <= 0 {
		channels = 1
	}
	frames := uint32(len(samples) / channels)
	f := NewFrame(channels, frames, sampleRate)
	f.Timestamp = timestamp
	for i := 0; i < int(frames); i++ {
		for c := 0; c < channels; c++ {
			f.Planes[c][i] = samples[i*channels+c]
		}
	}
	return f
}
