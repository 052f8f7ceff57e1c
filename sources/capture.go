package sources

import (
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"

	"github.com/richinsley/goshaderfx/audio"
	"github.com/richinsley/goshaderfx/gfx"
	"github.com/richinsley/goshaderfx/host"
)

const CaptureID = "goshaderfx-source-capture"

const (
	KeyCaptureDevice     = "Source.Capture.Device"
	KeyCaptureSampleRate = "Source.Capture.SampleRate"
	KeyCaptureChannels   = "Source.Capture.Channels"
)

// OpenFunc opens the audio device a capture source reads from.
type OpenFunc func(name string, sampleRate, channels int) (audio.Device, error)

// OpenDevice opens a portaudio input, or a silent device for "null".
func OpenDevice(name string, sampleRate, channels int) (audio.Device, error) {
	if name == "null" {
		return audio.NewNullDevice(sampleRate, channels), nil
	}
	return audio.NewMicrophone(sampleRate, channels, name)
}

// Capture is an audio-only source. Chunks read from its device are published
// as planar frames on the device's callback goroutine.
type Capture struct {
	self *host.Source
	open OpenFunc

	mu      sync.Mutex // guards the running device
	dev     audio.Device
	name    string
	rate    int
	chans   int
	done    chan struct{}
	samples uint64 // frames published, for timestamps

	rms, peak atomic.Uint64 // float64 bits of the last chunk's dBFS levels
}

func CaptureFactory(open OpenFunc) *host.Factory {
	if open == nil {
		open = OpenDevice
	}
	return &host.Factory{
		ID:   CaptureID,
		Kind: host.KindInput,
		Name: "Audio Capture",
		Defaults: func(s *host.Settings) {
			s.SetDefaultString(KeyCaptureDevice, "")
			s.SetDefaultInt(KeyCaptureSampleRate, 48000)
			s.SetDefaultInt(KeyCaptureChannels, 2)
		},
		Create: func(h *host.Host, self *host.Source, s *host.Settings) (host.MediaSource, error) {
			c := &Capture{self: self, open: open}
			c.rms.Store(math.Float64bits(math.Inf(-1)))
			c.peak.Store(math.Float64bits(math.Inf(-1)))
			if err := c.restart(s); err != nil {
				return nil, err
			}
			return c, nil
		},
	}
}

func (c *Capture) Width() uint32                 { return 0 }
func (c *Capture) Height() uint32                { return 0 }
func (c *Capture) Activate()                     {}
func (c *Capture) Deactivate()                   {}
func (c *Capture) VideoTick(float64)             {}
func (c *Capture) VideoRender(effect gfx.Effect) {}

// Levels returns the RMS and peak level in dBFS of the latest chunk.
func (c *Capture) Levels() (rms, peak float64) {
	return math.Float64frombits(c.rms.Load()), math.Float64frombits(c.peak.Load())
}

func (c *Capture) Update(s *host.Settings) {
	if err := c.restart(s); err != nil {
		log.Printf("Warning: capture %s: %v", c.self.Name(), err)
	}
}

func (c *Capture) Properties() *host.Properties {
	props := host.NewProperties()
	props.AddText(KeyCaptureDevice, "Device")
	rate := props.AddList(KeyCaptureSampleRate, "Sample Rate")
	for _, r := range []string{"44100", "48000"} {
		rate.AddItem(r, r)
	}
	props.AddInt(KeyCaptureChannels, "Channels", 1, audio.MaxPlanes, 1)
	return props
}

// restart reopens the device when its settings changed.
func (c *Capture) restart(s *host.Settings) error {
	name := s.String(KeyCaptureDevice)
	rate := int(s.Int(KeyCaptureSampleRate))
	chans := int(s.Int(KeyCaptureChannels))
	if rate <= 0 || chans <= 0 || chans > audio.MaxPlanes {
		return fmt.Errorf("invalid capture format %d Hz, %d channels", rate, chans)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dev != nil && name == c.name && rate == c.rate && chans == c.chans {
		return nil
	}
	c.stopLocked()

	dev, err := c.open(name, rate, chans)
	if err != nil {
		return fmt.Errorf("%w: %v", host.ErrResourceUnavailable, err)
	}
	input, err := dev.Start()
	if err != nil {
		return fmt.Errorf("%w: failed to start audio device: %v", host.ErrResourceUnavailable, err)
	}
	c.dev, c.name, c.rate, c.chans = dev, name, rate, chans
	c.samples = 0
	c.done = make(chan struct{})

	frames := make(chan []float32, 8)
	meter := make(chan []float32, 8)
	audio.Tee(input, frames, meter)
	go c.publish(frames, dev.SampleRate(), dev.Channels(), c.done)
	go c.measure(meter)
	log.Printf("Capture %s started (%d Hz, %d channels)", c.self.Name(), dev.SampleRate(), dev.Channels())
	return nil
}

// publish is the source's audio thread.
func (c *Capture) publish(chunks <-chan []float32, rate, chans int, done chan struct{}) {
	defer close(done)
	for chunk := range chunks {
		ts := c.samples * 1e9 / uint64(rate)
		f := audio.Deinterleave(chunk, chans, uint32(rate), ts)
		c.samples += uint64(f.Frames)
		c.self.OutputAudio(f)
	}
}

func (c *Capture) measure(chunks <-chan []float32) {
	for chunk := range chunks {
		rms, peak := audio.Levels(chunk)
		c.rms.Store(math.Float64bits(rms))
		c.peak.Store(math.Float64bits(peak))
	}
}

// stopLocked stops the device and waits for the last chunk to be published.
func (c *Capture) stopLocked() {
	if c.dev == nil {
		return
	}
	if err := c.dev.Stop(); err != nil {
		log.Printf("Warning: capture %s: failed to stop audio device: %v", c.self.Name(), err)
	}
	<-c.done
	c.dev = nil
}

func (c *Capture) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}
