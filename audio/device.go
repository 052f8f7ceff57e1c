package audio

// We'll be using portaudio for audio input handling.
// macos:	brew install portaudio
// debian:	sudo apt-get install portaudio19-dev
// windows:	pacman -S mingw-w64-x86_64-portaudio

// Device produces interleaved float32 chunks.
type Device interface {
	// Start begins capture and returns a receive-only channel of interleaved
	// chunks. The channel is closed by Stop.
	Start() (<-chan []float32, error)
	Stop() error
	SampleRate() int
	Channels() int
}

// NullDevice is a Device that never produces audio.
type NullDevice struct {
	rate     int
	channels int
	ch       chan []float32
}

func NewNullDevice(sampleRate, channels int) *NullDevice {
	return &NullDevice{rate: sampleRate, channels: channels}
}

// Start returns a channel that stays empty until Stop closes it.
func (d *NullDevice) Start() (<-chan []float32, error) {
	d.ch = make(chan []float32)
	return d.ch, nil
}

func (d *NullDevice) Stop() error {
	if d.ch != nil {
		close(d.ch)
		d.ch = nil
	}
	return nil
}

func (d *NullDevice) SampleRate() int { return d.rate }
func (d *NullDevice) Channels() int   { return d.channels }
