package audio

import (
	"fmt"
	"log"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// Microphone captures from a portaudio input device. Its callback runs on the
// portaudio thread, which plays the role of the host's audio thread.
type Microphone struct {
	sampleRate  int
	channels    int
	deviceName  string
	stream      *portaudio.Stream
	audioChan   chan []float32
	isStreaming bool
}

// NewMicrophone opens portaudio. An empty deviceName selects the default
// input device, otherwise the first device whose name contains it.
func NewMicrophone(sampleRate, channels int, deviceName string) (*Microphone, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	if channels <= 0 {
		channels = 1
	}
	return &Microphone{sampleRate: sampleRate, channels: channels, deviceName: deviceName}, nil
}

func (m *Microphone) audioCallback(in []float32) {
	// portaudio reuses its buffer
	dataCopy := make([]float32, len(in))
	copy(dataCopy, in)

	select {
	case m.audioChan <- dataCopy:
	default:
		log.Println("Warning: Audio channel buffer is full. Dropping audio frame.")
	}
}

func (m *Microphone) findDevice() (*portaudio.DeviceInfo, error) {
	if m.deviceName == "" {
		host, err := portaudio.DefaultHostApi()
		if err != nil {
			return nil, err
		}
		return host.DefaultInputDevice, nil
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if d.MaxInputChannels > 0 && strings.Contains(d.Name, m.deviceName) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no input device matching %q", m.deviceName)
}

func (m *Microphone) Start() (<-chan []float32, error) {
	m.audioChan = make(chan []float32, 16)

	dev, err := m.findDevice()
	if err != nil {
		close(m.audioChan)
		return nil, err
	}

	params := portaudio.HighLatencyParameters(dev, nil)
	params.Input.Channels = m.channels
	params.SampleRate = float64(m.sampleRate)

	stream, err := portaudio.OpenStream(params, m.audioCallback)
	if err != nil {
		close(m.audioChan)
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		close(m.audioChan)
		return nil, fmt.Errorf("failed to start audio stream: %w", err)
	}
	m.stream = stream
	m.isStreaming = true
	log.Printf("Capturing audio from %s (%d Hz, %d channels)", dev.Name, m.sampleRate, m.channels)

	return m.audioChan, nil
}

func (m *Microphone) Stop() error {
	if !m.isStreaming {
		return nil
	}
	m.isStreaming = false
	err := m.stream.Close()
	close(m.audioChan)
	if terr := portaudio.Terminate(); err == nil {
		err = terr
	}
	return err
}

func (m *Microphone) SampleRate() int { return m.sampleRate }
func (m *Microphone) Channels() int   { return m.channels }
