package audio

import (
	"fmt"
	"log"

	"github.com/gordonklaus/portaudio"
)

// Player plays mono audio written to its buffer on the default portaudio
// output device. Underruns play silence.
type Player struct {
	sampleRate  int
	buffer      *SharedAudioBuffer
	stream      *portaudio.Stream
	isStreaming bool
	underruns   int
}

func NewPlayer(sampleRate int) (*Player, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	return &Player{
		sampleRate: sampleRate,
		buffer:     NewSharedAudioBuffer(sampleRate * 2),
	}, nil
}

// Buffer is where audio to play is written.
func (p *Player) Buffer() *SharedAudioBuffer { return p.buffer }

// Write queues a frame for playback, downmixed to mono.
func (p *Player) Write(f *Frame) {
	p.buffer.Write(DownmixToMono(f), true)
}

func (p *Player) callback(out []float32) {
	samples := p.buffer.Read(len(out))
	n := copy(out, samples)
	if n < len(out) {
		clear(out[n:])
		p.underruns++
	}
}

func (p *Player) Start() error {
	host, err := portaudio.DefaultHostApi()
	if err != nil {
		return err
	}
	params := portaudio.HighLatencyParameters(nil, host.DefaultOutputDevice)
	params.Output.Channels = 1
	params.SampleRate = float64(p.sampleRate)

	stream, err := portaudio.OpenStream(params, p.callback)
	if err != nil {
		return fmt.Errorf("failed to open playback stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start playback stream: %w", err)
	}
	p.stream = stream
	p.isStreaming = true
	log.Printf("Playing audio on %s", host.DefaultOutputDevice.Name)
	return nil
}

func (p *Player) Stop() error {
	if !p.isStreaming {
		return nil
	}
	p.isStreaming = false
	if err := p.stream.Close(); err != nil {
		portaudio.Terminate()
		return err
	}
	if p.underruns > 0 {
		log.Printf("Audio player had %d underruns", p.underruns)
	}
	return portaudio.Terminate()
}
